// Package queue carries notification intents from the core to the
// notifications table, either over RabbitMQ or directly.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/fleet-management/internal/model"
	"github.com/iliyamo/fleet-management/internal/service"
)

// NotificationQueue is the durable queue notification events travel on.
const NotificationQueue = "fleet.notifications"

// NotificationEvent is the wire form of a notification intent. EventID is
// assigned once at the source and makes redelivery harmless.
type NotificationEvent struct {
	EventID     string    `json:"event_id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	ActorID     uint64    `json:"actor_id"`
	RelatedType string    `json:"related_type,omitempty"`
	RelatedID   uint64    `json:"related_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewEvent stamps an intent with a fresh event id.
func NewEvent(in service.Intent, now time.Time) NotificationEvent {
	ev := NotificationEvent{
		EventID:    uuid.NewString(),
		Type:       in.Type,
		Title:      in.Title,
		Message:    in.Message,
		ActorID:    in.ActorID,
		OccurredAt: now.UTC(),
	}
	if in.Related != nil {
		ev.RelatedType = in.Related.Type
		ev.RelatedID = in.Related.ID
	}
	return ev
}

// Notification converts the event into the row the office reads.
func (ev NotificationEvent) Notification() *model.Notification {
	n := &model.Notification{
		EventID:   ev.EventID,
		Type:      ev.Type,
		Title:     ev.Title,
		Message:   ev.Message,
		ActorID:   ev.ActorID,
		CreatedAt: ev.OccurredAt,
	}
	if ev.RelatedType != "" {
		rt, rid := ev.RelatedType, ev.RelatedID
		n.RelatedType = &rt
		n.RelatedID = &rid
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	return n
}
