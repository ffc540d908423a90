package model

import "time"

// Notification types.
const (
	NotifyDailyReport = "fuel.daily_report"
	NotifyLowStock    = "fuel.low_stock"
	NotifyIncident    = "incident.reported"
)

// Notification is an office-facing message persisted from a notification
// intent. EventID is the intent's id and makes delivery idempotent.
type Notification struct {
	ID          uint64     `json:"id"`
	EventID     string     `json:"event_id"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	ActorID     uint64     `json:"actor_id"`
	RelatedType *string    `json:"related_type,omitempty"`
	RelatedID   *uint64    `json:"related_id,omitempty"`
	IsRead      bool       `json:"is_read"`
	CreatedAt   time.Time  `json:"created_at"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}
