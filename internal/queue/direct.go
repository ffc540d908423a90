package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/fleet-management/internal/service"
)

// DirectSink stores notification intents straight into the database from a
// background goroutine. It stands in for the broker when none is
// configured and, like Publisher, drops intents when its buffer is full.
type DirectSink struct {
	store  Store
	logger *slog.Logger
	events chan NotificationEvent
	wg     sync.WaitGroup
	once   sync.Once

	mu     sync.RWMutex
	closed bool
}

func NewDirectSink(store Store, buffer int, logger *slog.Logger) *DirectSink {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = 256
	}
	s := &DirectSink{store: store, logger: logger, events: make(chan NotificationEvent, buffer)}
	s.wg.Add(1)
	go s.run()
	return s
}

var _ service.Notifier = (*DirectSink)(nil)

// Notify enqueues in. After Close the intent is dropped and logged.
func (s *DirectSink) Notify(_ context.Context, in service.Intent) {
	ev := NewEvent(in, time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.logger.Warn("notifications: sink closed, notification dropped",
			slog.String("type", ev.Type), slog.String("event_id", ev.EventID))
		return
	}
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("notifications: buffer full, notification dropped",
			slog.String("type", ev.Type), slog.String("event_id", ev.EventID))
	}
}

// Close stores everything still buffered and stops the worker.
func (s *DirectSink) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.events)
		s.mu.Unlock()
		s.wg.Wait()
	})
}

func (s *DirectSink) run() {
	defer s.wg.Done()
	for ev := range s.events {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := s.store.Insert(ctx, ev.Notification()); err != nil {
			s.logger.Error("notifications: store failed",
				slog.String("event_id", ev.EventID), slog.String("error", err.Error()))
		}
		cancel()
	}
}
