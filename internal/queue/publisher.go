package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/fleet-management/internal/service"
)

// Publisher sends notification intents to RabbitMQ in the background.
//
// Notify only enqueues into a bounded buffer and never blocks: when the
// buffer is full the intent is dropped and logged. Broker failures are
// logged, the broken connection is discarded and the next event dials
// again. Messages are persistent on a durable queue.
type Publisher struct {
	url    string
	logger *slog.Logger
	events chan NotificationEvent
	wg     sync.WaitGroup
	once   sync.Once

	mu     sync.RWMutex
	closed bool

	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher starts a publisher with room for buffer pending events.
func NewPublisher(url string, buffer int, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = 256
	}
	p := &Publisher{url: url, logger: logger, events: make(chan NotificationEvent, buffer)}
	p.wg.Add(1)
	go p.run()
	return p
}

var _ service.Notifier = (*Publisher)(nil)

// Notify enqueues in for publishing. After Close the intent is dropped and
// logged.
func (p *Publisher) Notify(_ context.Context, in service.Intent) {
	ev := NewEvent(in, time.Now())
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.Warn("rabbitmq: publisher closed, notification dropped",
			slog.String("type", ev.Type), slog.String("event_id", ev.EventID))
		return
	}
	select {
	case p.events <- ev:
	default:
		p.logger.Warn("rabbitmq: publish buffer full, notification dropped",
			slog.String("type", ev.Type), slog.String("event_id", ev.EventID))
	}
}

// Close stops accepting events, flushes what is buffered and closes the
// broker connection.
func (p *Publisher) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.events)
		p.mu.Unlock()
		p.wg.Wait()
		p.reset()
	})
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for ev := range p.events {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := p.publish(ctx, ev); err != nil {
			p.logger.Error("rabbitmq: publish failed",
				slog.String("event_id", ev.EventID), slog.String("error", err.Error()))
			p.reset()
		}
		cancel()
	}
}

func (p *Publisher) publish(ctx context.Context, ev NotificationEvent) error {
	ch, err := p.channel()
	if err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx,
		"",                // default exchange
		NotificationQueue, // routing key = queue name
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.EventID,
			Timestamp:    ev.OccurredAt,
			Type:         ev.Type,
			Body:         body,
		})
}

// channel returns the open channel, dialing and declaring the queue first
// when needed. Only the run goroutine calls it.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := declareQueue(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// declareQueue makes sure the durable notification queue exists.
func declareQueue(ch *amqp.Channel) (amqp.Queue, error) {
	return ch.QueueDeclare(
		NotificationQueue, // name
		true,              // durable
		false,             // autoDelete
		false,             // exclusive
		false,             // noWait
		nil,               // args
	)
}
