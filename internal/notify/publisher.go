package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/lab-booking/internal/application"
)

// QueuePublisher publishes event changes to a durable AMQP queue so other
// systems (mail gateways, display boards) can react. Publishing is best
// effort: errors are logged and returned, never allowed to fail the
// request that triggered them.
type QueuePublisher struct {
	url    string
	queue  string
	logger *slog.Logger
}

// NewQueuePublisher configures a publisher for the given broker URL and
// queue name.
func NewQueuePublisher(url, queue string, logger *slog.Logger) *QueuePublisher {
	if queue == "" {
		queue = "booking.changed"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueuePublisher{url: url, queue: queue, logger: logger}
}

// queueMessage is the wire form of a published change.
type queueMessage struct {
	EventID        string    `json:"eventId"`
	OwnerID        string    `json:"ownerId"`
	Action         string    `json:"action,omitempty"`
	State          string    `json:"state"`
	DeletedSlotIDs []string  `json:"deletedSlotIds,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Publish sends one change to the queue, declaring it on the way so the
// first publish after a broker restart still lands. Each publish opens its
// own connection; change volume here is user-interaction scale, not a
// throughput concern.
func (p *QueuePublisher) Publish(ctx context.Context, change application.EventChange) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.WarnContext(ctx, "queue dial failed", "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.WarnContext(ctx, "queue channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		p.logger.WarnContext(ctx, "queue declare failed", "queue", p.queue, "error", err)
		return err
	}

	body, err := json.Marshal(queueMessage{
		EventID:        change.EventID,
		OwnerID:        change.OwnerID,
		Action:         string(change.Action),
		State:          string(change.State),
		DeletedSlotIDs: change.DeletedSlotIDs,
		Timestamp:      change.Timestamp,
	})
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.logger.WarnContext(ctx, "queue publish failed", "queue", p.queue, "error", err)
		return err
	}
	return nil
}
