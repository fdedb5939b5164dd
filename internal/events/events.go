package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"media-toolkit/internal/logging"
	"media-toolkit/internal/metrics"
	"media-toolkit/internal/pipeline"
)

// DefaultQueue receives job completion events when no queue is configured.
const DefaultQueue = "media.jobs.completed"

const publishTimeout = 5 * time.Second

// Event is the message body published for every finished job.
type Event struct {
	Type string          `json:"type"`
	Job  pipeline.Record `json:"job"`
}

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends job events to a durable RabbitMQ queue. A nil *Publisher
// is valid and publishes nothing.
type Publisher struct {
	conn  *amqp.Connection
	ch    channel
	queue string
	mu    sync.Mutex
}

// NewPublisher connects to url and declares queue. An empty url disables
// publishing and returns a nil Publisher.
func NewPublisher(url, queue string) (*Publisher, error) {
	if url == "" {
		return nil, nil
	}
	if queue == "" {
		queue = DefaultQueue
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logging.Warn("failed to close rabbitmq connection: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	logging.Info("Publishing job events to queue %s", queue)
	return &Publisher{conn: conn, ch: ch, queue: queue}, nil
}

func newPublisherWithChannel(ch channel, queue string) *Publisher {
	return &Publisher{ch: ch, queue: queue}
}

// Marshal encodes the event for rec.
func Marshal(rec pipeline.Record) ([]byte, error) {
	return json.Marshal(Event{Type: "job." + string(rec.Status), Job: rec})
}

// Publish sends one event for rec.
func (p *Publisher) Publish(ctx context.Context, rec pipeline.Record) error {
	if p == nil {
		return nil
	}

	body, err := Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    rec.ID,
		Timestamp:    rec.FinishedAt,
		Type:         "job." + string(rec.Status),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// JobFinished implements pipeline.Observer.
func (p *Publisher) JobFinished(ctx context.Context, rec pipeline.Record) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, rec); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		logging.Warn("Failed to publish event for job %s: %v", rec.ID, err)
		return
	}
	metrics.EventsPublished.WithLabelValues("success").Inc()
}

// Close closes the channel and connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			logging.Debug("failed to close rabbitmq channel: %v", err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			logging.Debug("failed to close rabbitmq connection: %v", err)
		}
	}
}
