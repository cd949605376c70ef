package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Producer publishes auth events to RabbitMQ
type Producer struct {
	conn *Connection
}

// NewProducer creates a new event producer
func NewProducer(conn *Connection) *Producer {
	return &Producer{conn: conn}
}

// Publish implements Publisher
func (p *Producer) Publish(ctx context.Context, event *Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	if !p.conn.IsConnected() {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, ErrNotConnected)
	}

	if err := p.conn.PublishJSON(ctx, QueueName, event); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	slog.Debug("published auth event",
		"event_id", event.ID,
		"type", event.Type,
		"user_id", event.UserID,
	)

	return nil
}

var _ Publisher = (*Producer)(nil)
