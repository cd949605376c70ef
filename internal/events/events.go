// Package events publishes authentication events (signups, logins) for
// downstream consumers. Publishing is best effort: the auth flow never fails
// because an event could not be delivered.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	TypeUserSignedUp = "user.signed_up"
	TypeUserLoggedIn = "user.logged_in"
)

// Event describes something that happened to a user account
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	RequestID  string    `json:"request_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent creates an event of the given type for a user
func NewEvent(eventType, userID, email string) *Event {
	return &Event{
		ID:         uuid.New(),
		Type:       eventType,
		UserID:     userID,
		Email:      email,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers events
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// NopPublisher discards every event. Used when no broker is configured.
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(context.Context, *Event) error { return nil }

var _ Publisher = NopPublisher{}
