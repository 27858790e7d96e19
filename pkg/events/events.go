package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/brandforge/contentpilot/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSPublisher{conn: conn}, nil
}

func (n *NATSPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSPublisher) Close() error {
	n.conn.Close()
	return nil
}

// NoopPublisher drops events. Used when no NATS URL is configured so the
// service can run without a broker locally.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

func (n *NoopPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	logger.DebugContext(ctx, "Event dropped (no broker)", "subject", subject)
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}

// Event subjects
const (
	UserRegistered    = "user.registered"
	UserConfirmed     = "user.confirmed"
	UserLoggedIn      = "user.logged_in"
	UserLoggedOut     = "user.logged_out"
	UserPasswordReset = "user.password_reset"
	BusinessCreated   = "business.created"
)

// Event payloads
type UserRegisteredEvent struct {
	UserID            string    `json:"user_id"`
	Email             string    `json:"email"`
	NeedsConfirmation bool      `json:"needs_confirmation"`
	RegisteredAt      time.Time `json:"registered_at"`
}

type UserConfirmedEvent struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

type UserLoggedInEvent struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

type UserPasswordResetEvent struct {
	UserID  string    `json:"user_id"`
	Email   string    `json:"email"`
	ResetAt time.Time `json:"reset_at"`
}

type BusinessCreatedEvent struct {
	BusinessID string    `json:"business_id"`
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	Industry   string    `json:"industry"`
	CreatedAt  time.Time `json:"created_at"`
}
