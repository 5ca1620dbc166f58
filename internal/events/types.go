package events

import (
	"context"
	"time"
)

const (
	EventUserRegistered = "user_registered"
	UserSignupVersion   = 1
)

// UserSignup is emitted the first time a sender is stored.
type UserSignup struct {
	Event      string    `json:"event"`
	Version    int       `json:"version"`
	ExternalID string    `json:"external_id"`
	TS         time.Time `json:"ts"`
}

// NewUserSignup builds a signup event for externalID.
func NewUserSignup(externalID string, at time.Time) UserSignup {
	return UserSignup{
		Event:      EventUserRegistered,
		Version:    UserSignupVersion,
		ExternalID: externalID,
		TS:         at.UTC(),
	}
}

// Publisher delivers domain events to a broker.
type Publisher interface {
	PublishUserSignup(ctx context.Context, ev UserSignup) error
	Close() error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishUserSignup(context.Context, UserSignup) error { return nil }
func (Nop) Close() error                                        { return nil }
