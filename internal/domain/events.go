/**
 * @description
 * This file defines the registration lifecycle events published to the
 * message broker so downstream consumers (notifications, analytics) learn
 * about new accounts without being in the registration path.
 */
package domain

import "time"

// UserRegisteredEvent is published after the identity store creates an
// account, whether or not a profile could be written yet.
type UserRegisteredEvent struct {
	EventID                string    `json:"event_id"`
	UserID                 string    `json:"user_id"`
	Email                  string    `json:"email"`
	Username               string    `json:"username"`
	UserType               UserType  `json:"user_type"`
	NeedsEmailConfirmation bool      `json:"needs_email_confirmation"`
	ProfileCreated         bool      `json:"profile_created"`
	OccurredAt             time.Time `json:"occurred_at"`
}

// ProfileCreatedEvent is published once a profile row exists for an account,
// immediately after sign-up or later via the deferred completion path.
type ProfileCreatedEvent struct {
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	PlanTier   PlanTier  `json:"plan_tier"`
	OccurredAt time.Time `json:"occurred_at"`
}
