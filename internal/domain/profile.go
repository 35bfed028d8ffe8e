/**
 * @description
 * This file defines the profile-side domain models: the application profile
 * row keyed by identity id, the plan tiers, and the subscription record
 * surfaced alongside a profile. Uniqueness of username and each phone column
 * is enforced by the external store; pre-submission checks here are
 * best-effort only.
 */
package domain

import "time"

// PlanTier is the pricing tier a profile is on.
type PlanTier string

const (
	PlanFree     PlanTier = "free"
	PlanStandard PlanTier = "standard"
	PlanPremium  PlanTier = "premium"
)

// UserProfile is the application-specific record for an account, one-to-one
// with an AccountIdentity once created.
type UserProfile struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	FullName    string    `json:"full_name"`
	Username    string    `json:"username"`
	DateOfBirth string    `json:"date_of_birth"`
	School      string    `json:"school"`
	Level       string    `json:"level"`
	UserType    UserType  `json:"user_type"`
	Email       string    `json:"email"`
	MTNPhone    *string   `json:"mtn_phone,omitempty"`
	AirtelPhone *string   `json:"airtel_phone,omitempty"`
	AcceptTerms bool      `json:"accept_terms"`
	PlanTier    PlanTier  `json:"plan_tier,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// NewProfile carries the fields for a profile insert. Phone pointers are nil
// when the corresponding number was not provided.
type NewProfile struct {
	UserID      string   `json:"user_id"`
	FullName    string   `json:"full_name"`
	Username    string   `json:"username"`
	DateOfBirth string   `json:"date_of_birth"`
	School      string   `json:"school"`
	Level       string   `json:"level"`
	UserType    UserType `json:"user_type"`
	Email       string   `json:"email"`
	MTNPhone    *string  `json:"mtn_phone"`
	AirtelPhone *string  `json:"airtel_phone"`
	AcceptTerms bool     `json:"accept_terms"`
}

// Subscription is the billing record attached to a profile. A missing
// subscription means the profile is on the free tier.
type Subscription struct {
	ID                 string    `json:"id,omitempty"`
	UserID             string    `json:"user_id"`
	Plan               PlanTier  `json:"plan"`
	Status             string    `json:"status"`
	CurrentPeriodStart time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   time.Time `json:"current_period_end,omitempty"`
	AutoRenew          bool      `json:"auto_renew"`
}

// Active reports whether the subscription currently grants paid access.
func (s Subscription) Active(now time.Time) bool {
	return s.Status == "active" && s.CurrentPeriodEnd.After(now)
}
