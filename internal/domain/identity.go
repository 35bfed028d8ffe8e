/**
 * @description
 * This file defines the identity-side domain models: the authenticated
 * principal as reported by the external identity store, and the opaque
 * session it issues. Token contents are owned by the store; this service
 * only carries them.
 */
package domain

import "time"

// AccountIdentity represents the principal created or returned by the
// external identity store. Metadata carries the profile fields recorded at
// sign-up time for deferred profile creation.
type AccountIdentity struct {
	ID                 string                 `json:"id"`
	Email              string                 `json:"email"`
	EmailConfirmedAt   *time.Time             `json:"email_confirmed_at,omitempty"`
	ConfirmationSentAt *time.Time             `json:"confirmation_sent_at,omitempty"`
	Metadata           map[string]interface{} `json:"user_metadata,omitempty"`
}

// EmailConfirmed reports whether the store has confirmed the account's email.
func (a AccountIdentity) EmailConfirmed() bool {
	return a.EmailConfirmedAt != nil
}

// ConfirmationPending reports whether a confirmation email was sent and has
// not been acted on yet.
func (a AccountIdentity) ConfirmationPending() bool {
	return a.EmailConfirmedAt == nil && a.ConfirmationSentAt != nil
}

// SessionToken is the opaque session issued by the identity store. Expiry is
// enforced externally; this service never refreshes or inspects it beyond
// reading the subject claim for request authentication.
type SessionToken struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// SignUpResult is what the identity store hands back from account creation:
// the identity always, and a session only when the account is immediately
// usable (auto-confirmed or confirmation disabled).
type SignUpResult struct {
	Identity AccountIdentity
	Session  *SessionToken
}
