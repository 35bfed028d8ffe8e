/**
 * @description
 * This file contains the registration flow: full-form validation, the
 * account-creation call against the identity store, the immediate or
 * deferred profile write, and the post-submit routing hint. The flow is a
 * small state machine: Editing -> Validating -> Submitting -> Succeeded or
 * Failed, with Succeeded covering three shapes (profile created, profile
 * pending email confirmation, profile write failed but account kept).
 *
 * @notes
 * - Account creation is never rolled back because the secondary profile
 *   write failed; that outcome is recoverable through the profile
 *   completion path.
 * - Lifecycle events are published best-effort; a broker failure is logged
 *   and does not fail the registration.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ndarama/ishuriai-backend/internal/domain"
	"github.com/ndarama/ishuriai-backend/internal/validation"
	"github.com/ndarama/ishuriai-backend/pkg/supabase"
)

// FlowState is the registration flow's current state.
type FlowState string

const (
	StateEditing    FlowState = "editing"
	StateValidating FlowState = "validating"
	StateSubmitting FlowState = "submitting"
	StateSucceeded  FlowState = "succeeded"
	StateFailed     FlowState = "failed"
)

// Post-submit routing targets.
const (
	NextScreenApps              = "apps"
	NextScreenEmailConfirmation = "email-confirmation"
)

// FailureKind classifies why account creation failed.
type FailureKind string

const (
	FailureDuplicateEmail FailureKind = "duplicate_email"
	FailureInvalidSignup  FailureKind = "invalid_signup"
	FailureServerError    FailureKind = "server_error"
	FailureUnknown        FailureKind = "unknown"
)

// SubmitFailure is the operation-scoped error surfaced when the identity
// store rejects account creation. The draft is retained so the user can
// correct and resubmit.
type SubmitFailure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// SubmitResult is the outcome of one submit attempt.
type SubmitResult struct {
	State       FlowState            `json:"state"`
	FieldErrors domain.FieldErrorSet `json:"field_errors,omitempty"`
	Failure     *SubmitFailure       `json:"failure,omitempty"`

	Identity               *domain.AccountIdentity `json:"identity,omitempty"`
	Session                *domain.SessionToken    `json:"session,omitempty"`
	Profile                *domain.UserProfile     `json:"profile,omitempty"`
	ProfileCreated         bool                    `json:"profile_created"`
	NeedsEmailConfirmation bool                    `json:"needs_email_confirmation"`
	ProfileError           string                  `json:"profile_error,omitempty"`
	NextScreen             string                  `json:"next,omitempty"`

	// RetainedDraft carries the profile fields for a later deferred
	// creation. Never serialized: the draft holds the plaintext password.
	RetainedDraft *domain.RegistrationDraft `json:"-"`
}

var (
	// ErrNoProfileData is returned by the deferred completion path when
	// neither a cached draft nor sign-up metadata can supply profile fields.
	ErrNoProfileData = errors.New("no profile data available")
	// ErrNoAuthenticatedUser is returned when the access token no longer
	// resolves to an identity.
	ErrNoAuthenticatedUser = errors.New("no authenticated user found")
)

// IdentityStore is the slice of the external store the registration flow
// needs for account operations.
type IdentityStore interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*domain.SignUpResult, error)
	CurrentUser(ctx context.Context, accessToken string) (*domain.AccountIdentity, error)
}

// ProfileStore is the slice of the external store holding profile rows.
type ProfileStore interface {
	InsertProfile(ctx context.Context, accessToken string, p domain.NewProfile) (*domain.UserProfile, error)
	ProfileByUserID(ctx context.Context, accessToken, userID string) (*domain.UserProfile, error)
	CountByUsername(ctx context.Context, username string) (int, error)
	CountByPhone(ctx context.Context, carrier domain.Carrier, number string) (int, error)
}

// EventPublisher publishes lifecycle events to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// Service orchestrates registration against the external identity and
// profile store. events may be nil when no broker is configured.
type Service struct {
	identity IdentityStore
	profiles ProfileStore
	events   EventPublisher
	exchange string
}

// NewService creates a registration service. exchange is the broker exchange
// lifecycle events are published to; ignored when events is nil.
func NewService(identity IdentityStore, profiles ProfileStore, events EventPublisher, exchange string) *Service {
	if exchange == "" {
		exchange = "user_events"
	}
	return &Service{identity: identity, profiles: profiles, events: events, exchange: exchange}
}

// Submit runs the full submit path for a draft: validate, create the
// account, then attempt the profile write per the confirmation state.
func (s *Service) Submit(ctx context.Context, draft domain.RegistrationDraft) SubmitResult {
	// Validating: synchronous, full form. Any error bounces back to Editing
	// with the field errors populated and nothing sent to the network.
	if errs := validation.Validate(draft); !errs.Empty() {
		return SubmitResult{State: StateEditing, FieldErrors: errs}
	}

	// Submitting: create the account, passing profile fields as metadata so
	// a deferred profile creation can still recover them.
	res, err := s.identity.SignUp(ctx, draft.Email, draft.Password, draft.Metadata())
	if err != nil {
		failure := classifySignUpError(err)
		log.Printf("level=warn component=registration msg=\"account creation failed\" kind=%s err=%v", failure.Kind, err)
		return SubmitResult{State: StateFailed, Failure: failure}
	}

	identity := res.Identity
	result := SubmitResult{
		State:    StateSucceeded,
		Identity: &identity,
		Session:  res.Session,
	}

	// The identity is immediately usable when the store auto-confirmed it,
	// never sent a confirmation email, or issued a session outright.
	usable := identity.EmailConfirmed() || identity.ConfirmationSentAt == nil || res.Session != nil
	if !usable {
		result.NeedsEmailConfirmation = true
		result.RetainedDraft = &draft
		result.NextScreen = NextScreenEmailConfirmation
		s.publishRegistered(ctx, result)
		return result
	}

	accessToken := ""
	if res.Session != nil {
		accessToken = res.Session.AccessToken
	}

	profile, err := s.profiles.InsertProfile(ctx, accessToken, buildNewProfile(identity.ID, draft))
	if err != nil {
		// The account exists; the profile write is not rolled back. The user
		// completes their profile later.
		log.Printf("level=warn component=registration msg=\"profile creation failed; account kept\" user_id=%s err=%v", identity.ID, err)
		result.ProfileError = err.Error()
		result.NeedsEmailConfirmation = !identity.EmailConfirmed()
		result.RetainedDraft = &draft
		result.NextScreen = NextScreenApps
		if result.NeedsEmailConfirmation {
			result.NextScreen = NextScreenEmailConfirmation
		}
		s.publishRegistered(ctx, result)
		return result
	}

	result.Profile = profile
	result.ProfileCreated = true
	result.NextScreen = NextScreenApps
	s.publishRegistered(ctx, result)
	s.publishProfileCreated(ctx, profile)
	return result
}

// CreateProfileAfterConfirmation creates the profile row for an already
// confirmed identity, from the cached draft when one is supplied or from the
// metadata recorded at sign-up time. The call is idempotent: an existing
// profile is returned unchanged.
func (s *Service) CreateProfileAfterConfirmation(ctx context.Context, accessToken string, draft *domain.RegistrationDraft) (*domain.UserProfile, error) {
	identity, err := s.identity.CurrentUser(ctx, accessToken)
	if err != nil {
		return nil, ErrNoAuthenticatedUser
	}

	existing, err := s.profiles.ProfileByUserID(ctx, accessToken, identity.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, supabase.ErrNotFound) {
		return nil, err
	}

	var np domain.NewProfile
	if draft != nil {
		np = buildNewProfile(identity.ID, *draft)
		np.Email = identity.Email
	} else {
		np, err = profileFromMetadata(*identity)
		if err != nil {
			return nil, err
		}
	}
	if err := checkProfileFields(np); err != nil {
		return nil, err
	}

	profile, err := s.profiles.InsertProfile(ctx, accessToken, np)
	if err != nil {
		if errors.Is(err, supabase.ErrConflict) {
			// Lost a race with another completion attempt; the winning row
			// is the profile.
			if existing, lookupErr := s.profiles.ProfileByUserID(ctx, accessToken, identity.ID); lookupErr == nil {
				return existing, nil
			}
		}
		return nil, err
	}
	s.publishProfileCreated(ctx, profile)
	return profile, nil
}

// CheckProfileExists reports whether the identity behind the token already
// has a profile row.
func (s *Service) CheckProfileExists(ctx context.Context, accessToken string) (bool, error) {
	identity, err := s.identity.CurrentUser(ctx, accessToken)
	if err != nil {
		return false, ErrNoAuthenticatedUser
	}
	if _, err := s.profiles.ProfileByUserID(ctx, accessToken, identity.ID); err != nil {
		if errors.Is(err, supabase.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Service) publishRegistered(ctx context.Context, result SubmitResult) {
	if s.events == nil || result.Identity == nil {
		return
	}
	event := domain.UserRegisteredEvent{
		EventID:                uuid.NewString(),
		UserID:                 result.Identity.ID,
		Email:                  result.Identity.Email,
		NeedsEmailConfirmation: result.NeedsEmailConfirmation,
		ProfileCreated:         result.ProfileCreated,
		OccurredAt:             time.Now().UTC(),
	}
	if result.RetainedDraft != nil {
		event.Username = result.RetainedDraft.Username
		event.UserType = result.RetainedDraft.UserType
	} else if result.Profile != nil {
		event.Username = result.Profile.Username
		event.UserType = result.Profile.UserType
	}
	if err := s.events.Publish(ctx, s.exchange, "user.registered", event); err != nil {
		log.Printf("CRITICAL: Failed to publish user.registered event for user %s: %v", result.Identity.ID, err)
	}
}

func (s *Service) publishProfileCreated(ctx context.Context, profile *domain.UserProfile) {
	if s.events == nil || profile == nil {
		return
	}
	event := domain.ProfileCreatedEvent{
		EventID:    uuid.NewString(),
		UserID:     profile.UserID,
		Username:   profile.Username,
		PlanTier:   profile.PlanTier,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, s.exchange, "profile.created", event); err != nil {
		log.Printf("CRITICAL: Failed to publish profile.created event for user %s: %v", profile.UserID, err)
	}
}

func buildNewProfile(userID string, draft domain.RegistrationDraft) domain.NewProfile {
	return domain.NewProfile{
		UserID:      userID,
		FullName:    draft.FullName,
		Username:    draft.Username,
		DateOfBirth: draft.DateOfBirth,
		School:      draft.School,
		Level:       draft.Level,
		UserType:    draft.UserType,
		Email:       draft.Email,
		MTNPhone:    optional(draft.MTNPhone),
		AirtelPhone: optional(draft.AirtelPhone),
		AcceptTerms: draft.AcceptTerms,
	}
}

// profileFromMetadata rebuilds profile fields from the metadata recorded at
// sign-up time.
func profileFromMetadata(identity domain.AccountIdentity) (domain.NewProfile, error) {
	if len(identity.Metadata) == 0 {
		return domain.NewProfile{}, ErrNoProfileData
	}
	md := identity.Metadata
	np := domain.NewProfile{
		UserID:      identity.ID,
		FullName:    metaString(md, "full_name"),
		Username:    metaString(md, "username"),
		DateOfBirth: metaString(md, "date_of_birth"),
		School:      metaString(md, "school"),
		Level:       metaString(md, "level"),
		UserType:    domain.UserType(metaString(md, "user_type")),
		Email:       identity.Email,
		MTNPhone:    optional(metaString(md, "mtn_phone")),
		AirtelPhone: optional(metaString(md, "airtel_phone")),
		AcceptTerms: metaBool(md, "accept_terms"),
	}
	return np, nil
}

// checkProfileFields re-applies the profile-side rules before a deferred
// insert: the metadata may predate rule changes or have been tampered with.
func checkProfileFields(np domain.NewProfile) error {
	required := map[string]string{
		"full name":     np.FullName,
		"username":      np.Username,
		"date of birth": np.DateOfBirth,
		"school":        np.School,
		"level":         np.Level,
		"email":         np.Email,
	}
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	if !np.UserType.Valid() {
		return errors.New("invalid user type, must be Student, Teacher, or Parent")
	}
	if np.MTNPhone == nil && np.AirtelPhone == nil {
		return errors.New("at least one phone number (MTN or AIRTEL) is required")
	}
	if np.MTNPhone != nil && !validation.ValidPhone(*np.MTNPhone, domain.CarrierMTN) {
		return errors.New("invalid MTN phone number format, use 078XXXXXXX or 079XXXXXXX")
	}
	if np.AirtelPhone != nil && !validation.ValidPhone(*np.AirtelPhone, domain.CarrierAirtel) {
		return errors.New("invalid AIRTEL phone number format, use 073XXXXXXX or 072XXXXXXX")
	}
	if !np.AcceptTerms {
		return errors.New("terms and conditions must be accepted")
	}
	return nil
}

func classifySignUpError(err error) *SubmitFailure {
	if supabase.IsUserExists(err) {
		return &SubmitFailure{
			Kind:    FailureDuplicateEmail,
			Message: "An account with this email already exists. Please try logging in instead.",
		}
	}

	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnprocessableEntity,
			apiErr.StatusCode == http.StatusBadRequest && strings.Contains(apiErr.Message, "invalid"):
			return &SubmitFailure{
				Kind:    FailureInvalidSignup,
				Message: "Invalid email format or password requirements not met.",
			}
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return &SubmitFailure{
				Kind:    FailureServerError,
				Message: "Server error occurred. Please try again later.",
			}
		case apiErr.Message != "":
			return &SubmitFailure{Kind: FailureUnknown, Message: apiErr.Message}
		}
	}
	return &SubmitFailure{Kind: FailureUnknown, Message: "Signup failed. Please try again."}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func metaString(md map[string]interface{}, key string) string {
	if v, ok := md[key].(string); ok {
		return v
	}
	return ""
}

func metaBool(md map[string]interface{}, key string) bool {
	if v, ok := md[key].(bool); ok {
		return v
	}
	return false
}
