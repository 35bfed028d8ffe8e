/**
 * @description
 * The session bridge wraps the external identity store's auth operations and
 * owns the shared {identity, profile, subscription} state the rest of the
 * app reads. It is the single writer of that state: every mutation goes
 * through a monotonic sequence number so concurrent completions (a manual
 * sign-in racing an external auth-state notification, a profile fetch
 * finishing after sign-out) are ordered deterministically and stale writes
 * are dropped.
 *
 * Identity lifecycle: Anonymous -> Authenticating -> {Authenticated,
 * AuthFailed}; Authenticated -> SigningOut -> Anonymous. An external
 * session-loss notification is authoritative and forces Anonymous at any
 * time.
 */
package session

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/ndarama/ishuriai-backend/internal/domain"
	"github.com/ndarama/ishuriai-backend/pkg/supabase"
)

// State is the bridge's identity lifecycle state.
type State string

const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
	StateAuthFailed     State = "auth_failed"
	StateSigningOut     State = "signing_out"
)

// FailureKind classifies a sign-in failure for user-facing messaging.
type FailureKind string

const (
	FailureInvalidCredentials FailureKind = "invalid_credentials"
	FailureEmailNotConfirmed  FailureKind = "email_not_confirmed"
	FailureMalformedEmail     FailureKind = "malformed_email"
	FailureServerError        FailureKind = "server_error"
	FailureUnknown            FailureKind = "unknown"
)

// SignInError is a classified sign-in failure.
type SignInError struct {
	Kind    FailureKind
	Message string
	cause   error
}

func (e *SignInError) Error() string { return e.Message }
func (e *SignInError) Unwrap() error { return e.cause }

// AuthStore is the slice of the external store the bridge needs for
// session operations.
type AuthStore interface {
	SignInWithPassword(ctx context.Context, email, password string) (*domain.SignUpResult, error)
	SignOut(ctx context.Context, accessToken string) error
	CurrentUser(ctx context.Context, accessToken string) (*domain.AccountIdentity, error)
	RecoverPassword(ctx context.Context, email, redirectTo string) error
}

// ProfileReader is the slice of the external store the bridge reads profile
// and subscription data through.
type ProfileReader interface {
	ProfileWithSubscription(ctx context.Context, accessToken, userID string) (*domain.UserProfile, *domain.Subscription, error)
	ProfileByUserID(ctx context.Context, accessToken, userID string) (*domain.UserProfile, error)
	SubscriptionByUserID(ctx context.Context, accessToken, userID string) (*domain.Subscription, error)
}

// Snapshot is one published view of the shared session state.
type Snapshot struct {
	State        State                   `json:"state"`
	Identity     *domain.AccountIdentity `json:"identity,omitempty"`
	Session      *domain.SessionToken    `json:"-"`
	Profile      *domain.UserProfile     `json:"profile,omitempty"`
	Subscription *domain.Subscription    `json:"subscription,omitempty"`
	Seq          uint64                  `json:"-"`
}

// Authenticated reports whether the snapshot holds a usable identity.
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated && s.Identity != nil
}

// Bridge is the single-writer container for shared session state.
type Bridge struct {
	auth            AuthStore
	profiles        ProfileReader
	resetRedirectTo string

	mu      sync.Mutex
	seq     uint64
	snap    Snapshot
	subs    map[int]chan Snapshot
	nextSub int
}

// NewBridge creates a bridge in the Anonymous state. resetRedirectTo is the
// URL password-reset emails point back at; may be empty.
func NewBridge(auth AuthStore, profiles ProfileReader, resetRedirectTo string) *Bridge {
	return &Bridge{
		auth:            auth,
		profiles:        profiles,
		resetRedirectTo: resetRedirectTo,
		snap:            Snapshot{State: StateAnonymous},
		subs:            make(map[int]chan Snapshot),
	}
}

// begin claims a new write sequence and publishes the transitional state.
// The returned sequence must be passed to apply; a write whose sequence is
// no longer current is dropped, so the most recently begun flow wins.
func (b *Bridge) begin(state State) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	b.snap = Snapshot{State: state, Seq: b.seq}
	b.notifyLocked()
	return b.seq
}

// apply publishes snap if seq is still the current write. Returns whether
// the write was applied.
func (b *Bridge) apply(seq uint64, snap Snapshot) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if seq != b.seq {
		log.Printf("level=info component=session msg=\"dropping stale state write\" seq=%d current=%d", seq, b.seq)
		return false
	}
	snap.Seq = seq
	b.snap = snap
	b.notifyLocked()
	return true
}

func (b *Bridge) notifyLocked() {
	for _, ch := range b.subs {
		select {
		case ch <- b.snap:
		default:
			// Slow subscriber: drop the stale pending value and retry.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- b.snap:
			default:
			}
		}
	}
}

// Current returns the latest published snapshot.
func (b *Bridge) Current() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap
}

// Subscribe registers for state changes. The returned cancel func must be
// called on teardown; afterwards no more values are delivered.
func (b *Bridge) Subscribe() (<-chan Snapshot, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSub
	b.nextSub++
	ch := make(chan Snapshot, 1)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// SignIn exchanges credentials for a session, loads the profile and
// subscription, and publishes the authenticated state. The returned error,
// when non-nil, is always a *SignInError.
func (b *Bridge) SignIn(ctx context.Context, email, password string) (Snapshot, error) {
	seq := b.begin(StateAuthenticating)

	res, err := b.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		serr := classifySignInError(err)
		log.Printf("level=warn component=session msg=\"sign-in failed\" kind=%s err=%v", serr.Kind, err)
		b.apply(seq, Snapshot{State: StateAuthFailed})
		return Snapshot{State: StateAuthFailed}, serr
	}

	identity := res.Identity
	accessToken := ""
	if res.Session != nil {
		accessToken = res.Session.AccessToken
	}
	profile, sub := b.fetchProfile(ctx, accessToken, identity.ID)

	snap := Snapshot{
		State:        StateAuthenticated,
		Identity:     &identity,
		Session:      res.Session,
		Profile:      profile,
		Subscription: sub,
	}
	if !b.apply(seq, snap) {
		// A newer flow (external notification, another sign-in) took over
		// while we were fetching; its outcome stands.
		return b.Current(), nil
	}
	return snap, nil
}

// SignOut revokes the session and clears the shared state. Local state is
// cleared even when the remote revocation fails: from this side the session
// is gone either way.
func (b *Bridge) SignOut(ctx context.Context) error {
	b.mu.Lock()
	accessToken := ""
	if b.snap.Session != nil {
		accessToken = b.snap.Session.AccessToken
	}
	b.mu.Unlock()

	seq := b.begin(StateSigningOut)
	var err error
	if accessToken != "" {
		if err = b.auth.SignOut(ctx, accessToken); err != nil {
			log.Printf("level=warn component=session msg=\"remote sign-out failed; clearing local state anyway\" err=%v", err)
		}
	}
	b.apply(seq, Snapshot{State: StateAnonymous})
	return err
}

// HandleAuthEvent ingests an auth-state-change notification from the
// external store. A nil session means the session was lost (expiry, remote
// sign-out) and forces Anonymous; a non-nil session re-resolves the identity
// and profile. The notification is authoritative either way.
func (b *Bridge) HandleAuthEvent(ctx context.Context, session *domain.SessionToken) {
	if session == nil {
		seq := b.begin(StateSigningOut)
		b.apply(seq, Snapshot{State: StateAnonymous})
		return
	}

	seq := b.begin(StateAuthenticating)
	identity, err := b.auth.CurrentUser(ctx, session.AccessToken)
	if err != nil {
		log.Printf("level=warn component=session msg=\"auth event session did not resolve\" err=%v", err)
		b.apply(seq, Snapshot{State: StateAnonymous})
		return
	}

	profile, sub := b.fetchProfile(ctx, session.AccessToken, identity.ID)
	b.apply(seq, Snapshot{
		State:        StateAuthenticated,
		Identity:     identity,
		Session:      session,
		Profile:      profile,
		Subscription: sub,
	})
}

// ResetPassword asks the store to send a password-reset email. Fire and
// forget: the outcome is only for a transient notification and never
// changes session state.
func (b *Bridge) ResetPassword(ctx context.Context, email string) error {
	if err := b.auth.RecoverPassword(ctx, email, b.resetRedirectTo); err != nil {
		log.Printf("level=warn component=session msg=\"password reset dispatch failed\" err=%v", err)
		return err
	}
	return nil
}

// fetchProfile loads the profile from the joined profile+subscription view,
// falling back to the bare profile row when the view is unavailable, and the
// subscription separately. Either may come back nil; sign-in proceeds
// regardless.
func (b *Bridge) fetchProfile(ctx context.Context, accessToken, userID string) (*domain.UserProfile, *domain.Subscription) {
	profile, sub, err := b.profiles.ProfileWithSubscription(ctx, accessToken, userID)
	if err != nil {
		log.Printf("level=warn component=session msg=\"joined view unavailable; falling back to bare profile fetch\" err=%v", err)
		profile, err = b.profiles.ProfileByUserID(ctx, accessToken, userID)
		if err != nil {
			if !errors.Is(err, supabase.ErrNotFound) {
				log.Printf("level=warn component=session msg=\"profile fetch failed\" err=%v", err)
			}
			profile = nil
		}
	}

	if s, err := b.profiles.SubscriptionByUserID(ctx, accessToken, userID); err != nil {
		log.Printf("level=warn component=session msg=\"subscription fetch failed\" err=%v", err)
	} else if s != nil {
		sub = s
	}
	return profile, sub
}

func classifySignInError(err error) *SignInError {
	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == "email_not_confirmed" ||
			strings.Contains(apiErr.Message, "Email not confirmed"):
			return &SignInError{
				Kind:    FailureEmailNotConfirmed,
				Message: "Please check your email and click the confirmation link before signing in.",
				cause:   err,
			}
		case apiErr.Code == "invalid_credentials" ||
			strings.Contains(apiErr.Message, "Invalid login credentials"):
			return &SignInError{
				Kind:    FailureInvalidCredentials,
				Message: "Invalid email or password. Please check your credentials and try again.",
				cause:   err,
			}
		case apiErr.StatusCode == http.StatusUnprocessableEntity:
			return &SignInError{
				Kind:    FailureMalformedEmail,
				Message: "Invalid email format.",
				cause:   err,
			}
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return &SignInError{
				Kind:    FailureServerError,
				Message: "Server error. Please try again later.",
				cause:   err,
			}
		case apiErr.StatusCode == http.StatusBadRequest:
			return &SignInError{
				Kind:    FailureInvalidCredentials,
				Message: "Invalid email or password.",
				cause:   err,
			}
		}
	}
	return &SignInError{
		Kind:    FailureUnknown,
		Message: "Login failed. Please try again.",
		cause:   err,
	}
}
