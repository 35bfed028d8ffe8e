/**
 * @description
 * Auth API operations: account creation, password sign-in, sign-out, session
 * introspection and password-recovery email dispatch. Wire shapes are
 * converted to domain types at this boundary so the rest of the service
 * never sees store-specific payloads.
 */
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/ndarama/ishuriai-backend/internal/domain"
)

// ErrNoAuthenticatedUser is returned when a session token no longer resolves
// to a user on the store.
var ErrNoAuthenticatedUser = errors.New("supabase: no authenticated user")

type wireUser struct {
	ID                 string                 `json:"id"`
	Email              string                 `json:"email"`
	EmailConfirmedAt   *time.Time             `json:"email_confirmed_at"`
	ConfirmationSentAt *time.Time             `json:"confirmation_sent_at"`
	UserMetadata       map[string]interface{} `json:"user_metadata"`
}

func (u wireUser) toDomain() domain.AccountIdentity {
	return domain.AccountIdentity{
		ID:                 u.ID,
		Email:              u.Email,
		EmailConfirmedAt:   u.EmailConfirmedAt,
		ConfirmationSentAt: u.ConfirmationSentAt,
		Metadata:           u.UserMetadata,
	}
}

type wireSession struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         *wireUser `json:"user"`
}

func (s wireSession) toDomain() *domain.SessionToken {
	return &domain.SessionToken{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		RefreshToken: s.RefreshToken,
		ExpiresIn:    s.ExpiresIn,
	}
}

// SignUp creates an account, passing the profile fields as user metadata so
// they survive until a deferred profile creation. When the project requires
// email confirmation the store returns the bare user and no session; both
// shapes are handled.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*domain.SignUpResult, error) {
	body := map[string]interface{}{
		"email":    email,
		"password": password,
	}
	if len(metadata) > 0 {
		body["data"] = metadata
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", nil, "", body, &raw, nil); err != nil {
		return nil, err
	}

	// With auto-confirm the response is a session envelope wrapping the
	// user; with confirmation pending it is the user object itself.
	var envelope wireSession
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.AccessToken != "" && envelope.User != nil {
		return &domain.SignUpResult{
			Identity: envelope.User.toDomain(),
			Session:  envelope.toDomain(),
		}, nil
	}

	var usr wireUser
	if err := json.Unmarshal(raw, &usr); err != nil {
		return nil, err
	}
	if usr.ID == "" {
		return nil, errors.New("supabase: signup returned no user")
	}
	return &domain.SignUpResult{Identity: usr.toDomain()}, nil
}

// SignInWithPassword exchanges credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.SignUpResult, error) {
	query := url.Values{"grant_type": []string{"password"}}
	body := map[string]string{"email": email, "password": password}

	var envelope wireSession
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token", query, "", body, &envelope, nil); err != nil {
		return nil, err
	}
	if envelope.User == nil {
		return nil, errors.New("supabase: token grant returned no user")
	}
	return &domain.SignUpResult{
		Identity: envelope.User.toDomain(),
		Session:  envelope.toDomain(),
	}, nil
}

// SignOut revokes the session behind the access token.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, accessToken, nil, nil, nil)
}

// CurrentUser resolves the identity behind an access token.
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*domain.AccountIdentity, error) {
	var usr wireUser
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, accessToken, nil, &usr, nil); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
			return nil, ErrNoAuthenticatedUser
		}
		return nil, err
	}
	if usr.ID == "" {
		return nil, ErrNoAuthenticatedUser
	}
	identity := usr.toDomain()
	return &identity, nil
}

// RecoverPassword asks the store to dispatch a password-reset email. The
// store always answers success for unknown addresses, so no enumeration is
// possible through this call.
func (c *Client) RecoverPassword(ctx context.Context, email, redirectTo string) error {
	var query url.Values
	if redirectTo != "" {
		query = url.Values{"redirect_to": []string{redirectTo}}
	}
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/auth/v1/recover", query, "", body, nil, nil)
}
