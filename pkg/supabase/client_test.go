package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ndarama/ishuriai-backend/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "anon-key", 0)
}

func TestSignUpAutoConfirmedSessionEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/signup" {
			t.Errorf("path = %s, want /auth/v1/signup", r.URL.Path)
		}
		if got := r.Header.Get("apikey"); got != "anon-key" {
			t.Errorf("apikey header = %q, want anon-key", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "tok-123",
			"token_type": "bearer",
			"expires_in": 3600,
			"user": {
				"id": "user-1",
				"email": "eric@example.com",
				"email_confirmed_at": "2025-11-03T09:00:00Z"
			}
		}`))
	})

	res, err := c.SignUp(context.Background(), "eric@example.com", "secret1", nil)
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if res.Session == nil || res.Session.AccessToken != "tok-123" {
		t.Errorf("session = %+v, want access token tok-123", res.Session)
	}
	if res.Identity.ID != "user-1" || !res.Identity.EmailConfirmed() {
		t.Errorf("identity = %+v, want confirmed user-1", res.Identity)
	}
}

func TestSignUpConfirmationPendingBareUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "user-2",
			"email": "aline@example.com",
			"confirmation_sent_at": "2025-11-03T09:00:00Z",
			"user_metadata": {"username": "aline_k"}
		}`))
	})

	res, err := c.SignUp(context.Background(), "aline@example.com", "secret1", map[string]interface{}{"username": "aline_k"})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if res.Session != nil {
		t.Error("pending confirmation must not yield a session")
	}
	if !res.Identity.ConfirmationPending() {
		t.Errorf("identity = %+v, want confirmation pending", res.Identity)
	}
	if res.Identity.Metadata["username"] != "aline_k" {
		t.Errorf("metadata not carried: %v", res.Identity.Metadata)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"message match", 400, `{"code": 400, "msg": "User already registered"}`},
		{"error code match", 422, `{"error_code": "user_already_exists", "msg": "User already exists"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.SignUp(context.Background(), "eric@example.com", "secret1", nil)
			if err == nil {
				t.Fatal("SignUp() expected error")
			}
			if !IsUserExists(err) {
				t.Errorf("IsUserExists(%v) = false, want true", err)
			}
		})
	}
}

func TestSignInWithPassword(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" {
			t.Errorf("path = %s, want /auth/v1/token", r.URL.Path)
		}
		if got := r.URL.Query().Get("grant_type"); got != "password" {
			t.Errorf("grant_type = %q, want password", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "tok-456",
			"token_type": "bearer",
			"refresh_token": "ref-456",
			"expires_in": 3600,
			"user": {"id": "user-1", "email": "eric@example.com"}
		}`))
	})

	res, err := c.SignInWithPassword(context.Background(), "eric@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignInWithPassword() error = %v", err)
	}
	if res.Session.RefreshToken != "ref-456" {
		t.Errorf("refresh token = %q, want ref-456", res.Session.RefreshToken)
	}
}

func TestSignInInvalidCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "invalid_grant", "error_description": "Invalid login credentials"}`))
	})

	_, err := c.SignInWithPassword(context.Background(), "eric@example.com", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "Invalid login credentials" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestCurrentUserExpiredToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code": 401, "msg": "JWT expired"}`))
	})

	_, err := c.CurrentUser(context.Background(), "stale-token")
	if !errors.Is(err, ErrNoAuthenticatedUser) {
		t.Fatalf("err = %v, want ErrNoAuthenticatedUser", err)
	}
}

func TestCurrentUserSendsBearerToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer user-token" {
			t.Errorf("Authorization = %q, want the caller's token", got)
		}
		w.Write([]byte(`{"id": "user-1", "email": "eric@example.com"}`))
	})

	identity, err := c.CurrentUser(context.Background(), "user-token")
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if identity.ID != "user-1" {
		t.Errorf("identity = %+v", identity)
	}
}

func TestProfileByUserID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/user_profile" {
			t.Errorf("path = %s, want /rest/v1/user_profile", r.URL.Path)
		}
		if got := r.URL.Query().Get("user_id"); got != "eq.user-1" {
			t.Errorf("user_id filter = %q, want eq.user-1", got)
		}
		w.Write([]byte(`[{"id": 7, "user_id": "user-1", "username": "eric_n", "mtn_phone": "0781234567"}]`))
	})

	profile, err := c.ProfileByUserID(context.Background(), "tok", "user-1")
	if err != nil {
		t.Fatalf("ProfileByUserID() error = %v", err)
	}
	if profile.ID != 7 || profile.Username != "eric_n" {
		t.Errorf("profile = %+v", profile)
	}
	if profile.MTNPhone == nil || *profile.MTNPhone != "0781234567" {
		t.Errorf("mtn phone = %v", profile.MTNPhone)
	}
}

func TestProfileByUserIDNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := c.ProfileByUserID(context.Background(), "tok", "user-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestInsertProfileConflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"code": "23505", "message": "duplicate key value violates unique constraint \"user_profile_username_key\""}`))
	})

	_, err := c.InsertProfile(context.Background(), "tok", domain.NewProfile{UserID: "user-1", Username: "eric_n"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestInsertProfileReturnsRepresentation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Prefer"); got != "return=representation" {
			t.Errorf("Prefer = %q, want return=representation", got)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"id": 8, "user_id": "user-1", "username": "eric_n"}]`))
	})

	profile, err := c.InsertProfile(context.Background(), "tok", domain.NewProfile{UserID: "user-1", Username: "eric_n"})
	if err != nil {
		t.Fatalf("InsertProfile() error = %v", err)
	}
	if profile.ID != 8 {
		t.Errorf("profile = %+v", profile)
	}
}

func TestProfileWithSubscription(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/user_subscription_details" {
			t.Errorf("path = %s, want the joined view", r.URL.Path)
		}
		w.Write([]byte(`[{
			"id": 7, "user_id": "user-1", "username": "eric_n",
			"plan": "standard", "subscription_status": "active",
			"current_period_end": "2026-12-01T00:00:00Z", "auto_renew": true
		}]`))
	})

	profile, sub, err := c.ProfileWithSubscription(context.Background(), "tok", "user-1")
	if err != nil {
		t.Fatalf("ProfileWithSubscription() error = %v", err)
	}
	if sub == nil || sub.Plan != domain.PlanStandard || sub.Status != "active" {
		t.Fatalf("sub = %+v", sub)
	}
	if profile.PlanTier != domain.PlanStandard {
		t.Errorf("profile tier = %s, want standard", profile.PlanTier)
	}
}

func TestSubscriptionByUserIDFreeTier(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Row exists but the subscription columns are null.
		w.Write([]byte(`[{"id": 7, "user_id": "user-1", "plan": null, "subscription_status": null}]`))
	})

	sub, err := c.SubscriptionByUserID(context.Background(), "tok", "user-1")
	if err != nil {
		t.Fatalf("SubscriptionByUserID() error = %v", err)
	}
	if sub != nil {
		t.Errorf("sub = %+v, want nil for free tier", sub)
	}
}

func TestCountByUsername(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"no match", `[]`, 0},
		{"one match", `[{"username": "eric_n"}]`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get("username"); got != "eq.eric_n" {
					t.Errorf("username filter = %q, want eq.eric_n", got)
				}
				w.Write([]byte(tt.body))
			})

			got, err := c.CountByUsername(context.Background(), "eric_n")
			if err != nil {
				t.Fatalf("CountByUsername() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("count = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCountByPhoneUsesCarrierColumn(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("airtel_phone"); got != "eq.0731234567" {
			t.Errorf("airtel_phone filter = %q, want eq.0731234567", got)
		}
		w.Write([]byte(`[{"airtel_phone": "0731234567"}]`))
	})

	got, err := c.CountByPhone(context.Background(), domain.CarrierAirtel, "0731234567")
	if err != nil {
		t.Fatalf("CountByPhone() error = %v", err)
	}
	if got != 1 {
		t.Errorf("count = %d, want 1", got)
	}
}
