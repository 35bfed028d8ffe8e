package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/ndarama/ishuriai-backend/internal/app"
	"github.com/ndarama/ishuriai-backend/internal/domain"
	"github.com/ndarama/ishuriai-backend/internal/session"
	"github.com/ndarama/ishuriai-backend/pkg/supabase"
)

const testJWTSecret = "test-secret"

type fakeIdentityStore struct {
	signUpResult *domain.SignUpResult
	signUpErr    error
	currentUser  *domain.AccountIdentity
	currentErr   error
}

func (f *fakeIdentityStore) SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*domain.SignUpResult, error) {
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return f.signUpResult, nil
}

func (f *fakeIdentityStore) CurrentUser(ctx context.Context, accessToken string) (*domain.AccountIdentity, error) {
	return f.currentUser, f.currentErr
}

type fakeProfileStore struct {
	insertResult  *domain.UserProfile
	insertErr     error
	profile       *domain.UserProfile
	profileErr    error
	updateResult  *domain.UserProfile
	updateErr     error
	updatePatch   map[string]interface{}
	sub           *domain.Subscription
	subErr        error
	usernameCount int
	phoneCount    int
}

func (f *fakeProfileStore) InsertProfile(ctx context.Context, accessToken string, p domain.NewProfile) (*domain.UserProfile, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	return f.insertResult, nil
}

func (f *fakeProfileStore) ProfileByUserID(ctx context.Context, accessToken, userID string) (*domain.UserProfile, error) {
	return f.profile, f.profileErr
}

func (f *fakeProfileStore) UpdateProfile(ctx context.Context, accessToken, userID string, patch map[string]interface{}) (*domain.UserProfile, error) {
	f.updatePatch = patch
	return f.updateResult, f.updateErr
}

func (f *fakeProfileStore) SubscriptionByUserID(ctx context.Context, accessToken, userID string) (*domain.Subscription, error) {
	return f.sub, f.subErr
}

func (f *fakeProfileStore) CountByUsername(ctx context.Context, username string) (int, error) {
	return f.usernameCount, nil
}

func (f *fakeProfileStore) CountByPhone(ctx context.Context, carrier domain.Carrier, number string) (int, error) {
	return f.phoneCount, nil
}

type fakeAuthStore struct {
	signInResult *domain.SignUpResult
	signInErr    error
}

func (f *fakeAuthStore) SignInWithPassword(ctx context.Context, email, password string) (*domain.SignUpResult, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return f.signInResult, nil
}

func (f *fakeAuthStore) SignOut(ctx context.Context, accessToken string) error { return nil }

func (f *fakeAuthStore) CurrentUser(ctx context.Context, accessToken string) (*domain.AccountIdentity, error) {
	return nil, supabase.ErrNotFound
}

func (f *fakeAuthStore) RecoverPassword(ctx context.Context, email, redirectTo string) error {
	return nil
}

type fakeProfileReader struct {
	profile *domain.UserProfile
	sub     *domain.Subscription
}

func (f *fakeProfileReader) ProfileWithSubscription(ctx context.Context, accessToken, userID string) (*domain.UserProfile, *domain.Subscription, error) {
	return f.profile, f.sub, nil
}

func (f *fakeProfileReader) ProfileByUserID(ctx context.Context, accessToken, userID string) (*domain.UserProfile, error) {
	return f.profile, nil
}

func (f *fakeProfileReader) SubscriptionByUserID(ctx context.Context, accessToken, userID string) (*domain.Subscription, error) {
	return f.sub, nil
}

type testDeps struct {
	identity *fakeIdentityStore
	profiles *fakeProfileStore
	auth     *fakeAuthStore
}

func newTestServer(t *testing.T, deps testDeps) *httptest.Server {
	t.Helper()
	if deps.identity == nil {
		deps.identity = &fakeIdentityStore{}
	}
	if deps.profiles == nil {
		deps.profiles = &fakeProfileStore{}
	}
	if deps.auth == nil {
		deps.auth = &fakeAuthStore{}
	}

	svc := app.NewService(deps.identity, deps.profiles, nil, "")
	bridge := session.NewBridge(deps.auth, &fakeProfileReader{profile: deps.profiles.profile, sub: deps.profiles.sub}, "")
	h := NewHandler(svc, bridge, deps.profiles, nil, 60, 10)

	srv := httptest.NewServer(NewRouter(h, testJWTSecret))
	t.Cleanup(srv.Close)
	return srv
}

func signedToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func validRegistrationBody() map[string]interface{} {
	return map[string]interface{}{
		"email":            "eric@example.com",
		"password":         "secret1",
		"confirm_password": "secret1",
		"full_name":        "Eric Ndarama",
		"username":         "eric_n",
		"date_of_birth":    "2010-05-01",
		"school":           "GS Huye",
		"level":            "S4",
		"user_type":        "Student",
		"mtn_phone":        "0781234567",
		"accept_terms":     true,
	}
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func TestHandleRegisterSuccess(t *testing.T) {
	confirmed := time.Now()
	identity := &fakeIdentityStore{signUpResult: &domain.SignUpResult{
		Identity: domain.AccountIdentity{ID: "user-1", Email: "eric@example.com", EmailConfirmedAt: &confirmed},
		Session:  &domain.SessionToken{AccessToken: "tok"},
	}}
	profiles := &fakeProfileStore{insertResult: &domain.UserProfile{ID: 1, UserID: "user-1", Username: "eric_n"}}
	srv := newTestServer(t, testDeps{identity: identity, profiles: profiles})

	resp := postJSON(t, srv.URL+"/auth/register", validRegistrationBody())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var result app.SubmitResult
	decodeBody(t, resp, &result)
	if result.State != app.StateSucceeded {
		t.Errorf("state = %s, want %s", result.State, app.StateSucceeded)
	}
	if !result.ProfileCreated {
		t.Error("expected profile_created true")
	}
	if result.NextScreen != app.NextScreenApps {
		t.Errorf("next = %q, want %q", result.NextScreen, app.NextScreenApps)
	}
}

func TestHandleRegisterValidationFailure(t *testing.T) {
	srv := newTestServer(t, testDeps{})

	body := validRegistrationBody()
	body["email"] = "not-an-email"
	body["accept_terms"] = false

	resp := postJSON(t, srv.URL+"/auth/register", body)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}

	var result app.SubmitResult
	decodeBody(t, resp, &result)
	if result.State != app.StateEditing {
		t.Errorf("state = %s, want %s", result.State, app.StateEditing)
	}
	if !result.FieldErrors.Has("email") || !result.FieldErrors.Has("acceptTerms") {
		t.Errorf("expected email and acceptTerms field errors, got %v", result.FieldErrors)
	}
}

func TestHandleRegisterDuplicateEmail(t *testing.T) {
	identity := &fakeIdentityStore{signUpErr: &supabase.APIError{
		StatusCode: 400,
		Message:    "User already registered",
	}}
	srv := newTestServer(t, testDeps{identity: identity})

	resp := postJSON(t, srv.URL+"/auth/register", validRegistrationBody())
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}

	var result app.SubmitResult
	decodeBody(t, resp, &result)
	if result.Failure == nil || result.Failure.Kind != app.FailureDuplicateEmail {
		t.Errorf("failure = %+v, want duplicate_email", result.Failure)
	}
}

func TestHandleLoginInvalidCredentials(t *testing.T) {
	auth := &fakeAuthStore{signInErr: &supabase.APIError{
		StatusCode: 400,
		Message:    "Invalid login credentials",
	}}
	srv := newTestServer(t, testDeps{auth: auth})

	resp := postJSON(t, srv.URL+"/auth/login", map[string]string{
		"email":    "eric@example.com",
		"password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	var body map[string]string
	decodeBody(t, resp, &body)
	if body["kind"] != string(session.FailureInvalidCredentials) {
		t.Errorf("kind = %q, want %q", body["kind"], session.FailureInvalidCredentials)
	}
}

func TestHandleLoginSuccess(t *testing.T) {
	confirmed := time.Now()
	auth := &fakeAuthStore{signInResult: &domain.SignUpResult{
		Identity: domain.AccountIdentity{ID: "user-1", Email: "eric@example.com", EmailConfirmedAt: &confirmed},
		Session:  &domain.SessionToken{AccessToken: "tok", TokenType: "bearer"},
	}}
	profiles := &fakeProfileStore{profile: &domain.UserProfile{UserID: "user-1", Username: "eric_n"}}
	srv := newTestServer(t, testDeps{auth: auth, profiles: profiles})

	resp := postJSON(t, srv.URL+"/auth/login", map[string]string{
		"email":    "eric@example.com",
		"password": "secret1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body sessionResponse
	decodeBody(t, resp, &body)
	if body.State != session.StateAuthenticated {
		t.Errorf("state = %s, want %s", body.State, session.StateAuthenticated)
	}
	if body.Session == nil || body.Session.AccessToken != "tok" {
		t.Errorf("session token missing from login response: %+v", body.Session)
	}
}

func TestHandleUsernameAvailability(t *testing.T) {
	tests := []struct {
		name          string
		username      string
		usernameCount int
		wantChecked   bool
		wantAvailable bool
	}{
		{"free username", "eric_n", 0, true, true},
		{"taken username", "eric_n", 1, true, false},
		{"malformed username", "x!", 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles := &fakeProfileStore{usernameCount: tt.usernameCount}
			srv := newTestServer(t, testDeps{profiles: profiles})

			resp, err := http.Get(fmt.Sprintf("%s/availability/username?username=%s", srv.URL, tt.username))
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
			}

			var result app.AvailabilityResult
			decodeBody(t, resp, &result)
			if result.Checked != tt.wantChecked || result.Available != tt.wantAvailable {
				t.Errorf("result = %+v, want checked=%v available=%v", result, tt.wantChecked, tt.wantAvailable)
			}
		})
	}
}

func TestHandleUsernameAvailabilityThrottled(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	limiter := app.NewProbeLimiter(client, "test:rate_limit")

	profiles := &fakeProfileStore{}
	svc := app.NewService(&fakeIdentityStore{}, profiles, nil, "")
	bridge := session.NewBridge(&fakeAuthStore{}, &fakeProfileReader{}, "")
	h := NewHandler(svc, bridge, profiles, limiter, 2, 10)
	srv := httptest.NewServer(NewRouter(h, testJWTSecret))
	t.Cleanup(srv.Close)

	var resp *http.Response
	var err error
	for i := 0; i < 3; i++ {
		resp, err = http.Get(srv.URL + "/availability/username?username=eric_n")
		if err != nil {
			t.Fatalf("request %d failed: %v", i+1, err)
		}
		resp.Body.Close()
	}

	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d after exceeding 2/minute", resp.StatusCode, http.StatusTooManyRequests)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("throttled response must carry a Retry-After header")
	}
}

func TestHandlePhoneAvailabilityRejectsUnknownCarrier(t *testing.T) {
	srv := newTestServer(t, testDeps{})

	resp, err := http.Get(srv.URL + "/availability/phone?number=0781234567&carrier=tigo")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestHandleCatalogApps(t *testing.T) {
	srv := newTestServer(t, testDeps{})

	resp, err := http.Get(srv.URL + "/catalog/apps")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var apps []map[string]interface{}
	decodeBody(t, resp, &apps)
	if len(apps) != 10 {
		t.Errorf("returned %d apps, want 10", len(apps))
	}
}

func TestHandleCatalogLevelsRejectsUnknownUserType(t *testing.T) {
	srv := newTestServer(t, testDeps{})

	resp, err := http.Get(srv.URL + "/catalog/levels?user_type=Alien")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t, testDeps{})

	resp, err := http.Get(srv.URL + "/profile")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestHandleGetProfile(t *testing.T) {
	profiles := &fakeProfileStore{profile: &domain.UserProfile{ID: 7, UserID: "user-1", Username: "eric_n"}}
	srv := newTestServer(t, testDeps{profiles: profiles})

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/profile", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "user-1"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var profile domain.UserProfile
	decodeBody(t, resp, &profile)
	if profile.Username != "eric_n" {
		t.Errorf("username = %q, want eric_n", profile.Username)
	}
}

func TestHandleUpdateProfileStripsImmutableFields(t *testing.T) {
	profiles := &fakeProfileStore{updateResult: &domain.UserProfile{ID: 7, UserID: "user-1", School: "GS Musanze"}}
	srv := newTestServer(t, testDeps{profiles: profiles})

	raw, _ := json.Marshal(map[string]interface{}{
		"id":         99,
		"user_id":    "someone-else",
		"created_at": "2020-01-01",
		"school":     "GS Musanze",
	})
	req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/profile", bytes.NewReader(raw))
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "user-1"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	for _, key := range []string{"id", "user_id", "created_at"} {
		if _, present := profiles.updatePatch[key]; present {
			t.Errorf("immutable field %q leaked into patch", key)
		}
	}
	if _, present := profiles.updatePatch["school"]; !present {
		t.Error("updatable field school missing from patch")
	}
}

func TestHandleSubscriptionStatusDefaultsToFree(t *testing.T) {
	srv := newTestServer(t, testDeps{})

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/subscription/status", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "user-1"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body map[string]interface{}
	decodeBody(t, resp, &body)
	if body["plan"] != "free" {
		t.Errorf("plan = %v, want free", body["plan"])
	}
	if body["active"] != false {
		t.Errorf("active = %v, want false", body["active"])
	}
}
