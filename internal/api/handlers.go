/**
 * @description
 * HTTP handlers for the registration, session, profile, availability and
 * catalog endpoints. Handlers stay thin: decode, call the service layer,
 * map outcomes to status codes. All state lives behind the services.
 */
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ndarama/ishuriai-backend/internal/app"
	"github.com/ndarama/ishuriai-backend/internal/catalog"
	"github.com/ndarama/ishuriai-backend/internal/domain"
	"github.com/ndarama/ishuriai-backend/internal/session"
	"github.com/ndarama/ishuriai-backend/pkg/supabase"
)

// ProfileStoreAPI is the slice of the external store the handlers call
// directly with the caller's access token.
type ProfileStoreAPI interface {
	ProfileByUserID(ctx context.Context, accessToken, userID string) (*domain.UserProfile, error)
	UpdateProfile(ctx context.Context, accessToken, userID string, patch map[string]interface{}) (*domain.UserProfile, error)
	SubscriptionByUserID(ctx context.Context, accessToken, userID string) (*domain.Subscription, error)
}

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	registration *app.Service
	bridge       *session.Bridge
	store        ProfileStoreAPI
	limiter      *app.ProbeLimiter

	availabilityPerMinute int
	registerPerMinute     int
}

// NewHandler creates the handler set. limiter may be nil; rate limiting is
// then disabled.
func NewHandler(
	registration *app.Service,
	bridge *session.Bridge,
	store ProfileStoreAPI,
	limiter *app.ProbeLimiter,
	availabilityPerMinute int,
	registerPerMinute int,
) *Handler {
	return &Handler{
		registration:          registration,
		bridge:                bridge,
		store:                 store,
		limiter:               limiter,
		availabilityPerMinute: availabilityPerMinute,
		registerPerMinute:     registerPerMinute,
	}
}

// --- Registration ---

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if h.rateLimited(w, r, app.LimitScopeRegister, h.registerPerMinute) {
		return
	}

	var draft domain.RegistrationDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result := h.registration.Submit(r.Context(), draft)
	switch result.State {
	case app.StateEditing:
		respondWithJSON(w, http.StatusUnprocessableEntity, result)
	case app.StateFailed:
		respondWithJSON(w, failureStatus(result.Failure), result)
	case app.StateSucceeded:
		respondWithJSON(w, http.StatusCreated, result)
	default:
		respondWithError(w, http.StatusInternalServerError, "Unexpected registration state")
	}
}

func failureStatus(failure *app.SubmitFailure) int {
	if failure == nil {
		return http.StatusBadGateway
	}
	switch failure.Kind {
	case app.FailureDuplicateEmail:
		return http.StatusConflict
	case app.FailureInvalidSignup:
		return http.StatusUnprocessableEntity
	case app.FailureServerError:
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

func (h *Handler) handleProfileComplete(w http.ResponseWriter, r *http.Request) {
	accessToken, ok := AccessTokenFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	// An optional draft body supplies the profile fields; with no body the
	// fields are recovered from the sign-up metadata.
	var draft *domain.RegistrationDraft
	if r.Body != nil && r.ContentLength != 0 {
		draft = &domain.RegistrationDraft{}
		if err := json.NewDecoder(r.Body).Decode(draft); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	profile, err := h.registration.CreateProfileAfterConfirmation(r.Context(), accessToken, draft)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrNoAuthenticatedUser):
			respondWithError(w, http.StatusUnauthorized, "No authenticated user found")
		case errors.Is(err, app.ErrNoProfileData):
			respondWithError(w, http.StatusUnprocessableEntity, "No profile data available")
		default:
			log.Printf("level=error component=api msg=\"deferred profile creation failed\" err=%v", err)
			respondWithError(w, http.StatusBadGateway, "Could not create profile")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}

// --- Session ---

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	State        session.State           `json:"state"`
	Identity     *domain.AccountIdentity `json:"identity,omitempty"`
	Session      *domain.SessionToken    `json:"session,omitempty"`
	Profile      *domain.UserProfile     `json:"profile,omitempty"`
	Subscription *domain.Subscription    `json:"subscription,omitempty"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snap, err := h.bridge.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		var serr *session.SignInError
		if errors.As(err, &serr) {
			respondWithJSON(w, signInStatus(serr.Kind), map[string]string{
				"error": serr.Message,
				"kind":  string(serr.Kind),
			})
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Login failed. Please try again.")
		return
	}

	respondWithJSON(w, http.StatusOK, sessionResponse{
		State:        snap.State,
		Identity:     snap.Identity,
		Session:      snap.Session,
		Profile:      snap.Profile,
		Subscription: snap.Subscription,
	})
}

func signInStatus(kind session.FailureKind) int {
	switch kind {
	case session.FailureInvalidCredentials:
		return http.StatusUnauthorized
	case session.FailureEmailNotConfirmed:
		return http.StatusForbidden
	case session.FailureMalformedEmail:
		return http.StatusUnprocessableEntity
	case session.FailureServerError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.bridge.SignOut(r.Context()); err != nil {
		// Local state is already cleared; the remote failure is informational.
		log.Printf("level=warn component=api msg=\"remote sign-out failed\" err=%v", err)
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		respondWithError(w, http.StatusBadRequest, "Email is required")
		return
	}

	if err := h.bridge.ResetPassword(r.Context(), req.Email); err != nil {
		respondWithError(w, http.StatusBadGateway, "Unable to send reset email. Please try again later.")
		return
	}
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "reset_email_sent"})
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	accessToken, _ := AccessTokenFromContext(r.Context())
	userID, _ := UserIDFromContext(r.Context())

	profile, err := h.store.ProfileByUserID(r.Context(), accessToken, userID)
	if err != nil && !errors.Is(err, supabase.ErrNotFound) {
		log.Printf("level=warn component=api msg=\"profile fetch failed for session\" err=%v", err)
	}

	sub, err := h.store.SubscriptionByUserID(r.Context(), accessToken, userID)
	if err != nil {
		sub = nil
	}

	respondWithJSON(w, http.StatusOK, sessionResponse{
		State:        session.StateAuthenticated,
		Profile:      profile,
		Subscription: sub,
	})
}

// --- Profile ---

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	accessToken, _ := AccessTokenFromContext(r.Context())
	userID, _ := UserIDFromContext(r.Context())

	profile, err := h.store.ProfileByUserID(r.Context(), accessToken, userID)
	if err != nil {
		if errors.Is(err, supabase.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Profile not found")
			return
		}
		log.Printf("level=error component=api msg=\"profile fetch failed\" err=%v", err)
		respondWithError(w, http.StatusBadGateway, "Could not fetch profile")
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	accessToken, _ := AccessTokenFromContext(r.Context())
	userID, _ := UserIDFromContext(r.Context())

	var patch map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	// Identity and bookkeeping columns are immutable.
	delete(patch, "id")
	delete(patch, "user_id")
	delete(patch, "created_at")
	if len(patch) == 0 {
		respondWithError(w, http.StatusBadRequest, "No updatable fields provided")
		return
	}

	profile, err := h.store.UpdateProfile(r.Context(), accessToken, userID, patch)
	if err != nil {
		if errors.Is(err, supabase.ErrConflict) {
			respondWithError(w, http.StatusConflict, "Username or phone number already in use")
			return
		}
		if errors.Is(err, supabase.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Profile not found")
			return
		}
		log.Printf("level=error component=api msg=\"profile update failed\" err=%v", err)
		respondWithError(w, http.StatusBadGateway, "Could not update profile")
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleSubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	accessToken, _ := AccessTokenFromContext(r.Context())
	userID, _ := UserIDFromContext(r.Context())

	sub, err := h.store.SubscriptionByUserID(r.Context(), accessToken, userID)
	if err != nil {
		log.Printf("level=error component=api msg=\"subscription fetch failed\" err=%v", err)
		respondWithError(w, http.StatusBadGateway, "Could not fetch subscription")
		return
	}
	if sub == nil {
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"plan":   domain.PlanFree,
			"active": false,
		})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"plan":                 sub.Plan,
		"status":               sub.Status,
		"active":               sub.Active(time.Now()),
		"current_period_end":   sub.CurrentPeriodEnd,
		"current_period_start": sub.CurrentPeriodStart,
		"auto_renew":           sub.AutoRenew,
	})
}

// --- Availability ---

func (h *Handler) handleUsernameAvailability(w http.ResponseWriter, r *http.Request) {
	if h.rateLimited(w, r, app.LimitScopeAvailability, h.availabilityPerMinute) {
		return
	}

	username := strings.TrimSpace(r.URL.Query().Get("username"))
	result := h.registration.CheckUsername(r.Context(), username)
	respondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) handlePhoneAvailability(w http.ResponseWriter, r *http.Request) {
	if h.rateLimited(w, r, app.LimitScopeAvailability, h.availabilityPerMinute) {
		return
	}

	carrier := domain.Carrier(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("carrier"))))
	if !carrier.Valid() {
		respondWithError(w, http.StatusBadRequest, "carrier must be mtn or airtel")
		return
	}
	number := strings.TrimSpace(r.URL.Query().Get("number"))
	result := h.registration.CheckPhone(r.Context(), number, carrier)
	respondWithJSON(w, http.StatusOK, result)
}

// --- Catalog ---

func (h *Handler) handleCatalogApps(w http.ResponseWriter, r *http.Request) {
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		respondWithJSON(w, http.StatusOK, catalog.AppsByCategory(domain.PlanTier(category)))
		return
	}
	respondWithJSON(w, http.StatusOK, catalog.Apps())
}

func (h *Handler) handleCatalogApp(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	entry, ok := catalog.AppBySlug(slug)
	if !ok {
		respondWithError(w, http.StatusNotFound, "App not found")
		return
	}
	respondWithJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleCatalogSchools(w http.ResponseWriter, r *http.Request) {
	if district := strings.TrimSpace(r.URL.Query().Get("district")); district != "" {
		respondWithJSON(w, http.StatusOK, catalog.SchoolsByDistrict(district))
		return
	}
	respondWithJSON(w, http.StatusOK, catalog.SchoolsByType(strings.TrimSpace(r.URL.Query().Get("type"))))
}

func (h *Handler) handleCatalogLevels(w http.ResponseWriter, r *http.Request) {
	userType := domain.UserType(strings.TrimSpace(r.URL.Query().Get("user_type")))
	if !userType.Valid() {
		respondWithError(w, http.StatusBadRequest, "user_type must be Student, Teacher or Parent")
		return
	}
	respondWithJSON(w, http.StatusOK, catalog.LevelOptions(userType))
}

// --- Helpers ---

// rateLimited consumes one hit for the caller's IP within scope and writes a
// 429 when the window is exhausted. A nil limiter disables limiting, and a
// limiter error fails open.
func (h *Handler) rateLimited(w http.ResponseWriter, r *http.Request, scope string, perMinute int) bool {
	if h.limiter == nil || perMinute <= 0 {
		return false
	}

	decision, err := h.limiter.Allow(r.Context(), scope, getClientIP(r), perMinute)
	if err != nil {
		log.Printf("level=warn component=api msg=\"rate limiter unavailable; failing open\" scope=%s err=%v", scope, err)
		return false
	}
	if !decision.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfterSeconds()))
		respondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
		return true
	}
	return false
}

// getClientIP extracts the client IP from the request, preferring proxy
// headers over the socket address.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one.
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
