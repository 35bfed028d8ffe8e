/**
 * @description
 * This file sets up the HTTP router using the go-chi/chi router. It defines
 * the API routes, applies middleware for logging, CORS, and authentication,
 * and maps the routes to their corresponding handler functions.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers all routes.
func NewRouter(h *Handler, jwtSecret string) *chi.Mux {
	r := chi.NewRouter()

	// Setup middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Account service is healthy"))
	})

	// Public routes
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/reset-password", h.handleResetPassword)

	r.Get("/availability/username", h.handleUsernameAvailability)
	r.Get("/availability/phone", h.handlePhoneAvailability)

	r.Get("/catalog/apps", h.handleCatalogApps)
	r.Get("/catalog/apps/{slug}", h.handleCatalogApp)
	r.Get("/catalog/schools", h.handleCatalogSchools)
	r.Get("/catalog/levels", h.handleCatalogLevels)

	// Protected routes that require a store-issued access token
	r.Group(func(r chi.Router) {
		r.Use(BearerAuthMiddleware(jwtSecret))

		r.Post("/auth/logout", h.handleLogout)
		r.Get("/auth/session", h.handleSession)
		r.Post("/profile/complete", h.handleProfileComplete)
		r.Get("/profile", h.handleGetProfile)
		r.Patch("/profile", h.handleUpdateProfile)
		r.Get("/subscription/status", h.handleSubscriptionStatus)
	})

	return r
}
