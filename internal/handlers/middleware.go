package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"guardianlink/internal/models"
	"guardianlink/internal/security"
	"guardianlink/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	SessionContextKey ContextKey = "session"
	ProfileContextKey ContextKey = "profile"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	sessions *service.SessionService
	profiles service.ProfileReader
	csrf     *security.CSRFGenerator
	limiter  *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(sessions *service.SessionService, profiles service.ProfileReader,
	csrf *security.CSRFGenerator, limiter *security.RateLimiter) *Middleware {
	return &Middleware{
		sessions: sessions,
		profiles: profiles,
		csrf:     csrf,
		limiter:  limiter,
	}
}

// RequireSession rejects requests without a valid session cookie and
// puts the session and profile on the request context.
func (m *Middleware) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("session_id")
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Authentication required", "", nil)
			return
		}

		session, err := m.sessions.Validate(cookie.Value)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "Failed to validate session", "Session lookup failed", err)
			return
		}
		if session == nil {
			http.SetCookie(w, security.CreateDeleteCookie(r, "session_id"))
			respondWithError(w, http.StatusUnauthorized, "Session expired", "", nil)
			return
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, session)

		profile, err := m.profiles.GetProfile(session.AccountID)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "Failed to load profile", "Profile lookup failed", err)
			return
		}
		if profile != nil {
			ctx = context.WithValue(ctx, ProfileContextKey, profile)
		}

		next(w, r.WithContext(ctx))
	}
}

// CSRFProtect validates the X-CSRF-Token header on mutating requests
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := GetSessionFromContext(r.Context())
		if session == nil {
			respondWithError(w, http.StatusUnauthorized, "Authentication required", "", nil)
			return
		}
		if !m.csrf.ValidateToken(session.ID, r.Header.Get("X-CSRF-Token")) {
			respondWithError(w, http.StatusForbidden, "Invalid CSRF token", "", nil)
			return
		}
		next(w, r)
	}
}

// RateLimit rejects clients that exceed the per-IP budget
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := security.GetClientIP(r)
		if !m.limiter.Allow(ip) {
			respondWithError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.", "", nil)
			return
		}
		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// GetSessionFromContext retrieves the session from the request context
func GetSessionFromContext(ctx context.Context) *models.Session {
	session, ok := ctx.Value(SessionContextKey).(*models.Session)
	if !ok {
		return nil
	}
	return session
}

// GetProfileFromContext retrieves the profile from the request context
func GetProfileFromContext(ctx context.Context) *models.Profile {
	profile, ok := ctx.Value(ProfileContextKey).(*models.Profile)
	if !ok {
		return nil
	}
	return profile
}
