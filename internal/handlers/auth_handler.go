package handlers

import (
	"errors"
	"net/http"

	"golang.org/x/oauth2"

	"guardianlink/internal/authstate"
	"guardianlink/internal/identity"
	"guardianlink/internal/models"
	"guardianlink/internal/security"
	"guardianlink/internal/service"
	"guardianlink/internal/validation"
)

// AuthHandler handles sign-in, sign-out and session inspection
type AuthHandler struct {
	sessions             *service.SessionService
	consents             *service.ConsentService
	cache                *authstate.Cache
	csrf                 *security.CSRFGenerator
	googleOAuth          *oauth2.Config
	oauthRedirectBaseURL string
}

// NewAuthHandler creates a new auth handler. googleOAuth may be nil when
// Google sign-in is not configured.
func NewAuthHandler(sessions *service.SessionService, consents *service.ConsentService,
	cache *authstate.Cache, csrf *security.CSRFGenerator,
	googleOAuth *oauth2.Config, oauthRedirectBaseURL string) *AuthHandler {
	return &AuthHandler{
		sessions:             sessions,
		consents:             consents,
		cache:                cache,
		csrf:                 csrf,
		googleOAuth:          googleOAuth,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	session, account, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondLoginError(w, err)
		return
	}

	h.respondSignedIn(w, r, session, account)
}

type otpRequest struct {
	Email string `json:"email"`
}

// RequestOTP handles POST /api/auth/otp
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	redirectTo := h.oauthRedirectBaseURL + "/api/auth/callback"
	if err := h.sessions.RequestOTP(r.Context(), req.Email, redirectTo); err != nil {
		h.respondLoginError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{Success: true, Message: "Check your email for a sign-in link"})
}

// Callback handles GET /api/auth/callback with a provider code
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")

	session, account, err := h.sessions.HandleCallback(r.Context(), code)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Sign-in link is invalid or expired", "Code exchange failed", err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, "session_id", session.ID, session.ExpiresAt))

	route, err := h.consents.PostLoginRoute(account.ID, account.Metadata.Role)
	if err != nil {
		route = service.RouteConsent
	}
	http.Redirect(w, r, route, http.StatusSeeOther)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		respondWithError(w, http.StatusUnauthorized, "Authentication required", "", nil)
		return
	}

	if err := h.sessions.Logout(r.Context(), session.ID); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to sign out", "Logout failed", err)
		return
	}

	http.SetCookie(w, security.CreateDeleteCookie(r, "session_id"))
	respondJSON(w, http.StatusOK, envelope{Success: true, Message: "Signed out"})
}

// SessionInfo handles GET /api/auth/session. It serves the cached
// snapshot; a live check only happens when the cache entry has aged out.
func (h *AuthHandler) SessionInfo(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		respondWithError(w, http.StatusUnauthorized, "Authentication required", "", nil)
		return
	}

	snap := h.cache.Check(r.Context(), false)

	token, err := h.csrf.GenerateToken(session.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to issue CSRF token", "", err)
		return
	}

	data := map[string]interface{}{
		"authenticated": snap.Authenticated,
		"csrf_token":    token,
	}
	if snap.Account != nil {
		data["account"] = snap.Account
	}
	if snap.Err != "" {
		data["stale"] = true
		data["error"] = snap.Err
	}
	if profile := GetProfileFromContext(r.Context()); profile != nil {
		data["role"] = profile.Role
	}

	respondWithData(w, http.StatusOK, data)
}

// respondSignedIn sets the session cookie and returns the landing route
func (h *AuthHandler) respondSignedIn(w http.ResponseWriter, r *http.Request, session *models.Session, account *identity.Account) {
	http.SetCookie(w, security.CreateSessionCookie(r, "session_id", session.ID, session.ExpiresAt))

	route, err := h.consents.PostLoginRoute(account.ID, account.Metadata.Role)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to resolve landing page", "Consent lookup failed", err)
		return
	}

	token, err := h.csrf.GenerateToken(session.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to issue CSRF token", "", err)
		return
	}

	respondWithData(w, http.StatusOK, map[string]interface{}{
		"account_id": account.ID,
		"route":      route,
		"csrf_token": token,
	})
}

func (h *AuthHandler) respondLoginError(w http.ResponseWriter, err error) {
	var vErr validation.ValidationError
	switch {
	case errors.As(err, &vErr):
		respondWithError(w, http.StatusBadRequest, vErr.Message, "", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, "Invalid email or password", "", nil)
	case errors.Is(err, identity.ErrRateLimited):
		respondWithError(w, http.StatusTooManyRequests, identity.Classify(err), "", nil)
	case identity.IsOffline(err):
		h.cache.SetOffline()
		respondJSON(w, http.StatusServiceUnavailable, envelope{
			Success: false,
			Message: "You appear to be offline. Please try again once connected.",
			Offline: true,
		})
	default:
		respondWithError(w, http.StatusInternalServerError, "Sign-in failed", "Sign-in failed", err)
	}
}
