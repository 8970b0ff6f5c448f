package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"guardianlink/internal/audit"
	"guardianlink/internal/authstate"
	"guardianlink/internal/identity"
	"guardianlink/internal/localstore"
	"guardianlink/internal/models"
	"guardianlink/internal/security"
	"guardianlink/internal/validation"
)

// ErrInvalidCredentials is returned on failed password or passcode checks
var ErrInvalidCredentials = errors.New("invalid credentials")

// DraftNamespacePrefix scopes onboarding drafts per account in the
// local store so logout can clear exactly one account's data.
const DraftNamespacePrefix = "drafts_"

// SessionStore is the session persistence surface
type SessionStore interface {
	CreateSession(s *models.Session) error
	GetSession(id string) (*models.Session, error)
	UpdateRefreshToken(id, refreshToken string) error
	DeleteSession(id string) error
	DeleteExpiredSessions() (int64, error)
}

// ProfileReader is the read-only profile surface the session service needs
type ProfileReader interface {
	GetProfile(accountID string) (*models.Profile, error)
	GetChildByNickname(parentID, nickname string) (*models.Profile, error)
}

// SessionService handles sign-in, sign-out and session validation. It
// tracks the device's current session so the auth-state cache can
// revalidate without being handed tokens.
type SessionService struct {
	mu       sync.Mutex
	current  string
	provider identity.Sessions
	sessions SessionStore
	profiles ProfileReader
	cache    *authstate.Cache
	local    *localstore.Store
	duration time.Duration
	audit    audit.Logger
}

// NewSessionService creates a new session service
func NewSessionService(provider identity.Sessions, sessions SessionStore, profiles ProfileReader,
	cache *authstate.Cache, local *localstore.Store, duration time.Duration,
	auditLog audit.Logger) *SessionService {
	return &SessionService{
		provider: provider,
		sessions: sessions,
		profiles: profiles,
		cache:    cache,
		local:    local,
		duration: duration,
		audit:    auditLog,
	}
}

// Login signs a guardian in with email and password
func (s *SessionService) Login(ctx context.Context, email, password string) (*models.Session, *identity.Account, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, nil, err
	}

	provSession, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		if errors.Is(err, identity.ErrUnauthorized) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	return s.establish(provSession)
}

// RequestOTP asks the provider to email a one-time sign-in link
func (s *SessionService) RequestOTP(ctx context.Context, email, redirectTo string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}
	return s.provider.SignInWithOTP(ctx, email, redirectTo)
}

// LoginWithIdToken signs a guardian in with an OIDC id token obtained
// from an external OAuth flow.
func (s *SessionService) LoginWithIdToken(ctx context.Context, providerName, idToken string) (*models.Session, *identity.Account, error) {
	provSession, err := s.provider.SignInWithIdToken(ctx, providerName, idToken)
	if err != nil {
		return nil, nil, err
	}
	return s.establish(provSession)
}

// HandleCallback exchanges an OAuth or magic-link code for a session
func (s *SessionService) HandleCallback(ctx context.Context, code string) (*models.Session, *identity.Account, error) {
	if code == "" {
		return nil, nil, ErrInvalidCredentials
	}
	provSession, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	return s.establish(provSession)
}

// establish persists a provider session as a local session row and
// makes it the device's current session.
func (s *SessionService) establish(provSession *identity.Session) (*models.Session, *identity.Account, error) {
	if provSession.Account == nil {
		return nil, nil, ErrInvalidCredentials
	}

	session := &models.Session{
		ID:           security.GenerateSessionID(),
		AccountID:    provSession.Account.ID,
		RefreshToken: provSession.RefreshToken,
		ExpiresAt:    time.Now().Add(s.duration),
	}
	if err := s.sessions.CreateSession(session); err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	s.current = session.ID
	s.mu.Unlock()

	if s.cache != nil {
		s.cache.SetAccount(provSession.Account)
	}

	s.audit.Record("signed_in", map[string]interface{}{
		"account_id": provSession.Account.ID,
	})

	return session, provSession.Account, nil
}

// Validate returns the session for an id, or nil when it is missing or
// expired. Expired rows are deleted on sight.
func (s *SessionService) Validate(sessionID string) (*models.Session, error) {
	if sessionID == "" {
		return nil, nil
	}
	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	if session.IsExpired() {
		if err := s.sessions.DeleteSession(session.ID); err != nil {
			log.Printf("Failed to delete expired session %s: %v", session.ID, err)
		}
		return nil, nil
	}
	return session, nil
}

// AccountEmail resolves the provider email for a session's account.
// The cached snapshot is preferred; a provider refresh is the fallback.
func (s *SessionService) AccountEmail(ctx context.Context, session *models.Session) (string, error) {
	if s.cache != nil {
		snap := s.cache.Current()
		if snap.Account != nil && snap.Account.ID == session.AccountID {
			return snap.Account.Email, nil
		}
	}

	provSession, err := s.provider.RefreshSession(ctx, session.RefreshToken)
	if err != nil {
		return "", err
	}
	if provSession.RefreshToken != "" && provSession.RefreshToken != session.RefreshToken {
		if err := s.sessions.UpdateRefreshToken(session.ID, provSession.RefreshToken); err != nil {
			log.Printf("Failed to rotate refresh token for %s: %v", session.ID, err)
		}
	}
	if provSession.Account == nil {
		return "", ErrInvalidCredentials
	}
	return provSession.Account.Email, nil
}

// ChildLogin checks a child's nickname and passcode under a parent
// account. No provider call is made; the kiosk flow is entirely local.
func (s *SessionService) ChildLogin(parentID, nickname, passcode string) (*models.Profile, error) {
	child, err := s.profiles.GetChildByNickname(parentID, nickname)
	if err != nil {
		return nil, err
	}
	if child == nil || child.PasscodeHash == "" {
		return nil, ErrInvalidCredentials
	}
	if !security.CheckPassword(passcode, child.PasscodeHash) {
		s.audit.Record("child_login_failed", map[string]interface{}{
			"parent_id": parentID,
			"nickname":  nickname,
		})
		return nil, ErrInvalidCredentials
	}
	return child, nil
}

// Logout revokes the provider session, deletes the local row and clears
// the account's local drafts. Provider failures do not block the local
// cleanup.
func (s *SessionService) Logout(ctx context.Context, sessionID string) error {
	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}

	if provSession, err := s.provider.RefreshSession(ctx, session.RefreshToken); err == nil {
		if err := s.provider.SignOut(ctx, provSession.AccessToken); err != nil {
			log.Printf("Provider sign-out failed for %s: %v", session.AccountID, err)
		}
	} else {
		log.Printf("Could not refresh session for sign-out: %v", err)
	}

	if err := s.sessions.DeleteSession(session.ID); err != nil {
		return err
	}

	if s.local != nil {
		if err := s.local.Clear(DraftNamespacePrefix + session.AccountID); err != nil {
			log.Printf("Failed to clear drafts for %s: %v", session.AccountID, err)
		}
	}

	s.mu.Lock()
	if s.current == session.ID {
		s.current = ""
	}
	s.mu.Unlock()

	if s.cache != nil {
		s.cache.ClearAccount()
	}

	s.audit.Record("signed_out", map[string]interface{}{
		"account_id": session.AccountID,
	})
	return nil
}

// FetchAccount is the auth-state cache's fetcher: it revalidates the
// device's current session against the provider, rotating the stored
// refresh token. With no current session it reports signed-out without
// a network call.
func (s *SessionService) FetchAccount(ctx context.Context) (*identity.Account, error) {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()

	if current == "" {
		return nil, nil
	}

	session, err := s.Validate(current)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	provSession, err := s.provider.RefreshSession(ctx, session.RefreshToken)
	if err != nil {
		return nil, err
	}
	if provSession.RefreshToken != "" && provSession.RefreshToken != session.RefreshToken {
		if err := s.sessions.UpdateRefreshToken(session.ID, provSession.RefreshToken); err != nil {
			log.Printf("Failed to rotate refresh token for %s: %v", session.ID, err)
		}
	}
	return provSession.Account, nil
}

// CleanupExpiredSessions deletes sessions past their expiry
func (s *SessionService) CleanupExpiredSessions() {
	count, err := s.sessions.DeleteExpiredSessions()
	if err != nil {
		log.Printf("Failed to cleanup expired sessions: %v", err)
		return
	}
	if count > 0 {
		log.Printf("Cleaned up %d expired sessions", count)
	}
}
