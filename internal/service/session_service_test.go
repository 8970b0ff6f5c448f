package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"guardianlink/internal/audit"
	"guardianlink/internal/authstate"
	"guardianlink/internal/identity"
	"guardianlink/internal/localstore"
	"guardianlink/internal/models"
	"guardianlink/internal/security"
)

type fakeSessionStore struct {
	sessions map[string]*models.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*models.Session)}
}

func (f *fakeSessionStore) CreateSession(s *models.Session) error {
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeSessionStore) GetSession(id string) (*models.Session, error) {
	return f.sessions[id], nil
}

func (f *fakeSessionStore) UpdateRefreshToken(id, token string) error {
	if s, ok := f.sessions[id]; ok {
		s.RefreshToken = token
	}
	return nil
}

func (f *fakeSessionStore) DeleteSession(id string) error {
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionStore) DeleteExpiredSessions() (int64, error) {
	var n int64
	for id, s := range f.sessions {
		if s.IsExpired() {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}

type fakeProfileReader struct {
	profiles map[string]*models.Profile
	children map[string]*models.Profile
}

func (f *fakeProfileReader) GetProfile(accountID string) (*models.Profile, error) {
	return f.profiles[accountID], nil
}

func (f *fakeProfileReader) GetChildByNickname(parentID, nickname string) (*models.Profile, error) {
	return f.children[parentID+"/"+nickname], nil
}

type fakeSessionsProvider struct {
	session    *identity.Session
	signInErr  error
	signedOut  int
	refreshed  int
	otpEmails  []string
	refreshErr error
}

func (f *fakeSessionsProvider) SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return f.session, nil
}

func (f *fakeSessionsProvider) SignInWithOTP(ctx context.Context, email, redirectTo string) error {
	f.otpEmails = append(f.otpEmails, email)
	return nil
}

func (f *fakeSessionsProvider) SignInWithIdToken(ctx context.Context, provider, idToken string) (*identity.Session, error) {
	return f.session, nil
}

func (f *fakeSessionsProvider) ExchangeCode(ctx context.Context, code string) (*identity.Session, error) {
	if code == "good" {
		return f.session, nil
	}
	return nil, identity.ErrUnauthorized
}

func (f *fakeSessionsProvider) RefreshSession(ctx context.Context, refreshToken string) (*identity.Session, error) {
	f.refreshed++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.session, nil
}

func (f *fakeSessionsProvider) GetUser(ctx context.Context, accessToken string) (*identity.Account, error) {
	if f.session == nil {
		return nil, identity.ErrUnauthorized
	}
	return f.session.Account, nil
}

func (f *fakeSessionsProvider) SignOut(ctx context.Context, accessToken string) error {
	f.signedOut++
	return nil
}

func newTestSessionService(t *testing.T, provider *fakeSessionsProvider,
	store *fakeSessionStore, profiles *fakeProfileReader) (*SessionService, *authstate.Cache, *localstore.Store) {
	t.Helper()

	local, err := localstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local store: %v", err)
	}
	cache := authstate.New(func(ctx context.Context) (*identity.Account, error) {
		return nil, nil
	}, time.Minute)

	svc := NewSessionService(provider, store, profiles, cache, local, time.Hour, audit.Nop{})
	return svc, cache, local
}

func providerSession(accountID string) *identity.Session {
	return &identity.Session{
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresAt:    time.Now().Add(time.Hour),
		Account:      &identity.Account{ID: accountID, Email: "parent@example.com"},
	}
}

func TestLoginEstablishesSession(t *testing.T) {
	provider := &fakeSessionsProvider{session: providerSession("acct-1")}
	store := newFakeSessionStore()
	svc, cache, _ := newTestSessionService(t, provider, store, &fakeProfileReader{})

	session, account, err := svc.Login(context.Background(), "parent@example.com", "pw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.ID != "acct-1" {
		t.Errorf("unexpected account %+v", account)
	}
	if len(store.sessions) != 1 {
		t.Errorf("expected a persisted session, got %d", len(store.sessions))
	}
	if session.RefreshToken != "rt" {
		t.Errorf("expected the refresh token to be stored, got %q", session.RefreshToken)
	}

	snap := cache.Current()
	if !snap.Authenticated || snap.Account.ID != "acct-1" {
		t.Errorf("expected the cache to observe the sign-in, got %+v", snap)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	provider := &fakeSessionsProvider{signInErr: identity.ErrUnauthorized}
	svc, _, _ := newTestSessionService(t, provider, newFakeSessionStore(), &fakeProfileReader{})

	_, _, err := svc.Login(context.Background(), "parent@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginRejectsInvalidEmail(t *testing.T) {
	svc, _, _ := newTestSessionService(t, &fakeSessionsProvider{}, newFakeSessionStore(), &fakeProfileReader{})

	if _, _, err := svc.Login(context.Background(), "not-an-email", "pw"); err == nil {
		t.Error("expected a validation error")
	}
}

func TestValidateExpiredSessionIsDeleted(t *testing.T) {
	store := newFakeSessionStore()
	store.sessions["expired"] = &models.Session{
		ID:        "expired",
		AccountID: "acct-1",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	svc, _, _ := newTestSessionService(t, &fakeSessionsProvider{}, store, &fakeProfileReader{})

	session, err := svc.Validate("expired")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session != nil {
		t.Error("expected an expired session to validate as nil")
	}
	if _, ok := store.sessions["expired"]; ok {
		t.Error("expected the expired row to be deleted")
	}
}

func TestChildLogin(t *testing.T) {
	hash, err := security.HashPassword("aB3x")
	if err != nil {
		t.Fatalf("failed to hash passcode: %v", err)
	}
	profiles := &fakeProfileReader{
		children: map[string]*models.Profile{
			"parent1/alice": {
				AccountID:    "child1",
				FullName:     "alice",
				Role:         models.RoleChild,
				ParentID:     "parent1",
				PasscodeHash: hash,
			},
		},
	}
	svc, _, _ := newTestSessionService(t, &fakeSessionsProvider{}, newFakeSessionStore(), profiles)

	child, err := svc.ChildLogin("parent1", "alice", "aB3x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if child.AccountID != "child1" {
		t.Errorf("unexpected child %+v", child)
	}

	if _, err := svc.ChildLogin("parent1", "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for a wrong passcode, got %v", err)
	}
	if _, err := svc.ChildLogin("parent1", "nobody", "aB3x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for an unknown child, got %v", err)
	}
	if _, err := svc.ChildLogin("parent2", "alice", "aB3x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("a child must not sign in under another parent, got %v", err)
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	provider := &fakeSessionsProvider{session: providerSession("acct-1")}
	store := newFakeSessionStore()
	svc, cache, local := newTestSessionService(t, provider, store, &fakeProfileReader{})

	session, _, err := svc.Login(context.Background(), "parent@example.com", "pw")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	ns := DraftNamespacePrefix + "acct-1"
	if err := local.Put(ns, "draft-1", map[string]string{"topic": "fractions"}); err != nil {
		t.Fatalf("failed to seed draft: %v", err)
	}

	if err := svc.Logout(context.Background(), session.ID); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	if len(store.sessions) != 0 {
		t.Errorf("expected the session row to be deleted, %d remain", len(store.sessions))
	}
	if provider.signedOut != 1 {
		t.Errorf("expected a provider sign-out, got %d", provider.signedOut)
	}
	entries, _ := local.List(ns)
	if len(entries) != 0 {
		t.Errorf("expected the account's drafts to be cleared, got %d", len(entries))
	}
	if snap := cache.Current(); snap.Authenticated {
		t.Error("expected the cache to observe the sign-out")
	}
}

func TestFetchAccountWithoutCurrentSession(t *testing.T) {
	provider := &fakeSessionsProvider{session: providerSession("acct-1")}
	svc, _, _ := newTestSessionService(t, provider, newFakeSessionStore(), &fakeProfileReader{})

	account, err := svc.FetchAccount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account != nil {
		t.Errorf("expected signed-out without a current session, got %+v", account)
	}
	if provider.refreshed != 0 {
		t.Errorf("expected no provider call, got %d", provider.refreshed)
	}
}

func TestFetchAccountRefreshesCurrentSession(t *testing.T) {
	provider := &fakeSessionsProvider{session: providerSession("acct-1")}
	store := newFakeSessionStore()
	svc, _, _ := newTestSessionService(t, provider, store, &fakeProfileReader{})

	if _, _, err := svc.Login(context.Background(), "parent@example.com", "pw"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	account, err := svc.FetchAccount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account == nil || account.ID != "acct-1" {
		t.Errorf("unexpected account %+v", account)
	}
	if provider.refreshed != 1 {
		t.Errorf("expected one refresh call, got %d", provider.refreshed)
	}
}
