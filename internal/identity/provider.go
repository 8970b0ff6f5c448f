// Package identity wraps the external auth provider behind narrow,
// explicitly-typed interfaces so the orchestration services can be
// tested against in-memory fakes.
package identity

import (
	"context"
	"time"
)

// Metadata is the application data embedded in a provider account
type Metadata struct {
	Role          string `json:"role,omitempty"`
	Nickname      string `json:"nickname,omitempty"`
	Age           int    `json:"age,omitempty"`
	Grade         string `json:"grade,omitempty"`
	GuardianEmail string `json:"guardian_email,omitempty"`
}

// Account is an identity record issued by the external provider
type Account struct {
	ID       string   `json:"id"`
	Email    string   `json:"email,omitempty"`
	Metadata Metadata `json:"user_metadata"`
}

// Session is a provider-issued token pair
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"-"`
	Account      *Account  `json:"user,omitempty"`
}

// CreateUserParams describes an admin user-creation call
type CreateUserParams struct {
	Email        string
	Password     string
	Metadata     Metadata
	EmailConfirm bool
}

// Admin is the subset of the provider API used by the registration
// orchestrator and the orphan sweeper.
type Admin interface {
	CreateUser(ctx context.Context, params CreateUserParams) (*Account, error)
	DeleteUser(ctx context.Context, accountID string) error
}

// Sessions is the subset used for sign-in, sign-out and revalidation
type Sessions interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignInWithOTP(ctx context.Context, email, redirectTo string) error
	SignInWithIdToken(ctx context.Context, provider, idToken string) (*Session, error)
	ExchangeCode(ctx context.Context, code string) (*Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	GetUser(ctx context.Context, accessToken string) (*Account, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Provider is the full adapter surface
type Provider interface {
	Admin
	Sessions
}
