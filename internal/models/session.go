package models

import "time"

// Session represents an authenticated server session. The provider
// refresh token lets the auth-state cache revalidate the identity.
type Session struct {
	ID           string
	AccountID    string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
