package identity

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Sentinel errors for the provider failure categories the rest of the
// application distinguishes between.
var (
	ErrRateLimited  = errors.New("provider rate limit exceeded")
	ErrEmailTaken   = errors.New("email already registered")
	ErrInvalidEmail = errors.New("invalid email address")
	ErrUnauthorized = errors.New("invalid or expired credentials")
)

// ProviderError carries the raw provider response for logging. It is
// never shown to end users; Classify produces the user-facing message.
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (status %d, code %q): %s", e.StatusCode, e.Code, e.Message)
}

// Classify maps a provider error to one of the small set of user-facing
// messages. Provider internals are never exposed.
func Classify(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "Too many registration attempts. Please try again later."
	case errors.Is(err, ErrEmailTaken):
		return "An account with this email already exists."
	case errors.Is(err, ErrInvalidEmail):
		return "The email address is not valid."
	default:
		return "Failed to create child account."
	}
}

// IsOffline reports whether err looks like a connectivity failure rather
// than a provider-side rejection.
func IsOffline(err error) bool {
	if err == nil {
		return false
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
