package identity

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenClaims are the claims carried in a provider access token
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Email        string   `json:"email"`
	UserMetadata Metadata `json:"user_metadata"`
}

// ToAccount builds an Account from token claims
func (c *AccessTokenClaims) ToAccount() *Account {
	return &Account{
		ID:       c.Subject,
		Email:    c.Email,
		Metadata: c.UserMetadata,
	}
}

// ParseAccessToken verifies an HS256-signed provider access token and
// returns its claims.
func ParseAccessToken(token, secret string) (*AccessTokenClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	claims := &AccessTokenClaims{}

	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, errors.New("invalid access token")
	}
	if claims.Subject == "" {
		return nil, errors.New("access token missing subject")
	}

	return claims, nil
}
