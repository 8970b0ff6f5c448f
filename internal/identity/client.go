package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a GoTrue-style identity provider over HTTP. Admin
// calls authenticate with the service-role key, session calls with the
// anon API key or a user access token.
type Client struct {
	baseURL    string
	apiKey     string
	serviceKey string
	jwtSecret  string
	httpClient *http.Client
}

// NewClient creates a provider client. jwtSecret is optional; when set,
// access tokens in session responses are verified locally and used to
// backfill the account when the provider omits the user object.
func NewClient(baseURL, apiKey, serviceKey, jwtSecret string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		serviceKey: serviceKey,
		jwtSecret:  jwtSecret,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type sessionResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int      `json:"expires_in"`
	User         *Account `json:"user"`
}

type errorResponse struct {
	Code    string `json:"error_code"`
	Message string `json:"msg"`
	Error   string `json:"error"`
}

// CreateUser creates an account through the admin API. Confirmation
// email delivery is suppressed for admin-created accounts.
func (c *Client) CreateUser(ctx context.Context, params CreateUserParams) (*Account, error) {
	body := map[string]interface{}{
		"email":         params.Email,
		"password":      params.Password,
		"email_confirm": params.EmailConfirm,
		"user_metadata": params.Metadata,
	}

	var account Account
	if err := c.do(ctx, http.MethodPost, "/admin/users", c.serviceKey, body, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// DeleteUser removes an account through the admin API
func (c *Client) DeleteUser(ctx context.Context, accountID string) error {
	return c.do(ctx, http.MethodDelete, "/admin/users/"+accountID, c.serviceKey, nil, nil)
}

// SignInWithPassword performs a password grant
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}

	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=password", c.apiKey, body, &resp); err != nil {
		return nil, err
	}
	return c.toSession(resp)
}

// SignInWithOTP requests a magic-link email for the given address
func (c *Client) SignInWithOTP(ctx context.Context, email, redirectTo string) error {
	body := map[string]interface{}{
		"email":       email,
		"create_user": true,
	}
	if redirectTo != "" {
		body["redirect_to"] = redirectTo
	}
	return c.do(ctx, http.MethodPost, "/otp", c.apiKey, body, nil)
}

// ExchangeCode exchanges an OAuth authorization code for a session
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Session, error) {
	body := map[string]string{"auth_code": code}

	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=authorization_code", c.apiKey, body, &resp); err != nil {
		return nil, err
	}
	return c.toSession(resp)
}

// SignInWithIdToken exchanges an OIDC id token issued by an external
// provider (e.g. Google) for a session.
func (c *Client) SignInWithIdToken(ctx context.Context, provider, idToken string) (*Session, error) {
	body := map[string]string{"provider": provider, "id_token": idToken}

	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=id_token", c.apiKey, body, &resp); err != nil {
		return nil, err
	}
	return c.toSession(resp)
}

// RefreshSession exchanges a refresh token for a fresh token pair
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	body := map[string]string{"refresh_token": refreshToken}

	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", c.apiKey, body, &resp); err != nil {
		return nil, err
	}
	return c.toSession(resp)
}

// GetUser fetches the account behind an access token
func (c *Client) GetUser(ctx context.Context, accessToken string) (*Account, error) {
	var account Account
	if err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// SignOut revokes the session behind an access token
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}

func (c *Client) toSession(resp sessionResponse) (*Session, error) {
	session := &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		Account:      resp.User,
	}

	if session.Account == nil && c.jwtSecret != "" {
		claims, err := ParseAccessToken(resp.AccessToken, c.jwtSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to parse access token: %w", err)
		}
		session.Account = claims.ToAccount()
	}

	return session, nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.mapError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode provider response: %w", err)
		}
	}
	return nil
}

// mapError converts a provider error response into the sentinel error
// taxonomy, keeping the raw detail wrapped for logging.
func (c *Client) mapError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload errorResponse
	_ = json.Unmarshal(raw, &payload)
	if payload.Message == "" {
		payload.Message = payload.Error
	}

	provErr := &ProviderError{
		StatusCode: resp.StatusCode,
		Code:       payload.Code,
		Message:    payload.Message,
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, provErr)
	case payload.Code == "email_exists" || payload.Code == "user_already_exists" ||
		strings.Contains(strings.ToLower(payload.Message), "already registered"):
		return fmt.Errorf("%w: %s", ErrEmailTaken, provErr)
	case payload.Code == "validation_failed" ||
		strings.Contains(strings.ToLower(payload.Message), "invalid email"):
		return fmt.Errorf("%w: %s", ErrInvalidEmail, provErr)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, provErr)
	default:
		return provErr
	}
}
