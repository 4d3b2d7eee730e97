package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// CredentialSource supplies the bearer credential for catalog requests.
// Token returns a credential valid at call time; Refresh discards any
// cached credential and obtains a fresh one. Refresh has no retry policy
// of its own - the session controller decides when it is called.
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) error
}

// AppTokenSource exchanges an application id/secret pair for an
// app-access bearer token via the OAuth client-credentials grant, caching
// the token until shortly before its reported expiry.
type AppTokenSource struct {
	clientID     string
	clientSecret string
	tokenURL     string
	client       *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

const (
	// DefaultTokenURL is the production token exchange endpoint.
	DefaultTokenURL = "https://id.twitch.tv/oauth2/token"

	// expirySlack is subtracted from the reported token lifetime so a
	// token is never used right at its expiry edge.
	expirySlack = 60 * time.Second
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// NewAppTokenSource creates a credential source for the given application
// credentials. tokenURL may be empty to use the production endpoint.
func NewAppTokenSource(clientID, clientSecret, tokenURL string, client *http.Client) (*AppTokenSource, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("client id and secret required")
	}
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &AppTokenSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     tokenURL,
		client:       client,
	}, nil
}

// Token returns the cached credential, exchanging a new one if none is
// cached or the cached one is near expiry.
func (s *AppTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.expiresAt) {
		return s.token, nil
	}
	if err := s.exchange(ctx); err != nil {
		return "", err
	}
	return s.token, nil
}

// Refresh discards the cached credential and performs a fresh exchange.
func (s *AppTokenSource) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	return s.exchange(ctx)
}

// exchange performs the client-credentials grant. Caller holds s.mu.
func (s *AppTokenSource) exchange(ctx context.Context) error {
	form := url.Values{
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
		"grant_type":    {"client_credentials"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: token exchange: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read token response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb apiErrorBody
		_ = json.Unmarshal(body, &eb)
		return &APIError{StatusCode: resp.StatusCode, Message: eb.Message, Err: classifyStatus(resp.StatusCode)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return fmt.Errorf("%w: parse token response: %v", ErrUnavailable, err)
	}
	if tr.AccessToken == "" {
		return fmt.Errorf("%w: token response missing access_token", ErrUnavailable)
	}

	s.token = tr.AccessToken
	lifetime := time.Duration(tr.ExpiresIn) * time.Second
	if lifetime > expirySlack {
		lifetime -= expirySlack
	}
	s.expiresAt = time.Now().Add(lifetime)
	return nil
}

// StaticTokenSource wraps a fixed credential, for tests and tooling that
// already hold a token. Refresh is a no-op.
type StaticTokenSource struct {
	Credential string
}

func (s *StaticTokenSource) Token(ctx context.Context) (string, error) {
	if s.Credential == "" {
		return "", ErrReauthRequired
	}
	return s.Credential, nil
}

func (s *StaticTokenSource) Refresh(ctx context.Context) error { return nil }
