package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/CarlosOrtiz/mail-pdf-backend/internal/errs"
)

// Config for the credential store
type Config struct {
	TokenURL     string
	AuthorizeURL string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scope        string
	AccessToken  string // optional seed token
	RefreshToken string
	HTTPTimeout  time.Duration
}

// TokenResponse is the identity provider's token endpoint response
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// Store owns the process-wide credential. All token reads and mutations go
// through it; a refresh is single-flight so concurrent 401s never burn the
// refresh token twice.
type Store struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	expiry       time.Time // zero when the provider gave no expires_in
	inflight     *refreshCall
}

type refreshCall struct {
	done chan struct{}
	err  error
}

// NewStore creates a credential store, seeded from config if tokens are present
func NewStore(cfg Config, logger *slog.Logger) *Store {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Store{
		cfg:          cfg,
		accessToken:  cfg.AccessToken,
		refreshToken: cfg.RefreshToken,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger.With("component", "auth"),
	}
}

// Authenticated returns true if any credential is stored
func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken != "" || s.refreshToken != ""
}

// AuthURL returns the provider authorize URL for the interactive login flow
func (s *Store) AuthURL() string {
	q := url.Values{}
	q.Set("client_id", s.cfg.ClientID)
	q.Set("scope", s.cfg.Scope)
	q.Set("response_type", "code")
	q.Set("redirect_uri", s.cfg.RedirectURI)
	return s.cfg.AuthorizeURL + "?" + q.Encode()
}

// Token returns an access token for the next drive call. The stored token is
// handed out optimistically; a refresh happens first only when no access
// token exists or a known expiry has passed.
func (s *Store) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	access := s.accessToken
	hasRefresh := s.refreshToken != ""
	expired := !s.expiry.IsZero() && time.Now().After(s.expiry)
	s.mu.Unlock()

	if access == "" && !hasRefresh {
		return "", errs.New(errs.KindAuthUnavailable, "no access token, authenticate at /auth/login")
	}
	if access != "" && !expired {
		return access, nil
	}

	if err := s.Refresh(ctx); err != nil {
		return "", err
	}

	s.mu.Lock()
	access = s.accessToken
	s.mu.Unlock()
	return access, nil
}

// Refresh exchanges the stored refresh token for a new access/refresh pair.
// Concurrent callers await the in-flight exchange instead of issuing their
// own; re-using a rotated refresh token would invalidate it at the provider.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if call := s.inflight; call != nil {
		s.mu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	refresh := s.refreshToken
	if refresh == "" {
		s.mu.Unlock()
		return errs.New(errs.KindReauthRequired, "no refresh token stored, authenticate at /auth/login")
	}

	call := &refreshCall{done: make(chan struct{})}
	s.inflight = call
	s.mu.Unlock()

	tok, err := s.exchange(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refresh},
	})
	if err != nil && isGrantRejected(err) {
		err = errs.Wrap(errs.KindReauthRequired, "refresh token rejected, authenticate at /auth/login", err)
	}

	s.mu.Lock()
	if err == nil {
		s.storeLocked(tok)
		s.logger.Info("access token refreshed", "rotated", tok.RefreshToken != "")
	} else {
		s.logger.Error("token refresh failed", "error", err)
	}
	call.err = err
	s.inflight = nil
	s.mu.Unlock()
	close(call.done)

	return err
}

// ExchangeCode trades an authorization code for the initial token pair
func (s *Store) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	tok, err := s.exchange(ctx, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {s.cfg.RedirectURI},
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.storeLocked(tok)
	s.mu.Unlock()
	s.logger.Info("authorization code exchanged", "expires_in", tok.ExpiresIn)

	return tok, nil
}

// UseRefreshToken replaces the stored refresh token, e.g. one supplied by the
// caller of POST /auth/refresh
func (s *Store) UseRefreshToken(token string) {
	s.mu.Lock()
	s.refreshToken = token
	s.mu.Unlock()
}

// storeLocked applies a token response; s.mu must be held
func (s *Store) storeLocked(tok *TokenResponse) {
	s.accessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		// provider rotated the refresh token; dropping it would break
		// every subsequent refresh
		s.refreshToken = tok.RefreshToken
	}
	if tok.ExpiresIn > 0 {
		s.expiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	}
}

func (s *Store) exchange(ctx context.Context, form url.Values) (*TokenResponse, error) {
	form.Set("client_id", s.cfg.ClientID)
	form.Set("client_secret", s.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errs.Remote(resp.StatusCode, "token endpoint error", string(body))
	}

	var tok TokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, errs.Remote(resp.StatusCode, "token endpoint returned no access token", string(body))
	}

	return &tok, nil
}

// isGrantRejected reports whether the provider refused the grant itself, as
// opposed to a transient failure
func isGrantRejected(err error) bool {
	var e *errs.Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Status == http.StatusBadRequest || e.Status == http.StatusUnauthorized
}
