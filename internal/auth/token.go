// Package auth caches the API bearer token on disk and refreshes it shortly
// before it expires.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/ludexapp/ludex/internal/catalog"
)

// RefreshWindow is how close to expiry a token is refreshed.
const RefreshWindow = 60 * time.Second

// ErrNoRefreshToken is returned when a refresh is due but impossible.
var ErrNoRefreshToken = errors.New("no refresh token")

// Tokens is the on-disk token file.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Load reads a token file. A missing file yields empty tokens.
func Load(path string) (Tokens, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Tokens{}, nil
		}
		return Tokens{}, fmt.Errorf("read token file: %w", err)
	}
	var t Tokens
	if err := json.Unmarshal(data, &t); err != nil {
		return Tokens{}, fmt.Errorf("parse token file: %w", err)
	}
	return t, nil
}

// Save writes t to path with owner-only permissions.
func Save(path string, t Tokens) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// ExpiresAt returns the exp claim of an access token. The signature is not
// checked; ok is false when the token has no readable expiry.
func ExpiresAt(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Source implements catalog.TokenSource over a token file.
type Source struct {
	path       string
	refreshURL string
	http       *retryablehttp.Client
	logger     *log.Logger
	now        func() time.Time

	mu     sync.Mutex
	tokens Tokens
	loaded bool
}

var _ catalog.TokenSource = (*Source)(nil)

// NewSource builds a Source reading path and refreshing against apiURL.
func NewSource(path, apiURL string, retries int, logger *log.Logger) (*Source, error) {
	base, err := catalog.ParseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Source{
		path:       path,
		refreshURL: strings.TrimSuffix(base.String(), "/") + "/auth/refresh",
		http:       catalog.NewRetryClient(retries, logger),
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Token returns the current access token, refreshing it first when it
// expires within RefreshWindow. No token file means anonymous access.
func (s *Source) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		t, err := Load(s.path)
		if err != nil {
			return "", err
		}
		s.tokens = t
		s.loaded = true
	}
	if s.tokens.AccessToken == "" {
		return "", nil
	}

	exp, ok := ExpiresAt(s.tokens.AccessToken)
	if !ok || exp.Sub(s.now()) > RefreshWindow {
		return s.tokens.AccessToken, nil
	}
	if err := s.refreshLocked(ctx); err != nil {
		return "", err
	}
	return s.tokens.AccessToken, nil
}

// Set replaces the cached tokens and persists them.
func (s *Source) Set(t Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := Save(s.path, t); err != nil {
		return err
	}
	s.tokens = t
	s.loaded = true
	return nil
}

func (s *Source) refreshLocked(ctx context.Context) error {
	if s.tokens.RefreshToken == "" {
		return ErrNoRefreshToken
	}
	body, err := json.Marshal(map[string]string{"refresh_token": s.tokens.RefreshToken})
	if err != nil {
		return fmt.Errorf("encode refresh request: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.refreshURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return &catalog.StatusError{Path: "/auth/refresh", StatusCode: resp.StatusCode}
	}

	var next Tokens
	if err := json.NewDecoder(resp.Body).Decode(&next); err != nil {
		return fmt.Errorf("decode refresh response: %w", err)
	}
	if next.AccessToken == "" {
		return fmt.Errorf("refresh response carried no access token")
	}
	if next.RefreshToken == "" {
		next.RefreshToken = s.tokens.RefreshToken
	}
	if err := Save(s.path, next); err != nil {
		s.logger.Warn("persist refreshed token", "err", err)
	}
	s.tokens = next
	s.logger.Info("access token refreshed")
	return nil
}
