// Package session holds the application context shared by the CRM client,
// the API and the CLI: the backend-issued token, the signed-in user and the
// display settings. It replaces ambient browser storage with an explicit
// value passed by reference and persisted to a YAML file.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gopkg.in/yaml.v3"
)

// Sentinel errors.
var (
	ErrNoToken        = errors.New("session: no token")
	ErrMalformedToken = errors.New("session: malformed token")
	ErrNoExpiry       = errors.New("session: token has no exp claim")
)

// User is the signed-in user as reported by the backend.
type User struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Role string `yaml:"role"`
}

// Settings are per-session display preferences.
type Settings struct {
	Currency         string `yaml:"currency"`
	Locale           string `yaml:"locale"`
	LeaderboardLimit int    `yaml:"leaderboard_limit"`
}

// Data is the persisted form of a Session.
type Data struct {
	Token    string   `yaml:"token"`
	User     User     `yaml:"user"`
	Settings Settings `yaml:"settings"`
}

// Session is safe for concurrent use.
type Session struct {
	mu   sync.RWMutex
	data Data
}

// New creates a session from d.
func New(d Data) *Session {
	return &Session{data: d}
}

// Load reads a session file. A missing file yields an empty session.
func Load(path string) (*Session, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(Data{}), nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: read %s: %w", path, err)
	}
	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("session: parse %s: %w", path, err)
	}
	return New(d), nil
}

// Save writes the session to path, replacing it atomically.
func (s *Session) Save(path string) error {
	raw, err := yaml.Marshal(s.Snapshot())
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".session-*.yaml")
	if err != nil {
		return fmt.Errorf("session: write %s: %w", path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("session: write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("session: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("session: write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("session: write %s: %w", path, err)
	}
	return nil
}

// Snapshot returns a copy of the session data.
func (s *Session) Snapshot() Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Token
}

// SetToken replaces the bearer token. An empty token signs the session out.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	s.data.Token = token
	s.mu.Unlock()
}

// User returns the signed-in user.
func (s *Session) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.User
}

// Settings returns the display settings.
func (s *Session) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Settings
}

// UpdateSettings applies f to the settings under the session lock.
func (s *Session) UpdateSettings(f func(*Settings)) {
	s.mu.Lock()
	f(&s.data.Settings)
	s.mu.Unlock()
}

// TokenExpiry reads the exp claim of the token. The signature is not
// checked; the backend that issued the token verifies it.
func (s *Session) TokenExpiry() (time.Time, error) {
	token := s.Token()
	if token == "" {
		return time.Time{}, ErrNoToken
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// Expired reports whether the session can no longer authenticate at now.
// A token without an exp claim never expires; a missing or unreadable
// token counts as expired.
func (s *Session) Expired(now time.Time) bool {
	exp, err := s.TokenExpiry()
	switch {
	case errors.Is(err, ErrNoExpiry):
		return false
	case err != nil:
		return true
	}
	return !now.Before(exp)
}
