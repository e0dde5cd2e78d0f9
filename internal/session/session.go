package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"expeditor/internal/models"
)

// Store holds the operator's bearer token and profile between runs, the way
// the browser client kept them in local storage. A Store with an empty path
// is memory-only.
type Store struct {
	mu        sync.Mutex
	path      string
	token     string
	user      models.User
	onExpired func()
}

type persisted struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// NewStore creates a credential store backed by the given file. A missing
// file is not an error; the store just starts logged-out.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credential file: %w", err)
	}

	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		// A corrupt credential file is treated as logged-out rather than
		// blocking startup.
		return s, nil
	}
	s.token = p.Token
	s.user = p.User
	return s, nil
}

// OnExpired registers a hook fired when the backend rejects the credential.
// The display uses it to fall back to the login screen.
func (s *Store) OnExpired(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpired = fn
}

// Token implements api.TokenSource.
func (s *Store) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

// User returns the stored operator profile.
func (s *Store) User() (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.token != ""
}

// SetCredentials stores a freshly issued token and operator profile and
// persists them when a path is configured.
func (s *Store) SetCredentials(token string, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
	return s.persistLocked()
}

// Clear drops the credential and removes the backing file.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// Valid reports whether a token is present and not past its JWT expiry.
// The signature is not checked here; only the backend can verify it, the
// client just avoids polling with a token it knows is dead.
func (s *Store) Valid(now time.Time) bool {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	if token == "" {
		return false
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		// Opaque (non-JWT) tokens are assumed valid until the backend says
		// otherwise.
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return now.Before(claims.ExpiresAt.Time)
}

// HandleAuthFailure is wired as the transport's 401 hook: clear the stored
// credential and notify the display.
func (s *Store) HandleAuthFailure() {
	s.mu.Lock()
	s.clearLocked()
	fn := s.onExpired
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (s *Store) clearLocked() {
	s.token = ""
	s.user = models.User{}
	if s.path != "" {
		os.Remove(s.path)
	}
}

func (s *Store) persistLocked() error {
	if s.path == "" {
		return nil
	}
	data, err := json.Marshal(persisted{Token: s.token, User: s.user})
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating credential dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing credential file: %w", err)
	}
	return nil
}
