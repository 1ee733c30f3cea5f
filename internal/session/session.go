// Package session owns the signed-in session. A Manager is handed to every
// component that needs the bearer token; there is no package-level session.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/akdrive/akdrive/internal/metrics"
)

// LandingLocation is where the user is sent after a sign-out.
const LandingLocation = "/"

var (
	ErrNoSession = errors.New("session: not signed in")
	ErrExpired   = errors.New("session: expired")
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         User
}

// Store persists the session across restarts. LoadSession returns nil, nil
// when nothing is stored.
type Store interface {
	LoadSession() (*Session, error)
	SaveSession(s *Session) error
	DeleteSession() error
}

// Reason tells sign-out hooks why the session ended.
type Reason string

const (
	ReasonUser    Reason = "user"
	ReasonExpired Reason = "expired"
)

// Hook runs after a session ended, with the location to send the user to.
type Hook func(reason Reason, location string)

type Manager struct {
	mu      sync.RWMutex
	store   Store
	current *Session
	gen     uint64
	hooks   []Hook
	now     func() time.Time
}

// NewManager restores the persisted session, if any.
func NewManager(store Store) (*Manager, error) {
	m := &Manager{store: store, gen: 1, now: time.Now}
	s, err := store.LoadSession()
	if err != nil {
		return nil, err
	}
	if s != nil && !m.expired(s) {
		m.current = s
		log.Info().Str("c", "session").Str("user", s.User.Email).Msg("restored session")
	}
	return m, nil
}

// OnSignOut registers fn to run whenever a session ends.
func (m *Manager) OnSignOut(fn Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, fn)
}

// Begin installs s as the current session, replacing any previous one.
func (m *Manager) Begin(s *Session) error {
	if s == nil || s.AccessToken == "" {
		return ErrNoSession
	}
	if err := m.store.SaveSession(s); err != nil {
		return err
	}
	m.mu.Lock()
	m.current = s
	m.gen++
	m.mu.Unlock()
	log.Info().Str("c", "session").Str("user", s.User.Email).Msg("signed in")
	return nil
}

// Current returns a copy of the current session.
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

// Token returns the access token and the generation it belongs to. Without a
// session the token is empty. An expired token ends the session and returns
// ErrExpired.
func (m *Manager) Token() (string, uint64, error) {
	m.mu.RLock()
	s, gen := m.current, m.gen
	m.mu.RUnlock()

	if s == nil {
		return "", gen, nil
	}
	if m.expired(s) {
		m.Expire(gen)
		return "", gen, ErrExpired
	}
	return s.AccessToken, gen, nil
}

// Expire ends the session of generation gen. Only the first call for a
// generation has any effect, so concurrent 401s sign out exactly once.
func (m *Manager) Expire(gen uint64) {
	m.end(gen, ReasonExpired)
}

// SignOut ends the current session on request of the user.
func (m *Manager) SignOut() {
	m.mu.RLock()
	gen := m.gen
	m.mu.RUnlock()
	m.end(gen, ReasonUser)
}

func (m *Manager) end(gen uint64, reason Reason) {
	m.mu.Lock()
	if gen != m.gen || m.current == nil {
		m.mu.Unlock()
		return
	}
	user := m.current.User.Email
	m.current = nil
	m.gen++
	hooks := append([]Hook(nil), m.hooks...)
	m.mu.Unlock()

	if err := m.store.DeleteSession(); err != nil {
		log.Error().Str("c", "session").Err(err).Msg("failed to delete stored session")
	}
	metrics.RecordSignOut(string(reason))
	log.Info().Str("c", "session").Str("user", user).Str("reason", string(reason)).Msg("signed out")

	for _, hook := range hooks {
		hook(reason, LandingLocation)
	}
}

func (m *Manager) expired(s *Session) bool {
	exp := s.ExpiresAt
	if exp.IsZero() {
		exp = TokenExpiry(s.AccessToken)
	}
	return !exp.IsZero() && !m.now().Before(exp)
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature;
// the backend does the verification. It returns the zero time when the token
// carries no readable exp.
func TokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
