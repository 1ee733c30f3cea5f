package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/akdrive/akdrive/pkg/drive"
)

type memStore struct {
	mu      sync.Mutex
	s       *Session
	deletes int
}

func (m *memStore) LoadSession() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

func (m *memStore) SaveSession(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	return nil
}

func (m *memStore) DeleteSession() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = nil
	m.deletes++
	return nil
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestManager_ForcedSignOutOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := &memStore{}
	m, err := NewManager(store)
	if err != nil {
		t.Fatal(err)
	}
	var calls int32
	var location atomic.Value
	m.OnSignOut(func(reason Reason, loc string) {
		atomic.AddInt32(&calls, 1)
		location.Store(loc)
		if reason != ReasonExpired {
			t.Errorf("reason = %s", reason)
		}
	})
	if err = m.Begin(&Session{AccessToken: signed(t, time.Now().Add(time.Hour))}); err != nil {
		t.Fatal(err)
	}

	c := drive.New(&drive.Config{BaseURL: srv.URL}, m)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.ListFiles(context.Background(), ""); !errors.Is(err, drive.ErrUnauthorized) {
				t.Errorf("ListFiles() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("sign-out hooks ran %d times, want 1", n)
	}
	if location.Load() != LandingLocation {
		t.Errorf("location = %v", location.Load())
	}
	if _, ok := m.Current(); ok {
		t.Error("session still present after forced sign-out")
	}
	if store.s != nil || store.deletes != 1 {
		t.Errorf("stored session = %v, deletes = %d", store.s, store.deletes)
	}
}

func TestManager_StaleGenerationIgnored(t *testing.T) {
	m, _ := NewManager(&memStore{})
	_ = m.Begin(&Session{AccessToken: "first"})
	_, oldGen, _ := m.Token()

	_ = m.Begin(&Session{AccessToken: "second"})
	m.Expire(oldGen)

	s, ok := m.Current()
	if !ok || s.AccessToken != "second" {
		t.Errorf("newer session ended by a stale 401: %v %v", s, ok)
	}
}

func TestManager_ExpiredToken(t *testing.T) {
	m, _ := NewManager(&memStore{})
	var calls int32
	m.OnSignOut(func(Reason, string) { atomic.AddInt32(&calls, 1) })
	_ = m.Begin(&Session{AccessToken: signed(t, time.Now().Add(-time.Minute))})

	if _, _, err := m.Token(); !errors.Is(err, ErrExpired) {
		t.Fatalf("Token() error = %v, want ErrExpired", err)
	}
	if tok, _, err := m.Token(); tok != "" || err != nil {
		t.Errorf("Token() after expiry = %q %v", tok, err)
	}
	if calls != 1 {
		t.Errorf("hooks ran %d times", calls)
	}
}

func TestManager_NoSession(t *testing.T) {
	m, _ := NewManager(&memStore{})
	tok, _, err := m.Token()
	if tok != "" || err != nil {
		t.Errorf("Token() = %q %v", tok, err)
	}
	if err = m.Begin(nil); !errors.Is(err, ErrNoSession) {
		t.Errorf("Begin(nil) error = %v", err)
	}
}

func TestManager_RestoresStoredSession(t *testing.T) {
	live := &memStore{s: &Session{AccessToken: signed(t, time.Now().Add(time.Hour)), User: User{Email: "a@b.c"}}}
	m, err := NewManager(live)
	if err != nil {
		t.Fatal(err)
	}
	if s, ok := m.Current(); !ok || s.User.Email != "a@b.c" {
		t.Errorf("Current() = %v %v", s, ok)
	}

	stale := &memStore{s: &Session{AccessToken: "x", ExpiresAt: time.Now().Add(-time.Hour)}}
	m, _ = NewManager(stale)
	if _, ok := m.Current(); ok {
		t.Error("expired stored session restored")
	}
}

func TestManager_UserSignOut(t *testing.T) {
	m, _ := NewManager(&memStore{})
	var got Reason
	m.OnSignOut(func(r Reason, _ string) { got = r })
	_ = m.Begin(&Session{AccessToken: "tok"})

	m.SignOut()
	m.SignOut()
	if got != ReasonUser {
		t.Errorf("reason = %q", got)
	}
	if _, ok := m.Current(); ok {
		t.Error("session survived sign-out")
	}
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	if got := TokenExpiry(signed(t, exp)); !got.Equal(exp) {
		t.Errorf("TokenExpiry() = %v, want %v", got, exp)
	}
	if got := TokenExpiry("not-a-jwt"); !got.IsZero() {
		t.Errorf("TokenExpiry(garbage) = %v", got)
	}
}
