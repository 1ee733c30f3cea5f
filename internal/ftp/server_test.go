package ftp

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"

	"github.com/akdrive/akdrive/internal/session"
)

func TestParsePortRange(t *testing.T) {
	tests := []struct {
		in         string
		start, end int
		wantErr    bool
	}{
		{in: "50000-50100", start: 50000, end: 50100},
		{in: " 2121-2121 ", start: 2121, end: 2121},
		{in: "50100-50000", wantErr: true},
		{in: "0-10", wantErr: true},
		{in: "1-70000", wantErr: true},
		{in: "50000", wantErr: true},
		{in: "a-b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, err := parsePortRange(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrBadPortRange) {
					t.Errorf("parsePortRange() error = %v, want ErrBadPortRange", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if r.Start != tt.start || r.End != tt.end {
				t.Errorf("parsePortRange() = %d-%d", r.Start, r.End)
			}
		})
	}
}

type fakeAuth struct{}

func (fakeAuth) SignIn(_ context.Context, email, password string) (*session.Session, error) {
	if password != "secret" {
		return nil, errors.New("invalid login credentials")
	}
	return &session.Session{AccessToken: "tok", User: session.User{Email: email}}, nil
}

type fakeSessions struct{ begun []*session.Session }

func (f *fakeSessions) Begin(s *session.Session) error {
	f.begun = append(f.begun, s)
	return nil
}

func TestNewDriver(t *testing.T) {
	d, err := NewDriver(&Config{Addr: ":2121", PortRange: "50000-50010", PublicHost: "203.0.113.7"},
		afero.NewMemMapFs(), fakeAuth{}, &fakeSessions{})
	if err != nil {
		t.Fatal(err)
	}
	s, _ := d.GetSettings()
	if s.PublicHost != "203.0.113.7" || s.PassiveTransferPortRange == nil || s.PublicIPResolver != nil {
		t.Errorf("settings = %+v", s)
	}

	if _, err = NewDriver(&Config{Addr: ":2121", PortRange: "nope"}, nil, nil, nil); !errors.Is(err, ErrBadPortRange) {
		t.Errorf("NewDriver(bad range) error = %v", err)
	}
}
