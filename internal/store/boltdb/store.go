// Package boltdb keeps the local state of akdrive in a bbolt file: the
// signed-in session and the UI preferences, which outlive any session.
package boltdb

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"

	"github.com/akdrive/akdrive/internal/session"
)

var (
	sessionBucket = []byte("session")
	prefsBucket   = []byte("prefs")

	currentKey = []byte("current")
	themeKey   = []byte("theme")
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

var ErrInvalidTheme = errors.New("invalid theme")

func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeLight, ThemeDark:
		return Theme(s), nil
	}
	return "", ErrInvalidTheme
}

type Config struct {
	DbPath string `mapstructure:"db_path"`
}

type Store struct {
	db *bbolt.DB
}

func New(cfg *Config) (*Store, error) {
	db, err := bbolt.Open(cfg.DbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DbPath, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err = tx.CreateBucketIfNotExists(sessionBucket); err != nil {
			return err
		}
		_, err = tx.CreateBucketIfNotExists(prefsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init %s: %w", cfg.DbPath, err)
	}
	log.Info().Str("c", "boltdb").Str("path", cfg.DbPath).Msg("opened local store")

	return &Store{db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) LoadSession() (*session.Session, error) {
	var sess *session.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(sessionBucket).Get(currentKey)
		if data == nil {
			return nil
		}
		sess = new(session.Session)
		return deserialize(data, sess)
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Store) SaveSession(sess *session.Session) error {
	data, err := serialize(sess)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).Put(currentKey, data)
	})
}

func (s *Store) DeleteSession() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).Delete(currentKey)
	})
}

// Theme returns the stored theme, light when none was chosen yet.
func (s *Store) Theme() (Theme, error) {
	var p prefs
	err := s.db.View(func(tx *bbolt.Tx) error {
		return loadPrefs(tx, &p)
	})
	if err != nil {
		return "", err
	}
	return p.theme(), nil
}

func (s *Store) SetTheme(t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		var p prefs
		if err := loadPrefs(tx, &p); err != nil {
			return err
		}
		p.Theme = string(t)
		return savePrefs(tx, &p)
	})
}

// ToggleTheme flips between light and dark and returns the new theme.
func (s *Store) ToggleTheme() (Theme, error) {
	var next Theme
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var p prefs
		if err := loadPrefs(tx, &p); err != nil {
			return err
		}
		next = ThemeDark
		if p.theme() == ThemeDark {
			next = ThemeLight
		}
		p.Theme = string(next)
		return savePrefs(tx, &p)
	})
	return next, err
}
