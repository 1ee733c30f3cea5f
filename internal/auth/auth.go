// Package auth talks to the hosted auth provider (a GoTrue compatible REST
// API). It only moves credentials and tokens around; the session itself is
// owned by internal/session.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/akdrive/akdrive/internal/metrics"
	"github.com/akdrive/akdrive/internal/session"
	pv "github.com/akdrive/akdrive/pkg/validator"
)

const DefaultTimeout = 30 * time.Second

type Config struct {
	URL           string        `mapstructure:"url"`
	AnonKey       string        `mapstructure:"anon_key"`
	ResetRedirect string        `mapstructure:"reset_redirect"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// ValidationError is returned before any request when input is unusable.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ProviderError is an error answer from the auth provider.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string { return e.Message }

var validate = pv.New()

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"notblank"`
}

type Client struct {
	baseURL       string
	anonKey       string
	resetRedirect string
	client        *http.Client
}

func New(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.URL, "/"),
		anonKey:       cfg.AnonKey,
		resetRedirect: cfg.ResetRedirect,
		client:        &http.Client{Timeout: timeout},
	}
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         session.User `json:"user"`
}

// SignIn exchanges email and password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	creds := credentials{Email: strings.TrimSpace(email), Password: password}
	if err := validationError(validate.Struct(creds), ""); err != nil {
		return nil, err
	}
	var resp tokenResponse
	err := c.do(ctx, http.MethodPost, "/token", url.Values{"grant_type": {"password"}}, "", creds, &resp)
	metrics.RecordAuthAttempt(err == nil)
	if err != nil {
		return nil, err
	}
	s := &session.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         resp.User,
	}
	switch {
	case resp.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(resp.ExpiresAt, 0)
	case resp.ExpiresIn > 0:
		s.ExpiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return s, nil
}

// SignUp registers an account. The provider mails a confirmation link and
// answers the same way for addresses it already knows.
func (c *Client) SignUp(ctx context.Context, email, password string) error {
	creds := credentials{Email: strings.TrimSpace(email), Password: password}
	if err := validationError(validate.Struct(creds), ""); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/signup", nil, "", creds, nil)
}

// ResetPasswordForEmail mails a recovery link leading to redirectTo, or to
// the configured reset page when redirectTo is empty.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	email = strings.TrimSpace(email)
	if err := validationError(validate.Var(email, "required,email"), "email"); err != nil {
		return err
	}
	if redirectTo == "" {
		redirectTo = c.resetRedirect
	}
	var query url.Values
	if redirectTo != "" {
		query = url.Values{"redirect_to": {redirectTo}}
	}
	return c.do(ctx, http.MethodPost, "/recover", query, "", map[string]string{"email": email}, nil)
}

func (c *Client) UpdateEmail(ctx context.Context, token, email string) error {
	email = strings.TrimSpace(email)
	if err := validationError(validate.Var(email, "required,email"), "email"); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, "/user", nil, token, map[string]string{"email": email}, nil)
}

func (c *Client) UpdatePassword(ctx context.Context, token, password string) error {
	if err := validate.Var(password, "notblank"); err != nil {
		return &ValidationError{Field: "password", Message: "Password cannot be empty"}
	}
	return c.do(ctx, http.MethodPut, "/user", nil, token, map[string]string{"password": password}, nil)
}

// SignOut revokes the session's refresh tokens at the provider.
func (c *Client) SignOut(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, token, nil, nil)
}

func (c *Client) User(ctx context.Context, token string) (*session.User, error) {
	var user session.User
	if err := c.do(ctx, http.MethodGet, "/user", nil, token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token == "" {
		token = c.anonKey
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Debug().Str("c", "auth").Str("path", path).Err(err).Msg("request failed")
		return err
	}
	defer resp.Body.Close()
	log.Debug().Str("c", "auth").Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("auth: decode %s: %w", path, err)
	}
	return nil
}

// errorBody covers the error shapes GoTrue versions have used.
type errorBody struct {
	Msg              string `json:"msg"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message"`
	Error            string `json:"error"`
}

func decodeError(resp *http.Response) error {
	perr := &ProviderError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body errorBody
	if json.Unmarshal(data, &body) == nil {
		for _, m := range []string{body.Msg, body.ErrorDescription, body.Message, body.Error} {
			if m = strings.TrimSpace(m); m != "" {
				perr.Message = m
				break
			}
		}
	}
	return perr
}

// validationError turns validator output into a ValidationError naming the
// first failing field. field names the value checked by validate.Var.
func validationError(err error, field string) error {
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return &ValidationError{Field: field, Message: err.Error()}
	}
	fe := errs[0]
	if field == "" {
		field = strings.ToLower(fe.Field())
	}
	switch fe.Tag() {
	case "required", "notblank":
		return &ValidationError{Field: field, Message: fmt.Sprintf("%s is required", field)}
	case "email":
		return &ValidationError{Field: field, Message: "invalid email address"}
	}
	return &ValidationError{Field: field, Message: fmt.Sprintf("invalid %s", field)}
}
