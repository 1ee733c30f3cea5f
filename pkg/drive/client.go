// Package drive is the client of the remote drive REST API. Every call is a
// single HTTP request carrying the current session's bearer token; nothing is
// retried.
package drive

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

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "http://localhost:5000/api"
	DefaultTimeout = 60 * time.Second
)

type Config struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TokenSource hands out the bearer token of the current session.
//
// Token returns an empty token when nobody is signed in. The generation
// identifies the session the token belongs to; Expire is called with it when
// the backend answers 401, so a stale 401 can never end a newer session.
type TokenSource interface {
	Token() (token string, generation uint64, err error)
	Expire(generation uint64)
}

// Observer receives one event per completed backend request. status is 0
// when no response arrived.
type Observer interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

type Client struct {
	baseURL  string
	client   *http.Client
	tokens   TokenSource
	limiter  *Limiter
	observer Observer
}

func New(cfg *Config, tokens TokenSource) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		tokens:  tokens,
		limiter: NewLimiter(),
	}
}

func (c *Client) SetObserver(o Observer) { c.observer = o }

// do sends one request and decodes a JSON answer into out when out is non-nil.
// body is closed in every case.
func (c *Client) do(ctx context.Context, ep endpoint, query url.Values, body io.Reader, contentType string, out interface{}) error {
	closeBody := func() {
		if rc, ok := body.(io.Closer); ok {
			_ = rc.Close()
		}
	}

	token, generation, err := c.tokens.Token()
	if err != nil {
		closeBody()
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	target := c.baseURL + ep.path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, ep.method, target, body)
	if err != nil {
		closeBody()
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if err = c.limiter.Wait(ctx); err != nil {
		closeBody()
		return err
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.limiter.Update(nil)
		c.observe(ep, 0, start)
		log.Debug().Str("c", "drive").Str("method", ep.method).Str("route", ep.route).Err(err).Msg("request failed")
		return err
	}
	defer resp.Body.Close()
	c.limiter.Update(resp.Header)
	c.observe(ep, resp.StatusCode, start)

	log.Debug().Str("c", "drive").
		Str("method", ep.method).
		Str("route", ep.route).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("request")

	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Expire(generation)
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("drive: decode %s %s: %w", ep.method, ep.route, err)
	}
	return nil
}

func (c *Client) observe(ep endpoint, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(ep.method, ep.route, status, time.Since(start))
	}
}

// jsonBody encodes v for a request body.
func jsonBody(v interface{}) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
