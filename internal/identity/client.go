package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dharsanguruparan/VideoGate/internal/apperr"
)

const (
	defaultMePath    = "/api/v1/auth/me"
	loginPath        = "/api/v1/auth/login"
	defaultTimeout   = 5 * time.Second
	defaultTTL       = 30 * time.Second
	maxLoggedBodyLen = 200
)

// Observer receives cache hit/miss/error counts. *metrics.Recorder satisfies it.
type Observer interface {
	CacheLookup(result string)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	MePath  string
	Timeout time.Duration
	TTL     time.Duration
	// HTTPClient overrides the default client; its Timeout is left untouched.
	HTTPClient *http.Client
	Logger     *slog.Logger
	Observer   Observer
	Now        func() time.Time
}

type entry struct {
	expires time.Time
	payload Identity
}

// Client talks to the auth service. It is safe for concurrent use.
type Client struct {
	baseURL  string
	mePath   string
	ttl      time.Duration
	http     *http.Client
	logger   *slog.Logger
	observer Observer
	now      func() time.Time

	mu    sync.RWMutex
	cache map[string]entry
	group singleflight.Group
}

// New constructs a Client from opts, filling in defaults.
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "auth")
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	mePath := opts.MePath
	if mePath == "" {
		mePath = defaultMePath
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: &loggingTransport{base: http.DefaultTransport, logger: logger},
		}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		mePath:   mePath,
		ttl:      ttl,
		http:     httpClient,
		logger:   logger,
		observer: opts.Observer,
		now:      now,
		cache:    make(map[string]entry),
	}
}

// Resolve returns the identity behind token. A cached answer younger than the
// TTL is returned without a network call. Concurrent misses for the same token
// share one upstream request.
func (c *Client) Resolve(ctx context.Context, token string) (Identity, error) {
	if payload, ok := c.lookup(token); ok {
		c.observe("hit")
		return maps.Clone(payload), nil
	}
	c.observe("miss")
	ch := c.group.DoChan(token, func() (any, error) {
		if payload, ok := c.lookup(token); ok {
			return payload, nil
		}
		// The shared fetch must outlive any single waiter's cancellation.
		return c.fetch(context.WithoutCancel(ctx), token)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			c.observe("error")
			return nil, res.Err
		}
		return maps.Clone(res.Val.(Identity)), nil
	case <-ctx.Done():
		return nil, apperr.Wrap(apperr.ServiceUnavailable, "auth service unreachable", ctx.Err())
	}
}

func (c *Client) lookup(token string) (Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.cache[token]
	if !ok || !e.expires.After(c.now()) {
		return nil, false
	}
	return e.payload, true
}

func (c *Client) store(token string, payload Identity) {
	c.mu.Lock()
	c.cache[token] = entry{expires: c.now().Add(c.ttl), payload: payload}
	c.mu.Unlock()
}

func (c *Client) fetch(ctx context.Context, token string) (Identity, error) {
	tid := TokenDigest(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.mePath, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.ServiceUnavailable, "auth service unreachable", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("calling identity lookup", "token_id", tid)
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("network error on identity lookup", "token_id", tid, "error", err)
		return nil, apperr.Wrap(apperr.ServiceUnavailable, "auth service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBodyLen))
		c.logger.Warn("identity lookup rejected",
			"status", resp.StatusCode, "url", req.URL.String(), "body", string(body), "token_id", tid)
		return nil, statusError(resp.StatusCode, "invalid or expired token", "failed to validate token with auth service")
	}

	var payload Identity
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload == nil {
		if err == nil {
			err = errors.New("identity payload is not a JSON object")
		}
		c.logger.Error("undecodable identity payload", "token_id", tid, "error", err)
		return nil, apperr.Wrap(apperr.ServiceUnavailable, "failed to validate token with auth service", err)
	}
	c.store(token, payload)
	c.logger.Info("auth ok", "token_id", tid)
	return payload, nil
}

// Login exchanges credentials for the auth service's token response. The
// result is not cached.
func (c *Client) Login(ctx context.Context, username, password string) (map[string]any, error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, fmt.Errorf("marshal login: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.ServiceUnavailable, "auth service unreachable", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.ServiceUnavailable, "auth service unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, "invalid credentials", "auth service login failed")
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperr.Wrap(apperr.ServiceUnavailable, "auth service login failed", err)
	}
	return out, nil
}

// Close releases idle connections held by the HTTP client.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func (c *Client) observe(result string) {
	if c.observer != nil {
		c.observer.CacheLookup(result)
	}
}

func statusError(status int, unauthorizedMsg, unavailableMsg string) error {
	cause := fmt.Errorf("auth service returned status %d", status)
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return apperr.Wrap(apperr.Unauthorized, unauthorizedMsg, cause)
	}
	return apperr.Wrap(apperr.ServiceUnavailable, unavailableMsg, cause)
}

// loggingTransport logs each auth service exchange at debug level. The
// Authorization header is never logged.
type loggingTransport struct {
	base   http.RoundTripper
	logger *slog.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if !t.logger.Enabled(ctx, slog.LevelDebug) {
		return t.base.RoundTrip(req)
	}
	t.logger.Debug("auth request", "method", req.Method, "url", req.URL.String())
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	elapsed := time.Since(start)
	if err != nil {
		t.logger.Debug("auth request failed", "method", req.Method, "url", req.URL.String(),
			"duration_ms", elapsed.Milliseconds(), "error", err)
		return nil, err
	}
	data, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	t.logger.Debug("auth response", "method", req.Method, "url", req.URL.String(),
		"status", resp.StatusCode, "duration_ms", elapsed.Milliseconds(),
		"body", loggableBody(req.URL.Path, data))
	return resp, nil
}

// redactedKeys name response fields that carry credentials. Matching is
// case-insensitive.
var redactedKeys = map[string]bool{
	"access_token":  true,
	"refresh_token": true,
	"id_token":      true,
	"token":         true,
	"password":      true,
}

// loggableBody returns a truncated copy of an auth service response with
// credential fields masked. Login responses that cannot be parsed as a JSON
// object are dropped entirely, since there is no way to tell where the token
// sits in them.
func loggableBody(path string, data []byte) string {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err == nil && fields != nil {
		masked := false
		for k := range fields {
			if redactedKeys[strings.ToLower(k)] {
				fields[k] = "[redacted]"
				masked = true
			}
		}
		if masked {
			if out, err := json.Marshal(fields); err == nil {
				data = out
			}
		}
	} else if strings.HasSuffix(path, loginPath) {
		return fmt.Sprintf("[%d bytes omitted]", len(data))
	}
	if len(data) > maxLoggedBodyLen {
		data = data[:maxLoggedBodyLen]
	}
	return string(data)
}
