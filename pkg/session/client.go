package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultRateLimitRetries is the 429 retry ceiling.
	DefaultRateLimitRetries = 3
	// DefaultBackoffBase seeds the exponential backoff between 429 retries.
	DefaultBackoffBase = 250 * time.Millisecond
)

// Client is the session manager: it owns the credential store, the
// validation cache, and the request pipeline that attaches the bearer token,
// unwraps envelopes, recovers once from a 401, and backs off on 429.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	store       CredentialStore
	cache       *ProfileCache
	log         *slog.Logger
	maxRetries  uint64
	backoffBase time.Duration

	recovering  singleflight.Group
	unsubscribe func()

	mu          sync.Mutex
	override    State
	hasOverride bool
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithCacheTTL sets the validation cache window.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.cache = NewProfileCache(ttl) }
}

// WithLogger attaches a structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithRateLimitRetries sets the 429 retry ceiling.
func WithRateLimitRetries(n uint64) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBackoffBase sets the first 429 backoff interval.
func WithBackoffBase(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.backoffBase = d
		}
	}
}

// NewClient builds a session client around a credential store. The client
// subscribes to the store so that a credential change from anywhere — this
// process or another one sharing the store — empties the validation cache.
func NewClient(baseURL string, store CredentialStore, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		store:       store,
		log:         slog.Default(),
		maxRetries:  DefaultRateLimitRetries,
		backoffBase: DefaultBackoffBase,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = NewProfileCache(DefaultCacheTTL)
	}

	c.unsubscribe = store.Subscribe(func(token string) {
		c.cache.Purge()
		c.clearOverrides()
	})
	return c
}

// Close detaches the client from its store's change notifications.
func (c *Client) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// State reports where the session currently stands. Derived, never persisted.
func (c *Client) State() State {
	c.mu.Lock()
	if c.hasOverride {
		st := c.override
		c.mu.Unlock()
		return st
	}
	c.mu.Unlock()

	cred, err := c.store.Load()
	if err != nil || cred == "" {
		return StateUnauthenticated
	}
	if _, ok := c.cache.Get(cred); ok {
		return StateCachedFresh
	}
	return StateCachedStale
}

// Login authenticates and, on success, persists the credential and seeds the
// validation cache from the same response — no extra round trip.
func (c *Client) Login(ctx context.Context, email, password string) (Profile, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return Profile{}, fmt.Errorf("marshal login payload: %w", err)
	}

	res, err := c.exchange(ctx, http.MethodPost, "/auth/login", payload)
	if err != nil {
		return Profile{}, err
	}
	switch {
	case res.status == http.StatusUnauthorized:
		// Bad credentials. There is no session to end.
		return Profile{}, newError(ErrUnauthenticated, res.status, res.env.Error)
	case res.status >= 500:
		return Profile{}, newError(ErrTransient, res.status, res.env.Error)
	case !res.env.Success:
		return Profile{}, newError(ErrValidation, res.status, res.env.Error)
	}

	var data struct {
		User        Profile `json:"user"`
		AccessToken string  `json:"accessToken"`
	}
	if err := json.Unmarshal(res.env.Data, &data); err != nil || data.AccessToken == "" {
		return Profile{}, newError(ErrValidation, res.status, "login response missing access token")
	}

	if err := c.store.Save(data.AccessToken); err != nil {
		return Profile{}, fmt.Errorf("persist credential: %w", err)
	}
	// Save notified subscribers and purged the cache; seed it after.
	c.cache.Put(data.AccessToken, data.User)
	c.clearOverrides()
	return data.User, nil
}

// Logout clears the credential and the cache.
func (c *Client) Logout() error {
	c.cache.Purge()
	c.clearOverrides()
	return c.store.Clear()
}

// Profile returns the current user. Inside the cache TTL it answers without
// touching the network; past it, the profile is revalidated with the server.
func (c *Client) Profile(ctx context.Context) (Profile, error) {
	cred, err := c.store.Load()
	if err != nil || cred == "" {
		return Profile{}, newError(ErrUnauthenticated, 0, "not logged in")
	}
	if profile, ok := c.cache.Get(cred); ok {
		return profile, nil
	}

	c.setOverride(StateRevalidating)
	defer c.clearOverride(StateRevalidating)

	var profile Profile
	if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, &profile, false); err != nil {
		return Profile{}, err
	}
	c.cache.Put(cred, profile)
	return profile, nil
}

// Get performs an authenticated GET through the pipeline.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post performs an authenticated POST through the pipeline.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Do runs one logical request through the full pipeline: bearer attachment,
// 429 backoff, envelope unwrapping, and at most one 401 recovery.
func (c *Client) Do(ctx context.Context, httpMethod, path string, body, out any) error {
	payload, err := marshalBody(body)
	if err != nil {
		return err
	}
	return c.do(ctx, httpMethod, path, payload, out, false)
}

// do classifies a response and applies the recovery policy. The recovery flag
// is per-call: a 401 seen while recovery is true is terminal, which bounds
// the state machine at one recovery and one retry per logical request.
func (c *Client) do(ctx context.Context, httpMethod, path string, payload []byte, out any, recovery bool) error {
	res, err := c.exchange(ctx, httpMethod, path, payload)
	if err != nil {
		return err
	}

	switch {
	case res.status == http.StatusUnauthorized:
		if recovery {
			c.endSession()
			return newError(ErrUnauthenticated, res.status, res.env.Error)
		}
		if err := c.recoverSession(ctx); err != nil {
			return err
		}
		return c.do(ctx, httpMethod, path, payload, out, true)

	case res.status == http.StatusForbidden:
		// Permission denial is not evidence of a bad session.
		return newError(ErrForbidden, res.status, res.env.Error)

	case res.status >= 500:
		return newError(ErrTransient, res.status, res.env.Error)

	case !res.env.Success || res.status >= 400:
		return newError(ErrValidation, res.status, res.env.Error)
	}

	if out != nil && len(res.env.Data) > 0 {
		if err := json.Unmarshal(res.env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}

// recoverSession revalidates the current credential against the who-am-I
// endpoint, refreshing the cache on success. Concurrent recoveries for the
// same client collapse into one flight.
func (c *Client) recoverSession(ctx context.Context) error {
	_, err, _ := c.recovering.Do("recover", func() (any, error) {
		c.setOverride(StateRevalidating)
		defer c.clearOverride(StateRevalidating)

		var profile Profile
		if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, &profile, true); err != nil {
			return nil, err
		}
		if cred, loadErr := c.store.Load(); loadErr == nil {
			c.cache.Put(cred, profile)
		}
		c.log.Debug("session recovered after 401")
		return nil, nil
	})
	return err
}

// endSession discards the credential and cache after a terminal 401.
func (c *Client) endSession() {
	if err := c.store.Clear(); err != nil {
		c.log.Warn("clear credential failed", "error", err)
	}
	c.cache.Purge()
	c.setOverride(StateInvalid)
	c.log.Info("session ended: recovery failed")
}

type apiResponse struct {
	status int
	env    envelope
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}

// exchange performs the HTTP call with bearer attachment and 429 backoff.
// Network failures surface as transient without retry; 429 retries with
// exponential backoff up to the ceiling and then surfaces as rate limited.
func (c *Client) exchange(ctx context.Context, httpMethod, path string, payload []byte) (*apiResponse, error) {
	var out *apiResponse
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoffBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := c.send(ctx, httpMethod, path, payload)
		if err != nil {
			return newError(ErrTransient, 0, err.Error())
		}
		if res.status == http.StatusTooManyRequests {
			return retry.RetryableError(newError(ErrRateLimited, res.status, res.env.Error))
		}
		out = res
		return nil
	})
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, newError(ErrTransient, 0, err.Error())
	}
	return out, nil
}

// send performs exactly one HTTP exchange.
func (c *Client) send(ctx context.Context, httpMethod, path string, payload []byte) (*apiResponse, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, httpMethod, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// A missing credential is not an error here: the request goes out
	// unauthenticated and the server decides.
	if token, err := c.store.Load(); err == nil && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	res := &apiResponse{status: resp.StatusCode}
	// Proxies can emit non-envelope bodies for 429/5xx; tolerate them.
	if err := json.NewDecoder(resp.Body).Decode(&res.env); err != nil {
		res.env = envelope{Error: http.StatusText(resp.StatusCode)}
	}
	return res, nil
}

func marshalBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	return payload, nil
}

func (c *Client) setOverride(st State) {
	c.mu.Lock()
	c.override = st
	c.hasOverride = true
	c.mu.Unlock()
}

// clearOverride resets only if the override is still st, so a terminal
// Invalid set during recovery survives the deferred Revalidating reset.
func (c *Client) clearOverride(st State) {
	c.mu.Lock()
	if c.hasOverride && c.override == st {
		c.hasOverride = false
	}
	c.mu.Unlock()
}

func (c *Client) clearOverrides() {
	c.mu.Lock()
	c.hasOverride = false
	c.mu.Unlock()
}
