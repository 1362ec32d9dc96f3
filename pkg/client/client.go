// Package client is a Go client for the ledger API. It deduplicates list
// reads, retries transient failures and refreshes the caller's session once
// on an authorization failure.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/GregMSThompson/finance-ledger/internal/models"
)

const (
	defaultDedupeWindow = 2 * time.Second
	defaultMaxAttempts  = 3
	defaultBaseBackoff  = 500 * time.Millisecond
	defaultMaxBackoff   = 2 * time.Second
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("api: %d %s: %s (field %s)", e.Status, e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type cacheEntry struct {
	txs     []models.Transaction
	fetched time.Time
}

type Client struct {
	baseURL     string
	http        *http.Client
	session     Session
	dedupe      time.Duration
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	clockNow    func() time.Time

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]cacheEntry
	gen   uint64
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithDedupeWindow sets how long a list result is reused. Zero disables
// caching; concurrent identical reads still share one request.
func WithDedupeWindow(d time.Duration) Option {
	return func(c *Client) { c.dedupe = d }
}

func WithRetry(maxAttempts int, base, max time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		c.baseBackoff = base
		c.maxBackoff = max
	}
}

func New(baseURL string, session Session, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Timeout: 60 * time.Second},
		session:     session,
		dedupe:      defaultDedupeWindow,
		maxAttempts: defaultMaxAttempts,
		baseBackoff: defaultBaseBackoff,
		maxBackoff:  defaultMaxBackoff,
		sleep:       sleepCtx,
		clockNow:    time.Now,
		cache:       make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do runs one API call through the session decorator and the retry loop.
// out may be nil, a *[]byte for raw bodies, or a value the envelope's data
// is decoded into.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	return c.withSession(ctx, func(token string) error {
		send := func() error { return c.send(ctx, method, path, token, payload, out) }
		// POST is not idempotent; a retried create could record twice
		if method == http.MethodPost {
			return send()
		}
		return c.withRetry(ctx, send)
	})
}

func (c *Client) send(ctx context.Context, method, path, token string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = "http_error"
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if raw, ok := out.(*[]byte); ok {
		if *raw, err = io.ReadAll(resp.Body); err != nil {
			return &transportError{err: err}
		}
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// transportError marks failures where no HTTP response was received.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "transport: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500
	}
	var te *transportError
	if errors.As(err, &te) {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return false
}

// withRetry makes up to maxAttempts calls, sleeping base, 2×base, … (capped
// at maxBackoff) between them.
func (c *Client) withRetry(ctx context.Context, call func() error) error {
	wait := c.baseBackoff
	for attempt := 1; ; attempt++ {
		err := call()
		if err == nil || !retryable(err) || attempt >= c.maxAttempts {
			return err
		}
		if serr := c.sleep(ctx, wait); serr != nil {
			return serr
		}
		wait = min(wait*2, c.maxBackoff)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
