package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

)

type fakeSession struct {
	mu        sync.Mutex
	token     string
	refreshed int
	next      string
	err       error
}

func (s *fakeSession) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *fakeSession) Refresh(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshed++
	if s.err != nil {
		return s.err
	}
	s.token = s.next
	return nil
}

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeAPIError(w http.ResponseWriter, status int, code string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": code, "message": code})
}

func newTestClient(url string, session Session, opts ...Option) *Client {
	c := New(url, session, opts...)
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestListTransactionsDedupesWithinWindow(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("type") != "expense" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		writeEnvelope(w, http.StatusOK, []Transaction{{ID: "tx-1"}})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, &fakeSession{token: "t"})
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	c.clockNow = func() time.Time { return now }
	q := ListQuery{Type: "expense"}

	for i := 0; i < 3; i++ {
		got, err := c.ListTransactions(context.Background(), q)
		if err != nil {
			t.Fatalf("ListTransactions error: %v", err)
		}
		if len(got) != 1 || got[0].ID != "tx-1" {
			t.Fatalf("unexpected result: %+v", got)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 request, got %d", calls.Load())
	}

	now = now.Add(3 * time.Second)
	if _, err := c.ListTransactions(context.Background(), q); err != nil {
		t.Fatalf("ListTransactions error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected refetch after the window, got %d requests", calls.Load())
	}
}

func TestListTransactionsSharesInflightRequest(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		writeEnvelope(w, http.StatusOK, []Transaction{{ID: "tx-1"}})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, &fakeSession{token: "t"})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.ListTransactions(context.Background(), ListQuery{}); err != nil {
				t.Errorf("ListTransactions error: %v", err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected concurrent reads to share one request, got %d", calls.Load())
	}
}

func TestListTransactionsSurvivesFirstCallerCancel(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	arrived := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		arrived <- struct{}{}
		<-release
		writeEnvelope(w, http.StatusOK, []Transaction{{ID: "tx-1"}})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, &fakeSession{token: "t"})

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.ListTransactions(firstCtx, ListQuery{})
		firstErr <- err
	}()
	<-arrived

	second := make(chan []Transaction, 1)
	secondErr := make(chan error, 1)
	go func() {
		got, err := c.ListTransactions(context.Background(), ListQuery{})
		secondErr <- err
		second <- got
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("first caller error = %v, want context.Canceled", err)
	}

	close(release)
	if err := <-secondErr; err != nil {
		t.Fatalf("second caller error = %v", err)
	}
	if got := <-second; len(got) != 1 || got[0].ID != "tx-1" {
		t.Fatalf("second caller got %+v", got)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one shared request, got %d", calls.Load())
	}
}

func TestMutationInvalidatesCache(t *testing.T) {
	var lists atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			lists.Add(1)
			writeEnvelope(w, http.StatusOK, []Transaction{})
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, &fakeSession{token: "t"})
	ctx := context.Background()

	if _, err := c.ListTransactions(ctx, ListQuery{}); err != nil {
		t.Fatalf("ListTransactions error: %v", err)
	}
	if err := c.DeleteTransaction(ctx, "tx-1"); err != nil {
		t.Fatalf("DeleteTransaction error: %v", err)
	}
	if _, err := c.ListTransactions(ctx, ListQuery{}); err != nil {
		t.Fatalf("ListTransactions error: %v", err)
	}
	if lists.Load() != 2 {
		t.Fatalf("expected refetch after delete, got %d list requests", lists.Load())
	}

	if _, err := c.Revalidate(ctx, ListQuery{}); err != nil {
		t.Fatalf("Revalidate error: %v", err)
	}
	if lists.Load() != 3 {
		t.Fatalf("expected Revalidate to refetch, got %d list requests", lists.Load())
	}
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeAPIError(w, http.StatusServiceUnavailable, "service_unavailable")
			return
		}
		writeEnvelope(w, http.StatusOK, Transaction{ID: "tx-1"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, &fakeSession{token: "t"})
	var waits []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	got, err := c.GetTransaction(context.Background(), "tx-1")
	if err != nil {
		t.Fatalf("GetTransaction error: %v", err)
	}
	if got.ID != "tx-1" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if len(waits) != 2 || waits[0] != 500*time.Millisecond || waits[1] != time.Second {
		t.Fatalf("unexpected backoff: %v", waits)
	}
}

func TestRetryGivesUpWithAPIError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeAPIError(w, http.StatusInternalServerError, "internal_error")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, &fakeSession{token: "t"})
	_, err := c.ListTransactions(context.Background(), ListQuery{})

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("expected APIError 500, got %v", err)
	}
	if calls.Load() != defaultMaxAttempts {
		t.Fatalf("expected %d attempts, got %d", defaultMaxAttempts, calls.Load())
	}
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "invalid_input", "message": "amount is required", "field": "amount"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, &fakeSession{token: "t"})
	_, err := c.UpdateTransaction(context.Background(), "tx-1", TransactionRequest{})

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Field != "amount" {
		t.Fatalf("expected field error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("4xx must not be retried, got %d calls", calls.Load())
	}
}

func TestPostIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeAPIError(w, http.StatusBadGateway, "service_unavailable")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, &fakeSession{token: "t"})
	if _, err := c.PayInstallment(context.Background(), "tx-1"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("POST must not be retried, got %d calls", calls.Load())
	}
}

func TestSessionRefreshedOnceOn401(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			writeAPIError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeEnvelope(w, http.StatusOK, []Transaction{})
	}))
	defer srv.Close()

	session := &fakeSession{token: "stale", next: "fresh"}
	c := newTestClient(srv.URL, session)

	if _, err := c.ListTransactions(context.Background(), ListQuery{}); err != nil {
		t.Fatalf("ListTransactions error: %v", err)
	}
	if session.refreshed != 1 {
		t.Fatalf("expected one refresh, got %d", session.refreshed)
	}
}

func TestSecond401RequiresReauth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusUnauthorized, "unauthorized")
	}))
	defer srv.Close()

	session := &fakeSession{token: "stale", next: "still-bad"}
	c := newTestClient(srv.URL, session)

	_, err := c.ListTransactions(context.Background(), ListQuery{})
	if !errors.Is(err, ErrReauthRequired) {
		t.Fatalf("expected ErrReauthRequired, got %v", err)
	}
	if session.refreshed != 1 {
		t.Fatalf("expected exactly one refresh, got %d", session.refreshed)
	}
}

func TestRefreshFailureRequiresReauth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusUnauthorized, "unauthorized")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, &fakeSession{token: "stale", err: errors.New("revoked")})
	if err := c.DeleteTransaction(context.Background(), "tx-1"); !errors.Is(err, ErrReauthRequired) {
		t.Fatalf("expected ErrReauthRequired, got %v", err)
	}
}

func TestExportCSVReturnsRawBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions/export" || r.URL.Query().Get("from") != "2025-01-01" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("Date,Description\n"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, &fakeSession{token: "t"})
	got, err := c.ExportCSV(context.Background(), ListQuery{From: "2025-01-01"})
	if err != nil {
		t.Fatalf("ExportCSV error: %v", err)
	}
	if string(got) != "Date,Description\n" {
		t.Fatalf("body = %q", got)
	}
}

func TestFirebaseSessionRefresh(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "rt-1" {
			t.Errorf("unexpected form: %v", r.Form)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-1",
			"id_token":      "id-1",
			"refresh_token": "rt-1",
			"expires_in":    3600,
			"token_type":    "Bearer",
		})
	}))
	defer srv.Close()

	s := newFirebaseSession(srv.URL, "rt-1", srv.Client())
	ctx := context.Background()

	tok, err := s.Token(ctx)
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if tok != "id-1" {
		t.Fatalf("token = %q, want id-1", tok)
	}
	if _, err := s.Token(ctx); err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("valid token should be cached, got %d refreshes", calls.Load())
	}

	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("Refresh should always hit the token endpoint")
	}
}
