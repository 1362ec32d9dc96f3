package client

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/GregMSThompson/finance-ledger/internal/models"
)

func encodeQuery(q ListQuery) string {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("type", q.Type)
	set("from", q.From)
	set("to", q.To)
	set("category", q.Category)
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v.Encode()
}

// ListTransactions returns the caller's transactions. Identical calls within
// the dedupe window share one request and its result. The shared request is
// not tied to any one caller, so a caller giving up only stops its own wait.
func (c *Client) ListTransactions(ctx context.Context, q ListQuery) ([]Transaction, error) {
	key := encodeQuery(q)

	c.mu.Lock()
	entry, ok := c.cache[key]
	gen := c.gen
	c.mu.Unlock()
	if ok && c.clockNow().Sub(entry.fetched) < c.dedupe {
		return slices.Clone(entry.txs), nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		var txs []models.Transaction
		path := "/transactions"
		if key != "" {
			path += "?" + key
		}
		if err := c.do(fetchCtx, http.MethodGet, path, nil, &txs); err != nil {
			return nil, err
		}

		c.mu.Lock()
		// a mutation in the meantime makes this result stale
		if c.gen == gen && c.dedupe > 0 {
			c.cache[key] = cacheEntry{txs: txs, fetched: c.clockNow()}
		}
		c.mu.Unlock()
		return txs, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]models.Transaction)), nil
	}
}

// Revalidate drops cached results and fetches q again. Call it when the
// consumer regains focus or connectivity.
func (c *Client) Revalidate(ctx context.Context, q ListQuery) ([]Transaction, error) {
	c.invalidate()
	return c.ListTransactions(ctx, q)
}

func (c *Client) invalidate() {
	c.mu.Lock()
	clear(c.cache)
	c.gen++
	c.mu.Unlock()
}

func (c *Client) CreateTransaction(ctx context.Context, req TransactionRequest) (Transaction, error) {
	var out Transaction
	err := c.mutate(ctx, http.MethodPost, "/transactions", req, &out)
	return out, err
}

func (c *Client) QuickAdd(ctx context.Context, req QuickAddRequest) (Transaction, error) {
	var out Transaction
	err := c.mutate(ctx, http.MethodPost, "/transactions/quick", req, &out)
	return out, err
}

func (c *Client) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	var out Transaction
	err := c.do(ctx, http.MethodGet, "/transactions/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) UpdateTransaction(ctx context.Context, id string, req TransactionRequest) (Transaction, error) {
	var out Transaction
	err := c.mutate(ctx, http.MethodPut, "/transactions/"+url.PathEscape(id), req, &out)
	return out, err
}

func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	return c.mutate(ctx, http.MethodDelete, "/transactions/"+url.PathEscape(id), nil, nil)
}

func (c *Client) PayInstallment(ctx context.Context, id string) (PayInstallmentResult, error) {
	var out PayInstallmentResult
	err := c.mutate(ctx, http.MethodPost, "/transactions/"+url.PathEscape(id)+"/installments", nil, &out)
	return out, err
}

// ExportCSV returns the raw CSV export for q.
func (c *Client) ExportCSV(ctx context.Context, q ListQuery) ([]byte, error) {
	var out []byte
	path := "/transactions/export"
	if key := encodeQuery(q); key != "" {
		path += "?" + key
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) Overview(ctx context.Context) (Overview, error) {
	var out Overview
	err := c.do(ctx, http.MethodGet, "/reports/summary", nil, &out)
	return out, err
}

// mutate invalidates the list cache whether or not the call succeeded; a
// failed request may still have been applied server side.
func (c *Client) mutate(ctx context.Context, method, path string, body, out any) error {
	defer c.invalidate()
	return c.do(ctx, method, path, body, out)
}
