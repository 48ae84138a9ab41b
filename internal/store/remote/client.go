// Package remote reads insurance snapshots from another service over HTTP.
// The remote side must serve GET {base}/insurance as {"insurances": [...]}.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/dgallion1/insurtree/internal/engine"
	"github.com/dgallion1/insurtree/internal/store"
)

// Client is a read-only store.Store backed by a remote record service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *retryablehttp.Client
}

var _ store.Store = (*Client)(nil)

// Option tunes the client.
type Option func(*retryablehttp.Client)

// WithRetry sets the retry budget and the minimum wait between attempts.
func WithRetry(maxRetries int, minWait time.Duration) Option {
	return func(c *retryablehttp.Client) {
		c.RetryMax = maxRetries
		c.RetryWaitMin = minWait
		c.RetryWaitMax = max(minWait, c.RetryWaitMax)
	}
}

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	hc := retryablehttp.NewClient()
	hc.Logger = nil
	hc.RetryMax = 3
	hc.HTTPClient.Timeout = 30 * time.Second
	// Hand the last response back so status codes can be classified.
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	for _, opt := range opts {
		opt(hc)
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, httpClient: hc}
}

type snapshotResponse struct {
	Insurances []engine.Record `json:"insurances"`
}

// Snapshot fetches every record from the remote service.
func (c *Client) Snapshot(ctx context.Context) ([]engine.Record, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/insurance", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &store.RetryableError{Op: "snapshot", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &store.RetryableError{
			Op:  "snapshot",
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody)),
		}
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("snapshot: status %d: %s", resp.StatusCode, string(respBody))
	}

	var out snapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return out.Insurances, nil
}

func (c *Client) Upsert(context.Context, []engine.Record) error  { return store.ErrReadOnly }
func (c *Client) Replace(context.Context, []engine.Record) error { return store.ErrReadOnly }
func (c *Client) Delete(context.Context, int64) error            { return store.ErrReadOnly }

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.HTTPClient.CloseIdleConnections()
	return nil
}
