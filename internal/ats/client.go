package ats

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/orbitdata/companycrawl/internal/ratelimit"
)

// maxAPIBody caps how much of a platform API response is read.
const maxAPIBody = 8 << 20

// Client calls the public job-listing APIs of ATS platforms. API calls go
// through the shared per-domain limiter like every other request.
type Client struct {
	http      *http.Client
	limiter   *ratelimit.Limiter
	userAgent string
}

// NewClient builds a Client with the shared limiter.
func NewClient(userAgent string, timeout time.Duration, limiter *ratelimit.Limiter) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		limiter:   limiter,
		userAgent: userAgent,
	}
}

// GetJSON fetches rawURL and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	if err := c.limiter.Wait(ctx, rawURL); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("new api request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api request %s: status %d", rawURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIBody))
	if err != nil {
		return fmt.Errorf("read api body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode api body: %w", err)
	}
	return nil
}
