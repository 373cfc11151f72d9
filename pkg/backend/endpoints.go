package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v3"
	"go.uber.org/zap"
)

// ActiveStatus marks an agent in good standing
const ActiveStatus = 1

// Agent is the backend metadata for an agent token
type Agent struct {
	Address     string   `json:"address"`
	Name        string   `json:"name"`
	Ticker      string   `json:"ticker"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Creator     string   `json:"creator"`
	Status      int      `json:"status"`
	URLs        []string `json:"urls,omitempty"`
}

// Active reports whether the agent may be shown. Any other status is
// treated as a policy violation.
func (a *Agent) Active() bool {
	return a.Status == ActiveStatus
}

// Agent fetches agent metadata by token address
func (c *Client) Agent(ctx context.Context, address string) (*Agent, error) {
	var resp struct {
		Data Agent `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, c.url("/agents/"+url.PathEscape(address)), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return &resp.Data, nil
}

// Direction orders forum pages
type Direction string

const (
	Newest Direction = "desc"
	Oldest Direction = "asc"
)

// ForumMessage is one message posted on an agent forum
type ForumMessage struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	TxHash    string    `json:"txHash"`
	CreatedAt time.Time `json:"createdAt"`
}

// ForumMessages returns a page of messages for a token
func (c *Client) ForumMessages(ctx context.Context, token string, start, pageSize int, dir Direction) ([]ForumMessage, error) {
	q := url.Values{}
	q.Set("start", strconv.Itoa(start))
	q.Set("pageSize", strconv.Itoa(pageSize))
	if dir != "" {
		q.Set("direction", string(dir))
	}

	var resp struct {
		Data []ForumMessage `json:"data"`
	}
	path := c.url("/forum/" + url.PathEscape(token) + "/messages?" + q.Encode())
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get forum messages: %w", err)
	}
	return resp.Data, nil
}

// ForumCount returns the number of messages for a token
func (c *Client) ForumCount(ctx context.Context, token string) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, c.url("/forum/"+url.PathEscape(token)+"/count"), nil, &resp); err != nil {
		return 0, fmt.Errorf("failed to get forum count: %w", err)
	}
	return resp.Count, nil
}

// Conversion is the stored price and market cap of an agent token
type Conversion struct {
	Price     string    `json:"price"`
	MarketCap string    `json:"marketCap"`
	Currency  string    `json:"currency,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// ConversionLookup is the backend answer on a stored conversion
type ConversionLookup struct {
	NeedsUpdating bool `json:"needsUpdating"`
	Data          struct {
		Conversion *Conversion `json:"conversion"`
	} `json:"data"`
}

// LookupConversion asks whether the stored conversion for address is stale
func (c *Client) LookupConversion(ctx context.Context, address string) (*ConversionLookup, error) {
	var resp ConversionLookup
	req := map[string]string{"address": address}
	if err := c.do(ctx, http.MethodPost, c.url("/conversions/lookup"), req, &resp); err != nil {
		return nil, fmt.Errorf("failed to look up conversion: %w", err)
	}
	return &resp, nil
}

// UpdateConversion stores a freshly computed conversion, trying up to three times
func (c *Client) UpdateConversion(ctx context.Context, address string, conv Conversion) error {
	req := struct {
		Address    string     `json:"address"`
		Conversion Conversion `json:"conversion"`
	}{address, conv}

	attempt := 0
	op := func() error {
		attempt++
		return c.do(ctx, http.MethodPost, c.url("/conversions/update"), req, nil)
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("conversion update failed",
			zap.String("address", address),
			zap.Int("attempt", attempt),
			zap.Duration("retryIn", wait),
			zap.Error(err))
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.updateDelay), updateAttempts-1), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return fmt.Errorf("failed to update conversion after %d attempts: %w", attempt, err)
	}
	return nil
}

// FiatConversion returns the price of one unit of symbol in currency. Only
// HTTP 429 responses are retried, with a fixed delay between attempts.
func (c *Client) FiatConversion(ctx context.Context, symbol, currency string) (float64, error) {
	if c.fiatURL == "" {
		return 0, errors.New("fiat conversion endpoint not configured")
	}

	req := map[string]string{
		"symbol":   strings.ToUpper(symbol),
		"currency": strings.ToUpper(currency),
	}
	var resp struct {
		Price float64 `json:"price"`
	}

	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		err := c.do(ctx, http.MethodPost, c.fiatURL, req, &resp)
		if err == nil {
			return nil
		}
		if IsStatus(err, http.StatusTooManyRequests) {
			c.logger.Debug("fiat conversion rate limited, retrying", zap.String("symbol", symbol))
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), fiatRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return 0, fmt.Errorf("failed to get fiat conversion: %w", err)
	}
	return resp.Price, nil
}
