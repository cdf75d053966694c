// Package pumpfun is the HTTP client for the token launchpad. It polls the
// public API for fresh launches and bonding-curve state. Calls either
// succeed or return ErrUnavailable; an empty launch window is a success.
package pumpfun

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

var ErrUnavailable = errors.New("pumpfun: service unavailable")

// LaunchEvent is one freshly deployed token.
type LaunchEvent struct {
	TokenAddress string    `json:"token_address"`
	Ticker       string    `json:"ticker"`
	MintAddress  string    `json:"mint_address"`
	Creator      string    `json:"creator"`
	InitialPrice float64   `json:"price_at_discovery"`
	DiscoveredAt time.Time `json:"discovered_at"`
	BondingCurve string    `json:"bonding_curve_address"`
}

// TokenMetrics is the live state of a tracked token.
type TokenMetrics struct {
	Price         float64 `json:"price"`
	MarketCap     float64 `json:"market_cap"`
	Volume24h     float64 `json:"volume_24h"`
	Holders       int     `json:"holders"`
	CurveProgress float64 `json:"progress_pct"`
}

type Client struct {
	apiBase string
	http    *http.Client

	// Dedup cache so the same launch is not reported twice across polls.
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewClient(apiBase string, timeout time.Duration) *Client {
	return &Client{
		apiBase: apiBase,
		http:    &http.Client{Timeout: timeout},
		seen:    make(map[string]struct{}),
	}
}

// DetectLaunches returns tokens deployed within the lookback window.
// An empty result is normal and not an error.
func (c *Client) DetectLaunches(ctx context.Context, window time.Duration) ([]LaunchEvent, error) {
	since := time.Now().Add(-window).Unix()

	q := url.Values{}
	q.Set("limit", "50")
	q.Set("since", strconv.FormatInt(since, 10))

	var raw []LaunchEvent
	if err := c.get(ctx, "/tokens/new?"+q.Encode(), &raw); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var fresh []LaunchEvent
	for _, ev := range raw {
		if ev.TokenAddress == "" {
			continue
		}
		if _, ok := c.seen[ev.TokenAddress]; ok {
			continue
		}
		c.seen[ev.TokenAddress] = struct{}{}
		fresh = append(fresh, ev)
	}

	// Keep the dedup cache from growing without bound.
	if len(c.seen) > 10000 {
		c.seen = make(map[string]struct{})
	}

	return fresh, nil
}

// CurveProgress returns how far along the bonding curve a token is (0-100).
func (c *Client) CurveProgress(ctx context.Context, address string) (float64, error) {
	var m TokenMetrics
	if err := c.get(ctx, "/tokens/"+url.PathEscape(address)+"/curve", &m); err != nil {
		return 0, err
	}
	return m.CurveProgress, nil
}

// TokenMetrics returns the current market state of a token.
func (c *Client) TokenMetrics(ctx context.Context, address string) (*TokenMetrics, error) {
	var m TokenMetrics
	if err := c.get(ctx, "/tokens/"+url.PathEscape(address)+"/metrics", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: bad response: %v", ErrUnavailable, err)
	}
	return nil
}
