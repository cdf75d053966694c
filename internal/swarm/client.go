// Package swarm is the HTTP client for the market-intelligence service.
// Every call either succeeds or returns ErrUnavailable; callers never see
// partial results.
package swarm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnavailable covers any transport or remote error.
var ErrUnavailable = errors.New("swarm: service unavailable")

// Analysis is the full market-intelligence verdict for one token.
type Analysis struct {
	Ticker                 string  `json:"ticker"`
	Regime                 string  `json:"regime"`
	NarrativePhase         string  `json:"narrative_phase"`
	RiskScore              float64 `json:"risk_score"`
	Confidence             float64 `json:"confidence"`
	PositionRecommendation string  `json:"position_recommendation"`
	DivergenceDetected     bool    `json:"divergence_detected"`
}

// QueryResult is the answer to a free-form intelligence prompt.
type QueryResult struct {
	Answer         string `json:"answer"`
	NarrativePhase string `json:"narrative_phase"`
}

type Client struct {
	apiURL string
	apiKey string
	http   *http.Client
}

func NewClient(apiURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}
}

// AnalyzeToken runs the full analysis pipeline for a token.
func (c *Client) AnalyzeToken(ctx context.Context, ticker, address string) (*Analysis, error) {
	body := map[string]string{"ticker": ticker, "token_address": address}

	var out Analysis
	if err := c.post(ctx, "/api/analyze-token", body, &out); err != nil {
		return nil, err
	}
	if out.Ticker == "" {
		out.Ticker = ticker
	}
	return &out, nil
}

// Query asks the intelligence service a free-form question.
func (c *Client) Query(ctx context.Context, question, ticker string) (*QueryResult, error) {
	body := map[string]string{"question": question, "ticker": ticker}

	var out QueryResult
	if err := c.post(ctx, "/api/swarm/query", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
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
