// Package scores supplies the five per-category scores attached to each
// ranking record. Detail-page scraping is not wired yet, so the fixed
// provider is the default; the HTTP client exists for a future score
// service and degrades to defaults on any failure.
package scores

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"FortuneScanner/internal/domain"
	"FortuneScanner/internal/ports"
)

// Fixed always returns the neutral default scores.
type Fixed struct{}

var _ ports.ScoreProvider = Fixed{}

// ScoresFor returns all-50 scores for any sign.
func (Fixed) ScoresFor(ctx context.Context, signKey string) (domain.Scores, error) {
	return domain.DefaultScores(), nil
}

// Client talks to an external score service over JSON POST.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.ScoreProvider = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// ScoresFor requests the sign's scores; out-of-range values are clamped so
// downstream invariants hold regardless of service behavior.
func (c *Client) ScoresFor(ctx context.Context, signKey string) (domain.Scores, error) {
	payload, err := json.Marshal(map[string]string{"sign_key": signKey})
	if err != nil {
		return domain.Scores{}, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.Scores{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Scores{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Scores{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var s domain.Scores
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return domain.Scores{}, fmt.Errorf("decode response: %w", err)
	}

	return clampScores(s), nil
}

func clampScores(s domain.Scores) domain.Scores {
	clamp := func(v int) int {
		if v < 0 {
			return 0
		}
		if v > 100 {
			return 100
		}
		return v
	}
	return domain.Scores{
		Total:  clamp(s.Total),
		Love:   clamp(s.Love),
		Study:  clamp(s.Study),
		Money:  clamp(s.Money),
		Health: clamp(s.Health),
	}
}
