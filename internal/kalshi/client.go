/**
 * @description
 * HTTP Client for the Kalshi trade API.
 * Fetches open markets for the ingestion cycle. The API is public for
 * read-only market data, so no authentication is attached.
 *
 * @dependencies
 * - net/http
 * - encoding/json
 * - backend/internal/config
 */

package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kalshi-pulse/backend/internal/config"
)

const (
	DefaultTimeout = 10 * time.Second
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		BaseURL: cfg.Kalshi.BaseURL,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// GetMarketsParams holds query parameters for fetching markets
type GetMarketsParams struct {
	Limit  int
	Status string // "open", "closed", "settled"
	Cursor string
}

// GetMarkets fetches a page of markets from the trade API
func (c *Client) GetMarkets(ctx context.Context, params GetMarketsParams) ([]Market, error) {
	u, err := url.Parse(fmt.Sprintf("%s/markets", c.BaseURL))
	if err != nil {
		return nil, err
	}

	q := u.Query()
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Status != "" {
		q.Set("status", params.Status)
	}
	if params.Cursor != "" {
		q.Set("cursor", params.Cursor)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kalshi api error: status %d", resp.StatusCode)
	}

	var result MarketsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return result.Markets, nil
}
