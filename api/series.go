package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SeriesParams filters the series listing.
type SeriesParams struct {
	Category      string
	Tags          []string
	IsInitialized *bool
	Status        MarketStatus
}

func (p SeriesParams) query() url.Values {
	q := url.Values{}
	if p.Category != "" {
		q.Set("category", p.Category)
	}
	if len(p.Tags) > 0 {
		q.Set("tags", strings.Join(p.Tags, ","))
	}
	if p.IsInitialized != nil {
		q.Set("isInitialized", strconv.FormatBool(*p.IsInitialized))
	}
	if p.Status != "" {
		q.Set("status", string(p.Status))
	}
	return q
}

// GetSeries fetches every series matching the params. The listing is
// not paginated.
func (c *Client) GetSeries(ctx context.Context, params SeriesParams) ([]Series, error) {
	var resp SeriesResponse
	if err := c.get(ctx, "/series", params.query(), &resp); err != nil {
		return nil, fmt.Errorf("get series: %w", err)
	}
	return resp.Series, nil
}

// GetSeriesByTicker fetches a single series.
func (c *Client) GetSeriesByTicker(ctx context.Context, ticker string) (*Series, error) {
	var s Series
	if err := c.get(ctx, "/series/"+ticker, nil, &s); err != nil {
		return nil, fmt.Errorf("get series %s: %w", ticker, err)
	}
	return &s, nil
}
