package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// SearchParams drives a full-text search over events and markets.
// Query is required.
type SearchParams struct {
	Query              string
	Sort               SortField
	Order              SortOrder
	Status             MarketStatus
	WithNestedMarkets  bool
	WithMarketAccounts bool
	Cursor             Cursor
	Limit              int
}

func (p SearchParams) query() url.Values {
	q := url.Values{}
	q.Set("q", p.Query)
	if p.Sort != "" {
		q.Set("sort", string(p.Sort))
	}
	if p.Order != "" {
		q.Set("order", string(p.Order))
	}
	if p.Status != "" {
		q.Set("status", string(p.Status))
	}
	if p.WithNestedMarkets {
		q.Set("withNestedMarkets", "true")
	}
	if p.WithMarketAccounts {
		q.Set("withMarketAccounts", "true")
	}
	if p.Cursor != "" {
		q.Set("cursor", string(p.Cursor))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	return q
}

// Search finds events with nested markets matching the query string.
func (c *Client) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.Query == "" {
		return nil, fmt.Errorf("search: query is required")
	}

	var resp SearchResult
	if err := c.get(ctx, "/search", params.query(), &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", params.Query, err)
	}
	return &resp, nil
}
