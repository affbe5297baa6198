package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/dflow-protocol/dflow-go/paginate"
)

// TradesParams filters the trades listing. MinTs and MaxTs are Unix
// timestamps in seconds.
type TradesParams struct {
	Ticker string
	MinTs  int64
	MaxTs  int64
	Cursor Cursor
	Limit  int
}

func (p TradesParams) query() url.Values {
	q := url.Values{}
	if p.Ticker != "" {
		q.Set("ticker", p.Ticker)
	}
	if p.MinTs > 0 {
		q.Set("minTs", strconv.FormatInt(p.MinTs, 10))
	}
	if p.MaxTs > 0 {
		q.Set("maxTs", strconv.FormatInt(p.MaxTs, 10))
	}
	if p.Cursor != "" {
		q.Set("cursor", string(p.Cursor))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	return q
}

// GetTrades fetches a page of historical trades.
func (c *Client) GetTrades(ctx context.Context, params TradesParams) (*TradesResponse, error) {
	var resp TradesResponse
	if err := c.get(ctx, "/trades", params.query(), &resp); err != nil {
		return nil, fmt.Errorf("get trades: %w", err)
	}
	return &resp, nil
}

// AllTrades returns a lazy iterator over every trade matching the
// params. Cursor and Limit on params are ignored.
func (c *Client) AllTrades(params TradesParams) *paginate.Iterator[Trade] {
	fetch := func(ctx context.Context, page paginate.Page) (*TradesResponse, error) {
		p := params
		p.Cursor = Cursor(page.Cursor)
		p.Limit = page.Limit
		return c.GetTrades(ctx, p)
	}
	return paginate.New(fetch, paginate.Options[*TradesResponse, Trade]{
		Items: func(r *TradesResponse) []Trade { return r.Trades },
	})
}

// GetTradesByMint fetches trades for the market backed by the given
// mint address. The Ticker field on params is ignored.
func (c *Client) GetTradesByMint(ctx context.Context, mint string, params TradesParams) (*TradesResponse, error) {
	params.Ticker = ""
	var resp TradesResponse
	if err := c.get(ctx, "/trades/by-mint/"+mint, params.query(), &resp); err != nil {
		return nil, fmt.Errorf("get trades by mint %s: %w", mint, err)
	}
	return &resp, nil
}
