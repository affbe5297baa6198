package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/dflow-protocol/dflow-go/paginate"
)

// MaxBatchSize caps the combined tickers and mints of one batch query.
const MaxBatchSize = 100

// MaxFilterAddresses caps the addresses of one FilterOutcomeMints call.
const MaxFilterAddresses = 200

// MarketsParams filters the markets listing.
type MarketsParams struct {
	Status        MarketStatus
	IsInitialized *bool
	Sort          SortField
	Tickers       []string
	EventTicker   string
	SeriesTicker  string
	MinCloseTs    int64
	MaxCloseTs    int64
	Cursor        Cursor
	Limit         int
}

func (p MarketsParams) query() url.Values {
	q := url.Values{}
	if p.Status != "" {
		q.Set("status", string(p.Status))
	}
	if p.IsInitialized != nil {
		q.Set("isInitialized", strconv.FormatBool(*p.IsInitialized))
	}
	if p.Sort != "" {
		q.Set("sort", string(p.Sort))
	}
	if len(p.Tickers) > 0 {
		q.Set("tickers", strings.Join(p.Tickers, ","))
	}
	if p.EventTicker != "" {
		q.Set("eventTicker", p.EventTicker)
	}
	if p.SeriesTicker != "" {
		q.Set("seriesTicker", p.SeriesTicker)
	}
	if p.MinCloseTs > 0 {
		q.Set("minCloseTs", strconv.FormatInt(p.MinCloseTs, 10))
	}
	if p.MaxCloseTs > 0 {
		q.Set("maxCloseTs", strconv.FormatInt(p.MaxCloseTs, 10))
	}
	if p.Cursor != "" {
		q.Set("cursor", string(p.Cursor))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	return q
}

// GetMarkets fetches a page of markets.
func (c *Client) GetMarkets(ctx context.Context, params MarketsParams) (*MarketsResponse, error) {
	var resp MarketsResponse
	if err := c.get(ctx, "/markets", params.query(), &resp); err != nil {
		return nil, fmt.Errorf("get markets: %w", err)
	}
	return &resp, nil
}

// AllMarkets returns a lazy iterator over every market matching the
// params. Cursor and Limit on params are ignored; the iterator manages
// pagination itself.
func (c *Client) AllMarkets(params MarketsParams) *paginate.Iterator[Market] {
	fetch := func(ctx context.Context, page paginate.Page) (*MarketsResponse, error) {
		p := params
		p.Cursor = Cursor(page.Cursor)
		p.Limit = page.Limit
		return c.GetMarkets(ctx, p)
	}
	return paginate.New(fetch, paginate.Options[*MarketsResponse, Market]{
		Items: func(r *MarketsResponse) []Market { return r.Markets },
	})
}

// GetMarket fetches a single market by ticker.
func (c *Client) GetMarket(ctx context.Context, ticker string) (*Market, error) {
	var m Market
	if err := c.get(ctx, "/market/"+ticker, nil, &m); err != nil {
		return nil, fmt.Errorf("get market %s: %w", ticker, err)
	}
	return &m, nil
}

// GetMarketByMint fetches the market backed by the given outcome token
// or ledger mint address.
func (c *Client) GetMarketByMint(ctx context.Context, mint string) (*Market, error) {
	var m Market
	if err := c.get(ctx, "/market/by-mint/"+mint, nil, &m); err != nil {
		return nil, fmt.Errorf("get market by mint %s: %w", mint, err)
	}
	return &m, nil
}

// GetMarketsBatch fetches several markets in one request, by tickers
// and/or mint addresses. The combined count must not exceed
// MaxBatchSize.
func (c *Client) GetMarketsBatch(ctx context.Context, tickers, mints []string) ([]Market, error) {
	if len(tickers)+len(mints) > MaxBatchSize {
		return nil, fmt.Errorf("batch size exceeds maximum of %d items", MaxBatchSize)
	}

	payload := struct {
		Tickers []string `json:"tickers"`
		Mints   []string `json:"mints"`
	}{
		Tickers: emptyIfNil(tickers),
		Mints:   emptyIfNil(mints),
	}

	var resp struct {
		Markets []Market `json:"markets"`
	}
	if err := c.post(ctx, "/markets/batch", payload, &resp); err != nil {
		return nil, fmt.Errorf("get markets batch: %w", err)
	}
	return resp.Markets, nil
}

// GetOutcomeMints fetches every outcome token mint address. A non-zero
// minCloseTs restricts the result to markets closing at or after it.
func (c *Client) GetOutcomeMints(ctx context.Context, minCloseTs int64) ([]string, error) {
	q := url.Values{}
	if minCloseTs > 0 {
		q.Set("minCloseTs", strconv.FormatInt(minCloseTs, 10))
	}

	var resp struct {
		Mints []string `json:"mints"`
	}
	if err := c.get(ctx, "/outcome_mints", q, &resp); err != nil {
		return nil, fmt.Errorf("get outcome mints: %w", err)
	}
	return resp.Mints, nil
}

// FilterOutcomeMints returns the subset of addresses that are outcome
// token mints. At most MaxFilterAddresses may be checked per call.
func (c *Client) FilterOutcomeMints(ctx context.Context, addresses []string) ([]string, error) {
	if len(addresses) > MaxFilterAddresses {
		return nil, fmt.Errorf("address count exceeds maximum of %d", MaxFilterAddresses)
	}

	payload := struct {
		Addresses []string `json:"addresses"`
	}{Addresses: emptyIfNil(addresses)}

	var resp struct {
		OutcomeMints []string `json:"outcomeMints"`
	}
	if err := c.post(ctx, "/filter_outcome_mints", payload, &resp); err != nil {
		return nil, fmt.Errorf("filter outcome mints: %w", err)
	}
	return resp.OutcomeMints, nil
}

// GetMarketCandlesticks fetches OHLCV history for a market.
func (c *Client) GetMarketCandlesticks(ctx context.Context, ticker string, params CandlestickParams) ([]Candlestick, error) {
	var resp struct {
		Candlesticks []Candlestick `json:"candlesticks"`
	}
	if err := c.get(ctx, "/market/"+ticker+"/candlesticks", params.query(), &resp); err != nil {
		return nil, fmt.Errorf("get candlesticks %s: %w", ticker, err)
	}
	return resp.Candlesticks, nil
}

// GetMarketCandlesticksByMint fetches OHLCV history for the market
// backed by the given mint address.
func (c *Client) GetMarketCandlesticksByMint(ctx context.Context, mint string, params CandlestickParams) ([]Candlestick, error) {
	var resp struct {
		Candlesticks []Candlestick `json:"candlesticks"`
	}
	if err := c.get(ctx, "/market/by-mint/"+mint+"/candlesticks", params.query(), &resp); err != nil {
		return nil, fmt.Errorf("get candlesticks by mint %s: %w", mint, err)
	}
	return resp.Candlesticks, nil
}

func (p CandlestickParams) query() url.Values {
	q := url.Values{}
	q.Set("startTs", strconv.FormatInt(p.StartTs, 10))
	q.Set("endTs", strconv.FormatInt(p.EndTs, 10))
	q.Set("periodInterval", strconv.Itoa(p.PeriodInterval))
	return q
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
