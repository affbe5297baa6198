package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/dflow-protocol/dflow-go/paginate"
)

// EventsParams filters the events listing.
type EventsParams struct {
	Status            MarketStatus
	SeriesTickers     []string // max 25
	WithNestedMarkets bool
	IsInitialized     *bool
	Sort              SortField
	Cursor            Cursor
	Limit             int
}

func (p EventsParams) query() url.Values {
	q := url.Values{}
	if p.Status != "" {
		q.Set("status", string(p.Status))
	}
	if len(p.SeriesTickers) > 0 {
		q.Set("seriesTickers", strings.Join(p.SeriesTickers, ","))
	}
	if p.WithNestedMarkets {
		q.Set("withNestedMarkets", "true")
	}
	if p.IsInitialized != nil {
		q.Set("isInitialized", strconv.FormatBool(*p.IsInitialized))
	}
	if p.Sort != "" {
		q.Set("sort", string(p.Sort))
	}
	if p.Cursor != "" {
		q.Set("cursor", string(p.Cursor))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	return q
}

// GetEvents fetches a page of events.
func (c *Client) GetEvents(ctx context.Context, params EventsParams) (*EventsResponse, error) {
	var resp EventsResponse
	if err := c.get(ctx, "/events", params.query(), &resp); err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}
	return &resp, nil
}

// AllEvents returns a lazy iterator over every event matching the
// params. Cursor and Limit on params are ignored.
func (c *Client) AllEvents(params EventsParams) *paginate.Iterator[Event] {
	fetch := func(ctx context.Context, page paginate.Page) (*EventsResponse, error) {
		p := params
		p.Cursor = Cursor(page.Cursor)
		p.Limit = page.Limit
		return c.GetEvents(ctx, p)
	}
	return paginate.New(fetch, paginate.Options[*EventsResponse, Event]{
		Items: func(r *EventsResponse) []Event { return r.Events },
	})
}

// GetEvent fetches a single event by ticker, optionally with its
// markets nested in the response.
func (c *Client) GetEvent(ctx context.Context, ticker string, withNestedMarkets bool) (*Event, error) {
	var q url.Values
	if withNestedMarkets {
		q = url.Values{"withNestedMarkets": {"true"}}
	}

	var e Event
	if err := c.get(ctx, "/event/"+ticker, q, &e); err != nil {
		return nil, fmt.Errorf("get event %s: %w", ticker, err)
	}
	return &e, nil
}

// GetEventCandlesticks fetches OHLCV history aggregated at the event
// level.
func (c *Client) GetEventCandlesticks(ctx context.Context, ticker string, params CandlestickParams) ([]Candlestick, error) {
	var resp struct {
		Candlesticks []Candlestick `json:"candlesticks"`
	}
	if err := c.get(ctx, "/event/"+ticker+"/candlesticks", params.query(), &resp); err != nil {
		return nil, fmt.Errorf("get event candlesticks %s: %w", ticker, err)
	}
	return resp.Candlesticks, nil
}
