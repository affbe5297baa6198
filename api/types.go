package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// MarketStatus is the lifecycle status of a market, event, or series.
type MarketStatus string

const (
	StatusInitialized MarketStatus = "initialized"
	StatusActive      MarketStatus = "active"
	StatusInactive    MarketStatus = "inactive"
	StatusClosed      MarketStatus = "closed"
	StatusDetermined  MarketStatus = "determined"
	StatusFinalized   MarketStatus = "finalized"
)

// SortField selects the ordering of list results.
type SortField string

const (
	SortVolume       SortField = "volume"
	SortVolume24h    SortField = "volume_24h"
	SortLiquidity    SortField = "liquidity"
	SortOpenInterest SortField = "open_interest"
	SortStartDate    SortField = "start_date"
	SortScore        SortField = "score"
)

// SortOrder is the direction of a sorted listing.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// Cursor is an opaque pagination cursor. The API encodes it as a JSON
// number on some endpoints (markets, events) and as a string on others
// (trades); Cursor accepts both and an empty value means no next page.
type Cursor string

// UnmarshalJSON accepts string, number, or null cursor encodings.
func (c *Cursor) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Cursor(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("cursor: %w", err)
	}
	*c = Cursor(n.String())
	return nil
}

func (c Cursor) String() string {
	return string(c)
}

// MarketAccount holds the on-chain accounts backing a market.
type MarketAccount struct {
	YesMint          string `json:"yesMint"`
	NoMint           string `json:"noMint"`
	MarketLedger     string `json:"marketLedger"`
	RedemptionStatus string `json:"redemptionStatus"`
	ScalarOutcomePct *int   `json:"scalarOutcomePct,omitempty"`
}

// Market is a single trading instrument within an event. Quoted prices
// arrive as decimal strings; empty means no quote on that side.
type Market struct {
	Ticker              string                   `json:"ticker"`
	Title               string                   `json:"title"`
	Subtitle            string                   `json:"subtitle"`
	EventTicker         string                   `json:"eventTicker"`
	Status              MarketStatus             `json:"status"`
	Result              string                   `json:"result"`
	MarketType          string                   `json:"marketType"`
	YesSubTitle         string                   `json:"yesSubTitle"`
	NoSubTitle          string                   `json:"noSubTitle"`
	CanCloseEarly       bool                     `json:"canCloseEarly"`
	RulesPrimary        string                   `json:"rulesPrimary"`
	RulesSecondary      string                   `json:"rulesSecondary,omitempty"`
	EarlyCloseCondition string                   `json:"earlyCloseCondition,omitempty"`
	Volume              float64                  `json:"volume"`
	Liquidity           float64                  `json:"liquidity"`
	OpenInterest        float64                  `json:"openInterest"`
	OpenTime            int64                    `json:"openTime"`
	CloseTime           int64                    `json:"closeTime"`
	ExpirationTime      int64                    `json:"expirationTime"`
	YesAsk              string                   `json:"yesAsk,omitempty"`
	YesBid              string                   `json:"yesBid,omitempty"`
	NoAsk               string                   `json:"noAsk,omitempty"`
	NoBid               string                   `json:"noBid,omitempty"`
	Accounts            map[string]MarketAccount `json:"accounts"`
}

// YesPrice returns the YES quote as a float, or 0 when unquoted.
func (m *Market) YesPrice() float64 {
	v, _ := strconv.ParseFloat(m.YesBid, 64)
	return v
}

// NoPrice returns the NO quote as a float, or 0 when unquoted.
func (m *Market) NoPrice() float64 {
	v, _ := strconv.ParseFloat(m.NoBid, 64)
	return v
}

// MarketsResponse is one page of the markets listing.
type MarketsResponse struct {
	Cursor  Cursor   `json:"cursor"`
	Markets []Market `json:"markets"`
}

// NextCursor returns the cursor for the following page, empty when the
// listing is exhausted.
func (r *MarketsResponse) NextCursor() string {
	return string(r.Cursor)
}

// SettlementSource names an external source used to settle an event.
type SettlementSource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Event groups related markets under one question.
type Event struct {
	Ticker            string             `json:"ticker"`
	Title             string             `json:"title"`
	Subtitle          string             `json:"subtitle"`
	SeriesTicker      string             `json:"seriesTicker"`
	Competition       string             `json:"competition,omitempty"`
	CompetitionScope  string             `json:"competitionScope,omitempty"`
	ImageURL          string             `json:"imageUrl,omitempty"`
	StrikeDate        int64              `json:"strikeDate,omitempty"`
	StrikePeriod      string             `json:"strikePeriod,omitempty"`
	MutuallyExclusive bool               `json:"mutuallyExclusive,omitempty"`
	Liquidity         float64            `json:"liquidity,omitempty"`
	OpenInterest      float64            `json:"openInterest,omitempty"`
	Volume            float64            `json:"volume,omitempty"`
	Volume24h         float64            `json:"volume24h,omitempty"`
	SettlementSources []SettlementSource `json:"settlementSources,omitempty"`
	Markets           []Market           `json:"markets,omitempty"`
}

// EventsResponse is one page of the events listing.
type EventsResponse struct {
	Cursor Cursor  `json:"cursor"`
	Events []Event `json:"events"`
}

func (r *EventsResponse) NextCursor() string {
	return string(r.Cursor)
}

// Trade is a single executed trade. Prices are in cents (0 to 100).
type Trade struct {
	TradeID         string `json:"tradeId"`
	Ticker          string `json:"ticker"`
	TakerSide       string `json:"takerSide"` // "yes" or "no"
	Price           int    `json:"price"`
	YesPrice        int    `json:"yesPrice"`
	NoPrice         int    `json:"noPrice"`
	YesPriceDollars string `json:"yesPriceDollars"`
	NoPriceDollars  string `json:"noPriceDollars"`
	Count           int    `json:"count"`
	CreatedTime     int64  `json:"createdTime"`
}

// TradesResponse is one page of the trades listing. The cursor is the
// trade id to resume from.
type TradesResponse struct {
	Cursor Cursor  `json:"cursor"`
	Trades []Trade `json:"trades"`
}

func (r *TradesResponse) NextCursor() string {
	return string(r.Cursor)
}

// Series is a template for recurring events.
type Series struct {
	Ticker                 string             `json:"ticker"`
	Title                  string             `json:"title"`
	Category               string             `json:"category"`
	Tags                   []string           `json:"tags"`
	Frequency              string             `json:"frequency"`
	FeeType                string             `json:"feeType"`
	FeeMultiplier          float64            `json:"feeMultiplier"`
	ContractTermsURL       string             `json:"contractTermsUrl"`
	ContractURL            string             `json:"contractUrl"`
	AdditionalProhibitions []string           `json:"additionalProhibitions"`
	SettlementSources      []SettlementSource `json:"settlementSources"`
	ProductMetadata        json.RawMessage    `json:"productMetadata,omitempty"`
}

// SeriesResponse wraps the series listing.
type SeriesResponse struct {
	Series []Series `json:"series"`
}

// Candlestick is one OHLCV data point.
type Candlestick struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// CandlestickParams selects the range and resolution of candlestick
// queries. PeriodInterval is in minutes and must be 1, 60, or 1440.
type CandlestickParams struct {
	StartTs        int64
	EndTs          int64
	PeriodInterval int
}

// OrderbookLevel is a single price level.
type OrderbookLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// Orderbook is a resting-order snapshot for a market. The wire format
// maps decimal price strings to quantities.
type Orderbook struct {
	YesBids  map[string]int `json:"yes_bids"`
	NoBids   map[string]int `json:"no_bids"`
	Sequence int64          `json:"sequence"`
}

// YesLevels returns the YES bids as levels sorted best (highest) first.
func (o *Orderbook) YesLevels() []OrderbookLevel {
	return sortLevels(o.YesBids)
}

// NoLevels returns the NO bids as levels sorted best (highest) first.
func (o *Orderbook) NoLevels() []OrderbookLevel {
	return sortLevels(o.NoBids)
}

func sortLevels(bids map[string]int) []OrderbookLevel {
	levels := make([]OrderbookLevel, 0, len(bids))
	for price, qty := range bids {
		p, err := strconv.ParseFloat(price, 64)
		if err != nil {
			continue
		}
		levels = append(levels, OrderbookLevel{Price: p, Quantity: float64(qty)})
	}
	sort.Slice(levels, func(i, j int) bool {
		return levels[i].Price > levels[j].Price
	})
	return levels
}

// LiveDataMilestone is one real-time progress indicator.
type LiveDataMilestone struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Value     json.RawMessage `json:"value,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// LiveData carries the milestones attached to an event or market.
type LiveData struct {
	EventTicker string              `json:"eventTicker,omitempty"`
	Milestones  []LiveDataMilestone `json:"milestones"`
}

// LiveDataResponse wraps the live data listing.
type LiveDataResponse struct {
	Data []LiveData `json:"data"`
}

// SearchResult holds events matching a search query.
type SearchResult struct {
	Cursor Cursor  `json:"cursor"`
	Events []Event `json:"events"`
}

// TagsByCategoriesResponse maps category names to their tags. A
// category may carry a null tag list.
type TagsByCategoriesResponse struct {
	TagsByCategories map[string][]string `json:"tagsByCategories"`
}

// CompetitionScopes lists the scopes of one competition.
type CompetitionScopes struct {
	Scopes []string `json:"scopes"`
}

// SportFilter holds the filtering options for one sport.
type SportFilter struct {
	Scopes       []string                     `json:"scopes,omitempty"`
	Competitions map[string]CompetitionScopes `json:"competitions,omitempty"`
}

// FiltersBySportsResponse maps sport names to their filters, with a
// display ordering.
type FiltersBySportsResponse struct {
	FiltersBySports map[string]SportFilter `json:"filtersBySports"`
	SportOrdering   []string               `json:"sportOrdering"`
}
