package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// LiveDataFilter narrows live data lookups by event or mint.
type LiveDataFilter struct {
	MinimumStartDate string // RFC3339
	Category         string
	Competition      string
	SourceID         string
	Type             string
}

func (f LiveDataFilter) query() url.Values {
	q := url.Values{}
	if f.MinimumStartDate != "" {
		q.Set("minimumStartDate", f.MinimumStartDate)
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Competition != "" {
		q.Set("competition", f.Competition)
	}
	if f.SourceID != "" {
		q.Set("sourceId", f.SourceID)
	}
	if f.Type != "" {
		q.Set("type", f.Type)
	}
	return q
}

// GetLiveData fetches live milestone data for the given milestone ids
// (max 100 per call).
func (c *Client) GetLiveData(ctx context.Context, milestoneIDs []string) ([]LiveData, error) {
	q := url.Values{"milestoneIds": {strings.Join(milestoneIDs, ",")}}

	var resp LiveDataResponse
	if err := c.get(ctx, "/live_data", q, &resp); err != nil {
		return nil, fmt.Errorf("get live data: %w", err)
	}
	return resp.Data, nil
}

// GetLiveDataByEvent fetches live data for one event.
func (c *Client) GetLiveDataByEvent(ctx context.Context, eventTicker string, filter LiveDataFilter) (*LiveData, error) {
	var d LiveData
	if err := c.get(ctx, "/live_data/by-event/"+eventTicker, filter.query(), &d); err != nil {
		return nil, fmt.Errorf("get live data for event %s: %w", eventTicker, err)
	}
	return &d, nil
}

// GetLiveDataByMint fetches live data for the market backed by the
// given mint address.
func (c *Client) GetLiveDataByMint(ctx context.Context, mint string, filter LiveDataFilter) (*LiveData, error) {
	var d LiveData
	if err := c.get(ctx, "/live_data/by-mint/"+mint, filter.query(), &d); err != nil {
		return nil, fmt.Errorf("get live data by mint %s: %w", mint, err)
	}
	return &d, nil
}
