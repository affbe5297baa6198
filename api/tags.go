package api

import (
	"context"
	"fmt"
)

// GetTagsByCategories fetches the tag taxonomy, keyed by category. Some
// categories carry a nil tag list.
func (c *Client) GetTagsByCategories(ctx context.Context) (map[string][]string, error) {
	var resp TagsByCategoriesResponse
	if err := c.get(ctx, "/tags_by_categories", nil, &resp); err != nil {
		return nil, fmt.Errorf("get tags by categories: %w", err)
	}
	return resp.TagsByCategories, nil
}

// GetFiltersBySports fetches the sports filter taxonomy.
func (c *Client) GetFiltersBySports(ctx context.Context) (*FiltersBySportsResponse, error) {
	var resp FiltersBySportsResponse
	if err := c.get(ctx, "/filters_by_sports", nil, &resp); err != nil {
		return nil, fmt.Errorf("get filters by sports: %w", err)
	}
	return &resp, nil
}
