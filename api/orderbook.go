package api

import (
	"context"
	"fmt"
)

// GetOrderbook fetches the orderbook snapshot for a market.
func (c *Client) GetOrderbook(ctx context.Context, ticker string) (*Orderbook, error) {
	var ob Orderbook
	if err := c.get(ctx, "/orderbook/"+ticker, nil, &ob); err != nil {
		return nil, fmt.Errorf("get orderbook %s: %w", ticker, err)
	}
	return &ob, nil
}

// GetOrderbookByMint fetches the orderbook for the market backed by the
// given mint address.
func (c *Client) GetOrderbookByMint(ctx context.Context, mint string) (*Orderbook, error) {
	var ob Orderbook
	if err := c.get(ctx, "/orderbook/by-mint/"+mint, nil, &ob); err != nil {
		return nil, fmt.Errorf("get orderbook by mint %s: %w", mint, err)
	}
	return &ob, nil
}
