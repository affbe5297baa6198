package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client streams real-time market updates over a single WebSocket
// connection. It owns at most one live transport at a time, reconnects
// on unexpected drops at a fixed interval up to a configured cap, and
// replays the subscription set onto each fresh connection.
//
// Wildcard and explicit-ticker subscriptions on the same channel are
// last-write-wins: subscribing all markets discards an explicit set, and
// an explicit subscribe after a wildcard drops the wildcard.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	conn     *conn
	gen      int // bumped on every connect/disconnect; stale handles check it
	attempts int // consecutive reconnects since last successful open
	noReopen bool
	reg      *registry

	cbMu         sync.Mutex
	nextCBID     int
	priceCBs     []callback[PriceUpdate]
	tradeCBs     []callback[TradeUpdate]
	orderbookCBs []callback[OrderbookUpdate]
	errorCBs     []callback[error]
	closeCBs     []callback[struct{}]
}

// NewClient creates a streaming client. Zero config fields fall back to
// DefaultConfig values; a nil logger falls back to slog.Default().
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg.withDefaults(),
		logger: logger,
		state:  StateIdle,
		reg:    newRegistry(),
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the connection is open.
func (c *Client) IsConnected() bool {
	return c.State() == StateOpen
}

// Connect opens the connection. It is a no-op when already open or
// connecting. A dial failure is returned and also surfaced to error
// listeners; it does not start the reconnect cycle.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateOpen || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	nc, err := dialConn(ctx, c.cfg, c.logger)

	c.mu.Lock()
	if gen != c.gen {
		// Disconnected while dialing; discard the handle.
		c.mu.Unlock()
		if nc != nil {
			nc.close()
		}
		return nil
	}
	if err != nil {
		c.state = StateClosed
		c.mu.Unlock()
		c.emitError(err)
		return err
	}
	c.conn = nc
	c.state = StateOpen
	c.attempts = 0
	c.mu.Unlock()

	go c.runLoop(nc, gen)
	return nil
}

// Disconnect closes the connection and permanently disables automatic
// reconnection for this client. Idempotent. A later Connect call still
// opens a fresh connection, but drops are no longer retried.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.noReopen = true
	c.gen++
	old := c.conn
	c.conn = nil
	if old != nil {
		c.state = StateClosing
	}
	c.mu.Unlock()

	if old != nil {
		old.close()
	}

	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()
}

// runLoop pumps one connection's messages until it drops.
func (c *Client) runLoop(nc *conn, gen int) {
	for {
		select {
		case <-nc.done:
			// Closed by Disconnect or a newer connection taking over.
			return
		case err := <-nc.errs:
			c.handleDrop(nc, gen, err)
			return
		case data := <-nc.messages:
			c.dispatch(data)
		}
	}
}

// handleDrop runs the close transition for an unexpected drop: detach
// the handle, notify listeners, and start the reconnect procedure.
// Drops from superseded handles are ignored.
func (c *Client) handleDrop(nc *conn, gen int, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = StateClosed
	c.mu.Unlock()

	nc.close()

	if err != nil && !isCloseError(err) {
		c.logger.Warn("connection error", "error", err)
		c.emitError(err)
	}
	c.emitClose()

	c.scheduleReconnect()
}

func isCloseError(err error) bool {
	_, ok := err.(*websocket.CloseError)
	return ok
}

// scheduleReconnect arms the next reconnect attempt, or emits the
// terminal error once the attempt cap is reached.
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.noReopen || c.cfg.DisableReconnect {
		c.mu.Unlock()
		return
	}
	if c.attempts >= c.cfg.MaxReconnectAttempts {
		c.mu.Unlock()
		c.logger.Warn("reconnect attempts exhausted", "attempts", c.cfg.MaxReconnectAttempts)
		c.emitError(ErrReconnectExhausted)
		return
	}
	c.attempts++
	attempt := c.attempts
	c.mu.Unlock()

	c.logger.Info("scheduling reconnect",
		"attempt", attempt,
		"interval", c.cfg.ReconnectInterval,
	)
	time.AfterFunc(c.cfg.ReconnectInterval, c.reconnect)
}

// reconnect performs one scheduled attempt. Failures are swallowed and
// feed the next cycle; they never escape as panics or unhandled errors.
func (c *Client) reconnect() {
	c.mu.Lock()
	if c.noReopen {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if err := c.Connect(context.Background()); err != nil {
		c.scheduleReconnect()
		return
	}
	c.replaySubscriptions()
}

// replaySubscriptions re-issues the registry's desired state to the
// current connection.
func (c *Client) replaySubscriptions() {
	c.mu.Lock()
	subs := c.reg.subscriptions()
	nc := c.conn
	c.mu.Unlock()
	if nc == nil {
		return
	}

	for _, sub := range subs {
		frame := request{Type: "subscribe", Channel: sub.channel, All: sub.all, Tickers: sub.tickers}
		data, err := json.Marshal(frame)
		if err != nil {
			continue
		}
		if err := nc.send(data); err != nil {
			c.logger.Warn("resubscribe failed", "channel", sub.channel, "error", err)
			return
		}
		c.logger.Debug("resubscribed", "channel", sub.channel, "all", sub.all, "tickers", len(sub.tickers))
	}
}

// SubscribePrices subscribes to price updates for specific markets.
func (c *Client) SubscribePrices(tickers ...string) error {
	return c.subscribe(ChannelPrices, false, tickers)
}

// SubscribeAllPrices subscribes to price updates for all markets.
func (c *Client) SubscribeAllPrices() error {
	return c.subscribe(ChannelPrices, true, nil)
}

// SubscribeTrades subscribes to trade updates for specific markets.
func (c *Client) SubscribeTrades(tickers ...string) error {
	return c.subscribe(ChannelTrades, false, tickers)
}

// SubscribeAllTrades subscribes to trade updates for all markets.
func (c *Client) SubscribeAllTrades() error {
	return c.subscribe(ChannelTrades, true, nil)
}

// SubscribeOrderbook subscribes to orderbook updates for specific markets.
func (c *Client) SubscribeOrderbook(tickers ...string) error {
	return c.subscribe(ChannelOrderbook, false, tickers)
}

// SubscribeAllOrderbook subscribes to orderbook updates for all markets.
func (c *Client) SubscribeAllOrderbook() error {
	return c.subscribe(ChannelOrderbook, true, nil)
}

// Unsubscribe removes tickers from a channel's subscription. With no
// tickers, or when the channel is in all-markets mode, the channel is
// cleared entirely. Unsubscribing a ticker that was never subscribed is
// not an error.
func (c *Client) Unsubscribe(ch Channel, tickers ...string) error {
	c.mu.Lock()
	if c.state != StateOpen || c.conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	nc := c.conn
	c.mu.Unlock()

	frame := request{Type: "unsubscribe", Channel: ch}
	if len(tickers) > 0 {
		frame.Tickers = tickers
	} else {
		frame.All = true
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if err := nc.send(data); err != nil {
		return err
	}

	c.mu.Lock()
	c.reg.remove(ch, tickers)
	c.mu.Unlock()
	return nil
}

// subscribe sends a subscribe frame and records the target in the
// registry. Valid only while the connection is open.
func (c *Client) subscribe(ch Channel, all bool, tickers []string) error {
	c.mu.Lock()
	if c.state != StateOpen || c.conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	nc := c.conn
	c.mu.Unlock()

	frame := request{Type: "subscribe", Channel: ch, All: all}
	if !all {
		frame.Tickers = tickers
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if err := nc.send(data); err != nil {
		return err
	}

	c.mu.Lock()
	if all {
		c.reg.addAll(ch)
	} else {
		c.reg.add(ch, tickers)
	}
	c.mu.Unlock()
	return nil
}

// dispatch decodes one inbound frame and fans it out to the channel's
// callbacks. Malformed frames go to error listeners; unknown channels
// are ignored.
func (c *Client) dispatch(data []byte) {
	var env struct {
		Channel Channel `json:"channel"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		c.emitError(fmt.Errorf("decode message: %w", err))
		return
	}

	switch env.Channel {
	case ChannelPrices:
		var u PriceUpdate
		if err := json.Unmarshal(data, &u); err != nil {
			c.emitError(fmt.Errorf("decode price update: %w", err))
			return
		}
		for _, fn := range snapshotCBs(&c.cbMu, &c.priceCBs) {
			fn(u)
		}
	case ChannelTrades:
		var u TradeUpdate
		if err := json.Unmarshal(data, &u); err != nil {
			c.emitError(fmt.Errorf("decode trade update: %w", err))
			return
		}
		for _, fn := range snapshotCBs(&c.cbMu, &c.tradeCBs) {
			fn(u)
		}
	case ChannelOrderbook:
		var u OrderbookUpdate
		if err := json.Unmarshal(data, &u); err != nil {
			c.emitError(fmt.Errorf("decode orderbook update: %w", err))
			return
		}
		for _, fn := range snapshotCBs(&c.cbMu, &c.orderbookCBs) {
			fn(u)
		}
	}
}

// OnPrice registers a callback for price updates. The returned function
// removes the registration; calling it more than once is harmless.
func (c *Client) OnPrice(fn func(PriceUpdate)) func() {
	return addCB(c, &c.priceCBs, fn)
}

// OnTrade registers a callback for trade updates.
func (c *Client) OnTrade(fn func(TradeUpdate)) func() {
	return addCB(c, &c.tradeCBs, fn)
}

// OnOrderbook registers a callback for orderbook updates.
func (c *Client) OnOrderbook(fn func(OrderbookUpdate)) func() {
	return addCB(c, &c.orderbookCBs, fn)
}

// OnError registers a callback for decode errors, connection errors, and
// the terminal reconnect-exhausted error. Background reconnection never
// returns errors any other way.
func (c *Client) OnError(fn func(error)) func() {
	return addCB(c, &c.errorCBs, fn)
}

// OnClose registers a callback invoked when the connection drops.
func (c *Client) OnClose(fn func()) func() {
	return addCB(c, &c.closeCBs, func(struct{}) { fn() })
}

func (c *Client) emitError(err error) {
	for _, fn := range snapshotCBs(&c.cbMu, &c.errorCBs) {
		fn(err)
	}
}

func (c *Client) emitClose() {
	for _, fn := range snapshotCBs(&c.cbMu, &c.closeCBs) {
		fn(struct{}{})
	}
}

// callback is one registered listener; dispatch order follows
// registration order.
type callback[T any] struct {
	id int
	fn func(T)
}

func addCB[T any](c *Client, list *[]callback[T], fn func(T)) func() {
	c.cbMu.Lock()
	id := c.nextCBID
	c.nextCBID++
	*list = append(*list, callback[T]{id: id, fn: fn})
	c.cbMu.Unlock()

	return func() {
		c.cbMu.Lock()
		defer c.cbMu.Unlock()
		for i, cb := range *list {
			if cb.id == id {
				*list = append((*list)[:i], (*list)[i+1:]...)
				return
			}
		}
	}
}

func snapshotCBs[T any](mu *sync.Mutex, list *[]callback[T]) []func(T) {
	mu.Lock()
	defer mu.Unlock()
	out := make([]func(T), len(*list))
	for i, cb := range *list {
		out[i] = cb.fn
	}
	return out
}
