package stream

import (
	"errors"
	"time"
)

// Channel identifies a kind of streaming update.
type Channel string

const (
	ChannelPrices    Channel = "prices"
	ChannelTrades    Channel = "trades"
	ChannelOrderbook Channel = "orderbook"
)

// channels lists every known channel in a stable order, used when
// replaying subscriptions.
var channels = []Channel{ChannelPrices, ChannelTrades, ChannelOrderbook}

// State is the connection life-cycle state of a Client.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

var (
	// ErrNotConnected is returned when sending on a connection that is
	// not open. Messages are never queued while disconnected.
	ErrNotConnected = errors.New("stream: not connected")

	// ErrReconnectExhausted is emitted to error listeners when the
	// reconnect attempt cap is reached. No further reconnects are
	// scheduled until the caller connects again.
	ErrReconnectExhausted = errors.New("stream: max reconnection attempts reached")

	// errStale signals a connection whose keepalive went unanswered.
	errStale = errors.New("stream: connection stale, no ping response")
)

// Config configures a Client.
type Config struct {
	// URL is the WebSocket endpoint.
	URL string

	// APIKey is sent as the x-api-key header when set.
	APIKey string

	// DisableReconnect turns off automatic reconnection on unexpected
	// drops. Reconnection is on by default.
	DisableReconnect bool

	// ReconnectInterval is the fixed wait between reconnect attempts.
	ReconnectInterval time.Duration

	// MaxReconnectAttempts caps consecutive failed reconnects before a
	// terminal error is emitted. Negative means zero attempts.
	MaxReconnectAttempts int

	// Transport tuning.
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
	PingTimeout      time.Duration
	BufferSize       int
}

// DefaultConfig returns the default client configuration (reconnect
// enabled, 5s interval, 10 attempts).
func DefaultConfig() Config {
	return Config{
		ReconnectInterval:    5 * time.Second,
		MaxReconnectAttempts: 10,
		HandshakeTimeout:     10 * time.Second,
		WriteTimeout:         5 * time.Second,
		PingInterval:         15 * time.Second,
		PingTimeout:          60 * time.Second,
		BufferSize:           1000,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ReconnectInterval == 0 {
		c.ReconnectInterval = def.ReconnectInterval
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = def.MaxReconnectAttempts
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.PingInterval == 0 {
		c.PingInterval = def.PingInterval
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = def.PingTimeout
	}
	if c.BufferSize == 0 {
		c.BufferSize = def.BufferSize
	}
	return c
}

// PriceLevel is one level of an orderbook update.
type PriceLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// PriceUpdate is a real-time price message.
type PriceUpdate struct {
	Channel   Channel `json:"channel"`
	Ticker    string  `json:"ticker"`
	Timestamp int64   `json:"timestamp"`
	YesPrice  float64 `json:"yesPrice"`
	NoPrice   float64 `json:"noPrice"`
	YesBid    float64 `json:"yesBid,omitempty"`
	YesAsk    float64 `json:"yesAsk,omitempty"`
	NoBid     float64 `json:"noBid,omitempty"`
	NoAsk     float64 `json:"noAsk,omitempty"`
}

// TradeUpdate is a real-time trade message.
type TradeUpdate struct {
	Channel   Channel `json:"channel"`
	Ticker    string  `json:"ticker"`
	Timestamp int64   `json:"timestamp"`
	Side      string  `json:"side"` // "yes" or "no"
	Price     float64 `json:"price"`
	Quantity  float64 `json:"quantity"`
	TradeID   string  `json:"tradeId"`
}

// OrderbookUpdate is a real-time orderbook message.
type OrderbookUpdate struct {
	Channel   Channel      `json:"channel"`
	Ticker    string       `json:"ticker"`
	Timestamp int64        `json:"timestamp"`
	YesAsk    []PriceLevel `json:"yesAsk"`
	YesBid    []PriceLevel `json:"yesBid"`
	NoAsk     []PriceLevel `json:"noAsk"`
	NoBid     []PriceLevel `json:"noBid"`
}

// request is an outbound subscribe/unsubscribe frame.
type request struct {
	Type    string   `json:"type"` // "subscribe" or "unsubscribe"
	Channel Channel  `json:"channel"`
	All     bool     `json:"all,omitempty"`
	Tickers []string `json:"tickers,omitempty"`
}
