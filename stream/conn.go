package stream

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// conn is a single WebSocket connection. A Client replaces its conn on
// every reconnect; a conn is never redialed.
type conn struct {
	cfg    Config
	logger *slog.Logger

	ws *websocket.Conn

	messages chan []byte
	errs     chan error
	done     chan struct{}

	// Serializes writes; gorilla allows one concurrent writer.
	writeMu sync.Mutex

	mu         sync.RWMutex
	lastPongAt time.Time
	closed     bool
}

// dialConn opens a connection and starts its read and keepalive loops.
func dialConn(ctx context.Context, cfg Config, logger *slog.Logger) (*conn, error) {
	header := http.Header{}
	header.Set("Accept", "application/json")
	if cfg.APIKey != "" {
		header.Set("x-api-key", cfg.APIKey)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
	}

	ws, _, err := dialer.DialContext(ctx, cfg.URL, header)
	if err != nil {
		return nil, err
	}

	c := &conn{
		cfg:        cfg,
		logger:     logger,
		ws:         ws,
		messages:   make(chan []byte, cfg.BufferSize),
		errs:       make(chan error, 1),
		done:       make(chan struct{}),
		lastPongAt: time.Now(),
	}

	// Server pings are answered with pongs; both directions refresh the
	// staleness clock.
	ws.SetPingHandler(func(data string) error {
		c.touch()
		return ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	ws.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	go c.readLoop()
	go c.keepaliveLoop()

	c.logger.Debug("websocket connected", "url", cfg.URL)
	return c, nil
}

func (c *conn) touch() {
	c.mu.Lock()
	c.lastPongAt = time.Now()
	c.mu.Unlock()
}

// send writes one text frame with the configured write deadline.
func (c *conn) send(data []byte) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	c.mu.RUnlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// close tears the connection down. Idempotent.
func (c *conn) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)

	c.writeMu.Lock()
	c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()

	return c.ws.Close()
}

// readLoop feeds inbound frames to the messages channel until the
// connection drops, then reports the terminal error once.
func (c *conn) readLoop() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, data, err := c.ws.ReadMessage()
		if err != nil {
			// Errors after close() are the close itself.
			select {
			case <-c.done:
			default:
				select {
				case c.errs <- err:
				default:
				}
			}
			return
		}

		select {
		case c.messages <- data:
		case <-c.done:
			return
		default:
			c.logger.Warn("message buffer full, dropping message")
		}
	}
}

// keepaliveLoop pings the server and flags the connection stale when
// neither pings nor pongs arrive within the timeout.
func (c *conn) keepaliveLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
			}

			c.mu.RLock()
			last := c.lastPongAt
			c.mu.RUnlock()

			if time.Since(last) > c.cfg.PingTimeout {
				c.logger.Warn("no ping response, connection stale", "last_pong", last)
				select {
				case c.errs <- errStale:
				default:
				}
				return
			}
		}
	}
}
