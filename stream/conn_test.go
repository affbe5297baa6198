package stream

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer ws.Close()
		handler(ws)
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.URL = url
	cfg.BufferSize = 100
	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

func TestDialConn(t *testing.T) {
	t.Run("connect and close", func(t *testing.T) {
		server := mockWSServer(t, func(ws *websocket.Conn) {
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		})
		defer server.Close()

		c, err := dialConn(context.Background(), testConfig(wsURL(server)), testLogger())
		if err != nil {
			t.Fatalf("dialConn failed: %v", err)
		}
		if err := c.close(); err != nil {
			t.Errorf("close failed: %v", err)
		}
		// Second close is a no-op.
		if err := c.close(); err != nil {
			t.Errorf("second close failed: %v", err)
		}
	})

	t.Run("dial failure", func(t *testing.T) {
		cfg := testConfig("ws://127.0.0.1:1")
		cfg.HandshakeTimeout = 200 * time.Millisecond
		if _, err := dialConn(context.Background(), cfg, testLogger()); err == nil {
			t.Fatal("expected dial error")
		}
	})

	t.Run("send reaches server", func(t *testing.T) {
		var mu sync.Mutex
		var received []byte
		server := mockWSServer(t, func(ws *websocket.Conn) {
			for {
				_, msg, err := ws.ReadMessage()
				if err != nil {
					return
				}
				mu.Lock()
				received = msg
				mu.Unlock()
			}
		})
		defer server.Close()

		c, err := dialConn(context.Background(), testConfig(wsURL(server)), testLogger())
		if err != nil {
			t.Fatalf("dialConn failed: %v", err)
		}
		defer c.close()

		msg := []byte(`{"type":"subscribe"}`)
		if err := c.send(msg); err != nil {
			t.Fatalf("send failed: %v", err)
		}

		deadline := time.Now().Add(2 * time.Second)
		for {
			mu.Lock()
			got := string(received)
			mu.Unlock()
			if got == string(msg) {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("server received %q, want %q", got, msg)
			}
			time.Sleep(10 * time.Millisecond)
		}
	})

	t.Run("send after close fails", func(t *testing.T) {
		server := mockWSServer(t, func(ws *websocket.Conn) {
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		})
		defer server.Close()

		c, err := dialConn(context.Background(), testConfig(wsURL(server)), testLogger())
		if err != nil {
			t.Fatalf("dialConn failed: %v", err)
		}
		c.close()

		if err := c.send([]byte("x")); err != ErrNotConnected {
			t.Errorf("send after close = %v, want ErrNotConnected", err)
		}
	})

	t.Run("inbound messages delivered", func(t *testing.T) {
		server := mockWSServer(t, func(ws *websocket.Conn) {
			ws.WriteMessage(websocket.TextMessage, []byte(`{"channel":"prices"}`))
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		})
		defer server.Close()

		c, err := dialConn(context.Background(), testConfig(wsURL(server)), testLogger())
		if err != nil {
			t.Fatalf("dialConn failed: %v", err)
		}
		defer c.close()

		select {
		case msg := <-c.messages:
			if string(msg) != `{"channel":"prices"}` {
				t.Errorf("message = %q", msg)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no message received")
		}
	})

	t.Run("server close surfaces error", func(t *testing.T) {
		server := mockWSServer(t, func(ws *websocket.Conn) {
			// Drop immediately.
		})
		defer server.Close()

		c, err := dialConn(context.Background(), testConfig(wsURL(server)), testLogger())
		if err != nil {
			t.Fatalf("dialConn failed: %v", err)
		}
		defer c.close()

		select {
		case <-c.errs:
		case <-time.After(2 * time.Second):
			t.Fatal("no error surfaced after server close")
		}
	})
}
