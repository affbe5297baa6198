package dflow

import (
	"errors"
	"testing"

	"github.com/dflow-protocol/dflow-go/stream"
)

func TestNew(t *testing.T) {
	t.Run("development needs no key", func(t *testing.T) {
		c, err := New()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.API == nil || c.Stream == nil {
			t.Fatal("sub-clients not initialized")
		}
	})

	t.Run("production requires a key", func(t *testing.T) {
		_, err := New(WithEnvironment(Production))
		if !errors.Is(err, ErrAPIKeyRequired) {
			t.Errorf("err = %v, want ErrAPIKeyRequired", err)
		}
	})

	t.Run("production with key", func(t *testing.T) {
		c, err := New(WithEnvironment(Production), WithAPIKey("secret"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Stream.State() != stream.StateIdle {
			t.Errorf("stream state = %v, want idle", c.Stream.State())
		}
	})

	t.Run("custom URLs override environment", func(t *testing.T) {
		c, err := New(
			WithBaseURL("http://localhost:8080"),
			WithWebSocketURL("ws://localhost:8080/ws"),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.API == nil {
			t.Fatal("API client not initialized")
		}
	})

	t.Run("stream config URL wins", func(t *testing.T) {
		c, err := New(WithStreamConfig(stream.Config{URL: "ws://custom"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Stream == nil {
			t.Fatal("stream client not initialized")
		}
	})
}
