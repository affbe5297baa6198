package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// TestGetMarkets tests the markets listing endpoint.
func TestGetMarkets(t *testing.T) {
	t.Run("basic request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/markets" {
				t.Errorf("path = %q, want %q", r.URL.Path, "/markets")
			}
			w.Write([]byte(`{"cursor": 2, "markets": [
				{"ticker": "MKT1", "title": "Market 1"},
				{"ticker": "MKT2", "title": "Market 2"}
			]}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "key")
		resp, err := c.GetMarkets(context.Background(), MarketsParams{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(resp.Markets) != 2 {
			t.Errorf("len(Markets) = %d, want 2", len(resp.Markets))
		}
		if resp.Markets[0].Ticker != "MKT1" {
			t.Errorf("Markets[0].Ticker = %q, want %q", resp.Markets[0].Ticker, "MKT1")
		}
		// Numeric wire cursor decodes to its string form.
		if resp.NextCursor() != "2" {
			t.Errorf("NextCursor() = %q, want %q", resp.NextCursor(), "2")
		}
	})

	t.Run("with params", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("status") != "active" {
				t.Errorf("status = %q, want %q", q.Get("status"), "active")
			}
			if q.Get("isInitialized") != "true" {
				t.Errorf("isInitialized = %q, want %q", q.Get("isInitialized"), "true")
			}
			if q.Get("sort") != "volume" {
				t.Errorf("sort = %q, want %q", q.Get("sort"), "volume")
			}
			if q.Get("tickers") != "MKT1,MKT2" {
				t.Errorf("tickers = %q, want %q", q.Get("tickers"), "MKT1,MKT2")
			}
			if q.Get("eventTicker") != "EVENT1" {
				t.Errorf("eventTicker = %q, want %q", q.Get("eventTicker"), "EVENT1")
			}
			if q.Get("seriesTicker") != "SERIES1" {
				t.Errorf("seriesTicker = %q, want %q", q.Get("seriesTicker"), "SERIES1")
			}
			if q.Get("minCloseTs") != "1700000000" {
				t.Errorf("minCloseTs = %q, want %q", q.Get("minCloseTs"), "1700000000")
			}
			if q.Get("cursor") != "50" {
				t.Errorf("cursor = %q, want %q", q.Get("cursor"), "50")
			}
			if q.Get("limit") != "100" {
				t.Errorf("limit = %q, want %q", q.Get("limit"), "100")
			}
			w.Write([]byte(`{"cursor": null, "markets": []}`))
		}))
		defer server.Close()

		yes := true
		c := NewClient(server.URL, "key")
		_, err := c.GetMarkets(context.Background(), MarketsParams{
			Status:        StatusActive,
			IsInitialized: &yes,
			Sort:          SortVolume,
			Tickers:       []string{"MKT1", "MKT2"},
			EventTicker:   "EVENT1",
			SeriesTicker:  "SERIES1",
			MinCloseTs:    1700000000,
			Cursor:        "50",
			Limit:         100,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("zero params send nothing", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(r.URL.Query()) != 0 {
				t.Errorf("query = %v, want empty", r.URL.Query())
			}
			w.Write([]byte(`{"cursor": null, "markets": []}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "key")
		if _, err := c.GetMarkets(context.Background(), MarketsParams{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

// TestAllMarkets tests lazy pagination over the markets listing.
func TestAllMarkets(t *testing.T) {
	t.Run("walks every page", func(t *testing.T) {
		var requestCount int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count := atomic.AddInt32(&requestCount, 1)
			cursor := r.URL.Query().Get("cursor")

			switch {
			case count == 1 && cursor == "":
				w.Write([]byte(`{"cursor": 2, "markets": [{"ticker": "MKT1"}, {"ticker": "MKT2"}]}`))
			case count == 2 && cursor == "2":
				w.Write([]byte(`{"cursor": 3, "markets": [{"ticker": "MKT3"}]}`))
			case count == 3 && cursor == "3":
				w.Write([]byte(`{"cursor": null, "markets": [{"ticker": "MKT4"}]}`))
			default:
				t.Errorf("unexpected request: count=%d cursor=%q", count, cursor)
			}
		}))
		defer server.Close()

		c := NewClient(server.URL, "key")
		markets, err := c.AllMarkets(MarketsParams{}).Collect(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(markets) != 4 {
			t.Errorf("len(markets) = %d, want 4", len(markets))
		}
		if markets[3].Ticker != "MKT4" {
			t.Errorf("markets[3].Ticker = %q, want %q", markets[3].Ticker, "MKT4")
		}
		if requestCount != 3 {
			t.Errorf("requestCount = %d, want 3", requestCount)
		}
	})

	t.Run("no request until first pull", func(t *testing.T) {
		var requestCount int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			w.Write([]byte(`{"cursor": null, "markets": [{"ticker": "MKT1"}]}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "key")
		it := c.AllMarkets(MarketsParams{})
		if requestCount != 0 {
			t.Fatalf("requestCount = %d before first Next, want 0", requestCount)
		}
		if _, ok, err := it.Next(context.Background()); err != nil || !ok {
			t.Fatalf("Next = (%v, %v), want item", ok, err)
		}
		if requestCount != 1 {
			t.Errorf("requestCount = %d, want 1", requestCount)
		}
	})

	t.Run("fetch error stops iteration", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		c := NewClient(server.URL, "key", WithRetryOptions(noRetry()))
		_, err := c.AllMarkets(MarketsParams{}).Collect(context.Background())
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %T: %v", err, err)
		}
	})
}

// TestGetMarket tests fetching a single market.
func TestGetMarket(t *testing.T) {
	t.Run("successful fetch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/market/TEST-MARKET" {
				t.Errorf("path = %q, want %q", r.URL.Path, "/market/TEST-MARKET")
			}
			w.Write([]byte(`{
				"ticker": "TEST-MARKET",
				"title": "Test Market",
				"status": "active",
				"yesBid": "0.52",
				"noBid": "0.48",
				"accounts": {"usdc": {"yesMint": "ym", "noMint": "nm", "marketLedger": "ml", "redemptionStatus": "open"}}
			}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "key")
		market, err := c.GetMarket(context.Background(), "TEST-MARKET")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if market.Ticker != "TEST-MARKET" {
			t.Errorf("Ticker = %q, want %q", market.Ticker, "TEST-MARKET")
		}
		if market.Status != StatusActive {
			t.Errorf("Status = %q, want %q", market.Status, StatusActive)
		}
		if market.YesPrice() != 0.52 {
			t.Errorf("YesPrice() = %v, want 0.52", market.YesPrice())
		}
		if market.Accounts["usdc"].YesMint != "ym" {
			t.Errorf("Accounts[usdc].YesMint = %q, want %q", market.Accounts["usdc"].YesMint, "ym")
		}
	})

	t.Run("not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error": "market not found"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "key", WithRetryOptions(noRetry()))
		_, err := c.GetMarket(context.Background(), "NONEXISTENT")
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError in wrapped error, got %T: %v", err, err)
		}
		if apiErr.StatusCode != 404 {
			t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
		}
	})

	t.Run("by mint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/market/by-mint/MINT1" {
				t.Errorf("path = %q, want %q", r.URL.Path, "/market/by-mint/MINT1")
			}
			w.Write([]byte(`{"ticker": "TEST-MARKET"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "key")
		market, err := c.GetMarketByMint(context.Background(), "MINT1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if market.Ticker != "TEST-MARKET" {
			t.Errorf("Ticker = %q, want %q", market.Ticker, "TEST-MARKET")
		}
	})
}

// TestGetMarketsBatch tests the batch markets endpoint.
func TestGetMarketsBatch(t *testing.T) {
	t.Run("posts tickers and mints", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/markets/batch" {
				t.Errorf("path = %q, want %q", r.URL.Path, "/markets/batch")
			}
			var payload struct {
				Tickers []string `json:"tickers"`
				Mints   []string `json:"mints"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("decode payload: %v", err)
			}
			if len(payload.Tickers) != 2 || len(payload.Mints) != 1 {
				t.Errorf("payload = %+v", payload)
			}
			w.Write([]byte(`{"markets": [{"ticker": "MKT1"}, {"ticker": "MKT2"}, {"ticker": "MKT3"}]}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "key")
		markets, err := c.GetMarketsBatch(context.Background(), []string{"MKT1", "MKT2"}, []string{"MINT1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(markets) != 3 {
			t.Errorf("len(markets) = %d, want 3", len(markets))
		}
	})

	t.Run("rejects oversized batch", func(t *testing.T) {
		c := NewClient("http://unused", "key")
		tickers := make([]string, MaxBatchSize+1)
		_, err := c.GetMarketsBatch(context.Background(), tickers, nil)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}

// TestGetMarketCandlesticks tests the candlestick endpoint.
func TestGetMarketCandlesticks(t *testing.T) {
	t.Run("sends range params", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/market/MKT1/candlesticks" {
				t.Errorf("path = %q, want %q", r.URL.Path, "/market/MKT1/candlesticks")
			}
			q := r.URL.Query()
			if q.Get("startTs") != "1704067200" || q.Get("endTs") != "1704153600" {
				t.Errorf("range = %s..%s", q.Get("startTs"), q.Get("endTs"))
			}
			if q.Get("periodInterval") != "60" {
				t.Errorf("periodInterval = %q, want 60", q.Get("periodInterval"))
			}
			w.Write([]byte(`{"candlesticks": [
				{"timestamp": 1704067200, "open": 0.5, "high": 0.55, "low": 0.48, "close": 0.52, "volume": 1200}
			]}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "key")
		candles, err := c.GetMarketCandlesticks(context.Background(), "MKT1", CandlestickParams{
			StartTs:        1704067200,
			EndTs:          1704153600,
			PeriodInterval: 60,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(candles) != 1 || candles[0].Close != 0.52 {
			t.Errorf("candles = %+v", candles)
		}
	})
}

// TestOutcomeMints tests the outcome mint endpoints.
func TestOutcomeMints(t *testing.T) {
	t.Run("get all", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/outcome_mints" {
				t.Errorf("path = %q, want %q", r.URL.Path, "/outcome_mints")
			}
			if r.URL.Query().Get("minCloseTs") != "1700000000" {
				t.Errorf("minCloseTs = %q", r.URL.Query().Get("minCloseTs"))
			}
			w.Write([]byte(`{"mints": ["m1", "m2"]}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "key")
		mints, err := c.GetOutcomeMints(context.Background(), 1700000000)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(mints) != 2 {
			t.Errorf("len(mints) = %d, want 2", len(mints))
		}
	})

	t.Run("filter", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"outcomeMints": ["m1"]}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "key")
		mints, err := c.FilterOutcomeMints(context.Background(), []string{"m1", "other"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(mints) != 1 || mints[0] != "m1" {
			t.Errorf("mints = %v, want [m1]", mints)
		}
	})

	t.Run("filter rejects too many addresses", func(t *testing.T) {
		c := NewClient("http://unused", "key")
		addrs := make([]string, MaxFilterAddresses+1)
		if _, err := c.FilterOutcomeMints(context.Background(), addrs); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}
