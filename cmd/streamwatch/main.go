// streamwatch connects to the streaming endpoint and prints parsed
// updates to the console. Useful for eyeballing live data and checking
// connectivity before pointing the recorder at a database.
//
// Usage:
//
//	go run ./cmd/streamwatch --tickers MKT-A,MKT-B
//	go run ./cmd/streamwatch --env prod --channels prices,trades,orderbook --all
//
// Set DFLOW_API_KEY for the production environment.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dflow-protocol/dflow-go"
	"github.com/dflow-protocol/dflow-go/stream"
)

func main() {
	env := flag.String("env", "dev", "environment: dev or prod")
	wsURL := flag.String("url", "", "override the WebSocket URL")
	tickers := flag.String("tickers", "", "comma-separated tickers to watch")
	channelList := flag.String("channels", "prices,trades", "comma-separated channels: prices, trades, orderbook")
	all := flag.Bool("all", false, "watch all markets instead of specific tickers")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if !*all && *tickers == "" {
		logger.Error("provide --tickers or --all")
		os.Exit(1)
	}

	opts := []dflow.Option{
		dflow.WithLogger(logger),
		dflow.WithAPIKey(os.Getenv("DFLOW_API_KEY")),
	}
	if *env == "prod" {
		opts = append(opts, dflow.WithEnvironment(dflow.Production))
	}
	if *wsURL != "" {
		opts = append(opts, dflow.WithWebSocketURL(*wsURL))
	}

	client, err := dflow.New(opts...)
	if err != nil {
		logger.Error("failed to create client", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	client.Stream.OnPrice(func(u stream.PriceUpdate) {
		if *verbose {
			printJSON("price", u)
			return
		}
		fmt.Printf("price     %-20s yes=%.3f no=%.3f\n", u.Ticker, u.YesPrice, u.NoPrice)
	})
	client.Stream.OnTrade(func(u stream.TradeUpdate) {
		if *verbose {
			printJSON("trade", u)
			return
		}
		fmt.Printf("trade     %-20s %s %.3f x %.0f\n", u.Ticker, u.Side, u.Price, u.Quantity)
	})
	client.Stream.OnOrderbook(func(u stream.OrderbookUpdate) {
		if *verbose {
			printJSON("orderbook", u)
			return
		}
		fmt.Printf("orderbook %-20s yes_bids=%d yes_asks=%d no_bids=%d no_asks=%d\n",
			u.Ticker, len(u.YesBid), len(u.YesAsk), len(u.NoBid), len(u.NoAsk))
	})
	client.Stream.OnError(func(err error) {
		logger.Warn("stream error", "error", err)
	})
	client.Stream.OnClose(func() {
		logger.Info("connection closed")
	})

	if err := client.Stream.Connect(ctx); err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	defer client.Stream.Disconnect()

	tickerList := splitList(*tickers)
	for _, ch := range splitList(*channelList) {
		if err := subscribe(client.Stream, stream.Channel(ch), *all, tickerList); err != nil {
			logger.Error("failed to subscribe", "channel", ch, "error", err)
			os.Exit(1)
		}
		logger.Info("subscribed", "channel", ch, "all", *all, "tickers", tickerList)
	}

	<-ctx.Done()
	logger.Info("exiting")
}

func subscribe(c *stream.Client, ch stream.Channel, all bool, tickers []string) error {
	switch ch {
	case stream.ChannelPrices:
		if all {
			return c.SubscribeAllPrices()
		}
		return c.SubscribePrices(tickers...)
	case stream.ChannelTrades:
		if all {
			return c.SubscribeAllTrades()
		}
		return c.SubscribeTrades(tickers...)
	case stream.ChannelOrderbook:
		if all {
			return c.SubscribeAllOrderbook()
		}
		return c.SubscribeOrderbook(tickers...)
	}
	return fmt.Errorf("unknown channel %q", ch)
}

func printJSON(kind string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Printf("%s %s\n", kind, data)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
