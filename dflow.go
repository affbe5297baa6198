// Package dflow is the Go SDK for the DFlow prediction markets
// platform. It bundles a REST client for market metadata and a
// WebSocket client for real-time price, trade, and orderbook updates.
//
// The development environment is the default and needs no API key:
//
//	client, err := dflow.New()
//	markets, err := client.API.GetMarkets(ctx, api.MarketsParams{Status: api.StatusActive})
//
// Production requires a key:
//
//	client, err := dflow.New(
//		dflow.WithEnvironment(dflow.Production),
//		dflow.WithAPIKey(key),
//	)
package dflow

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dflow-protocol/dflow-go/api"
	"github.com/dflow-protocol/dflow-go/retry"
	"github.com/dflow-protocol/dflow-go/stream"
)

// Environment selects the DFlow deployment to talk to.
type Environment string

const (
	// Development uses the dev-*.dflow.net endpoints and needs no key.
	Development Environment = "development"
	// Production uses the *.dflow.net endpoints and requires an API key.
	Production Environment = "production"
)

// Base URLs per environment.
const (
	DevMetadataURL  = "https://dev-prediction-markets-api.dflow.net/api/v1"
	DevWebSocketURL = "wss://dev-prediction-markets-api.dflow.net/api/v1/ws"

	ProdMetadataURL  = "https://prediction-markets-api.dflow.net/api/v1"
	ProdWebSocketURL = "wss://prediction-markets-api.dflow.net/api/v1/ws"
)

// ErrAPIKeyRequired is returned by New when the production environment
// is selected without an API key.
var ErrAPIKeyRequired = errors.New("dflow: production environment requires an API key")

// Client is the top-level SDK handle.
type Client struct {
	// API talks to the metadata REST endpoints.
	API *api.Client
	// Stream receives real-time updates over WebSocket. Call
	// Stream.Connect before subscribing.
	Stream *stream.Client
}

type options struct {
	env        Environment
	apiKey     string
	baseURL    string
	wsURL      string
	logger     *slog.Logger
	httpClient *http.Client
	retryOpts  *retry.Options
	streamCfg  *stream.Config
}

// Option configures the SDK client.
type Option func(*options)

// WithEnvironment selects the deployment. Defaults to Development.
func WithEnvironment(env Environment) Option {
	return func(o *options) { o.env = env }
}

// WithAPIKey sets the API key sent on every REST call and the WebSocket
// handshake.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithBaseURL overrides the metadata API base URL.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithWebSocketURL overrides the streaming endpoint URL.
func WithWebSocketURL(url string) Option {
	return func(o *options) { o.wsURL = url }
}

// WithLogger sets the logger used by both clients.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithHTTPClient sets a custom HTTP client for REST calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithRetryOptions sets the REST retry policy.
func WithRetryOptions(opts retry.Options) Option {
	return func(o *options) { o.retryOpts = &opts }
}

// WithStreamConfig replaces the streaming configuration. URL and APIKey
// on the config take precedence over the environment defaults.
func WithStreamConfig(cfg stream.Config) Option {
	return func(o *options) { o.streamCfg = &cfg }
}

// New creates an SDK client for the configured environment.
func New(opts ...Option) (*Client, error) {
	o := options{env: Development}
	for _, opt := range opts {
		opt(&o)
	}

	if o.env == Production && o.apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	baseURL := o.baseURL
	wsURL := o.wsURL
	if baseURL == "" {
		baseURL = DevMetadataURL
		if o.env == Production {
			baseURL = ProdMetadataURL
		}
	}
	if wsURL == "" {
		wsURL = DevWebSocketURL
		if o.env == Production {
			wsURL = ProdWebSocketURL
		}
	}

	var apiOpts []api.ClientOption
	if o.logger != nil {
		apiOpts = append(apiOpts, api.WithLogger(o.logger))
	}
	if o.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(o.httpClient))
	}
	if o.retryOpts != nil {
		apiOpts = append(apiOpts, api.WithRetryOptions(*o.retryOpts))
	}

	streamCfg := stream.DefaultConfig()
	if o.streamCfg != nil {
		streamCfg = *o.streamCfg
	}
	if streamCfg.URL == "" {
		streamCfg.URL = wsURL
	}
	if streamCfg.APIKey == "" {
		streamCfg.APIKey = o.apiKey
	}

	return &Client{
		API:    api.NewClient(baseURL, o.apiKey, apiOpts...),
		Stream: stream.NewClient(streamCfg, o.logger),
	}, nil
}
