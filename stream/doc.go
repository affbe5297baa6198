// Package stream provides the real-time WebSocket client for DFlow
// market data. A Client owns at most one transport connection at a time,
// tracks the desired subscription set per channel, and dispatches decoded
// price, trade, and orderbook updates to registered callbacks. Dropped
// connections are reopened on a fixed interval up to a configured attempt
// cap, and the subscription set is replayed to the fresh connection.
package stream
