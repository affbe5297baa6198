// Package recorder persists streaming market data to PostgreSQL.
//
// A Recorder consumes price, trade and orderbook updates from a
// streaming client, accumulates them into batches, and flushes on a
// size threshold or a timer. Inserts are append-only; trade rows carry
// an ON CONFLICT DO NOTHING guard so replayed messages after a
// reconnect do not duplicate.
//
// Prices are stored as integer hundred-thousandths (0-100,000 maps to
// $0.00-$1.00) for sub-penny precision.
package recorder
