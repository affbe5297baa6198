package recorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dflow-protocol/dflow-go/internal/config"
	"github.com/dflow-protocol/dflow-go/stream"
)

// Metrics tracks recorder activity. Dropped counts updates discarded
// because the intake buffer was full.
type Metrics struct {
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Dropped   int64
	Errors    int64
}

type priceRow struct {
	Ticker     string
	ExchangeTs int64
	ReceivedAt int64
	YesPrice   int64
	NoPrice    int64
	YesBid     int64
	YesAsk     int64
	NoBid      int64
	NoAsk      int64
	SessionID  string
}

type tradeRow struct {
	TradeID    string
	Ticker     string
	ExchangeTs int64
	ReceivedAt int64
	Price      int64
	Quantity   float64
	TakerSide  bool
	SessionID  string
}

type orderbookRow struct {
	Ticker     string
	ExchangeTs int64
	ReceivedAt int64
	Book       []byte
	SessionID  string
}

// Recorder consumes streaming updates and batch-writes them to
// PostgreSQL. Handle* methods never block; updates are dropped when
// the intake buffer is full.
type Recorder struct {
	cfg       config.CaptureConfig
	db        *pgxpool.Pool
	logger    *slog.Logger
	sessionID string

	// Intake buffers fed by stream callbacks.
	prices chan stream.PriceUpdate
	trades chan stream.TradeUpdate
	books  chan stream.OrderbookUpdate

	// Batching
	batchMu     sync.Mutex
	priceBatch  []priceRow
	tradeBatch  []tradeRow
	bookBatch   []orderbookRow
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// New creates a Recorder. Each Recorder gets a fresh session ID that
// is stored alongside every row it writes.
func New(cfg config.CaptureConfig, db *pgxpool.Pool, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		cfg:        cfg,
		db:         db,
		logger:     logger,
		sessionID:  uuid.NewString(),
		prices:     make(chan stream.PriceUpdate, cfg.BufferSize),
		trades:     make(chan stream.TradeUpdate, cfg.BufferSize),
		books:      make(chan stream.OrderbookUpdate, cfg.BufferSize),
		priceBatch: make([]priceRow, 0, cfg.BatchSize),
		tradeBatch: make([]tradeRow, 0, cfg.BatchSize),
	}
}

// SessionID returns the identifier written with every row.
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// Attach registers the recorder's handlers on a streaming client and
// returns a function that removes them.
func (r *Recorder) Attach(client *stream.Client) func() {
	removePrice := client.OnPrice(r.HandlePrice)
	removeTrade := client.OnTrade(r.HandleTrade)
	removeBook := client.OnOrderbook(r.HandleOrderbook)
	return func() {
		removePrice()
		removeTrade()
		removeBook()
	}
}

// Start begins consuming buffered updates and flushing batches.
func (r *Recorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.flushTicker = time.NewTicker(r.cfg.FlushInterval)

	r.wg.Add(1)
	go r.consumeLoop()

	r.wg.Add(1)
	go r.flushLoop()

	r.logger.Info("recorder started",
		"session_id", r.sessionID,
		"batch_size", r.cfg.BatchSize,
		"flush_interval", r.cfg.FlushInterval,
	)
	return nil
}

// Stop shuts the recorder down and flushes whatever is still batched.
// The passed context bounds both the goroutine wait and the final
// database write.
func (r *Recorder) Stop(ctx context.Context) error {
	r.logger.Info("stopping recorder")

	if r.cancel != nil {
		r.cancel()
	}
	if r.flushTicker != nil {
		r.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("recorder stop timed out")
	}

	r.flush(ctx)
	r.logger.Info("recorder stopped")
	return nil
}

// Stats returns a snapshot of the current metrics.
func (r *Recorder) Stats() Metrics {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	return r.metrics
}

// HandlePrice enqueues a price update for persistence.
func (r *Recorder) HandlePrice(u stream.PriceUpdate) {
	select {
	case r.prices <- u:
	default:
		r.drop("prices")
	}
}

// HandleTrade enqueues a trade update for persistence.
func (r *Recorder) HandleTrade(u stream.TradeUpdate) {
	select {
	case r.trades <- u:
	default:
		r.drop("trades")
	}
}

// HandleOrderbook enqueues an orderbook update for persistence.
func (r *Recorder) HandleOrderbook(u stream.OrderbookUpdate) {
	select {
	case r.books <- u:
	default:
		r.drop("orderbook")
	}
}

func (r *Recorder) drop(channel string) {
	r.batchMu.Lock()
	r.metrics.Dropped++
	dropped := r.metrics.Dropped
	r.batchMu.Unlock()

	if dropped%1000 == 1 {
		r.logger.Warn("intake buffer full, dropping updates",
			"channel", channel,
			"dropped_total", dropped,
		)
	}
}

// consumeLoop drains the intake buffers into the batches.
func (r *Recorder) consumeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case u := <-r.prices:
			r.add(func() { r.priceBatch = append(r.priceBatch, r.transformPrice(u)) })
		case u := <-r.trades:
			r.add(func() { r.tradeBatch = append(r.tradeBatch, r.transformTrade(u)) })
		case u := <-r.books:
			row, err := r.transformOrderbook(u)
			if err != nil {
				r.logger.Error("encode orderbook failed", "ticker", u.Ticker, "error", err)
				continue
			}
			r.add(func() { r.bookBatch = append(r.bookBatch, row) })
		}
	}
}

// add appends a row under the batch lock and flushes when the pending
// row count reaches the size threshold.
func (r *Recorder) add(fn func()) {
	r.batchMu.Lock()
	fn()
	shouldFlush := len(r.priceBatch)+len(r.tradeBatch)+len(r.bookBatch) >= r.cfg.BatchSize
	r.batchMu.Unlock()

	if shouldFlush {
		r.flush(r.ctx)
	}
}

// flushLoop periodically flushes the batches.
func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.flushTicker.C:
			r.flush(r.ctx)
		}
	}
}

// priceToInternal converts a dollar price to integer
// hundred-thousandths.
func priceToInternal(dollars float64) int64 {
	return int64(math.Round(dollars * 100000))
}

func (r *Recorder) transformPrice(u stream.PriceUpdate) priceRow {
	return priceRow{
		Ticker:     u.Ticker,
		ExchangeTs: u.Timestamp,
		ReceivedAt: time.Now().UnixMicro(),
		YesPrice:   priceToInternal(u.YesPrice),
		NoPrice:    priceToInternal(u.NoPrice),
		YesBid:     priceToInternal(u.YesBid),
		YesAsk:     priceToInternal(u.YesAsk),
		NoBid:      priceToInternal(u.NoBid),
		NoAsk:      priceToInternal(u.NoAsk),
		SessionID:  r.sessionID,
	}
}

func (r *Recorder) transformTrade(u stream.TradeUpdate) tradeRow {
	return tradeRow{
		TradeID:    u.TradeID,
		Ticker:     u.Ticker,
		ExchangeTs: u.Timestamp,
		ReceivedAt: time.Now().UnixMicro(),
		Price:      priceToInternal(u.Price),
		Quantity:   u.Quantity,
		TakerSide:  u.Side == "yes",
		SessionID:  r.sessionID,
	}
}

func (r *Recorder) transformOrderbook(u stream.OrderbookUpdate) (orderbookRow, error) {
	book, err := json.Marshal(struct {
		YesAsk []stream.PriceLevel `json:"yesAsk"`
		YesBid []stream.PriceLevel `json:"yesBid"`
		NoAsk  []stream.PriceLevel `json:"noAsk"`
		NoBid  []stream.PriceLevel `json:"noBid"`
	}{u.YesAsk, u.YesBid, u.NoAsk, u.NoBid})
	if err != nil {
		return orderbookRow{}, err
	}
	return orderbookRow{
		Ticker:     u.Ticker,
		ExchangeTs: u.Timestamp,
		ReceivedAt: time.Now().UnixMicro(),
		Book:       book,
		SessionID:  r.sessionID,
	}, nil
}

// flush writes all pending batches to the database.
func (r *Recorder) flush(ctx context.Context) {
	r.batchMu.Lock()
	if len(r.priceBatch)+len(r.tradeBatch)+len(r.bookBatch) == 0 {
		r.batchMu.Unlock()
		return
	}

	// Take ownership of the current batches.
	prices := r.priceBatch
	trades := r.tradeBatch
	books := r.bookBatch
	r.priceBatch = make([]priceRow, 0, r.cfg.BatchSize)
	r.tradeBatch = make([]tradeRow, 0, r.cfg.BatchSize)
	r.bookBatch = nil
	r.batchMu.Unlock()

	start := time.Now()
	count := len(prices) + len(trades) + len(books)

	conflicts, err := r.batchInsert(ctx, prices, trades, books)
	if err != nil {
		r.logger.Error("batch insert failed", "error", err, "count", count)
		r.batchMu.Lock()
		r.metrics.Errors++
		r.batchMu.Unlock()
		return
	}

	r.batchMu.Lock()
	r.metrics.Inserts += int64(count - conflicts)
	r.metrics.Conflicts += int64(conflicts)
	r.metrics.Flushes++
	r.batchMu.Unlock()

	r.logger.Debug("flushed batch",
		"prices", len(prices),
		"trades", len(trades),
		"orderbooks", len(books),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert writes all rows in a single pgx batch. Trade inserts use
// ON CONFLICT DO NOTHING so replays after reconnect are counted as
// conflicts rather than duplicated.
func (r *Recorder) batchInsert(ctx context.Context, prices []priceRow, trades []tradeRow, books []orderbookRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, p := range prices {
		batch.Queue(`
			INSERT INTO prices (ticker, exchange_ts, received_at, yes_price, no_price, yes_bid, yes_ask, no_bid, no_ask, session_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, p.Ticker, p.ExchangeTs, p.ReceivedAt, p.YesPrice, p.NoPrice, p.YesBid, p.YesAsk, p.NoBid, p.NoAsk, p.SessionID)
	}
	for _, t := range trades {
		batch.Queue(`
			INSERT INTO trades (trade_id, ticker, exchange_ts, received_at, price, quantity, taker_side, session_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (trade_id) DO NOTHING
		`, t.TradeID, t.Ticker, t.ExchangeTs, t.ReceivedAt, t.Price, t.Quantity, t.TakerSide, t.SessionID)
	}
	for _, b := range books {
		batch.Queue(`
			INSERT INTO orderbook_snapshots (ticker, exchange_ts, received_at, book, session_id)
			VALUES ($1, $2, $3, $4, $5)
		`, b.Ticker, b.ExchangeTs, b.ReceivedAt, b.Book, b.SessionID)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	total := len(prices) + len(trades) + len(books)
	for i := 0; i < total; i++ {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
