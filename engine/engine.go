// Package engine implements the sequencer: the single serialization
// point for order submission, owning the global seq/trade_id counters,
// the per-symbol order books, the WAL, and the bounded recent-trades
// rings queries read from.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"matchcore/decimal"
	"matchcore/domain"
	"matchcore/engine/ringbuf"
	"matchcore/orderbook"
	"matchcore/snapshot"
	"matchcore/wal"
)

const (
	defaultTradeRingSize = 4096
	defaultQueueCapacity = 4096

	// MaxTradesLimit bounds how many trades a single GetRecentTrades
	// call may return, regardless of the caller-requested limit.
	MaxTradesLimit = 1000
)

// Config configures a new Engine. Zero values are replaced with
// defaults in New.
type Config struct {
	TreeKind      orderbook.TreeKind
	TradeRingSize int
	QueueCapacity int
	Clock         Clock
	Logger        *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.TradeRingSize <= 0 {
		c.TradeRingSize = defaultTradeRingSize
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = defaultQueueCapacity
	}
	if c.Clock == nil {
		c.Clock = systemClock{}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// SubmitOrderResult is the response to a successful SubmitOrder call.
type SubmitOrderResult struct {
	AcceptedSeq uint64
	Fills       []domain.Fill
}

// TopOfBook mirrors orderbook.TopOfBook at the engine API boundary.
type TopOfBook = orderbook.TopOfBook

// DepthLevel mirrors orderbook.DepthLevel at the engine API boundary.
type DepthLevel = orderbook.DepthLevel

// HealthStatus is the liveness marker Health returns.
type HealthStatus struct {
	Status string
}

type submission struct {
	symbol        string
	side          domain.Side
	price         decimal.Decimal
	qty           decimal.Decimal
	clientOrderID string
	respCh        chan submissionResult
}

type submissionResult struct {
	result SubmitOrderResult
	err    error
}

// Engine is the sequencer: the single mutator of book state and the WAL,
// reachable concurrently by many readers under mu.
type Engine struct {
	cfg Config

	mu     sync.RWMutex
	books  map[string]*orderbook.Book
	trades map[string]*tradeRing

	nextSeq     atomic.Uint64
	nextTradeID atomic.Uint64

	w     *wal.WAL
	fatal atomic.Pointer[FatalError]

	// lastMs is the last ts_ms stamped on a WAL record. Only the writer
	// goroutine touches it (via nowMs, called from process), so it needs
	// no synchronization of its own.
	lastMs int64

	queue *ringbuf.Queue[*submission]

	stopOnce sync.Once
	cancel   context.CancelFunc
	doneCh   chan struct{}
}

// New creates an Engine over an already-open WAL, with fresh counters
// starting at 1. Use NewRecovered to start from a recovered state
// instead.
func New(w *wal.WAL, cfg Config) *Engine {
	e := newEngine(w, cfg)
	e.nextSeq.Store(1)
	e.nextTradeID.Store(1)
	return e
}

// RecoveredSymbolState is one symbol's reconstructed state, as produced
// by the recovery package from a snapshot plus WAL replay.
type RecoveredSymbolState struct {
	Symbol        string
	RestingOrders []*domain.Order // priority order: bids high→low, asks low→high, FIFO within a level
	RecentTrades  []domain.Trade  // ascending trade_id
}

// NewRecovered creates an Engine pre-populated with reconstructed state:
// the counters recovery computed and, per symbol, the resting orders and
// recent trades recovery replayed from the WAL.
func NewRecovered(w *wal.WAL, cfg Config, nextSeq, nextTradeID uint64, symbols []RecoveredSymbolState) *Engine {
	e := newEngine(w, cfg)
	e.nextSeq.Store(nextSeq)
	e.nextTradeID.Store(nextTradeID)

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range symbols {
		book := e.bookForLocked(s.Symbol)
		for _, o := range s.RestingOrders {
			book.Rest(o)
		}
		ring := e.tradeRingForLocked(s.Symbol)
		for _, t := range s.RecentTrades {
			ring.push(t)
		}
	}
	return e
}

func newEngine(w *wal.WAL, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:    cfg,
		books:  make(map[string]*orderbook.Book),
		trades: make(map[string]*tradeRing),
		w:      w,
		queue:  ringbuf.New[*submission](cfg.QueueCapacity),
		doneCh: make(chan struct{}),
	}
}

// bookForLocked returns (lazily creating) the book for symbol. Callers
// must hold mu for writing.
func (e *Engine) bookForLocked(symbol string) *orderbook.Book {
	if b, ok := e.books[symbol]; ok {
		return b
	}
	b := orderbook.NewBook(symbol, e.cfg.TreeKind)
	e.books[symbol] = b
	return b
}

func (e *Engine) tradeRingForLocked(symbol string) *tradeRing {
	if r, ok := e.trades[symbol]; ok {
		return r
	}
	r := newTradeRing(e.cfg.TradeRingSize)
	e.trades[symbol] = r
	return r
}

// Start runs the single writer loop until ctx is cancelled or Stop is
// called.
func (e *Engine) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	go e.run(runCtx)
}

// Stop signals the writer loop to exit and waits for it to drain.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		if e.cancel != nil {
			e.cancel()
		}
	})
	<-e.doneCh
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.doneCh)
	for {
		sub, ok := e.queue.Consume(ctx)
		if !ok {
			return
		}
		result, err := e.process(sub)
		sub.respCh <- submissionResult{result: result, err: err}
	}
}

// SubmitOrder validates and submits an order. Validation happens
// synchronously in the caller's goroutine (no shared state touched, no
// seq consumed for a rejected order); acceptance, matching, and WAL
// durability happen on the single writer goroutine.
func (e *Engine) SubmitOrder(ctx context.Context, symbol, sideStr, priceStr, qtyStr, clientOrderID string) (SubmitOrderResult, error) {
	if f := e.fatal.Load(); f != nil {
		return SubmitOrderResult{}, f
	}

	if symbol == "" {
		return SubmitOrderResult{}, &ValidationError{Reason: ReasonEmptySymbol}
	}
	side, ok := domain.ParseSide(sideStr)
	if !ok {
		return SubmitOrderResult{}, &ValidationError{Reason: ReasonInvalidSide, Err: fmt.Errorf("got %q", sideStr)}
	}
	price, err := decimal.ParsePrice(priceStr)
	if err != nil {
		return SubmitOrderResult{}, &ValidationError{Reason: ReasonInvalidPrice, Err: err}
	}
	qty, err := decimal.ParseQuantity(qtyStr)
	if err != nil {
		return SubmitOrderResult{}, &ValidationError{Reason: ReasonInvalidQuantity, Err: err}
	}

	sub := &submission{
		symbol: symbol, side: side, price: price, qty: qty,
		clientOrderID: clientOrderID,
		respCh:        make(chan submissionResult, 1),
	}
	if err := e.queue.Publish(ctx, sub); err != nil {
		return SubmitOrderResult{}, err
	}

	select {
	case r := <-sub.respCh:
		return r.result, r.err
	case <-ctx.Done():
		return SubmitOrderResult{}, ctx.Err()
	}
}

// process runs entirely on the writer goroutine: assign seq, append
// OrderAccepted, match, append one Trade per fill, rest any residual
// quantity and append OrderRested. An I/O failure anywhere here is
// fatal: the engine stops accepting further work rather than risk
// acknowledging a write that did not durably persist. mu is held for
// the whole submission, so readers only ever see state between
// submissions.
func (e *Engine) process(sub *submission) (SubmitOrderResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	seq := e.nextSeq.Add(1) - 1
	tsMs := e.nowMs()

	order := &domain.Order{
		Seq: seq, Symbol: sub.symbol, Side: sub.side,
		Price: sub.price, RemainingQty: sub.qty, ClientOrderID: sub.clientOrderID,
	}

	if err := e.w.Append(wal.Entry{Kind: wal.KindOrderAccepted, OrderAccepted: &wal.OrderAccepted{
		Seq: seq, Symbol: sub.symbol, Side: sub.side, Price: sub.price, Qty: sub.qty,
		ClientOrderID: sub.clientOrderID, TsMs: tsMs,
	}}); err != nil {
		return SubmitOrderResult{}, e.raiseFatal(err)
	}

	book := e.bookForLocked(sub.symbol)
	fills := book.Match(order)

	for _, f := range fills {
		tradeID := e.nextTradeID.Add(1) - 1
		trade := domain.Trade{
			TradeID: tradeID, Symbol: sub.symbol, Price: f.Price, Qty: f.Qty,
			MakerSeq: f.MakerSeq, TakerSeq: f.TakerSeq, TakerSide: sub.side, TsMs: tsMs,
		}
		if err := e.w.Append(wal.Entry{Kind: wal.KindTrade, Trade: &wal.TradeRecord{
			TradeID: tradeID, Symbol: sub.symbol, Price: f.Price, Qty: f.Qty,
			MakerSeq: f.MakerSeq, TakerSeq: f.TakerSeq, TakerSide: sub.side, TsMs: tsMs,
		}}); err != nil {
			return SubmitOrderResult{}, e.raiseFatal(err)
		}

		e.tradeRingForLocked(sub.symbol).push(trade)
	}

	if !order.RemainingQty.IsZero() {
		if err := e.w.Append(wal.Entry{Kind: wal.KindOrderRested, OrderRested: &wal.OrderRested{
			Seq: seq, RemainingQty: order.RemainingQty,
		}}); err != nil {
			return SubmitOrderResult{}, e.raiseFatal(err)
		}
		book.Rest(order)
	}

	return SubmitOrderResult{AcceptedSeq: seq, Fills: fills}, nil
}

// nowMs returns a timestamp that never decreases within the engine's
// lifetime, even if the underlying clock's NowMs does: it only runs on
// the single writer goroutine, so reading and updating lastMs needs no
// lock.
func (e *Engine) nowMs() int64 {
	now := e.cfg.Clock.NowMs()
	if now < e.lastMs {
		now = e.lastMs
	}
	e.lastMs = now
	return now
}

func (e *Engine) raiseFatal(cause error) error {
	fe := &FatalError{Err: cause}
	e.fatal.Store(fe)
	e.cfg.Logger.Error("fatal WAL I/O error, halting engine", zap.Error(cause))
	e.stopOnce.Do(func() {
		if e.cancel != nil {
			e.cancel()
		}
	})
	return fe
}

// GetTopOfBook returns the current best bid/ask for symbol. Never fails
// for a valid symbol string; an unknown symbol simply has an empty book.
func (e *Engine) GetTopOfBook(symbol string) TopOfBook {
	e.mu.RLock()
	defer e.mu.RUnlock()
	book, ok := e.books[symbol]
	if !ok {
		return TopOfBook{}
	}
	return book.Top()
}

// GetBookDepth returns up to levels aggregated price levels per side.
func (e *Engine) GetBookDepth(symbol string, levels int) (bids, asks []DepthLevel) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	book, ok := e.books[symbol]
	if !ok {
		return []DepthLevel{}, []DepthLevel{}
	}
	return book.Depth(levels)
}

// GetRecentTrades returns up to limit trades for symbol with
// trade_id > afterTradeID, ascending, plus the max trade_id returned.
func (e *Engine) GetRecentTrades(symbol string, afterTradeID uint64, limit int) ([]domain.Trade, uint64) {
	if limit <= 0 || limit > MaxTradesLimit {
		limit = MaxTradesLimit
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	ring, ok := e.trades[symbol]
	if !ok {
		return []domain.Trade{}, afterTradeID
	}
	return ring.after(afterTradeID, limit)
}

// Health returns a liveness marker. It never mutates state.
func (e *Engine) Health() HealthStatus {
	if e.fatal.Load() != nil {
		return HealthStatus{Status: "fatal"}
	}
	return HealthStatus{Status: "ok"}
}

// Done returns a channel that closes when the writer loop exits, either
// because the caller called Stop, its context was cancelled, or a
// FatalError halted it. Callers that need to distinguish a halt they
// didn't ask for should check Err after Done closes.
func (e *Engine) Done() <-chan struct{} {
	return e.doneCh
}

// Err returns the error that halted the engine, if any. It is nil until
// a FatalError is raised, and stays set afterward.
func (e *Engine) Err() error {
	if fe := e.fatal.Load(); fe != nil {
		return fe
	}
	return nil
}

// Snapshot captures the engine's current state for persistence.
func (e *Engine) Snapshot() snapshot.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	offset, _ := e.w.Offset()
	snap := snapshot.Snapshot{
		NextSeq:     e.nextSeq.Load(),
		NextTradeID: e.nextTradeID.Load(),
		WALOffset:   offset,
	}
	for symbol, book := range e.books {
		var resting []snapshot.RestingOrder
		for _, o := range book.AllOrders() {
			resting = append(resting, snapshot.RestingOrder{
				Seq: o.Seq, Side: o.Side, Price: o.Price,
				RemainingQty: o.RemainingQty, ClientOrderID: o.ClientOrderID,
			})
		}
		var recent []domain.Trade
		if ring, ok := e.trades[symbol]; ok {
			recent = ring.snapshot()
		}
		snap.Symbols = append(snap.Symbols, snapshot.SymbolState{
			Symbol: symbol, RestingOrders: resting, RecentTrades: recent,
		})
	}
	return snap
}
