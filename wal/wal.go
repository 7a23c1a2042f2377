// Package wal implements the append-only write-ahead log: the durable
// record of every accepted mutation the sequencer makes, and the
// streaming reader recovery replays on restart.
package wal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"sync"
	"time"

	"matchcore/decimal"
	"matchcore/domain"
)

// RecordKind discriminates the three record shapes the write path
// produces.
type RecordKind string

const (
	KindOrderAccepted RecordKind = "OrderAccepted"
	KindOrderRested   RecordKind = "OrderRested"
	KindTrade         RecordKind = "Trade"
)

// OrderAccepted is appended once per accepted order, before matching
// runs.
type OrderAccepted struct {
	Seq           uint64
	Symbol        string
	Side          domain.Side
	Price         decimal.Decimal
	Qty           decimal.Decimal
	ClientOrderID string
	TsMs          int64
}

// OrderRested is appended when an order has residual quantity left
// after matching and is inserted into the book.
type OrderRested struct {
	Seq          uint64
	RemainingQty decimal.Decimal
}

// TradeRecord is appended once per fill produced by matching. Recording
// a trade for every fill (rather than relying on replay to re-derive
// them from OrderAccepted) is the durability policy this implementation
// commits to.
type TradeRecord struct {
	TradeID   uint64
	Symbol    string
	Price     decimal.Decimal
	Qty       decimal.Decimal
	MakerSeq  uint64
	TakerSeq  uint64
	TakerSide domain.Side
	TsMs      int64
}

// Entry is one WAL line: exactly one of the three payload fields is set,
// selected by Kind.
type Entry struct {
	Kind          RecordKind
	OrderAccepted *OrderAccepted
	OrderRested   *OrderRested
	Trade         *TradeRecord
}

// line is the on-disk JSON shape. CRC32 is computed over the line with
// CRC32 itself cleared to "", so writer and reader must agree on the
// exact field set and order (Go's encoding/json is deterministic for a
// given struct, which is all this needs).
type line struct {
	Kind          RecordKind `json:"kind"`
	Seq           uint64     `json:"seq,omitempty"`
	Symbol        string     `json:"symbol,omitempty"`
	Side          string     `json:"side,omitempty"`
	Price         string     `json:"price,omitempty"`
	Qty           string     `json:"qty,omitempty"`
	ClientOrderID string     `json:"client_order_id,omitempty"`
	TsMs          int64      `json:"ts_ms,omitempty"`
	RemainingQty  string     `json:"remaining_qty,omitempty"`
	TradeID       uint64     `json:"trade_id,omitempty"`
	MakerSeq      uint64     `json:"maker_seq,omitempty"`
	TakerSeq      uint64     `json:"taker_seq,omitempty"`
	TakerSide     string     `json:"taker_side,omitempty"`
	CRC32         string     `json:"crc32"`
}

func toLine(e Entry) (line, error) {
	l := line{Kind: e.Kind}
	switch e.Kind {
	case KindOrderAccepted:
		a := e.OrderAccepted
		l.Seq = a.Seq
		l.Symbol = a.Symbol
		l.Side = a.Side.String()
		l.Price = a.Price.String()
		l.Qty = a.Qty.String()
		l.ClientOrderID = a.ClientOrderID
		l.TsMs = a.TsMs
	case KindOrderRested:
		r := e.OrderRested
		l.Seq = r.Seq
		l.RemainingQty = r.RemainingQty.String()
	case KindTrade:
		t := e.Trade
		l.TradeID = t.TradeID
		l.Symbol = t.Symbol
		l.Price = t.Price.String()
		l.Qty = t.Qty.String()
		l.MakerSeq = t.MakerSeq
		l.TakerSeq = t.TakerSeq
		l.TakerSide = t.TakerSide.String()
		l.TsMs = t.TsMs
	default:
		return line{}, fmt.Errorf("wal: unknown record kind %q", e.Kind)
	}
	return l, nil
}

func fromLine(l line) (Entry, error) {
	switch l.Kind {
	case KindOrderAccepted:
		price, err := decimal.ParsePrice(l.Price)
		if err != nil {
			return Entry{}, err
		}
		qty, err := decimal.ParseQuantity(l.Qty)
		if err != nil {
			return Entry{}, err
		}
		side, ok := domain.ParseSide(l.Side)
		if !ok {
			return Entry{}, fmt.Errorf("wal: invalid side %q", l.Side)
		}
		return Entry{Kind: l.Kind, OrderAccepted: &OrderAccepted{
			Seq: l.Seq, Symbol: l.Symbol, Side: side, Price: price, Qty: qty,
			ClientOrderID: l.ClientOrderID, TsMs: l.TsMs,
		}}, nil
	case KindOrderRested:
		qty, err := decimal.ParseQuantity(l.RemainingQty)
		if err != nil {
			return Entry{}, err
		}
		return Entry{Kind: l.Kind, OrderRested: &OrderRested{Seq: l.Seq, RemainingQty: qty}}, nil
	case KindTrade:
		price, err := decimal.ParsePrice(l.Price)
		if err != nil {
			return Entry{}, err
		}
		qty, err := decimal.ParseQuantity(l.Qty)
		if err != nil {
			return Entry{}, err
		}
		side, ok := domain.ParseSide(l.TakerSide)
		if !ok {
			return Entry{}, fmt.Errorf("wal: invalid taker side %q", l.TakerSide)
		}
		return Entry{Kind: l.Kind, Trade: &TradeRecord{
			TradeID: l.TradeID, Symbol: l.Symbol, Price: price, Qty: qty,
			MakerSeq: l.MakerSeq, TakerSeq: l.TakerSeq, TakerSide: side, TsMs: l.TsMs,
		}}, nil
	default:
		return Entry{}, fmt.Errorf("wal: unknown record kind %q", l.Kind)
	}
}

func checksum(l line) (string, []byte, error) {
	l.CRC32 = ""
	b, err := json.Marshal(l)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%08x", crc32.ChecksumIEEE(b)), b, nil
}

// FlushPolicy selects how aggressively Append syncs to stable storage.
// Both policies uphold the rule that no Append returns before its
// record is durable; batched mode only changes how many concurrently
// arrived records share one fsync.
type FlushPolicy struct {
	PerRecord bool
	BatchedMs int
}

// ParseFlushPolicy parses the configured flush policy string: either
// "per_record" or "batched_ms:<n>".
func ParseFlushPolicy(s string) (FlushPolicy, error) {
	if s == "" || s == "per_record" {
		return FlushPolicy{PerRecord: true}, nil
	}
	var n int
	if _, err := fmt.Sscanf(s, "batched_ms:%d", &n); err != nil || n <= 0 {
		return FlushPolicy{}, fmt.Errorf("wal: invalid flush policy %q", s)
	}
	return FlushPolicy{BatchedMs: n}, nil
}

// WAL is the append-only log. It is owned exclusively by the sequencer;
// no other component writes to the underlying file.
type WAL struct {
	mu     sync.Mutex
	cond   *sync.Cond
	f      *os.File
	bw     *bufio.Writer
	policy FlushPolicy

	written uint64 // count of lines handed to the buffered writer
	durable uint64 // count of lines confirmed fsynced

	stopCh chan struct{}
	doneCh chan struct{}
}

// Open opens (creating if necessary) the WAL file at path in append
// mode and starts the background flusher for batched policies.
func Open(path string, policy FlushPolicy) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}
	w := &WAL{
		f:      f,
		bw:     bufio.NewWriter(f),
		policy: policy,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)

	if policy.PerRecord {
		close(w.doneCh)
	} else {
		go w.runBatchFlusher(time.Duration(policy.BatchedMs) * time.Millisecond)
	}
	return w, nil
}

func (w *WAL) runBatchFlusher(interval time.Duration) {
	defer close(w.doneCh)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.mu.Lock()
			if w.written > w.durable {
				_ = w.flushLocked()
			}
			w.mu.Unlock()
		case <-w.stopCh:
			w.mu.Lock()
			_ = w.flushLocked()
			w.mu.Unlock()
			return
		}
	}
}

func (w *WAL) flushLocked() error {
	if err := w.bw.Flush(); err != nil {
		return err
	}
	if err := w.f.Sync(); err != nil {
		return err
	}
	w.durable = w.written
	w.cond.Broadcast()
	return nil
}

// Append appends e to the log and does not return until e is durable on
// stable storage, per the flush-before-ack contract.
func (w *WAL) Append(e Entry) error {
	l, err := toLine(e)
	if err != nil {
		return err
	}
	crc, _, err := checksum(l)
	if err != nil {
		return err
	}
	l.CRC32 = crc
	b, err := json.Marshal(l)
	if err != nil {
		return err
	}

	w.mu.Lock()
	if _, err := w.bw.Write(b); err != nil {
		w.mu.Unlock()
		return fmt.Errorf("wal: write: %w", err)
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		w.mu.Unlock()
		return fmt.Errorf("wal: write: %w", err)
	}
	w.written++
	mine := w.written

	if w.policy.PerRecord {
		err := w.flushLocked()
		w.mu.Unlock()
		return err
	}

	for w.durable < mine {
		w.cond.Wait()
	}
	w.mu.Unlock()
	return nil
}

// Offset returns the current length of the WAL file in bytes. Records
// still held in the write buffer are not counted; under a batched
// policy the count can include bytes written to the file but not yet
// fsynced.
func (w *WAL) Offset() (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	info, err := w.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Close flushes any buffered data and closes the underlying file.
func (w *WAL) Close() error {
	if !w.policy.PerRecord {
		close(w.stopCh)
		<-w.doneCh
	}
	w.mu.Lock()
	err := w.flushLocked()
	w.mu.Unlock()
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	return err
}
