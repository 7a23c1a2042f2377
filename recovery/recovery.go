// Package recovery implements the startup orchestration that rebuilds
// engine state from the last snapshot plus the WAL records written
// since that snapshot, without re-running the matching algorithm.
package recovery

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"matchcore/domain"
	"matchcore/engine"
	"matchcore/orderbook"
	"matchcore/snapshot"
	"matchcore/wal"
)

const (
	// SnapshotFileName is the fixed snapshot file name within a data
	// directory.
	SnapshotFileName = "snapshot.json"
	// WALFileName is the fixed WAL file name within a data directory.
	WALFileName = "wal.jsonl"
)

// Result is the reconstructed engine plus diagnostics worth logging.
type Result struct {
	Engine          *engine.Engine
	WAL             *wal.WAL
	RecordsReplayed int
	WALTruncated    bool
}

// Recover rebuilds engine state on startup in five steps:
//  1. Load the snapshot, if one exists and is well-formed.
//  2. Skip WAL records the snapshot already covers.
//  3. Apply the remainder in file order, without re-appending to the WAL.
//  4. Discard a malformed tail record and log the truncation point.
//  5. Compute the resuming next_seq/next_trade_id and open the WAL for
//     subsequent appends.
func Recover(dataDir string, flushPolicy wal.FlushPolicy, cfg engine.Config, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	snap, err := snapshot.Load(filepath.Join(dataDir, SnapshotFileName))
	if err != nil {
		return Result{}, fmt.Errorf("recovery: load snapshot: %w", err)
	}

	books := make(map[string]*orderbook.Book)
	trades := make(map[string][]domain.Trade)
	var lastSeq, lastTradeID uint64

	if snap != nil {
		if snap.NextSeq > 0 {
			lastSeq = snap.NextSeq - 1
		}
		if snap.NextTradeID > 0 {
			lastTradeID = snap.NextTradeID - 1
		}
		for _, s := range snap.Symbols {
			book := orderbook.NewBook(s.Symbol, cfg.TreeKind)
			for _, ro := range s.RestingOrders {
				book.Rest(&domain.Order{
					Seq: ro.Seq, Symbol: s.Symbol, Side: ro.Side,
					Price: ro.Price, RemainingQty: ro.RemainingQty, ClientOrderID: ro.ClientOrderID,
				})
			}
			books[s.Symbol] = book
			trades[s.Symbol] = append([]domain.Trade(nil), s.RecentTrades...)
		}
	}

	walPath := filepath.Join(dataDir, WALFileName)
	readResult, err := wal.ReadAll(walPath)
	if err != nil {
		return Result{}, fmt.Errorf("recovery: read wal: %w", err)
	}
	if readResult.Truncated {
		if err := os.Truncate(walPath, readResult.ValidBytes); err != nil {
			return Result{}, fmt.Errorf("recovery: truncate torn wal tail: %w", err)
		}
		logger.Warn("wal tail discarded on recovery", zap.Int64("valid_bytes", readResult.ValidBytes))
	}

	bookFor := func(symbol string) *orderbook.Book {
		if b, ok := books[symbol]; ok {
			return b
		}
		b := orderbook.NewBook(symbol, cfg.TreeKind)
		books[symbol] = b
		return b
	}

	maxSeq, maxTradeID := lastSeq, lastTradeID
	pending := make(map[uint64]*domain.Order)
	replayed := 0

	for _, entry := range readResult.Entries {
		switch entry.Kind {
		case wal.KindOrderAccepted:
			a := entry.OrderAccepted
			if a.Seq > maxSeq {
				maxSeq = a.Seq
			}
			if a.Seq <= lastSeq {
				continue
			}
			pending[a.Seq] = &domain.Order{
				Seq: a.Seq, Symbol: a.Symbol, Side: a.Side,
				Price: a.Price, RemainingQty: a.Qty, ClientOrderID: a.ClientOrderID,
			}
			replayed++

		case wal.KindTrade:
			tr := entry.Trade
			if tr.TradeID > maxTradeID {
				maxTradeID = tr.TradeID
			}
			if tr.TradeID <= lastTradeID {
				continue
			}
			makerSide := tr.TakerSide.Opposite()
			if err := bookFor(tr.Symbol).ApplyFill(makerSide, tr.Price, tr.MakerSeq, tr.Qty); err != nil {
				return Result{}, fmt.Errorf("recovery: replay trade %d: %w", tr.TradeID, err)
			}
			trades[tr.Symbol] = append(trades[tr.Symbol], domain.Trade{
				TradeID: tr.TradeID, Symbol: tr.Symbol, Price: tr.Price, Qty: tr.Qty,
				MakerSeq: tr.MakerSeq, TakerSeq: tr.TakerSeq, TakerSide: tr.TakerSide, TsMs: tr.TsMs,
			})
			replayed++

		case wal.KindOrderRested:
			r := entry.OrderRested
			if r.Seq > maxSeq {
				maxSeq = r.Seq
			}
			if r.Seq <= lastSeq {
				continue
			}
			order, ok := pending[r.Seq]
			if !ok {
				return Result{}, fmt.Errorf("recovery: OrderRested for unknown seq %d", r.Seq)
			}
			order.RemainingQty = r.RemainingQty
			bookFor(order.Symbol).Rest(order)
			delete(pending, r.Seq)
			replayed++
		}
	}

	var symbols []engine.RecoveredSymbolState
	for symbol, book := range books {
		symbols = append(symbols, engine.RecoveredSymbolState{
			Symbol:        symbol,
			RestingOrders: book.AllOrders(),
			RecentTrades:  trades[symbol],
		})
	}

	w, err := wal.Open(walPath, flushPolicy)
	if err != nil {
		return Result{}, fmt.Errorf("recovery: open wal for appends: %w", err)
	}

	nextSeq := maxSeq + 1
	nextTradeID := maxTradeID + 1
	eng := engine.NewRecovered(w, cfg, nextSeq, nextTradeID, symbols)

	logger.Info("recovery complete",
		zap.Int("records_replayed", replayed),
		zap.Uint64("next_seq", nextSeq),
		zap.Uint64("next_trade_id", nextTradeID),
		zap.Bool("wal_truncated", readResult.Truncated),
		zap.Bool("snapshot_loaded", snap != nil),
	)

	return Result{Engine: eng, WAL: w, RecordsReplayed: replayed, WALTruncated: readResult.Truncated}, nil
}
