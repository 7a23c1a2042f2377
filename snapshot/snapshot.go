// Package snapshot implements crash-safe, point-in-time persistence of
// engine state: every resting order, the sequencer counters, a bounded
// tail of recent trades per symbol, and the WAL offset reached.
//
// Writes are atomic (write to a temp file, fsync, rename over the
// target) so a crash mid-write never leaves a partial or corrupt
// snapshot visible to the next startup.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"matchcore/decimal"
	"matchcore/domain"
)

// RestingOrder is one order captured at snapshot time, in FIFO
// insertion order within its (symbol, side, price).
type RestingOrder struct {
	Seq           uint64          `json:"seq"`
	Side          domain.Side     `json:"side"`
	Price         decimal.Decimal `json:"price"`
	RemainingQty  decimal.Decimal `json:"remaining_qty"`
	ClientOrderID string          `json:"client_order_id"`
}

// SymbolState is one symbol's book plus its recent-trades ring at
// snapshot time.
type SymbolState struct {
	Symbol        string         `json:"symbol"`
	RestingOrders []RestingOrder `json:"resting_orders"`
	RecentTrades  []domain.Trade `json:"recent_trades"`
}

// Snapshot is the full persisted state of the engine at one instant.
type Snapshot struct {
	NextSeq     uint64        `json:"next_seq"`
	NextTradeID uint64        `json:"next_trade_id"`
	WALOffset   int64         `json:"wal_offset"`
	Symbols     []SymbolState `json:"symbols"`
}

// Save writes snap to path atomically: marshal, write to a sibling
// ".tmp" file, fsync that file, then rename it over path. A reader can
// never observe a partially written snapshot.
func Save(path string, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("snapshot: create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("snapshot: write: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("snapshot: fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("snapshot: close: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("snapshot: rename: %w", err)
	}

	dir, err := os.Open(filepath.Dir(path))
	if err != nil {
		return nil
	}
	defer dir.Close()
	_ = dir.Sync()
	return nil
}

// Load reads and validates the snapshot at path. A missing file returns
// (nil, nil): a fresh engine with no prior snapshot is not an error. A
// malformed file (partial write that escaped the atomic-rename window,
// or disk corruption) is rejected rather than partially trusted.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: read: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("snapshot: corrupt snapshot at %s: %w", path, err)
	}
	return &snap, nil
}
