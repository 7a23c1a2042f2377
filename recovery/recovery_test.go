package recovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"matchcore/decimal"
	"matchcore/domain"
	"matchcore/engine"
	"matchcore/orderbook"
	"matchcore/snapshot"
	"matchcore/wal"
)

func testConfig() engine.Config {
	return engine.Config{TreeKind: orderbook.TreeKindRedBlack}
}

func TestRecoverFreshDataDirStartsCountersAtOne(t *testing.T) {
	dir := t.TempDir()

	res, err := Recover(dir, wal.FlushPolicy{PerRecord: true}, testConfig(), zap.NewNop())
	require.NoError(t, err)
	defer res.WAL.Close()

	assert.Equal(t, 0, res.RecordsReplayed)
	assert.False(t, res.WALTruncated)

	top := res.Engine.GetTopOfBook("BTC-USD")
	assert.True(t, top.BestBidPrice.IsZero())

	snap := res.Engine.Snapshot()
	assert.Equal(t, uint64(1), snap.NextSeq)
	assert.Equal(t, uint64(1), snap.NextTradeID)
}

func TestRecoverSnapshotOnlyNoWALTail(t *testing.T) {
	dir := t.TempDir()
	price, _ := decimal.ParsePrice("100")
	qty, _ := decimal.ParseQuantity("2")

	err := snapshot.Save(filepath.Join(dir, SnapshotFileName), snapshot.Snapshot{
		NextSeq:     3,
		NextTradeID: 1,
		Symbols: []snapshot.SymbolState{
			{
				Symbol: "BTC-USD",
				RestingOrders: []snapshot.RestingOrder{
					{Seq: 1, Side: domain.Buy, Price: price, RemainingQty: qty, ClientOrderID: "c1"},
				},
			},
		},
	})
	require.NoError(t, err)

	res, err := Recover(dir, wal.FlushPolicy{PerRecord: true}, testConfig(), zap.NewNop())
	require.NoError(t, err)
	defer res.WAL.Close()

	assert.Equal(t, 0, res.RecordsReplayed)
	top := res.Engine.GetTopOfBook("BTC-USD")
	assert.Equal(t, "100", top.BestBidPrice.String())
	assert.Equal(t, "2", top.BestBidQty.String())

	snap := res.Engine.Snapshot()
	assert.Equal(t, uint64(3), snap.NextSeq)
	assert.Equal(t, uint64(1), snap.NextTradeID)
}

func TestRecoverSnapshotPlusWALTailReplaysTrade(t *testing.T) {
	dir := t.TempDir()
	price, _ := decimal.ParsePrice("100")
	makerQty, _ := decimal.ParseQuantity("5")

	err := snapshot.Save(filepath.Join(dir, SnapshotFileName), snapshot.Snapshot{
		NextSeq:     2,
		NextTradeID: 1,
		Symbols: []snapshot.SymbolState{
			{
				Symbol: "BTC-USD",
				RestingOrders: []snapshot.RestingOrder{
					{Seq: 1, Side: domain.Sell, Price: price, RemainingQty: makerQty, ClientOrderID: "maker"},
				},
			},
		},
	})
	require.NoError(t, err)

	w, err := wal.Open(filepath.Join(dir, WALFileName), wal.FlushPolicy{PerRecord: true})
	require.NoError(t, err)

	fillQty, _ := decimal.ParseQuantity("3")
	require.NoError(t, w.Append(wal.Entry{Kind: wal.KindOrderAccepted, OrderAccepted: &wal.OrderAccepted{
		Seq: 2, Symbol: "BTC-USD", Side: domain.Buy, Price: price, Qty: fillQty, ClientOrderID: "taker", TsMs: 10,
	}}))
	require.NoError(t, w.Append(wal.Entry{Kind: wal.KindTrade, Trade: &wal.TradeRecord{
		TradeID: 1, Symbol: "BTC-USD", Price: price, Qty: fillQty,
		MakerSeq: 1, TakerSeq: 2, TakerSide: domain.Buy, TsMs: 10,
	}}))
	require.NoError(t, w.Close())

	res, err := Recover(dir, wal.FlushPolicy{PerRecord: true}, testConfig(), zap.NewNop())
	require.NoError(t, err)
	defer res.WAL.Close()

	assert.Equal(t, 2, res.RecordsReplayed)
	assert.False(t, res.WALTruncated)

	top := res.Engine.GetTopOfBook("BTC-USD")
	assert.Equal(t, "100", top.BestAskPrice.String())
	assert.Equal(t, "2", top.BestAskQty.String())

	trades, lastID := res.Engine.GetRecentTrades("BTC-USD", 0, 10)
	require.Len(t, trades, 1)
	assert.Equal(t, uint64(1), lastID)
	assert.Equal(t, "3", trades[0].Qty.String())

	snap := res.Engine.Snapshot()
	assert.Equal(t, uint64(3), snap.NextSeq)
	assert.Equal(t, uint64(2), snap.NextTradeID)
}

func TestRecoverOrderRestedAfterPartialFill(t *testing.T) {
	dir := t.TempDir()
	price, _ := decimal.ParsePrice("100")

	w, err := wal.Open(filepath.Join(dir, WALFileName), wal.FlushPolicy{PerRecord: true})
	require.NoError(t, err)

	makerQty, _ := decimal.ParseQuantity("5")
	require.NoError(t, w.Append(wal.Entry{Kind: wal.KindOrderAccepted, OrderAccepted: &wal.OrderAccepted{
		Seq: 1, Symbol: "BTC-USD", Side: domain.Sell, Price: price, Qty: makerQty, ClientOrderID: "maker", TsMs: 1,
	}}))
	require.NoError(t, w.Append(wal.Entry{Kind: wal.KindOrderRested, OrderRested: &wal.OrderRested{
		Seq: 1, RemainingQty: makerQty,
	}}))

	takerQty, _ := decimal.ParseQuantity("2")
	require.NoError(t, w.Append(wal.Entry{Kind: wal.KindOrderAccepted, OrderAccepted: &wal.OrderAccepted{
		Seq: 2, Symbol: "BTC-USD", Side: domain.Buy, Price: price, Qty: takerQty, ClientOrderID: "taker", TsMs: 2,
	}}))
	require.NoError(t, w.Append(wal.Entry{Kind: wal.KindTrade, Trade: &wal.TradeRecord{
		TradeID: 1, Symbol: "BTC-USD", Price: price, Qty: takerQty,
		MakerSeq: 1, TakerSeq: 2, TakerSide: domain.Buy, TsMs: 2,
	}}))
	require.NoError(t, w.Close())

	res, err := Recover(dir, wal.FlushPolicy{PerRecord: true}, testConfig(), zap.NewNop())
	require.NoError(t, err)
	defer res.WAL.Close()

	top := res.Engine.GetTopOfBook("BTC-USD")
	assert.Equal(t, "100", top.BestAskPrice.String())
	assert.Equal(t, "3", top.BestAskQty.String())

	snap := res.Engine.Snapshot()
	assert.Equal(t, uint64(3), snap.NextSeq)
	assert.Equal(t, uint64(2), snap.NextTradeID)
}

func TestRecoverDiscardsTornWALTail(t *testing.T) {
	dir := t.TempDir()
	price, _ := decimal.ParsePrice("100")
	qty, _ := decimal.ParseQuantity("1")

	w, err := wal.Open(filepath.Join(dir, WALFileName), wal.FlushPolicy{PerRecord: true})
	require.NoError(t, err)
	require.NoError(t, w.Append(wal.Entry{Kind: wal.KindOrderAccepted, OrderAccepted: &wal.OrderAccepted{
		Seq: 1, Symbol: "BTC-USD", Side: domain.Buy, Price: price, Qty: qty, ClientOrderID: "c1", TsMs: 1,
	}}))
	require.NoError(t, w.Append(wal.Entry{Kind: wal.KindOrderRested, OrderRested: &wal.OrderRested{
		Seq: 1, RemainingQty: qty,
	}}))
	require.NoError(t, w.Close())

	f, err := os.OpenFile(filepath.Join(dir, WALFileName), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"kind":"OrderAccepted","seq":2,"symbol":"BTC-US`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	res, err := Recover(dir, wal.FlushPolicy{PerRecord: true}, testConfig(), zap.NewNop())
	require.NoError(t, err)
	defer res.WAL.Close()

	assert.True(t, res.WALTruncated)
	assert.Equal(t, 2, res.RecordsReplayed)

	top := res.Engine.GetTopOfBook("BTC-USD")
	assert.Equal(t, "100", top.BestBidPrice.String())
}

// A crash between the OrderAccepted append and the following Trade or
// OrderRested append leaves a taker with no record of what, if anything,
// happened to it. That order never reached a client ack, so recovery
// drops it rather than guessing its fate; the client is expected to
// resubmit.
func TestRecoverDropsUnresolvedPendingOrder(t *testing.T) {
	dir := t.TempDir()
	price, _ := decimal.ParsePrice("100")
	qty, _ := decimal.ParseQuantity("1")

	w, err := wal.Open(filepath.Join(dir, WALFileName), wal.FlushPolicy{PerRecord: true})
	require.NoError(t, err)
	require.NoError(t, w.Append(wal.Entry{Kind: wal.KindOrderAccepted, OrderAccepted: &wal.OrderAccepted{
		Seq: 1, Symbol: "BTC-USD", Side: domain.Buy, Price: price, Qty: qty, ClientOrderID: "c1", TsMs: 1,
	}}))
	require.NoError(t, w.Close())

	res, err := Recover(dir, wal.FlushPolicy{PerRecord: true}, testConfig(), zap.NewNop())
	require.NoError(t, err)
	defer res.WAL.Close()

	assert.Equal(t, 1, res.RecordsReplayed)
	top := res.Engine.GetTopOfBook("BTC-USD")
	assert.True(t, top.BestBidPrice.IsZero())

	snap := res.Engine.Snapshot()
	assert.Equal(t, uint64(2), snap.NextSeq)
}

func TestRecoverRecentTradesQueryableAfterRestart(t *testing.T) {
	dir := t.TempDir()
	price, _ := decimal.ParsePrice("100")

	w, err := wal.Open(filepath.Join(dir, WALFileName), wal.FlushPolicy{PerRecord: true})
	require.NoError(t, err)

	makerQty, _ := decimal.ParseQuantity("5")
	require.NoError(t, w.Append(wal.Entry{Kind: wal.KindOrderAccepted, OrderAccepted: &wal.OrderAccepted{
		Seq: 1, Symbol: "BTC-USD", Side: domain.Sell, Price: price, Qty: makerQty, ClientOrderID: "maker", TsMs: 1,
	}}))
	require.NoError(t, w.Append(wal.Entry{Kind: wal.KindOrderRested, OrderRested: &wal.OrderRested{
		Seq: 1, RemainingQty: makerQty,
	}}))

	takerQty, _ := decimal.ParseQuantity("5")
	require.NoError(t, w.Append(wal.Entry{Kind: wal.KindOrderAccepted, OrderAccepted: &wal.OrderAccepted{
		Seq: 2, Symbol: "BTC-USD", Side: domain.Buy, Price: price, Qty: takerQty, ClientOrderID: "taker", TsMs: 2,
	}}))
	require.NoError(t, w.Append(wal.Entry{Kind: wal.KindTrade, Trade: &wal.TradeRecord{
		TradeID: 1, Symbol: "BTC-USD", Price: price, Qty: takerQty,
		MakerSeq: 1, TakerSeq: 2, TakerSide: domain.Buy, TsMs: 2,
	}}))
	require.NoError(t, w.Close())

	res, err := Recover(dir, wal.FlushPolicy{PerRecord: true}, testConfig(), zap.NewNop())
	require.NoError(t, err)
	defer res.WAL.Close()

	trades, lastID := res.Engine.GetRecentTrades("BTC-USD", 0, 10)
	require.Len(t, trades, 1)
	assert.Equal(t, uint64(1), trades[0].TradeID)
	assert.Equal(t, uint64(1), lastID)

	more, lastID2 := res.Engine.GetRecentTrades("BTC-USD", lastID, 10)
	assert.Empty(t, more)
	assert.Equal(t, lastID, lastID2)
}
