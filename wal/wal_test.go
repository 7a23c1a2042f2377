package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchcore/decimal"
	"matchcore/domain"
)

func mustPrice(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.ParsePrice(s)
	require.NoError(t, err)
	return d
}

func mustQty(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.ParseQuantity(s)
	require.NoError(t, err)
	return d
}

func TestParseFlushPolicy(t *testing.T) {
	p, err := ParseFlushPolicy("")
	require.NoError(t, err)
	assert.True(t, p.PerRecord)

	p, err = ParseFlushPolicy("per_record")
	require.NoError(t, err)
	assert.True(t, p.PerRecord)

	p, err = ParseFlushPolicy("batched_ms:50")
	require.NoError(t, err)
	assert.False(t, p.PerRecord)
	assert.Equal(t, 50, p.BatchedMs)

	_, err = ParseFlushPolicy("garbage")
	assert.Error(t, err)

	_, err = ParseFlushPolicy("batched_ms:0")
	assert.Error(t, err)
}

func TestAppendAndReadAllPerRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wal.jsonl")

	w, err := Open(path, FlushPolicy{PerRecord: true})
	require.NoError(t, err)

	require.NoError(t, w.Append(Entry{Kind: KindOrderAccepted, OrderAccepted: &OrderAccepted{
		Seq: 1, Symbol: "BTC-USD", Side: domain.Buy, Price: mustPrice(t, "100"),
		Qty: mustQty(t, "2"), ClientOrderID: "c1", TsMs: 1000,
	}}))
	require.NoError(t, w.Append(Entry{Kind: KindTrade, Trade: &TradeRecord{
		TradeID: 1, Symbol: "BTC-USD", Price: mustPrice(t, "100"), Qty: mustQty(t, "2"),
		MakerSeq: 0, TakerSeq: 1, TakerSide: domain.Buy, TsMs: 1001,
	}}))
	require.NoError(t, w.Append(Entry{Kind: KindOrderRested, OrderRested: &OrderRested{
		Seq: 1, RemainingQty: mustQty(t, "1"),
	}}))
	require.NoError(t, w.Close())

	result, err := ReadAll(path)
	require.NoError(t, err)
	assert.False(t, result.Truncated)
	require.Len(t, result.Entries, 3)

	assert.Equal(t, KindOrderAccepted, result.Entries[0].Kind)
	assert.Equal(t, uint64(1), result.Entries[0].OrderAccepted.Seq)
	assert.Equal(t, "100", result.Entries[0].OrderAccepted.Price.String())

	assert.Equal(t, KindTrade, result.Entries[1].Kind)
	assert.Equal(t, uint64(1), result.Entries[1].Trade.TradeID)

	assert.Equal(t, KindOrderRested, result.Entries[2].Kind)
	assert.Equal(t, "1", result.Entries[2].OrderRested.RemainingQty.String())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), result.ValidBytes)
}

func TestAppendBatchedModeIsDurableBeforeReturn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wal.jsonl")

	w, err := Open(path, FlushPolicy{BatchedMs: 20})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Append(Entry{Kind: KindOrderAccepted, OrderAccepted: &OrderAccepted{
		Seq: 1, Symbol: "BTC-USD", Side: domain.Sell, Price: mustPrice(t, "50"),
		Qty: mustQty(t, "1"), ClientOrderID: "c1", TsMs: 1,
	}}))

	// Append only returns once durable=written for this record's index,
	// so a read right after should already see it without waiting for
	// the ticker again.
	result, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
}

func TestReadAllDiscardsTornTail(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wal.jsonl")

	w, err := Open(path, FlushPolicy{PerRecord: true})
	require.NoError(t, err)
	require.NoError(t, w.Append(Entry{Kind: KindOrderAccepted, OrderAccepted: &OrderAccepted{
		Seq: 1, Symbol: "BTC-USD", Side: domain.Buy, Price: mustPrice(t, "10"),
		Qty: mustQty(t, "1"), ClientOrderID: "c1", TsMs: 1,
	}}))
	require.NoError(t, w.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"kind":"OrderAccepted","seq":2,"symbol":"BTC-US`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	result, err := ReadAll(path)
	require.NoError(t, err)
	assert.True(t, result.Truncated)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, uint64(1), result.Entries[0].OrderAccepted.Seq)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Less(t, result.ValidBytes, info.Size())
}

func TestReadAllDetectsChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wal.jsonl")

	w, err := Open(path, FlushPolicy{PerRecord: true})
	require.NoError(t, err)
	require.NoError(t, w.Append(Entry{Kind: KindOrderAccepted, OrderAccepted: &OrderAccepted{
		Seq: 1, Symbol: "BTC-USD", Side: domain.Buy, Price: mustPrice(t, "10"),
		Qty: mustQty(t, "1"), ClientOrderID: "c1", TsMs: 1,
	}}))
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	corrupted := []byte{}
	corrupted = append(corrupted, raw...)
	for i, b := range corrupted {
		if b == '1' {
			corrupted[i] = '9'
			break
		}
	}
	require.NoError(t, os.WriteFile(path, corrupted, 0o644))

	result, err := ReadAll(path)
	require.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.Empty(t, result.Entries)
}

func TestReadAllMissingFileIsEmpty(t *testing.T) {
	result, err := ReadAll(filepath.Join(t.TempDir(), "does-not-exist.jsonl"))
	require.NoError(t, err)
	assert.False(t, result.Truncated)
	assert.Empty(t, result.Entries)
}

func TestOffsetTracksDurableBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wal.jsonl")

	w, err := Open(path, FlushPolicy{PerRecord: true})
	require.NoError(t, err)
	defer w.Close()

	off, err := w.Offset()
	require.NoError(t, err)
	assert.Equal(t, int64(0), off)

	require.NoError(t, w.Append(Entry{Kind: KindOrderAccepted, OrderAccepted: &OrderAccepted{
		Seq: 1, Symbol: "BTC-USD", Side: domain.Buy, Price: mustPrice(t, "10"),
		Qty: mustQty(t, "1"), ClientOrderID: "c1", TsMs: 1,
	}}))

	off, err = w.Offset()
	require.NoError(t, err)
	assert.Greater(t, off, int64(0))
}
