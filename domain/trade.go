package domain

import "matchcore/decimal"

// Fill is one resolution of a single unit of matching: a maker order
// gave up qty at its resting price to a taker order. A Fill becomes a
// Trade once the sequencer stamps it with a TradeID and timestamp.
type Fill struct {
	MakerSeq uint64
	TakerSeq uint64
	Price    decimal.Decimal
	Qty      decimal.Decimal
}

// Trade is an immutable record of a completed match.
type Trade struct {
	TradeID   uint64          `json:"trade_id"`
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Qty       decimal.Decimal `json:"qty"`
	MakerSeq  uint64          `json:"maker_seq"`
	TakerSeq  uint64          `json:"taker_seq"`
	TakerSide Side            `json:"taker_side"`
	TsMs      int64           `json:"ts_ms"`
}
