// Package rpc exposes the engine over gRPC. The wire messages are plain
// Go structs rather than protoc-generated types: the service is
// registered with a hand-written grpc.ServiceDesc and carried by a
// JSON-based grpc/encoding.Codec, so the transport is real gRPC (service
// registration, grpc.Server, grpc.ClientConn, status codes) without a
// protoc toolchain run. rpc/engine.proto documents the same schema for a
// future codegen pass.
package rpc

// SubmitOrderRequest submits one order. Price and Qty are canonical
// decimal strings; Side is "BUY" or "SELL".
type SubmitOrderRequest struct {
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Price         string `json:"price"`
	Qty           string `json:"qty"`
	ClientOrderID string `json:"client_order_id"`
}

// Fill is one resolution of a submitted order against a resting maker.
type Fill struct {
	MakerSeq string `json:"maker_seq"`
	TakerSeq string `json:"taker_seq"`
	Price    string `json:"price"`
	Qty      string `json:"qty"`
}

// SubmitOrderResponse reports the sequencer's acceptance of an order and
// any fills it produced immediately.
type SubmitOrderResponse struct {
	AcceptedSeq string `json:"accepted_seq"`
	Fills       []Fill `json:"fills"`
}

// GetTopOfBookRequest names the symbol to query.
type GetTopOfBookRequest struct {
	Symbol string `json:"symbol"`
}

// GetTopOfBookResponse is the best bid/ask. An absent side reports "0"
// for both price and qty.
type GetTopOfBookResponse struct {
	BestBidPrice string `json:"best_bid_price"`
	BestBidQty   string `json:"best_bid_qty"`
	BestAskPrice string `json:"best_ask_price"`
	BestAskQty   string `json:"best_ask_qty"`
}

// GetBookDepthRequest names the symbol and how many levels per side to
// return.
type GetBookDepthRequest struct {
	Symbol string `json:"symbol"`
	Levels int32  `json:"levels"`
}

// DepthLevel is one aggregated price level.
type DepthLevel struct {
	Price string `json:"price"`
	Qty   string `json:"qty"`
}

// GetBookDepthResponse holds up to the requested number of levels per
// side, bids high-to-low and asks low-to-high.
type GetBookDepthResponse struct {
	Bids []DepthLevel `json:"bids"`
	Asks []DepthLevel `json:"asks"`
}

// GetRecentTradesRequest requests trades with trade_id strictly greater
// than AfterTradeID, ascending, up to Limit.
type GetRecentTradesRequest struct {
	Symbol       string `json:"symbol"`
	AfterTradeID string `json:"after_trade_id"`
	Limit        int32  `json:"limit"`
}

// Trade is one completed match, as reported over the wire.
type Trade struct {
	TradeID   string `json:"trade_id"`
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	Qty       string `json:"qty"`
	MakerSeq  string `json:"maker_seq"`
	TakerSeq  string `json:"taker_seq"`
	TakerSide string `json:"taker_side"`
	TsMs      int64  `json:"ts_ms"`
}

// GetRecentTradesResponse is the matched trades plus a cursor to resume
// from.
type GetRecentTradesResponse struct {
	Trades     []Trade `json:"trades"`
	LastTradeID string `json:"last_trade_id"`
}

// HealthRequest has no fields; Health takes no arguments.
type HealthRequest struct{}

// HealthResponse reports liveness: "ok" or "fatal".
type HealthResponse struct {
	Status string `json:"status"`
}
