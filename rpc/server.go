package rpc

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"matchcore/engine"
)

// Server adapts an *engine.Engine to EngineServer, translating wire
// strings to/from the engine's native decimal and uint64 types and
// mapping engine errors onto gRPC status codes.
type Server struct {
	Engine *engine.Engine
}

// NewServer wraps eng for gRPC registration.
func NewServer(eng *engine.Engine) *Server { return &Server{Engine: eng} }

func (s *Server) SubmitOrder(ctx context.Context, req *SubmitOrderRequest) (*SubmitOrderResponse, error) {
	res, err := s.Engine.SubmitOrder(ctx, req.Symbol, req.Side, req.Price, req.Qty, req.ClientOrderID)
	if err != nil {
		var verr *engine.ValidationError
		if errors.As(err, &verr) {
			return nil, status.Error(codes.InvalidArgument, verr.Error())
		}
		return nil, status.Error(codes.Unavailable, err.Error())
	}

	fills := make([]Fill, 0, len(res.Fills))
	for _, f := range res.Fills {
		fills = append(fills, Fill{
			MakerSeq: strconv.FormatUint(f.MakerSeq, 10),
			TakerSeq: strconv.FormatUint(f.TakerSeq, 10),
			Price:    f.Price.String(),
			Qty:      f.Qty.String(),
		})
	}
	return &SubmitOrderResponse{
		AcceptedSeq: strconv.FormatUint(res.AcceptedSeq, 10),
		Fills:       fills,
	}, nil
}

func (s *Server) GetTopOfBook(ctx context.Context, req *GetTopOfBookRequest) (*GetTopOfBookResponse, error) {
	top := s.Engine.GetTopOfBook(req.Symbol)
	return &GetTopOfBookResponse{
		BestBidPrice: top.BestBidPrice.String(),
		BestBidQty:   top.BestBidQty.String(),
		BestAskPrice: top.BestAskPrice.String(),
		BestAskQty:   top.BestAskQty.String(),
	}, nil
}

func (s *Server) GetBookDepth(ctx context.Context, req *GetBookDepthRequest) (*GetBookDepthResponse, error) {
	bids, asks := s.Engine.GetBookDepth(req.Symbol, int(req.Levels))
	resp := &GetBookDepthResponse{
		Bids: make([]DepthLevel, 0, len(bids)),
		Asks: make([]DepthLevel, 0, len(asks)),
	}
	for _, l := range bids {
		resp.Bids = append(resp.Bids, DepthLevel{Price: l.Price.String(), Qty: l.Qty.String()})
	}
	for _, l := range asks {
		resp.Asks = append(resp.Asks, DepthLevel{Price: l.Price.String(), Qty: l.Qty.String()})
	}
	return resp, nil
}

func (s *Server) GetRecentTrades(ctx context.Context, req *GetRecentTradesRequest) (*GetRecentTradesResponse, error) {
	after, err := parseCursor(req.AfterTradeID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	trades, last := s.Engine.GetRecentTrades(req.Symbol, after, int(req.Limit))
	out := make([]Trade, 0, len(trades))
	for _, t := range trades {
		out = append(out, Trade{
			TradeID:   strconv.FormatUint(t.TradeID, 10),
			Symbol:    t.Symbol,
			Price:     t.Price.String(),
			Qty:       t.Qty.String(),
			MakerSeq:  strconv.FormatUint(t.MakerSeq, 10),
			TakerSeq:  strconv.FormatUint(t.TakerSeq, 10),
			TakerSide: t.TakerSide.String(),
			TsMs:      t.TsMs,
		})
	}
	return &GetRecentTradesResponse{Trades: out, LastTradeID: strconv.FormatUint(last, 10)}, nil
}

func (s *Server) Health(ctx context.Context, req *HealthRequest) (*HealthResponse, error) {
	return &HealthResponse{Status: s.Engine.Health().Status}, nil
}

func parseCursor(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("rpc: invalid after_trade_id %q: %w", s, err)
	}
	return v, nil
}
