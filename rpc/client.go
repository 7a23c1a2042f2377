package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// Client is a typed wrapper over a grpc.ClientConn for the Engine
// service, fixing the JSON content-subtype on every call so servers
// registered with RegisterEngineServer can decode it without any
// per-call configuration from callers.
type Client struct {
	cc *grpc.ClientConn
}

// NewClient wraps an already-dialed connection.
func NewClient(cc *grpc.ClientConn) *Client { return &Client{cc: cc} }

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...)
}

func (c *Client) SubmitOrder(ctx context.Context, req *SubmitOrderRequest) (*SubmitOrderResponse, error) {
	out := new(SubmitOrderResponse)
	if err := c.invoke(ctx, "SubmitOrder", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTopOfBook(ctx context.Context, req *GetTopOfBookRequest) (*GetTopOfBookResponse, error) {
	out := new(GetTopOfBookResponse)
	if err := c.invoke(ctx, "GetTopOfBook", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetBookDepth(ctx context.Context, req *GetBookDepthRequest) (*GetBookDepthResponse, error) {
	out := new(GetBookDepthResponse)
	if err := c.invoke(ctx, "GetBookDepth", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetRecentTrades(ctx context.Context, req *GetRecentTradesRequest) (*GetRecentTradesResponse, error) {
	out := new(GetRecentTradesResponse)
	if err := c.invoke(ctx, "GetRecentTrades", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Health(ctx context.Context, req *HealthRequest) (*HealthResponse, error) {
	out := new(HealthResponse)
	if err := c.invoke(ctx, "Health", req, out); err != nil {
		return nil, err
	}
	return out, nil
}
