package rpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is registered as the gRPC content-subtype, replacing the
// "proto" wire format's usual protobuf body with JSON. grpc-go dispatches
// purely on this name; nothing else in the client/server plumbing needs
// to know the body isn't protobuf-encoded.
const codecName = "proto"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
