package remote

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// codecName is the registered content-subtype gRPC negotiates for every
// call on this service. See the REMOTE SERVICE CODEC NOTE: message
// shapes and RPC names match what protoc-gen-go-grpc would produce from
// steer.proto, but wire encoding is plain JSON over the raw message
// structs in internal/remote/proto rather than protobuf binary, since no
// protoc invocation is available to generate descriptor-backed
// proto.Message implementations in this environment.
const codecName = "steerjson"

// jsonCodec implements google.golang.org/grpc/encoding.Codec for the
// plain Go structs in internal/remote/proto. Swapping back to wire-format
// protobuf after running protoc over steer.proto only requires deleting
// this file and the encoding.RegisterCodec call in init, once the
// generated types satisfy proto.Message.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("remote: marshal %T: %w", v, err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("remote: unmarshal into %T: %w", v, err)
	}
	return nil
}

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
