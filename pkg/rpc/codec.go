package rpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype this codec registers under.
// Clients opt in with grpc.CallContentSubtype(rpc.CodecName); servers
// pick it up automatically once encoding.RegisterCodec has run,
// because gRPC selects a codec per-call by content-subtype rather
// than negotiating one for the whole connection.
const CodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec marshals the plain Go structs in wire.go with
// encoding/json in place of the protobuf wire format a protoc-gen-go
// codec would use. See wire.go's package doc for why.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return CodecName }
