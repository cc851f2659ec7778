package grpcstore

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodecName is registered with grpc's encoding registry and selected
// per-call via grpc.ForceCodec, since the store service's wire schema here
// has no generated protobuf stubs to link against (see DESIGN.md: the
// store's actual message layout is an external service boundary this
// module never needs to byte-match, only to call through a stable Go
// interface).
const jsonCodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
