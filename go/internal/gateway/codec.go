package gateway

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec lets the console service speak connect with plain Go structs
// instead of generated protobuf messages. It replaces connect's built-in
// "json" codec, which only accepts proto.Message values.
type jsonCodec struct{}

var _ connect.Codec = jsonCodec{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// WithJSONCodec configures a console client or handler to use the struct codec
func WithJSONCodec() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
