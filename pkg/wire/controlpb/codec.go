package controlpb

import "encoding/json"

// Codec is a JSON grpc.encoding.Codec for the control plane: unlike the
// fixed-field exchange envelope (pkg/wire/exchangepb), control messages
// are nested, variable-shaped plan documents, so a generic
// reflection-based encoding is the better fit than hand-rolled binary
// framing -- the same tradeoff made by services that ship both JSON and
// protobuf wire types depending on how regular the shape is.
type Codec struct{}

func (Codec) Name() string { return "flowcore-control-json" }

func (Codec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (Codec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
