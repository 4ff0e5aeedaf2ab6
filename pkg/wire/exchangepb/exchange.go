// Package exchangepb is the wire-level request/response types and the
// gRPC service stub for ExchangeService: one server-streaming
// RPC, Pull, that lets a downstream worker ask an upstream worker's
// exchange service for one fragment-to-fragment edge's message stream.
// ExchangeEnvelope mirrors the wire-exact {epoch, kind, payload} envelope.
//
// This module does not run protoc, so these types are hand-written in
// the shape protoc-gen-go/protoc-gen-go-grpc would otherwise produce
// (plain structs, a ServiceDesc, client/server stubs), and are carried by
// a dedicated Codec (codec.go), forced per server and per connection
// rather than registered, instead of the default descriptor-driven
// "proto" codec -- see codec.go for why.
package exchangepb

// EnvelopeKind tags the payload an ExchangeEnvelope carries.
type EnvelopeKind int32

const (
	EnvelopeChunk EnvelopeKind = iota
	EnvelopeBarrier
	EnvelopeStop
)

// PullRequest names the edge a downstream worker wants to subscribe to.
type PullRequest struct {
	UpFragmentID   uint32
	DownFragmentID uint32
}

// ExchangeEnvelope is one message of an edge's stream on the wire: a
// Chunk envelope carries an encoded StreamChunk in Payload; a Barrier or
// Stop envelope carries only Epoch (Payload empty).
type ExchangeEnvelope struct {
	Epoch   uint64
	Kind    EnvelopeKind
	Payload []byte
}
