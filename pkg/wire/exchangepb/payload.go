package exchangepb

import (
	"encoding/binary"
	"fmt"

	"github.com/streamdb/flowcore/pkg/streaming/chunk"
	"github.com/streamdb/flowcore/pkg/streaming/message"
	"github.com/streamdb/flowcore/pkg/streaming/row"
	"github.com/streamdb/flowcore/pkg/streaming/rowcodec"
)

// EncodeMessage converts an in-process Message into its wire envelope
//: a Barrier carries only its epoch and mutation tag; a Chunk
// carries the StreamChunk encoded by encodeChunk.
func EncodeMessage(m message.Message) (*ExchangeEnvelope, error) {
	switch m.Kind {
	case message.KindBarrier:
		kind := EnvelopeBarrier
		if m.Barrier.IsStop() {
			kind = EnvelopeStop
		}
		return &ExchangeEnvelope{Epoch: m.Barrier.Epoch, Kind: kind}, nil
	case message.KindChunk:
		return &ExchangeEnvelope{Kind: EnvelopeChunk, Payload: encodeChunk(m.Chunk)}, nil
	default:
		return nil, fmt.Errorf("exchangepb: cannot encode message kind %d", m.Kind)
	}
}

// DecodeMessage reconstructs a Message from an envelope. schema is the
// edge's statically-known row type: an exchange edge never changes
// schema mid-stream, the same way a local channel doesn't, so the schema
// travels out of band (fixed at fragment-build time) rather than on
// every envelope.
func DecodeMessage(env *ExchangeEnvelope, schema row.Schema) (message.Message, error) {
	switch env.Kind {
	case EnvelopeBarrier, EnvelopeStop:
		b := message.Barrier{Epoch: env.Epoch}
		if env.Kind == EnvelopeStop {
			b.Mutation = message.Mutation{Kind: message.MutationStop}
		}
		return message.NewBarrier(b), nil
	case EnvelopeChunk:
		sc, err := decodeChunk(schema, env.Payload)
		if err != nil {
			return message.Message{}, err
		}
		return message.NewChunk(sc), nil
	default:
		return message.Message{}, fmt.Errorf("exchangepb: unknown envelope kind %d", env.Kind)
	}
}

// encodeChunk frames a StreamChunk as row-count, then per row an op byte
// plus a length-prefixed rowcodec.Encode payload.
func encodeChunk(sc chunk.StreamChunk) []byte {
	n := sc.Data.Capacity()
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(n))
	for i := 0; i < n; i++ {
		buf = append(buf, byte(sc.Ops[i]))
		rb := rowcodec.Encode(sc.Data.RowAt(i))
		var l [4]byte
		binary.BigEndian.PutUint32(l[:], uint32(len(rb)))
		buf = append(buf, l[:]...)
		buf = append(buf, rb...)
	}
	return buf
}

func decodeChunk(schema row.Schema, data []byte) (chunk.StreamChunk, error) {
	if len(data) < 4 {
		return chunk.StreamChunk{}, fmt.Errorf("exchangepb: truncated chunk header")
	}
	n := int(binary.BigEndian.Uint32(data[0:4]))
	pos := 4

	kinds := make([]row.Kind, len(schema.Fields))
	for i, f := range schema.Fields {
		kinds[i] = f.Kind
	}

	ops := make([]chunk.Op, n)
	cols := make([][]row.Datum, len(schema.Fields))
	for ci := range cols {
		cols[ci] = make([]row.Datum, n)
	}

	for i := 0; i < n; i++ {
		if pos >= len(data) {
			return chunk.StreamChunk{}, fmt.Errorf("exchangepb: truncated chunk at row %d", i)
		}
		ops[i] = chunk.Op(data[pos])
		pos++
		if pos+4 > len(data) {
			return chunk.StreamChunk{}, fmt.Errorf("exchangepb: truncated row length at row %d", i)
		}
		l := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if pos+l > len(data) {
			return chunk.StreamChunk{}, fmt.Errorf("exchangepb: truncated row payload at row %d", i)
		}
		r, err := rowcodec.Decode(kinds, data[pos:pos+l])
		if err != nil {
			return chunk.StreamChunk{}, err
		}
		pos += l
		for ci, d := range r {
			cols[ci][i] = d
		}
	}

	return chunk.New(ops, schema, cols, nil)
}
