package exchangepb

import (
	"testing"

	"github.com/streamdb/flowcore/pkg/streaming/chunk"
	"github.com/streamdb/flowcore/pkg/streaming/message"
	"github.com/streamdb/flowcore/pkg/streaming/row"
)

func testSchema() row.Schema {
	return row.Schema{Fields: []row.Field{
		{Name: "c0", Kind: row.KindInt64},
		{Name: "c1", Kind: row.KindString},
	}}
}

func TestEncodeDecodeMessageChunk(t *testing.T) {
	schema := testSchema()
	sc, err := chunk.New(
		[]chunk.Op{chunk.Insert, chunk.Delete},
		schema,
		[][]row.Datum{
			{row.Int64(1), row.Int64(2)},
			{row.String("a"), row.String("b")},
		},
		nil,
	)
	if err != nil {
		t.Fatalf("chunk.New: %s", err)
	}

	env, err := EncodeMessage(message.NewChunk(sc))
	if err != nil {
		t.Fatalf("EncodeMessage: %s", err)
	}
	if env.Kind != EnvelopeChunk {
		t.Fatalf("expected EnvelopeChunk, got %d", env.Kind)
	}

	raw, err := Codec{}.Marshal(env)
	if err != nil {
		t.Fatalf("codec marshal: %s", err)
	}
	var decoded ExchangeEnvelope
	if err := (Codec{}).Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("codec unmarshal: %s", err)
	}

	got, err := DecodeMessage(&decoded, schema)
	if err != nil {
		t.Fatalf("DecodeMessage: %s", err)
	}
	if got.Kind != message.KindChunk {
		t.Fatalf("expected KindChunk, got %d", got.Kind)
	}
	if len(got.Chunk.Ops) != 2 || got.Chunk.Ops[0] != chunk.Insert || got.Chunk.Ops[1] != chunk.Delete {
		t.Fatalf("ops mismatch: %v", got.Chunk.Ops)
	}
	if got.Chunk.Data.RowAt(0)[0].I64 != 1 || got.Chunk.Data.RowAt(1)[1].Str != "b" {
		t.Fatalf("row data mismatch: %+v", got.Chunk.Data)
	}
}

func TestEncodeDecodeMessageBarrier(t *testing.T) {
	b := message.Barrier{Epoch: 7}
	env, err := EncodeMessage(message.NewBarrier(b))
	if err != nil {
		t.Fatalf("EncodeMessage: %s", err)
	}
	if env.Kind != EnvelopeBarrier || env.Epoch != 7 {
		t.Fatalf("unexpected envelope: %+v", env)
	}

	stop := message.Barrier{Epoch: 8, Mutation: message.Mutation{Kind: message.MutationStop}}
	stopEnv, err := EncodeMessage(message.NewBarrier(stop))
	if err != nil {
		t.Fatalf("EncodeMessage stop: %s", err)
	}
	if stopEnv.Kind != EnvelopeStop {
		t.Fatalf("expected EnvelopeStop, got %d", stopEnv.Kind)
	}

	got, err := DecodeMessage(stopEnv, row.Schema{})
	if err != nil {
		t.Fatalf("DecodeMessage: %s", err)
	}
	if !got.Barrier.IsStop() || got.Barrier.Epoch != 8 {
		t.Fatalf("unexpected decoded barrier: %+v", got.Barrier)
	}
}

func TestCodecPullRequestRoundTrip(t *testing.T) {
	req := &PullRequest{UpFragmentID: 3, DownFragmentID: 9}
	raw, err := (Codec{}).Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %s", err)
	}
	var got PullRequest
	if err := (Codec{}).Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %s", err)
	}
	if got != *req {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, *req)
	}
}
