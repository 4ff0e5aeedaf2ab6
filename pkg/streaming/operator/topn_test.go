package operator

import (
	"context"
	"testing"

	"github.com/streamdb/flowcore/pkg/streaming/chunk"
	"github.com/streamdb/flowcore/pkg/streaming/keyspace"
	"github.com/streamdb/flowcore/pkg/streaming/message"
	"github.com/streamdb/flowcore/pkg/streaming/orderedrow"
	"github.com/streamdb/flowcore/pkg/streaming/row"
	"github.com/streamdb/flowcore/pkg/streaming/statestore"
)

// fakeUpstream replays a fixed queue of messages, one per Next call.
type fakeUpstream struct {
	msgs []message.Message
	pos  int
}

func (f *fakeUpstream) Next(ctx context.Context) (message.Message, error) {
	if f.pos >= len(f.msgs) {
		<-ctx.Done()
		return message.Message{}, ctx.Err()
	}
	m := f.msgs[f.pos]
	f.pos++
	return m, nil
}

func twoColSchema() row.Schema {
	return row.Schema{Fields: []row.Field{{Name: "c0", Kind: row.KindInt64}, {Name: "c1", Kind: row.KindInt64}}}
}

func mkChunk(ops []chunk.Op, c0, c1 []int64) chunk.StreamChunk {
	col0 := make([]row.Datum, len(c0))
	col1 := make([]row.Datum, len(c1))
	for i := range c0 {
		col0[i] = row.Int64(c0[i])
		col1[i] = row.Int64(c1[i])
	}
	return chunk.StreamChunk{Ops: ops, Data: chunk.DataChunk{Schema: twoColSchema(), Columns: [][]row.Datum{col0, col1}}}
}

func outC0(c chunk.StreamChunk) []int64 {
	out := make([]int64, c.Data.Capacity())
	for i := range out {
		out[i] = c.Data.Columns[0][i].I64
	}
	return out
}

func assertOps(t *testing.T, got, want []chunk.Op) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("ops length: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ops[%d]: got %v want %v (full got=%v want=%v)", i, got[i], want[i], got, want)
		}
	}
}

func assertC0(t *testing.T, got chunk.StreamChunk, want []int64) {
	t.Helper()
	gotC0 := outC0(got)
	if len(gotC0) != len(want) {
		t.Fatalf("c0 length: got %v want %v", gotC0, want)
	}
	for i := range want {
		if gotC0[i] != want[i] {
			t.Fatalf("c0[%d]: got %v want %v (full got=%v want=%v)", i, gotC0[i], want[i], gotC0, want)
		}
	}
}

// TestTopNScenariosS1ThroughS4 runs the literal Top-N end-to-end
// scenario: offset=3, limit=4, order asc, pk=(c0,c1), four chunks fed in
// sequence to one operator instance, checking each chunk's emitted delta.
func TestTopNScenariosS1ThroughS4(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewMemoryStore()
	ks := keyspace.TableRoot(1).ExecutorRoot(1)
	dirs := []orderedrow.Direction{orderedrow.Ascending, orderedrow.Ascending}

	up := &fakeUpstream{}
	topN := NewTopN(up, ks, store, twoColSchema(), []int{0, 1}, dirs, 3, 4, 0)

	// S1
	up.msgs = append(up.msgs, message.NewChunk(mkChunk(
		[]chunk.Op{chunk.Insert, chunk.Insert, chunk.Insert, chunk.Insert, chunk.Insert, chunk.Insert},
		[]int64{1, 2, 3, 10, 9, 8}, []int64{0, 1, 2, 3, 4, 5})))
	out, err := topN.Next(ctx)
	if err != nil {
		t.Fatalf("S1: %v", err)
	}
	assertOps(t, out.Chunk.Ops, []chunk.Op{chunk.Insert, chunk.Insert, chunk.Insert})
	assertC0(t, out.Chunk, []int64{10, 9, 8})

	// S2
	up.msgs = append(up.msgs, message.NewChunk(mkChunk(
		[]chunk.Op{chunk.Insert, chunk.Delete, chunk.Delete, chunk.Insert, chunk.Delete, chunk.Insert},
		[]int64{7, 3, 1, 5, 2, 11}, []int64{6, 2, 0, 7, 1, 8})))
	out, err = topN.Next(ctx)
	if err != nil {
		t.Fatalf("S2: %v", err)
	}
	assertOps(t, out.Chunk.Ops, []chunk.Op{chunk.Insert, chunk.UpdateDelete, chunk.UpdateDelete, chunk.Insert, chunk.UpdateDelete, chunk.Insert})
	assertC0(t, out.Chunk, []int64{7, 7, 8, 8, 8, 11})

	// S3
	up.msgs = append(up.msgs, message.NewChunk(mkChunk(
		[]chunk.Op{chunk.Insert, chunk.Insert, chunk.Insert, chunk.Insert},
		[]int64{6, 12, 13, 14}, []int64{9, 10, 11, 12})))
	out, err = topN.Next(ctx)
	if err != nil {
		t.Fatalf("S3: %v", err)
	}
	assertOps(t, out.Chunk.Ops, []chunk.Op{chunk.Insert})
	assertC0(t, out.Chunk, []int64{8})

	// S4
	up.msgs = append(up.msgs, message.NewChunk(mkChunk(
		[]chunk.Op{chunk.Delete, chunk.Delete, chunk.Delete},
		[]int64{5, 6, 11}, []int64{7, 9, 8})))
	out, err = topN.Next(ctx)
	if err != nil {
		t.Fatalf("S4: %v", err)
	}
	assertOps(t, out.Chunk.Ops, []chunk.Op{
		chunk.UpdateDelete, chunk.Insert,
		chunk.UpdateDelete, chunk.Insert,
		chunk.UpdateDelete, chunk.Insert,
	})
	assertC0(t, out.Chunk, []int64{8, 12, 9, 13, 11, 14})
}

// TestTopNRegionInvariants checks the region ordering invariant after a batch
// of inserts: max(Low) < min(Mid) < max(Mid) < min(High).
func TestTopNRegionInvariants(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewMemoryStore()
	ks := keyspace.TableRoot(2).ExecutorRoot(1)
	dirs := []orderedrow.Direction{orderedrow.Ascending, orderedrow.Ascending}

	up := &fakeUpstream{msgs: []message.Message{message.NewChunk(mkChunk(
		[]chunk.Op{chunk.Insert, chunk.Insert, chunk.Insert, chunk.Insert, chunk.Insert, chunk.Insert, chunk.Insert, chunk.Insert, chunk.Insert, chunk.Insert},
		[]int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}))}}
	topN := NewTopN(up, ks, store, twoColSchema(), []int{0, 1}, dirs, 3, 4, 0)

	if _, err := topN.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}

	if topN.low.TotalCount() != 3 {
		t.Fatalf("Low should hold offset=3 rows, got %d", topN.low.TotalCount())
	}
	if topN.mid.TotalCount() != 4 {
		t.Fatalf("Mid should hold limit=4 rows, got %d", topN.mid.TotalCount())
	}
	if topN.high.TotalCount() != 3 {
		t.Fatalf("High should hold the remaining 3 rows, got %d", topN.high.TotalCount())
	}

	_, maxLow, ok, err := topN.low.Extreme(ctx)
	if err != nil || !ok {
		t.Fatalf("Low.Extreme: %v %v", ok, err)
	}
	_, midBottom, ok, err := topN.mid.Bottom(ctx)
	if err != nil || !ok {
		t.Fatalf("Mid.Bottom: %v %v", ok, err)
	}
	_, midTop, ok, err := topN.mid.Top(ctx)
	if err != nil || !ok {
		t.Fatalf("Mid.Top: %v %v", ok, err)
	}
	_, minHigh, ok, err := topN.high.Extreme(ctx)
	if err != nil || !ok {
		t.Fatalf("High.Extreme: %v %v", ok, err)
	}

	if !maxLow.Less(midBottom) {
		t.Fatalf("expected max(Low) < min(Mid)")
	}
	if !midBottom.Less(midTop) && midBottom.Compare(midTop) != 0 {
		t.Fatalf("expected min(Mid) <= max(Mid)")
	}
	if !midTop.Less(minHigh) {
		t.Fatalf("expected max(Mid) < min(High)")
	}
}
