package chunk

import (
	"testing"

	"github.com/streamdb/flowcore/pkg/streaming/row"
)

func schemaOneCol() row.Schema {
	return row.Schema{Fields: []row.Field{{Name: "c0", Kind: row.KindInt64}}}
}

func TestCompactNoVisibilityIsNoOp(t *testing.T) {
	sc := StreamChunk{
		Ops:  []Op{Insert, Delete},
		Data: DataChunk{Schema: schemaOneCol(), Columns: [][]row.Datum{{row.Int64(1), row.Int64(2)}}},
	}
	out := sc.Compact()
	if out.Data.Capacity() != 2 {
		t.Fatalf("expected no rows dropped, got capacity %d", out.Data.Capacity())
	}
}

func TestCompactDropsInvisibleRows(t *testing.T) {
	sc := StreamChunk{
		Ops: []Op{Insert, Insert, Delete},
		Data: DataChunk{
			Schema:     schemaOneCol(),
			Columns:    [][]row.Datum{{row.Int64(1), row.Int64(2), row.Int64(3)}},
			Visibility: []bool{true, false, true},
		},
	}
	out := sc.Compact()
	if out.Data.Capacity() != 2 {
		t.Fatalf("expected 2 surviving rows, got %d", out.Data.Capacity())
	}
	if out.Data.Columns[0][0].I64 != 1 || out.Data.Columns[0][1].I64 != 3 {
		t.Fatalf("unexpected surviving values: %+v", out.Data.Columns[0])
	}
	if out.Data.Visibility != nil {
		t.Fatalf("compacted chunk should carry no visibility bitmap")
	}
}

// TestCompactDropsHalfVisibleUpdatePair checks that an UpdateDelete/
// UpdateInsert pair with only one side visible is dropped entirely, not
// degraded to a lone Delete or Insert.
func TestCompactDropsHalfVisibleUpdatePair(t *testing.T) {
	sc := StreamChunk{
		Ops: []Op{Insert, UpdateDelete, UpdateInsert, Delete},
		Data: DataChunk{
			Schema:     schemaOneCol(),
			Columns:    [][]row.Datum{{row.Int64(1), row.Int64(2), row.Int64(3), row.Int64(4)}},
			Visibility: []bool{true, true, false, true},
		},
	}
	out := sc.Compact()
	if out.Data.Capacity() != 2 {
		t.Fatalf("expected the half-visible update pair dropped entirely, got capacity %d: ops=%v", out.Data.Capacity(), out.Ops)
	}
	for _, op := range out.Ops {
		if op == UpdateDelete || op == UpdateInsert {
			t.Fatalf("no update op should survive a half-visible pair, got %v", out.Ops)
		}
	}
	if out.Data.Columns[0][0].I64 != 1 || out.Data.Columns[0][1].I64 != 4 {
		t.Fatalf("unexpected surviving values: %+v", out.Data.Columns[0])
	}
}

func TestCompactKeepsFullyVisibleUpdatePair(t *testing.T) {
	sc := StreamChunk{
		Ops: []Op{UpdateDelete, UpdateInsert},
		Data: DataChunk{
			Schema:     schemaOneCol(),
			Columns:    [][]row.Datum{{row.Int64(1), row.Int64(2)}},
			Visibility: []bool{true, true},
		},
	}
	out := sc.Compact()
	if out.Data.Capacity() != 2 {
		t.Fatalf("expected both halves of a fully visible update pair to survive, got capacity %d", out.Data.Capacity())
	}
}
