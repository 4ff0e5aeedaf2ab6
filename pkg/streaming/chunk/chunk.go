// Package chunk implements the column-major batch types that flow between
// operators: DataChunk (values plus an optional visibility bitmap) and
// StreamChunk (a DataChunk plus a parallel ops vector of row-change tags).
package chunk

import (
	"fmt"

	"github.com/streamdb/flowcore/pkg/streaming/row"
)

// DataChunk is a column-major batch. Cardinality is the number of logical
// rows; capacity is the physical array length. All columns share capacity;
// a row is visible iff its visibility bit (when present) is set.
type DataChunk struct {
	Schema     row.Schema
	Columns    [][]row.Datum // one array per schema field, each of length Capacity()
	Visibility []bool        // nil means "all visible"
}

// Capacity is the physical array length shared by every column.
func (c *DataChunk) Capacity() int {
	if len(c.Columns) == 0 {
		return 0
	}
	return len(c.Columns[0])
}

// Cardinality is the number of visible rows.
func (c *DataChunk) Cardinality() int {
	if c.Visibility == nil {
		return c.Capacity()
	}
	n := 0
	for _, v := range c.Visibility {
		if v {
			n++
		}
	}
	return n
}

func (c *DataChunk) IsVisible(i int) bool {
	return c.Visibility == nil || c.Visibility[i]
}

// RowAt materializes the i-th physical row regardless of visibility; callers
// that must respect visibility check IsVisible first.
func (c *DataChunk) RowAt(i int) row.Row {
	r := make(row.Row, len(c.Columns))
	for ci, col := range c.Columns {
		r[ci] = col[i]
	}
	return r
}

// Op tags how a row in a StreamChunk changes the downstream result set.
type Op int

const (
	Insert Op = iota
	Delete
	UpdateInsert
	UpdateDelete
)

func (op Op) String() string {
	switch op {
	case Insert:
		return "Insert"
	case Delete:
		return "Delete"
	case UpdateInsert:
		return "UpdateInsert"
	case UpdateDelete:
		return "UpdateDelete"
	default:
		return "Unknown"
	}
}

// StreamChunk is a DataChunk plus an Ops vector of equal length. An
// UpdateDelete must be immediately followed by UpdateInsert in the same
// chunk; Compact enforces this by dropping any half-visible pair.
type StreamChunk struct {
	Ops  []Op
	Data DataChunk
}

func New(ops []Op, schema row.Schema, columns [][]row.Datum, visibility []bool) (StreamChunk, error) {
	sc := StreamChunk{Ops: ops, Data: DataChunk{Schema: schema, Columns: columns, Visibility: visibility}}
	if err := sc.validate(); err != nil {
		return StreamChunk{}, err
	}
	return sc, nil
}

func (sc *StreamChunk) validate() error {
	cap := sc.Data.Capacity()
	if len(sc.Ops) != cap {
		return fmt.Errorf("chunk: ops length %d does not match capacity %d", len(sc.Ops), cap)
	}
	for _, col := range sc.Data.Columns {
		if len(col) != cap {
			return fmt.Errorf("chunk: column length %d does not match capacity %d", len(col), cap)
		}
	}
	return nil
}

// Compact removes rows hidden by the visibility bitmap, re-indexing Ops and
// Columns so the returned chunk has no visibility bitmap of its own, and
// drops any UpdateDelete/UpdateInsert pair left half-visible by the
// original bitmap so the atomic-retraction-pair contract always
// holds for what operators actually see. Grounded on the compact() call at
// the top of an operator's apply_chunk step.
func (sc *StreamChunk) Compact() StreamChunk {
	if sc.Data.Visibility == nil {
		return *sc
	}

	keep := make([]bool, sc.Data.Capacity())
	copy(keep, sc.Data.Visibility)

	for i := 0; i < len(sc.Ops); i++ {
		if sc.Ops[i] == UpdateDelete {
			pairedVisible := i+1 < len(sc.Ops) && sc.Ops[i+1] == UpdateInsert && keep[i+1]
			if !keep[i] || !pairedVisible {
				keep[i] = false
				if i+1 < len(sc.Ops) && sc.Ops[i+1] == UpdateInsert {
					keep[i+1] = false
				}
			}
		}
	}

	newOps := make([]Op, 0, len(sc.Ops))
	newCols := make([][]row.Datum, len(sc.Data.Columns))
	for ci := range newCols {
		newCols[ci] = make([]row.Datum, 0, len(sc.Ops))
	}
	for i, op := range sc.Ops {
		if !keep[i] {
			continue
		}
		newOps = append(newOps, op)
		for ci, col := range sc.Data.Columns {
			newCols[ci] = append(newCols[ci], col[i])
		}
	}

	return StreamChunk{
		Ops:  newOps,
		Data: DataChunk{Schema: sc.Data.Schema, Columns: newCols, Visibility: nil},
	}
}
