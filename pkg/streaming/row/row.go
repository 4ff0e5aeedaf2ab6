// Package row defines the scalar value model shared by every operator:
// nullable Datums, typed Rows, and the Schema that describes a chunk's
// columns.
package row

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind tags the concrete type carried by a Datum.
type Kind int

const (
	KindInt64 Kind = iota
	KindDecimal
	KindString
	KindBool
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindInt64:
		return "int64"
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Datum is a single nullable scalar value. Exactly one of the typed fields
// is meaningful when Null is false, selected by Kind.
type Datum struct {
	Kind Kind
	Null bool

	I64 int64
	Dec decimal.Decimal
	Str string
	B   bool
	TS  time.Time
}

// NullDatum builds a null value of the given kind.
func NullDatum(k Kind) Datum { return Datum{Kind: k, Null: true} }

func Int64(v int64) Datum     { return Datum{Kind: KindInt64, I64: v} }
func Bool(v bool) Datum       { return Datum{Kind: KindBool, B: v} }
func String(v string) Datum   { return Datum{Kind: KindString, Str: v} }
func Timestamp(v time.Time) Datum { return Datum{Kind: KindTimestamp, TS: v} }
func Decimal(v decimal.Decimal) Datum { return Datum{Kind: KindDecimal, Dec: v} }

// Compare returns -1, 0, 1 comparing two datums of the same Kind. Nulls sort
// before any non-null value, matching SQL NULLS FIRST semantics used by the
// ordering machinery in managedstate and topn.
func (d Datum) Compare(o Datum) int {
	if d.Kind != o.Kind {
		panic(fmt.Sprintf("row: cannot compare datums of different kinds %s vs %s", d.Kind, o.Kind))
	}
	if d.Null && o.Null {
		return 0
	}
	if d.Null {
		return -1
	}
	if o.Null {
		return 1
	}
	switch d.Kind {
	case KindInt64:
		switch {
		case d.I64 < o.I64:
			return -1
		case d.I64 > o.I64:
			return 1
		default:
			return 0
		}
	case KindDecimal:
		return d.Dec.Cmp(o.Dec)
	case KindString:
		switch {
		case d.Str < o.Str:
			return -1
		case d.Str > o.Str:
			return 1
		default:
			return 0
		}
	case KindBool:
		if d.B == o.B {
			return 0
		}
		if !d.B {
			return -1
		}
		return 1
	case KindTimestamp:
		switch {
		case d.TS.Before(o.TS):
			return -1
		case d.TS.After(o.TS):
			return 1
		default:
			return 0
		}
	default:
		panic(fmt.Sprintf("row: unknown datum kind %d", d.Kind))
	}
}

// Row is an ordered tuple of nullable scalar values.
type Row []Datum

// Clone returns a shallow copy safe to retain past the lifetime of the
// chunk the row was read from.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Field describes one column of a Schema.
type Field struct {
	Name string
	Kind Kind
}

// Schema is the ordered sequence of typed fields shared by every row in a
// chunk.
type Schema struct {
	Fields []Field
}

func (s Schema) Len() int { return len(s.Fields) }
