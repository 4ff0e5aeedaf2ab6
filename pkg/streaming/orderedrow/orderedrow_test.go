package orderedrow

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/streamdb/flowcore/pkg/streaming/row"
)

func TestRoundTripInt64(t *testing.T) {
	dirs := []Direction{Ascending, Descending}
	cases := []row.Row{
		{row.Int64(0), row.Int64(0)},
		{row.Int64(-1), row.Int64(42)},
		{row.Int64(1 << 40), row.Int64(-(1 << 40))},
		{row.NullDatum(row.KindInt64), row.Int64(5)},
	}
	for _, full := range cases {
		o := New(full, []int{0, 1}, dirs)
		got, err := Deserialize(o.Serialize(), []row.Kind{row.KindInt64, row.KindInt64}, dirs)
		if err != nil {
			t.Fatalf("Deserialize: %v", err)
		}
		if got.Compare(o) != 0 {
			t.Fatalf("round trip changed value: got %+v, want %+v", got.PK, o.PK)
		}
	}
}

func TestRoundTripBoolAndTimestamp(t *testing.T) {
	dirs := []Direction{Ascending, Ascending}
	ts := time.Unix(1700000000, 123).UTC()
	full := row.Row{row.Bool(true), row.Timestamp(ts)}
	o := New(full, []int{0, 1}, dirs)
	got, err := Deserialize(o.Serialize(), []row.Kind{row.KindBool, row.KindTimestamp}, dirs)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got.PK[0].B != true {
		t.Fatalf("bool not preserved: %+v", got.PK[0])
	}
	if !got.PK[1].TS.Equal(ts) {
		t.Fatalf("timestamp not preserved: got %v want %v", got.PK[1].TS, ts)
	}
}

// TestSerializeOrderMatchesCompare checks that serialized byte order
// agrees with logical Compare order.
func TestSerializeOrderMatchesCompare(t *testing.T) {
	dirs := []Direction{Ascending}
	values := []int64{-100, -1, 0, 1, 100, 1 << 30}
	for _, a := range values {
		for _, b := range values {
			oa := New(row.Row{row.Int64(a)}, []int{0}, dirs)
			ob := New(row.Row{row.Int64(b)}, []int{0}, dirs)
			wantCmp := oa.Compare(ob)
			sa, sb := oa.Serialize(), ob.Serialize()
			gotCmp := compareBytes(sa, sb)
			if sign(wantCmp) != sign(gotCmp) {
				t.Fatalf("a=%d b=%d: Compare=%d but byte order=%d", a, b, wantCmp, gotCmp)
			}
		}
	}
}

func TestSerializeDescendingInvertsOrder(t *testing.T) {
	dirs := []Direction{Descending}
	oa := New(row.Row{row.Int64(1)}, []int{0}, dirs)
	ob := New(row.Row{row.Int64(2)}, []int{0}, dirs)
	if !ob.Less(oa) {
		t.Fatalf("descending: expected 2 to sort before 1 (larger value sorts first)")
	}
	if compareBytes(ob.Serialize(), oa.Serialize()) >= 0 {
		t.Fatalf("descending byte order does not match logical order")
	}
}

func TestNullsSortFirst(t *testing.T) {
	dirs := []Direction{Ascending}
	null := New(row.Row{row.NullDatum(row.KindInt64)}, []int{0}, dirs)
	present := New(row.Row{row.Int64(-1000)}, []int{0}, dirs)
	if !null.Less(present) {
		t.Fatalf("null should sort before any present value")
	}
	if compareBytes(null.Serialize(), present.Serialize()) >= 0 {
		t.Fatalf("null serialization should sort before present serialization")
	}
}

func TestSerializeDecimalPreservesOrder(t *testing.T) {
	dirs := []Direction{Ascending}
	a := New(row.Row{row.Decimal(decimal.NewFromFloat(3.5))}, []int{0}, dirs)
	b := New(row.Row{row.Decimal(decimal.NewFromFloat(-2.25))}, []int{0}, dirs)
	if a.Less(b) {
		t.Fatalf("expected 3.5 > -2.25")
	}
	if compareBytes(a.Serialize(), b.Serialize()) <= 0 {
		t.Fatalf("decimal byte order should match logical order")
	}
}

// TestRoundTripDecimalExact checks that decimal columns round-trip to the
// exact original value, including values whose float64 approximation is
// not exact (e.g. 0.1) and values spanning a wide range of scales and
// signs, and that serialized byte order agrees with decimal.Cmp throughout.
func TestRoundTripDecimalExact(t *testing.T) {
	dirs := []Direction{Ascending}
	values := []decimal.Decimal{
		decimal.Zero,
		decimal.NewFromFloat(0.1),
		decimal.RequireFromString("0.10"),
		decimal.RequireFromString("-0.1"),
		decimal.RequireFromString("123456789012345678901234567890.123456789"),
		decimal.RequireFromString("-123456789012345678901234567890.123456789"),
		decimal.RequireFromString("100"),
		decimal.RequireFromString("-100"),
		decimal.RequireFromString("0.00000001"),
		decimal.RequireFromString("-0.00000001"),
	}
	ords := make([]OrderedRow, len(values))
	for i, v := range values {
		ords[i] = New(row.Row{row.Decimal(v)}, []int{0}, dirs)
		got, err := Deserialize(ords[i].Serialize(), []row.Kind{row.KindDecimal}, dirs)
		if err != nil {
			t.Fatalf("Deserialize(%s): %v", v, err)
		}
		if !got.PK[0].Dec.Equal(v) {
			t.Fatalf("decimal %s round-tripped to %s", v, got.PK[0].Dec)
		}
	}
	for i, a := range ords {
		for j, b := range ords {
			wantCmp := sign(values[i].Cmp(values[j]))
			gotCmp := sign(compareBytes(a.Serialize(), b.Serialize()))
			if wantCmp != gotCmp {
				t.Fatalf("%s vs %s: Cmp=%d but byte order=%d", values[i], values[j], wantCmp, gotCmp)
			}
		}
	}
}

// TestRoundTripString checks string columns round-trip exactly, including
// values containing the 0x00 byte used internally as the field terminator,
// and that a string column followed by another column decodes both
// correctly instead of the string swallowing the rest of the key.
func TestRoundTripString(t *testing.T) {
	dirs := []Direction{Ascending, Ascending}
	cases := []string{"", "hello", "a\x00b", "\x00\x00", "z" + string(rune(0xFF))}
	for _, s := range cases {
		full := row.Row{row.String(s), row.Int64(42)}
		o := New(full, []int{0, 1}, dirs)
		got, err := Deserialize(o.Serialize(), []row.Kind{row.KindString, row.KindInt64}, dirs)
		if err != nil {
			t.Fatalf("Deserialize(%q): %v", s, err)
		}
		if got.PK[0].Str != s {
			t.Fatalf("string round-tripped to %q, want %q", got.PK[0].Str, s)
		}
		if got.PK[1].I64 != 42 {
			t.Fatalf("trailing column corrupted by non-final string column: got %d", got.PK[1].I64)
		}
	}
}

// TestSerializeStringOrderMatchesCompare checks that the escape-terminated
// string encoding preserves lexicographic order, including prefix pairs
// where the shorter string must sort first.
func TestSerializeStringOrderMatchesCompare(t *testing.T) {
	dirs := []Direction{Ascending}
	values := []string{"", "a", "ab", "abc", "abd", "b", string(rune(0)), string(rune(0)) + "a"}
	for _, a := range values {
		for _, b := range values {
			oa := New(row.Row{row.String(a)}, []int{0}, dirs)
			ob := New(row.Row{row.String(b)}, []int{0}, dirs)
			wantCmp := sign(oa.Compare(ob))
			gotCmp := sign(compareBytes(oa.Serialize(), ob.Serialize()))
			if wantCmp != gotCmp {
				t.Fatalf("a=%q b=%q: Compare=%d but byte order=%d", a, b, wantCmp, gotCmp)
			}
		}
	}
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
