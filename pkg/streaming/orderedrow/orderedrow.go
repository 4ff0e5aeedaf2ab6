// Package orderedrow implements the memcmp-comparable key encoding used by
// every managed ordered collection: a row projected to its primary-key
// columns, paired with a per-column sort direction, serialized so that
// bytewise comparison of the serialized form equals the row's logical
// order under the declared directions.
package orderedrow

import (
	"bytes"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/streamdb/flowcore/pkg/streaming/row"
)

// Direction is the sort direction applied to one pk column.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// OrderedRow is a row projected to primary-key columns together with the
// direction vector that governs both its logical order and its byte
// encoding.
type OrderedRow struct {
	PK   row.Row
	Dirs []Direction
}

// New projects fullRow down to the given pk indices and pairs it with dirs.
func New(fullRow row.Row, pkIndices []int, dirs []Direction) OrderedRow {
	pk := make(row.Row, len(pkIndices))
	for i, idx := range pkIndices {
		pk[i] = fullRow[idx]
	}
	return OrderedRow{PK: pk, Dirs: dirs}
}

// Compare returns -1, 0, 1 using the declared per-column directions. This is
// the logical order; Serialize must agree with it byte-for-byte.
func (o OrderedRow) Compare(other OrderedRow) int {
	for i := range o.PK {
		c := o.PK[i].Compare(other.PK[i])
		if o.Dirs[i] == Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func (o OrderedRow) Less(other OrderedRow) bool { return o.Compare(other) < 0 }

// Serialize produces a memcmp-comparable byte key: one byte null tag
// followed by a big-endian, sign-flipped-where-needed payload per column,
// bit-inverted as a whole for descending columns.
func (o OrderedRow) Serialize() []byte {
	var buf bytes.Buffer
	for i, d := range o.PK {
		col := encodeColumn(d)
		if o.Dirs[i] == Descending {
			invert(col)
		}
		buf.Write(col)
	}
	return buf.Bytes()
}

const (
	tagNull    byte = 0x00
	tagPresent byte = 0x01
)

func encodeColumn(d row.Datum) []byte {
	if d.Null {
		return []byte{tagNull}
	}
	var payload []byte
	switch d.Kind {
	case row.KindInt64:
		payload = encodeInt64(d.I64)
	case row.KindBool:
		if d.B {
			payload = []byte{1}
		} else {
			payload = []byte{0}
		}
	case row.KindString:
		payload = encodeOrderedBytes([]byte(d.Str))
	case row.KindTimestamp:
		payload = encodeInt64(d.TS.UnixNano())
	case row.KindDecimal:
		payload = encodeDecimal(d.Dec)
	default:
		panic(fmt.Sprintf("orderedrow: unsupported datum kind %s", d.Kind))
	}
	out := make([]byte, 0, len(payload)+1)
	out = append(out, tagPresent)
	out = append(out, payload...)
	return out
}

// encodeInt64 flips the sign bit so that two's-complement ordering becomes
// unsigned bytewise ordering: the most negative value maps to all-zero high
// bit, the most positive to all-one high bit.
func encodeInt64(v int64) []byte {
	u := uint64(v) ^ (1 << 63)
	out := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		out[i] = byte(u)
		u >>= 8
	}
	return out
}

func decodeInt64(b []byte) int64 {
	var u uint64
	for i := 0; i < 8; i++ {
		u = (u << 8) | uint64(b[i])
	}
	return int64(u ^ (1 << 63))
}

// encodeDecimal encodes an arbitrary-precision decimal exactly, as sign
// category + normalized-mantissa exponent + escape-terminated decimal
// digit string, so that Serialize's memcmp order matches decimal.Cmp and
// decodeDecimal recovers the original value exactly (never a float64
// approximation of it). The digit string is variable length but
// self-terminating, so a decimal column never needs to be the last column
// of a key.
//
// Layout: 1 sign-category byte (0=negative, 1=zero, 2=positive), then for
// non-zero values an 8-byte ordered exponent E such that the value equals
// +/-0.<digits> * 10^E, then the trimmed digit string itself. Negative
// values negate E (so a larger magnitude, which must sort first among
// negatives, yields a smaller encoded exponent) and bit-invert the digit
// string (so a lexicographically larger mantissa, again larger magnitude,
// also sorts first).
func encodeDecimal(d decimal.Decimal) []byte {
	sign := d.Sign()
	if sign == 0 {
		return []byte{1}
	}
	digits, exp := normalizedMantissa(d)
	out := make([]byte, 0, 10+len(digits))
	if sign > 0 {
		out = append(out, 2)
		out = append(out, encodeInt64(exp)...)
		out = append(out, encodeOrderedBytes([]byte(digits))...)
		return out
	}
	out = append(out, 0)
	out = append(out, encodeInt64(-exp)...)
	magnitude := encodeOrderedBytes([]byte(digits))
	invert(magnitude)
	out = append(out, magnitude...)
	return out
}

// normalizedMantissa reduces |d| to a decimal digit string with no leading
// or trailing zero and the exponent E such that |d| == 0.<digits> * 10^E,
// the canonical normalized-scientific form this package's ordering relies
// on: two decimals with the same value always produce the same (digits, E)
// regardless of how each was originally scaled.
func normalizedMantissa(d decimal.Decimal) (string, int64) {
	coeff := new(big.Int).Abs(d.Coefficient())
	exp := int64(d.Exponent())
	digits := coeff.String()
	for len(digits) > 1 && digits[len(digits)-1] == '0' {
		digits = digits[:len(digits)-1]
		exp++
	}
	return digits, exp + int64(len(digits))
}

// decodeDecimal is the inverse of encodeDecimal; it reports the number of
// payload bytes consumed so the caller can locate the next column.
func decodeDecimal(payload []byte) (decimal.Decimal, int, error) {
	if len(payload) == 0 {
		return decimal.Decimal{}, 0, fmt.Errorf("orderedrow: empty decimal payload")
	}
	switch payload[0] {
	case 1:
		return decimal.Zero, 1, nil
	case 2, 0:
		if len(payload) < 9 {
			return decimal.Decimal{}, 0, fmt.Errorf("orderedrow: short decimal exponent")
		}
		negative := payload[0] == 0
		rawExp := decodeInt64(payload[1:9])
		if negative {
			rawExp = -rawExp
		}
		digitBytes := append([]byte(nil), payload[9:]...)
		if negative {
			invert(digitBytes)
		}
		digits, n, err := decodeOrderedBytes(digitBytes)
		if err != nil {
			return decimal.Decimal{}, 0, err
		}
		coeff, ok := new(big.Int).SetString(string(digits), 10)
		if !ok {
			return decimal.Decimal{}, 0, fmt.Errorf("orderedrow: invalid decimal digit string %q", digits)
		}
		dec := decimal.NewFromBigInt(coeff, int32(rawExp-int64(len(digits))))
		if negative {
			dec = dec.Neg()
		}
		return dec, 9 + n, nil
	default:
		return decimal.Decimal{}, 0, fmt.Errorf("orderedrow: invalid decimal sign category %d", payload[0])
	}
}

// encodeOrderedBytes escapes every 0x00 byte in b as 0x00 0xFF and
// terminates with 0x00 0x00, the standard order-preserving variable-length
// byte encoding: the terminator sorts before any escaped or literal
// continuation byte, so a shorter field that is a byte-for-byte prefix of a
// longer one still sorts first, matching plain lexicographic order, while
// remaining self-delimiting so the field need not be the last in a key.
func encodeOrderedBytes(b []byte) []byte {
	out := make([]byte, 0, len(b)+2)
	for _, c := range b {
		if c == 0x00 {
			out = append(out, 0x00, 0xFF)
		} else {
			out = append(out, c)
		}
	}
	out = append(out, 0x00, 0x00)
	return out
}

// decodeOrderedBytes is the inverse of encodeOrderedBytes; it reports the
// number of bytes consumed including the terminator.
func decodeOrderedBytes(b []byte) ([]byte, int, error) {
	var out []byte
	i := 0
	for {
		if i >= len(b) {
			return nil, 0, fmt.Errorf("orderedrow: unterminated ordered byte field")
		}
		if b[i] == 0x00 {
			if i+1 >= len(b) {
				return nil, 0, fmt.Errorf("orderedrow: truncated ordered byte field escape")
			}
			switch b[i+1] {
			case 0x00:
				return out, i + 2, nil
			case 0xFF:
				out = append(out, 0x00)
				i += 2
			default:
				return nil, 0, fmt.Errorf("orderedrow: invalid ordered byte field escape 0x%02x", b[i+1])
			}
			continue
		}
		out = append(out, b[i])
		i++
	}
}

func invert(b []byte) {
	for i := range b {
		b[i] = ^b[i]
	}
}

// Deserialize decodes a serialized key back into an OrderedRow given the
// column kinds and directions it was encoded with. String and decimal
// columns are variable length but self-terminating (see
// encodeOrderedBytes), so a pk may freely mix them with fixed-width
// columns in any position, not just last.
func Deserialize(data []byte, kinds []row.Kind, dirs []Direction) (OrderedRow, error) {
	pk := make(row.Row, len(kinds))
	pos := 0
	for i, k := range kinds {
		remaining := data[pos:]
		if dirs[i] == Descending {
			remaining = append([]byte(nil), remaining...)
			invert(remaining)
		}
		if len(remaining) == 0 {
			return OrderedRow{}, fmt.Errorf("orderedrow: truncated key at column %d", i)
		}
		tag := remaining[0]
		if tag == tagNull {
			pk[i] = row.NullDatum(k)
			pos++
			continue
		}
		payload := remaining[1:]
		switch k {
		case row.KindInt64:
			if len(payload) < 8 {
				return OrderedRow{}, fmt.Errorf("orderedrow: short int64 payload at column %d", i)
			}
			pk[i] = row.Int64(decodeInt64(payload[:8]))
			pos += 1 + 8
		case row.KindBool:
			pk[i] = row.Bool(payload[0] != 0)
			pos += 1 + 1
		case row.KindTimestamp:
			if len(payload) < 8 {
				return OrderedRow{}, fmt.Errorf("orderedrow: short timestamp payload at column %d", i)
			}
			pk[i] = row.Timestamp(time.Unix(0, decodeInt64(payload[:8])).UTC())
			pos += 1 + 8
		case row.KindDecimal:
			dec, n, err := decodeDecimal(payload)
			if err != nil {
				return OrderedRow{}, fmt.Errorf("orderedrow: column %d: %w", i, err)
			}
			pk[i] = row.Decimal(dec)
			pos += 1 + n
		case row.KindString:
			s, n, err := decodeOrderedBytes(payload)
			if err != nil {
				return OrderedRow{}, fmt.Errorf("orderedrow: column %d: %w", i, err)
			}
			pk[i] = row.String(string(s))
			pos += 1 + n
		default:
			return OrderedRow{}, fmt.Errorf("orderedrow: unsupported datum kind %s", k)
		}
	}
	return OrderedRow{PK: pk, Dirs: append([]Direction(nil), dirs...)}, nil
}
