// Package rowcodec is the state-store value encoding for a full Row: a
// simple length-prefixed, tag-per-column format used by both the managed
// Top-N regions and the materialized-view sink, so a stored row can be
// decoded without any external schema registry beyond the operator's own
// Schema (already known at construction time).
package rowcodec

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/streamdb/flowcore/pkg/streaming/row"
)

const (
	tagNull byte = 0
	tagSome byte = 1
)

// Encode serializes a full row as tag-byte + value per column, in schema
// order. Strings and decimals are length-prefixed since they are not
// fixed-width.
func Encode(r row.Row) []byte {
	buf := make([]byte, 0, 16*len(r))
	for _, d := range r {
		if d.Null {
			buf = append(buf, tagNull)
			continue
		}
		buf = append(buf, tagSome)
		switch d.Kind {
		case row.KindInt64:
			buf = binary.BigEndian.AppendUint64(buf, uint64(d.I64))
		case row.KindBool:
			if d.B {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		case row.KindTimestamp:
			buf = binary.BigEndian.AppendUint64(buf, uint64(d.TS.UnixNano()))
		case row.KindDecimal:
			s := d.Dec.String()
			buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
			buf = append(buf, s...)
		case row.KindString:
			buf = binary.BigEndian.AppendUint32(buf, uint32(len(d.Str)))
			buf = append(buf, d.Str...)
		default:
			panic(fmt.Sprintf("rowcodec: unsupported datum kind %s", d.Kind))
		}
	}
	return buf
}

// Decode parses a row previously produced by Encode, given the column
// kinds it was encoded with.
func Decode(kinds []row.Kind, data []byte) (row.Row, error) {
	out := make(row.Row, len(kinds))
	pos := 0
	for i, k := range kinds {
		if pos >= len(data) {
			return nil, fmt.Errorf("rowcodec: truncated row at column %d", i)
		}
		tag := data[pos]
		pos++
		if tag == tagNull {
			out[i] = row.NullDatum(k)
			continue
		}
		switch k {
		case row.KindInt64:
			if pos+8 > len(data) {
				return nil, fmt.Errorf("rowcodec: truncated int64 at column %d", i)
			}
			out[i] = row.Int64(int64(binary.BigEndian.Uint64(data[pos : pos+8])))
			pos += 8
		case row.KindBool:
			out[i] = row.Bool(data[pos] != 0)
			pos++
		case row.KindTimestamp:
			if pos+8 > len(data) {
				return nil, fmt.Errorf("rowcodec: truncated timestamp at column %d", i)
			}
			ns := int64(binary.BigEndian.Uint64(data[pos : pos+8]))
			out[i] = row.Timestamp(time.Unix(0, ns).UTC())
			pos += 8
		case row.KindDecimal:
			if pos+4 > len(data) {
				return nil, fmt.Errorf("rowcodec: truncated decimal length at column %d", i)
			}
			n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
			pos += 4
			if pos+n > len(data) {
				return nil, fmt.Errorf("rowcodec: truncated decimal at column %d", i)
			}
			dec, err := decimal.NewFromString(string(data[pos : pos+n]))
			if err != nil {
				return nil, fmt.Errorf("rowcodec: invalid decimal at column %d: %w", i, err)
			}
			out[i] = row.Decimal(dec)
			pos += n
		case row.KindString:
			if pos+4 > len(data) {
				return nil, fmt.Errorf("rowcodec: truncated string length at column %d", i)
			}
			n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
			pos += 4
			if pos+n > len(data) {
				return nil, fmt.Errorf("rowcodec: truncated string at column %d", i)
			}
			out[i] = row.String(string(data[pos : pos+n]))
			pos += n
		default:
			return nil, fmt.Errorf("rowcodec: unsupported datum kind %s", k)
		}
	}
	return out, nil
}
