package operator

import (
	"encoding/binary"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/streamdb/flowcore/pkg/streaming/row"
	"github.com/streamdb/flowcore/pkg/streaming/rowcodec"
)

// encodeGroupState serializes one group's running aggregate state for the
// state store: per call, a length-prefixed decimal sum, a count, and a
// one-column min/max row encoded with rowcodec so null bounds round-trip.
func encodeGroupState(g *groupState, calls []Call) []byte {
	buf := make([]byte, 0, 32*len(calls))
	for i, call := range calls {
		s := g.sum[i].String()
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
		buf = append(buf, s...)
		buf = binary.BigEndian.AppendUint64(buf, uint64(g.count[i]))

		minMax := rowcodec.Encode(row.Row{minOrNull(g, i, call), maxOrNull(g, i, call)})
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(minMax)))
		buf = append(buf, minMax...)
	}
	return buf
}

func minOrNull(g *groupState, i int, call Call) row.Datum {
	if g.count[i] == 0 || (call.Kind != CallMin && call.Kind != CallMax) {
		return row.NullDatum(call.ArgKind)
	}
	return g.min[i]
}

func maxOrNull(g *groupState, i int, call Call) row.Datum {
	if g.count[i] == 0 || (call.Kind != CallMin && call.Kind != CallMax) {
		return row.NullDatum(call.ArgKind)
	}
	return g.max[i]
}

// decodeGroupState parses a value produced by encodeGroupState back into g.
func decodeGroupState(g *groupState, calls []Call, data []byte) error {
	pos := 0
	for i := range calls {
		if pos+4 > len(data) {
			return fmt.Errorf("agg: truncated sum length for call %d", i)
		}
		n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if pos+n > len(data) {
			return fmt.Errorf("agg: truncated sum for call %d", i)
		}
		dec, err := decimal.NewFromString(string(data[pos : pos+n]))
		if err != nil {
			return fmt.Errorf("agg: invalid sum for call %d: %w", i, err)
		}
		g.sum[i] = dec
		pos += n

		if pos+8 > len(data) {
			return fmt.Errorf("agg: truncated count for call %d", i)
		}
		g.count[i] = int64(binary.BigEndian.Uint64(data[pos : pos+8]))
		pos += 8

		if pos+4 > len(data) {
			return fmt.Errorf("agg: truncated min/max length for call %d", i)
		}
		mn := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if pos+mn > len(data) {
			return fmt.Errorf("agg: truncated min/max for call %d", i)
		}
		kind := minMaxKind(calls[i])
		mmRow, err := rowcodec.Decode([]row.Kind{kind, kind}, data[pos:pos+mn])
		if err != nil {
			return fmt.Errorf("agg: invalid min/max for call %d: %w", i, err)
		}
		g.min[i] = mmRow[0]
		g.max[i] = mmRow[1]
		pos += mn
	}
	g.seen = true
	return nil
}

// minMaxKind reports the datum kind stored for a call's min/max bound.
func minMaxKind(call Call) row.Kind {
	return call.ArgKind
}
