package operator

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/streamdb/flowcore/pkg/streaming/chunk"
	"github.com/streamdb/flowcore/pkg/streaming/errs"
	"github.com/streamdb/flowcore/pkg/streaming/keyspace"
	"github.com/streamdb/flowcore/pkg/streaming/message"
	"github.com/streamdb/flowcore/pkg/streaming/row"
	"github.com/streamdb/flowcore/pkg/streaming/rowcodec"
	"github.com/streamdb/flowcore/pkg/streaming/statestore"
)

// Side identifies which of a Join's two inputs a message arrived on.
type Side int

const (
	Left Side = iota
	Right
)

// sideState is one input side's keyed hash-map of live rows, cached
// fully in memory and persisted to its own sub-keyspace.
type sideState struct {
	ks      keyspace.Keyspace
	store   statestore.StateStore
	joinCol []int
	kinds   []row.Kind // full row schema kinds, needed to decode a persisted list

	rows   map[string][]row.Row // joinKey -> live rows with that key
	loaded map[string]bool      // joinKey -> already loaded from store this process lifetime
	dirtyK map[string]bool
}

func newSideState(ks keyspace.Keyspace, store statestore.StateStore, joinCol []int, kinds []row.Kind) *sideState {
	return &sideState{
		ks: ks, store: store, joinCol: joinCol, kinds: kinds,
		rows: make(map[string][]row.Row), loaded: make(map[string]bool), dirtyK: make(map[string]bool),
	}
}

// load pulls a join key's row list from the store into memory, once per
// process lifetime, so a Delete/probe against a key this side has never
// touched in-process still sees rows written in a previous epoch.
func (s *sideState) load(ctx context.Context, k string) error {
	if s.loaded[k] {
		return nil
	}
	s.loaded[k] = true
	val, found, err := s.store.Get(ctx, s.ks.Key([]byte(k)))
	if err != nil {
		return errs.Wrap(errs.StateStoreIO, err)
	}
	if !found {
		return nil
	}
	list, err := decodeRowList(s.kinds, val)
	if err != nil {
		return errs.Wrap(errs.SerializationError, err)
	}
	s.rows[k] = list
	return nil
}

func (s *sideState) key(r row.Row) string {
	k := make(row.Row, len(s.joinCol))
	for i, idx := range s.joinCol {
		k[i] = r[idx]
	}
	return string(rowcodec.Encode(k))
}

func (s *sideState) insert(ctx context.Context, r row.Row) error {
	k := s.key(r)
	if err := s.load(ctx, k); err != nil {
		return err
	}
	s.rows[k] = append(s.rows[k], r.Clone())
	s.dirtyK[k] = true
	return nil
}

// remove deletes the first row matching r by value equality across every
// column; the join operator relies on the upstream producing exactly one
// Delete per previously-seen Insert, so this
// never needs to handle an absent match beyond treating it as a no-op.
func (s *sideState) remove(ctx context.Context, r row.Row) error {
	k := s.key(r)
	if err := s.load(ctx, k); err != nil {
		return err
	}
	list := s.rows[k]
	for i, cand := range list {
		if rowsEqual(cand, r) {
			s.rows[k] = append(list[:i], list[i+1:]...)
			s.dirtyK[k] = true
			return nil
		}
	}
	return nil
}

func (s *sideState) matches(ctx context.Context, joinKey row.Row) ([]row.Row, error) {
	k := string(rowcodec.Encode(joinKey))
	if err := s.load(ctx, k); err != nil {
		return nil, err
	}
	return s.rows[k], nil
}

func rowsEqual(a, b row.Row) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Compare(b[i]) != 0 {
			return false
		}
	}
	return true
}

func (s *sideState) flush(ctx context.Context, epoch uint64) error {
	if len(s.dirtyK) == 0 {
		return nil
	}
	ops := make([]statestore.WriteOp, 0, len(s.dirtyK))
	for k := range s.dirtyK {
		list := s.rows[k]
		if len(list) == 0 {
			ops = append(ops, statestore.WriteOp{Key: s.ks.Key([]byte(k)), Kind: statestore.Del})
			continue
		}
		ops = append(ops, statestore.WriteOp{Key: s.ks.Key([]byte(k)), Value: encodeRowList(list), Kind: statestore.Put})
	}
	if err := s.store.WriteBatch(ctx, epoch, ops); err != nil {
		return errs.Wrap(errs.StateStoreIO, err)
	}
	s.dirtyK = make(map[string]bool)
	return nil
}

// Join is the symmetric hash-join executor: each side keeps a
// keyed map of its own live rows, and an Insert/Delete on one side probes
// the other side's map to produce matching output deltas.
type Join struct {
	left, right Upstream
	leftState   *sideState
	rightState  *sideState
	outSchema   row.Schema
}

// NewJoin constructs a Join over two upstreams already schema-aligned;
// an output row is always left-columns followed by right-columns,
// regardless of which side produced the triggering change.
func NewJoin(left, right Upstream, ks keyspace.Keyspace, store statestore.StateStore, leftJoinCols, rightJoinCols []int, leftKinds, rightKinds []row.Kind, outSchema row.Schema) *Join {
	return &Join{
		left:       left,
		right:      right,
		leftState:  newSideState(ks.WithSegment([]byte("jl/")), store, leftJoinCols, leftKinds),
		rightState: newSideState(ks.WithSegment([]byte("jr/")), store, rightJoinCols, rightKinds),
		outSchema:  outSchema,
	}
}

func (j *Join) Schema() row.Schema { return j.outSchema }
func (j *Join) PkIndices() []int   { return nil }

// NextFromSide is driven by the fragment runner, which knows which
// upstream produced a ready message (the two sides are independent
// channels; a real actor would select over both, modeled here as an
// explicit caller-supplied side tag since Go has no native multi-channel
// Upstream abstraction at this layer).
func (j *Join) NextFromSide(ctx context.Context, side Side, msg message.Message) (message.Message, error) {
	if msg.Kind == message.KindBarrier {
		if err := j.leftState.flush(ctx, msg.Barrier.Epoch); err != nil {
			return message.Message{}, err
		}
		if err := j.rightState.flush(ctx, msg.Barrier.Epoch); err != nil {
			return message.Message{}, err
		}
		return msg, nil
	}
	out, err := j.applyChunk(ctx, side, msg.Chunk.Compact())
	if err != nil {
		return message.Message{}, err
	}
	return message.NewChunk(out), nil
}

func (j *Join) applyChunk(ctx context.Context, side Side, c chunk.StreamChunk) (chunk.StreamChunk, error) {
	own, other := j.leftState, j.rightState
	if side == Right {
		own, other = j.rightState, j.leftState
	}

	var outOps []chunk.Op
	var outRows []row.Row

	for i, op := range c.Ops {
		r := c.Data.RowAt(i)
		joinKey := make(row.Row, len(own.joinCol))
		for ci, idx := range own.joinCol {
			joinKey[ci] = r[idx]
		}
		matches, err := other.matches(ctx, joinKey)
		if err != nil {
			return chunk.StreamChunk{}, err
		}

		switch op {
		case chunk.Insert, chunk.UpdateInsert:
			for _, m := range matches {
				outOps = append(outOps, chunk.Insert)
				outRows = append(outRows, combineRows(side, r, m))
			}
			if err := own.insert(ctx, r); err != nil {
				return chunk.StreamChunk{}, err
			}
		case chunk.Delete, chunk.UpdateDelete:
			if err := own.remove(ctx, r); err != nil {
				return chunk.StreamChunk{}, err
			}
			for _, m := range matches {
				outOps = append(outOps, chunk.Delete)
				outRows = append(outRows, combineRows(side, r, m))
			}
		}
	}
	return rowsToChunk(j.outSchema, outOps, outRows), nil
}

// combineRows always produces left-columns-then-right-columns, regardless
// of which side triggered the change.
func combineRows(side Side, own, other row.Row) row.Row {
	left, right := own, other
	if side == Right {
		left, right = other, own
	}
	out := make(row.Row, 0, len(left)+len(right))
	out = append(out, left...)
	out = append(out, right...)
	return out
}

// encodeRowList/decodeRowList persist a join key's row list as a
// length-prefixed sequence of rowcodec-encoded rows.
func encodeRowList(rows []row.Row) []byte {
	var buf []byte
	for _, r := range rows {
		enc := rowcodec.Encode(r)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(enc)))
		buf = append(buf, enc...)
	}
	return buf
}

func decodeRowList(kinds []row.Kind, data []byte) ([]row.Row, error) {
	var out []row.Row
	pos := 0
	for pos < len(data) {
		if pos+4 > len(data) {
			return nil, fmt.Errorf("join: truncated row-list length at offset %d", pos)
		}
		n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if pos+n > len(data) {
			return nil, fmt.Errorf("join: truncated row-list entry at offset %d", pos)
		}
		r, err := rowcodec.Decode(kinds, data[pos:pos+n])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
		pos += n
	}
	return out, nil
}
