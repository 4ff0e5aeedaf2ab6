// Package managedstate implements the cached, bounded view of an ordered
// on-disk set shared by every region of the incremental Top-N operator
//: a sorted in-memory cache capped at cache_size, an
// authoritative total_count, and a per-epoch pending-write buffer flushed
// to the state store as one atomic batch at each barrier.
package managedstate

import (
	"context"
	"sort"

	"github.com/streamdb/flowcore/pkg/streaming/errs"
	"github.com/streamdb/flowcore/pkg/streaming/keyspace"
	"github.com/streamdb/flowcore/pkg/streaming/orderedrow"
	"github.com/streamdb/flowcore/pkg/streaming/row"
	"github.com/streamdb/flowcore/pkg/streaming/rowcodec"
	"github.com/streamdb/flowcore/pkg/streaming/statestore"
)

type pendingKind int

const (
	pendingPut pendingKind = iota
	pendingDelete
)

type pendingOp struct {
	kind  pendingKind
	value row.Row
}

// pendingStore is the cache/store discipline shared by all managed ordered
// collections: accumulate writes in pending between barriers, flush as one
// batch tagged with the epoch, and let reads within the epoch see their own
// unflushed writes.
type pendingStore struct {
	ks         keyspace.Keyspace
	store      statestore.StateStore
	pkKinds    []row.Kind
	valueKinds []row.Kind
	dirs       []orderedrow.Direction

	pending map[string]pendingOp // key(string) -> op, cleared on flush
}

func newPendingStore(ks keyspace.Keyspace, store statestore.StateStore, pkKinds, valueKinds []row.Kind, dirs []orderedrow.Direction) pendingStore {
	return pendingStore{
		ks:         ks,
		store:      store,
		pkKinds:    pkKinds,
		valueKinds: valueKinds,
		dirs:       dirs,
		pending:    make(map[string]pendingOp),
	}
}

func (p *pendingStore) put(ord orderedrow.OrderedRow, r row.Row) {
	p.pending[string(ord.Serialize())] = pendingOp{kind: pendingPut, value: r}
}

func (p *pendingStore) del(ord orderedrow.OrderedRow) {
	p.pending[string(ord.Serialize())] = pendingOp{kind: pendingDelete}
}

// flush commits pending as one batch tagged with epoch, then clears it.
// Either all of an epoch's writes land or none do, because WriteBatch is
// itself atomic; pendingStore never partially clears
// on error.
func (p *pendingStore) flush(ctx context.Context, epoch uint64) error {
	if len(p.pending) == 0 {
		return nil
	}
	ops := make([]statestore.WriteOp, 0, len(p.pending))
	for k, op := range p.pending {
		switch op.kind {
		case pendingPut:
			ops = append(ops, statestore.WriteOp{Key: p.ks.Key([]byte(k)), Value: rowcodec.Encode(op.value), Kind: statestore.Put})
		case pendingDelete:
			ops = append(ops, statestore.WriteOp{Key: p.ks.Key([]byte(k)), Kind: statestore.Del})
		}
	}
	if err := p.store.WriteBatch(ctx, epoch, ops); err != nil {
		return errs.Wrap(errs.StateStoreIO, err)
	}
	p.pending = make(map[string]pendingOp)
	return nil
}

// item is one decoded (key, pk, row) triple used by the in-memory caches.
type item struct {
	key []byte
	ord orderedrow.OrderedRow
	row row.Row
}

// scanAscending reads the whole keyspace from the store (up to limit
// entries if limit > 0) and overlays pending writes on top, returning
// entries in ascending key order. With a limit, the store-side read is
// widened by the number of pending entries (so pending deletes cannot
// shrink the page), every pending entry is merged in, and the merged,
// sorted result is then cut to limit entries.
func (p *pendingStore) scanAscending(ctx context.Context, limit int) ([]item, error) {
	storeLimit := limit
	if storeLimit > 0 {
		storeLimit += len(p.pending)
	}
	kvs, err := p.store.Scan(ctx, p.ks.Prefix(), p.ks.UpperBound(), storeLimit)
	if err != nil {
		return nil, errs.Wrap(errs.StateStoreIO, err)
	}

	merged := make(map[string]row.Row, len(kvs)+len(p.pending))
	for _, kv := range kvs {
		suffix := kv.Key[len(p.ks.Prefix()):]
		r, err := rowcodec.Decode(p.valueKinds, kv.Value)
		if err != nil {
			return nil, errs.Wrap(errs.SerializationError, err)
		}
		merged[string(suffix)] = r
	}
	for k, op := range p.pending {
		if op.kind == pendingDelete {
			delete(merged, k)
		} else {
			merged[k] = op.value
		}
	}

	items := make([]item, 0, len(merged))
	for k, r := range merged {
		ord, err := orderedrow.Deserialize([]byte(k), p.pkKinds, p.dirs)
		if err != nil {
			return nil, errs.Wrap(errs.SerializationError, err)
		}
		items = append(items, item{key: []byte(k), ord: ord, row: r})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ord.Less(items[j].ord) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// scanAll is scanAscending with no store-side page limit, used by the
// "anchor at the max edge" queries: the underlying Scan has no reverse
// direction, so finding the true maximum means reading everything once
// and taking the tail -- acceptable because it only runs when the cache
// is known incomplete.
func (p *pendingStore) scanAll(ctx context.Context) ([]item, error) {
	return p.scanAscending(ctx, 0)
}
