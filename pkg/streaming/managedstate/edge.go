package managedstate

import (
	"context"

	"github.com/streamdb/flowcore/pkg/streaming/keyspace"
	"github.com/streamdb/flowcore/pkg/streaming/metrics"
	"github.com/streamdb/flowcore/pkg/streaming/orderedrow"
	"github.com/streamdb/flowcore/pkg/streaming/row"
	"github.com/streamdb/flowcore/pkg/streaming/statestore"
)

// EdgeRegion is a managed ordered set whose only query need is its one
// anchor edge -- the Low region only ever needs max(Low), the High region
// only ever needs min(High). It carries a single bounded edgeCache plus the
// shared pendingStore/flush discipline, and a total_count kept exactly in
// sync with store contents so the cache can tell complete from partial.
type EdgeRegion struct {
	ps    pendingStore
	cache *edgeCache
	total int
	label string // metrics label, e.g. "low" or "high"
}

// NewEdgeRegion constructs an EdgeRegion over ks, anchored per anchor, with
// the in-memory window capped at cacheSize (0 means unbounded, used only in
// tests). label identifies the region in exported cache-hit/miss metrics.
func NewEdgeRegion(ks keyspace.Keyspace, store statestore.StateStore, pkKinds, valueKinds []row.Kind, dirs []orderedrow.Direction, anchor Anchor, cacheSize int, label string) *EdgeRegion {
	return &EdgeRegion{
		ps:    newPendingStore(ks, store, pkKinds, valueKinds, dirs),
		cache: newEdgeCache(anchor, cacheSize),
		label: label,
	}
}

// FillCache performs the one-time full scan used on an operator's first
// execution, seeding both total_count and the cache window from what is
// already on disk.
func (r *EdgeRegion) FillCache(ctx context.Context) error {
	items, err := r.ps.scanAll(ctx)
	if err != nil {
		return err
	}
	r.total = len(items)
	r.cache.reset(windowFor(items, r.cache.anchor, r.cache.cap))
	return nil
}

// TotalCount is the authoritative row count for the region, tracked
// exactly regardless of whether the cache currently holds every row.
func (r *EdgeRegion) TotalCount() int { return r.total }

// Insert adds a row under its ordered-row key. It always counts toward
// total_count; it only enters the in-memory cache if doing so keeps the
// window complete or correctly anchored.
func (r *EdgeRegion) Insert(ord orderedrow.OrderedRow, v row.Row) {
	complete := r.cache.len() == r.total
	r.ps.put(ord, v)
	r.total++
	it := item{key: ord.Serialize(), ord: ord, row: v}
	if !complete {
		// The window already omits some rows, all farther from the anchor
		// than its farthest entry; a row beyond that entry stays uncached.
		if r.cache.len() == 0 {
			return
		}
		far := r.cache.items[r.cache.farthestIndex()]
		if (r.cache.anchor == AnchorMax && !far.ord.Less(it.ord)) || (r.cache.anchor == AnchorMin && !it.ord.Less(far.ord)) {
			return
		}
	}
	r.cache.insert(it)
}

// Delete removes a row by its ordered-row key from the pending writes,
// total_count and the cache window. If the window is left empty while
// total_count says rows remain, the next Extreme call refills it from a
// store scan.
func (r *EdgeRegion) Delete(ord orderedrow.OrderedRow) {
	r.ps.del(ord)
	r.total--
	r.cache.remove(ord.Serialize())
}

// Extreme returns the row nearest the region's anchor: the row a caller
// removing from the Low region's top, or from the High region's bottom,
// needs. It refills from a store scan whenever the cache is known
// incomplete and empty, since an incomplete-but-nonempty cache is still
// correct at the anchor itself (the anchor element is always the first
// one kept, never evicted ahead of farther elements).
func (r *EdgeRegion) Extreme(ctx context.Context) (row.Row, orderedrow.OrderedRow, bool, error) {
	if it, ok := r.cache.extreme(); ok {
		metrics.TopNCacheHits.WithLabelValues(r.label).Inc()
		return it.row, it.ord, true, nil
	}
	if r.total == 0 {
		return nil, orderedrow.OrderedRow{}, false, nil
	}
	metrics.TopNCacheMisses.WithLabelValues(r.label).Inc()
	if err := r.FillCache(ctx); err != nil {
		return nil, orderedrow.OrderedRow{}, false, err
	}
	it, ok := r.cache.extreme()
	if !ok {
		return nil, orderedrow.OrderedRow{}, false, nil
	}
	return it.row, it.ord, true, nil
}

// PopExtreme removes and returns the anchor-nearest row, if any.
func (r *EdgeRegion) PopExtreme(ctx context.Context) (row.Row, orderedrow.OrderedRow, bool, error) {
	v, ord, ok, err := r.Extreme(ctx)
	if err != nil || !ok {
		return v, ord, ok, err
	}
	r.Delete(ord)
	return v, ord, true, nil
}

// Flush commits the region's pending writes as one epoch-tagged batch.
func (r *EdgeRegion) Flush(ctx context.Context, epoch uint64) error {
	return r.ps.flush(ctx, epoch)
}

// windowFor trims a fully-scanned, ascending-sorted item list down to the
// cap entries nearest anchor (all of it, if cap is 0 or the list already
// fits).
func windowFor(items []item, anchor Anchor, cap int) []item {
	if cap <= 0 || len(items) <= cap {
		return items
	}
	if anchor == AnchorMax {
		return items[len(items)-cap:]
	}
	return items[:cap]
}
