package managedstate

import (
	"context"

	"github.com/streamdb/flowcore/pkg/streaming/keyspace"
	"github.com/streamdb/flowcore/pkg/streaming/metrics"
	"github.com/streamdb/flowcore/pkg/streaming/orderedrow"
	"github.com/streamdb/flowcore/pkg/streaming/row"
	"github.com/streamdb/flowcore/pkg/streaming/statestore"
)

// MidRegion is the managed ordered set backing the window's middle
// segment. Unlike Low and High it needs both edges: Mid's top row is
// demoted to High when an insert overflows Mid, and Mid's bottom row is
// demoted to Low when a delete leaves Low one row short. Rows entering
// Mid (from Low's top, from High's bottom, or new) go through Insert. It
// keeps two independent
// edgeCache windows sharing one pendingStore and one total_count.
type MidRegion struct {
	ps     pendingStore
	top    *edgeCache // anchored Max: the largest keys in Mid
	bottom *edgeCache // anchored Min: the smallest keys in Mid
	total  int
}

// NewMidRegion constructs a MidRegion over ks with both edge windows
// capped at cacheSize.
func NewMidRegion(ks keyspace.Keyspace, store statestore.StateStore, pkKinds, valueKinds []row.Kind, dirs []orderedrow.Direction, cacheSize int) *MidRegion {
	return &MidRegion{
		ps:     newPendingStore(ks, store, pkKinds, valueKinds, dirs),
		top:    newEdgeCache(AnchorMax, cacheSize),
		bottom: newEdgeCache(AnchorMin, cacheSize),
	}
}

func (r *MidRegion) TotalCount() int { return r.total }

func (r *MidRegion) topComplete() bool    { return r.top.len() == r.total }
func (r *MidRegion) bottomComplete() bool { return r.bottom.len() == r.total }

// FillCache reloads both edge windows and total_count from a full scan,
// used on first execution.
func (r *MidRegion) FillCache(ctx context.Context) error {
	items, err := r.ps.scanAll(ctx)
	if err != nil {
		return err
	}
	r.total = len(items)
	r.top.reset(windowFor(items, AnchorMax, r.top.cap))
	r.bottom.reset(windowFor(items, AnchorMin, r.bottom.cap))
	return nil
}

// Insert adds a row, updating total_count and both edge windows. A window
// that already omits rows (all farther from its anchor than its farthest
// entry) leaves a row beyond that entry uncached.
func (r *MidRegion) Insert(ord orderedrow.OrderedRow, v row.Row) {
	topComplete, bottomComplete := r.topComplete(), r.bottomComplete()
	r.ps.put(ord, v)
	r.total++
	it := item{key: ord.Serialize(), ord: ord, row: v}
	admits := func(c *edgeCache) bool {
		if c.len() == 0 {
			return false
		}
		far := c.items[c.farthestIndex()]
		if c.anchor == AnchorMax {
			return far.ord.Less(it.ord)
		}
		return it.ord.Less(far.ord)
	}
	if topComplete || admits(r.top) {
		r.top.insert(it)
	}
	if bottomComplete || admits(r.bottom) {
		r.bottom.insert(it)
	}
}

// Delete removes a row by ordered-row key from both windows.
func (r *MidRegion) Delete(ord orderedrow.OrderedRow) {
	r.ps.del(ord)
	r.total--
	r.top.remove(ord.Serialize())
	r.bottom.remove(ord.Serialize())
}

// Top returns Mid's largest row (the row demoted to High when an insert
// overflows Mid, and the bound that tells whether a deleted row lives in
// High).
func (r *MidRegion) Top(ctx context.Context) (row.Row, orderedrow.OrderedRow, bool, error) {
	if it, ok := r.top.extreme(); ok {
		metrics.TopNCacheHits.WithLabelValues("mid_top").Inc()
		return it.row, it.ord, true, nil
	}
	if r.total == 0 {
		return nil, orderedrow.OrderedRow{}, false, nil
	}
	metrics.TopNCacheMisses.WithLabelValues("mid_top").Inc()
	if err := r.FillCache(ctx); err != nil {
		return nil, orderedrow.OrderedRow{}, false, err
	}
	it, ok := r.top.extreme()
	if !ok {
		return nil, orderedrow.OrderedRow{}, false, nil
	}
	return it.row, it.ord, true, nil
}

// Bottom returns Mid's smallest row (the row demoted to Low when a delete
// leaves Low one row short).
func (r *MidRegion) Bottom(ctx context.Context) (row.Row, orderedrow.OrderedRow, bool, error) {
	if it, ok := r.bottom.extreme(); ok {
		metrics.TopNCacheHits.WithLabelValues("mid_bottom").Inc()
		return it.row, it.ord, true, nil
	}
	if r.total == 0 {
		return nil, orderedrow.OrderedRow{}, false, nil
	}
	metrics.TopNCacheMisses.WithLabelValues("mid_bottom").Inc()
	if err := r.FillCache(ctx); err != nil {
		return nil, orderedrow.OrderedRow{}, false, err
	}
	it, ok := r.bottom.extreme()
	if !ok {
		return nil, orderedrow.OrderedRow{}, false, nil
	}
	return it.row, it.ord, true, nil
}

// PopTop removes and returns Mid's largest row, if any.
func (r *MidRegion) PopTop(ctx context.Context) (row.Row, orderedrow.OrderedRow, bool, error) {
	v, ord, ok, err := r.Top(ctx)
	if err != nil || !ok {
		return v, ord, ok, err
	}
	r.Delete(ord)
	return v, ord, true, nil
}

// PopBottom removes and returns Mid's smallest row, if any.
func (r *MidRegion) PopBottom(ctx context.Context) (row.Row, orderedrow.OrderedRow, bool, error) {
	v, ord, ok, err := r.Bottom(ctx)
	if err != nil || !ok {
		return v, ord, ok, err
	}
	r.Delete(ord)
	return v, ord, true, nil
}

// Flush commits the region's pending writes as one epoch-tagged batch.
func (r *MidRegion) Flush(ctx context.Context, epoch uint64) error {
	return r.ps.flush(ctx, epoch)
}
