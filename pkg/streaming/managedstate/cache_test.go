package managedstate

import (
	"context"
	"testing"

	"github.com/streamdb/flowcore/pkg/streaming/keyspace"
	"github.com/streamdb/flowcore/pkg/streaming/orderedrow"
	"github.com/streamdb/flowcore/pkg/streaming/row"
	"github.com/streamdb/flowcore/pkg/streaming/statestore"
)

func intItem(v int64) item {
	ord := orderedrow.New(row.Row{row.Int64(v)}, []int{0}, []orderedrow.Direction{orderedrow.Ascending})
	return item{key: ord.Serialize(), ord: ord, row: row.Row{row.Int64(v)}}
}

// TestEdgeCacheInsertKeepsExtremeUnderCap checks that a bounded cache
// retains the keys nearest its anchor rather than the first ones seen:
// inserting past cap must evict the farthest-from-anchor entry and admit
// a newcomer that is closer to the anchor, not the reverse.
func TestEdgeCacheInsertKeepsExtremeUnderCap(t *testing.T) {
	maxCache := newEdgeCache(AnchorMax, 2)
	maxCache.insert(intItem(1))
	maxCache.insert(intItem(2))
	if ok := maxCache.insert(intItem(3)); !ok {
		t.Fatalf("expected 3 to evict the farthest (1) from a Max-anchored cache")
	}
	extreme, ok := maxCache.extreme()
	if !ok || extreme.ord.PK[0].I64 != 3 {
		t.Fatalf("expected extreme 3, got %+v ok=%v", extreme, ok)
	}
	if maxCache.len() != 2 {
		t.Fatalf("expected cache to stay at cap 2, got %d", maxCache.len())
	}
	evictedKey := intItem(1).key
	if idx := maxCache.find(evictedKey); idx < maxCache.len() && string(maxCache.items[idx].key) == string(evictedKey) {
		t.Fatalf("expected 1 to have been evicted from a Max-anchored cache")
	}

	minCache := newEdgeCache(AnchorMin, 2)
	minCache.insert(intItem(10))
	minCache.insert(intItem(9))
	if ok := minCache.insert(intItem(8)); !ok {
		t.Fatalf("expected 8 to evict the farthest (10) from a Min-anchored cache")
	}
	extreme, ok = minCache.extreme()
	if !ok || extreme.ord.PK[0].I64 != 8 {
		t.Fatalf("expected extreme 8, got %+v ok=%v", extreme, ok)
	}
}

// TestEdgeRegionExtremeCorrectWithBoundedCache reproduces the production
// path where cacheSize is strictly smaller than the number of rows ever
// inserted: Extreme must still report the true anchor row, not whatever
// happened to be inserted first and never evicted.
func TestEdgeRegionExtremeCorrectWithBoundedCache(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewMemoryStore()
	ks := keyspace.TableRoot(1).ExecutorRoot(1)
	dirs := []orderedrow.Direction{orderedrow.Ascending}

	region := NewEdgeRegion(ks, store, []row.Kind{row.KindInt64}, []row.Kind{row.KindInt64}, dirs, AnchorMax, 2, "low")

	for _, v := range []int64{1, 2, 3, 4, 5} {
		ord := orderedrow.New(row.Row{row.Int64(v)}, []int{0}, dirs)
		region.Insert(ord, row.Row{row.Int64(v)})
	}

	if region.TotalCount() != 5 {
		t.Fatalf("expected total_count 5, got %d", region.TotalCount())
	}

	_, ord, ok, err := region.Extreme(ctx)
	if err != nil {
		t.Fatalf("Extreme: %v", err)
	}
	if !ok {
		t.Fatalf("expected an extreme row")
	}
	if ord.PK[0].I64 != 5 {
		t.Fatalf("expected Max-anchored Extreme to report 5 (the true maximum), got %d", ord.PK[0].I64)
	}
}
