package managedstate

import "sort"

// Anchor is the edge of the region a cache window stays adjacent to: Max
// favors retaining the largest known keys (Low's top_element, Mid's
// top_element), Min favors the smallest (High's top_element, Mid's
// bottom_element).
type Anchor int

const (
	AnchorMax Anchor = iota
	AnchorMin
)

// edgeCache is a sorted, bounded in-memory window over one edge of a
// region. It never talks to the store itself; callers decide when the
// window is stale (by comparing its length against the region's
// total_count) and refill it from a store scan when it is.
type edgeCache struct {
	anchor Anchor
	items  []item // always kept sorted ascending by ord
	cap    int
}

func newEdgeCache(anchor Anchor, cap int) *edgeCache {
	return &edgeCache{anchor: anchor, cap: cap}
}

func (c *edgeCache) len() int { return len(c.items) }

// extreme returns the cached element nearest the anchor: the maximum for
// AnchorMax, the minimum for AnchorMin.
func (c *edgeCache) extreme() (item, bool) {
	if len(c.items) == 0 {
		return item{}, false
	}
	if c.anchor == AnchorMax {
		return c.items[len(c.items)-1], true
	}
	return c.items[0], true
}

// farthestIndex returns the index of the cached element farthest from the
// anchor -- the first candidate to evict when the window overflows its cap.
func (c *edgeCache) farthestIndex() int {
	if c.anchor == AnchorMax {
		return 0
	}
	return len(c.items) - 1
}

func (c *edgeCache) find(key []byte) int {
	return sort.Search(len(c.items), func(i int) bool {
		return string(c.items[i].key) >= string(key)
	})
}

// insert adds it to the window in sorted position, trimming the farthest
// entry if the window would exceed cap. Returns false if the window was
// already full of entries all closer to the anchor than it (so it was not
// cached) -- this is not an error, just means this item's presence in the
// authoritative set is tracked only by total_count, not by this cache.
func (c *edgeCache) insert(it item) bool {
	idx := c.find(it.key)
	if idx < len(c.items) && string(c.items[idx].key) == string(it.key) {
		c.items[idx] = it
		return true
	}
	if c.cap > 0 && len(c.items) >= c.cap {
		fi := c.farthestIndex()
		farthest := c.items[fi]
		if c.anchor == AnchorMax && !farthest.ord.Less(it.ord) {
			return false // new item is not larger than our least-interesting cached item
		}
		if c.anchor == AnchorMin && !it.ord.Less(farthest.ord) {
			return false // new item is not smaller than our least-interesting cached item
		}
		c.items = append(c.items[:fi], c.items[fi+1:]...)
		idx = c.find(it.key)
	}
	c.items = append(c.items, item{})
	copy(c.items[idx+1:], c.items[idx:])
	c.items[idx] = it
	return true
}

func (c *edgeCache) remove(key []byte) {
	idx := c.find(key)
	if idx < len(c.items) && string(c.items[idx].key) == string(key) {
		c.items = append(c.items[:idx], c.items[idx+1:]...)
	}
}

// reset replaces the whole window, e.g. after a store refill.
func (c *edgeCache) reset(items []item) {
	c.items = items
}
