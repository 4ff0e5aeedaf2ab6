package statestore

import (
	"bytes"
	"context"
	"sync"

	"github.com/google/btree"
)

// memoryItem is the google/btree.Item stored for each key: ordering is
// purely by Key, so two items with equal Key are the same slot and a write
// simply replaces the stored Value.
type memoryItem struct {
	Key   []byte
	Value []byte
}

func (a memoryItem) Less(than btree.Item) bool {
	return bytes.Compare(a.Key, than.(memoryItem).Key) < 0
}

// MemoryStore is an in-process, epoch-agnostic sorted map. It backs the
// `in_memory` state-store scheme and unit tests; there is no persistence or
// replication.
type MemoryStore struct {
	mu   sync.RWMutex
	tree *btree.BTree
}

// NewMemoryStore returns an empty store. Degree 32 matches the btree
// package's own recommended default for byte-key workloads of this size.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tree: btree.New(32)}
}

func (m *MemoryStore) Get(_ context.Context, key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item := m.tree.Get(memoryItem{Key: key})
	if item == nil {
		return nil, false, nil
	}
	v := item.(memoryItem).Value
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *MemoryStore) Scan(_ context.Context, start, end []byte, limit int) ([]KV, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []KV
	iter := func(it btree.Item) bool {
		mi := it.(memoryItem)
		if end != nil && bytes.Compare(mi.Key, end) >= 0 {
			return false
		}
		v := make([]byte, len(mi.Value))
		copy(v, mi.Value)
		k := make([]byte, len(mi.Key))
		copy(k, mi.Key)
		out = append(out, KV{Key: k, Value: v})
		return limit <= 0 || len(out) < limit
	}
	m.tree.AscendGreaterOrEqual(memoryItem{Key: start}, iter)
	return out, nil
}

// WriteBatch applies ops under a single write-lock hold, so the batch is
// atomic with respect to concurrent Get/Scan callers: epoch is accepted for
// interface-compatibility with backends where it drives versioning, but the
// in-memory store has no history, so the epoch tag itself is not stored.
func (m *MemoryStore) WriteBatch(_ context.Context, _ uint64, ops []WriteOp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range ops {
		switch op.Kind {
		case Put:
			v := make([]byte, len(op.Value))
			copy(v, op.Value)
			k := make([]byte, len(op.Key))
			copy(k, op.Key)
			m.tree.ReplaceOrInsert(memoryItem{Key: k, Value: v})
		case Del:
			m.tree.Delete(memoryItem{Key: op.Key})
		}
	}
	return nil
}
