// Package keyspace builds the byte-prefix partitions of the state store:
// table_root, executor_root, and the fixed-length managed-state segments
// appended below them. Keyspaces of sibling
// operators are always disjoint because each segment is prefix-free with
// respect to its siblings (distinct executor ids, distinct segment tags).
package keyspace

import "encoding/binary"

var tablePrefix = []byte("t/")

// Segment is one additional byte-string component appended to a Keyspace.
type Segment []byte

// Keyspace is an immutable byte-prefix partition; With* methods return a
// new, longer Keyspace rather than mutating the receiver, so sibling
// operators can derive their own sub-keyspaces from a shared root without
// aliasing.
type Keyspace struct {
	prefix []byte
}

// TableRoot returns table_prefix || u32_be(tableID).
func TableRoot(tableID uint32) Keyspace {
	buf := make([]byte, 0, len(tablePrefix)+4)
	buf = append(buf, tablePrefix...)
	buf = binary.BigEndian.AppendUint32(buf, tableID)
	return Keyspace{prefix: buf}
}

// ExecutorRoot returns table_root || u32_be(executorID), scoping one
// operator instance's state within its table.
func (k Keyspace) ExecutorRoot(executorID uint32) Keyspace {
	buf := make([]byte, 0, len(k.prefix)+4)
	buf = append(buf, k.prefix...)
	buf = binary.BigEndian.AppendUint32(buf, executorID)
	return Keyspace{prefix: buf}
}

// WithSegment appends a fixed-length literal segment, e.g. "l/", "m/", "h/"
// for Top-N's three managed regions.
func (k Keyspace) WithSegment(seg Segment) Keyspace {
	buf := make([]byte, 0, len(k.prefix)+len(seg))
	buf = append(buf, k.prefix...)
	buf = append(buf, seg...)
	return Keyspace{prefix: buf}
}

// Key concatenates the keyspace prefix with an already-serialized
// OrderedRow (or any other suffix), producing the final state-store key.
func (k Keyspace) Key(suffix []byte) []byte {
	buf := make([]byte, 0, len(k.prefix)+len(suffix))
	buf = append(buf, k.prefix...)
	buf = append(buf, suffix...)
	return buf
}

// Prefix returns the raw byte prefix, e.g. for building a scan range that
// covers the whole keyspace.
func (k Keyspace) Prefix() []byte {
	out := make([]byte, len(k.prefix))
	copy(out, k.prefix)
	return out
}

// UpperBound returns the smallest key that is not a continuation of this
// keyspace's prefix, usable as an exclusive scan upper bound ("prefix
// successor").
func (k Keyspace) UpperBound() []byte {
	out := append([]byte(nil), k.prefix...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xFF {
			out[i]++
			return out[:i+1]
		}
	}
	// prefix is all 0xFF bytes (practically unreachable for our prefixes);
	// there is no finite successor, so the caller must treat this as
	// unbounded.
	return nil
}
