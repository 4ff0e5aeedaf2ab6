// Package controlpb is the control-plane RPC surface cmd/streamplan talks
// to: actor-directory registration, barrier injection,
// fragment teardown, and a restricted plan-submission format.
//
// Only node kinds with no function-valued fields are wire-describable:
// Source, Merge, TopN, AppendOnlyTopN, and Sink. Project/Filter/Agg/Join
// need Go-native Expr/Predicate/Call closures that have no wire
// representation here -- scalar expression evaluation is treated as an
// as an external, out-of-scope collaborator, and no real expression
// language is specified to serialize one over the wire. A caller that
// needs those operators builds its manager.FragmentSpec directly in Go
// instead of submitting a wire Plan (see DESIGN.md).
package controlpb

// ActorInfo mirrors manager.ActorInfo for wire transport.
type ActorInfo struct {
	ID      uint32 `json:"id"`
	Address string `json:"address"`
}

// FieldSpec describes one schema column by name and scalar kind.
type FieldSpec struct {
	Name string `json:"name"`
	Kind string `json:"kind"` // int64 | decimal | string | bool | timestamp
}

// NodeSpec is one operator node in a fragment's linear pipeline.
type NodeSpec struct {
	Kind string `json:"kind"` // source | merge | topn | appendonly_topn | sink

	// source
	SourceFile string `json:"sourceFile,omitempty"`

	// merge
	From uint32 `json:"from,omitempty"`

	// topn / appendonly_topn
	Offset    int      `json:"offset,omitempty"`
	Limit     int      `json:"limit,omitempty"`
	CacheSize int      `json:"cacheSize,omitempty"`
	Dirs      []string `json:"dirs,omitempty"` // "asc" | "desc", one per pk column

	// shared
	Schema   []FieldSpec `json:"schema,omitempty"`
	PkIdx    []int       `json:"pkIdx,omitempty"`
	Upstream *NodeSpec   `json:"upstream,omitempty"`
}

// FragmentSpec is one fragment of a submitted plan.
type FragmentSpec struct {
	ID           uint32   `json:"id"`
	Root         NodeSpec `json:"root"`
	Downstream   []uint32 `json:"downstream,omitempty"`
	DispatchKind string   `json:"dispatchKind,omitempty"` // simple | broadcast | hash
	HashColIdx   int      `json:"hashColIdx,omitempty"`
}

// Plan is the top-level YAML/JSON document cmd/streamplan reads and
// SubmitPlanRequest carries over the wire.
type Plan struct {
	ActorInfo []ActorInfo    `json:"actorInfo,omitempty"`
	Fragments []FragmentSpec `json:"fragments"`
}
