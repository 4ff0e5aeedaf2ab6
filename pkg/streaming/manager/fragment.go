package manager

import (
	"context"

	"github.com/streamdb/flowcore/pkg/streaming/keyspace"
	"github.com/streamdb/flowcore/pkg/streaming/message"
	"github.com/streamdb/flowcore/pkg/streaming/operator"
	"github.com/streamdb/flowcore/pkg/streaming/orderedrow"
	"github.com/streamdb/flowcore/pkg/streaming/row"
	"github.com/streamdb/flowcore/pkg/streaming/statestore"
)

// Node is one entry of an operator tree: building a fragment constructs
// its executor tree by recursive descent over this tree. Each node kind
// below is its own Go type rather than a generic tagged struct,
// so a node's constructor arguments are checked by the compiler instead of
// parsed out of an interface{} tree at build time.
type Node interface {
	build(b *buildContext) (operator.Upstream, error)
}

// buildContext is threaded through one fragment's recursive build,
// carrying the fragment's own id (for claiming its inbound Merge channels)
// and the shared channel pool, and accumulating every Source node's
// barrier injector so the manager can drive epochs later.
type buildContext struct {
	selfID  ActorID
	pool    *channelPool
	sources []operator.BarrierInjector
}

// SourceNode is the root of a fragment's local pipeline.
type SourceNode struct {
	Schema   row.Schema
	PkIdx    []int
	Feed     operator.RawFeed
	Barriers operator.BarrierInjector
}

func (n *SourceNode) build(b *buildContext) (operator.Upstream, error) {
	src := operator.NewSource(n.Schema, n.PkIdx, n.Feed, n.Barriers)
	b.sources = append(b.sources, n.Barriers)
	return src, nil
}

// MergeNode is a non-root fragment's input edge: it claims the receiver
// half of the (From, self) channel the manager pre-created in
// update_fragment. The channel pool holds only local dispatch.Channel
// values; no remote input (dispatch.RemoteInbound) is created or claimed
// here.
type MergeNode struct {
	From ActorID
}

func (n *MergeNode) build(b *buildContext) (operator.Upstream, error) {
	ch, err := b.pool.claim(n.From, b.selfID)
	if err != nil {
		return nil, err
	}
	return &channelUpstream{ch: ch}, nil
}

// channelUpstream adapts dispatch.Channel's Recv to the Upstream.Next
// shape expected by every executor constructor in pkg/streaming/operator.
type channelUpstream struct {
	ch interface {
		Recv(ctx context.Context) (message.Message, error)
	}
}

func (c *channelUpstream) Next(ctx context.Context) (message.Message, error) {
	return c.ch.Recv(ctx)
}

// ProjectNode evaluates a fixed expression list per row.
type ProjectNode struct {
	Upstream Node
	Schema   row.Schema
	PkIdx    []int
	Exprs    []operator.ProjectExpr
}

func (n *ProjectNode) build(b *buildContext) (operator.Upstream, error) {
	up, err := n.Upstream.build(b)
	if err != nil {
		return nil, err
	}
	return operator.NewProject(up, n.Schema, n.PkIdx, n.Exprs), nil
}

// FilterNode drops rows failing Pred.
type FilterNode struct {
	Upstream Node
	Pred     operator.Predicate
}

func (n *FilterNode) build(b *buildContext) (operator.Upstream, error) {
	up, err := n.Upstream.build(b)
	if err != nil {
		return nil, err
	}
	return operator.NewFilter(up, n.Pred), nil
}

// TopNNode is the three-region incremental Top-N window.
type TopNNode struct {
	Upstream  Node
	Keyspace  keyspace.Keyspace
	Store     statestore.StateStore
	Schema    row.Schema
	PkIdx     []int
	Dirs      []orderedrow.Direction
	Offset    int
	Limit     int
	CacheSize int
}

func (n *TopNNode) build(b *buildContext) (operator.Upstream, error) {
	up, err := n.Upstream.build(b)
	if err != nil {
		return nil, err
	}
	return operator.NewTopN(up, n.Keyspace, n.Store, n.Schema, n.PkIdx, n.Dirs, n.Offset, n.Limit, n.CacheSize), nil
}

// AppendOnlyTopNNode is the Top-N specialization with no High region.
type AppendOnlyTopNNode struct {
	Upstream  Node
	Keyspace  keyspace.Keyspace
	Store     statestore.StateStore
	Schema    row.Schema
	PkIdx     []int
	Dirs      []orderedrow.Direction
	Offset    int
	Limit     int
	CacheSize int
}

func (n *AppendOnlyTopNNode) build(b *buildContext) (operator.Upstream, error) {
	up, err := n.Upstream.build(b)
	if err != nil {
		return nil, err
	}
	return operator.NewAppendOnlyTopN(up, n.Keyspace, n.Store, n.Schema, n.PkIdx, n.Dirs, n.Offset, n.Limit, n.CacheSize), nil
}

// AggNode is the hash-aggregate executor.
type AggNode struct {
	Upstream  Node
	Keyspace  keyspace.Keyspace
	Store     statestore.StateStore
	GroupCols []int
	Calls     []operator.Call
	OutSchema row.Schema
}

func (n *AggNode) build(b *buildContext) (operator.Upstream, error) {
	up, err := n.Upstream.build(b)
	if err != nil {
		return nil, err
	}
	return operator.NewAgg(up, n.Keyspace, n.Store, n.GroupCols, n.Calls, n.OutSchema), nil
}

// JoinNode is the two-sided symmetric hash-join executor. Unlike every
// other node, its underlying executor (operator.Join) is driven by
// NextFromSide rather than a plain Next, because it has two independent
// upstreams instead of one; build wraps it in joinAdapter so the rest of
// this package can still treat it as an ordinary Upstream.
type JoinNode struct {
	Left, Right                 Node
	Keyspace                    keyspace.Keyspace
	Store                       statestore.StateStore
	LeftJoinCols, RightJoinCols []int
	LeftKinds, RightKinds       []row.Kind
	OutSchema                   row.Schema
}

func (n *JoinNode) build(b *buildContext) (operator.Upstream, error) {
	left, err := n.Left.build(b)
	if err != nil {
		return nil, err
	}
	right, err := n.Right.build(b)
	if err != nil {
		return nil, err
	}
	j := operator.NewJoin(left, right, n.Keyspace, n.Store, n.LeftJoinCols, n.RightJoinCols, n.LeftKinds, n.RightKinds, n.OutSchema)
	return newJoinAdapter(j, left, right), nil
}

// SinkNode is the terminal materialized-view writer.
type SinkNode struct {
	Upstream Node
	Keyspace keyspace.Keyspace
	Store    statestore.StateStore
	PkIdx    []int
	PkKinds  []row.Kind
}

func (n *SinkNode) build(b *buildContext) (operator.Upstream, error) {
	up, err := n.Upstream.build(b)
	if err != nil {
		return nil, err
	}
	return operator.NewSink(up, n.Keyspace, n.Store, n.PkIdx, n.PkKinds), nil
}

// DispatchKind selects the downstream fan-out strategy a fragment's root
// output is wrapped in.
type DispatchKind int

const (
	DispatchSimple DispatchKind = iota
	DispatchBroadcast
	DispatchHash
)

// DownstreamEdge names one fragment this fragment's output fans out to.
type DownstreamEdge struct {
	To ActorID
}

// FragmentSpec is everything update_fragment needs to pre-create channels
// and build_fragment needs to construct and spawn one fragment's actor.
type FragmentSpec struct {
	ID           ActorID
	Root         Node
	Downstream   []DownstreamEdge
	DispatchKind DispatchKind
	HashColIdx   int // meaningful only when DispatchKind == DispatchHash
}
