package controlpb

import (
	"context"
	"fmt"
	"sync"

	"github.com/streamdb/flowcore/pkg/streaming/keyspace"
	"github.com/streamdb/flowcore/pkg/streaming/manager"
	"github.com/streamdb/flowcore/pkg/streaming/operator"
	"github.com/streamdb/flowcore/pkg/streaming/orderedrow"
	"github.com/streamdb/flowcore/pkg/streaming/parser"
	"github.com/streamdb/flowcore/pkg/streaming/row"
	"github.com/streamdb/flowcore/pkg/streaming/statestore"
)

// Server implements ControlServer against one worker process's
// manager.FragmentManager, translating the restricted wire Plan format
// (see plan.go) into the manager.Node tree build_fragment expects.
type Server struct {
	UnimplementedControlServer

	mgr   *manager.FragmentManager
	store statestore.StateStore

	mu       sync.Mutex
	tableSeq uint32
	nextExec uint32
}

func NewServer(mgr *manager.FragmentManager, store statestore.StateStore) *Server {
	return &Server{mgr: mgr, store: store}
}

func (s *Server) UpdateActorInfo(ctx context.Context, req *UpdateActorInfoRequest) (*Empty, error) {
	table := make([]manager.ActorInfo, len(req.Table))
	for i, a := range req.Table {
		table[i] = manager.ActorInfo{ID: manager.ActorID(a.ID), Address: a.Address}
	}
	if err := s.mgr.UpdateActorInfo(table); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

// SubmitPlan installs and builds every fragment in the plan: each fragment
// gets its own table id (so sibling fragments never alias keyspace) and
// each stateful node within it gets a fresh executor id, both drawn from
// the server's own counters rather than the wire format, since the plan
// author should never need to hand-assign keyspace identities.
func (s *Server) SubmitPlan(ctx context.Context, req *SubmitPlanRequest) (*Empty, error) {
	plan := req.Plan

	if len(plan.ActorInfo) > 0 {
		table := make([]manager.ActorInfo, len(plan.ActorInfo))
		for i, a := range plan.ActorInfo {
			table[i] = manager.ActorInfo{ID: manager.ActorID(a.ID), Address: a.Address}
		}
		if err := s.mgr.UpdateActorInfo(table); err != nil {
			return nil, err
		}
	}

	specs := make([]manager.FragmentSpec, len(plan.Fragments))
	ids := make([]manager.ActorID, len(plan.Fragments))
	for i, fs := range plan.Fragments {
		tableID := s.nextTableID()

		root, err := s.buildNode(&fs.Root, tableID)
		if err != nil {
			return nil, fmt.Errorf("fragment %d: %w", fs.ID, err)
		}

		downstream := make([]manager.DownstreamEdge, len(fs.Downstream))
		for j, to := range fs.Downstream {
			downstream[j] = manager.DownstreamEdge{To: manager.ActorID(to)}
		}

		kind, err := dispatchKindFromString(fs.DispatchKind)
		if err != nil {
			return nil, fmt.Errorf("fragment %d: %w", fs.ID, err)
		}

		specs[i] = manager.FragmentSpec{
			ID:           manager.ActorID(fs.ID),
			Root:         root,
			Downstream:   downstream,
			DispatchKind: kind,
			HashColIdx:   fs.HashColIdx,
		}
		ids[i] = manager.ActorID(fs.ID)
	}

	if err := s.mgr.UpdateFragment(specs); err != nil {
		return nil, err
	}
	if err := s.mgr.BuildFragment(ids); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (s *Server) SendBarrier(ctx context.Context, req *SendBarrierRequest) (*Empty, error) {
	if err := s.mgr.SendBarrier(ctx, req.Epoch); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (s *Server) SendStopBarrier(ctx context.Context, req *Empty) (*Empty, error) {
	if err := s.mgr.SendStopBarrier(ctx, 0); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (s *Server) DropFragment(ctx context.Context, req *DropFragmentRequest) (*Empty, error) {
	s.mgr.DropFragment(manager.ActorID(req.ID))
	return &Empty{}, nil
}

func (s *Server) nextTableID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tableSeq++
	return s.tableSeq
}

func (s *Server) nextExecutorID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextExec++
	return s.nextExec
}

// buildNode recursively converts one wire NodeSpec into a manager.Node,
// per the restricted kind set documented in plan.go.
func (s *Server) buildNode(spec *NodeSpec, tableID uint32) (manager.Node, error) {
	schema, err := schemaFromSpec(spec.Schema)
	if err != nil {
		return nil, err
	}

	switch spec.Kind {
	case "source":
		src, err := parser.OpenFileLineSource(spec.SourceFile)
		if err != nil {
			return nil, fmt.Errorf("source node: %w", err)
		}
		feed := parser.NewFeed(src, parser.CSV, schema, 64)
		return &manager.SourceNode{
			Schema:   schema,
			PkIdx:    spec.PkIdx,
			Feed:     feed,
			Barriers: make(operator.BarrierInjector, 4),
		}, nil

	case "merge":
		return &manager.MergeNode{From: manager.ActorID(spec.From)}, nil

	case "topn", "appendonly_topn":
		if spec.Upstream == nil {
			return nil, fmt.Errorf("%s node: missing upstream", spec.Kind)
		}
		up, err := s.buildNode(spec.Upstream, tableID)
		if err != nil {
			return nil, err
		}
		dirs, err := dirsFromSpec(spec.Dirs)
		if err != nil {
			return nil, err
		}
		ks := keyspace.TableRoot(tableID).ExecutorRoot(s.nextExecutorID())
		if spec.Kind == "appendonly_topn" {
			return &manager.AppendOnlyTopNNode{
				Upstream: up, Keyspace: ks, Store: s.store,
				Schema: schema, PkIdx: spec.PkIdx, Dirs: dirs,
				Offset: spec.Offset, Limit: spec.Limit, CacheSize: spec.CacheSize,
			}, nil
		}
		return &manager.TopNNode{
			Upstream: up, Keyspace: ks, Store: s.store,
			Schema: schema, PkIdx: spec.PkIdx, Dirs: dirs,
			Offset: spec.Offset, Limit: spec.Limit, CacheSize: spec.CacheSize,
		}, nil

	case "sink":
		if spec.Upstream == nil {
			return nil, fmt.Errorf("sink node: missing upstream")
		}
		up, err := s.buildNode(spec.Upstream, tableID)
		if err != nil {
			return nil, err
		}
		ks := keyspace.TableRoot(tableID).ExecutorRoot(s.nextExecutorID())
		pkKinds := make([]row.Kind, len(spec.PkIdx))
		for i, idx := range spec.PkIdx {
			pkKinds[i] = schema.Fields[idx].Kind
		}
		return &manager.SinkNode{
			Upstream: up, Keyspace: ks, Store: s.store,
			PkIdx: spec.PkIdx, PkKinds: pkKinds,
		}, nil

	default:
		return nil, fmt.Errorf("node kind %q is not wire-describable (see pkg/wire/controlpb doc)", spec.Kind)
	}
}

func kindFromString(k string) (row.Kind, error) {
	switch k {
	case "int64":
		return row.KindInt64, nil
	case "decimal":
		return row.KindDecimal, nil
	case "string":
		return row.KindString, nil
	case "bool":
		return row.KindBool, nil
	case "timestamp":
		return row.KindTimestamp, nil
	default:
		return 0, fmt.Errorf("unknown field kind %q", k)
	}
}

func schemaFromSpec(fields []FieldSpec) (row.Schema, error) {
	out := row.Schema{Fields: make([]row.Field, len(fields))}
	for i, f := range fields {
		k, err := kindFromString(f.Kind)
		if err != nil {
			return row.Schema{}, err
		}
		out.Fields[i] = row.Field{Name: f.Name, Kind: k}
	}
	return out, nil
}

func dirsFromSpec(dirs []string) ([]orderedrow.Direction, error) {
	out := make([]orderedrow.Direction, len(dirs))
	for i, d := range dirs {
		switch d {
		case "asc", "":
			out[i] = orderedrow.Ascending
		case "desc":
			out[i] = orderedrow.Descending
		default:
			return nil, fmt.Errorf("unknown sort direction %q", d)
		}
	}
	return out, nil
}

func dispatchKindFromString(k string) (manager.DispatchKind, error) {
	switch k {
	case "", "simple":
		return manager.DispatchSimple, nil
	case "broadcast":
		return manager.DispatchBroadcast, nil
	case "hash":
		return manager.DispatchHash, nil
	default:
		return 0, fmt.Errorf("unknown dispatch kind %q", k)
	}
}
