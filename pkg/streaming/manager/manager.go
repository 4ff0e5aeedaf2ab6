package manager

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/streamdb/flowcore/pkg/streaming/dispatch"
	"github.com/streamdb/flowcore/pkg/streaming/errs"
	"github.com/streamdb/flowcore/pkg/streaming/message"
	"github.com/streamdb/flowcore/pkg/streaming/metrics"
	"github.com/streamdb/flowcore/pkg/streaming/operator"
)

// actorHandle is everything the manager keeps about one spawned actor
// beyond its directory/channel-pool entries: its abort hook and the
// barrier injectors of every Source node inside its tree, so send_barrier
// can reach it without re-walking the fragment's operator tree.
type actorHandle struct {
	cancel  context.CancelFunc
	sources []operator.BarrierInjector
}

// FragmentManager is the per-process actor runtime: it owns the actor-info
// directory, the channel pool, and every spawned actor's lifecycle. The
// spec and actor maps, the directory and the channel pool each sit behind
// their own mutex, held only for lookup, insert, or remove and never across
// a blocking channel operation.
type FragmentManager struct {
	mu    sync.Mutex
	dir   *actorDirectory
	pool  *channelPool
	specs map[ActorID]FragmentSpec
	actrs map[ActorID]*actorHandle

	eg     *errgroup.Group
	egCtx  context.Context
	log    *logrus.Entry
	chCaps int
}

// NewFragmentManager constructs an empty manager. baseCtx is the parent of
// every actor's context: cancelling it stops the whole runtime, the same
// way a worker process's root context does on shutdown.
func NewFragmentManager(baseCtx context.Context, channelCapacity int) *FragmentManager {
	eg, egCtx := errgroup.WithContext(baseCtx)
	log := logrus.WithField("component", "fragment-manager")
	return &FragmentManager{
		dir:    newActorDirectory(),
		pool:   newChannelPool(channelCapacity, log),
		specs:  make(map[ActorID]FragmentSpec),
		actrs:  make(map[ActorID]*actorHandle),
		eg:     eg,
		egCtx:  egCtx,
		log:    log,
		chCaps: channelCapacity,
	}
}

// UpdateActorInfo installs the id->address directory.
func (m *FragmentManager) UpdateActorInfo(table []ActorInfo) error {
	return m.dir.update(table)
}

// UpdateFragment installs fragment specs and pre-creates a channel for
// every (current, downstream) pair they declare.
func (m *FragmentManager) UpdateFragment(specs []FragmentSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, spec := range specs {
		if _, exists := m.specs[spec.ID]; exists {
			return errs.New(errs.DuplicateFragment, "manager: fragment %d already installed", spec.ID)
		}
	}
	for _, spec := range specs {
		m.specs[spec.ID] = spec
		for _, down := range spec.Downstream {
			m.pool.ensure(spec.ID, down.To)
		}
	}
	return nil
}

// BuildFragment constructs and spawns the actor for every id: recursive
// descent over its operator tree (claiming Merge channels from the pool
// along the way), wraps the root in the dispatcher its spec names
// (claiming that dispatcher's sender channels), and runs it as an
// independent goroutine tracked by the manager's errgroup.
func (m *FragmentManager) BuildFragment(ids []ActorID) error {
	for _, id := range ids {
		if err := m.buildOne(id); err != nil {
			return err
		}
	}
	return nil
}

func (m *FragmentManager) buildOne(id ActorID) error {
	m.mu.Lock()
	spec, ok := m.specs[id]
	m.mu.Unlock()
	if !ok {
		return errs.New(errs.Internal, "manager: no fragment spec installed for %d", id)
	}

	bctx := &buildContext{selfID: id, pool: m.pool}
	root, err := spec.Root.build(bctx)
	if err != nil {
		return err
	}

	outputs := make([]dispatch.Outbound, 0, len(spec.Downstream))
	for _, down := range spec.Downstream {
		ch, err := m.pool.claim(id, down.To)
		if err != nil {
			return err
		}
		outputs = append(outputs, ch)
	}
	disp := buildDispatcher(spec.DispatchKind, spec.HashColIdx, outputs)

	actorCtx, cancel := context.WithCancel(m.egCtx)
	handle := &actorHandle{cancel: cancel, sources: bctx.sources}

	m.mu.Lock()
	m.actrs[id] = handle
	m.mu.Unlock()

	m.eg.Go(func() error {
		return runActor(actorCtx, id, root, disp)
	})
	return nil
}

// buildDispatcher wraps a fragment's root output per its declared
// DispatchKind; DispatchSimple degrades to Broadcast when a
// fragment happens to have more than one declared downstream.
func buildDispatcher(kind DispatchKind, hashCol int, outputs []dispatch.Outbound) dispatch.Dispatcher {
	switch kind {
	case DispatchHash:
		return &dispatch.Hash{Outputs: outputs, ColIdx: hashCol}
	case DispatchBroadcast:
		return &dispatch.Broadcast{Outputs: outputs}
	default:
		if len(outputs) == 1 {
			return &dispatch.Simple{Output: outputs[0]}
		}
		return &dispatch.Broadcast{Outputs: outputs}
	}
}

// runActor is the body of one actor's goroutine: pull the root executor's
// next message, fan it out via the dispatcher, and stop once a Stop
// barrier has been forwarded.
func runActor(ctx context.Context, id ActorID, root operator.Upstream, disp dispatch.Dispatcher) error {
	label := fmt.Sprintf("%d", id)
	for {
		msg, err := root.Next(ctx)
		if err != nil {
			return err
		}
		if err := disp.Dispatch(ctx, msg); err != nil {
			return err
		}
		if msg.Kind == message.KindBarrier {
			metrics.BarriersEmitted.WithLabelValues(label).Inc()
			if msg.Barrier.IsStop() {
				return nil
			}
		}
	}
}

// SendBarrier pushes a data barrier for epoch onto every known source's
// injector.
func (m *FragmentManager) SendBarrier(ctx context.Context, epoch uint64) error {
	return m.sendBarrier(ctx, message.Barrier{Epoch: epoch})
}

// SendStopBarrier pushes a Stop-mutation barrier onto every known source,
// the cooperative shutdown signal every actor forwards before exiting.
func (m *FragmentManager) SendStopBarrier(ctx context.Context, epoch uint64) error {
	return m.sendBarrier(ctx, message.Barrier{Epoch: epoch, Mutation: message.Mutation{Kind: message.MutationStop}})
}

func (m *FragmentManager) sendBarrier(ctx context.Context, b message.Barrier) error {
	m.mu.Lock()
	injectors := make([]operator.BarrierInjector, 0)
	for _, h := range m.actrs {
		injectors = append(injectors, h.sources...)
	}
	m.mu.Unlock()

	for _, inj := range injectors {
		select {
		case inj <- b:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// DropFragment removes id's channel-pool entries and actor-info, and
// aborts its actor task -- best-effort cleanup, since a cooperating actor
// should already have exited after forwarding a Stop barrier.
func (m *FragmentManager) DropFragment(id ActorID) {
	m.mu.Lock()
	h, ok := m.actrs[id]
	delete(m.actrs, id)
	delete(m.specs, id)
	m.mu.Unlock()

	if ok {
		h.cancel()
	}
	m.pool.drop(id)
	m.dir.remove(id)
}

// WaitAll awaits every actor task, returning the first error any of them
// encountered. Call once per manager lifetime: every
// actor reports to the same errgroup, which is single-use by design.
func (m *FragmentManager) WaitAll() error {
	return m.eg.Wait()
}
