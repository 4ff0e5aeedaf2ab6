// Package manager implements the fragment/actor manager: actor-info
// directory, channel pool, fragment construction, barrier injection, and
// teardown. Each piece of shared mutable state (the directory, the
// channel pool) is a plain map behind its own sync.Mutex, held only for
// lookup/insert/remove and never across a channel send.
package manager

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/streamdb/flowcore/pkg/streaming/dispatch"
	"github.com/streamdb/flowcore/pkg/streaming/errs"
)

// ActorID identifies one actor (a fragment, or a sub-fragment pinned to
// one worker) in the cluster-wide directory.
type ActorID uint32

// ActorInfo is the address a remote worker needs to locate an actor's
// exchange endpoint.
type ActorInfo struct {
	ID      ActorID
	Address string
}

// actorDirectory is the process-wide id -> address map.
type actorDirectory struct {
	mu    sync.Mutex
	infos map[ActorID]ActorInfo
}

func newActorDirectory() *actorDirectory {
	return &actorDirectory{infos: make(map[ActorID]ActorInfo)}
}

// update installs every entry in table, failing the whole call on the
// first duplicate id it finds so a partial install never happens.
func (d *actorDirectory) update(table []ActorInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, info := range table {
		if _, exists := d.infos[info.ID]; exists {
			return errs.New(errs.DuplicateActor, "manager: actor %d already registered", info.ID)
		}
	}
	for _, info := range table {
		d.infos[info.ID] = info
	}
	return nil
}

func (d *actorDirectory) lookup(id ActorID) (ActorInfo, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	info, ok := d.infos[id]
	return info, ok
}

func (d *actorDirectory) remove(id ActorID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.infos, id)
}

// edge identifies a directed actor-to-actor edge in the channel pool.
type edge struct {
	up, down ActorID
}

// channelPool is the process-wide registry of pre-created, not-yet-claimed
// channels: update_fragment populates it, and build_fragment claims each
// edge's channel once for its sender side and once for its receiver side.
// claim does not remove an entry; drop does.
type channelPool struct {
	mu   sync.Mutex
	ch   map[edge]*dispatch.Channel
	log  *logrus.Entry
	caps int
}

func newChannelPool(capacity int, log *logrus.Entry) *channelPool {
	return &channelPool{ch: make(map[edge]*dispatch.Channel), log: log, caps: capacity}
}

// ensure pre-creates a channel for (up, down) if one does not already
// exist, so a later claim always finds it.
func (p *channelPool) ensure(up, down ActorID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := edge{up, down}
	if _, ok := p.ch[e]; !ok {
		p.ch[e] = dispatch.NewChannel(p.caps)
	}
}

// claim returns the channel for (up, down), or ChannelMissing if
// update_fragment never pre-created it.
func (p *channelPool) claim(up, down ActorID) (*dispatch.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := edge{up, down}
	c, ok := p.ch[e]
	if !ok {
		return nil, errs.New(errs.ChannelMissing, "manager: no pre-created channel for edge %d->%d", up, down)
	}
	return c, nil
}

// drop removes every pool entry touching id, as either endpoint.
func (p *channelPool) drop(id ActorID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for e := range p.ch {
		if e.up == id || e.down == id {
			delete(p.ch, e)
		}
	}
}
