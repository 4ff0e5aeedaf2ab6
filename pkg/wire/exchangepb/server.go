package exchangepb

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/streamdb/flowcore/pkg/streaming/dispatch"
	"github.com/streamdb/flowcore/pkg/streaming/errs"
	"github.com/streamdb/flowcore/pkg/streaming/row"
)

type edgeKey struct{ up, down uint32 }

// Registry is the upstream-side bookkeeping for every remote edge this
// worker process hosts the producing end of: a RemoteOutbound channel
// plus the schema needed to log/validate it, keyed by (up, down).
// Server.Pull looks an entry up, subscribes, and streams until the client
// disconnects.
type Registry struct {
	mu      sync.Mutex
	edges   map[edgeKey]*dispatch.RemoteOutbound
	schemas map[edgeKey]row.Schema
}

func NewRegistry() *Registry {
	return &Registry{
		edges:   make(map[edgeKey]*dispatch.RemoteOutbound),
		schemas: make(map[edgeKey]row.Schema),
	}
}

// Register installs the outbound channel a fragment's dispatcher writes
// into for the (up, down) edge, so a remote Pull for that edge has
// something to drain.
func (r *Registry) Register(up, down uint32, schema row.Schema, out *dispatch.RemoteOutbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := edgeKey{up, down}
	r.edges[k] = out
	r.schemas[k] = schema
}

// Unregister removes an edge, e.g. when its fragment is dropped.
func (r *Registry) Unregister(up, down uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := edgeKey{up, down}
	delete(r.edges, k)
	delete(r.schemas, k)
}

func (r *Registry) lookup(up, down uint32) (*dispatch.RemoteOutbound, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out, ok := r.edges[edgeKey{up, down}]
	return out, ok
}

// Server implements ExchangeServer: look up a registry entry, subscribe
// to it, and block on channel reads until the edge closes or the
// stream's context is cancelled (the downstream disconnected).
type Server struct {
	UnimplementedExchangeServer
	reg *Registry
	log *log.Entry
}

func NewServer(reg *Registry) *Server {
	return &Server{reg: reg, log: log.WithField("component", "exchange-server")}
}

func (s *Server) Pull(req *PullRequest, stream Exchange_PullServer) error {
	out, ok := s.reg.lookup(req.UpFragmentID, req.DownFragmentID)
	if !ok {
		return errs.New(errs.ChannelMissing, "exchange: no outbound registered for edge %d->%d", req.UpFragmentID, req.DownFragmentID)
	}
	s.log.Infof("pull started for edge %d->%d", req.UpFragmentID, req.DownFragmentID)
	ctx := stream.Context()
	for {
		msg, err := out.Recv(ctx)
		if err != nil {
			return err
		}
		env, err := EncodeMessage(msg)
		if err != nil {
			return err
		}
		if err := stream.Send(env); err != nil {
			return err
		}
	}
}
