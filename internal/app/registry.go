package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/avail-chat/signaling/internal/core"
	"github.com/avail-chat/signaling/internal/domain"
)

type binding struct {
	User   domain.UserID
	Conn   core.SignalConnection
	Cancel context.CancelFunc
}

// Registry tracks live authenticated connections: transport endpoint,
// authenticated user and the cancel func for that connection's pumps.
// Room membership is not recorded here, that belongs to the RoomRegistry.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.ConnectionID]*binding
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[domain.ConnectionID]*binding)}
}

func (r *Registry) Bind(cid domain.ConnectionID, uid domain.UserID, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[cid] = &binding{User: uid, Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("conn", string(cid)).Str("user", string(uid)).Msg("bound connection")
}

// Unbind removes the connection, cancels its pending work and reports
// whether it was present, so disconnect cleanup can run exactly once
// per connection.
func (r *Registry) Unbind(cid domain.ConnectionID) bool {
	r.mu.Lock()
	b, ok := r.conns[cid]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.conns, cid)
	r.mu.Unlock()
	if b.Cancel != nil {
		b.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(cid)).Msg("unbound connection")
	return true
}

func (r *Registry) Conn(cid domain.ConnectionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.conns[cid]; ok {
		return b.Conn, true
	}
	return nil, false
}

func (r *Registry) UserOf(cid domain.ConnectionID) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.conns[cid]; ok {
		return b.User, true
	}
	return "", false
}
