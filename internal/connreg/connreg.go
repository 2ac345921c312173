// Package connreg implements the shared connection registry: every live
// connection the acceptor hands off to the pipeline is recorded here under
// a generated id, so the egress stage can look a connection back up by id
// when a worker's response needs writing, and so a future "list
// connections" admin operation has something to enumerate.
package connreg

import (
	"net"
	"sync"

	"github.com/google/uuid"
)

// ConnID identifies one live connection, independent of the wire protocol's
// own 64-bit entry/user ids.
type ConnID = uuid.UUID

// Registry is a concurrency-safe map of ConnID to net.Conn, guarded by a
// single RWMutex (one registry, one lock, read-mostly access from
// egress, rare writes from acceptor/ingress teardown).
type Registry struct {
	mu    sync.RWMutex
	conns map[ConnID]net.Conn
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{conns: make(map[ConnID]net.Conn)}
}

// Register adds conn under a freshly generated id and returns it.
func (r *Registry) Register(conn net.Conn) ConnID {
	id := uuid.New()
	r.mu.Lock()
	r.conns[id] = conn
	r.mu.Unlock()
	return id
}

// Unregister removes id from the registry. It is a no-op if id is absent.
func (r *Registry) Unregister(id ConnID) {
	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()
}

// Lookup returns the connection registered under id, if any.
func (r *Registry) Lookup(id ConnID) (net.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	return conn, ok
}

// Len reports the number of currently registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Each calls fn for every registered connection. fn must not call back into
// the registry: Each holds the read lock for its duration.
func (r *Registry) Each(fn func(ConnID, net.Conn)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, conn := range r.conns {
		fn(id, conn)
	}
}
