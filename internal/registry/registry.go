// Package registry owns the canonical set of backend server records.
package registry

import (
	"sync"

	"github.com/ljluestc/balancer/internal/domain"
	"github.com/ljluestc/balancer/internal/event"
	"github.com/ljluestc/balancer/pkg/logger"
)

// Registry is an in-memory server store. List order is insertion order, which
// the round-robin and key-hash strategies rely on being stable.
type Registry struct {
	mu      sync.RWMutex
	servers map[string]*domain.Server
	order   []string
	hub     *event.Hub
	log     *logger.Logger
}

// New creates an empty registry
func New(hub *event.Hub, log *logger.Logger) *Registry {
	return &Registry{
		servers: make(map[string]*domain.Server),
		hub:     hub,
		log:     log.RegistryLogger(),
	}
}

// Add registers a server. It returns false without mutating anything if a
// server with the same ID already exists or the record is invalid.
func (r *Registry) Add(srv *domain.Server) bool {
	if srv == nil || srv.ID == "" {
		return false
	}
	if srv.Weight <= 0 {
		r.log.WithField("server_id", srv.ID).
			WithField("weight", srv.Weight).
			Error("Rejecting server with non-positive weight")
		return false
	}

	r.mu.Lock()
	if _, exists := r.servers[srv.ID]; exists {
		r.mu.Unlock()
		return false
	}
	r.servers[srv.ID] = srv
	r.order = append(r.order, srv.ID)
	r.mu.Unlock()

	r.log.WithField("server_id", srv.ID).
		WithField("address", srv.Address()).
		Info("Server added")
	r.hub.Emit(event.Event{Kind: event.KindServerAdded, ServerID: srv.ID})
	return true
}

// Remove deletes a server by ID. It returns false if the ID is unknown.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	if _, exists := r.servers[id]; !exists {
		r.mu.Unlock()
		return false
	}
	delete(r.servers, id)
	for i, sid := range r.order {
		if sid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.log.WithField("server_id", id).Info("Server removed")
	r.hub.Emit(event.Event{Kind: event.KindServerRemoved, ServerID: id})
	return true
}

// Get returns the server with the given ID
func (r *Registry) Get(id string) (*domain.Server, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	srv, ok := r.servers[id]
	return srv, ok
}

// List returns all servers in insertion order
func (r *Registry) List() []*domain.Server {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Server, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.servers[id])
	}
	return out
}

// ListHealthy returns the healthy subset in insertion order
func (r *Registry) ListHealthy() []*domain.Server {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Server
	for _, id := range r.order {
		if srv := r.servers[id]; srv.IsHealthy() {
			out = append(out, srv)
		}
	}
	return out
}

// Len returns the number of registered servers
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.servers)
}

// Clear drops every server without emitting per-server removal events.
// Used by Destroy.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.servers = make(map[string]*domain.Server)
	r.order = nil
}
