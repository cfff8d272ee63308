// Package names keeps the live id-to-name registry populated from firmware
// name announcement messages. It is safe for concurrent use: the monitor
// writes while analysis and API reads resolve.
package names

import (
	"sync"

	"github.com/danmuck/reactorctl/internal/protocol/textproto"
)

// Registry maps entity, signal, and state ids to announced names. The zero
// value is not usable; call NewRegistry.
type Registry struct {
	mu       sync.RWMutex
	entities map[uint16]string
	signals  map[uint16]string
	states   map[uint16]string
}

func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[uint16]string),
		signals:  make(map[uint16]string),
		states:   make(map[uint16]string),
	}
}

// Apply records the name carried by m, if it is a name announcement. Other
// message kinds are ignored and reported false. Re-announcement overwrites;
// the firmware re-sends names on reconnect.
func (r *Registry) Apply(m textproto.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch msg := m.(type) {
	case textproto.EntityName:
		r.entities[msg.EntityID] = msg.Name
	case textproto.SignalName:
		r.signals[msg.SignalID] = msg.Name
	case textproto.StateName:
		r.states[msg.StateID] = msg.Name
	default:
		return false
	}
	return true
}

// SetEntity registers an entity name directly, for names loaded from a file
// rather than announced on the wire.
func (r *Registry) SetEntity(id uint16, name string) {
	r.mu.Lock()
	r.entities[id] = name
	r.mu.Unlock()
}

func (r *Registry) SetSignal(id uint16, name string) {
	r.mu.Lock()
	r.signals[id] = name
	r.mu.Unlock()
}

func (r *Registry) SetState(id uint16, name string) {
	r.mu.Lock()
	r.states[id] = name
	r.mu.Unlock()
}

func (r *Registry) ResolveEntity(id uint16) (string, bool) {
	r.mu.RLock()
	name, ok := r.entities[id]
	r.mu.RUnlock()
	return name, ok
}

func (r *Registry) ResolveSignal(id uint16) (string, bool) {
	r.mu.RLock()
	name, ok := r.signals[id]
	r.mu.RUnlock()
	return name, ok
}

func (r *Registry) ResolveState(id uint16) (string, bool) {
	r.mu.RLock()
	name, ok := r.states[id]
	r.mu.RUnlock()
	return name, ok
}

// Entities returns a copy of the known entity names.
func (r *Registry) Entities() map[uint16]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[uint16]string, len(r.entities))
	for id, name := range r.entities {
		out[id] = name
	}
	return out
}

// Signals returns a copy of the known signal names.
func (r *Registry) Signals() map[uint16]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[uint16]string, len(r.signals))
	for id, name := range r.signals {
		out[id] = name
	}
	return out
}
