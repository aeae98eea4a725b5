package rewind

import (
	"errors"
	"sync"
)

var (
	errEmptyCapabilityID = errors.New("rewind: empty capability id")
	errNilCapability     = errors.New("rewind: nil capability")
)

// Registry resolves stable capability ids to the simulation objects behind
// them, so network messages can address states and events without aliasing
// pointers across goroutines. The simulation registers at session start;
// the network goroutine only reads.
type Registry struct {
	mu     sync.RWMutex
	states map[string]StateCapability
	events map[string]EventCapability
}

func NewRegistry() *Registry {
	return &Registry{
		states: make(map[string]StateCapability),
		events: make(map[string]EventCapability),
	}
}

// RegisterState binds a state capability to an id, replacing any previous binding.
func (r *Registry) RegisterState(id string, cap StateCapability) error {
	if id == "" {
		return errEmptyCapabilityID
	}
	if cap == nil {
		return errNilCapability
	}
	r.mu.Lock()
	r.states[id] = cap
	r.mu.Unlock()
	return nil
}

// RegisterEvent binds an event capability to an id, replacing any previous binding.
func (r *Registry) RegisterEvent(id string, cap EventCapability) error {
	if id == "" {
		return errEmptyCapabilityID
	}
	if cap == nil {
		return errNilCapability
	}
	r.mu.Lock()
	r.events[id] = cap
	r.mu.Unlock()
	return nil
}

// State resolves a state capability by id.
func (r *Registry) State(id string) (StateCapability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cap, ok := r.states[id]
	return cap, ok
}

// Event resolves an event capability by id.
func (r *Registry) Event(id string) (EventCapability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cap, ok := r.events[id]
	return cap, ok
}
