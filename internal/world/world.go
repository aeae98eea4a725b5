package world

import (
	"encoding/json"
	"sort"
)

// Racer is one simulated kart reduced to the values the lockstep loop
// integrates: a scalar track position and velocity.
type Racer struct {
	Pos float64 `json:"pos"`
	Vel float64 `json:"vel"`
}

// World is a deliberately small deterministic simulation. It exists so the
// server binary has real state flowing through the rollback queue; the
// rewind layer itself treats its snapshots as opaque bytes.
type World struct {
	racers map[string]*Racer
	order  []string
}

func New() *World {
	return &World{racers: make(map[string]*Racer)}
}

// AddRacer registers a racer. Iteration order is fixed by insertion so
// stepping stays deterministic across clients.
func (w *World) AddRacer(id string, vel float64) {
	if id == "" {
		return
	}
	if _, exists := w.racers[id]; exists {
		w.racers[id].Vel = vel
		return
	}
	w.racers[id] = &Racer{Vel: vel}
	w.order = append(w.order, id)
}

// Racer reads a copy of the racer's values.
func (w *World) Racer(id string) (Racer, bool) {
	r, ok := w.racers[id]
	if !ok {
		return Racer{}, false
	}
	return *r, true
}

// Step advances every racer by one tick.
func (w *World) Step(tick int64) {
	for _, id := range w.order {
		r := w.racers[id]
		r.Pos += r.Vel
	}
}

type snapshot struct {
	Racers map[string]Racer `json:"racers"`
}

// Save encodes the full world state. Implements the state capability
// consumed by the rollback queue.
func (w *World) Save() []byte {
	snap := snapshot{Racers: make(map[string]Racer, len(w.racers))}
	for id, r := range w.racers {
		snap.Racers[id] = *r
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil
	}
	return data
}

// Restore replaces the world state with a previously saved snapshot.
func (w *World) Restore(payload []byte) {
	var snap snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return
	}
	w.racers = make(map[string]*Racer, len(snap.Racers))
	w.order = w.order[:0]
	ids := make([]string, 0, len(snap.Racers))
	for id := range snap.Racers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		r := snap.Racers[id]
		w.racers[id] = &r
		w.order = append(w.order, id)
	}
}

// Undo is a no-op for snapshots: they carry no incremental effect to
// revert, the rollback's restore step applies an older snapshot instead.
func (w *World) Undo(payload []byte) {}

// SteerPayload is the wire shape of a steering adjustment event.
type SteerPayload struct {
	Racer string  `json:"racer"`
	Delta float64 `json:"delta"`
}

// Steering is the event capability adjusting a racer's velocity.
type Steering struct {
	world *World
}

func NewSteering(w *World) Steering {
	return Steering{world: w}
}

// Apply shifts the racer's velocity by the payload delta.
func (s Steering) Apply(payload []byte) {
	var p SteerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	if r, ok := s.world.racers[p.Racer]; ok {
		r.Vel += p.Delta
	}
}

// Undo reverts a previously applied steering adjustment.
func (s Steering) Undo(payload []byte) {
	var p SteerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	if r, ok := s.world.racers[p.Racer]; ok {
		r.Vel -= p.Delta
	}
}
