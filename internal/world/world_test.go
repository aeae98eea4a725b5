package world

import (
	"encoding/json"
	"math"
	"testing"
)

func TestWorldStepIntegratesVelocity(t *testing.T) {
	w := New()
	w.AddRacer("home", 2)
	w.AddRacer("rival", 3)

	w.Step(0)
	w.Step(1)

	home, ok := w.Racer("home")
	if !ok {
		t.Fatalf("expected racer home to exist")
	}
	if home.Pos != 4 {
		t.Fatalf("expected home at position 4, got %v", home.Pos)
	}
	rival, _ := w.Racer("rival")
	if rival.Pos != 6 {
		t.Fatalf("expected rival at position 6, got %v", rival.Pos)
	}
}

func TestWorldSaveRestoreRoundTrip(t *testing.T) {
	w := New()
	w.AddRacer("home", 2)
	w.Step(0)
	snap := w.Save()
	if snap == nil {
		t.Fatalf("expected a snapshot")
	}

	w.Step(1)
	w.Step(2)
	w.Restore(snap)

	home, ok := w.Racer("home")
	if !ok {
		t.Fatalf("expected racer home to survive restore")
	}
	if home.Pos != 2 || home.Vel != 2 {
		t.Fatalf("expected restored racer {2 2}, got %+v", home)
	}
}

func TestWorldRestoreIsDeterministicAcrossSteps(t *testing.T) {
	// Two worlds restored from the same snapshot must step identically.
	base := New()
	base.AddRacer("b", 1)
	base.AddRacer("a", 2)
	snap := base.Save()

	first := New()
	first.Restore(snap)
	second := New()
	second.Restore(snap)

	for tick := int64(0); tick < 5; tick++ {
		first.Step(tick)
		second.Step(tick)
	}

	for _, id := range []string{"a", "b"} {
		f, _ := first.Racer(id)
		s, _ := second.Racer(id)
		if math.Abs(f.Pos-s.Pos) > 1e-12 {
			t.Fatalf("expected %s to diverge nowhere, got %v vs %v", id, f.Pos, s.Pos)
		}
	}
}

func TestSteeringApplyUndoIsSymmetric(t *testing.T) {
	w := New()
	w.AddRacer("home", 2)
	steer := NewSteering(w)
	payload, err := json.Marshal(SteerPayload{Racer: "home", Delta: 1.5})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	steer.Apply(payload)
	home, _ := w.Racer("home")
	if home.Vel != 3.5 {
		t.Fatalf("expected velocity 3.5 after steer, got %v", home.Vel)
	}

	steer.Undo(payload)
	home, _ = w.Racer("home")
	if home.Vel != 2 {
		t.Fatalf("expected velocity 2 after undo, got %v", home.Vel)
	}
}

func TestSteeringIgnoresUnknownRacerAndBadPayload(t *testing.T) {
	w := New()
	w.AddRacer("home", 2)
	steer := NewSteering(w)

	payload, _ := json.Marshal(SteerPayload{Racer: "ghost", Delta: 9})
	steer.Apply(payload)
	steer.Apply([]byte("{"))

	home, _ := w.Racer("home")
	if home.Vel != 2 {
		t.Fatalf("expected home untouched, got %+v", home)
	}
}
