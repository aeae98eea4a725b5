package rewind

import (
	"context"

	"ghost-lap/server/logging/netcode"
)

// Stepper advances the external simulation by one tick during replay. The
// manager never owns physics; it only re-drives the stepping loop between
// the restored state and the present.
type Stepper interface {
	Step(tick int64)
}

// StepperFunc adapts functions into the Stepper interface.
type StepperFunc func(tick int64)

func (f StepperFunc) Step(tick int64) {
	if f == nil {
		return
	}
	f(tick)
}

const (
	metricRollbackTotal = "rewind_rollback_total"
	metricRollbackDepth = "rewind_rollback_depth"

	failureNoConfirmedState = "no_confirmed_state"
)

// SyncResult reports what a per-tick synchronization pass did.
type SyncResult struct {
	RolledBack    bool
	ConfirmedTick int64
	ReplayedTicks int
}

// Manager pairs the queue with the stepping loop and runs the full
// reconciliation on top of the cursor protocol: merge, undo to a confirmed
// state, restore it, then re-step the simulation tick by tick while
// replaying the recorded events until it rejoins the present.
type Manager struct {
	queue   *Queue
	stepper Stepper
	policy  *desyncPolicy
	deps    Deps
}

// NewManager wires a queue and a stepper into a per-tick synchronizer.
func NewManager(queue *Queue, stepper Stepper, deps Deps) *Manager {
	return &Manager{
		queue:   queue,
		stepper: stepper,
		policy:  newDesyncPolicy(),
		deps:    deps,
	}
}

// Queue exposes the underlying rollback buffer.
func (m *Manager) Queue() *Queue {
	return m.queue
}

// Sync runs one per-tick synchronization pass on the simulation goroutine.
// It merges due network records and, if the merge demands it, rolls the
// session back and replays forward to currentTick. On ErrNoConfirmedState
// the session state is unspecified; the caller should consult
// ConsumeResyncHint and force a full resync or abort.
func (m *Manager) Sync(currentTick int64) (SyncResult, error) {
	m.policy.noteMerge()

	needsRollback, targetTick := m.queue.Merge(currentTick)
	if !needsRollback {
		return SyncResult{}, nil
	}

	confirmedTick, err := m.queue.UndoUntil(targetTick)
	if err != nil {
		m.policy.noteFailure(failureNoConfirmedState, targetTick)
		return SyncResult{}, err
	}

	if !m.queue.RestoreCursorState() {
		// UndoUntil left the cursor on the confirmed state; anything else
		// means the cursor protocol was violated.
		m.logf("[rewind] cursor not on a state record after undo to %d", confirmedTick)
	}

	replayed := 0
	for tick := confirmedTick; tick < currentTick; tick++ {
		m.queue.ReplayUntil(tick)
		if m.stepper != nil {
			m.stepper.Step(tick)
		}
		replayed++
	}
	m.queue.ReplayUntil(currentTick)

	if m.deps.Metrics != nil {
		m.deps.Metrics.Add(metricRollbackTotal, 1)
		m.deps.Metrics.Store(metricRollbackDepth, uint64(currentTick-confirmedTick))
	}
	netcode.RollbackCompleted(context.Background(), m.deps.Publisher, currentTick, netcode.RollbackPayload{
		TargetTick:    targetTick,
		ConfirmedTick: confirmedTick,
		ReplayedTicks: replayed,
	})

	return SyncResult{
		RolledBack:    true,
		ConfirmedTick: confirmedTick,
		ReplayedTicks: replayed,
	}, nil
}

// ConsumeResyncHint reports whether accumulated failures latched a full
// resync request. Counters reset after each consumption so the caller can
// re-evaluate on subsequent ticks.
func (m *Manager) ConsumeResyncHint(currentTick int64) (DesyncSignal, bool) {
	signal, ok := m.policy.consume()
	if !ok {
		return DesyncSignal{}, false
	}
	netcode.ResyncRequested(context.Background(), m.deps.Publisher, currentTick, netcode.ResyncPayload{
		Failures:    signal.Failures,
		TotalMerges: signal.TotalMerges,
	})
	return signal, true
}

func (m *Manager) logf(format string, args ...any) {
	if m.deps.Logger == nil {
		return
	}
	m.deps.Logger.Printf(format, args...)
}
