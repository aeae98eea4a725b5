package sim

import (
	"sync/atomic"
	"time"

	"ghost-lap/server/internal/rewind"
	"ghost-lap/server/logging"
)

// Synchronizer reconciles the session against authoritative network data
// once per tick. Implemented by rewind.Manager.
type Synchronizer interface {
	Sync(currentTick int64) (rewind.SyncResult, error)
	ConsumeResyncHint(currentTick int64) (rewind.DesyncSignal, bool)
}

// Snapshotter records a local state snapshot into the rollback history.
// Called on the keyframe cadence so clients always hold a recent base state
// to rewind to.
type Snapshotter interface {
	RecordKeyframe(tick int64)
}

// LoopConfig tunes the fixed-timestep tick loop.
type LoopConfig struct {
	TickRate         int
	CatchupMaxTicks  int
	KeyframeInterval int
}

// LoopTickContext carries per-tick timing into Advance.
type LoopTickContext struct {
	Tick  int64
	Now   time.Time
	Delta float64
}

// LoopStepResult reports the outcome of one tick.
type LoopStepResult struct {
	Tick         int64
	Now          time.Time
	Delta        float64
	Sync         rewind.SyncResult
	SyncErr      error
	Resync       rewind.DesyncSignal
	ResyncNeeded bool
	Duration     time.Duration
	Budget       time.Duration
	ClampedDelta bool
}

// LoopHooks let the embedding application observe and steer the loop.
type LoopHooks struct {
	NextTick  func() int64
	AfterStep func(LoopStepResult)
}

// Loop runs the simulation goroutine: one synchronization pass, one
// simulation step and an optional keyframe per fixed-rate tick. Everything
// the loop calls runs single-threaded; the network goroutine only meets it
// at the rewind queue's inbox.
type Loop struct {
	sync     Synchronizer
	stepper  rewind.Stepper
	snapshot Snapshotter
	config   LoopConfig
	deps     Deps
	hooks    LoopHooks

	tick atomic.Int64
}

// NewLoop wires the synchronizer and stepper into a fixed-timestep runner.
func NewLoop(sync Synchronizer, stepper rewind.Stepper, snapshot Snapshotter, cfg LoopConfig, deps Deps) *Loop {
	return &Loop{
		sync:     sync,
		stepper:  stepper,
		snapshot: snapshot,
		config:   cfg,
		deps:     deps,
	}
}

// Tick reports the most recently advanced tick. Safe to read from other
// goroutines for diagnostics.
func (l *Loop) Tick() int64 {
	if l == nil {
		return 0
	}
	return l.tick.Load()
}

// Advance executes a single tick: reconcile, step, snapshot on cadence.
func (l *Loop) Advance(ctx LoopTickContext) LoopStepResult {
	if l == nil {
		return LoopStepResult{}
	}
	l.tick.Store(ctx.Tick)
	result := LoopStepResult{Tick: ctx.Tick, Now: ctx.Now, Delta: ctx.Delta}

	if l.sync != nil {
		result.Sync, result.SyncErr = l.sync.Sync(ctx.Tick)
		if result.SyncErr != nil && l.deps.Logger != nil {
			l.deps.Logger.Printf("[sim] sync failed at tick %d: %v", ctx.Tick, result.SyncErr)
		}
		if signal, ok := l.sync.ConsumeResyncHint(ctx.Tick); ok {
			result.Resync = signal
			result.ResyncNeeded = true
		}
	}

	if l.stepper != nil {
		l.stepper.Step(ctx.Tick)
	}

	if l.snapshot != nil && l.config.KeyframeInterval > 0 && ctx.Tick%int64(l.config.KeyframeInterval) == 0 {
		l.snapshot.RecordKeyframe(ctx.Tick)
	}

	return result
}

// Run drives the fixed-timestep loop until the stop channel closes.
func (l *Loop) Run(stop <-chan struct{}) {
	if l == nil {
		return
	}
	tickRate := l.config.TickRate
	if tickRate <= 0 {
		tickRate = 15
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	clock := l.deps.Clock
	if clock == nil {
		clock = logging.SystemClock{}
	}
	last := clock.Now()
	budgetSeconds := 1.0 / float64(tickRate)
	maxDt := budgetSeconds
	if l.config.CatchupMaxTicks > 1 {
		maxDt = budgetSeconds * float64(l.config.CatchupMaxTicks)
	}
	budgetDuration := time.Second / time.Duration(tickRate)

	hooks := l.hooks
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := clock.Now()
			dt := now.Sub(last).Seconds()
			clamped := false
			if dt <= 0 {
				dt = budgetSeconds
			} else if dt > maxDt {
				dt = maxDt
				clamped = true
			}
			last = now

			var tick int64
			if hooks.NextTick != nil {
				tick = hooks.NextTick()
			} else {
				tick = l.tick.Load() + 1
			}

			start := clock.Now()
			result := l.Advance(LoopTickContext{Tick: tick, Now: now, Delta: dt})
			result.Duration = clock.Now().Sub(start)
			result.Budget = budgetDuration
			result.ClampedDelta = clamped

			if hooks.AfterStep != nil {
				hooks.AfterStep(result)
			}
		}
	}
}

// SetHooks installs the loop hooks. Must be called before Run.
func (l *Loop) SetHooks(hooks LoopHooks) {
	if l == nil {
		return
	}
	l.hooks = hooks
}
