package netcode

import (
	"context"

	"ghost-lap/server/logging"
)

const (
	// EventStaleClamp is emitted when the server clamps a late record to the current tick.
	EventStaleClamp logging.EventType = "netcode.stale_clamp"
	// EventRollbackDetected is emitted when a merge pass flags an overdue record.
	EventRollbackDetected logging.EventType = "netcode.rollback_detected"
	// EventRollbackCompleted is emitted after undo, restore and replay rejoin the present tick.
	EventRollbackCompleted logging.EventType = "netcode.rollback_completed"
	// EventRollbackFailed is emitted when no confirmed state exists for a rollback target.
	EventRollbackFailed logging.EventType = "netcode.rollback_failed"
	// EventResyncRequested is emitted when the desync policy latches a full-resync signal.
	EventResyncRequested logging.EventType = "netcode.resync_requested"
)

// StaleClampPayload captures the tick adjustment applied to a late record.
type StaleClampPayload struct {
	ReceivedTick int64 `json:"receivedTick"`
	ClampedTick  int64 `json:"clampedTick"`
}

// RollbackPayload captures the ticks involved in a rollback pass.
type RollbackPayload struct {
	TargetTick    int64 `json:"targetTick"`
	ConfirmedTick int64 `json:"confirmedTick,omitempty"`
	ReplayedTicks int   `json:"replayedTicks,omitempty"`
}

// ResyncPayload captures the accumulated desync evidence.
type ResyncPayload struct {
	Failures    uint64 `json:"failures"`
	TotalMerges uint64 `json:"totalMerges"`
}

// StaleClamp publishes a warning when a server-role merge clamps a late record.
func StaleClamp(ctx context.Context, pub logging.Publisher, tick int64, payload StaleClampPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventStaleClamp,
		Tick:     tick,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetcode,
		Payload:  payload,
	})
}

// RollbackDetected publishes an info event when merge flags an overdue record.
func RollbackDetected(ctx context.Context, pub logging.Publisher, tick int64, payload RollbackPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRollbackDetected,
		Tick:     tick,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetcode,
		Payload:  payload,
	})
}

// RollbackCompleted publishes an info event after a rollback rejoined the present.
func RollbackCompleted(ctx context.Context, pub logging.Publisher, tick int64, payload RollbackPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRollbackCompleted,
		Tick:     tick,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetcode,
		Payload:  payload,
	})
}

// RollbackFailed publishes an error event when history holds no confirmed base state.
func RollbackFailed(ctx context.Context, pub logging.Publisher, tick int64, payload RollbackPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRollbackFailed,
		Tick:     tick,
		Severity: logging.SeverityError,
		Category: logging.CategoryNetcode,
		Payload:  payload,
	})
}

// ResyncRequested publishes a warning when the desync policy demands a full resync.
func ResyncRequested(ctx context.Context, pub logging.Publisher, tick int64, payload ResyncPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventResyncRequested,
		Tick:     tick,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetcode,
		Payload:  payload,
	})
}
