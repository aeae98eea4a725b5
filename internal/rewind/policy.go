package rewind

import "fmt"

type desyncReason struct {
	Kind string
	Tick int64
}

// DesyncSignal summarises the evidence behind a latched resync request.
type DesyncSignal struct {
	Failures    uint64
	TotalMerges uint64
	Reasons     []desyncReason
}

// desyncPolicy decides when accumulated rollback failures and server-side
// clamps mean the session has drifted too far for incremental repair and a
// full resync is cheaper. Counters halve on overflow so old sessions do not
// saturate.
type desyncPolicy struct {
	totalMerges uint64
	failures    uint64
	pending     bool
	reasons     []desyncReason
}

const failureThresholdPerThousand = 5
const desyncReasonLimit = 8

func newDesyncPolicy() *desyncPolicy {
	return &desyncPolicy{reasons: make([]desyncReason, 0, desyncReasonLimit)}
}

func (p *desyncPolicy) noteMerge() {
	if p == nil {
		return
	}
	if p.totalMerges == ^uint64(0) {
		p.totalMerges = p.totalMerges / 2
		p.failures = p.failures / 2
	}
	p.totalMerges++
}

func (p *desyncPolicy) noteFailure(kind string, tick int64) {
	if p == nil {
		return
	}
	p.failures++
	if len(p.reasons) < desyncReasonLimit {
		p.reasons = append(p.reasons, desyncReason{Kind: kind, Tick: tick})
	}
	p.evaluate()
}

func (p *desyncPolicy) evaluate() {
	if p == nil || p.pending || p.failures == 0 {
		return
	}
	total := p.totalMerges
	if total == 0 {
		total = 1
	}
	if p.failures*1000 >= total*failureThresholdPerThousand {
		p.pending = true
	}
}

func (p *desyncPolicy) consume() (DesyncSignal, bool) {
	if p == nil || !p.pending {
		return DesyncSignal{}, false
	}
	signal := DesyncSignal{
		Failures:    p.failures,
		TotalMerges: p.totalMerges,
		Reasons:     append([]desyncReason(nil), p.reasons...),
	}
	p.pending = false
	p.totalMerges = 0
	p.failures = 0
	if len(p.reasons) > 0 {
		p.reasons = p.reasons[:0]
	}
	return signal, true
}

func (s DesyncSignal) Summary() string {
	if s.Failures == 0 && s.TotalMerges == 0 {
		return ""
	}
	return fmt.Sprintf("failures=%d total_merges=%d reasons=%v", s.Failures, s.TotalMerges, s.Reasons)
}
