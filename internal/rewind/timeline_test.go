package rewind

import "testing"

func checkOrdered(t *testing.T, tl *timeline) {
	t.Helper()
	for i := 1; i < len(tl.records); i++ {
		prev, cur := tl.records[i-1], tl.records[i]
		if prev.tick > cur.tick {
			t.Fatalf("records out of tick order at %d: %d before %d", i, prev.tick, cur.tick)
		}
		if prev.tick == cur.tick && prev.kind == KindEvent && cur.kind == KindState {
			t.Fatalf("event sorted before state at tick %d", cur.tick)
		}
	}
}

func TestTimelineOrderingInvariant(t *testing.T) {
	tl := newTimeline()
	inserts := []struct {
		tick int64
		kind Kind
	}{
		{3, KindEvent},
		{1, KindState},
		{2, KindEvent},
		{1, KindEvent},
		{3, KindState},
		{0, KindState},
		{2, KindState},
	}
	for _, in := range inserts {
		var rec *Record
		if in.kind == KindState {
			rec = newStateRecord(nil, nil, false, in.tick)
		} else {
			rec = newEventRecord(nil, nil, false, in.tick)
		}
		tl.insert(rec)
		checkOrdered(t, &tl)
	}
	if tl.len() != len(inserts) {
		t.Fatalf("expected %d records, got %d", len(inserts), tl.len())
	}
}

func TestTimelineStateSortsBeforeEventAtSameTick(t *testing.T) {
	tl := newTimeline()
	tl.insert(newEventRecord(nil, nil, true, 5))
	tl.insert(newStateRecord(nil, nil, true, 5))

	if tl.records[0].kind != KindState {
		t.Fatalf("expected state first at equal tick, got %s", tl.records[0].kind)
	}
	if tl.records[1].kind != KindEvent {
		t.Fatalf("expected event second at equal tick, got %s", tl.records[1].kind)
	}
}

func TestTimelineCursorRepositionsFromEndSentinel(t *testing.T) {
	// Regression: the cursor was once left stranded at the end sentinel
	// when a record arrived after the consumer had fully caught up.
	tl := newTimeline()
	tl.insert(newEventRecord(nil, nil, true, 1))
	tl.advance()
	if tl.hasPending() {
		t.Fatalf("expected cursor at end sentinel after consuming the only record")
	}

	tl.insert(newEventRecord(nil, nil, true, 2))
	rec := tl.current()
	if rec == nil {
		t.Fatalf("expected cursor to point at the inserted record")
	}
	if rec.tick != 2 {
		t.Fatalf("expected cursor on tick 2, got %d", rec.tick)
	}
}

func TestTimelineCursorStaysOnRecordWhenInsertingBefore(t *testing.T) {
	tl := newTimeline()
	tl.insert(newStateRecord(nil, nil, true, 0))
	tl.insert(newEventRecord(nil, nil, true, 2))
	tl.advance() // consume the state; cursor now on the tick-2 event

	tl.insert(newEventRecord(nil, nil, true, 1))
	rec := tl.current()
	if rec == nil || rec.tick != 2 {
		t.Fatalf("expected cursor to stay on the tick 2 record, got %+v", rec)
	}
}

func TestTimelineResetReleasesRecords(t *testing.T) {
	tl := newTimeline()
	rec := newEventRecord(nil, []byte("payload"), true, 1)
	tl.insert(rec)
	tl.reset()

	if tl.len() != 0 {
		t.Fatalf("expected empty timeline after reset, got %d records", tl.len())
	}
	if tl.hasPending() {
		t.Fatalf("expected cursor at end sentinel after reset")
	}
	if rec.payload != nil {
		t.Fatalf("expected record payload to be released on reset")
	}
}

func TestTimelineStepBackFromSentinelLandsOnLastRecord(t *testing.T) {
	tl := newTimeline()
	tl.insert(newEventRecord(nil, nil, true, 1))
	tl.insert(newEventRecord(nil, nil, true, 2))
	tl.advance()
	tl.advance()

	if !tl.stepBack() {
		t.Fatalf("expected stepBack from the end sentinel to succeed")
	}
	rec := tl.current()
	if rec == nil || rec.tick != 2 {
		t.Fatalf("expected cursor on the last record, got %+v", rec)
	}
}
