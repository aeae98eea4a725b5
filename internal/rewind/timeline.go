package rewind

// endSentinel marks a cursor with nothing left to consume. It is distinct
// from "pointing at the last record" so the consumer can tell a fully
// drained timeline apart from one with pending work.
const endSentinel = -1

// timeline is the strictly ordered history: records sorted by
// (tick ascending, state-before-event at equal tick) plus the consumer's
// cursor. It has no locking because only the simulation goroutine touches
// it; concurrent producers stop at the inbox.
type timeline struct {
	records []*Record
	cursor  int
}

func newTimeline() timeline {
	return timeline{records: make([]*Record, 0), cursor: endSentinel}
}

// insert places rec at the rightmost position that keeps the sequence
// sorted. The scan runs backward from the tail: new records are almost
// always near "now", so the common case is O(1) and only records merged
// into the past pay a linear cost.
func (t *timeline) insert(rec *Record) {
	i := len(t.records)
	for i > 0 && !t.records[i-1].precedes(rec) {
		i--
	}

	t.records = append(t.records, nil)
	copy(t.records[i+1:], t.records[i:])
	t.records[i] = rec

	if t.cursor == endSentinel {
		// The consumer had fully caught up; the new record becomes the
		// next item to consume. Skipping this strands the cursor forever.
		t.cursor = i
	} else if i <= t.cursor {
		// Keep the cursor on the record it already pointed at.
		t.cursor++
	}
}

// current returns the record at the cursor, or nil at the end sentinel.
func (t *timeline) current() *Record {
	if t.cursor == endSentinel {
		return nil
	}
	return t.records[t.cursor]
}

// advance moves the cursor one record forward, collapsing to the end
// sentinel past the last record.
func (t *timeline) advance() {
	if t.cursor == endSentinel {
		return
	}
	t.cursor++
	if t.cursor >= len(t.records) {
		t.cursor = endSentinel
	}
}

// stepBack moves the cursor one record backward. From the end sentinel it
// lands on the last record. It reports false at the front of the history.
func (t *timeline) stepBack() bool {
	if t.cursor == endSentinel {
		if len(t.records) == 0 {
			return false
		}
		t.cursor = len(t.records) - 1
		return true
	}
	if t.cursor == 0 {
		return false
	}
	t.cursor--
	return true
}

// atStart reports whether the cursor sits on the first record.
func (t *timeline) atStart() bool {
	return t.cursor == 0
}

// hasPending reports whether any record remains unconsumed.
func (t *timeline) hasPending() bool {
	return t.cursor != endSentinel
}

func (t *timeline) len() int {
	return len(t.records)
}

// reset releases every record and restores the end sentinel.
func (t *timeline) reset() {
	for _, rec := range t.records {
		rec.release()
	}
	t.records = t.records[:0]
	t.cursor = endSentinel
}
