package rewind

import "sync"

// inbox stages records arriving from the network goroutine until the next
// merge pass. No ordering holds here; records are normalized into the
// timeline's global order only when merged. Producers append under the
// mutex, the merge pass is the sole remover.
type inbox struct {
	mu      sync.Mutex
	records []*Record
}

func newInbox() inbox {
	return inbox{records: make([]*Record, 0)}
}

// push appends a record under lock. Safe to call from the network
// goroutine at any time. Ownership of the payload transfers on push; the
// inbox never rejects.
func (in *inbox) push(rec *Record) int {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.records = append(in.records, rec)
	return len(in.records)
}

// len reports the number of staged records.
func (in *inbox) len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.records)
}

// reset releases every staged record under lock.
func (in *inbox) reset() {
	in.mu.Lock()
	defer in.mu.Unlock()
	for _, rec := range in.records {
		rec.release()
	}
	in.records = in.records[:0]
}
