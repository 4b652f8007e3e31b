package ptnet

import (
	"context"
	"fmt"
	"sync"
)

// Record is one committed state. Seq 0 is the genesis record holding the
// initial state with an empty Transition.
type Record struct {
	Seq        int64       `json:"seq"`
	Transition string      `json:"transition,omitempty"`
	State      StateVector `json:"state"`
}

func (r Record) Clone() Record {
	r.State = r.State.Clone()
	return r
}

func (r Record) String() string {
	if r.Transition == "" {
		return fmt.Sprintf("#%d %v", r.Seq, r.State)
	}
	return fmt.Sprintf("#%d %s %v", r.Seq, r.Transition, r.State)
}

// History is the append-only record of one machine's committed states.
type History interface {
	// Append stores rec. It fails with a *SequenceError unless rec.Seq is
	// exactly one more than the last stored seq (0 for an empty history).
	Append(ctx context.Context, rec Record) error
	// All returns every record in seq order.
	All(ctx context.Context) ([]Record, error)
	// Latest returns the last record, or false if the history is empty.
	Latest(ctx context.Context) (Record, bool, error)
	// Get returns the record with the given seq, or false if there is none.
	Get(ctx context.Context, seq int64) (Record, bool, error)
}

// CheckNext returns a *SequenceError unless next directly follows last.
// Implementations of History use it to enforce gapless appends.
func CheckNext(last int64, found bool, next int64) error {
	want := int64(0)
	if found {
		want = last + 1
	}
	if next != want {
		return &SequenceError{Want: want, Got: next}
	}
	return nil
}

// MemoryHistory keeps records in process memory.
type MemoryHistory struct {
	records []Record
	mu      sync.RWMutex
}

var _ History = (*MemoryHistory)(nil)

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{records: make([]Record, 0)}
}

func (h *MemoryHistory) Append(_ context.Context, rec Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var last int64
	if n := len(h.records); n > 0 {
		last = h.records[n-1].Seq
	}
	if err := CheckNext(last, len(h.records) > 0, rec.Seq); err != nil {
		return err
	}
	h.records = append(h.records, rec.Clone())
	return nil
}

func (h *MemoryHistory) All(_ context.Context) ([]Record, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Record, len(h.records))
	for i, r := range h.records {
		out[i] = r.Clone()
	}
	return out, nil
}

func (h *MemoryHistory) Latest(_ context.Context) (Record, bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.records) == 0 {
		return Record{}, false, nil
	}
	return h.records[len(h.records)-1].Clone(), true, nil
}

func (h *MemoryHistory) Get(_ context.Context, seq int64) (Record, bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	// records are gapless from 0, so seq is also the index
	if seq < 0 || seq >= int64(len(h.records)) {
		return Record{}, false, nil
	}
	return h.records[seq].Clone(), true, nil
}
