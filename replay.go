package ptnet

import (
	"errors"
	"fmt"
)

// Replay rebuilds the state described by records, which must start with the
// genesis record and be contiguous. Every step is recomputed from the net and
// checked against the state the record claims; any mismatch is reported as a
// *CorruptHistoryError. An empty slice replays to the initial vector with
// last seq -1.
func Replay(net *Net, records []Record) (StateVector, int64, error) {
	if err := net.Validate(); err != nil {
		return nil, -1, err
	}
	state := net.InitialVector()
	last := int64(-1)
	for i, rec := range records {
		if rec.Seq != int64(i) {
			return nil, last, &CorruptHistoryError{
				Seq:    rec.Seq,
				Reason: fmt.Sprintf("expected seq %d", i),
			}
		}
		if i == 0 {
			if rec.Transition != "" {
				return nil, last, &CorruptHistoryError{
					Seq:    rec.Seq,
					Reason: fmt.Sprintf("genesis record names transition %q", rec.Transition),
				}
			}
			if !rec.State.Equal(state) {
				return nil, last, &CorruptHistoryError{
					Seq:    rec.Seq,
					Reason: fmt.Sprintf("genesis state %v differs from initial state %v", rec.State, state),
				}
			}
			last = rec.Seq
			continue
		}
		next, err := step(net, state, rec.Transition)
		if err != nil {
			return nil, last, &CorruptHistoryError{Seq: rec.Seq, Reason: "replaying transition", Err: err}
		}
		if !rec.State.Equal(next) {
			return nil, last, &CorruptHistoryError{
				Seq:    rec.Seq,
				Reason: fmt.Sprintf("stored state %v differs from replayed state %v", rec.State, next),
			}
		}
		state, last = next, rec.Seq
	}
	return state, last, nil
}

// step computes the candidate for firing name from state and rejects it if
// any component would go negative. state is never modified.
func step(net *Net, state StateVector, name string) (StateVector, error) {
	delta, err := net.DeltaFor(name)
	if err != nil {
		return nil, err
	}
	candidate := state.Add(delta)
	if i, neg := candidate.FirstNegative(); neg {
		return nil, &NegativeStateError{Transition: name, Place: i, Value: candidate[i]}
	}
	return candidate, nil
}

// Reason returns a short label for the kind of firing error err is, for use
// in logs and metric labels.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNegativeState):
		return "negative_state"
	case errors.Is(err, ErrUnknownTransition):
		return "unknown_transition"
	case errors.Is(err, ErrSequence):
		return "sequence"
	case errors.Is(err, ErrCorruptHistory):
		return "corrupt_history"
	default:
		return "store"
	}
}
