package ptnet

import (
	"errors"
	"fmt"
)

var (
	// ErrShape is matched by every ShapeError.
	ErrShape = errors.New("malformed net")
	// ErrUnknownTransition is matched by every UnknownTransitionError.
	ErrUnknownTransition = errors.New("unknown transition")
	// ErrNegativeState is matched by every NegativeStateError.
	ErrNegativeState = errors.New("negative state")
	// ErrSequence is matched by every SequenceError.
	ErrSequence = errors.New("sequence out of order")
	// ErrCorruptHistory is matched by every CorruptHistoryError.
	ErrCorruptHistory = errors.New("corrupt history")
)

// ShapeError reports a malformed net definition. Place is -1 when the
// problem is not tied to a single place.
type ShapeError struct {
	Transition string
	Place      int
	Reason     string
}

func (e *ShapeError) Error() string {
	switch {
	case e.Transition != "":
		return fmt.Sprintf("%s: transition %q: %s", ErrShape, e.Transition, e.Reason)
	case e.Place >= 0:
		return fmt.Sprintf("%s: place %d: %s", ErrShape, e.Place, e.Reason)
	default:
		return fmt.Sprintf("%s: %s", ErrShape, e.Reason)
	}
}

func (e *ShapeError) Is(target error) bool { return target == ErrShape }

// UnknownTransitionError is returned when a name is not defined on the net.
type UnknownTransitionError struct {
	Transition string
}

func (e *UnknownTransitionError) Error() string {
	return fmt.Sprintf("%s %q", ErrUnknownTransition, e.Transition)
}

func (e *UnknownTransitionError) Is(target error) bool { return target == ErrUnknownTransition }

// NegativeStateError is the business-rule rejection: firing Transition would
// have left Place holding Value tokens.
type NegativeStateError struct {
	Transition string
	Place      int
	Value      int
}

func (e *NegativeStateError) Error() string {
	return fmt.Sprintf("%s: firing %q leaves place %d at %d", ErrNegativeState, e.Transition, e.Place, e.Value)
}

func (e *NegativeStateError) Is(target error) bool { return target == ErrNegativeState }

// SequenceError is returned by History.Append when a record does not
// directly follow the last stored one.
type SequenceError struct {
	Want int64
	Got  int64
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("%s: want seq %d, got %d", ErrSequence, e.Want, e.Got)
}

func (e *SequenceError) Is(target error) bool { return target == ErrSequence }

// CorruptHistoryError is returned when stored records cannot be replayed.
type CorruptHistoryError struct {
	Seq    int64
	Reason string
	Err    error
}

func (e *CorruptHistoryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s at seq %d: %s: %v", ErrCorruptHistory, e.Seq, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s at seq %d: %s", ErrCorruptHistory, e.Seq, e.Reason)
}

func (e *CorruptHistoryError) Is(target error) bool { return target == ErrCorruptHistory }

func (e *CorruptHistoryError) Unwrap() error { return e.Err }

// fatal reports whether err leaves a machine unusable.
func fatal(err error) bool {
	return errors.Is(err, ErrSequence) || errors.Is(err, ErrCorruptHistory)
}
