// Package historytest checks that a ptnet.History implementation honors the
// append-only, gapless contract.
package historytest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jt05610/ptnet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a new, empty history for each call.
type Factory func(t *testing.T) ptnet.History

// MachineFactory returns the history of the named machine. Histories of
// different machines may share a store.
type MachineFactory func(t *testing.T, machine string) ptnet.History

func record(seq int64, transition string, state ...int) ptnet.Record {
	return ptnet.Record{Seq: seq, Transition: transition, State: ptnet.StateVector(state)}
}

// Run exercises every part of the History contract against histories built
// by newHistory.
func Run(t *testing.T, newHistory Factory) {
	ctx := context.Background()

	t.Run("Empty", func(t *testing.T) {
		h := newHistory(t)
		all, err := h.All(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
		_, found, err := h.Latest(ctx)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("AppendInOrder", func(t *testing.T) {
		h := newHistory(t)
		want := []ptnet.Record{
			record(0, "", 1, 0),
			record(1, "move", 0, 1),
			record(2, "noop", 0, 1),
		}
		for _, r := range want {
			require.NoError(t, h.Append(ctx, r))
		}
		all, err := h.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, len(want))
		for i := range want {
			assert.Equal(t, want[i].Seq, all[i].Seq)
			assert.Equal(t, want[i].Transition, all[i].Transition)
			assert.True(t, want[i].State.Equal(all[i].State), "record %d: %v != %v", i, want[i].State, all[i].State)
		}
		latest, found, err := h.Latest(ctx)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, int64(2), latest.Seq)
		assert.Equal(t, "noop", latest.Transition)
	})

	t.Run("GetBySeq", func(t *testing.T) {
		h := newHistory(t)
		require.NoError(t, h.Append(ctx, record(0, "", 1, 0)))
		require.NoError(t, h.Append(ctx, record(1, "move", 0, 1)))
		require.NoError(t, h.Append(ctx, record(2, "noop", 0, 1)))
		rec, found, err := h.Get(ctx, 1)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, int64(1), rec.Seq)
		assert.Equal(t, "move", rec.Transition)
		assert.True(t, rec.State.Equal(ptnet.StateVector{0, 1}), "got %v", rec.State)
		for _, seq := range []int64{-1, 3} {
			_, found, err := h.Get(ctx, seq)
			require.NoError(t, err)
			assert.False(t, found, "seq %d", seq)
		}
	})

	t.Run("AllIsRestartable", func(t *testing.T) {
		h := newHistory(t)
		require.NoError(t, h.Append(ctx, record(0, "", 3)))
		require.NoError(t, h.Append(ctx, record(1, "t", 2)))
		first, err := h.All(ctx)
		require.NoError(t, err)
		first[0].State[0] = 99
		second, err := h.All(ctx)
		require.NoError(t, err)
		assert.Len(t, second, 2)
		assert.Equal(t, 3, second[0].State[0])
	})

	t.Run("FirstMustBeZero", func(t *testing.T) {
		h := newHistory(t)
		err := h.Append(ctx, record(1, "move", 0, 1))
		var se *ptnet.SequenceError
		require.True(t, errors.As(err, &se), "expected sequence error, got %v", err)
		assert.Equal(t, int64(0), se.Want)
		assert.Equal(t, int64(1), se.Got)
	})

	t.Run("RejectsGap", func(t *testing.T) {
		h := newHistory(t)
		require.NoError(t, h.Append(ctx, record(0, "", 1)))
		err := h.Append(ctx, record(2, "t", 1))
		assert.True(t, errors.Is(err, ptnet.ErrSequence), "expected sequence error, got %v", err)
		all, err := h.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("RejectsDuplicate", func(t *testing.T) {
		h := newHistory(t)
		require.NoError(t, h.Append(ctx, record(0, "", 1)))
		require.NoError(t, h.Append(ctx, record(1, "t", 2)))
		err := h.Append(ctx, record(1, "t", 3))
		assert.True(t, errors.Is(err, ptnet.ErrSequence), "expected sequence error, got %v", err)
		latest, _, err := h.Latest(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, latest.State[0])
	})

	t.Run("ConcurrentAppend", func(t *testing.T) {
		h := newHistory(t)
		require.NoError(t, h.Append(ctx, record(0, "", 0)))
		const writers = 8
		var wg sync.WaitGroup
		errs := make([]error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = h.Append(ctx, record(1, "race", i))
			}(i)
		}
		wg.Wait()
		won := 0
		for _, err := range errs {
			if err == nil {
				won++
				continue
			}
			assert.True(t, errors.Is(err, ptnet.ErrSequence), "unexpected error %v", err)
		}
		assert.Equal(t, 1, won)
		all, err := h.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("DrivesMachine", func(t *testing.T) {
		net, err := ptnet.Build("tictactoe").
			Place("A", 1).
			Place("B", 0).
			Transition("move", -1, 1).
			Transition("back", 1, -1).
			Net()
		require.NoError(t, err)
		h := newHistory(t)
		m, err := ptnet.NewMachine(ctx, net, ptnet.WithHistory(h))
		require.NoError(t, err)
		for _, name := range []string{"move", "move", "back", "move"} {
			_, _ = m.Fire(ctx, name)
		}
		restored, err := ptnet.NewMachine(ctx, net, ptnet.WithHistory(h))
		require.NoError(t, err)
		assert.True(t, restored.CurrentState().Equal(m.CurrentState()))
		assert.Equal(t, m.Seq(), restored.Seq())
		assert.Equal(t, int64(3), restored.Seq())
	})
}

// RunIsolation checks that machines whose ids share a prefix never see each
// other's records.
func RunIsolation(t *testing.T, history MachineFactory) {
	ctx := context.Background()
	base := uuid.NewString()
	parent := history(t, base)
	child := history(t, base+":b")
	sibling := history(t, base+":")

	for i := int64(0); i < 3; i++ {
		require.NoError(t, child.Append(ctx, record(i, "child", int(i))))
	}
	require.NoError(t, sibling.Append(ctx, record(0, "", 7)))
	require.NoError(t, parent.Append(ctx, record(0, "", 1)))

	latest, found, err := parent.Latest(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(0), latest.Seq)
	assert.Equal(t, 1, latest.State[0])

	require.NoError(t, parent.Append(ctx, record(1, "move", 0)))
	all, err := parent.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, rec := range all {
		assert.NotEqual(t, "child", rec.Transition)
	}
	_, found, err = parent.Get(ctx, 2)
	require.NoError(t, err)
	assert.False(t, found)

	all, err = child.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	all, err = sibling.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
