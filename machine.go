package ptnet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Machine fires transitions of a net against its own state and history.
// Fire calls are serialized; reads may run concurrently with them, including
// while a fire waits on the history, and always see a committed state.
type Machine struct {
	id        string
	net       *Net
	history   History
	logger    *zap.Logger
	observers Observers

	// fireMu serializes writers. broken is only touched under it, and current
	// and seq are only replaced while holding both locks.
	fireMu sync.Mutex
	broken error

	mu      sync.RWMutex
	current StateVector
	seq     int64
}

type Option func(*Machine)

// WithID names the machine. Stores key their records by this id, so reuse an
// id to resume a machine. Defaults to a random UUID.
func WithID(id string) Option {
	return func(m *Machine) { m.id = id }
}

// WithHistory sets where committed records are appended. Defaults to a new
// MemoryHistory.
func WithHistory(h History) Option {
	return func(m *Machine) { m.history = h }
}

func WithLogger(logger *zap.Logger) Option {
	return func(m *Machine) { m.logger = logger }
}

func WithObserver(o ...Observer) Option {
	return func(m *Machine) { m.observers = append(m.observers, o...) }
}

// NewMachine builds a machine for net. An empty history receives the genesis
// record; a non-empty one is replayed to recover the current state.
func NewMachine(ctx context.Context, net *Net, opts ...Option) (*Machine, error) {
	if err := net.Validate(); err != nil {
		return nil, err
	}
	m := &Machine{net: net}
	for _, opt := range opts {
		opt(m)
	}
	if m.id == "" {
		m.id = uuid.NewString()
	}
	if m.history == nil {
		m.history = NewMemoryHistory()
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	m.logger = m.logger.With(zap.String("machine", m.id))

	records, err := m.history.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(records) == 0 {
		genesis := Record{Seq: 0, State: net.InitialVector()}
		if err := m.history.Append(ctx, genesis); err != nil {
			return nil, fmt.Errorf("append genesis record: %w", err)
		}
		m.current, m.seq = genesis.State, genesis.Seq
		m.logger.Debug("machine started", zap.Stringer("state", m.current))
		return m, nil
	}
	state, seq, err := Replay(net, records)
	if err != nil {
		return nil, err
	}
	m.current, m.seq = state, seq
	m.logger.Debug("machine restored", zap.Int64("seq", seq), zap.Stringer("state", state))
	return m, nil
}

func (m *Machine) ID() string { return m.id }

func (m *Machine) Net() *Net { return m.net }

// Fire applies the named transition. On any error the current state and the
// history are unchanged.
func (m *Machine) Fire(ctx context.Context, name string) (StateVector, error) {
	rec, err := m.fire(ctx, name)
	if err != nil {
		m.logger.Info("transition rejected",
			zap.String("transition", name),
			zap.String("reason", Reason(err)),
			zap.Error(err),
		)
		m.observers.Rejected(ctx, m.id, name, err)
		return nil, err
	}
	m.logger.Debug("transition fired",
		zap.String("transition", name),
		zap.Int64("seq", rec.Seq),
		zap.Stringer("state", rec.State),
	)
	m.observers.Committed(ctx, m.id, rec)
	return rec.State.Clone(), nil
}

func (m *Machine) fire(ctx context.Context, name string) (Record, error) {
	m.fireMu.Lock()
	defer m.fireMu.Unlock()
	if m.broken != nil {
		return Record{}, fmt.Errorf("machine %s is unusable: %w", m.id, m.broken)
	}
	// no other writer can run, so current and seq are stable without mu
	candidate, err := step(m.net, m.current, name)
	if err != nil {
		return Record{}, err
	}
	rec := Record{Seq: m.seq + 1, Transition: name, State: candidate.Clone()}
	if err := m.history.Append(ctx, rec); err != nil {
		if fatal(err) {
			m.broken = err
		}
		return Record{}, fmt.Errorf("append seq %d: %w", rec.Seq, err)
	}
	m.mu.Lock()
	m.current, m.seq = candidate, rec.Seq
	m.mu.Unlock()
	return rec, nil
}

// CurrentState returns a copy of the committed state.
func (m *Machine) CurrentState() StateVector {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Clone()
}

// Seq returns the sequence number of the committed state.
func (m *Machine) Seq() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.seq
}

// History returns every committed record in order.
func (m *Machine) History(ctx context.Context) ([]Record, error) {
	return m.history.All(ctx)
}

// Record returns the committed record with the given seq, or false if the
// machine has not reached it.
func (m *Machine) Record(ctx context.Context, seq int64) (Record, bool, error) {
	return m.history.Get(ctx, seq)
}

// Enabled reports whether firing name would currently succeed.
func (m *Machine) Enabled(name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, err := step(m.net, m.current, name)
	if errors.Is(err, ErrNegativeState) {
		return false, nil
	}
	return err == nil, err
}

// Available returns the sorted names of every currently enabled transition.
func (m *Machine) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0)
	for _, name := range m.net.Transitions() {
		if _, err := step(m.net, m.current, name); err == nil {
			out = append(out, name)
		}
	}
	return out
}
