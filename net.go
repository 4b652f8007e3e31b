package ptnet

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"
)

// Input describes a net before validation.
type Input struct {
	Name        string           `json:"name,omitempty" yaml:"name,omitempty"`
	Places      []Place          `json:"places" yaml:"places"`
	Transitions map[string]Delta `json:"transitions" yaml:"transitions"`
}

// Validate reports every shape problem in the description. The returned
// error matches ErrShape and holds one *ShapeError per problem.
func (in Input) Validate() error {
	var err error
	seen := make(map[string]int, len(in.Places))
	for i, p := range in.Places {
		if p.Initial < 0 {
			err = multierr.Append(err, &ShapeError{
				Place:  i,
				Reason: fmt.Sprintf("initial value %d is negative", p.Initial),
			})
		}
		name := p.Name
		if name == "" {
			name = defaultPlaceName(i)
		}
		if j, ok := seen[name]; ok {
			err = multierr.Append(err, &ShapeError{
				Place:  i,
				Reason: fmt.Sprintf("name %q already used by place %d", name, j),
			})
			continue
		}
		seen[name] = i
	}
	for _, name := range sortedNames(in.Transitions) {
		delta := in.Transitions[name]
		if name == "" {
			err = multierr.Append(err, &ShapeError{Place: -1, Reason: "transition has an empty name"})
			continue
		}
		if len(delta) != len(in.Places) {
			err = multierr.Append(err, &ShapeError{
				Transition: name,
				Place:      -1,
				Reason:     fmt.Sprintf("delta has length %d, net has %d places", len(delta), len(in.Places)),
			})
		}
	}
	return err
}

// Net is an immutable, validated net definition. A *Net is safe to share
// between any number of machines.
type Net struct {
	name   string
	places []Place
	names  []string
	deltas map[string]Delta
	index  map[string]int
}

// New validates the description and builds a net from a private copy of it.
func New(in Input) (*Net, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	net := &Net{
		name:   in.Name,
		places: make([]Place, len(in.Places)),
		names:  sortedNames(in.Transitions),
		deltas: make(map[string]Delta, len(in.Transitions)),
		index:  make(map[string]int, len(in.Places)),
	}
	for i, p := range in.Places {
		if p.Name == "" {
			p.Name = defaultPlaceName(i)
		}
		net.places[i] = p
		net.index[p.Name] = i
	}
	for name, delta := range in.Transitions {
		net.deltas[name] = delta.Clone()
	}
	return net, nil
}

// Validate re-checks the net's invariants. Nets built by New always pass; a
// zero Net does not.
func (n *Net) Validate() error {
	if n == nil || n.deltas == nil {
		return &ShapeError{Place: -1, Reason: "net was not built with New"}
	}
	return n.Input().Validate()
}

func (n *Net) Name() string { return n.name }

func (n *Net) PlaceCount() int { return len(n.places) }

// Places returns a copy of the net's places in index order.
func (n *Net) Places() []Place {
	out := make([]Place, len(n.places))
	copy(out, n.places)
	return out
}

func (n *Net) PlaceIndex(name string) (int, bool) {
	i, ok := n.index[name]
	return i, ok
}

// Transitions returns the transition names in sorted order.
func (n *Net) Transitions() []string {
	out := make([]string, len(n.names))
	copy(out, n.names)
	return out
}

// InitialVector returns a fresh copy of the initial state.
func (n *Net) InitialVector() StateVector {
	out := make(StateVector, len(n.places))
	for i, p := range n.places {
		out[i] = p.Initial
	}
	return out
}

// DeltaFor returns a copy of the named transition's delta vector.
func (n *Net) DeltaFor(name string) (Delta, error) {
	d, ok := n.deltas[name]
	if !ok {
		return nil, &UnknownTransitionError{Transition: name}
	}
	return d.Clone(), nil
}

// Input returns the description the net was built from.
func (n *Net) Input() Input {
	in := Input{
		Name:        n.name,
		Places:      n.Places(),
		Transitions: make(map[string]Delta, len(n.deltas)),
	}
	for name, d := range n.deltas {
		in.Transitions[name] = d.Clone()
	}
	return in
}

func (n *Net) String() string {
	return fmt.Sprintf("%s%v", n.name, n.places)
}

func sortedNames(m map[string]Delta) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
