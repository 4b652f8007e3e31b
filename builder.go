package ptnet

import (
	"fmt"
	"math"

	"go.uber.org/multierr"
)

type arc struct {
	from, to string
	weight   int
}

// Builder assembles a net description step by step. Transitions can be given
// an explicit delta, built from arcs, or both; arcs are added on top of an
// explicit delta.
//
//	net, err := ptnet.Build("door").
//		Place("closed", 1).
//		Place("opened", 0).
//		Transition("open").
//		Arc("closed", "open", 1).
//		Arc("open", "opened", 1).
//		Net()
type Builder struct {
	name        string
	places      []Place
	transitions map[string]Delta
	order       []string
	arcs        []arc
}

func Build(name string) *Builder {
	return &Builder{
		name:        name,
		transitions: make(map[string]Delta),
	}
}

func (b *Builder) Place(name string, initial int) *Builder {
	b.places = append(b.places, Place{Name: name, Initial: initial})
	return b
}

func (b *Builder) Transition(name string, delta ...int) *Builder {
	if _, ok := b.transitions[name]; !ok {
		b.order = append(b.order, name)
	}
	b.transitions[name] = Delta(delta).Clone()
	return b
}

// Arc connects a place to a transition (consuming weight tokens when it
// fires) or a transition to a place (producing weight tokens).
func (b *Builder) Arc(from, to string, weight int) *Builder {
	b.arcs = append(b.arcs, arc{from: from, to: to, weight: weight})
	return b
}

// Input resolves arcs and returns the description without validating it.
func (b *Builder) Input() (Input, error) {
	index := make(map[string]int, len(b.places))
	for i, p := range b.places {
		name := p.Name
		if name == "" {
			name = defaultPlaceName(i)
		}
		index[name] = i
	}
	in := Input{
		Name:        b.name,
		Places:      append([]Place(nil), b.places...),
		Transitions: make(map[string]Delta, len(b.transitions)),
	}
	for _, name := range b.order {
		d := b.transitions[name]
		if d == nil {
			d = make(Delta, len(b.places))
		}
		in.Transitions[name] = d.Clone()
	}
	var err error
	for _, a := range b.arcs {
		if a.weight <= 0 {
			err = multierr.Append(err, &ShapeError{
				Place:  -1,
				Reason: fmt.Sprintf("arc %s -> %s has weight %d", a.from, a.to, a.weight),
			})
			continue
		}
		place, transition, sign := a.from, a.to, -1
		if _, ok := in.Transitions[a.from]; ok {
			place, transition, sign = a.to, a.from, 1
		}
		d, ok := in.Transitions[transition]
		if !ok {
			err = multierr.Append(err, &ShapeError{
				Place:  -1,
				Reason: fmt.Sprintf("arc %s -> %s does not touch a transition", a.from, a.to),
			})
			continue
		}
		i, ok := index[place]
		if !ok {
			err = multierr.Append(err, &ShapeError{
				Transition: transition,
				Place:      -1,
				Reason:     fmt.Sprintf("arc refers to unknown place %q", place),
			})
			continue
		}
		if len(d) != len(b.places) {
			// reported by Validate
			continue
		}
		if (sign > 0 && d[i] > math.MaxInt-a.weight) || (sign < 0 && d[i] < math.MinInt+a.weight) {
			err = multierr.Append(err, &ShapeError{
				Transition: transition,
				Place:      i,
				Reason:     fmt.Sprintf("arc %s -> %s overflows the delta", a.from, a.to),
			})
			continue
		}
		d[i] += sign * a.weight
	}
	return in, err
}

// Net resolves arcs and builds a validated net.
func (b *Builder) Net() (*Net, error) {
	in, err := b.Input()
	if err != nil {
		return nil, multierr.Append(err, in.Validate())
	}
	return New(in)
}
