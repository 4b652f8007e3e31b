package ptnet_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/jt05610/ptnet"
	"go.uber.org/multierr"
)

// ExampleBuild shows a net whose transition deltas are derived from arcs.
func ExampleBuild() {
	net, err := ptnet.Build("door").
		Place("closed", 1).
		Place("opened", 0).
		Transition("open").
		Transition("close").
		Arc("closed", "open", 1).
		Arc("open", "opened", 1).
		Arc("opened", "close", 1).
		Arc("close", "closed", 1).
		Net()
	if err != nil {
		panic(err)
	}
	fmt.Println("places:", net.Places())
	fmt.Println("initial:", net.InitialVector())
	for _, name := range net.Transitions() {
		d, _ := net.DeltaFor(name)
		fmt.Println(name, d)
	}
	// Output:
	// places: [closed(1) opened(0)]
	// initial: [1 0]
	// close [1 -1]
	// open [-1 1]
}

func TestNew_DeltaLengthMismatch(t *testing.T) {
	_, err := ptnet.New(ptnet.Input{
		Places:      []ptnet.Place{{Initial: 1}, {}},
		Transitions: map[string]ptnet.Delta{"move": {-1, 1, 0}},
	})
	if !errors.Is(err, ptnet.ErrShape) {
		t.Fatalf("expected shape error, got %v", err)
	}
	var se *ptnet.ShapeError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ShapeError, got %T", err)
	}
	if se.Transition != "move" {
		t.Errorf("expected transition move, got %q", se.Transition)
	}
}

func TestNew_ReportsEveryProblem(t *testing.T) {
	_, err := ptnet.New(ptnet.Input{
		Places: []ptnet.Place{
			{Name: "a", Initial: -1},
			{Name: "a"},
		},
		Transitions: map[string]ptnet.Delta{
			"short": {1},
			"":      {0, 0},
		},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	errs := multierr.Errors(err)
	if len(errs) != 4 {
		t.Fatalf("expected 4 problems, got %d: %v", len(errs), err)
	}
	for _, e := range errs {
		if !errors.Is(e, ptnet.ErrShape) {
			t.Errorf("%v does not match ErrShape", e)
		}
	}
}

func TestNet_InitialVectorIsACopy(t *testing.T) {
	net, err := ptnet.New(ptnet.Input{
		Places:      []ptnet.Place{{Initial: 3}},
		Transitions: map[string]ptnet.Delta{"take": {-1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	v := net.InitialVector()
	v[0] = 100
	if got := net.InitialVector()[0]; got != 3 {
		t.Errorf("initial vector was mutated through a copy: %d", got)
	}
	d, _ := net.DeltaFor("take")
	d[0] = 100
	if d2, _ := net.DeltaFor("take"); d2[0] != -1 {
		t.Errorf("delta was mutated through a copy: %v", d2)
	}
}

func TestNet_InputIsCopied(t *testing.T) {
	in := ptnet.Input{
		Places:      []ptnet.Place{{Initial: 1}},
		Transitions: map[string]ptnet.Delta{"t": {1}},
	}
	net, err := ptnet.New(in)
	if err != nil {
		t.Fatal(err)
	}
	in.Places[0].Initial = 9
	in.Transitions["t"][0] = 9
	if !net.InitialVector().Equal(ptnet.StateVector{1}) {
		t.Errorf("net shares places with its input")
	}
	if d, _ := net.DeltaFor("t"); d[0] != 1 {
		t.Errorf("net shares deltas with its input")
	}
}

func TestNet_DefaultPlaceNames(t *testing.T) {
	net, err := ptnet.New(ptnet.Input{Places: []ptnet.Place{{}, {Name: "b"}}})
	if err != nil {
		t.Fatal(err)
	}
	if i, ok := net.PlaceIndex("p0"); !ok || i != 0 {
		t.Errorf("expected p0 at 0, got %d %v", i, ok)
	}
	if i, ok := net.PlaceIndex("b"); !ok || i != 1 {
		t.Errorf("expected b at 1, got %d %v", i, ok)
	}
}

func TestNet_DeltaForUnknown(t *testing.T) {
	net, err := ptnet.New(ptnet.Input{Places: []ptnet.Place{{}}})
	if err != nil {
		t.Fatal(err)
	}
	_, err = net.DeltaFor("nope")
	var ute *ptnet.UnknownTransitionError
	if !errors.As(err, &ute) || ute.Transition != "nope" {
		t.Fatalf("expected unknown transition error, got %v", err)
	}
}

func TestNet_ZeroValueFailsValidation(t *testing.T) {
	var net ptnet.Net
	if err := net.Validate(); !errors.Is(err, ptnet.ErrShape) {
		t.Fatalf("expected shape error, got %v", err)
	}
}

func TestBuilder_ArcErrors(t *testing.T) {
	_, err := ptnet.Build("bad").
		Place("a", 0).
		Place("b", 0).
		Transition("t").
		Arc("a", "b", 1).
		Arc("t", "missing", 1).
		Arc("a", "t", 0).
		Net()
	if got := len(multierr.Errors(err)); got != 3 {
		t.Fatalf("expected 3 problems, got %d: %v", got, err)
	}
	if !errors.Is(err, ptnet.ErrShape) {
		t.Errorf("expected shape error, got %v", err)
	}
}

func TestBuilder_ArcsAddToExplicitDelta(t *testing.T) {
	net, err := ptnet.Build("mix").
		Place("a", 2).
		Place("b", 0).
		Transition("t", 0, 1).
		Arc("a", "t", 2).
		Net()
	if err != nil {
		t.Fatal(err)
	}
	d, _ := net.DeltaFor("t")
	if fmt.Sprint(d) != "[-2 1]" {
		t.Errorf("expected [-2 1], got %v", d)
	}
}

func TestBuilder_ArcWeightOverflow(t *testing.T) {
	for _, tc := range []struct {
		name  string
		build func(*ptnet.Builder) *ptnet.Builder
	}{
		{"consuming", func(b *ptnet.Builder) *ptnet.Builder {
			return b.Arc("a", "t", math.MaxInt).Arc("a", "t", math.MaxInt)
		}},
		{"producing", func(b *ptnet.Builder) *ptnet.Builder {
			return b.Arc("t", "a", math.MaxInt).Arc("t", "a", 1)
		}},
		{"onto explicit delta", func(b *ptnet.Builder) *ptnet.Builder {
			return b.Transition("t", -2).Arc("a", "t", math.MaxInt)
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := ptnet.Build("big").Place("a", 0).Transition("t")
			_, err := tc.build(b).Net()
			var se *ptnet.ShapeError
			if !errors.As(err, &se) {
				t.Fatalf("expected shape error, got %v", err)
			}
			if se.Transition != "t" || se.Place != 0 {
				t.Errorf("unexpected shape error %+v", se)
			}
		})
	}
}

func TestBuilder_ArcWeightAtLimit(t *testing.T) {
	net, err := ptnet.Build("big").
		Place("a", 0).
		Transition("t").
		Arc("a", "t", math.MaxInt).
		Net()
	if err != nil {
		t.Fatal(err)
	}
	if d, _ := net.DeltaFor("t"); d[0] != -math.MaxInt {
		t.Errorf("expected %d, got %v", -math.MaxInt, d)
	}
}
