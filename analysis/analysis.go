// Package analysis presents a net's transitions as an incidence matrix.
package analysis

import (
	"fmt"
	"io"
	"strings"

	"github.com/jt05610/ptnet"
	"gonum.org/v1/gonum/mat"
)

// Incidence returns the matrix whose row i is the delta vector of the i-th
// transition in net.Transitions() order. A net without places or
// transitions has no matrix.
func Incidence(net *ptnet.Net) *mat.Dense {
	names := net.Transitions()
	n, m := len(names), net.PlaceCount()
	if n == 0 || m == 0 {
		return nil
	}
	d := make([]float64, 0, n*m)
	for _, name := range names {
		delta, _ := net.DeltaFor(name)
		for _, v := range delta {
			d = append(d, float64(v))
		}
	}
	return mat.NewDense(n, m, d)
}

// Consumes reports, per transition, how many tokens it needs in each place
// to fire: the negated negative part of its incidence row.
func Consumes(net *ptnet.Net) *mat.Dense {
	inc := Incidence(net)
	if inc == nil {
		return nil
	}
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		if v < 0 {
			return -v
		}
		return 0
	}, inc)
	return &out
}

// Write prints the incidence matrix with transition and place labels.
func Write(w io.Writer, net *ptnet.Net) error {
	inc := Incidence(net)
	if inc == nil {
		_, err := fmt.Fprintln(w, "(empty)")
		return err
	}
	names := net.Transitions()
	width := 0
	for _, name := range names {
		width = max(width, len(name))
	}
	places := net.Places()
	cols := make([]int, len(places))
	header := strings.Repeat(" ", width)
	for j, p := range places {
		cols[j] = max(len(p.Name), 3)
		header += fmt.Sprintf(" %*s", cols[j], p.Name)
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	for i, name := range names {
		row := fmt.Sprintf("%-*s", width, name)
		for j := range places {
			row += fmt.Sprintf(" %*d", cols[j], int(inc.At(i, j)))
		}
		if _, err := fmt.Fprintln(w, row); err != nil {
			return err
		}
	}
	return nil
}
