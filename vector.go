package ptnet

import (
	"fmt"
	"strconv"
	"strings"
)

// StateVector holds one token count per place, index-aligned with the net's
// places.
type StateVector []int

// Delta is the vector a transition adds to the state when it fires.
type Delta []int

// Add returns s + d without checking the result for negative components.
// The lengths are fixed by the net, so a mismatch is a programming error.
func (s StateVector) Add(d Delta) StateVector {
	if len(s) != len(d) {
		panic(fmt.Sprintf("ptnet: adding delta of length %d to state of length %d", len(d), len(s)))
	}
	out := make(StateVector, len(s))
	for i := range s {
		out[i] = s[i] + d[i]
	}
	return out
}

// FirstNegative returns the index of the first negative component.
func (s StateVector) FirstNegative() (int, bool) {
	for i, v := range s {
		if v < 0 {
			return i, true
		}
	}
	return -1, false
}

func (s StateVector) Equal(other StateVector) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

func (s StateVector) Clone() StateVector {
	if s == nil {
		return nil
	}
	out := make(StateVector, len(s))
	copy(out, s)
	return out
}

func (s StateVector) String() string {
	return formatInts(s)
}

func (d Delta) Clone() Delta {
	if d == nil {
		return nil
	}
	out := make(Delta, len(d))
	copy(out, d)
	return out
}

func (d Delta) String() string {
	return formatInts(d)
}

func formatInts(vv []int) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range vv {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.Itoa(v))
	}
	sb.WriteByte(']')
	return sb.String()
}
