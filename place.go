package ptnet

import "fmt"

// Place is one slot of the state vector.
type Place struct {
	// Name is optional; unnamed places are called p0, p1, ...
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Initial is the token count the place holds when a machine starts.
	Initial int `json:"initial,omitempty" yaml:"initial,omitempty"`
}

func defaultPlaceName(i int) string {
	return fmt.Sprintf("p%d", i)
}

func (p Place) String() string {
	return fmt.Sprintf("%s(%d)", p.Name, p.Initial)
}
