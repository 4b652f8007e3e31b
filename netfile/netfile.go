// Package netfile reads and writes net definitions as YAML.
//
//	name: tictactoe
//	places:
//	  - name: A
//	    initial: 1
//	  - name: B
//	transitions:
//	  move: [-1, 1]
//	  reset:
//	    inputs: {B: 1}
//	    outputs: {A: 1}
package netfile

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/jt05610/ptnet"
	"gopkg.in/yaml.v3"
)

// File is the document layout.
type File struct {
	Name        string                `yaml:"name,omitempty"`
	Places      []ptnet.Place         `yaml:"places"`
	Transitions map[string]Transition `yaml:"transitions"`
}

// Transition is written either as a delta sequence or as weighted input and
// output arcs keyed by place name. Arcs are added on top of an explicit
// delta.
type Transition struct {
	Delta   ptnet.Delta    `yaml:"delta,omitempty"`
	Inputs  map[string]int `yaml:"inputs,omitempty"`
	Outputs map[string]int `yaml:"outputs,omitempty"`
}

func (t *Transition) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		return node.Decode(&t.Delta)
	}
	type plain Transition
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*t = Transition(p)
	return nil
}

func (t Transition) MarshalYAML() (interface{}, error) {
	if len(t.Inputs) > 0 || len(t.Outputs) > 0 {
		type plain Transition
		return plain(t), nil
	}
	n := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range t.Delta {
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(v)})
	}
	return n, nil
}

// Net builds a validated net from the document.
func (f *File) Net() (*ptnet.Net, error) {
	b := ptnet.Build(f.Name)
	for _, p := range f.Places {
		b = b.Place(p.Name, p.Initial)
	}
	names := make([]string, 0, len(f.Transitions))
	for name := range f.Transitions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := f.Transitions[name]
		b = b.Transition(name, t.Delta...)
		for _, place := range sortedKeys(t.Inputs) {
			b = b.Arc(place, name, t.Inputs[place])
		}
		for _, place := range sortedKeys(t.Outputs) {
			b = b.Arc(name, place, t.Outputs[place])
		}
	}
	return b.Net()
}

// FromNet describes net in delta form.
func FromNet(net *ptnet.Net) *File {
	in := net.Input()
	f := &File{
		Name:        in.Name,
		Places:      in.Places,
		Transitions: make(map[string]Transition, len(in.Transitions)),
	}
	for name, d := range in.Transitions {
		f.Transitions[name] = Transition{Delta: d}
	}
	return f
}

// Load decodes a document from r and builds its net.
func Load(r io.Reader) (*ptnet.Net, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode net file: %w", err)
	}
	return f.Net()
}

// LoadFile loads the net stored at path.
func LoadFile(path string) (*ptnet.Net, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	net, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return net, nil
}

// Save writes net to w in delta form.
func Save(w io.Writer, net *ptnet.Net) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(FromNet(net)); err != nil {
		return fmt.Errorf("encode net file: %w", err)
	}
	return enc.Close()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
