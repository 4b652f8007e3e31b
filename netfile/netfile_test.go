package netfile_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jt05610/ptnet"
	"github.com/jt05610/ptnet/netfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ticTacToe = `
name: tictactoe
places:
  - name: A
    initial: 1
  - name: B
transitions:
  move: [-1, 1]
  reset:
    inputs: {B: 1}
    outputs: {A: 1}
  noop: [0, 0]
`

func ExampleSave() {
	net, err := netfile.Load(strings.NewReader(ticTacToe))
	if err != nil {
		panic(err)
	}
	if err := netfile.Save(os.Stdout, net); err != nil {
		panic(err)
	}
	// Output:
	// name: tictactoe
	// places:
	//   - name: A
	//     initial: 1
	//   - name: B
	// transitions:
	//   move: [-1, 1]
	//   noop: [0, 0]
	//   reset: [1, -1]
}

func TestLoad_Fires(t *testing.T) {
	net, err := netfile.Load(strings.NewReader(ticTacToe))
	require.NoError(t, err)
	assert.Equal(t, "tictactoe", net.Name())
	assert.Equal(t, []string{"move", "noop", "reset"}, net.Transitions())

	ctx := context.Background()
	m, err := ptnet.NewMachine(ctx, net)
	require.NoError(t, err)
	for _, name := range []string{"move", "reset", "move"} {
		_, err := m.Fire(ctx, name)
		require.NoError(t, err, name)
	}
	assert.Equal(t, "[0 1]", m.CurrentState().String())
}

func TestLoad_ShapeError(t *testing.T) {
	_, err := netfile.Load(strings.NewReader(`
places:
  - initial: 1
  - {}
transitions:
  move: [-1, 1, 0]
`))
	assert.True(t, errors.Is(err, ptnet.ErrShape), "got %v", err)
}

func TestLoad_UnknownPlace(t *testing.T) {
	_, err := netfile.Load(strings.NewReader(`
places:
  - name: a
transitions:
  t:
    inputs: {b: 1}
`))
	assert.True(t, errors.Is(err, ptnet.ErrShape), "got %v", err)
}

func TestLoad_UnknownField(t *testing.T) {
	_, err := netfile.Load(strings.NewReader(`
places: []
colors: [red]
`))
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	net, err := ptnet.Build("loop").
		Place("a", 2).
		Place("b", 0).
		Transition("ab", -1, 1).
		Transition("ba", 1, -1).
		Net()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "loop.yaml")
	var buf bytes.Buffer
	require.NoError(t, netfile.Save(&buf, net))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	loaded, err := netfile.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprint(net.Input()), fmt.Sprint(loaded.Input()))
}
