package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

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

func setup(t *testing.T) (dir, net string) {
	t.Helper()
	dir = t.TempDir()
	net = filepath.Join(dir, "tictactoe.yaml")
	require.NoError(t, os.WriteFile(net, []byte(ticTacToe), 0o600))
	t.Setenv("PTNET_STORE", "sqlite")
	t.Setenv("PTNET_SQLITE_PATH", filepath.Join(dir, "ptnet.db"))
	t.Setenv("RABBITMQ_URI", "")
	t.Setenv("PTNET_METRICS_FILE", "")
	return dir, net
}

func run(args ...string) (string, error) {
	netFile, machineID, envFile = "", "", ""
	recordSeq = -1
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestFire_PersistsAcrossRuns(t *testing.T) {
	_, net := setup(t)

	out, err := run("fire", "-n", net, "move")
	require.NoError(t, err)
	assert.Equal(t, "#1 move [0 1]\n", out)

	out, err = run("state", "-n", net)
	require.NoError(t, err)
	assert.Equal(t, "seq: 1\nA: 0\nB: 1\n", out)

	out, err = run("fire", "-n", net, "move")
	assert.ErrorContains(t, err, "negative state")
	assert.Empty(t, out)

	out, err = run("enabled", "-n", net)
	require.NoError(t, err)
	assert.Equal(t, "noop\nreset\n", out)

	out, err = run("history", "-m", "tictactoe")
	require.NoError(t, err)
	assert.Equal(t, "#0 [1 0]\n#1 move [0 1]\n", out)

	out, err = run("verify", "-n", net)
	require.NoError(t, err)
	assert.Equal(t, "ok: 2 records, seq 1, state [0 1]\n", out)

	out, err = run("machines")
	require.NoError(t, err)
	assert.Equal(t, "tictactoe\n", out)
}

func TestFire_StopsAtFirstRejection(t *testing.T) {
	_, net := setup(t)
	out, err := run("fire", "-n", net, "-m", "m1", "move", "move", "reset")
	require.Error(t, err)
	assert.Equal(t, "#1 move [0 1]\n", out)

	out, err = run("history", "-m", "m1")
	require.NoError(t, err)
	assert.Equal(t, "#0 [1 0]\n#1 move [0 1]\n", out)
}

func TestFire_RequiresNet(t *testing.T) {
	setup(t)
	_, err := run("fire", "move")
	assert.ErrorContains(t, err, "--net is required")
}

func TestInspect(t *testing.T) {
	_, net := setup(t)
	out, err := run("inspect", "-n", net)
	require.NoError(t, err)
	assert.Contains(t, out, "net tictactoe\n")
	assert.Contains(t, out, "  0 A 1\n")
	assert.Contains(t, out, "  move [-1 1]\n")
	assert.Contains(t, out, "incidence:\n")
}

func TestMachines_NeedsSQLStore(t *testing.T) {
	setup(t)
	t.Setenv("PTNET_STORE", "memory")
	_, err := run("machines")
	assert.Error(t, err)
}

func TestFire_WritesMetrics(t *testing.T) {
	dir, net := setup(t)
	path := filepath.Join(dir, "ptnet.prom")
	t.Setenv("PTNET_METRICS_FILE", path)
	_, err := run("fire", "-n", net, "move", "reset")
	require.NoError(t, err)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `ptnet_firings_total{transition="move"} 1`)
	assert.Contains(t, string(b), `ptnet_sequence{machine="tictactoe"} 2`)
}

func TestState_WritesSequenceMetric(t *testing.T) {
	dir, net := setup(t)
	_, err := run("fire", "-n", net, "move")
	require.NoError(t, err)

	path := filepath.Join(dir, "state.prom")
	t.Setenv("PTNET_METRICS_FILE", path)
	_, err = run("state", "-n", net)
	require.NoError(t, err)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `ptnet_sequence{machine="tictactoe"} 1`)
}

func TestHistory_Seq(t *testing.T) {
	_, net := setup(t)
	_, err := run("fire", "-n", net, "move", "reset")
	require.NoError(t, err)

	out, err := run("history", "-m", "tictactoe", "--seq", "1")
	require.NoError(t, err)
	assert.Equal(t, "#1 move [0 1]\n", out)

	_, err = run("history", "-m", "tictactoe", "--seq", "5")
	assert.ErrorContains(t, err, "no record 5")
}

func TestEnvFile_MissingIsAnError(t *testing.T) {
	dir, net := setup(t)
	_, err := run("state", "-n", net, "--env-file", filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}
