package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvmatch/lobby"
	"github.com/katalvlaran/lvmatch/match"
	"github.com/katalvlaran/lvmatch/store"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetArgs(append([]string{"--log-level=error"}, args...))
	err := root.ExecuteContext(context.Background())

	return out.String(), err
}

func file(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestPartitionCmd(t *testing.T) {
	out, err := run(t, "partition", "--k", "2", "4", "5", "3", "2")
	require.NoError(t, err)
	assert.Equal(t, "group 1: [4 3] sum=7\ngroup 2: [5 2] sum=7\nspread=0 exact=true method=exact\n", out)

	_, err = run(t, "partition", "--exact", "--heuristic", "1", "2")
	assert.Error(t, err)
	_, err = run(t, "partition", "1", "x")
	assert.Error(t, err)
}

func TestModelCmds(t *testing.T) {
	ilp := file(t, "m.yaml", `
sense: maximize
variables:
  - {name: x, domain: integer}
  - {name: y, domain: integer}
constraints:
  - {name: c0, terms: {x: 1, y: 7}, relation: "<=", rhs: 17.5}
  - {name: c1, terms: {x: 1}, relation: "<=", rhs: 3.5}
objective: {x: 1, y: 10}
`)
	out, err := run(t, "ilp", ilp)
	require.NoError(t, err)
	assert.Equal(t, "status=Optimal\nobjective=23\nx=3\ny=2\n", out)

	_, err = run(t, "lp", ilp)
	assert.Error(t, err, "integer variables are rejected by the linear builder")
}

func TestMaxpartCmd(t *testing.T) {
	out, err := run(t, "maxpart", "--target", "10", "--addend", "1=100", "--addend", "2=40", "--addend", "5=10")
	require.NoError(t, err)
	assert.Contains(t, out, "total=23 plans=10 exact=true\n")

	_, err = run(t, "maxpart", "--target", "10", "--addend", "1:3")
	assert.Error(t, err)
}

func TestGroupCmd(t *testing.T) {
	spec := file(t, "round.yaml", `
group_count: 2
balance: 0
items:
  - {id: a, attrs: [4]}
  - {id: b, attrs: [5]}
  - {id: c, attrs: [3]}
  - {id: d, attrs: [2]}
`)
	dir := t.TempDir()
	out, err := run(t, "group", "--spec", spec, "--store", dir)
	require.NoError(t, err)

	var d match.Decision
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, match.StateSolved, d.State)
	assert.Zero(t, d.Provenance.Spread)

	st, err := store.Open(store.DefaultConfig(dir), logr.Discard())
	require.NoError(t, err)
	defer st.Close()
	saved, err := st.Load(context.Background(), d.RoundID)
	require.NoError(t, err)
	assert.Equal(t, d.Grouping, saved.Grouping)

	items := file(t, "items.csv", "id,w\np,1\nq,1\nr,1\n")
	out, err = run(t, "group", "--spec", spec, "--items", items)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, 1.0, d.Provenance.Spread)
}

func TestMatchmakeCmd(t *testing.T) {
	units := file(t, "units.csv", "matchunitid,userid,rank,tsmu\n1,11,10,100\n2,21,10,100\n3,31,10,100\n4,41,10,100\n5,51,40,100\n")
	db := filepath.Join(t.TempDir(), "pool.db")
	out, err := run(t, "matchmake", "--units", units, "--db", db, "--team-size", "2", "--now", "1767225600")
	require.NoError(t, err)

	var res lobby.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Games, 1)
	assert.Equal(t, []string{"5"}, res.Unmatched)

	out, err = run(t, "matchmake", "--db", db, "--team-size", "2", "--greedy", "--now", "1767225600")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Empty(t, res.Games)
	assert.Equal(t, []string{"5"}, res.Unmatched)
	assert.Equal(t, lobby.MethodGreedy, res.Method)
}

func TestGroupCmd_SeveralRounds(t *testing.T) {
	ok := file(t, "ok.toml", "group_count = 2\nbalance = 0\n")
	tight := file(t, "tight.toml", "group_count = 2\nbalance = 0\nmin_size = 3\nmax_size = 3\n")
	items := file(t, "items.csv", "id,w\na,4\nb,5\nc,3\nd,2\n")

	out, err := run(t, "group", "--spec", ok, "--spec", tight, "--items", items, "--parallelism", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tight.toml")

	var ds []match.Decision
	require.NoError(t, json.Unmarshal([]byte(out), &ds))
	require.Len(t, ds, 2)
	assert.Equal(t, match.StateSolved, ds[0].State)
	assert.Equal(t, match.StateInfeasible, ds[1].State)
}
