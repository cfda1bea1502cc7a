package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSeedThenValidate(t *testing.T) {
	db := filepath.Join(t.TempDir(), "roster.db")

	// GIVEN
	out, err := run(t, "seed", "--db", db, "--scenario", "s1-rest-across-month")
	require.NoError(t, err, out)
	assert.Contains(t, out, "seeded s1-rest-across-month")

	// WHEN
	out, err = run(t, "validate", "--db", db, "--user", "u1", "--year", "2024", "--month", "11", "--json")

	// THEN
	require.NoError(t, err, out)
	var violations []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &violations))
	require.Len(t, violations, 2)
	for _, v := range violations {
		assert.Equal(t, "2024-11-01", v["date"])
	}

	out, err = run(t, "validate", "--db", db, "--user", "u1", "--year", "2024", "--month", "11")
	require.NoError(t, err)
	assert.Contains(t, out, "min_rest")
	assert.Contains(t, out, "2 violation(s)")
}

func TestGrid(t *testing.T) {
	db := filepath.Join(t.TempDir(), "roster.db")
	_, err := run(t, "seed", "--db", db, "--scenario", "s7-holiday-crew")
	require.NoError(t, err)

	out, err := run(t, "grid", "--db", db, "--year", "2025", "--month", "1", "--json")

	require.NoError(t, err, out)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 31)
	assert.Equal(t, "green", entries[0]["crew"])
	assert.Equal(t, "red", entries[1]["crew"])
}

func TestSeedFromFileWithBase(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "roster.db")
	file := filepath.Join(dir, "week.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`id: custom
name: Custom
month: 2024-11
planning:
  - {user: u2, date: 2024-11-04, code: "9"}
  - {user: u2, date: 2024-11-05, code: "7"}
`), 0o644))

	out, err := run(t, "seed", "--db", db, "--file", file, "--base")
	require.NoError(t, err, out)

	out, err = run(t, "validate", "--db", db, "--user", "u2", "--year", "2024", "--month", "11", "--json")
	require.NoError(t, err, out)
	assert.Contains(t, out, "night_then_early")
}

func TestExpand_NoTemplate(t *testing.T) {
	db := filepath.Join(t.TempDir(), "roster.db")
	_, err := run(t, "seed", "--db", db, "--scenario", "s2-long-week")
	require.NoError(t, err)

	out, err := run(t, "expand", "--db", db, "--user", "u1", "--from", "2024-11-04", "--to", "2024-11-05")

	require.NoError(t, err, out)
	assert.Equal(t, "2024-11-04 Mon -\n2024-11-05 Tue -\n", out)
}

func TestFlagErrors(t *testing.T) {
	_, err := run(t, "validate", "--user", "u1", "--month", "13")
	assert.Error(t, err)

	_, err = run(t, "seed", "--file", "a.yaml", "--scenario", "s1-rest-across-month")
	assert.Error(t, err)

	_, err = run(t, "expand", "--user", "u1", "--from", "2024-11-05", "--to", "2024-11-04")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "rosterctl version "+Version+"\n", out)
}
