package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testMappings = "testdata/mappings"
	testInvalid  = "testdata/invalid"
	testSchema   = "testdata/schema.yaml"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

// executeWithDB runs args against the test mappings and a database in a
// per-test temp dir.
func executeWithDB(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	return execute(t, append([]string{"-m", testMappings, "--db", db}, args...)...)
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "sfmap.db")
}

func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}
