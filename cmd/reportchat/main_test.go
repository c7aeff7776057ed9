package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupiduntilnot/reportchat/internal/db"
)

const snapshotJSON = `{
  "pageName": "Sales Overview",
  "table": {
    "columns": [
      {"displayName": "Region", "queryName": "Sales.Region"},
      {"displayName": "Revenue", "queryName": "Sum(Sales.Revenue)", "isMeasure": true}
    ],
    "rows": [["North", 1200.5], ["South", 800]]
  }
}`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(io.Discard)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeSnapshot(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(snapshotJSON), 0o644))
	return path
}

func TestProvidersCommand(t *testing.T) {
	chdir(t, t.TempDir())
	out, err := run(t, "providers")
	require.NoError(t, err)
	for _, id := range []string{"openai", "deepseek", "anthropic", "gemini", "custom"} {
		assert.Contains(t, out, id)
	}
	assert.Contains(t, out, "(required)")
}

func TestPromptCommand(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("REPORTCHAT_RESPONSE_LANGUAGE", "French")

	out, err := run(t, "prompt", "--snapshot", writeSnapshot(t, dir))
	require.NoError(t, err)
	assert.Contains(t, out, "Sales Overview")
	assert.Contains(t, out, "Revenue")
	assert.Contains(t, out, "Respond in French.")
}

func TestPromptCommand_NoSnapshot(t *testing.T) {
	chdir(t, t.TempDir())
	out, err := run(t, "prompt")
	require.NoError(t, err)
	assert.Contains(t, out, "bind data fields")
}

func TestAskCommand_Memory(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("REPORTCHAT_STORE_BACKEND", "memory")
	t.Setenv("REPORTCHAT_LLM_API_KEY", "sk-test")
	t.Setenv("REPORTCHAT_LLM_DUMMY_SCRIPT", "msg:North leads with 1200.5")

	out, err := run(t, "ask", "--snapshot", writeSnapshot(t, dir), "Which", "region", "leads?")
	require.NoError(t, err)
	assert.Contains(t, out, "North leads with 1200.5")
}

func TestAskCommand_SQLiteRecordsEvents(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	dbPath := filepath.Join(dir, "reportchat.db")
	t.Setenv("REPORTCHAT_DB_PATH", dbPath)
	t.Setenv("REPORTCHAT_LLM_API_KEY", "sk-test")
	t.Setenv("REPORTCHAT_LLM_DUMMY_SCRIPT", "err:boom")

	out, err := run(t, "ask", "hello")
	require.Error(t, err)
	assert.Contains(t, out, "Error:")

	database, err := db.OpenDB(dbPath)
	require.NoError(t, err)
	defer database.Close()
	for _, event := range []string{db.EventProcessStarted, db.EventRequestStarted, db.EventRequestFailed} {
		n, err := db.CountEvents(database, event)
		require.NoError(t, err)
		assert.Equal(t, 1, n, event)
	}
}

func TestAskCommand_MissingKey(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("REPORTCHAT_STORE_BACKEND", "memory")

	_, err := run(t, "ask", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestRoot_InvalidConfig(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("REPORTCHAT_STORE_BACKEND", "cassandra")

	_, err := run(t, "providers")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REPORTCHAT_STORE_BACKEND")
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
