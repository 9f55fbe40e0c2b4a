package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/index"
)

// run executes one subcommand in isolation and returns its combined output.
func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestInitCmd_CreatesIndexAndConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := run(t, newInitCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized empty index")

	assert.FileExists(t, config.ConfigFileName)
	assert.FileExists(t, filepath.Join(".docdex", "index", "index_meta.json"))
}

func TestInitCmd_SecondRunWarnsWithoutForce(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := run(t, newInitCmd())
	require.NoError(t, err)

	out, err := run(t, newInitCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")

	out, err = run(t, newInitCmd(), "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized empty index")
}

func TestAddCmd_RequiresIndex(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := run(t, newAddCmd(), "--id", "a", "--content", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docdex init")
}

func TestAddCmd_InlineContentValidation(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := run(t, newInitCmd())
	require.NoError(t, err)

	_, err = run(t, newAddCmd(), "--content", "text without id")
	require.Error(t, err)

	_, err = run(t, newAddCmd())
	require.Error(t, err)
}

func TestWorkflow_AddSearchList(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := run(t, newInitCmd())
	require.NoError(t, err)

	out, err := run(t, newAddCmd(),
		"--id", "handbook", "--title", "Employee Handbook",
		"--content", "vacation days accrue monthly for all staff members")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 1 document(s) as 1 chunk(s)")

	out, err = run(t, newSearchCmd(), "--json", "vacation")
	require.NoError(t, err)

	var search index.SearchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &search))
	assert.Equal(t, uint64(1), search.TotalHits)
	require.Len(t, search.Results, 1)
	assert.Equal(t, "handbook-chunk-001", search.Results[0].ID)

	out, err = run(t, newListCmd(), "--json")
	require.NoError(t, err)

	var listing index.ListingOutput
	require.NoError(t, json.Unmarshal([]byte(out), &listing))
	assert.Equal(t, 1, listing.TotalDocuments)
	require.Len(t, listing.Documents, 1)
	assert.Equal(t, "Employee Handbook", listing.Documents[0].Title)
}

func TestAddCmd_IndexesFiles(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	_, err := run(t, newInitCmd())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "memo.txt"), []byte("project kickoff agenda"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("retro action items"), 0o644))

	out, err := run(t, newAddCmd(), "memo.txt", "notes.md")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 document(s)")

	out, err = run(t, newListCmd(), "--json")
	require.NoError(t, err)

	var listing index.ListingOutput
	require.NoError(t, json.Unmarshal([]byte(out), &listing))
	assert.Equal(t, 2, listing.TotalDocuments)
	assert.Equal(t, "memo", listing.Documents[0].SourceDocument)
	assert.Equal(t, "notes", listing.Documents[1].SourceDocument)
}

func TestBulkCmd_IndexesJSONArray(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	_, err := run(t, newInitCmd())
	require.NoError(t, err)

	entries := `[
		{"id": "policy", "title": "Leave Policy", "content": "annual leave rules"},
		{"id": "", "title": "Broken", "content": "missing id"},
		{"id": "org", "title": "Org Chart", "content": "team structure overview"}
	]`
	path := filepath.Join(dir, "entries.json")
	require.NoError(t, os.WriteFile(path, []byte(entries), 0o644))

	out, err := run(t, newBulkCmd(), path)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 document(s)")
	assert.Contains(t, out, "skipped")
}

func TestBulkCmd_RejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	_, err := run(t, newInitCmd())
	require.NoError(t, err)

	path := filepath.Join(dir, "entries.json")
	require.NoError(t, os.WriteFile(path, []byte("{not an array"), 0o644))

	_, err = run(t, newBulkCmd(), path)
	require.Error(t, err)
}

func TestSearchCmd_NoResultsMessage(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := run(t, newInitCmd())
	require.NoError(t, err)

	out, err := run(t, newSearchCmd(), "anything")
	require.NoError(t, err)
	assert.Contains(t, out, "No results")
}

func TestStatsCmd_NoTelemetryYet(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := run(t, newStatsCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "No telemetry recorded yet")
}
