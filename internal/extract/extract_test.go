package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/docdex/docdex/internal/errors"
)

type mockRunner struct {
	output []byte
	err    error

	name string
	args []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.name = name
	m.args = args
	return m.output, m.err
}

func TestPlainText_Extract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello docdex\n"), 0o644))

	text, err := PlainText{}.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "hello docdex\n", text)
}

func TestPlainText_Extract_MissingFile(t *testing.T) {
	_, err := PlainText{}.Extract(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeFileNotFound, errs.GetCode(err))
}

func TestPDF_Extract_InvokesPdftotext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	runner := &mockRunner{output: []byte("extracted pdf text")}
	p := NewPDF(runner)

	text, err := p.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "extracted pdf text", text)
	assert.Equal(t, "pdftotext", runner.name)
	assert.Equal(t, []string{"-q", path, "-"}, runner.args)
}

func TestPDF_Extract_MissingFileSkipsRunner(t *testing.T) {
	runner := &mockRunner{output: []byte("should not be used")}
	p := NewPDF(runner)

	_, err := p.Extract(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeFileNotFound, errs.GetCode(err))
	assert.Empty(t, runner.name, "runner must not run for a missing file")
}

func TestPDF_Extract_RunnerFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	p := NewPDF(&mockRunner{err: errors.New("exit status 1")})

	_, err := p.Extract(context.Background(), path)
	require.Error(t, err)
}

func TestForFile_SelectsByExtension(t *testing.T) {
	assert.IsType(t, &PDF{}, ForFile("report.pdf"))
	assert.IsType(t, &PDF{}, ForFile("REPORT.PDF"))
	assert.IsType(t, PlainText{}, ForFile("notes.txt"))
	assert.IsType(t, PlainText{}, ForFile("readme.md"))
	assert.IsType(t, PlainText{}, ForFile("no-extension"))
}

func TestFile_ReadsPlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memo.md")
	require.NoError(t, os.WriteFile(path, []byte("# Memo"), 0o644))

	text, err := File(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "# Memo", text)
}
