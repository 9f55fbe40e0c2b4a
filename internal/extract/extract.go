// Package extract turns source files into indexable text. Plain text files
// are read directly; PDFs go through the external pdftotext tool behind a
// CommandRunner port so tests can stub the binary. Unknown file kinds fall
// back to plain-text reading.
package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	errs "github.com/docdex/docdex/internal/errors"
)

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Extractor extracts the text content of one file.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// PlainText reads a file as UTF-8 text.
type PlainText struct{}

// Extract implements Extractor.
func (PlainText) Extract(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errs.Wrap(errs.ErrCodeFileNotFound, fmt.Errorf("read %s: %w", path, err))
	}
	return string(data), nil
}

// PDF extracts PDF text by shelling out to pdftotext.
type PDF struct {
	runner CommandRunner
}

// NewPDF creates a PDF extractor. A nil runner uses the real pdftotext
// binary from PATH.
func NewPDF(runner CommandRunner) *PDF {
	if runner == nil {
		runner = execRunner{}
	}
	return &PDF{runner: runner}
}

// Extract implements Extractor. "-" sends the extracted text to stdout.
func (p *PDF) Extract(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", errs.Wrap(errs.ErrCodeFileNotFound, fmt.Errorf("stat %s: %w", path, err))
	}
	out, err := p.runner.Run(ctx, "pdftotext", "-q", path, "-")
	if err != nil {
		return "", errs.Wrap(errs.ErrCodeFileNotFound,
			fmt.Errorf("extract %s with pdftotext: %w", path, err))
	}
	return string(out), nil
}

// ForFile returns the extractor for the given file based on its extension.
func ForFile(path string) Extractor {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return NewPDF(nil)
	default:
		return PlainText{}
	}
}

// File extracts the text of one file using the extractor ForFile selects.
func File(ctx context.Context, path string) (string, error) {
	return ForFile(path).Extract(ctx, path)
}
