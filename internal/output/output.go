// Package output provides consistent CLI output formatting. Styling is
// applied only when stdout is a terminal; redirected output stays plain.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Color palette (256-color codes).
const (
	colorGreen  = "40"
	colorYellow = "220"
	colorRed    = "196"
	colorGray   = "245"
	colorWhite  = "255"
)

// styles holds the output styles.
type styles struct {
	header  lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	errs    lipgloss.Style
	dim     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorWhite)),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen)),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		errs:    lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
	}
}

// Writer provides formatted output for CLI commands.
type Writer struct {
	out      io.Writer
	useColor bool
	styles   styles
}

// New creates a Writer. Color is enabled when out is the process stdout
// and stdout is a terminal.
func New(out io.Writer) *Writer {
	useColor := false
	if f, ok := out.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Writer{out: out, useColor: useColor, styles: defaultStyles()}
}

// Header prints a bold section header.
func (w *Writer) Header(msg string) {
	w.println(w.styles.header, msg)
}

// Headerf prints a formatted section header.
func (w *Writer) Headerf(format string, args ...any) {
	w.Header(fmt.Sprintf(format, args...))
}

// Success prints a success message.
func (w *Writer) Success(msg string) {
	w.println(w.styles.success, "✓ "+msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.println(w.styles.warning, "! "+msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.println(w.styles.errs, "✗ "+msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Dim prints secondary text.
func (w *Writer) Dim(msg string) {
	w.println(w.styles.dim, msg)
}

// Plain prints a message with no styling.
func (w *Writer) Plain(msg string) {
	_, _ = fmt.Fprintln(w.out, msg)
}

// Plainf prints a formatted message with no styling.
func (w *Writer) Plainf(format string, args ...any) {
	w.Plain(fmt.Sprintf(format, args...))
}

// Code prints an indented block.
func (w *Writer) Code(content string) {
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

func (w *Writer) println(style lipgloss.Style, msg string) {
	if w.useColor {
		msg = style.Render(msg)
	}
	_, _ = fmt.Fprintln(w.out, msg)
}
