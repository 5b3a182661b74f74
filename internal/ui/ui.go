// Package ui renders human-readable command output.
//
// Colors are applied only when the destination supports them, so piped
// output stays plain.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles holds the lipgloss styles applied to output.
type Styles struct {
	Error   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Bold    lipgloss.Style
	Dim     lipgloss.Style
	Key     lipgloss.Style
}

// Printer writes styled output to a writer.
type Printer struct {
	w      io.Writer
	errW   io.Writer
	styles *Styles
}

// NewPrinter creates a Printer. Colors are enabled only when color is true.
func NewPrinter(w io.Writer, color bool) *Printer {
	styles := &Styles{}
	if color {
		styles.Error = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
		styles.Success = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
		styles.Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
		styles.Bold = lipgloss.NewStyle().Bold(true)
		styles.Dim = lipgloss.NewStyle().Faint(true)
		styles.Key = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	}
	return &Printer{w: w, errW: w, styles: styles}
}

// NewStdoutPrinter creates a Printer for stdout with automatic color
// detection, sending errors and warnings to stderr.
func NewStdoutPrinter() *Printer {
	p := NewPrinter(os.Stdout, ColorEnabled())
	p.errW = os.Stderr
	return p
}

// ColorEnabled reports whether stdout supports colored output.
// NO_COLOR and dumb terminals disable it.
func ColorEnabled() bool {
	out := termenv.NewOutput(os.Stdout)
	return !out.EnvNoColor() && out.ColorProfile() != termenv.Ascii
}

// Success prints a styled success line.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.w, p.styles.Success.Render(fmt.Sprintf(format, args...)))
}

// Error prints a styled error line to the error writer.
func (p *Printer) Error(err error) {
	fmt.Fprintf(p.errW, "%s: %s\n", p.styles.Error.Render("Error"), err.Error())
}

// Warn prints a styled warning line to the error writer.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintf(p.errW, "%s: %s\n", p.styles.Warning.Render("Warning"), fmt.Sprintf(format, args...))
}

// Print formats and writes to the output without styling.
func (p *Printer) Print(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

// Println writes a plain line to the output.
func (p *Printer) Println(args ...any) {
	fmt.Fprintln(p.w, args...)
}

// KeyValue prints "key: value" with the key styled.
func (p *Printer) KeyValue(key, value string) {
	fmt.Fprintf(p.w, "%s %s\n", p.styles.Key.Render(key+":"), value)
}

// Dim prints a de-emphasized line.
func (p *Printer) Dim(format string, args ...any) {
	fmt.Fprintln(p.w, p.styles.Dim.Render(fmt.Sprintf(format, args...)))
}

// Table renders rows with space-aligned columns, headers in bold.
func (p *Printer) Table(headers []string, rows [][]string) {
	if len(headers) == 0 {
		return
	}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = p.styles.Bold.Render(padRight(h, widths[i]))
	}
	fmt.Fprintln(p.w, strings.Join(cells, "  "))
	for _, row := range rows {
		cells = cells[:0]
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			cells = append(cells, padRight(cell, widths[i]))
		}
		fmt.Fprintln(p.w, strings.Join(cells, "  "))
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
