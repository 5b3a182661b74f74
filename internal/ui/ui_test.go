package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestPrinterPlainWithoutColor(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.Success("done")
	if got := buf.String(); got != "done\n" {
		t.Errorf("Success() = %q, want plain text", got)
	}

	buf.Reset()
	p.Error(errors.New("boom"))
	if got := buf.String(); got != "Error: boom\n" {
		t.Errorf("Error() = %q, want plain text", got)
	}
}

func TestPrinterKeyValue(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.KeyValue("Branch", "cub-sync")
	if got := buf.String(); got != "Branch: cub-sync\n" {
		t.Errorf("KeyValue() = %q", got)
	}
}

func TestPrinterTable(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.Table(
		[]string{"ID", "TITLE"},
		[][]string{
			{"T1", "first task"},
			{"T200", "x"},
		},
	)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Table() produced %d lines, want 3", len(lines))
	}
	// Columns align on the widest cell.
	if !strings.HasPrefix(lines[1], "T1    first task") {
		t.Errorf("row = %q, want padded columns", lines[1])
	}
}

func TestRenderHelpersPlainWhenNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	for _, render := range []func(string) string{RenderAccent, RenderPass, RenderWarn, RenderFail} {
		if got := render("x"); got != "x" {
			t.Errorf("render with NO_COLOR = %q, want x", got)
		}
	}
}
