// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var headerStyle = lipgloss.NewStyle().Bold(true)

// Table is a list of rows rendered as aligned columns.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Append adds one row.
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render writes the table to w. Headers are bold when styled is true.
// Columns are padded by display width, so wide runes stay aligned.
func (t *Table) Render(w io.Writer, styled bool) error {
	widths := make([]int, len(t.Headers))
	for i, header := range t.Headers {
		widths[i] = lipgloss.Width(header)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	var out strings.Builder
	writeRow := func(cells []string, header bool) {
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			padded := cell
			if i < len(widths)-1 {
				padded += strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+2)
			}
			if header && styled {
				padded = headerStyle.Render(padded)
			}
			out.WriteString(padded)
		}
		out.WriteString("\n")
	}
	writeRow(t.Headers, true)
	for _, row := range t.Rows {
		writeRow(row, false)
	}
	_, err := io.WriteString(w, out.String())
	return err
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
