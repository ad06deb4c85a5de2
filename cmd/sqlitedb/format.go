package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

func getTerminalWidth() int {
	// Try to get terminal width from stdout
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	// Default width if terminal size cannot be determined
	return 80
}

func outputJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// cellText renders a scalar from the driver for a terminal cell.
func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(x))
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// cellWidth splits the terminal width evenly across columns, keeping each
// column at least minWidth wide.
func cellWidth(termWidth, columns, minWidth int) int {
	if columns <= 0 {
		return termWidth
	}
	// Reserve space for table borders and padding (roughly 3 chars per column)
	width := (termWidth - columns*3 - 1) / columns
	if width < minWidth {
		width = minWidth
	}
	return width
}

// wrapString wraps a string to fit within maxWidth, accounting for multi-byte characters
func wrapString(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return s
	}

	s = strings.TrimSpace(s)
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}

	var result strings.Builder
	currentWidth := 0
	for _, r := range s {
		charWidth := runewidth.RuneWidth(r)
		if currentWidth > 0 && currentWidth+charWidth > maxWidth {
			result.WriteByte('\n')
			currentWidth = 0
		}
		result.WriteRune(r)
		currentWidth += charWidth
	}
	return result.String()
}

// renderRows draws positional rows as a table sized to the terminal. Cells
// are truncated by display width so wide characters stay aligned.
func renderRows(w io.Writer, columns []string, rows [][]any, termWidth int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	width := cellWidth(termWidth, len(columns), 8)

	header := make(table.Row, len(columns))
	for i, c := range columns {
		header[i] = runewidth.Truncate(c, width, "...")
	}
	t.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, v := range row {
			text := strings.ReplaceAll(cellText(v), "\n", " ")
			r[i] = runewidth.Truncate(text, width, "...")
		}
		t.AppendRow(r)
	}

	t.Render()
}
