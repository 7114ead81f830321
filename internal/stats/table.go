package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const ellipsis = "…"

// column describes one text-table column. A zero MaxWidth means unbounded.
type column struct {
	Title    string
	Right    bool
	MaxWidth int
}

// formatTable lays rows out under cols, one space between columns. Cells
// wider than a column's MaxWidth are cut with an ellipsis; widths are
// measured in terminal cells so wide glyphs stay aligned.
func formatTable(cols []column, rows [][]string) []string {
	if len(cols) == 0 {
		return nil
	}
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = runewidth.StringWidth(c.Title)
	}
	cells := make([][]string, len(rows))
	for r, row := range rows {
		cells[r] = make([]string, len(cols))
		for i, c := range cols {
			if i >= len(row) {
				continue
			}
			cell := row[i]
			if c.MaxWidth > 0 && runewidth.StringWidth(cell) > c.MaxWidth {
				cell = runewidth.Truncate(cell, c.MaxWidth, ellipsis)
			}
			cells[r][i] = cell
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	lines := make([]string, 0, len(rows)+1)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Title
	}
	lines = append(lines, formatRow(cols, header, widths))
	for _, row := range cells {
		lines = append(lines, formatRow(cols, row, widths))
	}
	return lines
}

func formatRow(cols []column, row []string, widths []int) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		if c.Right {
			parts[i] = runewidth.FillLeft(row[i], widths[i])
		} else {
			parts[i] = runewidth.FillRight(row[i], widths[i])
		}
	}
	return strings.TrimRight(strings.Join(parts, " "), " ")
}
