package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// DefaultWidth is used when the terminal width is unknown.
const DefaultWidth = 100

// Table is a plain column layout for command output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render lays the table out within width, shrinking the rightmost wide
// columns first.
func (t *Table) Render(width int) string {
	cols := len(t.Headers)
	if cols == 0 {
		return ""
	}

	colW := make([]int, cols)
	for c := 0; c < cols; c++ {
		colW[c] = lipgloss.Width(t.Headers[c])
	}
	for _, row := range t.Rows {
		for c := 0; c < cols && c < len(row); c++ {
			if l := lipgloss.Width(row[c]); l > colW[c] {
				colW[c] = l
			}
		}
	}

	const sep = 3 // " | "
	avail := width
	if avail < 20 {
		avail = 20
	}
	for totalWidth(colW, sep) > avail {
		shrunk := false
		for c := cols - 1; c >= 0; c-- {
			if colW[c] > 6 {
				colW[c]--
				shrunk = true
				break
			}
		}
		if !shrunk {
			break
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString(TitleStyle.Render(t.Title))
		b.WriteString("\n")
	}
	b.WriteString(LabelStyle.UnsetWidth().Render(renderRow(t.Headers, colW)))
	b.WriteString("\n")
	b.WriteString(DimStyle.Render(renderSep(colW, sep)))
	for _, row := range t.Rows {
		b.WriteString("\n")
		b.WriteString(renderRow(row, colW))
	}
	return b.String()
}

func totalWidth(colW []int, sep int) int {
	total := 0
	for _, w := range colW {
		total += w
	}
	return total + sep*(len(colW)-1)
}

func renderSep(colW []int, sep int) string {
	var b strings.Builder
	for c, w := range colW {
		if c > 0 {
			b.WriteString(strings.Repeat("-", sep))
		}
		b.WriteString(strings.Repeat("-", w))
	}
	return b.String()
}

func renderRow(cells []string, colW []int) string {
	var b strings.Builder
	for c, w := range colW {
		if c > 0 {
			b.WriteString(" | ")
		}
		val := ""
		if c < len(cells) {
			val = cells[c]
		}
		b.WriteString(padRight(Truncate(val, w), w))
	}
	return strings.TrimRight(b.String(), " ")
}

func padRight(s string, w int) string {
	if n := lipgloss.Width(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}

// Truncate cuts s to w display cells, marking the cut with "...".
func Truncate(s string, w int) string {
	if w <= 0 || lipgloss.Width(s) <= w {
		return s
	}
	runes := []rune(s)
	limit := w - 3
	if w <= 3 {
		limit = w
	}
	for len(runes) > 0 && lipgloss.Width(string(runes)) > limit {
		runes = runes[:len(runes)-1]
	}
	if w <= 3 {
		return string(runes)
	}
	return string(runes) + "..."
}
