package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// SelectorItem represents an item in the selector
type SelectorItem struct {
	ID          string
	Label       string
	Description string
	Current     bool
	// Disabled items are shown dimmed and cannot be chosen.
	Disabled bool
}

// Selector is an interactive list selector
type Selector struct {
	title    string
	items    []SelectorItem
	cursor   int
	selected int
	active   bool
	width    int
}

// NewSelector creates a new selector with the cursor on the current item,
// or the first enabled one.
func NewSelector(title string, items []SelectorItem) Selector {
	selected := -1
	for i, item := range items {
		if item.Current && !item.Disabled {
			selected = i
			break
		}
	}
	if selected < 0 {
		selected = nextEnabled(items, -1, 1)
	}
	if selected < 0 {
		selected = 0
	}

	return Selector{
		title:    title,
		items:    items,
		cursor:   selected,
		selected: selected,
		active:   true,
		width:    80,
	}
}

// nextEnabled returns the index of the next enabled item from i in
// direction dir, or -1.
func nextEnabled(items []SelectorItem, i, dir int) int {
	for j := i + dir; j >= 0 && j < len(items); j += dir {
		if !items[j].Disabled {
			return j
		}
	}
	return -1
}

func (s *Selector) SetWidth(w int) {
	s.width = w
}

func (s *Selector) Active() bool {
	return s.active
}

// Cursor returns the index under the cursor.
func (s *Selector) Cursor() int {
	return s.cursor
}

// Selected returns the selected item ID, or empty if cancelled
func (s *Selector) Selected() string {
	if s.selected >= 0 && s.selected < len(s.items) {
		return s.items[s.selected].ID
	}
	return ""
}

// Cancelled returns whether the selector was cancelled
func (s *Selector) Cancelled() bool {
	return !s.active && s.selected == -1
}

func (s *Selector) choose(i int) {
	if i < 0 || i >= len(s.items) || s.items[i].Disabled {
		return
	}
	s.cursor = i
	s.selected = i
	s.active = false
}

// Update handles selector input. Digits 1-9 pick an item directly.
func (s *Selector) Update(msg tea.Msg) (*Selector, tea.Cmd) {
	if !s.active {
		return s, nil
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}
	switch k := key.String(); k {
	case "up", "k":
		if i := nextEnabled(s.items, s.cursor, -1); i >= 0 {
			s.cursor = i
		}
	case "down", "j":
		if i := nextEnabled(s.items, s.cursor, 1); i >= 0 {
			s.cursor = i
		}
	case "enter":
		s.choose(s.cursor)
	case "esc", "q":
		s.selected = -1
		s.active = false
	default:
		if len(k) == 1 && k[0] >= '1' && k[0] <= '9' {
			s.choose(int(k[0] - '1'))
		}
	}
	return s, nil
}

// View renders the selector
func (s *Selector) View() string {
	if !s.active {
		return ""
	}

	var b strings.Builder

	b.WriteString(HelpStyle.Render(s.title + " (↑/↓ navigate, enter select, esc cancel)"))
	b.WriteString("\n\n")

	labelWidth := max(20, min(35, s.width/2))
	for i, item := range s.items {
		isCursor := i == s.cursor

		if isCursor {
			b.WriteString(SelectorCursor.Render(SymbolArrow) + " ")
		} else {
			b.WriteString("  ")
		}

		display := item.Label
		if display == "" {
			display = item.ID
		}
		label := fmt.Sprintf("%-*s", labelWidth, display)
		switch {
		case item.Disabled:
			b.WriteString(SelectorDim.Render(label))
		case isCursor:
			b.WriteString(SelectorActive.Render(label))
		default:
			b.WriteString(SelectorItemStyle.Render(label))
		}

		desc := item.Description
		if item.Current {
			desc = strings.TrimSpace(desc + " (current)")
		}
		if item.Disabled {
			desc = strings.TrimSpace(desc + " (unavailable)")
		}
		if desc != "" {
			b.WriteString(SelectorDim.Render(desc))
		}

		b.WriteString("\n")
	}

	return b.String()
}
