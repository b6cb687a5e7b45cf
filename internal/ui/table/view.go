package table

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ludexapp/ludex/internal/catalog"
)

// Styles used by the table.
type Styles struct {
	Header        lipgloss.Style
	HeaderFocused lipgloss.Style
	Cell          lipgloss.Style
	Cursor        lipgloss.Style
	Marked        lipgloss.Style
	Muted         lipgloss.Style
}

// DefaultStyles returns uncoloured styles.
func DefaultStyles() Styles {
	return Styles{
		Header:        lipgloss.NewStyle().Bold(true),
		HeaderFocused: lipgloss.NewStyle().Bold(true).Underline(true),
		Cell:          lipgloss.NewStyle(),
		Cursor:        lipgloss.NewStyle().Reverse(true),
		Marked:        lipgloss.NewStyle().Bold(true),
		Muted:         lipgloss.NewStyle().Faint(true),
	}
}

const (
	colGap      = 2
	minColWidth = 6
	marker      = "[ ]"
	markerOn    = "[x]"
)

// View renders the header and the visible window of rows.
func (m *Model[T]) View() string {
	widths := m.columnWidths()
	var b strings.Builder
	b.WriteString(m.renderHeader(widths))

	body := m.bodyHeight()
	switch {
	case len(m.rows) == 0 && m.state.Refreshing:
		b.WriteString("\n" + m.styles.Muted.Render("Loading..."))
	case len(m.rows) == 0 && m.state.NoResults():
		b.WriteString("\n" + m.styles.Muted.Render("No results"))
	case len(m.rows) == 0 && m.state.InitialLoadComplete:
		b.WriteString("\n" + m.styles.Muted.Render("No matching rows"))
	}

	end := min(m.offset+body, len(m.rows))
	for i := m.offset; i < end; i++ {
		b.WriteString("\n")
		b.WriteString(m.renderRow(i, widths))
	}
	return b.String()
}

func (m *Model[T]) renderHeader(widths []int) string {
	cells := make([]string, 0, len(m.cols)+1)
	if m.sel != nil {
		cells = append(cells, strings.Repeat(" ", len(marker)))
	}
	for i, c := range m.cols {
		title := c.Title
		if i == m.sortCol {
			if m.sortDir == catalog.Desc {
				title += " ▼"
			} else {
				title += " ▲"
			}
		}
		if v := m.input[i]; v != "" {
			title += " [" + v + "]"
		}
		style := m.styles.Header
		if i == m.focus {
			style = m.styles.HeaderFocused
		}
		cells = append(cells, style.Render(fit(title, widths[i])))
	}
	return strings.Join(cells, strings.Repeat(" ", colGap))
}

func (m *Model[T]) renderRow(i int, widths []int) string {
	rec := m.rows[i]
	cells := make([]string, 0, len(m.cols)+1)
	marked := false
	if m.sel != nil {
		mark := marker
		if m.sel.Selected != nil && m.sel.Selected(rec.RecordID()) {
			mark, marked = markerOn, true
		}
		cells = append(cells, mark)
	}
	for j, c := range m.cols {
		cells = append(cells, fit(c.Value(rec), widths[j]))
	}
	line := strings.Join(cells, strings.Repeat(" ", colGap))
	switch {
	case i == m.cursor:
		return m.styles.Cursor.Render(line)
	case marked:
		return m.styles.Marked.Render(line)
	default:
		return m.styles.Cell.Render(line)
	}
}

// columnWidths honours fixed widths and shares what remains among the rest.
func (m *Model[T]) columnWidths() []int {
	widths := make([]int, len(m.cols))
	avail := m.width - colGap*max(len(m.cols)-1, 0)
	if m.sel != nil {
		avail -= len(marker) + colGap
	}
	flex := 0
	for i, c := range m.cols {
		if c.Width > 0 {
			widths[i] = c.Width
			avail -= c.Width
			continue
		}
		flex++
	}
	for i, c := range m.cols {
		if c.Width > 0 {
			continue
		}
		share := minColWidth
		if flex > 0 {
			share = max(avail/flex, minColWidth)
		}
		widths[i] = share
	}
	return widths
}

// fit truncates or pads s to exactly width cells.
func fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if lipgloss.Width(s) > width {
		if width <= 1 {
			return string(runes[:width])
		}
		for lipgloss.Width(string(runes)) > width-1 {
			runes = runes[:len(runes)-1]
		}
		return string(runes) + "…"
	}
	return s + strings.Repeat(" ", width-lipgloss.Width(s))
}
