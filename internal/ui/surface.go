package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// surface paints bar segments on one background color. Words and the spaces
// between them are styled separately so a reset code never leaves a gap in
// the background.
type surface struct {
	base lipgloss.Style
}

func newSurface(color string) surface {
	return surface{base: lipgloss.NewStyle().Background(lipgloss.Color(color))}
}

func (s surface) paint(text string, style lipgloss.Style) string {
	if text == "" {
		return ""
	}
	style = style.Background(s.base.GetBackground())
	words := strings.Split(text, " ")
	for i, w := range words {
		if w != "" {
			words[i] = style.Render(w)
		}
	}
	return strings.Join(words, s.blank(1))
}

func (s surface) blank(n int) string {
	return s.base.Render(strings.Repeat(" ", n))
}

// field renders "label value" with the two parts in their own styles.
func (s surface) field(label string, labelStyle lipgloss.Style, value string, valueStyle lipgloss.Style) string {
	return s.paint(label, labelStyle) + s.blank(1) + s.paint(value, valueStyle)
}

// binding renders "key:desc" for the command bar.
func (s surface) binding(key, desc string, keyStyle, descStyle lipgloss.Style) string {
	return s.paint(key, keyStyle) + s.base.Render(":") + s.paint(desc, descStyle)
}

// join separates segments with two painted spaces.
func (s surface) join(segments []string) string {
	return strings.Join(segments, s.blank(2))
}

func (s surface) fill(content string, width int) string {
	return s.base.Width(width).Render(content)
}
