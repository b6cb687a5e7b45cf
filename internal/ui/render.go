package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ludexapp/ludex/internal/paging"
)

// Load states shown in the status badge.
const (
	statusLoading = "loading"
	statusPartial = "partial"
	statusLoaded  = "loaded"
	statusEmpty   = "empty"
	statusError   = "error"
)

// statusOf classifies a collection for the status badge.
func statusOf(st paging.Status) string {
	switch {
	case st.LastError != nil:
		return statusError
	case st.Refreshing || !st.InitialLoadComplete:
		return statusLoading
	case st.Total == 0:
		return statusEmpty
	case st.HasAnotherPage:
		return statusPartial
	default:
		return statusLoaded
	}
}

// View renders the whole screen.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderBody())
	b.WriteString("\n")
	if m.prompt != promptNone {
		b.WriteString(m.renderPrompt())
	} else {
		b.WriteString(m.renderStatus())
	}
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	return b.String()
}

func (m *Model) renderBody() string {
	w, h := m.bodySize()
	var content string
	switch {
	case m.showHelp:
		content = m.help.FullHelpView(m.keys.FullHelp())
	case m.current == viewActivity:
		content = m.renderActivity()
	default:
		if p := m.panes[m.current]; p != nil {
			content = p.View()
		}
	}
	return lipgloss.NewStyle().Width(w).Height(h).MaxHeight(h).Render(content)
}

func (m *Model) renderActivity() string {
	styles := m.theme.Styles()
	switch {
	case m.activity.path == "":
		return styles.MutedText.Render("Logging to a file is disabled")
	case m.activity.err != nil:
		return styles.DangerText.Render(m.activity.err.Error())
	case len(m.activity.entries) == 0:
		return styles.MutedText.Render("No log entries")
	}
	return m.activity.viewport.View()
}

// renderHeader draws the logo and the view tabs.
func (m *Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := newSurface(m.theme.Surface)

	parts := []string{bg.paint("ludex", styles.Logo)}
	for v := range viewCount {
		if v != viewActivity && m.panes[v] == nil {
			continue
		}
		style := styles.MutedText
		if v == m.current {
			style = styles.AccentText.Bold(true)
		}
		parts = append(parts, bg.paint(viewNames[v], style))
	}
	if scope := m.scopeLabel(); scope != "" {
		parts = append(parts, bg.paint(scope, styles.FaintText))
	}
	return styles.Header.Width(m.width).MaxHeight(1).Render(bg.join(parts))
}

// scopeLabel names what the current drill-down view is showing.
func (m *Model) scopeLabel() string {
	switch m.current {
	case viewReleases:
		if len(m.releasesFor) == 1 {
			if p, ok := m.session.Platforms().GetModel(m.releasesFor[0]); ok {
				return "on " + p.Name
			}
		}
		return fmt.Sprintf("on %d platforms", len(m.releasesFor))
	case viewItems:
		return "in " + truncate(m.itemsOf.Name, 32)
	case viewActivity:
		var parts []string
		if m.activity.filter.MinLevel != "" {
			parts = append(parts, m.activity.filter.MinLevel+"+")
		}
		if m.activity.filter.Contains != "" {
			parts = append(parts, "/"+truncate(m.activity.filter.Contains, 18))
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// renderStatus draws the load badge, the totals and the last message.
func (m *Model) renderStatus() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := newSurface(m.theme.Surface)

	var parts []string
	if m.current == viewActivity {
		parts = append(parts,
			bg.field("Lines:", styles.MutedText, fmt.Sprintf("%d", len(m.activity.entries)), styles.Text))
		if m.activity.path != "" {
			parts = append(parts, bg.paint(truncateMiddle(m.activity.path, 50), styles.FaintText))
		}
	} else if p := m.panes[m.current]; p != nil {
		st := p.Status()
		status := statusOf(st)
		badge := styles.StatusStyle(status).Render(strings.ToUpper(status))
		if st.Refreshing {
			badge += bg.blank(1) + bg.paint(m.spinner.View(), styles.AccentText)
		}
		parts = append(parts, badge,
			bg.field("Rows:", styles.MutedText, fmt.Sprintf("%d of %d", st.Loaded, st.Total), styles.Text))
		if st.LastError != nil {
			parts = append(parts,
				bg.field("ERROR", styles.DangerText, truncate(st.LastError.Error(), m.messageWidth()), styles.DangerText))
		}
	}

	switch {
	case m.flashErr != nil:
		parts = append(parts,
			bg.field("!", styles.WarningText.Bold(true), truncate(m.flashErr.Error(), m.messageWidth()), styles.WarningText))
	case m.flash != "":
		parts = append(parts, bg.paint(truncate(m.flash, m.messageWidth()), styles.InfoText))
	}

	if !m.updated.IsZero() && m.width >= 100 {
		parts = append(parts, bg.paint("updated "+humanizeDuration(time.Since(m.updated)), styles.FaintText))
	}
	return styles.Footer.Width(m.width).MaxHeight(1).Render(bg.join(parts))
}

func (m *Model) messageWidth() int {
	if m.width < 100 {
		return 40
	}
	return 80
}

func (m *Model) renderPrompt() string {
	return newSurface(m.theme.Surface).fill(" "+m.input.View(), m.width)
}

// renderCommandBar lists the keys that apply to the current view.
func (m *Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := newSurface(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch {
	case m.prompt == promptFilter:
		commands = []cmd{{"Enter", "Keep"}, {"Esc", "Revert"}}
	case m.prompt != promptNone:
		commands = []cmd{{"Enter", "Confirm"}, {"Esc", "Cancel"}}
	case m.current == viewActivity:
		level := m.activity.filter.MinLevel
		if level == "" {
			level = "all"
		}
		commands = []cmd{
			{"j/k", "Scroll"},
			{"f", "Level " + level},
			{"/", "Search"},
			{"x", "Clear"},
			{"Tab", "View"},
			{"?", "More"},
		}
	case m.current == viewPlatforms:
		commands = []cmd{
			{"Space", fmt.Sprintf("Select (%d)", len(m.selected))},
			{"Enter", "Releases"},
			{"/", "Search"},
			{"f", "Filter"},
			{"s", "Sort"},
			{"Tab", "View"},
			{"?", "More"},
		}
	case m.current == viewCollections:
		commands = []cmd{
			{"Enter", "Items"},
			{"n", "New"},
			{"d", "Delete"},
			{"/", "Search"},
			{"s", "Sort"},
			{"Tab", "View"},
			{"?", "More"},
		}
	case m.current == viewReleases:
		commands = []cmd{
			{"a", "Add"},
			{"/", "Search"},
			{"f", "Filter"},
			{"s", "Sort"},
			{"Tab", "View"},
			{"?", "More"},
		}
	default:
		commands = []cmd{
			{"d", "Remove"},
			{"f", "Filter"},
			{"s", "Sort"},
			{"Tab", "View"},
			{"?", "More"},
		}
	}

	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments, bg.binding(c.key, c.desc, styles.AccentText, styles.MutedText))
	}
	segments = append(segments, bg.binding("T", m.theme.Name, styles.AccentText, styles.MutedText))

	return styles.Header.Width(m.width).MaxHeight(1).Render(bg.join(segments))
}
