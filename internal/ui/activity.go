package ui

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ludexapp/ludex/internal/logtail"
)

const (
	activityMaxLines = 500
	activityRefresh  = 2 * time.Second
)

// activityLevels is the order the level filter cycles through.
var activityLevels = []string{"", "info", "warn", "error"}

type activityState struct {
	path     string
	viewport viewport.Model
	filter   logtail.Filter
	entries  []logtail.Entry
	err      error
	ticking  bool
	// follow keeps the view pinned to the newest line.
	follow bool
}

type activityMsg struct {
	entries []logtail.Entry
	err     error
}

type activityTickMsg struct{}

func newActivity(path string) activityState {
	return activityState{
		path:     path,
		viewport: viewport.New(0, 0),
		follow:   true,
	}
}

func activityTick() tea.Cmd {
	return tea.Tick(activityRefresh, func(time.Time) tea.Msg { return activityTickMsg{} })
}

func (m *Model) loadActivity() tea.Cmd {
	path, filter := m.activity.path, m.activity.filter
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		entries, err := logtail.Tail(path, activityMaxLines, filter)
		if errors.Is(err, fs.ErrNotExist) {
			err = nil
		}
		return activityMsg{entries: entries, err: err}
	}
}

func (m *Model) applyActivity(msg activityMsg) {
	a := &m.activity
	a.err = msg.err
	if msg.err != nil {
		return
	}
	a.entries = msg.entries
	a.viewport.SetContent(m.renderEntries(a.entries))
	if a.follow {
		a.viewport.GotoBottom()
	}
}

func (m *Model) handleActivityKey(msg tea.KeyMsg) tea.Cmd {
	a := &m.activity
	switch {
	case key.Matches(msg, m.keys.Up):
		a.viewport.ScrollUp(1)
	case key.Matches(msg, m.keys.Down):
		a.viewport.ScrollDown(1)
	case key.Matches(msg, m.keys.PageUp):
		a.viewport.HalfPageUp()
	case key.Matches(msg, m.keys.PageDown):
		a.viewport.HalfPageDown()
	case key.Matches(msg, m.keys.Top):
		a.viewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		a.viewport.GotoBottom()
	case key.Matches(msg, m.keys.Filter):
		a.filter.MinLevel = nextLevel(a.filter.MinLevel)
		return m.loadActivity()
	case key.Matches(msg, m.keys.Search):
		return m.openPrompt(promptLogSearch, "Log search: ", a.filter.Contains, "text")
	case key.Matches(msg, m.keys.ClearFilters):
		a.filter = logtail.Filter{}
		return m.loadActivity()
	}
	a.follow = a.viewport.AtBottom()
	return nil
}

func nextLevel(current string) string {
	for i, level := range activityLevels {
		if level == current {
			return activityLevels[(i+1)%len(activityLevels)]
		}
	}
	return activityLevels[0]
}

func (m *Model) renderEntries(entries []logtail.Entry) string {
	styles := m.theme.Styles()
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		if e.Level == "" && e.Time.IsZero() {
			b.WriteString(styles.MutedText.Render(e.Raw))
			continue
		}
		if !e.Time.IsZero() {
			b.WriteString(styles.FaintText.Render(e.Time.Local().Format("15:04:05")))
			b.WriteByte(' ')
		}
		b.WriteString(levelStyle(styles, e.Level).Render(levelLabel(e.Level)))
		b.WriteByte(' ')
		b.WriteString(styles.Text.Render(e.Message))
		for _, f := range e.Fields {
			b.WriteByte(' ')
			b.WriteString(styles.MutedText.Render(f.Key + "="))
			b.WriteString(styles.InfoText.Render(f.Value))
		}
	}
	return b.String()
}

func levelLabel(level string) string {
	if level == "" {
		return "----"
	}
	return strings.ToUpper(level[:min(len(level), 4)])
}

func levelStyle(s Styles, level string) lipgloss.Style {
	switch level {
	case "error", "fatal":
		return s.DangerText
	case "warn":
		return s.WarningText
	case "debug":
		return s.FaintText
	default:
		return s.InfoText
	}
}
