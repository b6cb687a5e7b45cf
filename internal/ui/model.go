package ui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/ludexapp/ludex/internal/catalog"
	"github.com/ludexapp/ludex/internal/logging"
	"github.com/ludexapp/ludex/internal/paging"
	"github.com/ludexapp/ludex/internal/prefs"
	"github.com/ludexapp/ludex/internal/session"
	"github.com/ludexapp/ludex/internal/ui/table"
)

type promptKind int

const (
	promptNone promptKind = iota
	promptFilter
	promptCreate
	promptLogSearch
)

// actionMsg reports the outcome of a user action.
type actionMsg struct {
	text string
	err  error
	// deleted is the id of a collection that no longer exists.
	deleted int64
}

// Model is the root bubbletea model.
type Model struct {
	ctx       context.Context
	session   *session.Session
	mutator   Mutator
	logger    *log.Logger
	prefs     prefs.Prefs
	prefsPath string

	keys    keyMap
	help    help.Model
	spinner spinner.Model
	input   textinput.Model

	theme    Theme
	width    int
	height   int
	current  view
	showHelp bool

	prompt       promptKind
	promptColumn int
	promptPrev   string

	panes   [viewCount]pane
	sources [viewCount]paging.Source
	startup tea.Cmd

	platformTable   *table.Model[catalog.Platform]
	collectionTable *table.Model[catalog.Collection]
	releaseTable    *table.Model[catalog.Release]
	itemTable       *table.Model[catalog.CollectionItem]

	// selected is the platform set the releases view is scoped to.
	selected    map[int64]bool
	releasesFor []int64
	items       *paging.Collection[catalog.CollectionItem]
	itemsOf     catalog.Collection

	activity activityState

	flash    string
	flashErr error
	updated  time.Time
}

// New builds the root model. The first pages load once the program starts.
func New(opts Options) *Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	input := textinput.New()
	input.CharLimit = 120
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	m := &Model{
		ctx:       ctx,
		session:   opts.Session,
		mutator:   opts.Mutator,
		logger:    logger.WithPrefix("ui"),
		prefs:     opts.Prefs,
		prefsPath: opts.PrefsPath,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		spinner:   sp,
		input:     input,
		theme:     GetTheme(opts.Prefs.Theme),
		selected:  map[int64]bool{},
		activity:  newActivity(opts.LogFile),
	}

	platforms := m.session.Platforms()
	m.platformTable, m.startup = newPane(m, viewPlatforms, platforms, platformColumns(), &table.Selection{
		Selected: func(id int64) bool { return m.selected[id] },
		Toggle: func(id int64) {
			if m.selected[id] {
				delete(m.selected, id)
				return
			}
			m.selected[id] = true
		},
	})
	m.panes[viewPlatforms], m.sources[viewPlatforms] = m.platformTable, platforms

	collections := m.session.Collections()
	var collCmd tea.Cmd
	m.collectionTable, collCmd = newPane(m, viewCollections, collections, collectionColumns(), nil)
	m.panes[viewCollections], m.sources[viewCollections] = m.collectionTable, collections
	m.startup = tea.Batch(m.startup, collCmd)
	return m
}

// Init starts the first loads and the spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.startup, m.spinner.Tick)
}

// Close releases every table subscription.
func (m *Model) Close() {
	for _, p := range m.panes {
		if p != nil {
			p.Close()
		}
	}
}

// Update handles one message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, m.resize()

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case actionMsg:
		m.flash, m.flashErr = msg.text, msg.err
		if msg.err != nil {
			m.logger.Warn("action failed", "err", msg.err)
		} else if msg.text != "" {
			m.logger.Info(msg.text)
		}
		if msg.deleted != 0 && msg.deleted == m.itemsOf.ID {
			m.closeItems()
		}
		return m, nil

	case activityMsg:
		m.applyActivity(msg)
		return m, nil

	case activityTickMsg:
		if m.current != viewActivity {
			m.activity.ticking = false
			return m, nil
		}
		return m, tea.Batch(m.loadActivity(), activityTick())
	}

	cmds := make([]tea.Cmd, 0, len(m.panes)+1)
	for _, p := range m.panes {
		if p != nil {
			cmds = append(cmds, p.Update(msg))
		}
	}
	if m.prompt != promptNone {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.updated = time.Now()
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.prompt != promptNone {
		return m.handlePromptKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return nil
	case m.showHelp && key.Matches(msg, m.keys.Cancel):
		m.showHelp = false
		return nil
	case key.Matches(msg, m.keys.CycleTheme):
		return m.cycleTheme()
	case key.Matches(msg, m.keys.Tab):
		return m.switchView(m.nextView(1))
	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchView(m.nextView(-1))
	case key.Matches(msg, m.keys.Refresh):
		return m.refresh()
	}

	if m.current == viewActivity {
		return m.handleActivityKey(msg)
	}
	p := m.panes[m.current]
	if p == nil {
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		return p.MoveUp(1)
	case key.Matches(msg, m.keys.Down):
		return p.MoveDown(1)
	case key.Matches(msg, m.keys.Top):
		return p.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		return p.GotoBottom()
	case key.Matches(msg, m.keys.PageUp):
		return p.MoveUp(m.pageSize())
	case key.Matches(msg, m.keys.PageDown):
		return p.MoveDown(m.pageSize())
	case key.Matches(msg, m.keys.ColumnLeft):
		p.FocusPrev()
	case key.Matches(msg, m.keys.ColumnRight):
		p.FocusNext()
	case key.Matches(msg, m.keys.Search):
		if p.FocusColumn("name") {
			return m.openFilterPrompt(p)
		}
	case key.Matches(msg, m.keys.Filter):
		return m.openFilterPrompt(p)
	case key.Matches(msg, m.keys.ClearFilters):
		return p.ClearFilters()
	case key.Matches(msg, m.keys.Sort):
		return tea.Batch(p.CycleSort(), m.saveOrder(p))
	case key.Matches(msg, m.keys.Select):
		if m.current == viewPlatforms {
			p.ToggleSelected()
		}
	case key.Matches(msg, m.keys.Open):
		return m.open()
	case key.Matches(msg, m.keys.New):
		if m.current == viewCollections {
			return m.openPrompt(promptCreate, "New collection: ", "", "name")
		}
	case key.Matches(msg, m.keys.Delete):
		return m.deleteCurrent()
	case key.Matches(msg, m.keys.Add):
		if m.current == viewReleases {
			return m.addToCollection()
		}
	}
	return nil
}

func (m *Model) handlePromptKey(msg tea.KeyMsg) tea.Cmd {
	kind := m.prompt
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.closePrompt()
		if kind == promptFilter {
			if p := m.panes[m.current]; p != nil {
				return p.SetFilter(m.promptColumn, m.promptPrev)
			}
		}
		return nil
	case key.Matches(msg, m.keys.Confirm):
		value := strings.TrimSpace(m.input.Value())
		m.closePrompt()
		switch kind {
		case promptCreate:
			return m.createCollection(value)
		case promptLogSearch:
			m.activity.filter.Contains = value
			return m.loadActivity()
		}
		return nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if kind == promptFilter && m.input.Value() != before {
		if p := m.panes[m.current]; p != nil {
			cmd = tea.Batch(cmd, p.SetFilter(m.promptColumn, m.input.Value()))
		}
	}
	return cmd
}

func (m *Model) openFilterPrompt(p pane) tea.Cmd {
	title, kind := p.FocusedFilter()
	if kind == table.FilterNone {
		m.flash, m.flashErr = fmt.Sprintf("%s cannot be filtered", title), nil
		return nil
	}
	placeholder := "contains"
	switch kind {
	case table.FilterRange:
		placeholder = "min,max"
	case table.FilterExact:
		placeholder = "equals"
	}
	m.promptColumn = p.Focus()
	m.promptPrev = p.FilterInput(m.promptColumn)
	return m.openPrompt(promptFilter, title+": ", m.promptPrev, placeholder)
}

func (m *Model) openPrompt(kind promptKind, label, value, placeholder string) tea.Cmd {
	m.prompt = kind
	m.input.Prompt = label
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) closePrompt() {
	m.prompt = promptNone
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) nextView(step int) view {
	v := m.current
	for range viewCount {
		v = (v + view(step) + viewCount) % viewCount
		if v == viewActivity || m.panes[v] != nil {
			return v
		}
	}
	return m.current
}

func (m *Model) switchView(v view) tea.Cmd {
	m.current = v
	m.showHelp = false
	if v == viewActivity && !m.activity.ticking {
		m.activity.ticking = true
		return tea.Batch(m.loadActivity(), activityTick())
	}
	return nil
}

func (m *Model) resize() tea.Cmd {
	w, h := m.bodySize()
	m.activity.viewport.Width, m.activity.viewport.Height = w, h
	cmds := make([]tea.Cmd, 0, len(m.panes))
	for _, p := range m.panes {
		if p != nil {
			cmds = append(cmds, p.SetSize(w, h))
		}
	}
	return tea.Batch(cmds...)
}

// bodySize is the area between the header and the status and command bars.
func (m *Model) bodySize() (int, int) {
	return m.width, max(m.height-3, 1)
}

func (m *Model) pageSize() int {
	_, h := m.bodySize()
	return max(h-2, 1)
}

func (m *Model) cycleTheme() tea.Cmd {
	m.theme = GetTheme(NextTheme(m.theme.Name))
	for _, p := range m.panes {
		if p != nil {
			p.SetStyles(m.theme.Table())
		}
	}
	m.prefs.Theme = m.theme.Name
	return m.savePrefs()
}

func (m *Model) saveOrder(p pane) tea.Cmd {
	key, dir := p.SortKey()
	m.prefs.SetOrder(prefKeys[m.current], key, dir)
	return m.savePrefs()
}

func (m *Model) savePrefs() tea.Cmd {
	if m.prefsPath == "" {
		return nil
	}
	path, p := m.prefsPath, m.prefs
	p.Order = cloneOrder(m.prefs.Order)
	return func() tea.Msg {
		if err := prefs.Save(path, p); err != nil {
			return actionMsg{err: fmt.Errorf("save prefs: %w", err)}
		}
		return nil
	}
}

func cloneOrder(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *Model) refresh() tea.Cmd {
	if m.current == viewActivity {
		return m.loadActivity()
	}
	src := m.sources[m.current]
	if src == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		if err := src.Reload(ctx); err != nil {
			return actionMsg{err: fmt.Errorf("refresh %s: %w", src.Endpoint(), err)}
		}
		return actionMsg{text: "refreshed " + src.Endpoint()}
	}
}

// open drills into the row under the cursor.
func (m *Model) open() tea.Cmd {
	switch m.current {
	case viewPlatforms:
		ids := make([]int64, 0, len(m.selected))
		for id := range m.selected {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		if len(ids) == 0 {
			p, ok := m.platformTable.Current()
			if !ok {
				return nil
			}
			ids = append(ids, p.ID)
		}
		return m.openReleases(ids)
	case viewCollections:
		c, ok := m.collectionTable.Current()
		if !ok {
			return nil
		}
		return m.openItems(c)
	}
	return nil
}

func (m *Model) openReleases(platformIDs []int64) tea.Cmd {
	if m.releaseTable != nil {
		m.releaseTable.Close()
	}
	coll := m.session.Releases(platformIDs...)
	var cmd tea.Cmd
	m.releaseTable, cmd = newPane(m, viewReleases, coll, releaseColumns(), nil)
	m.panes[viewReleases], m.sources[viewReleases] = m.releaseTable, coll
	m.releasesFor = platformIDs
	m.current = viewReleases
	return cmd
}

func (m *Model) openItems(c catalog.Collection) tea.Cmd {
	if m.itemTable != nil {
		m.itemTable.Close()
	}
	coll := m.session.CollectionItems(c.ID)
	var cmd tea.Cmd
	m.itemTable, cmd = newPane(m, viewItems, coll, itemColumns(), nil)
	m.panes[viewItems], m.sources[viewItems] = m.itemTable, coll
	m.items, m.itemsOf = coll, c
	m.current = viewItems
	return cmd
}

func (m *Model) closeItems() {
	if m.itemTable == nil {
		return
	}
	m.itemTable.Close()
	m.itemTable, m.items, m.itemsOf = nil, nil, catalog.Collection{}
	m.panes[viewItems], m.sources[viewItems] = nil, nil
	if m.current == viewItems {
		m.current = viewCollections
	}
}

func (m *Model) createCollection(name string) tea.Cmd {
	if name == "" {
		return nil
	}
	if m.mutator == nil {
		m.flash, m.flashErr = "", fmt.Errorf("read-only session")
		return nil
	}
	ctx, mut, coll := m.ctx, m.mutator, m.session.Collections()
	return func() tea.Msg {
		c, err := mut.CreateCollection(ctx, catalog.CollectionInput{Name: name})
		if err != nil {
			return actionMsg{err: fmt.Errorf("create collection: %w", err)}
		}
		coll.AddModel(c)
		return actionMsg{text: fmt.Sprintf("created collection %q", c.Name)}
	}
}

func (m *Model) deleteCurrent() tea.Cmd {
	if m.mutator == nil {
		m.flash, m.flashErr = "", fmt.Errorf("read-only session")
		return nil
	}
	ctx, mut, collections := m.ctx, m.mutator, m.session.Collections()

	switch m.current {
	case viewCollections:
		c, ok := m.collectionTable.Current()
		if !ok {
			return nil
		}
		return func() tea.Msg {
			if err := mut.DeleteCollection(ctx, c.ID); err != nil {
				return actionMsg{err: fmt.Errorf("delete collection: %w", err)}
			}
			collections.RemoveModel(c)
			return actionMsg{text: fmt.Sprintf("deleted collection %q", c.Name), deleted: c.ID}
		}
	case viewItems:
		it, ok := m.itemTable.Current()
		if !ok {
			return nil
		}
		items, owner := m.items, m.itemsOf.ID
		return func() tea.Msg {
			if err := mut.RemoveCollectionItem(ctx, owner, it.ID); err != nil {
				return actionMsg{err: fmt.Errorf("remove item: %w", err)}
			}
			items.RemoveModel(it)
			adjustItemCount(collections, owner, -1)
			return actionMsg{text: "removed item from collection"}
		}
	}
	return nil
}

func (m *Model) addToCollection() tea.Cmd {
	if m.items == nil {
		m.flash, m.flashErr = "open a collection first", nil
		return nil
	}
	if m.mutator == nil {
		m.flash, m.flashErr = "", fmt.Errorf("read-only session")
		return nil
	}
	r, ok := m.releaseTable.Current()
	if !ok {
		return nil
	}
	ctx, mut, items, owner, collections := m.ctx, m.mutator, m.items, m.itemsOf, m.session.Collections()
	return func() tea.Msg {
		it, err := mut.AddCollectionItem(ctx, owner.ID, r.ID)
		if err != nil {
			return actionMsg{err: fmt.Errorf("add to %s: %w", owner.Name, err)}
		}
		if it.Release == nil {
			it.Release = &r
		}
		items.AddModel(it)
		adjustItemCount(collections, owner.ID, 1)
		return actionMsg{text: fmt.Sprintf("added %s to %s", r.Name, owner.Name)}
	}
}

// adjustItemCount keeps a collection row's item count in step with a local
// item change.
func adjustItemCount(collections *paging.Collection[catalog.Collection], id int64, delta int) {
	c, ok := collections.GetModel(id)
	if !ok {
		return
	}
	c.TotalItems = max(c.TotalItems+delta, 0)
	collections.AddModel(c)
}
