package ui

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludexapp/ludex/internal/catalog"
	"github.com/ludexapp/ludex/internal/mockapi"
	"github.com/ludexapp/ludex/internal/paging"
	"github.com/ludexapp/ludex/internal/prefs"
	"github.com/ludexapp/ludex/internal/session"
)

// quiet is how long the harness waits for another message before it treats
// the program as settled. It must exceed the table debounce.
const quiet = 400 * time.Millisecond

type fakeMutator struct {
	mu      sync.Mutex
	nextID  int64
	created []string
	deleted []int64
	added   [][2]int64
	removed [][2]int64
	err     error
}

func (f *fakeMutator) CreateCollection(_ context.Context, in catalog.CollectionInput) (catalog.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return catalog.Collection{}, f.err
	}
	f.nextID++
	f.created = append(f.created, in.Name)
	return catalog.Collection{ID: f.nextID, Name: in.Name}, nil
}

func (f *fakeMutator) DeleteCollection(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakeMutator) AddCollectionItem(_ context.Context, collectionID, releaseID int64) (catalog.CollectionItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return catalog.CollectionItem{}, f.err
	}
	f.nextID++
	f.added = append(f.added, [2]int64{collectionID, releaseID})
	return catalog.CollectionItem{ID: f.nextID, CollectionID: collectionID, ReleaseID: releaseID}, nil
}

func (f *fakeMutator) RemoveCollectionItem(_ context.Context, collectionID, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, [2]int64{collectionID, itemID})
	return f.err
}

type harness struct {
	t         *testing.T
	m         *Model
	srv       *mockapi.Server
	mut       *fakeMutator
	prefsPath string
	msgs      chan tea.Msg
}

func newHarness(t *testing.T, configure func(*Options)) *harness {
	t.Helper()
	srv := mockapi.New(mockapi.Seed())
	hs := httptest.NewServer(srv)
	t.Cleanup(hs.Close)

	client, err := catalog.NewClient(hs.URL+mockapi.Prefix, catalog.WithRateLimit(0))
	require.NoError(t, err)

	mut := &fakeMutator{nextID: 900}
	opts := Options{
		Context:   context.Background(),
		Session:   session.New(catalog.NewRunner(client, nil), nil),
		Mutator:   mut,
		Prefs:     prefs.Prefs{Theme: "Nightfox"},
		PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
	}
	if configure != nil {
		configure(&opts)
	}

	m := New(opts)
	t.Cleanup(m.Close)
	h := &harness{t: t, m: m, srv: srv, mut: mut, prefsPath: opts.PrefsPath, msgs: make(chan tea.Msg, 256)}
	h.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	h.run(m.Init())
	return h
}

// run executes cmd and feeds everything it produces back into the model
// until nothing arrives for the quiet period.
func (h *harness) run(cmd tea.Cmd) {
	h.start(cmd)
	for {
		select {
		case msg := <-h.msgs:
			switch msg := msg.(type) {
			case nil, spinner.TickMsg, cursor.BlinkMsg, activityTickMsg, tea.QuitMsg:
			case tea.BatchMsg:
				for _, c := range msg {
					h.start(c)
				}
			default:
				_, next := h.m.Update(msg)
				h.start(next)
			}
		case <-time.After(quiet):
			return
		}
	}
}

func (h *harness) start(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() { h.msgs <- cmd() }()
}

func (h *harness) send(msg tea.Msg) {
	_, cmd := h.m.Update(msg)
	h.run(cmd)
}

func (h *harness) press(keys ...string) {
	for _, k := range keys {
		h.send(keyMsg(k))
	}
}

func (h *harness) typeText(s string) {
	for _, r := range s {
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func platformNames(m *Model) []string {
	var names []string
	for _, p := range m.platformTable.Rows() {
		names = append(names, p.Name)
	}
	return names
}

func TestModel_LoadsPersistentViews(t *testing.T) {
	h := newHarness(t, nil)

	assert.Len(t, h.m.platformTable.Rows(), 6)
	assert.Len(t, h.m.collectionTable.Rows(), 2)

	view := h.m.View()
	assert.Contains(t, view, "ludex")
	assert.Contains(t, view, "Platforms")
	assert.Contains(t, view, "6 of 6")
}

func TestModel_DrillsIntoSelectedPlatforms(t *testing.T) {
	h := newHarness(t, nil)

	h.press("space", "j", "space", "enter")

	require.Equal(t, viewReleases, h.m.current)
	assert.Equal(t, []int64{10, 11}, h.m.releasesFor)
	rows := h.m.releaseTable.Rows()
	require.NotEmpty(t, rows)
	for _, r := range rows {
		assert.Contains(t, []int64{10, 11}, r.PlatformID, r.Name)
	}
	assert.Contains(t, h.m.View(), "on 2 platforms")
}

func TestModel_NamePromptFiltersAndEscapeReverts(t *testing.T) {
	h := newHarness(t, nil)
	requests := len(h.srv.Requests())

	h.press("/")
	require.Equal(t, promptFilter, h.m.prompt)
	h.typeText("nin")

	assert.Equal(t, []string{"Nintendo Switch", "Nintendo 64"}, platformNames(h.m))
	assert.Len(t, h.srv.Requests(), requests, "exhaustive collection filters in memory")

	h.press("esc")
	assert.Equal(t, promptNone, h.m.prompt)
	assert.Len(t, h.m.platformTable.Rows(), 6)
}

func TestModel_CreateThenDeleteCollection(t *testing.T) {
	h := newHarness(t, nil)
	h.press("tab")
	require.Equal(t, viewCollections, h.m.current)

	h.press("n")
	require.Equal(t, promptCreate, h.m.prompt)
	h.typeText("Wishlist")
	h.press("enter")

	assert.Equal(t, []string{"Wishlist"}, h.mut.created)
	rows := h.m.collectionTable.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, "Wishlist", rows[0].Name)

	h.press("g", "d")
	assert.Equal(t, []int64{901}, h.mut.deleted)
	_, ok := h.m.session.Collections().GetModel(901)
	assert.False(t, ok)
	assert.Len(t, h.m.collectionTable.Rows(), 2)
}

func TestModel_AddAndRemoveCollectionItems(t *testing.T) {
	h := newHarness(t, nil)
	collections := h.m.session.Collections()
	backlog, ok := collections.GetModel(500)
	require.True(t, ok)

	h.press("tab", "enter")
	require.Equal(t, viewItems, h.m.current)
	assert.Equal(t, int64(500), h.m.itemsOf.ID)
	require.Len(t, h.m.itemTable.Rows(), 2)

	// Items -> Activity -> Platforms, then open releases of the first platform.
	h.press("tab", "tab", "enter")
	require.Equal(t, viewReleases, h.m.current)
	release, ok := h.m.releaseTable.Current()
	require.True(t, ok)

	h.press("a")
	assert.Equal(t, [][2]int64{{500, release.ID}}, h.mut.added)
	require.Len(t, h.m.itemTable.Rows(), 3)
	assert.Equal(t, release.Name, h.m.itemTable.Rows()[0].Release.Name)
	updated, _ := collections.GetModel(500)
	assert.Equal(t, backlog.TotalItems+1, updated.TotalItems)

	h.press("tab", "g", "d")
	require.Equal(t, viewItems, h.m.current)
	assert.Len(t, h.mut.removed, 1)
	assert.Len(t, h.m.itemTable.Rows(), 2)
	updated, _ = collections.GetModel(500)
	assert.Equal(t, backlog.TotalItems, updated.TotalItems)
}

func TestModel_DeletingOpenCollectionClosesItems(t *testing.T) {
	h := newHarness(t, nil)
	h.press("tab", "enter")
	require.Equal(t, viewItems, h.m.current)

	h.send(tea.KeyMsg{Type: tea.KeyShiftTab})
	require.Equal(t, viewCollections, h.m.current)
	h.press("g", "d")

	assert.Equal(t, []int64{500}, h.mut.deleted)
	assert.Nil(t, h.m.panes[viewItems])
	assert.Nil(t, h.m.items)
}

func TestModel_MutationFailureIsFlashed(t *testing.T) {
	h := newHarness(t, nil)
	h.mut.err = errors.New("forbidden")

	h.press("tab", "n")
	h.typeText("Nope")
	h.press("enter")

	require.Error(t, h.m.flashErr)
	assert.Contains(t, h.m.flashErr.Error(), "forbidden")
	assert.Len(t, h.m.collectionTable.Rows(), 2)
	assert.Contains(t, h.m.View(), "forbidden")
}

func TestModel_ReadOnlyWithoutMutator(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Mutator = nil })

	h.press("tab", "g", "d")
	require.Error(t, h.m.flashErr)
	assert.Len(t, h.m.collectionTable.Rows(), 2)
}

func TestModel_ThemeCyclePersists(t *testing.T) {
	h := newHarness(t, nil)

	h.press("T")
	assert.Equal(t, "Kanagawa", h.m.theme.Name)

	saved, err := prefs.Load(h.prefsPath)
	require.NoError(t, err)
	assert.Equal(t, "Kanagawa", saved.Theme)
}

func TestModel_SortPersistsPerView(t *testing.T) {
	h := newHarness(t, nil)

	h.press("s")
	assert.Equal(t, "Nintendo 64", platformNames(h.m)[0])

	saved, err := prefs.Load(h.prefsPath)
	require.NoError(t, err)
	key, dir, ok := saved.DefaultOrder("platforms")
	require.True(t, ok)
	assert.Equal(t, "name", key)
	assert.Equal(t, catalog.Asc, dir)
}

func TestModel_AppliesSavedOrder(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Prefs.Order = map[string]string{"platforms": "name:desc"}
	})

	assert.Equal(t, "Xbox Series X", platformNames(h.m)[0])
	key, dir := h.m.platformTable.SortKey()
	assert.Equal(t, "name", key)
	assert.Equal(t, catalog.Desc, dir)
}

func TestModel_RefreshReloadsCurrentView(t *testing.T) {
	h := newHarness(t, nil)
	requests := len(h.srv.Requests())

	h.press("r")
	assert.Greater(t, len(h.srv.Requests()), requests)
	assert.Equal(t, "refreshed /platforms", h.m.flash)
	assert.Len(t, h.m.platformTable.Rows(), 6)
}

func TestModel_ActivityTailsLog(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "ludex.log")
	lines := strings.Join([]string{
		`time=2026-01-01T10:00:00Z level=info msg="loaded page" endpoint=/platforms`,
		`time=2026-01-01T10:00:01Z level=warn msg="request failed" err=boom`,
		`time=2026-01-01T10:00:02Z level=debug msg="cache hit"`,
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(logFile, []byte(lines), 0o644))

	h := newHarness(t, func(o *Options) { o.LogFile = logFile })
	h.press("tab", "tab")
	require.Equal(t, viewActivity, h.m.current)
	require.Len(t, h.m.activity.entries, 3)
	assert.Contains(t, h.m.View(), "request failed")

	h.press("f")
	assert.Equal(t, "info", h.m.activity.filter.MinLevel)
	assert.Len(t, h.m.activity.entries, 2)

	h.press("f")
	assert.Len(t, h.m.activity.entries, 1)

	h.press("x")
	assert.Len(t, h.m.activity.entries, 3)
}

func TestModel_HelpToggles(t *testing.T) {
	h := newHarness(t, nil)
	h.press("?")
	assert.True(t, h.m.showHelp)
	assert.Contains(t, h.m.View(), "Next view")
	h.press("esc")
	assert.False(t, h.m.showHelp)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		st   paging.Status
		want string
	}{
		{"not loaded", paging.Status{}, statusLoading},
		{"refreshing", paging.Status{InitialLoadComplete: true, Refreshing: true, Total: 3}, statusLoading},
		{"empty", paging.Status{InitialLoadComplete: true}, statusEmpty},
		{"partial", paging.Status{InitialLoadComplete: true, Total: 40, Loaded: 20, HasAnotherPage: true}, statusPartial},
		{"loaded", paging.Status{InitialLoadComplete: true, Total: 3, Loaded: 3}, statusLoaded},
		{"error wins", paging.Status{InitialLoadComplete: true, Total: 3, LastError: errors.New("x")}, statusError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusOf(tt.st); got != tt.want {
				t.Errorf("statusOf() = %q, want %q", got, tt.want)
			}
		})
	}
}
