package ui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/ludexapp/ludex/internal/catalog"
	"github.com/ludexapp/ludex/internal/prefs"
	"github.com/ludexapp/ludex/internal/session"
)

// Mutator performs the record writes the UI offers. *catalog.Mutator
// implements it.
type Mutator interface {
	CreateCollection(ctx context.Context, in catalog.CollectionInput) (catalog.Collection, error)
	DeleteCollection(ctx context.Context, id int64) error
	AddCollectionItem(ctx context.Context, collectionID, releaseID int64) (catalog.CollectionItem, error)
	RemoveCollectionItem(ctx context.Context, collectionID, itemID int64) error
}

var _ Mutator = (*catalog.Mutator)(nil)

// Options configure the UI runtime.
type Options struct {
	Context   context.Context
	Session   *session.Session
	Mutator   Mutator
	Logger    *log.Logger
	LogFile   string
	Prefs     prefs.Prefs
	PrefsPath string
}

// Run starts the TUI and blocks until the user quits or ctx is cancelled.
func Run(opts Options) error {
	if opts.Session == nil {
		return errors.New("ui: session is required")
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	opts.Context = ctx

	m := New(opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
