package app

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ludexapp/ludex/internal/catalog"
	"github.com/ludexapp/ludex/internal/paging"
	"github.com/ludexapp/ludex/internal/session"
)

// Entities accepted by List.
var Entities = []string{"platforms", "groups", "collections", "releases", "items"}

// ListOptions describes one `ludex list` invocation.
type ListOptions struct {
	Entity     string
	Search     []string // key=value, or a bare value for the name column
	Filters    []string // key=value
	Orders     []string // key=asc|desc
	All        bool
	Platforms  []int64
	Collection int64
}

// Shape parses the search, filter and order flags.
func (o ListOptions) Shape() (paging.Shape, error) {
	shape := paging.Shape{
		Filter: map[string]string{},
		Search: map[string]catalog.SearchTerm{},
		Order:  map[string]catalog.Direction{},
	}
	for _, raw := range o.Search {
		key, value, ok := strings.Cut(raw, "=")
		if !ok {
			key, value = "name", raw
		}
		shape.Search[strings.TrimSpace(key)] = catalog.Term(strings.Split(value, "|")...)
	}
	for _, raw := range o.Filters {
		key, value, ok := strings.Cut(raw, "=")
		if !ok {
			return paging.Shape{}, fmt.Errorf("filter %q: want key=value", raw)
		}
		shape.Filter[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	for _, raw := range o.Orders {
		key, dirText, _ := strings.Cut(raw, "=")
		dir, err := catalog.ParseDirection(dirText)
		if err != nil {
			return paging.Shape{}, fmt.Errorf("order %q: %w", raw, err)
		}
		if dir == "" {
			dir = catalog.Asc
		}
		shape.Order[strings.TrimSpace(key)] = dir
	}
	return shape, nil
}

// List fetches one entity collection and prints it as a table to w.
func List(ctx context.Context, sess *session.Session, w io.Writer, opts ListOptions) error {
	shape, err := opts.Shape()
	if err != nil {
		return err
	}
	switch opts.Entity {
	case "platforms":
		return listInto(ctx, sess.Platforms(), shape, opts.All, w,
			[]string{"ID", "Name", "Short", "Group", "Games"},
			func(p catalog.Platform) []string {
				group := ""
				if p.PlatformGroup != nil {
					group = p.PlatformGroup.Name
				}
				return []string{id(p.ID), p.Name, p.ShortName, group, strconv.Itoa(p.TotalGames)}
			})
	case "groups":
		return listInto(ctx, sess.PlatformGroups(), shape, opts.All, w,
			[]string{"ID", "Name"},
			func(g catalog.PlatformGroup) []string { return []string{id(g.ID), g.Name} })
	case "collections":
		return listInto(ctx, sess.Collections(), shape, opts.All, w,
			[]string{"ID", "Name", "Items", "Public"},
			func(c catalog.Collection) []string {
				return []string{id(c.ID), c.Name, strconv.Itoa(c.TotalItems), strconv.FormatBool(c.Public)}
			})
	case "releases":
		return listInto(ctx, sess.Releases(opts.Platforms...), shape, opts.All, w,
			[]string{"ID", "Name", "Platform", "Released", "Rating", "Region"},
			func(r catalog.Release) []string {
				platform := id(r.PlatformID)
				if r.Platform != nil {
					platform = r.Platform.Name
				}
				return []string{id(r.ID), r.Name, platform, r.ReleaseDate, strconv.FormatFloat(r.Rating, 'f', -1, 64), r.Region}
			})
	case "items":
		if opts.Collection <= 0 {
			return fmt.Errorf("items requires --collection")
		}
		return listInto(ctx, sess.CollectionItems(opts.Collection), shape, opts.All, w,
			[]string{"ID", "Release", "Notes", "Added"},
			func(i catalog.CollectionItem) []string {
				name := id(i.ReleaseID)
				if i.Release != nil {
					name = i.Release.Name
				}
				return []string{id(i.ID), name, i.Notes, i.AddedAt}
			})
	default:
		return fmt.Errorf("unknown entity %q (want one of %s)", opts.Entity, strings.Join(Entities, ", "))
	}
}

func listInto[T paging.Record](ctx context.Context, c *paging.Collection[T], shape paging.Shape, all bool, w io.Writer, headers []string, row func(T) []string) error {
	if _, err := c.Reshape(ctx, shape); err != nil {
		return err
	}
	for all && c.State().HasAnotherPage() {
		if _, err := c.LoadNext(ctx, 0); err != nil {
			return err
		}
	}

	st := c.State()
	rows := make([][]string, 0, len(st.LoadedData))
	for _, rec := range st.LoadedData {
		rows = append(rows, row(rec))
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Faint(true)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(r, _ int) lipgloss.Style {
			if r == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %d\n", len(st.LoadedData), st.Total)
	return err
}

func id(v int64) string { return strconv.FormatInt(v, 10) }
