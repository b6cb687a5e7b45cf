// Package session owns the collections that live for the whole application
// session and builds the per-view scoped ones.
package session

import (
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/ludexapp/ludex/internal/catalog"
	"github.com/ludexapp/ludex/internal/paging"
)

// Endpoints served by the catalog API.
const (
	PlatformsEndpoint      = "/platforms"
	PlatformGroupsEndpoint = "/platform-groups"
	CollectionsEndpoint    = "/collections"
	ReleasesEndpoint       = "/releases"
)

// Session caches the persistent collections. Platforms, platform groups and
// collections are created on first use and shared by every caller afterwards.
type Session struct {
	runner paging.Runner
	logger *log.Logger

	platformsOnce sync.Once
	platforms     *paging.Collection[catalog.Platform]

	groupsOnce sync.Once
	groups     *paging.Collection[catalog.PlatformGroup]

	collectionsOnce sync.Once
	collections     *paging.Collection[catalog.Collection]
}

// New builds a Session on top of runner.
func New(runner paging.Runner, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Session{runner: runner, logger: logger}
}

// Platforms returns the shared platform collection.
func (s *Session) Platforms() *paging.Collection[catalog.Platform] {
	s.platformsOnce.Do(func() {
		s.platforms = paging.New(s.runner, paging.Options[catalog.Platform]{
			Endpoint: PlatformsEndpoint,
			Limit:    100,
			Expands:  []string{"platform_group"},
			Logger:   s.logger,
		})
	})
	return s.platforms
}

// PlatformGroups returns the shared platform group collection. Groups are a
// small reference set and are always loaded in full.
func (s *Session) PlatformGroups() *paging.Collection[catalog.PlatformGroup] {
	s.groupsOnce.Do(func() {
		s.groups = paging.New(s.runner, paging.Options[catalog.PlatformGroup]{
			Endpoint: PlatformGroupsEndpoint,
			Limit:    100,
			LoadAll:  true,
			Logger:   s.logger,
		})
	})
	return s.groups
}

// Collections returns the shared collection list.
func (s *Session) Collections() *paging.Collection[catalog.Collection] {
	s.collectionsOnce.Do(func() {
		s.collections = paging.New(s.runner, paging.Options[catalog.Collection]{
			Endpoint: CollectionsEndpoint,
			Limit:    50,
			Logger:   s.logger,
		})
	})
	return s.collections
}

// Persistent lists the session-scoped collections as sources.
func (s *Session) Persistent() []paging.Source {
	return []paging.Source{s.Platforms(), s.PlatformGroups(), s.Collections()}
}

// Releases builds a fresh release collection restricted to platformIDs. An
// empty list means every platform.
func (s *Session) Releases(platformIDs ...int64) *paging.Collection[catalog.Release] {
	var extra url.Values
	if len(platformIDs) > 0 {
		parts := make([]string, 0, len(platformIDs))
		for _, id := range platformIDs {
			parts = append(parts, strconv.FormatInt(id, 10))
		}
		extra = url.Values{"filter[platform_id]": {strings.Join(parts, ",")}}
	}
	return paging.New(s.runner, paging.Options[catalog.Release]{
		Endpoint: ReleasesEndpoint,
		Limit:    50,
		Expands:  []string{"platform"},
		Extra:    extra,
		Logger:   s.logger,
	})
}

// CollectionItems builds a fresh item collection for collectionID.
func (s *Session) CollectionItems(collectionID int64) *paging.Collection[catalog.CollectionItem] {
	return paging.New(s.runner, paging.Options[catalog.CollectionItem]{
		Endpoint: catalog.CollectionItemsEndpoint(collectionID),
		Limit:    50,
		Expands:  []string{"release"},
		Logger:   s.logger,
	})
}
