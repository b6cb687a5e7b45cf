package session

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludexapp/ludex/internal/catalog"
	"github.com/ludexapp/ludex/internal/mockapi"
)

func newSession(t *testing.T) (*Session, *mockapi.Server) {
	t.Helper()
	srv := mockapi.New(mockapi.Seed())
	hs := httptest.NewServer(srv)
	t.Cleanup(hs.Close)
	client, err := catalog.NewClient(hs.URL+mockapi.Prefix, catalog.WithRateLimit(0))
	require.NoError(t, err)
	return New(catalog.NewRunner(client, nil), nil), srv
}

func TestSession_PersistentCollectionsAreShared(t *testing.T) {
	s, _ := newSession(t)
	assert.Same(t, s.Platforms(), s.Platforms())
	assert.Same(t, s.Collections(), s.Collections())
	assert.Same(t, s.PlatformGroups(), s.PlatformGroups())
	assert.Len(t, s.Persistent(), 3)

	_, err := s.Platforms().LoadNext(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, s.Platforms().State().LoadedData, 6, "later callers see the cached rows")

	plat := s.Platforms().State().LoadedData[0]
	require.NotNil(t, plat.PlatformGroup)
	assert.Equal(t, plat.PlatformGroupID, plat.PlatformGroup.ID)
}

func TestSession_PlatformGroupsLoadInFull(t *testing.T) {
	s, srv := newSession(t)
	_, err := s.PlatformGroups().LoadNext(context.Background(), 0)
	require.NoError(t, err)

	st := s.PlatformGroups().State()
	assert.Len(t, st.LoadedData, 4)
	assert.False(t, st.HasAnotherPage())
	assert.Equal(t, "100", srv.Requests()[0].Query().Get("limit"))
}

func TestSession_ReleasesAreScopedToPlatforms(t *testing.T) {
	s, srv := newSession(t)
	releases := s.Releases(10, 12)
	assert.NotSame(t, releases, s.Releases(10, 12))

	_, err := releases.LoadNext(context.Background(), 0)
	require.NoError(t, err)
	st := releases.State()
	require.NotEmpty(t, st.LoadedData)
	for _, r := range st.LoadedData {
		assert.Contains(t, []int64{10, 12}, r.PlatformID)
		require.NotNil(t, r.Platform)
	}

	q := srv.Requests()[0].Query()
	assert.Equal(t, "10,12", q.Get("filter[platform_id]"))
	assert.Equal(t, "*", q.Get("expand[platform]"))
	assert.Equal(t, "50", q.Get("limit"))
}

func TestSession_ReleaseFilterSurvivesUserFilters(t *testing.T) {
	s, _ := newSession(t)
	releases := s.Releases(12)

	_, err := releases.SetSearch(context.Background(), "name", catalog.Term("zelda"))
	require.NoError(t, err)
	st := releases.State()
	require.Len(t, st.LoadedData, 1)
	assert.Equal(t, "Zelda (Switch)", st.LoadedData[0].Name)
}

func TestSession_CollectionItemsExpandRelease(t *testing.T) {
	s, _ := newSession(t)
	items := s.CollectionItems(500)
	assert.Equal(t, "/collections/500/items", items.Endpoint())

	_, err := items.LoadNext(context.Background(), 0)
	require.NoError(t, err)
	st := items.State()
	require.Len(t, st.LoadedData, 2)
	for _, it := range st.LoadedData {
		require.NotNil(t, it.Release)
		assert.Equal(t, it.ReleaseID, it.Release.ID)
	}
}
