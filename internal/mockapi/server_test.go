package mockapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludexapp/ludex/internal/catalog"
)

func newTestClient(t *testing.T, data Dataset) (*catalog.Client, *Server) {
	t.Helper()
	srv := New(data)
	hs := httptest.NewServer(srv)
	t.Cleanup(hs.Close)
	c, err := catalog.NewClient(hs.URL+Prefix, catalog.WithRateLimit(0))
	require.NoError(t, err)
	return c, srv
}

func fetch[T any](t *testing.T, c *catalog.Client, endpoint string, q catalog.Query) catalog.Page[T] {
	t.Helper()
	values, err := q.Values()
	require.NoError(t, err)
	var page catalog.Page[T]
	require.NoError(t, c.GetJSON(context.Background(), endpoint, values, &page))
	return page
}

func TestList_PagesAndTotals(t *testing.T) {
	c, _ := newTestClient(t, Seed())

	page := fetch[catalog.Release](t, c, "/releases", catalog.Query{Page: 2, Limit: 10})
	assert.Equal(t, 36, page.Total)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, 4, page.LastPage)
	assert.Equal(t, 10, page.PerPage)
	require.Len(t, page.Data, 10)
	assert.Equal(t, int64(110), page.Data[0].ID)

	last := fetch[catalog.Release](t, c, "/releases", catalog.Query{Page: 4, Limit: 10})
	assert.Len(t, last.Data, 6)
	assert.False(t, last.HasAnotherPage())
}

func TestList_SearchVariants(t *testing.T) {
	c, _ := newTestClient(t, Seed())

	like := fetch[catalog.Release](t, c, "/releases", catalog.Query{
		Page: 1, Limit: 100,
		Search: map[string]catalog.SearchTerm{"name": catalog.Term("zelda")},
	})
	require.NotEmpty(t, like.Data)
	for _, r := range like.Data {
		assert.Contains(t, r.Name, "Zelda")
	}

	between := fetch[catalog.Release](t, c, "/releases", catalog.Query{
		Page: 1, Limit: 100,
		Search: map[string]catalog.SearchTerm{"rating": catalog.Between("90", "")},
	})
	for _, r := range between.Data {
		assert.GreaterOrEqual(t, r.Rating, 90.0)
	}

	regions := fetch[catalog.Release](t, c, "/releases", catalog.Query{
		Page: 1, Limit: 100,
		Search: map[string]catalog.SearchTerm{"region": catalog.Term("eu", "jp")},
	})
	for _, r := range regions.Data {
		assert.Contains(t, []string{"eu", "jp"}, r.Region)
	}

	nulls := fetch[catalog.CollectionItem](t, c, "/collections/500/items", catalog.Query{
		Page: 1, Limit: 10,
		Search: map[string]catalog.SearchTerm{"notes": catalog.Term("null")},
	})
	assert.Equal(t, 2, nulls.Total)
}

func TestList_FilterOrderAndExpand(t *testing.T) {
	c, _ := newTestClient(t, Seed())

	page := fetch[catalog.Release](t, c, "/releases", catalog.Query{
		Page: 1, Limit: 100,
		Filter:  map[string]string{"platform_id": "10,12"},
		Order:   map[string]catalog.Direction{"rating": catalog.Desc},
		Expands: []string{"platform"},
	})
	require.NotEmpty(t, page.Data)
	for i, r := range page.Data {
		assert.Contains(t, []int64{10, 12}, r.PlatformID)
		require.NotNil(t, r.Platform)
		assert.Equal(t, r.PlatformID, r.Platform.ID)
		if i > 0 {
			assert.LessOrEqual(t, r.Rating, page.Data[i-1].Rating)
		}
	}

	bare := fetch[catalog.Release](t, c, "/releases", catalog.Query{Page: 1, Limit: 1})
	assert.Nil(t, bare.Data[0].Platform, "relations are only embedded when expanded")
}

func TestList_RejectsBadPaging(t *testing.T) {
	srv := New(Seed())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, Prefix+"/platforms?page=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, Prefix+"/collections/999/items", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMutations_RoundTripThroughMutator(t *testing.T) {
	srv := New(Seed())
	hs := httptest.NewServer(srv)
	t.Cleanup(hs.Close)
	m, err := catalog.NewMutator(hs.URL+Prefix, 0, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	created, err := m.CreateCollection(ctx, catalog.CollectionInput{Name: "Couch co-op"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	item, err := m.AddCollectionItem(ctx, created.ID, 100)
	require.NoError(t, err)
	require.NotNil(t, item.Release)
	assert.Equal(t, int64(100), item.Release.ID)

	require.NoError(t, m.RemoveCollectionItem(ctx, created.ID, item.ID))
	require.NoError(t, m.DeleteCollection(ctx, created.ID))

	err = m.DeleteCollection(ctx, created.ID)
	assert.ErrorIs(t, err, catalog.ErrStatus)
	assert.Len(t, srv.Snapshot().Collections, 2)
}

func TestRefreshToken(t *testing.T) {
	srv := New(Seed())
	token, err := srv.IssueToken(AccessTTL)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, Prefix+"/auth/refresh", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
