package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutator_CreateCollectionRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/collections", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var in CollectionInput
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Collection{ID: 9, Name: in.Name, Public: in.Public})
	}))
	t.Cleanup(server.Close)

	m, err := NewMutator(server.URL+"/api", 2, staticToken("tok"), nil)
	require.NoError(t, err)

	got, err := m.CreateCollection(context.Background(), CollectionInput{Name: "Backlog", Public: true})
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.ID)
	assert.Equal(t, "Backlog", got.Name)
	assert.Equal(t, int32(2), calls.Load())
}

func TestMutator_RequiresName(t *testing.T) {
	m, err := NewMutator("http://127.0.0.1:1", 0, nil, nil)
	require.NoError(t, err)
	_, err = m.CreateCollection(context.Background(), CollectionInput{Name: "  "})
	assert.Error(t, err)
}

func TestMutator_CollectionItemRoutes(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodPost:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(CollectionItem{ID: 4, CollectionID: 2, ReleaseID: 11})
		case http.MethodDelete:
			if r.URL.Path == "/collections/2/items/404" {
				http.NotFound(w, r)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	t.Cleanup(server.Close)

	m, err := NewMutator(server.URL, 0, nil, nil)
	require.NoError(t, err)

	item, err := m.AddCollectionItem(context.Background(), 2, 11)
	require.NoError(t, err)
	assert.Equal(t, int64(11), item.ReleaseID)

	require.NoError(t, m.RemoveCollectionItem(context.Background(), 2, 4))

	err = m.RemoveCollectionItem(context.Background(), 2, 404)
	assert.ErrorIs(t, err, ErrStatus)

	assert.Equal(t, []string{
		"POST /collections/2/items",
		"DELETE /collections/2/items/4",
		"DELETE /collections/2/items/404",
	}, seen)
}
