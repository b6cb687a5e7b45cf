package app

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ludexapp/ludex/internal/config"
	"github.com/ludexapp/ludex/internal/mockapi"
	"github.com/ludexapp/ludex/internal/paging"
)

func newTestEnv(t *testing.T) (*Env, *mockapi.Server) {
	t.Helper()
	srv := mockapi.New(mockapi.Seed())
	hs := httptest.NewServer(srv)
	t.Cleanup(hs.Close)

	cfg := config.Default()
	cfg.APIURL = hs.URL + mockapi.Prefix
	cfg.TokenFile = filepath.Join(t.TempDir(), "token.json")
	cfg.RequestsPerSecond = 0
	env, err := NewEnv(cfg, nil)
	require.NoError(t, err)
	return env, srv
}

func TestWarm_PrimesEveryPersistentCollection(t *testing.T) {
	env, _ := newTestEnv(t)
	require.NoError(t, Warm(context.Background(), env.Session.Persistent(), nil))

	for _, src := range env.Session.Persistent() {
		st := src.Status()
		assert.True(t, st.InitialLoadComplete, st.Endpoint)
		assert.NoError(t, st.LastError, st.Endpoint)
	}
	assert.Equal(t, 6, env.Session.Platforms().Status().Loaded)
}

type fakeSource struct {
	endpoint string
	err      error

	mu      sync.Mutex
	reloads int
}

func (f *fakeSource) Endpoint() string            { return f.endpoint }
func (f *fakeSource) Prime(context.Context) error { return f.err }
func (f *fakeSource) Status() paging.Status       { return paging.Status{Endpoint: f.endpoint} }

func (f *fakeSource) Reload(context.Context) error {
	f.mu.Lock()
	f.reloads++
	f.mu.Unlock()
	return f.err
}

func (f *fakeSource) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reloads
}

func TestWarm_JoinsFailures(t *testing.T) {
	boom := errors.New("boom")
	err := Warm(context.Background(), []paging.Source{
		&fakeSource{endpoint: "/platforms"},
		&fakeSource{endpoint: "/collections", err: boom},
	}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "/collections")
}

func TestStartRefresher_ReloadsUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	src := &fakeSource{endpoint: "/platforms"}
	ctx, cancel := context.WithCancel(context.Background())
	done := StartRefresher(ctx, []paging.Source{src}, 5*time.Millisecond, nil)

	require.Eventually(t, func() bool { return src.count() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
}

func TestStartRefresher_DisabledClosesImmediately(t *testing.T) {
	done := StartRefresher(context.Background(), nil, 0, nil)
	select {
	case <-done:
	default:
		t.Fatal("expected closed channel")
	}
}

func TestList_RendersPlatformsTable(t *testing.T) {
	env, srv := newTestEnv(t)
	var buf bytes.Buffer
	err := List(context.Background(), env.Session, &buf, ListOptions{
		Entity: "platforms",
		Search: []string{"Nintendo"},
		Orders: []string{"name=desc"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Nintendo Switch")
	assert.Contains(t, out, "Nintendo 64")
	assert.NotContains(t, out, "PlayStation 5")
	assert.True(t, strings.Index(out, "Nintendo Switch") < strings.Index(out, "Nintendo 64"))
	assert.Contains(t, out, "2 of 2")

	reqs := srv.Requests()
	require.Len(t, reqs, 1, "one request for search and order together")
	q := reqs[0].Query()
	assert.Equal(t, "like,*Nintendo*", q.Get("search[name]"))
	assert.Equal(t, "desc", q.Get("order[name]"))
}

func TestList_AllFollowsEveryPage(t *testing.T) {
	env, _ := newTestEnv(t)
	var buf bytes.Buffer
	err := List(context.Background(), env.Session, &buf, ListOptions{Entity: "releases", All: true})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "36 of 36")
}

func TestList_RejectsBadInput(t *testing.T) {
	env, _ := newTestEnv(t)
	var buf bytes.Buffer
	assert.Error(t, List(context.Background(), env.Session, &buf, ListOptions{Entity: "games"}))
	assert.Error(t, List(context.Background(), env.Session, &buf, ListOptions{Entity: "items"}))
	assert.Error(t, List(context.Background(), env.Session, &buf, ListOptions{Entity: "platforms", Filters: []string{"oops"}}))
	assert.Error(t, List(context.Background(), env.Session, &buf, ListOptions{Entity: "platforms", Orders: []string{"name=sideways"}}))
}
