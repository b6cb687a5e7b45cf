package auth

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludexapp/ludex/internal/mockapi"
)

func TestToken_MissingFileIsAnonymous(t *testing.T) {
	src, err := NewSource(filepath.Join(t.TempDir(), "token.json"), "http://127.0.0.1:1/api", 0, nil)
	require.NoError(t, err)

	token, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestToken_FreshTokenIsReturnedAsIs(t *testing.T) {
	srv := mockapi.New(mockapi.Seed())
	fresh, err := srv.IssueToken(time.Hour)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, Save(path, Tokens{AccessToken: fresh, RefreshToken: "r1"}))

	src, err := NewSource(path, "http://127.0.0.1:1/api", 0, nil)
	require.NoError(t, err)
	token, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fresh, token)
}

func TestToken_RefreshesNearExpiry(t *testing.T) {
	srv := mockapi.New(mockapi.Seed())
	hs := httptest.NewServer(srv)
	t.Cleanup(hs.Close)

	expiring, err := srv.IssueToken(30 * time.Second)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "token.json")
	require.NoError(t, Save(path, Tokens{AccessToken: expiring, RefreshToken: "r1"}))

	src, err := NewSource(path, hs.URL+mockapi.Prefix, 0, nil)
	require.NoError(t, err)

	token, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, expiring, token)

	exp, ok := ExpiresAt(token)
	require.True(t, ok)
	assert.Greater(t, time.Until(exp), RefreshWindow)

	onDisk, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, token, onDisk.AccessToken)
	assert.NotEmpty(t, onDisk.RefreshToken)
}

func TestToken_ExpiringWithoutRefreshTokenFails(t *testing.T) {
	srv := mockapi.New(mockapi.Seed())
	expiring, err := srv.IssueToken(10 * time.Second)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, Save(path, Tokens{AccessToken: expiring}))

	src, err := NewSource(path, "http://127.0.0.1:1/api", 0, nil)
	require.NoError(t, err)
	_, err = src.Token(context.Background())
	assert.ErrorIs(t, err, ErrNoRefreshToken)
}

func TestToken_OpaqueTokenNeverExpires(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	src, err := NewSource(path, "http://127.0.0.1:1/api", 0, nil)
	require.NoError(t, err)
	require.NoError(t, src.Set(Tokens{AccessToken: "not-a-jwt"}))

	token, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "not-a-jwt", token)

	_, ok := ExpiresAt("not-a-jwt")
	assert.False(t, ok)
}
