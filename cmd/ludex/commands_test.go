package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludexapp/ludex/internal/auth"
	"github.com/ludexapp/ludex/internal/mockapi"
)

func writeConfig(t *testing.T, apiURL string) (configPath, tokenFile string) {
	t.Helper()
	dir := t.TempDir()
	tokenFile = filepath.Join(dir, "token.json")
	configPath = filepath.Join(dir, "config.toml")
	body := fmt.Sprintf("api_url = %q\ntoken_file = %q\nlog_file = %q\nrequests_per_second = 0\n",
		apiURL, tokenFile, filepath.Join(dir, "ludex.log"))
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o644))
	return configPath, tokenFile
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestListCommand_PrintsMatchingRecords(t *testing.T) {
	hs := httptest.NewServer(mockapi.New(mockapi.Seed()))
	defer hs.Close()
	cfg, _ := writeConfig(t, hs.URL+mockapi.Prefix)

	out, err := execute(t, "--config", cfg, "list", "platforms", "--search", "Nintendo", "--order", "name=asc")
	require.NoError(t, err)
	assert.Contains(t, out, "Nintendo 64")
	assert.Contains(t, out, "Nintendo Switch")
	assert.NotContains(t, out, "PlayStation")
	assert.Contains(t, out, "2 of 2")
}

func TestListCommand_RejectsUnknownEntity(t *testing.T) {
	_, err := execute(t, "list", "consoles")
	require.Error(t, err)
}

func TestLoginCommand_StoresToken(t *testing.T) {
	srv := mockapi.New(mockapi.Seed())
	hs := httptest.NewServer(srv)
	defer hs.Close()
	cfg, tokenFile := writeConfig(t, hs.URL+mockapi.Prefix)

	token, err := srv.IssueToken(time.Hour)
	require.NoError(t, err)

	out, err := execute(t, "--config", cfg, "login", "--token", token, "--refresh-token", "r1")
	require.NoError(t, err)
	assert.Contains(t, out, "token stored, expires")

	saved, err := auth.Load(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, auth.Tokens{AccessToken: token, RefreshToken: "r1"}, saved)
}

func TestLoginCommand_RequiresToken(t *testing.T) {
	_, err := execute(t, "login")
	require.EqualError(t, err, "--token is required")
}
