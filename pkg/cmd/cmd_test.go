package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupHome points the home and config directories at a temporary directory
// and returns it.
func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("PRUN_TOKEN", "")
	return home
}

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = execute(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestInit(t *testing.T) {
	home := setupHome(t)
	path := filepath.Join(home, ".prun", "config.toml")

	code, stdout, stderr := runCLI(t, "init")
	require.Equal(t, 0, code, "stderr = %s", stderr)
	assert.Contains(t, stdout, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "storage_root")
	assert.NotContains(t, string(data), "token =")

	code, _, stderr = runCLI(t, "init")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "already exists")

	code, _, stderr = runCLI(t, "init", "--force")
	assert.Equal(t, 0, code, "stderr = %s", stderr)
}

func TestRunInstalled(t *testing.T) {
	setupHome(t)

	code, stdout, stderr := runCLI(t, "run", "review", "--args", "the last commit")
	require.Equal(t, 0, code, "stderr = %s", stderr)
	assert.Equal(t, "/review the last commit\n", stdout)
}

func TestRunFault(t *testing.T) {
	home := setupHome(t)
	registry := filepath.Join(home, "mcp.json")
	t.Setenv("PRUN_REGISTRY_PATH", registry)

	tests := map[string]struct {
		args       []string
		wantStderr string
	}{
		"malformed address": {
			args:       []string{"run", "mcp.docs"},
			wantStderr: "malformed address",
		},
		"invalid workspace": {
			args:       []string{"run", "review", "--workspace", "other"},
			wantStderr: "invalid workspace directive",
		},
		"missing server": {
			args:       []string{"run", "mcp.docs.summarize"},
			wantStderr: "server not configured",
		},
		"arguments not an object": {
			args:       []string{"run", "mcp.docs.search", "--yes", "--args", "[1,2]", "--servers", `{"name": "docs", "url": "https://docs.example.com/mcp"}`},
			wantStderr: "invalid prompt arguments",
		},
		"missing argument": {
			args:       []string{"run"},
			wantStderr: "accepts 1 arg",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			code, stdout, stderr := runCLI(t, tc.args...)
			assert.Equal(t, 1, code)
			assert.Empty(t, stdout, "nothing should be dispatched")
			assert.Contains(t, stderr, tc.wantStderr)
			assert.NoFileExists(t, registry)
		})
	}
}

func TestFetch(t *testing.T) {
	home := setupHome(t)
	src := filepath.Join(t.TempDir(), "review.prompt.md")
	require.NoError(t, os.WriteFile(src, []byte("---\ndescription: Review a change\n---\nReview it.\n"), 0o644))

	code, stdout, stderr := runCLI(t, "fetch", src)
	require.Equal(t, 0, code, "stderr = %s", stderr)

	stored := filepath.Join(home, ".prun", "prompts", "review.prompt.md")
	for _, want := range []string{stored, "Digest: sha256:", "Description: Review a change"} {
		assert.Contains(t, stdout, want)
	}
	assert.FileExists(t, stored)

	settings, err := os.ReadFile(filepath.Join(home, ".prun", "settings.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(settings), filepath.Join(home, ".prun", "prompts"), "prompt directory not registered")
}

func TestProvision(t *testing.T) {
	home := setupHome(t)
	registry := filepath.Join(home, "mcp.json")
	t.Setenv("PRUN_REGISTRY_PATH", registry)

	code, stdout, stderr := runCLI(t, "provision", "--yes", "--servers", `{"name": "search", "url": "https://search.example.com/mcp"}`)
	require.Equal(t, 0, code, "stderr = %s", stderr)
	assert.Contains(t, stdout, registry)

	data, err := os.ReadFile(registry)
	require.NoError(t, err)
	var config struct {
		Servers map[string]map[string]any `json:"servers"`
	}
	require.NoError(t, json.Unmarshal(data, &config))
	assert.Equal(t, "https://search.example.com/mcp", config.Servers["search"]["url"])
}
