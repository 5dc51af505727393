package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/wallyscope/pkg/errors"
	"github.com/matzehuels/wallyscope/pkg/manifest"
	"github.com/matzehuels/wallyscope/pkg/registry"
	"github.com/matzehuels/wallyscope/pkg/registry/registrytest"
	"github.com/matzehuels/wallyscope/pkg/wally"
)

const testManifest = `[package]
name = "me/game"
version = "0.1.0"
realm = "shared"
description = "A game"

[dependencies]
Promise = "evaera/promise@3.0.0"
Widget = "acme/widget@1.0.0"
`

func newTestCLI(t *testing.T) *CLI {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("WALLYSCOPE_CACHE_BACKEND", "none")
	t.Setenv("GITHUB_TOKEN", "")

	src := registrytest.New()
	src.Add(wally.PublicRegistry, registry.Config{},
		registrytest.Releases("evaera", "promise", "shared", "3.0.0", "4.0.0"),
		registrytest.Releases("acne", "widget", "shared", "1.0.0"),
	)

	c := New(io.Discard, log.InfoLevel)
	c.sources = func(string) registry.Source { return src }
	return c
}

func execute(c *CLI, args ...string) (string, error) {
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeManifest(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wally.toml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestCheckReportsFindings(t *testing.T) {
	c := newTestCLI(t)
	path := writeManifest(t, testManifest)

	out, err := execute(c, "check", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "found 1 error")

	assert.Contains(t, out, path+":8:11")
	assert.Contains(t, out, "[W-301]")
	assert.Contains(t, out, "The latest version is `4.0.0`.")
	assert.Contains(t, out, path+":9:10")
	assert.Contains(t, out, "[W-101]")
	assert.Contains(t, out, "Did you mean `acne`?")
	assert.Contains(t, out, "1 error")
}

func TestCheckJSON(t *testing.T) {
	c := newTestCLI(t)
	clean := writeManifest(t, "[dependencies]\nPromise = \"evaera/promise@4.0.0\"\n")

	out, err := execute(c, "check", "--json", clean)
	require.NoError(t, err)

	var report checkReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Files, 1)
	assert.Equal(t, clean, report.Files[0].File)
	assert.Empty(t, report.Files[0].Findings)
	assert.Zero(t, report.Summary.Total)
}

func TestCheckUnreadableManifests(t *testing.T) {
	c := newTestCLI(t)
	missing := filepath.Join(t.TempDir(), "nope.toml")
	empty := writeManifest(t, "# nothing here\n")

	out, err := execute(c, "check", missing, empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 manifests could not be checked")
	assert.Contains(t, out, "does not exist")
}

func TestCheckRespectsDisabledDiagnostics(t *testing.T) {
	c := newTestCLI(t)
	t.Setenv("WALLYSCOPE_DIAGNOSTICS_ENABLED", "false")
	path := writeManifest(t, testManifest)

	out, err := execute(c, "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "disabled")
}

func TestShow(t *testing.T) {
	c := newTestCLI(t)
	path := writeManifest(t, testManifest+"\n[extra]\nkey = 1\n")

	out, err := execute(c, "show", path)
	require.NoError(t, err)
	assert.Contains(t, out, "me/game")
	assert.Contains(t, out, "[dependencies]")
	assert.Contains(t, out, "evaera/promise@3.0.0")
	assert.Contains(t, out, "Unrecognised key extra")

	broken := writeManifest(t, "[package\nname = 1")
	_, err = execute(c, "show", broken)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidManifest), "%v", err)
}

func TestRegistryCommands(t *testing.T) {
	c := newTestCLI(t)

	out, err := execute(c, "registry", "authors")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"acne", "evaera"}, strings.Fields(out))

	out, err = execute(c, "registry", "packages", "evaera")
	require.NoError(t, err)
	assert.Equal(t, "promise\n", out)

	out, err = execute(c, "registry", "versions", "evaera/promise")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "4.0.0"))
	assert.Contains(t, lines[0], "(latest)")
	assert.Equal(t, "3.0.0", lines[1])

	out, err = execute(c, "registry", "info", "evaera/promise@3")
	require.NoError(t, err)
	assert.Contains(t, out, "Promise")
	assert.Contains(t, out, "3.0.0")

	_, err = execute(c, "registry", "packages", "nobody")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound), "%v", err)
	_, err = execute(c, "registry", "versions", "evaera/nothing")
	assert.True(t, errors.Is(err, errors.ErrCodePackageNotFound), "%v", err)
	_, err = execute(c, "registry", "versions", "evaera")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidPackage), "%v", err)
}

func TestRegistryFlagRejectsUnsupportedHost(t *testing.T) {
	c := newTestCLI(t)
	_, err := execute(c, "--registry", "https://gitlab.com/acme/index", "registry", "authors")
	assert.True(t, errors.Is(err, errors.ErrCodeUnsupportedRegistry), "%v", err)
}

func TestComplete(t *testing.T) {
	c := newTestCLI(t)
	path := writeManifest(t, "[dependencies]\nDep = \"evaera/pr\"\n")

	out, err := execute(c, "complete", path, "2:16")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "promise\t"), out)

	path = writeManifest(t, "[dependencies]\nDep = \"evaera/promise@3\"\n")
	out, err = execute(c, "complete", "--json", path, "2:10")
	require.NoError(t, err)
	assert.Contains(t, out, `"label":"3.0.0"`)

	out, err = execute(c, "complete", "--describe", path, "2:10")
	require.NoError(t, err)
	assert.Contains(t, out, "## Promise")

	_, err = execute(c, "complete", path, "two")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "%v", err)
}

func TestCachePath(t *testing.T) {
	c := newTestCLI(t)
	out, err := execute(c, "cache", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(os.Getenv("XDG_CACHE_HOME"), "wallyscope")+"\n", out)

	_, err = execute(c, "cache", "clear")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig), "none backend cannot be cleared")
}

func TestCacheClear(t *testing.T) {
	c := newTestCLI(t)
	t.Setenv("WALLYSCOPE_CACHE_BACKEND", "file")

	dir := filepath.Join(os.Getenv("XDG_CACHE_HOME"), "wallyscope")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "ab"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ab", "entry.json"), []byte("{}"), 0o644))

	out, err := execute(c, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared 1 cached entries")

	out, err = execute(c, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache is empty")
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in      string
		want    manifest.Position
		wantErr bool
	}{
		{"1:1", manifest.Position{Line: 0, Column: 0}, false},
		{"12:40", manifest.Position{Line: 11, Column: 39}, false},
		{"0:1", manifest.Position{}, true},
		{"3", manifest.Position{}, true},
		{"a:b", manifest.Position{}, true},
	}
	for _, tt := range tests {
		got, err := parsePosition(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
