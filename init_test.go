package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/rustguide/internal/config"
)

// TestApplySectionCreate verifies that applySection on empty content yields
// just the section with a trailing newline.
func TestApplySectionCreate(t *testing.T) {
	t.Parallel()
	section := sentinelStart + "\nbody\n" + sentinelEnd
	assert.Equal(t, section+"\n", applySection("", section))
}

// TestApplySectionAppend verifies that existing content without a sentinel block
// is preserved and the section is appended.
func TestApplySectionAppend(t *testing.T) {
	t.Parallel()
	existing := "log_level: debug"
	section := sentinelStart + "\nnew content\n" + sentinelEnd
	got := applySection(existing, section)

	assert.Equal(t, existing+"\n\n"+section+"\n", got)
}

// TestApplySectionUpdate verifies that an existing sentinel block is replaced
// precisely, leaving surrounding content intact.
func TestApplySectionUpdate(t *testing.T) {
	t.Parallel()
	before := "# project settings\n\n"
	after := "\n\nrust_src_path: /opt/rust/library\n"
	old := before + sentinelStart + "\nold content\n" + sentinelEnd + after

	section := sentinelStart + "\nnew content\n" + sentinelEnd
	got := applySection(old, section)

	assert.True(t, strings.HasPrefix(got, before), got)
	assert.True(t, strings.HasSuffix(got, after), got)
	assert.NotContains(t, got, "old content")
	assert.Contains(t, got, "new content")
}

func TestInitCreatesFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), ".rustguide.yaml")

	var stdout, stderr bytes.Buffer
	require.NoError(t, runInit(path, false, &stdout, &stderr))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), sentinelStart)
	assert.Contains(t, string(data), sentinelEnd)
	assert.Contains(t, stderr.String(), path)
}

// TestInitDryRun verifies that --dry-run prints the full would-be file content
// to stdout and does not create the target file.
func TestInitDryRun(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), ".rustguide.yaml")

	var stdout, stderr bytes.Buffer
	require.NoError(t, runInit(path, true, &stdout, &stderr))

	_, err := os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, stdout.String(), sentinelStart)
	assert.Contains(t, stdout.String(), sentinelEnd)
}

// TestInitDryRunNoPath verifies that --dry-run without a path prints just the
// generated section.
func TestInitDryRunNoPath(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	require.NoError(t, runInit("", true, &stdout, &stderr))
	assert.Equal(t, generateSection(config.Default())+"\n", stdout.String())
}

func TestInitDryRunShowsFullFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), ".rustguide.yaml")

	existing := "# my settings\nrust_src_path: /opt/rust/library\n"
	require.NoError(t, os.WriteFile(path, []byte(existing), 0o644))

	var stdout, stderr bytes.Buffer
	require.NoError(t, runInit(path, true, &stdout, &stderr))

	assert.True(t, strings.HasPrefix(stdout.String(), existing))
	assert.Contains(t, stdout.String(), sentinelStart)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, existing, string(data), "--dry-run must not modify the file")
}

func TestInitIdempotent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), ".rustguide.yaml")

	var buf bytes.Buffer
	require.NoError(t, runInit(path, false, &buf, &buf))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, runInit(path, false, &buf, &buf))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

// TestInitSectionLoads verifies that the generated block is a config file the
// loader accepts and that it reproduces the defaults.
func TestInitSectionLoads(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	var buf bytes.Buffer
	require.NoError(t, runInit(path, false, &buf, &buf))

	cfg, err := config.NewLoader(dir, path).Load()
	require.NoError(t, err)

	want := config.Default()
	assert.Equal(t, want.LogLevel, cfg.LogLevel)
	assert.Equal(t, want.Cache, cfg.Cache)
	assert.Equal(t, want.Output, cfg.Output)
}

func TestInitSectionMentionsEnv(t *testing.T) {
	t.Parallel()
	section := generateSection(config.Default())
	for _, key := range []string{"rust_src_path", "RUST_SRC_PATH", "cargo_home", "CARGO_HOME", "capacity_bytes", "max_results"} {
		assert.Contains(t, section, key)
	}
}

func TestInitCommand(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cfg.yaml")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"init", "--dry-run", path}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "log_level: warn")
}
