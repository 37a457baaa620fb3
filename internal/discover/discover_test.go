package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paths(entries []FileEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func TestDiscoverRustFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "src/lib.rs", "pub mod util;")
	writeFile(t, dir, "src/util.rs", "pub fn helper() {}")
	writeFile(t, dir, "Cargo.toml", "[package]\nname = \"demo\"\n")
	writeFile(t, dir, "README.md", "hello")
	writeFile(t, dir, ".hidden.rs", "fn secret() {}")

	entries, err := Files(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join("src", "lib.rs"),
		filepath.Join("src", "util.rs"),
	}, paths(entries))
	for _, e := range entries {
		assert.False(t, e.Test, e.Path)
	}
}

func TestDiscoverSkipDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "main.rs", "fn main() {}")
	writeFile(t, dir, "target/debug/build/out.rs", "fn generated() {}")
	writeFile(t, dir, "node_modules/pkg/x.rs", "fn x() {}")
	writeFile(t, dir, ".hidden/secret.rs", "fn s() {}")

	entries, err := Files(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.rs"}, paths(entries))
}

func TestDiscoverHonoursGitignore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, ".gitignore", "generated/\n")
	writeFile(t, dir, "src/lib.rs", "")
	writeFile(t, dir, "generated/bindings.rs", "")

	entries, err := Files(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("src", "lib.rs")}, paths(entries))
}

func TestDiscoverSymlinksSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "real.rs", "")

	if err := os.Symlink(filepath.Join(dir, "real.rs"), filepath.Join(dir, "link.rs")); err != nil {
		t.Skip("symlinks not supported")
	}

	entries, err := Files(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"real.rs"}, paths(entries))
}

func TestDiscoverMarksTests(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "src/lib.rs", "")
	writeFile(t, dir, "tests/integration.rs", "")

	entries, err := Files(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Test)
	assert.True(t, entries[1].Test)
}

func TestIsTestFile(t *testing.T) {
	t.Parallel()
	cases := []struct {
		path string
		want bool
	}{
		{"tests/integration.rs", true},
		{"crates/core/tests/common/mod.rs", true},
		{"benches/parse.rs", true},
		{"examples/demo.rs", true},
		{"src/tests.rs", true},
		{"src/parser_test.rs", true},
		{"src/scanner_tests.rs", true},
		{"src/lib.rs", false},
		{"src/testing.rs", false},
		{"src/test_utils.rs", false},
		{"tests.rs/lib.rs", false},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, IsTestFile(tc.path))
		})
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
