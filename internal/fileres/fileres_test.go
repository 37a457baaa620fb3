package fileres

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files under root from a path -> contents map.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, contents := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))
	}
}

func newSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s, err := NewSession(opts...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestSessionLoadFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"src/lib.rs": "pub fn f() {}\n"})
	path := filepath.Join(dir, "src", "lib.rs")

	s := newSession(t)
	assert.False(t, s.ContainsFile(path))

	buf, err := s.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pub fn f() {}\n", buf.Text())

	// The cache applies writes asynchronously.
	assert.Eventually(t, func() bool { return s.ContainsFile(path) }, time.Second, 10*time.Millisecond)

	_, err = s.LoadFile(filepath.Join(dir, "missing.rs"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSessionOverlay(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"main.rs": "fn main() {}\n"})
	path := filepath.Join(dir, "main.rs")

	s := newSession(t)
	s.CacheFileContents(path, "fn main() { unsaved(); }\n")
	assert.True(t, s.ContainsFile(path))

	buf, err := s.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fn main() { unsaved(); }\n", buf.Text())

	s.RemoveOverlay(path)
	buf, err = s.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fn main() {}\n", buf.Text())

	virtual := filepath.Join(dir, "virtual.rs")
	s.CacheFileContents(virtual, "struct V;")
	buf, err = s.LoadFile(virtual)
	require.NoError(t, err)
	assert.Equal(t, "struct V;", buf.Text())
}

func TestSessionInvalidate(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.rs": "old"})
	path := filepath.Join(dir, "a.rs")

	s := newSession(t)
	_, err := s.LoadFile(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("new"), 0o644))
	s.Invalidate(path)
	buf, err := s.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", buf.Text())
}

func TestSessionWatch(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"src/a.rs": "old"})
	path := filepath.Join(dir, "src", "a.rs")

	s := newSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Watch(ctx, dir))

	_, err := s.LoadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("new"), 0o644))

	assert.Eventually(t, func() bool {
		buf, err := s.LoadFile(path)
		return err == nil && buf.Text() == "new"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestSessionCloseStopsWatcher(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.rs": "old"})

	s, err := NewSession()
	require.NoError(t, err)
	// The context outlives the session.
	require.NoError(t, s.Watch(context.Background(), dir))

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return while a watcher was running")
	}

	// No watcher is left to touch the closed cache.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.rs"), []byte("new"), 0o644))
	s.Close()
}

func TestNewSessionRejectsBadCapacity(t *testing.T) {
	t.Parallel()
	_, err := NewSession(WithCacheCapacity(0))
	assert.Error(t, err)
}

func TestModuleFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"src/flat.rs":       "",
		"src/nested/mod.rs": "",
		"src/both.rs":       "",
		"src/both/mod.rs":   "",
	})
	src := filepath.Join(dir, "src")
	l := NewLocator(nil, "", "")

	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"flat", filepath.Join(src, "flat.rs"), true},
		{"nested", filepath.Join(src, "nested", "mod.rs"), true},
		{"both", filepath.Join(src, "both.rs"), true},
		{"missing", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := l.ModuleFile(tt.name, src)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModuleFileFromSession(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s := newSession(t)
	s.CacheFileContents(filepath.Join(dir, "unsaved.rs"), "pub fn f() {}")

	got, ok := NewLocator(s, "", "").ModuleFile("unsaved", dir)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "unsaved.rs"), got)
}

func TestCrateFile(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	cargoHome := filepath.Join(root, "cargo")
	rustSrc := filepath.Join(root, "rust", "library")
	ws := filepath.Join(root, "ws")

	writeTree(t, root, map[string]string{
		"ws/Cargo.toml": `
[workspace]
members = ["app", "util-lib"]

[workspace.dependencies]
serde = "1"
`,
		"ws/app/Cargo.toml": `
[package]
name = "my-app"

[lib]
path = "src/app.rs"

[dependencies]
util = { path = "../util-lib", package = "util-lib" }
serde = { workspace = true }
json = { version = "1", package = "serde_json" }
`,
		"ws/app/src/app.rs":      "",
		"ws/app/src/main.rs":     "",
		"ws/util-lib/Cargo.toml": "[package]\nname = \"util-lib\"\n",
		"ws/util-lib/src/lib.rs": "",

		"cargo/registry/src/index.crates.io-6f17d22bba15001f/serde-1.0.9/src/lib.rs":      "",
		"cargo/registry/src/index.crates.io-6f17d22bba15001f/serde-1.0.200/src/lib.rs":    "",
		"cargo/registry/src/index.crates.io-6f17d22bba15001f/serde_json-1.0.1/src/lib.rs": "",

		"rust/library/core/src/lib.rs": "",
		"rust/library/std/src/lib.rs":  "",
	})
	l := NewLocator(nil, rustSrc, cargoHome)
	from := filepath.Join(ws, "app", "src", "main.rs")
	registry := filepath.Join(cargoHome, "registry", "src", "index.crates.io-6f17d22bba15001f")

	tests := []struct {
		name string
		want string
	}{
		{"my_app", filepath.Join(ws, "app", "src", "app.rs")},
		{"util", filepath.Join(ws, "util-lib", "src", "lib.rs")},
		{"serde", filepath.Join(registry, "serde-1.0.200", "src", "lib.rs")},
		{"json", filepath.Join(registry, "serde_json-1.0.1", "src", "lib.rs")},
		{"std", filepath.Join(rustSrc, "std", "src", "lib.rs")},
		{"core", filepath.Join(rustSrc, "core", "src", "lib.rs")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := l.CrateFile(tt.name, from)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := l.CrateFile("nope", from)
	assert.False(t, ok)

	assert.Equal(t, []string{"json", "my_app", "serde", "util"}, l.Crates(filepath.Join(ws, "app")))
}

func TestCrateRoot(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"lib/Cargo.toml":      "[package]\nname = \"lib\"\n",
		"lib/src/lib.rs":      "",
		"lib/src/a/b.rs":      "",
		"bin/Cargo.toml":      "[package]\nname = \"bin\"\n",
		"bin/src/main.rs":     "",
		"bin/src/cli.rs":      "",
		"loose/main.rs":       "",
		"loose/sub/helper.rs": "",
	})
	l := NewLocator(nil, "", "")

	got, ok := l.CrateRoot(filepath.Join(root, "lib", "src", "a", "b.rs"))
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "lib", "src", "lib.rs"), got)

	got, ok = l.CrateRoot(filepath.Join(root, "bin", "src", "cli.rs"))
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "bin", "src", "main.rs"), got)

	got, ok = l.CrateRoot(filepath.Join(root, "loose", "sub", "helper.rs"))
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "loose", "main.rs"), got)
}

func TestCompareVersions(t *testing.T) {
	t.Parallel()
	assert.Positive(t, compareVersions("1.0.200", "1.0.9"))
	assert.Negative(t, compareVersions("0.9.0", "1.0.0"))
	assert.Zero(t, compareVersions("1.2.3", "1.2.3"))
	assert.Positive(t, compareVersions("1.2.3", "1.2"))
}
