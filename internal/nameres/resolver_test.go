package nameres

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/rustguide/internal/fileres"
	"github.com/phobologic/rustguide/internal/matchers"
	"github.com/phobologic/rustguide/internal/model"
)

const libRS = `//! Geometry crate.
pub mod shapes;

mod util {
    pub fn helper() -> u8 { 1 }
    pub mod deep {
        pub const DEPTH: u8 = 2;
    }
}

mod cyc_a {
    pub use super::cyc_b::Thing;
}

mod cyc_b {
    pub use super::cyc_a::Thing;
}

use shapes::Circle as Round;
use self::util::deep::*;

pub enum Color { Red, Green }

impl Color {
    pub fn default() -> Self {
        Self::Red
    }
}

fn pick() -> Color { Color::Green }

pub fn area() -> f64 {
    let radius = 2.0;
    let circle = Round::new(radius);
    let d = DEPTH;
    if let Some(inner) = maybe() {
        inner;
    }
    radius
}
`

const shapesRS = `//! Shapes.
use super::Color;

/// A circle.
pub struct Circle { r: f64 }

pub fn unit() {}

fn private() {}

fn paint() -> Color { todo!() }
`

type crateFixture struct {
	root     string
	lib      string
	shapes   string
	resolver *Resolver
}

func newCrate(t *testing.T) *crateFixture {
	t.Helper()
	root, resolver := newResolver(t, map[string]string{
		"Cargo.toml":         "[package]\nname = \"geometry\"\n\n[dependencies]\nhelpers = { path = \"helpers\" }\n",
		"src/lib.rs":         libRS,
		"src/shapes.rs":      shapesRS,
		"helpers/Cargo.toml": "[package]\nname = \"helpers\"\n",
		"helpers/src/lib.rs": "pub fn assist() {}\n",
	})
	return &crateFixture{
		root:     root,
		lib:      filepath.Join(root, "src", "lib.rs"),
		shapes:   filepath.Join(root, "src", "shapes.rs"),
		resolver: resolver,
	}
}

// newResolver writes files under a temporary root and returns the root and
// a resolver over it.
func newResolver(t *testing.T, files map[string]string) (string, *Resolver) {
	t.Helper()
	root := t.TempDir()
	for rel, contents := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))
	}

	session, err := fileres.NewSession()
	require.NoError(t, err)
	t.Cleanup(session.Close)
	locator := fileres.NewLocator(session, "", "")
	return root, New(session, locator)
}

// at returns the offset of the n-th byte of the first occurrence of marker.
func at(t *testing.T, text, marker string, n int) model.BytePos {
	t.Helper()
	i := strings.Index(text, marker)
	require.GreaterOrEqual(t, i, 0, "marker %q not found", marker)
	return model.BytePos(i + n)
}

func TestFindDefinition(t *testing.T) {
	t.Parallel()
	c := newCrate(t)

	tests := []struct {
		name     string
		text     string
		file     func(*crateFixture) string
		marker   string
		offset   int
		wantStr  string
		wantKind model.Kind
		wantFile func(*crateFixture) string
		wantAt   string
	}{
		{
			name: "let binding", text: libRS, file: libFile, marker: "    radius\n}", offset: 4,
			wantStr: "radius", wantKind: model.Let{}, wantFile: libFile, wantAt: "radius = 2.0",
		},
		{
			name: "if let binding from its block", text: libRS, file: libFile, marker: "inner;", offset: 1,
			wantStr: "inner", wantKind: model.IfLet{}, wantFile: libFile, wantAt: "inner) =",
		},
		{
			name: "renamed import", text: libRS, file: libFile, marker: "Round::new", offset: 2,
			wantStr: "Round", wantKind: model.Struct{}, wantFile: shapesFile, wantAt: "Circle {",
		},
		{
			name: "glob import of nested inline module", text: libRS, file: libFile, marker: "DEPTH;", offset: 0,
			wantStr: "DEPTH", wantKind: model.Const{}, wantFile: libFile, wantAt: "DEPTH: u8",
		},
		{
			name: "Self variant", text: libRS, file: libFile, marker: "Self::Red", offset: 7,
			wantStr: "Red", wantKind: model.EnumVariant{}, wantFile: libFile, wantAt: "Red,",
		},
		{
			name: "enum variant path", text: libRS, file: libFile, marker: "Color::Green }", offset: 8,
			wantStr: "Green", wantKind: model.EnumVariant{}, wantFile: libFile, wantAt: "Green }",
		},
		{
			name: "super import", text: shapesRS, file: shapesFile, marker: "-> Color", offset: 4,
			wantStr: "Color", wantKind: model.Enum{}, wantFile: libFile, wantAt: "Color {",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, ok := c.resolver.FindDefinition(tt.file(c), at(t, tt.text, tt.marker, tt.offset))
			require.True(t, ok)
			assert.Equal(t, tt.wantStr, m.MatchStr)
			assert.IsType(t, tt.wantKind, m.Kind)
			assert.Equal(t, tt.wantFile(c), m.Filepath)

			wantText := libRS
			if tt.wantFile(c) == c.shapes {
				wantText = shapesRS
			}
			assert.Equal(t, at(t, wantText, tt.wantAt, 0), m.Point)
		})
	}
}

func libFile(c *crateFixture) string    { return c.lib }
func shapesFile(c *crateFixture) string { return c.shapes }

func TestFindDefinitionModDeclInsideInlineModule(t *testing.T) {
	t.Parallel()
	const lib = "mod outer {\n    pub mod inner;\n}\n\nfn main() { outer::inner::hello(); }\n"
	// src/inner.rs is where a top-level `mod inner;` would point.
	root, resolver := newResolver(t, map[string]string{
		"Cargo.toml":         "[package]\nname = \"nested\"\n",
		"src/lib.rs":         lib,
		"src/outer/inner.rs": "pub fn hello() {}\n",
		"src/inner.rs":       "pub fn hello() {}\n",
	})

	m, ok := resolver.FindDefinition(filepath.Join(root, "src", "lib.rs"), at(t, lib, "hello()", 2))
	require.True(t, ok)
	assert.Equal(t, "hello", m.MatchStr)
	assert.Equal(t, filepath.Join(root, "src", "outer", "inner.rs"), m.Filepath)
	assert.Equal(t, model.BytePos(len("pub fn ")), m.Point)
}

func TestFindDefinitionCarriesDocs(t *testing.T) {
	t.Parallel()
	c := newCrate(t)
	m, ok := c.resolver.FindDefinition(c.lib, at(t, libRS, "Round::new", 0))
	require.True(t, ok)
	assert.Equal(t, "A circle.", m.Docs)
}

func TestFindDefinitionSkipsFieldAccess(t *testing.T) {
	t.Parallel()
	c := newCrate(t)
	c.resolver.session.(*fileres.Session).CacheFileContents(c.lib, libRS+"\nfn f() { circle.radius }\n")
	_, ok := c.resolver.FindDefinition(c.lib, at(t, libRS+"\nfn f() { circle.radius }\n", "circle.radius", 8))
	assert.False(t, ok)
}

func TestResolvePath(t *testing.T) {
	t.Parallel()
	c := newCrate(t)

	tests := []struct {
		name string
		path string
		from func(*crateFixture) string
		want []string
	}{
		{"public item of file module", "shapes::unit", libFile, []string{"unit"}},
		{"private item of file module", "shapes::private", libFile, nil},
		{"private item from its own file", "self::private", shapesFile, []string{"private"}},
		{"crate root", "crate::util::helper", shapesFile, []string{"helper"}},
		{"path dependency", "helpers::assist", libFile, []string{"assist"}},
		{"import cycle", "cyc_a::Thing", libFile, nil},
		{"missing", "util::nothing", libFile, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got []string
			for m := range c.resolver.ResolvePath(model.ParsePath(tt.path), tt.from(c), 0, model.ExactMatch, model.BothNamespaces, matchers.ImportInfo{}) {
				got = append(got, m.MatchStr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ResolvePath(%s) mismatch (-want +got):\n%s", tt.path, diff)
			}
		})
	}
}

func TestComplete(t *testing.T) {
	t.Parallel()
	c := newCrate(t)

	names := func(ms []model.Match) []string {
		var out []string
		for _, m := range ms {
			out = append(out, m.MatchStr)
		}
		return out
	}

	got := c.resolver.Complete(c.lib, at(t, libRS, "Color::Green }", len("Color::Gr")))
	assert.Equal(t, []string{"Green"}, names(got))

	got = c.resolver.Complete(c.lib, at(t, libRS, "shapes::Circle as", len("sha")))
	assert.Contains(t, names(got), "shapes")

	got = c.resolver.Complete(c.lib, at(t, libRS, "radius\n}", len("rad")))
	require.NotEmpty(t, got)
	assert.Equal(t, "radius", got[0].MatchStr)
	assert.Equal(t, model.Let{}, got[0].Kind)

	got = c.resolver.Complete(c.lib, at(t, libRS, "util::deep", len("util::")))
	assert.Equal(t, []string{"helper", "deep"}, names(got))
}
