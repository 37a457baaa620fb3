package scopes

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/rustguide/internal/model"
	"github.com/phobologic/rustguide/internal/source"
)

func pointAt(t *testing.T, buf *source.Buffer, line, col int) model.BytePos {
	t.Helper()
	p, ok := buf.CoordsToPoint(model.Coordinate{Line: line, Column: col})
	require.True(t, ok, "no point at %d:%d", line, col)
	return p
}

func TestScopeStart(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		line int
		col  int
		want model.BytePos
	}{
		{
			name: "function body",
			src:  "\nfn myfn() {\n    let a = 3;\n    print(a);\n}\n",
			line: 4, col: 10,
			want: 12,
		},
		{
			name: "nested block before point",
			src:  "\nfn myfn() {\n    let a = 3;\n    {\n      let b = 4;\n    }\n    print(a);\n}\n",
			line: 7, col: 10,
			want: 12,
		},
		{
			name: "use group is not a scope",
			src:  "\nfn myfn() {\n    use a::{b, c};\n}\n",
			line: 3, col: 13,
			want: 12,
		},
		{
			name: "comment braces ignored",
			src:  "\nfn myfn() {\n    // }\n    x;\n}\n",
			line: 4, col: 4,
			want: 12,
		},
		{
			name: "top level",
			src:  "struct S;\nfn f() {}\n",
			line: 2, col: 0,
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			buf := source.NewBuffer(tt.src)
			assert.Equal(t, tt.want, ScopeStart(buf.Src(), pointAt(t, buf, tt.line, tt.col)))
		})
	}
}

func TestScopeStartClosureArgs(t *testing.T) {
	t.Parallel()
	text := "fn f() {\n    foo(|a, b| a + b);\n}\n"
	src := source.NewSrc(text)
	point := model.BytePos(strings.Index(text, "a + b"))
	assert.Equal(t, model.BytePos(strings.Index(text, "|a")), ScopeStart(src, point))
}

func TestFindStmtStart(t *testing.T) {
	t.Parallel()
	text := "fn f() {\n    let a = 3;\n    print(a);\n}\n"
	src := source.NewSrc(text)

	start, ok := FindStmtStart(src, model.BytePos(strings.Index(text, "(a)")+1))
	require.True(t, ok)
	assert.Equal(t, model.BytePos(strings.Index(text, "print")), start)

	assert.Equal(t, start, ExpectStmtStart(src, model.BytePos(strings.Index(text, "(a)")+1)))
}

func TestExpectStmtStartPanics(t *testing.T) {
	t.Parallel()
	src := source.NewSrc("fn f() {\n    \n}\n")
	assert.Panics(t, func() { ExpectStmtStart(src, 12) })
}

func TestFindLetStart(t *testing.T) {
	t.Parallel()
	text := "fn f() {\n    let Foo { a, b } = make();\n}\n"
	src := source.NewSrc(text)

	start, ok := FindLetStart(src, model.BytePos(strings.Index(text, "b }")))
	require.True(t, ok)
	assert.Equal(t, model.BytePos(strings.Index(text, "let")), start)

	_, ok = FindLetStart(src, model.BytePos(strings.Index(text, "f()")))
	assert.False(t, ok)
}

func TestGetLocalModulePath(t *testing.T) {
	t.Parallel()
	buf := source.NewBuffer("\n    pub mod foo {\n        pub mod bar {\n            here\n        }\n    }")

	assert.Equal(t, []string{"foo", "bar"}, GetLocalModulePath(buf.Src(), pointAt(t, buf, 4, 12)))
	assert.Equal(t, []string{"foo"}, GetLocalModulePath(buf.Src(), pointAt(t, buf, 3, 4)))
	assert.Empty(t, GetLocalModulePath(buf.Src(), 0))
}

func TestGetModuleFileFromPath(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.rs"), []byte("//! other\n"), 0o644))

	text := "#[path = \"other.rs\"]\nmod renamed;\nmod plain;\n"
	src := source.NewSrc(text)

	got, ok := GetModuleFileFromPath(src, model.BytePos(strings.Index(text, "mod renamed")), dir)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "other.rs"), got)

	_, ok = GetModuleFileFromPath(src, model.BytePos(strings.Index(text, "mod plain")), dir)
	assert.False(t, ok)

	missing := source.NewSrc("#[path = \"nope.rs\"]\nmod renamed;\n")
	_, ok = GetModuleFileFromPath(missing, 21, dir)
	assert.False(t, ok)
}

func TestFindImplStart(t *testing.T) {
	t.Parallel()
	text := "struct S;\nimpl S {\n    fn new() -> S {\n        S\n    }\n}\n"
	src := source.NewSrc(text)

	start, ok := FindImplStart(src, model.BytePos(strings.Index(text, "        S")), 0)
	require.True(t, ok)
	assert.Equal(t, model.BytePos(strings.Index(text, "impl")), start)
}

func TestFindImplStartPanicsWithoutBody(t *testing.T) {
	t.Parallel()
	text := "fn f() {\n    let a = 1;\n}\n"
	src := source.NewSrc(text)
	assert.Panics(t, func() { FindImplStart(src, model.BytePos(strings.Index(text, "1;")), 0) })
}

func TestEndOfNextScope(t *testing.T) {
	t.Parallel()
	src := "\nstruct foo {\n   a: usize,\n   blah: ~str\n}\nSome other junk"
	want := "\nstruct foo {\n   a: usize,\n   blah: ~str\n}"
	assert.Equal(t, want, EndOfNextScope(src))
	assert.Equal(t, "", EndOfNextScope("struct foo { a"))
}

func TestFindClosingParen(t *testing.T) {
	t.Parallel()
	assert.Equal(t, model.BytePos(8), FindClosingParen("foo(a(b))", 4))
	assert.Equal(t, model.BytePos(8), FindClosingParen("foo(a(b)", 4))
}

func TestGetLine(t *testing.T) {
	t.Parallel()
	assert.Equal(t, model.BytePos(2), GetLine("ab\ncd\nef", 5))
	assert.Equal(t, model.BytePos(0), GetLine("abc", 2))
}

func TestSplitIntoContextAndCompletion(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in         string
		ctx, compl string
		typ        CompletionType
	}{
		{"foo.ba", "foo", "ba", CompleteField},
		{"a::b::c", "a::b", "c", CompletePath},
		{"let x = fo", "let x = ", "fo", CompletePath},
		{"foo", "", "foo", CompletePath},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			ctx, compl, typ := SplitIntoContextAndCompletion(tt.in)
			assert.Equal(t, tt.ctx, ctx)
			assert.Equal(t, tt.compl, compl)
			assert.Equal(t, tt.typ, typ)
		})
	}
}
