// Package scopes finds scope, statement and expression boundaries in Rust
// source without parsing it.
package scopes

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/phobologic/rustguide/internal/ast"
	"github.com/phobologic/rustguide/internal/model"
	"github.com/phobologic/rustguide/internal/source"
)

// closeForward returns the index of the close byte that brings the nesting
// level back to levelEnd.
func closeForward(s string, open, close byte, levelEnd int) (int, bool) {
	levels := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case close:
			if levels == levelEnd {
				return i, true
			}
			if levels == 0 {
				return 0, false
			}
			levels--
		case open:
			levels++
		}
	}
	return 0, false
}

// openBackward scans s from its end and returns the offset just past the
// first unmatched open byte.
func openBackward(s string, open, close byte) (model.BytePos, bool) {
	levels := 0
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case open:
			if levels == 0 {
				return model.BytePos(i + 1), true
			}
			levels--
		case close:
			levels++
		}
	}
	return 0, false
}

// FindClosingParen returns the offset of the `)` closing the group that
// contains pos, or len(s) if there is none.
func FindClosingParen(s string, pos model.BytePos) model.BytePos {
	if pos.Int() > len(s) {
		return model.BytePos(len(s))
	}
	if i, ok := closeForward(s[pos:], '(', ')', 0); ok {
		return pos.Add(model.BytePos(i))
	}
	return model.BytePos(len(s))
}

func findClosureScopeStart(src source.Src, point, parenOpen model.BytePos) (model.BytePos, bool) {
	rest := src.From(point).Code()
	closing := FindClosingParen(rest, 0).Add(point)
	if _, ok := source.ClosureValidArgScope(src.FromTo(parenOpen, closing).Code()); ok {
		return parenOpen, true
	}
	return 0, false
}

// ScopeStart returns the offset just past the `{` (or closure-opening `(`)
// of the innermost scope enclosing point. The start of src is returned when
// no enclosing scope exists.
func ScopeStart(src source.Src, point model.BytePos) model.BytePos {
	masked := src.To(point).Code()

	curly, _ := openBackward(masked, '{', '}')
	if curly > 0 && strings.HasSuffix(masked[:curly], "::{") {
		// `use a::{b, c}` groups are not scopes.
		log.Trace().Int("point", point.Int()).Msg("scope start landed in a use group; widening")
		curly = ScopeStart(src, curly.Decrement())
	}

	paren, ok := openBackward(masked, '(', ')')
	if curly > paren || !ok {
		return curly
	}
	if start, ok := findClosureScopeStart(src, point, paren); ok {
		return start
	}
	return curly
}

// FindStmtStart returns the start of the statement that strictly contains point.
func FindStmtStart(src source.Src, point model.BytePos) (model.BytePos, bool) {
	scope := ScopeStart(src, point)
	for r := range src.From(scope).Stmts() {
		if scope.Add(r.Start) < point && point < scope.Add(r.End) {
			return scope.Add(r.Start), true
		}
	}
	return 0, false
}

// ExpectStmtStart is FindStmtStart for callers that know point lies inside
// a statement. It panics otherwise.
func ExpectStmtStart(src source.Src, point model.BytePos) model.BytePos {
	start, ok := FindStmtStart(src, point)
	if !ok {
		panic("statement does not have a beginning")
	}
	return start
}

const maxLetSearchSteps = 5

// FindLetStart returns the start of the let statement containing point. The
// search widens to enclosing scopes when a destructuring pattern made the
// innermost scope look like a block.
func FindLetStart(src source.Src, point model.BytePos) (model.BytePos, bool) {
	scope := ScopeStart(src, point)
	for step := 1; step <= maxLetSearchSteps; step++ {
		for r := range src.From(scope).Stmts() {
			if scope.Add(r.End) <= point {
				continue
			}
			if strings.HasPrefix(src.ShiftRange(r.Shift(scope)).Code(), "let") {
				return scope.Add(r.Start), true
			}
			break
		}
		if scope == 0 {
			break
		}
		log.Trace().Int("step", step).Int("scope", scope.Int()).Msg("let start not found; widening")
		scope = ScopeStart(src, scope.Decrement())
	}
	return 0, false
}

// GetLocalModulePath returns the names of the inline modules enclosing
// point, outermost first.
func GetLocalModulePath(src source.Src, point model.BytePos) []string {
	var out []string
	localModulePath(src, point, &out)
	return out
}

func localModulePath(src source.Src, point model.BytePos, out *[]string) {
	for r := range src.Stmts() {
		if !r.Contains(point) {
			continue
		}
		blob := src.ShiftRange(r)
		code := blob.Code()
		if !strings.HasPrefix(code, "pub mod ") && !strings.HasPrefix(code, "mod ") {
			continue
		}
		open := strings.IndexByte(code, '{')
		if open < 0 {
			continue
		}
		name, ok := ast.ParseMod(code[:open] + "{}")
		if !ok {
			continue
		}
		*out = append(*out, name)
		inner := model.BytePos(open + 1)
		localModulePath(blob.From(inner), point.Sub(r.Start).Sub(inner), out)
	}
}

// GetModuleFileFromPath looks for a `#[path = "..."]` attribute on the
// module declaration at point and returns the attributed file when it exists.
func GetModuleFileFromPath(src source.Src, point model.BytePos, parentDir string) (string, bool) {
	var prev *model.ByteRange
	for r := range src.Stmts() {
		if prev != nil {
			attr := src.ShiftRange(*prev).Text()
			if prev.Start < point && r.End > point {
				if p, ok := pathAttrValue(attr); ok {
					log.Debug().Str("path", p).Msg("found a path attribute")
					full := filepath.Join(parentDir, p)
					if _, err := os.Stat(full); err == nil {
						return full, true
					}
				}
			}
			prev = nil
			continue
		}
		if isPathAttr(src.ShiftRange(r).Code()) {
			rr := r
			prev = &rr
		}
	}
	return "", false
}

func isPathAttr(code string) bool {
	if !strings.HasPrefix(code, "#[path") {
		return false
	}
	rest := code[len("#[path"):]
	return rest != "" && !source.IsIdentByte(rest[0])
}

func pathAttrValue(attr string) (string, bool) {
	start := strings.IndexByte(attr, '"')
	if start < 0 {
		return "", false
	}
	end := strings.IndexByte(attr[start+1:], '"')
	if end < 0 {
		return "", false
	}
	return attr[start+1 : start+1+end], true
}

// FindImplStart returns the start of the impl or trait block containing
// point, descending into nested blocks from scopeStart. It panics when a
// statement it must descend into has no body.
func FindImplStart(src source.Src, point, scopeStart model.BytePos) (model.BytePos, bool) {
	length := point.Sub(scopeStart)
	for r := range src.From(scopeStart).Stmts() {
		if r.End <= length {
			continue
		}
		start := scopeStart.Add(r.Start)
		blob := src.From(start).Code()
		if isImplHeader(blob) {
			return start, true
		}
		open := strings.IndexByte(blob, '{')
		if open < 0 {
			panic("find impl start: { was not found")
		}
		return FindImplStart(src, point, start.Add(model.BytePos(open+1)))
	}
	return 0, false
}

func isImplHeader(blob string) bool {
	for _, prefix := range []string{"impl", "unsafe impl", "trait", "pub trait", "unsafe trait"} {
		if source.StartsWithWord(blob, prefix) {
			return true
		}
	}
	return false
}

// EndOfNextScope returns the prefix of s up to and including the `}` that
// closes the first `{`, or "" if s has no complete block.
func EndOfNextScope(s string) string {
	i, ok := closeForward(s, '{', '}', 1)
	if !ok {
		return ""
	}
	return s[:i+1]
}

// GetLine returns the offset of the newline ending the line before point,
// or 0 on the first line.
func GetLine(s string, point model.BytePos) model.BytePos {
	if i := strings.LastIndexByte(s[:min(point.Int(), len(s))], '\n'); i >= 0 {
		return model.BytePos(i)
	}
	return 0
}

// CompletionType says whether the text before the cursor names a field or
// a path segment.
type CompletionType int

const (
	CompletePath CompletionType = iota
	CompleteField
)

func (c CompletionType) String() string {
	if c == CompleteField {
		return "field"
	}
	return "path"
}

// SplitIntoContextAndCompletion splits an expression at its last separator:
// "foo.ba" yields ("foo", "ba", CompleteField) and "a::b::c" yields
// ("a::b", "c", CompletePath).
func SplitIntoContextAndCompletion(s string) (string, string, CompletionType) {
	for i := len(s) - 1; i >= 0; i-- {
		if source.IsIdentByte(s[i]) {
			continue
		}
		switch {
		case s[i] == '.':
			return s[:i], s[i+1:], CompleteField
		case s[i] == ':' && len(s) > 1 && i > 0:
			return s[:i-1], s[i+1:], CompletePath
		default:
			return s[:i+1], s[i+1:], CompletePath
		}
	}
	return "", s, CompletePath
}
