// Package matchers classifies a single statement and extracts the symbol it
// declares, if it matches the search.
package matchers

import (
	"iter"
	"path/filepath"
	"strings"

	"github.com/phobologic/rustguide/internal/model"
	"github.com/phobologic/rustguide/internal/source"
)

// Context describes one probe: the statement to test and what to look for.
type Context struct {
	// Filepath is the file the statement lives in.
	Filepath string
	// SearchStr is the identifier (or prefix) being searched for.
	SearchStr  string
	SearchType model.SearchType
	// Range is the statement's range within the probed Src.
	Range model.ByteRange
	// FromFile is the file the search originated in. Empty disables
	// visibility filtering.
	FromFile string
	// IsLocal is set when the search originated in the same file.
	IsLocal bool
}

// Session loads file contents.
type Session interface {
	LoadFile(path string) (*source.Buffer, error)
	ContainsFile(path string) bool
}

// ModuleLocator resolves `mod name;` to a file.
type ModuleLocator interface {
	ModuleFile(name, parentDir string) (string, bool)
}

// CrateLocator resolves an external crate name to its library entry file.
type CrateLocator interface {
	CrateFile(name, fromPath string) (string, bool)
}

// Resolver is the path resolution entry point that use statements recurse into.
type Resolver interface {
	ResolvePath(path model.Path, file string, pos model.BytePos, st model.SearchType, ns model.Namespace, info ImportInfo) iter.Seq[model.Match]
}

// Env bundles the collaborators probes need beyond the statement text.
type Env struct {
	Session  Session
	Modules  ModuleLocator
	Crates   CrateLocator
	Resolver Resolver
}

func (c *Context) blob(src source.Src) (code, text string) {
	w := src.ShiftRange(c.Range)
	return w.Code(), w.Text()
}

// abs converts an offset within the statement to a buffer offset.
func (c *Context) abs(src source.Src, off model.BytePos) model.BytePos {
	return src.Start().Add(c.Range.Start).Add(off)
}

// visible reports whether an item with visibility vis declared in
// c.Filepath can be seen from c.FromFile.
func (c *Context) visible(vis model.Visibility) bool {
	if c.IsLocal || c.FromFile == "" {
		return true
	}
	switch vis {
	case model.Local:
		return false
	case model.Inherited:
		return c.FromFile == c.Filepath || underDir(c.FromFile, ModuleDir(c.Filepath))
	default:
		return true
	}
}

// ModuleDir returns the directory holding the submodules of the module
// defined by file: the file's own directory for lib.rs, main.rs and mod.rs,
// and a sibling directory named after the file otherwise.
func ModuleDir(file string) string {
	dir := filepath.Dir(file)
	switch base := filepath.Base(file); base {
	case "lib.rs", "main.rs", "mod.rs":
		return dir
	default:
		return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base)))
	}
}

func underDir(file, dir string) bool {
	rel, err := filepath.Rel(dir, file)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// findKeyword matches `[vis] [ignore...] keyword <ws>+ search` at the start
// of blob and returns the offset of the identifier and the stripped
// visibility.
func (c *Context) findKeyword(blob, keyword string, ignore []string) (model.BytePos, model.Visibility, bool) {
	return findKeyword(blob, keyword, c.SearchStr, ignore, c.SearchType)
}

func findKeyword(blob, keyword, search string, ignore []string, st model.SearchType) (model.BytePos, model.Visibility, bool) {
	var start model.BytePos
	vis := model.Inherited
	if off, v, ok := source.StripVisibility(blob); ok {
		start, vis = off, v
	}
	if len(ignore) > 0 {
		start = start.Add(stripQualifiers(blob[start:], ignore))
	}
	if !strings.HasPrefix(blob[start:], keyword) {
		return 0, vis, false
	}
	start = start.Add(model.BytePos(len(keyword)))
	ws := model.BytePos(source.SkipWhitespace(blob, start.Int()))
	if ws == start {
		return 0, vis, false
	}
	start = ws
	if !strings.HasPrefix(blob[start:], search) {
		return 0, vis, false
	}
	if st == model.ExactMatch {
		end := start.Int() + len(search)
		if end < len(blob) && source.IsIdentByte(blob[end]) {
			return 0, vis, false
		}
	}
	return start, vis, true
}

// stripQualifiers strips leading qualifier words in order. `extern` may be
// followed by an ABI string.
func stripQualifiers(s string, words []string) model.BytePos {
	var start model.BytePos
	for _, w := range words {
		n, ok := source.StripWord(s[start:], w)
		if !ok {
			continue
		}
		start = start.Add(n)
		if w == "extern" && start.Int() < len(s) && s[start] == '"' {
			if end := strings.IndexByte(s[start+1:], '"'); end >= 0 {
				start = model.BytePos(source.SkipWhitespace(s, start.Int()+end+2))
			}
		}
	}
	return start
}

// getKeyIdent is findKeyword plus the matched identifier and a visibility check.
func (c *Context) getKeyIdent(blob, keyword string, ignore []string) (model.BytePos, string, model.Visibility, bool) {
	start, vis, ok := c.findKeyword(blob, keyword, ignore)
	if !ok || !c.visible(vis) {
		return 0, "", vis, false
	}
	return start, c.identAt(blob, start), vis, true
}

// identAt returns the identifier at start: the search string itself for
// exact searches, or the full identifier it prefixes.
func (c *Context) identAt(blob string, start model.BytePos) string {
	if c.SearchType == model.ExactMatch {
		return c.SearchStr
	}
	end := source.FindIdentEnd(blob, start.Add(model.BytePos(len(c.SearchStr))))
	return blob[start:end]
}
