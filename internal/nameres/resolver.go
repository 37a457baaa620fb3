// Package nameres resolves Rust paths to the items they name by walking
// enclosing scopes, modules and crates.
package nameres

import (
	"iter"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/phobologic/rustguide/internal/ast"
	"github.com/phobologic/rustguide/internal/matchers"
	"github.com/phobologic/rustguide/internal/model"
	"github.com/phobologic/rustguide/internal/scopes"
	"github.com/phobologic/rustguide/internal/source"
)

// Locator maps module and crate names to files.
type Locator interface {
	matchers.ModuleLocator
	matchers.CrateLocator
	CrateRoot(file string) (string, bool)
	Crates(dir string) []string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) { r.log = logger }
}

// Resolver implements matchers.Resolver over a session and a locator.
type Resolver struct {
	log     zerolog.Logger
	session matchers.Session
	locator Locator
	env     *matchers.Env
}

// New creates a Resolver.
func New(session matchers.Session, locator Locator, opts ...Option) *Resolver {
	r := &Resolver{log: zerolog.Nop(), session: session, locator: locator}
	for _, opt := range opts {
		opt(r)
	}
	r.env = &matchers.Env{Session: session, Modules: locator, Crates: locator, Resolver: r}
	return r
}

// standardCrates are offered for completion even without a Cargo manifest.
var standardCrates = []string{"alloc", "core", "std"}

func (r *Resolver) load(file string) (*source.Buffer, bool) {
	buf, err := r.session.LoadFile(file)
	if err != nil {
		r.log.Debug().Err(err).Str("file", file).Msg("cannot load file")
		return nil, false
	}
	return buf, true
}

// ResolvePath yields the items path names as seen from pos in file.
func (r *Resolver) ResolvePath(path model.Path, file string, pos model.BytePos, st model.SearchType, ns model.Namespace, info matchers.ImportInfo) iter.Seq[model.Match] {
	return func(yield func(model.Match) bool) {
		path = r.expandSelfType(path, file, pos)
		r.log.Trace().Stringer("path", path).Str("file", file).Stringer("search", st).Msg("resolving path")
		switch {
		case len(path.Segments) == 0:
			return
		case len(path.Segments) == 1 && path.Global:
			for _, m := range r.crates(path.Last(), file, st) {
				if !yield(m) {
					return
				}
			}
			return
		case len(path.Segments) == 1:
			for m := range r.resolveName(path.Last(), file, pos, st, ns, info) {
				if !yield(m) {
					return
				}
			}
			return
		}

		last := path.Last()
		for parent := range r.resolveContainer(path.Parent(), file, pos, info) {
			found := false
			for m := range r.searchIn(parent, last, st, ns, file, info) {
				found = true
				if !yield(m) {
					return
				}
			}
			if found && st == model.ExactMatch {
				return
			}
		}
	}
}

// expandSelfType replaces a leading Self with the type of the enclosing
// impl or trait block.
func (r *Resolver) expandSelfType(path model.Path, file string, pos model.BytePos) model.Path {
	if path.Global || len(path.Segments) == 0 || path.Segments[0].Name != "Self" {
		return path
	}
	buf, ok := r.load(file)
	if !ok {
		return path
	}
	typ, ok := selfType(buf.Src(), pos)
	if !ok {
		return path
	}
	typ.Segments = append(typ.Segments, path.Segments[1:]...)
	return typ
}

func selfType(src source.Src, pos model.BytePos) (model.Path, bool) {
	for p := pos; ; {
		start := scopes.ScopeStart(src, p)
		if start == 0 {
			return model.Path{}, false
		}
		if stmt, ok := scopes.FindStmtStart(src, start.Decrement()); ok {
			if name, ok := ast.ImplSelfType(src.FromTo(stmt, start).Text() + "}"); ok {
				return model.ParsePath(name), true
			}
		}
		p = start.Decrement()
	}
}

// resolveContainer yields the modules, enums and types a non-final path
// prefix can name.
func (r *Resolver) resolveContainer(path model.Path, file string, pos model.BytePos, info matchers.ImportInfo) iter.Seq[model.Match] {
	return func(yield func(model.Match) bool) {
		if len(path.Segments) == 0 {
			return
		}
		first, rest := path.Segments[0].Name, path.Segments[1:]

		var roots []model.Match
		switch {
		case path.Global:
			roots = r.crates(first, file, model.ExactMatch)
		case first == "crate":
			if root, ok := r.locator.CrateRoot(file); ok {
				roots = append(roots, r.fileModule(root, "crate"))
			}
		case first == "self":
			roots = append(roots, r.moduleAt(file, pos))
		case first == "super":
			if m, ok := r.parentModule(r.moduleAt(file, pos)); ok {
				roots = append(roots, m)
			}
		default:
			roots = slices.Collect(r.resolveName(first, file, pos, model.ExactMatch, model.TypeNamespace, info))
			if len(roots) == 0 {
				roots = r.crateRootItem(first, file, info)
			}
		}

		for _, root := range roots {
			if !r.descend(root, rest, file, info, yield) {
				return
			}
		}
	}
}

// crateRootItem looks name up at the top of the current crate, where paths
// in older editions are rooted.
func (r *Resolver) crateRootItem(name, file string, info matchers.ImportInfo) []model.Match {
	root, ok := r.locator.CrateRoot(file)
	if !ok || root == file {
		return nil
	}
	return slices.Collect(r.searchIn(r.fileModule(root, "crate"), name, model.ExactMatch, model.TypeNamespace, file, info))
}

// descend follows segs from m, yielding every container reached.
func (r *Resolver) descend(m model.Match, segs []model.PathSegment, from string, info matchers.ImportInfo, yield func(model.Match) bool) bool {
	if len(segs) == 0 {
		return yield(m)
	}
	name := segs[0].Name
	if name == "super" {
		parent, ok := r.parentModule(m)
		if !ok {
			return true
		}
		return r.descend(parent, segs[1:], from, info, yield)
	}
	for child := range r.searchIn(m, name, model.ExactMatch, model.TypeNamespace, from, info) {
		if !r.descend(child, segs[1:], from, info, yield) {
			return false
		}
	}
	return true
}

// searchIn yields the members of container named name.
func (r *Resolver) searchIn(container model.Match, name string, st model.SearchType, ns model.Namespace, from string, info matchers.ImportInfo) iter.Seq[model.Match] {
	return func(yield func(model.Match) bool) {
		switch container.Kind.(type) {
		case model.Module:
			mod, ok := r.moduleBody(container)
			if !ok {
				return
			}
			for m := range r.searchModule(mod, name, st, ns, from, info) {
				if !yield(m) {
					return
				}
			}
		case model.Enum:
			for _, m := range r.enumVariants(container, name, st) {
				if !yield(m) {
					return
				}
			}
		default:
			r.log.Debug().Stringer("container", container).Str("name", name).Msg("associated items are not resolved")
		}
	}
}

// module is a searchable list of items: a whole file or an inline module body.
type module struct {
	file string
	body model.ByteRange
}

func (r *Resolver) moduleBody(m model.Match) (module, bool) {
	buf, ok := r.load(m.Filepath)
	if !ok {
		return module{}, false
	}
	if m.Coords != nil {
		return module{file: m.Filepath, body: model.NewRange(0, model.BytePos(buf.Len()))}, true
	}
	code := buf.Src().From(m.Point).Code()
	open := strings.IndexByte(code, '{')
	block := scopes.EndOfNextScope(code)
	if open < 0 || block == "" {
		return module{}, false
	}
	start := m.Point.Add(model.BytePos(open + 1))
	end := m.Point.Add(model.BytePos(len(block) - 1))
	return module{file: m.Filepath, body: model.NewRange(start, end)}, true
}

func (r *Resolver) searchModule(mod module, name string, st model.SearchType, ns model.Namespace, from string, info matchers.ImportInfo) iter.Seq[model.Match] {
	return func(yield func(model.Match) bool) {
		buf, ok := r.load(mod.file)
		if !ok {
			return
		}
		src := buf.Src().ShiftRange(mod.body)
		for rng := range src.Stmts() {
			ctx := &matchers.Context{
				Filepath:   mod.file,
				SearchStr:  name,
				SearchType: st,
				Range:      rng,
				FromFile:   from,
				IsLocal:    from == mod.file,
			}
			for m := range r.items(src, ctx, ns, info) {
				if !yield(m) {
					return
				}
			}
		}
	}
}

func (r *Resolver) items(src source.Src, ctx *matchers.Context, ns model.Namespace, info matchers.ImportInfo) iter.Seq[model.Match] {
	return func(yield func(model.Match) bool) {
		if ns.Has(model.TypeNamespace) {
			for m := range matchers.MatchTypes(src, ctx, r.env, info) {
				if !yield(m) {
					return
				}
			}
		}
		if ns.Has(model.ValueNamespace) {
			for m := range matchers.MatchValues(src, ctx) {
				if !yield(m) {
					return
				}
			}
		}
	}
}

func (r *Resolver) enumVariants(enum model.Match, name string, st model.SearchType) []model.Match {
	buf, ok := r.load(enum.Filepath)
	if !ok {
		return nil
	}
	src := buf.Src()
	start := scopes.ExpectStmtStart(src, enum.Point)
	block := scopes.EndOfNextScope(src.From(start).Code())
	if block == "" {
		return nil
	}
	ctx := &matchers.Context{
		Filepath:   enum.Filepath,
		SearchStr:  name,
		SearchType: st,
		Range:      model.NewRange(start, start.Add(model.BytePos(len(block)))),
		IsLocal:    true,
	}
	var out []model.Match
	for _, m := range matchers.MatchEnumVariants(src, ctx) {
		if source.SymbolMatches(st, name, m.MatchStr) {
			out = append(out, m)
		}
	}
	return out
}

// fileModule returns a match for the module defined by file.
func (r *Resolver) fileModule(file, name string) model.Match {
	start := model.StartOfFile()
	m := model.Match{
		MatchStr:   name,
		Filepath:   file,
		Coords:     &start,
		Kind:       model.Module{},
		Visibility: model.Public,
		Context:    file,
	}
	if buf, ok := r.load(file); ok {
		m.Docs = matchers.FindModDoc(buf.Text(), 0)
	}
	return m
}

// moduleAt returns the innermost module enclosing pos: an inline module, or
// the file itself.
func (r *Resolver) moduleAt(file string, pos model.BytePos) model.Match {
	buf, ok := r.load(file)
	if !ok {
		return r.fileModule(file, moduleName(file))
	}
	src := buf.Src()
	for p := min(pos, model.BytePos(buf.Len())); ; {
		start := scopes.ScopeStart(src, p)
		if start == 0 {
			return r.fileModule(file, moduleName(file))
		}
		if stmt, ok := scopes.FindStmtStart(src, start.Decrement()); ok {
			if name, ok := modHeader(src.FromTo(stmt, start).Code()); ok {
				return model.Match{
					MatchStr:   name,
					Filepath:   file,
					Point:      stmt,
					Kind:       model.Module{},
					Visibility: model.Public,
					Context:    file,
				}
			}
		}
		p = start.Decrement()
	}
}

// modHeader reports whether blob opens an inline module and returns its name.
func modHeader(blob string) (string, bool) {
	off, _, _ := source.StripVisibility(blob)
	n, ok := source.StripWord(blob[off:], "mod")
	if !ok {
		return "", false
	}
	rest := blob[off+n:]
	end := source.FindIdentEnd(rest, 0)
	if end == 0 {
		return "", false
	}
	return rest[:end], true
}

func moduleName(file string) string {
	base := filepath.Base(file)
	switch base {
	case "lib.rs", "main.rs":
		return "crate"
	case "mod.rs":
		return filepath.Base(filepath.Dir(file))
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// parentModule returns the module m is declared in.
func (r *Resolver) parentModule(m model.Match) (model.Match, bool) {
	if m.Coords == nil {
		return r.moduleAt(m.Filepath, m.Point), true
	}
	switch filepath.Base(m.Filepath) {
	case "lib.rs", "main.rs":
		return model.Match{}, false
	}
	dir := filepath.Dir(m.Filepath)
	if filepath.Base(m.Filepath) == "mod.rs" {
		dir = filepath.Dir(dir)
	}
	for _, p := range []string{
		filepath.Join(dir, "lib.rs"),
		filepath.Join(dir, "main.rs"),
		filepath.Join(dir, "mod.rs"),
		dir + ".rs",
	} {
		if _, ok := r.load(p); ok {
			return r.fileModule(p, moduleName(p)), true
		}
	}
	return model.Match{}, false
}

// crates yields the extern crates visible from file whose names match.
func (r *Resolver) crates(name, file string, st model.SearchType) []model.Match {
	names := []string{name}
	if st == model.StartsWith {
		names = nil
		for _, c := range append(r.locator.Crates(filepath.Dir(file)), standardCrates...) {
			if strings.HasPrefix(c, name) && !slices.Contains(names, c) {
				names = append(names, c)
			}
		}
	}
	var out []model.Match
	for _, n := range names {
		if p, ok := r.locator.CrateFile(n, file); ok {
			out = append(out, r.fileModule(p, n))
		}
	}
	return out
}
