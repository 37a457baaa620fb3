package matchers

import (
	"iter"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/phobologic/rustguide/internal/ast"
	"github.com/phobologic/rustguide/internal/model"
	"github.com/phobologic/rustguide/internal/scopes"
	"github.com/phobologic/rustguide/internal/source"
)

var fnQualifiers = []string{"const", "async", "unsafe", "extern"}

type probe func() []model.Match

func one(m model.Match, ok bool) []model.Match {
	if !ok {
		return nil
	}
	return []model.Match{m}
}

// lazy chains probes so that a probe only runs once every match from the
// previous ones has been consumed.
func lazy(probes ...probe) iter.Seq[model.Match] {
	return func(yield func(model.Match) bool) {
		for _, p := range probes {
			for _, m := range p() {
				if !yield(m) {
					return
				}
			}
		}
	}
}

// MatchTypes runs the type-namespace probes against the statement.
func MatchTypes(src source.Src, ctx *Context, env *Env, info ImportInfo) iter.Seq[model.Match] {
	return lazy(
		func() []model.Match { return one(MatchExternCrate(src, ctx, env)) },
		func() []model.Match { return one(MatchMod(src, ctx, env)) },
		func() []model.Match { return one(MatchStruct(src, ctx)) },
		func() []model.Match { return one(MatchType(src, ctx)) },
		func() []model.Match { return one(MatchTrait(src, ctx)) },
		func() []model.Match { return one(MatchEnum(src, ctx)) },
		func() []model.Match { return MatchUse(src, ctx, env, info) },
	)
}

// MatchValues runs the value-namespace probes against the statement. Macro
// definitions are included here.
func MatchValues(src source.Src, ctx *Context) iter.Seq[model.Match] {
	return lazy(
		func() []model.Match { return one(MatchConst(src, ctx)) },
		func() []model.Match { return one(MatchStatic(src, ctx)) },
		func() []model.Match { return one(MatchFn(src, ctx)) },
		func() []model.Match { return one(MatchMacro(src, ctx)) },
	)
}

// MatchLocals runs the binding probes against the statement.
func MatchLocals(src source.Src, ctx *Context) iter.Seq[model.Match] {
	return lazy(
		func() []model.Match { return MatchLet(src, ctx) },
		func() []model.Match { return MatchIfLet(src, ctx) },
		func() []model.Match { return MatchWhileLet(src, ctx) },
		func() []model.Match { return MatchFor(src, ctx) },
	)
}

func (c *Context) newMatch(src source.Src, name string, off model.BytePos, kind model.Kind, vis model.Visibility, context string) model.Match {
	return model.Match{
		MatchStr:   name,
		Filepath:   c.Filepath,
		Point:      c.abs(src, off),
		Kind:       kind,
		Visibility: vis,
		Context:    context,
	}
}

// docsAt extracts the doc comment above the statement-relative offset off.
func (c *Context) docsAt(src source.Src, off model.BytePos) string {
	return FindDoc(src.Text(), c.Range.Start.Add(off).Int())
}

func isConstFn(blob string) bool {
	if off, _, ok := source.StripVisibility(blob); ok {
		blob = blob[off:]
	}
	n, ok := source.StripWord(blob, "const")
	if !ok {
		return false
	}
	rest := blob[n:]
	for _, w := range fnQualifiers {
		if source.StartsWithWord(rest, w) {
			return true
		}
	}
	return source.StartsWithWord(rest, "fn")
}

// matchPatternStart matches `keyword [modifier] name:` items such as const
// and static.
func matchPatternStart(src source.Src, ctx *Context, keyword, modifier string, kind model.Kind) (model.Match, bool) {
	code, text := ctx.blob(src)
	start, vis, ok := findKeyword(code, keyword, "", nil, model.StartsWith)
	if !ok || !ctx.visible(vis) {
		return model.Match{}, false
	}
	if modifier != "" {
		if n, ok := source.StripWord(code[start:], modifier); ok {
			start = start.Add(n)
		}
	}
	end := source.FindIdentEnd(code, start)
	name := code[start:end]
	if name == "" || !source.SymbolMatches(ctx.SearchType, ctx.SearchStr, name) {
		return model.Match{}, false
	}
	if !strings.HasPrefix(strings.TrimLeft(code[end:], " \t\r\n"), ":") {
		return model.Match{}, false
	}
	m := ctx.newMatch(src, name, start, kind, vis, FirstLine(text))
	m.Docs = ctx.docsAt(src, start)
	return m, true
}

// MatchConst matches `const NAME: T = ...;` but not `const fn`.
func MatchConst(src source.Src, ctx *Context) (model.Match, bool) {
	code, _ := ctx.blob(src)
	if isConstFn(code) {
		return model.Match{}, false
	}
	return matchPatternStart(src, ctx, "const", "", model.Const{})
}

// MatchStatic matches `static [mut] NAME: T = ...;`.
func MatchStatic(src source.Src, ctx *Context) (model.Match, bool) {
	return matchPatternStart(src, ctx, "static", "mut", model.Static{})
}

func matchPatternLet(src source.Src, ctx *Context, prefix string, pk ast.PatternKind, kind model.Kind) []model.Match {
	code, text := ctx.blob(src)
	if !strings.HasPrefix(code, prefix) || !source.TxtMatches(ctx.SearchType, ctx.SearchStr, code) {
		return nil
	}
	var out []model.Match
	for _, r := range ast.ParsePatBindings(text, pk) {
		name := text[r.Start:r.End]
		if !source.SymbolMatches(ctx.SearchType, ctx.SearchStr, name) {
			continue
		}
		log.Trace().Str("name", name).Stringer("kind", kind).Msg("pattern binding matched")
		out = append(out, ctx.newMatch(src, name, r.Start, kind, model.Local, FirstLine(text)))
		if ctx.SearchType == model.ExactMatch {
			break
		}
	}
	return out
}

// MatchLet matches bindings introduced by a let statement.
func MatchLet(src source.Src, ctx *Context) []model.Match {
	return matchPatternLet(src, ctx, "let ", ast.LetPattern, model.Let{})
}

// MatchIfLet matches bindings introduced by an if let expression.
func MatchIfLet(src source.Src, ctx *Context) []model.Match {
	return matchPatternLet(src, ctx, "if let ", ast.IfLetPattern, model.IfLet{})
}

// MatchWhileLet matches bindings introduced by a while let loop.
func MatchWhileLet(src source.Src, ctx *Context) []model.Match {
	return matchPatternLet(src, ctx, "while let ", ast.WhileLetPattern, model.WhileLet{})
}

// MatchFor matches the loop variables of a for loop. They are always local.
func MatchFor(src source.Src, ctx *Context) []model.Match {
	code, text := ctx.blob(src)
	if !strings.HasPrefix(code, "for ") {
		return nil
	}
	var out []model.Match
	for _, r := range ast.ParsePatBindings(text, ast.ForPattern) {
		name := text[r.Start:r.End]
		if source.SymbolMatches(ctx.SearchType, ctx.SearchStr, name) {
			out = append(out, ctx.newMatch(src, name, r.Start, model.For{}, model.Local, FirstLine(text)))
		}
	}
	return out
}

// MatchExternCrate matches `extern crate name;` and `extern crate real as name;`.
func MatchExternCrate(src source.Src, ctx *Context, env *Env) (model.Match, bool) {
	code, text := ctx.blob(src)
	vis := model.Crate
	if off, v, ok := source.StripVisibility(code); ok {
		code, text, vis = code[off:], text[off:], v
	}
	st, s := ctx.SearchType, ctx.SearchStr
	direct := source.TxtMatches(st, "extern crate "+s, code) && !source.TxtMatches(st, "extern crate "+s+" as", code)
	aliased := strings.HasPrefix(code, "extern crate") && source.TxtMatches(st, "as "+s, code)
	if !direct && !aliased {
		return model.Match{}, false
	}
	ec, ok := ast.ParseExternCrate(text)
	if !ok || !source.SymbolMatches(st, s, ec.Name) {
		return model.Match{}, false
	}
	log.Debug().Str("crate", ec.RealName).Str("as", ec.Name).Msg("found an extern crate")
	if env == nil || env.Crates == nil {
		return model.Match{}, false
	}
	cratePath, ok := env.Crates.CrateFile(ec.RealName, ctx.Filepath)
	if !ok {
		return model.Match{}, false
	}
	return fileMatch(env, ec.Name, cratePath, vis), true
}

func fileMatch(env *Env, name, path string, vis model.Visibility) model.Match {
	start := model.StartOfFile()
	m := model.Match{
		MatchStr:   name,
		Filepath:   path,
		Coords:     &start,
		Kind:       model.Module{},
		Visibility: vis,
		Context:    path,
	}
	if env.Session != nil {
		if buf, err := env.Session.LoadFile(path); err == nil {
			m.Docs = FindModDoc(buf.Text(), 0)
		} else {
			log.Warn().Err(err).Str("path", path).Msg("cannot load module file")
		}
	}
	return m
}

// MatchMod matches inline modules and module declarations. Declarations
// resolve to the module's file.
func MatchMod(src source.Src, ctx *Context, env *Env) (model.Match, bool) {
	code, _ := ctx.blob(src)
	start, name, vis, ok := ctx.getKeyIdent(code, "mod", nil)
	if !ok {
		return model.Match{}, false
	}
	if strings.IndexByte(code, '{') >= 0 {
		m := ctx.newMatch(src, name, start, model.Module{}, vis, ctx.Filepath)
		m.Docs = ctx.docsAt(src, start)
		return m, true
	}
	if env == nil || env.Modules == nil {
		return model.Match{}, false
	}

	parent := filepath.Dir(ctx.Filepath)
	if modPath, ok := scopes.GetModuleFileFromPath(src, ctx.Range.Start, parent); ok {
		return fileMatch(env, name, modPath, vis), true
	}

	// Enclosing inline modules may lie outside the probed window.
	local := scopes.GetLocalModulePath(src.Buffer().Src(), src.Start().Add(ctx.Range.Start))
	for _, dir := range []string{ModuleDir(ctx.Filepath), parent} {
		searchDir := filepath.Join(append([]string{dir}, local...)...)
		if modPath, ok := env.Modules.ModuleFile(name, searchDir); ok {
			return fileMatch(env, name, modPath, vis), true
		}
		if dir == parent {
			break
		}
	}
	return model.Match{}, false
}

// findGenericsEnd returns the offset of the `>` closing the generic
// parameter list that starts in blob, if it opens before any body.
func findGenericsEnd(blob string) (int, bool) {
	level := 0
	for i := 0; i < len(blob); i++ {
		switch blob[i] {
		case '{', '(', ';':
			return 0, false
		case '<':
			level++
		case '>':
			level--
			if level == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func genericsOf(text string, start model.BytePos, keyword, body string) []string {
	end, ok := findGenericsEnd(text[start:])
	if !ok {
		return nil
	}
	return ast.ParseGenerics(keyword + " " + text[start:start.Int()+end+1] + body)
}

// MatchStruct matches struct declarations and records their generic parameters.
func MatchStruct(src source.Src, ctx *Context) (model.Match, bool) {
	code, text := ctx.blob(src)
	start, name, vis, ok := ctx.getKeyIdent(code, "struct", nil)
	if !ok {
		return model.Match{}, false
	}
	m := ctx.newMatch(src, name, start, model.Struct{}, vis, GetContext(text, "{"))
	m.GenericArgs = genericsOf(text, start, "struct", "();")
	m.Docs = ctx.docsAt(src, start)
	return m, true
}

// MatchType matches type aliases.
func MatchType(src source.Src, ctx *Context) (model.Match, bool) {
	code, text := ctx.blob(src)
	start, name, vis, ok := ctx.getKeyIdent(code, "type", nil)
	if !ok {
		return model.Match{}, false
	}
	m := ctx.newMatch(src, name, start, model.Type{}, vis, FirstLine(text))
	m.Docs = ctx.docsAt(src, start)
	return m, true
}

// MatchTrait matches trait declarations.
func MatchTrait(src source.Src, ctx *Context) (model.Match, bool) {
	code, text := ctx.blob(src)
	start, name, vis, ok := ctx.getKeyIdent(code, "trait", []string{"unsafe"})
	if !ok {
		return model.Match{}, false
	}
	m := ctx.newMatch(src, name, start, model.Trait{}, vis, GetContext(text, "{"))
	m.Docs = ctx.docsAt(src, start)
	return m, true
}

// MatchEnum matches enum declarations and records their generic parameters.
func MatchEnum(src source.Src, ctx *Context) (model.Match, bool) {
	code, text := ctx.blob(src)
	start, name, vis, ok := ctx.getKeyIdent(code, "enum", nil)
	if !ok {
		return model.Match{}, false
	}
	m := ctx.newMatch(src, name, start, model.Enum{}, vis, FirstLine(text))
	m.GenericArgs = genericsOf(text, start, "enum", "{}")
	m.Docs = ctx.docsAt(src, start)
	return m, true
}

// MatchEnumVariants matches the variants of a public enum, or of any enum
// when the search is local to the file. Variant names are filtered by
// prefix only; callers needing exact matches filter again.
func MatchEnumVariants(src source.Src, ctx *Context) []model.Match {
	code, text := ctx.blob(src)
	if !strings.HasPrefix(code, "pub enum") && !(ctx.IsLocal && strings.HasPrefix(code, "enum")) {
		return nil
	}
	if !source.TxtMatches(ctx.SearchType, ctx.SearchStr, code) {
		return nil
	}

	var parent *model.Match
	if start, vis, ok := findKeyword(code, "enum", "", nil, model.StartsWith); ok {
		name := code[start:source.FindIdentEnd(code, start)]
		p := ctx.newMatch(src, name, start, model.Enum{}, vis, FirstLine(text))
		parent = &p
	}

	vis := model.Public
	if parent != nil {
		vis = parent.Visibility
	}
	var out []model.Match
	for _, v := range ast.ParseEnumVariants(text) {
		if !strings.HasPrefix(v.Name, ctx.SearchStr) {
			continue
		}
		m := ctx.newMatch(src, v.Name, v.Offset, model.EnumVariant{Enum: parent}, vis, FirstLine(text[v.Offset:]))
		m.Docs = ctx.docsAt(src, v.Offset)
		out = append(out, m)
	}
	return out
}

// FirstParamIsSelf reports whether the function declared in blob is a
// method taking self.
func FirstParamIsSelf(blob string) bool {
	open := strings.IndexByte(blob, '(')
	if open < 0 {
		return false
	}
	if lt := strings.IndexByte(blob, '<'); lt >= 0 && lt < open {
		if end, ok := findGenericsEnd(blob[lt:]); ok {
			rel := strings.IndexByte(blob[lt+end:], '(')
			if rel < 0 {
				return false
			}
			open = lt + end + rel
		}
	}
	rest := strings.TrimLeft(blob[open+1:], " \t\r\n")
	rest = strings.TrimLeft(strings.TrimPrefix(rest, "&"), " \t\r\n")
	if strings.HasPrefix(rest, "'") {
		rest = strings.TrimLeft(rest[source.FindIdentEnd(rest, 1):], " \t\r\n")
	}
	if n, ok := source.StripWord(rest, "mut"); ok {
		rest = rest[n:]
	}
	return source.StartsWithWord(rest, "self")
}

// MatchFn matches free functions. Methods taking self are skipped.
func MatchFn(src source.Src, ctx *Context) (model.Match, bool) {
	code, text := ctx.blob(src)
	if FirstParamIsSelf(code) {
		return model.Match{}, false
	}
	start, name, vis, ok := ctx.getKeyIdent(code, "fn", fnQualifiers)
	if !ok {
		return model.Match{}, false
	}
	m := ctx.newMatch(src, name, start, model.Function{}, vis, GetContext(text, "{"))
	m.Docs = ctx.docsAt(src, start)
	return m, true
}

// MatchMacro matches macro_rules! definitions. A trailing `!` on the search
// string is ignored and added to the result.
func MatchMacro(src source.Src, ctx *Context) (model.Match, bool) {
	trimmed := *ctx
	trimmed.SearchStr = strings.TrimRight(ctx.SearchStr, "!")
	code, text := trimmed.blob(src)
	start, vis, ok := trimmed.findKeyword(code, "macro_rules!", nil)
	if !ok {
		return model.Match{}, false
	}
	if vis == model.Inherited && hasMacroExport(src, ctx.Range.Start) {
		vis = model.Public
	}
	if !trimmed.visible(vis) {
		return model.Match{}, false
	}
	name := trimmed.identAt(code, start)
	m := ctx.newMatch(src, name+"!", start, model.Macro{}, vis, FirstLine(text))
	m.Docs = ctx.docsAt(src, 0)
	return m, true
}

func hasMacroExport(src source.Src, stmtStart model.BytePos) bool {
	before := strings.TrimRight(src.To(stmtStart).Text(), " \t\r\n")
	nl := strings.LastIndexByte(before, '\n')
	return strings.HasPrefix(strings.TrimSpace(before[nl+1:]), "#[macro_export")
}
