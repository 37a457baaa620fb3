package matchers

import (
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/phobologic/rustguide/internal/ast"
	"github.com/phobologic/rustguide/internal/model"
	"github.com/phobologic/rustguide/internal/source"
)

// GlobLimit is the maximum number of nested glob imports one resolution
// branch may pass through.
const GlobLimit = 3

// PendingImport identifies a use statement currently being resolved.
type PendingImport struct {
	Filepath string
	Range    model.ByteRange
}

// ImportInfo is the per-branch state of import resolution. It is a value:
// changes made while resolving one branch are not seen by the caller.
type ImportInfo struct {
	imports []PendingImport
	// globSet is false until the branch enters its first glob import.
	globSet    bool
	globBudget int
}

// Pending returns the imports being resolved on this branch, outermost first.
func (i ImportInfo) Pending() []PendingImport {
	return slices.Clone(i.imports)
}

// GlobBudget returns the number of further nested globs allowed, and false
// if no glob has been entered yet.
func (i ImportInfo) GlobBudget() (int, bool) {
	return i.globBudget, i.globSet
}

func (i ImportInfo) contains(p PendingImport) bool {
	return slices.Contains(i.imports, p)
}

func (i ImportInfo) push(p PendingImport) ImportInfo {
	i.imports = append(i.imports[:len(i.imports):len(i.imports)], p)
	return i
}

// MatchUse resolves the names a use statement brings into scope. Each
// imported path is handed back to env.Resolver; the statement is recorded
// as pending first so that import cycles terminate.
func MatchUse(src source.Src, ctx *Context, env *Env, info ImportInfo) []model.Match {
	imp := PendingImport{Filepath: ctx.Filepath, Range: ctx.Range.Shift(src.Start())}
	code, text := ctx.blob(src)
	if info.contains(imp) {
		log.Debug().Str("use", FirstLine(text)).Msg("import involved in a cycle; ignoring")
		return nil
	}
	info = info.push(imp)

	off, vis, _ := source.StripVisibility(code)
	if _, ok := source.StripWord(code[off:], "use"); !ok {
		return nil
	}
	if !ctx.visible(vis) || env == nil || env.Resolver == nil {
		return nil
	}

	aliases := ast.ParseUse(text)
	hasGlob := slices.ContainsFunc(aliases, func(a ast.PathAlias) bool { return a.Kind == ast.GlobAlias })
	if !hasGlob && !source.TxtMatches(ctx.SearchType, ctx.SearchStr, code) {
		return nil
	}

	pos := ctx.abs(src, 0)
	var out []model.Match
	for _, alias := range aliases {
		switch alias.Kind {
		case ast.IdentAlias, ast.SelfAlias:
			if !source.SymbolMatches(ctx.SearchType, ctx.SearchStr, alias.Ident) {
				continue
			}
			for m := range env.Resolver.ResolvePath(alias.Path, ctx.Filepath, pos, model.ExactMatch, model.BothNamespaces, info) {
				if m.MatchStr != alias.Ident {
					m.MatchStr = alias.Ident
				}
				out = append(out, m)
				if ctx.SearchType == model.ExactMatch {
					return out
				}
			}

		case ast.GlobAlias:
			savedSet, savedBudget := info.globSet, info.globBudget
			if info.globSet {
				if info.globBudget == 0 {
					continue
				}
				info.globBudget--
			} else {
				info.globSet, info.globBudget = true, GlobLimit-1
			}
			path := alias.Path.Append(ctx.SearchStr)
			log.Trace().Stringer("path", path).Int("budget", info.globBudget).Msg("expanding glob import")
			for m := range env.Resolver.ResolvePath(path, ctx.Filepath, pos, ctx.SearchType, model.BothNamespaces, info) {
				out = append(out, m)
			}
			info.globSet, info.globBudget = savedSet, savedBudget
		}
	}
	return out
}
