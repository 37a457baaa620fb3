package nameres

import (
	"strings"

	"github.com/phobologic/rustguide/internal/matchers"
	"github.com/phobologic/rustguide/internal/model"
	"github.com/phobologic/rustguide/internal/scopes"
)

// FindDefinition resolves the path expression ending with the identifier
// at pos in file. Field and method accesses are not resolved.
func (r *Resolver) FindDefinition(file string, pos model.BytePos) (model.Match, bool) {
	buf, ok := r.load(file)
	if !ok {
		return model.Match{}, false
	}
	text := buf.Src().Code()
	rng := scopes.ExpandSearchExpr(text, pos)
	expr := strings.Join(strings.Fields(text[rng.Start:rng.End]), "")
	if _, _, typ := scopes.SplitIntoContextAndCompletion(expr); typ == scopes.CompleteField {
		r.log.Debug().Str("expr", expr).Msg("field access needs type inference; skipping")
		return model.Match{}, false
	}
	r.log.Debug().Str("expr", expr).Stringer("range", rng).Msg("finding definition")
	for m := range r.ResolvePath(model.ParsePath(expr), file, rng.Start, model.ExactMatch, model.BothNamespaces, matchers.ImportInfo{}) {
		return m, true
	}
	return model.Match{}, false
}

// Complete returns the items whose names start with the partial path
// expression ending at pos in file.
func (r *Resolver) Complete(file string, pos model.BytePos) []model.Match {
	buf, ok := r.load(file)
	if !ok {
		return nil
	}
	text := buf.Src().Code()
	pos = min(pos, model.BytePos(len(text)))
	start := scopes.GetStartOfSearchExpr(text, pos)
	expr := strings.Join(strings.Fields(text[start:pos]), "")
	prefix, partial, typ := scopes.SplitIntoContextAndCompletion(expr)
	if typ == scopes.CompleteField {
		r.log.Debug().Str("expr", expr).Msg("field completion needs type inference; skipping")
		return nil
	}

	path := model.ParsePath(prefix).Append(partial)
	path.Global = strings.HasPrefix(expr, "::")
	r.log.Debug().Stringer("path", path).Msg("completing")

	var out []model.Match
	for m := range r.ResolvePath(path, file, pos, model.StartsWith, model.BothNamespaces, matchers.ImportInfo{}) {
		out = append(out, m)
	}
	return out
}
