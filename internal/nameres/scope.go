package nameres

import (
	"iter"
	"slices"
	"strings"

	"github.com/phobologic/rustguide/internal/matchers"
	"github.com/phobologic/rustguide/internal/model"
	"github.com/phobologic/rustguide/internal/scopes"
	"github.com/phobologic/rustguide/internal/source"
)

// resolveName looks a single identifier up from pos outward: locals and
// items of each enclosing block, stopping at the enclosing module, then the
// extern crates.
func (r *Resolver) resolveName(name, file string, pos model.BytePos, st model.SearchType, ns model.Namespace, info matchers.ImportInfo) iter.Seq[model.Match] {
	return func(yield func(model.Match) bool) {
		buf, ok := r.load(file)
		if !ok {
			return
		}
		src := buf.Src()
		point := min(pos, model.BytePos(buf.Len()))
		inner := model.BytePos(-1)
		for {
			start := scopes.ScopeStart(src, point)
			for m := range r.searchScope(src.From(start), file, point.Sub(start), inner.Sub(start), name, st, ns, info) {
				if !yield(m) {
					return
				}
			}
			if start == 0 || isModuleScope(src, start) {
				break
			}
			inner, point = start, start.Decrement()
		}

		if !ns.Has(model.TypeNamespace) {
			return
		}
		for _, m := range r.crates(name, file, st) {
			if !yield(m) {
				return
			}
		}
	}
}

func isModuleScope(src source.Src, start model.BytePos) bool {
	stmt, ok := scopes.FindStmtStart(src, start.Decrement())
	if !ok {
		return false
	}
	_, ok = modHeader(src.FromTo(stmt, start).Code())
	return ok
}

// searchScope yields the names visible at point within one block: the
// bindings of statements before point, nearest first, then the block's
// items. point and inner are relative to scope; inner is the start of the
// nested block searched before this one, or negative.
func (r *Resolver) searchScope(scope source.Src, file string, point, inner model.BytePos, name string, st model.SearchType, ns model.Namespace, info matchers.ImportInfo) iter.Seq[model.Match] {
	return func(yield func(model.Match) bool) {
		newCtx := func(rng model.ByteRange) *matchers.Context {
			return &matchers.Context{
				Filepath:   file,
				SearchStr:  name,
				SearchType: st,
				Range:      rng,
				FromFile:   file,
				IsLocal:    true,
			}
		}

		if ns.Has(model.ValueNamespace) {
			var locals [][]model.Match
			for rng := range scope.Stmts() {
				if rng.Start >= point {
					break
				}
				if rng.End <= point || bindsInBody(scope.Code(), rng, inner) {
					locals = append(locals, slices.Collect(matchers.MatchLocals(scope, newCtx(rng))))
				}
			}
			for _, ms := range slices.Backward(locals) {
				for _, m := range ms {
					if !yield(m) {
						return
					}
				}
			}
		}

		for rng := range scope.Stmts() {
			for m := range r.items(scope, newCtx(rng), ns, info) {
				if !yield(m) {
					return
				}
			}
		}
	}
}

var headerBinders = []string{"if let ", "while let ", "for "}

// bindsInBody reports whether the statement rng binds names in its header
// that are in scope in the block starting at inner, such as the pattern of
// `if let` seen from inside its first block.
func bindsInBody(code string, rng model.ByteRange, inner model.BytePos) bool {
	if inner <= rng.Start || inner > rng.End {
		return false
	}
	header := code[rng.Start:inner]
	if strings.Contains(header, "}") {
		return false
	}
	for _, b := range headerBinders {
		if strings.HasPrefix(header, b) {
			return true
		}
	}
	return false
}
