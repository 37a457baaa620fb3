// Package ranking orders and trims candidate lists for presentation.
package ranking

import (
	"slices"
	"strings"

	"github.com/phobologic/rustguide/internal/model"
)

// Tier groups candidates by how close they are to the file the query was
// made from. Lower tiers are shown first.
type Tier int

const (
	// LocalTier is a binding inside the current function.
	LocalTier Tier = iota
	// FileTier is an item declared in the querying file.
	FileTier
	// CrateTier is an item from another file.
	CrateTier
	// ModuleTier is a match that stands for a whole file (a module or crate).
	ModuleTier
)

// TierOf classifies m relative to the querying file.
func TierOf(m model.Match, from string) Tier {
	switch {
	case m.Visibility == model.Local:
		return LocalTier
	case m.Coords != nil:
		return ModuleTier
	case m.Filepath == from:
		return FileTier
	default:
		return CrateTier
	}
}

type key struct {
	name string
	file string
	pos  model.BytePos
	line int
}

func keyOf(m model.Match) key {
	k := key{name: m.MatchStr, file: m.Filepath, pos: m.Point}
	if m.Coords != nil {
		k.pos, k.line = -1, m.Coords.Line
	}
	return k
}

// Dedup drops candidates that name the same declaration as an earlier one,
// such as an item reached both directly and through a glob import.
func Dedup(ms []model.Match) []model.Match {
	seen := make(map[key]struct{}, len(ms))
	out := make([]model.Match, 0, len(ms))
	for _, m := range ms {
		k := keyOf(m)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, m)
	}
	return out
}

// Order sorts candidates by tier and then by name, keeping resolver order
// among equal names so the nearest shadowing binding stays first.
func Order(ms []model.Match, from string) []model.Match {
	out := slices.Clone(ms)
	slices.SortStableFunc(out, func(a, b model.Match) int {
		if ta, tb := TierOf(a, from), TierOf(b, from); ta != tb {
			return int(ta) - int(tb)
		}
		if a.Visibility == model.Local {
			return 0
		}
		return strings.Compare(a.MatchStr, b.MatchStr)
	})
	return out
}

// Limit returns at most n candidates. If n is <= 0 all candidates are returned.
func Limit(ms []model.Match, n int) []model.Match {
	if n <= 0 || n >= len(ms) {
		return ms
	}
	return ms[:n]
}

// FilterByKind keeps candidates whose kind name is one of kinds. An empty
// kinds list keeps everything.
func FilterByKind(ms []model.Match, kinds []string) []model.Match {
	if len(kinds) == 0 {
		return ms
	}
	var out []model.Match
	for _, m := range ms {
		if m.Kind != nil && slices.Contains(kinds, m.Kind.String()) {
			out = append(out, m)
		}
	}
	return out
}

// Select applies Dedup, Order and Limit in turn.
func Select(ms []model.Match, from string, n int) []model.Match {
	return Limit(Order(Dedup(ms), from), n)
}
