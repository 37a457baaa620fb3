package scopes

import (
	"github.com/phobologic/rustguide/internal/model"
	"github.com/phobologic/rustguide/internal/source"
)

type exprState int

const (
	exprNone exprState = iota
	// exprLevels is inside parentheses; depth counts them.
	exprLevels
	exprString
	// exprAfterDot has just seen a `.` and may be in a method chain.
	exprAfterDot
	// exprPendingDot has seen whitespace and accepts the expression only if
	// a `.` or `::` follows before anything else.
	exprPendingDot
	exprAfterColon
)

// GetStartOfSearchExpr scans backward from point for the start of the
// dotted or path expression ending there. Whitespace around `.` and `::` is
// allowed so multi-line method chains are one expression.
func GetStartOfSearchExpr(s string, point model.BytePos) model.BytePos {
	state := exprNone
	depth := 0
	idx := 0
	for i := min(point.Int(), len(s)) - 1; i >= 0; i-- {
		c := s[i]
		ws := source.IsWhitespaceByte(c)
		switch {
		case c == '(' && state == exprNone:
			return model.BytePos(i + 1)
		case c == '(' && state == exprLevels && depth == 1:
			state = exprNone
		case c == '(' && state == exprLevels:
			depth--
		case c == ')' && state == exprLevels:
			depth++
		case c == ')' && (state == exprNone || state == exprAfterDot):
			state, depth = exprLevels, 1
		case c == '.' && state == exprNone:
			state = exprAfterDot
		case c == '.' && state == exprAfterDot:
			return model.BytePos(i + 2)
		case c == '.' && state == exprPendingDot:
			state = exprNone
		case c == ':' && state == exprPendingDot:
			state = exprAfterColon
		case c == ':' && state == exprAfterColon:
			state = exprNone
		case c == '"' && (state == exprNone || state == exprAfterDot):
			state = exprString
		case c == '"' && state == exprString:
			state = exprNone
		case c == '?' && state == exprAfterDot:
			state = exprNone
		case state == exprString:
		case state == exprAfterColon:
			return model.BytePos(idx)
		case state == exprNone && ws:
			state, idx = exprPendingDot, i+1
		case state == exprPendingDot && ws:
		case state == exprAfterDot && ws:
		case state == exprPendingDot:
			return model.BytePos(idx)
		case state == exprNone && !source.IsSearchExprByte(c):
			return model.BytePos(i + 1)
		case state == exprNone, state == exprLevels:
		case state == exprAfterDot && source.IsSearchExprByte(c):
			state = exprNone
		case state == exprAfterDot:
			return model.BytePos(i + 1)
		}
	}
	return 0
}

// GetStartOfPattern scans backward from point for the start of a match
// arm pattern. Comments are ignored.
func GetStartOfPattern(s string, point model.BytePos) model.BytePos {
	masked := source.MaskComments(s[:min(point.Int(), len(s))])
	levels := 0
	for i := len(masked) - 1; i >= 0; i-- {
		switch c := masked[i]; {
		case c == '(':
			if levels == 0 {
				return model.BytePos(i + 1)
			}
			levels--
		case c == ')':
			levels++
		case levels == 0 && !source.IsPatternByte(c):
			return model.BytePos(i + 1)
		}
	}
	return 0
}

// ExpandSearchExpr returns the full expression span touching point.
func ExpandSearchExpr(s string, point model.BytePos) model.ByteRange {
	return model.NewRange(GetStartOfSearchExpr(s, point), source.FindIdentEnd(s, point))
}
