package source

import (
	"iter"
	"strings"

	"github.com/phobologic/rustguide/internal/model"
)

// Stmts yields the byte ranges (relative to s) of the top-level statements
// in s. Scanning stops at the first unmatched closing delimiter, so a window
// that starts just inside a block yields only that block's statements.
//
// A statement ends at a `;` at depth 0, or at the `}` closing a depth-0 block
// for block-bodied items and expressions. `if ... {} else {}` chains are one
// statement. Attributes are statements of their own.
func (s Src) Stmts() iter.Seq[model.ByteRange] {
	code := s.Code()
	return func(yield func(model.ByteRange) bool) {
		n := len(code)
		i := 0
		for {
			for i < n && (IsWhitespaceByte(code[i]) || code[i] == ';') {
				i++
			}
			if i >= n {
				return
			}
			switch code[i] {
			case '}', ')', ']':
				return
			}

			start := i
			end, ok := stmtEnd(code, start)
			if !ok {
				if r, nonEmpty := trimmedRange(code, start, end); nonEmpty {
					yield(r)
				}
				return
			}
			if !yield(model.NewRange(model.BytePos(start), model.BytePos(end))) {
				return
			}
			i = end
		}
	}
}

// stmtEnd returns the exclusive end of the statement starting at start. When
// the statement is unterminated, ok is false and end is where scanning stopped.
func stmtEnd(code string, start int) (end int, ok bool) {
	n := len(code)
	if attr := attributeOpen(code[start:]); attr > 0 {
		depth := 0
		for j := start + attr - 1; j < n; j++ {
			switch code[j] {
			case '[':
				depth++
			case ']':
				depth--
				if depth == 0 {
					return j + 1, true
				}
			}
		}
		return n, false
	}

	semi := isSemicolonStmt(code[start:])
	blockAtTop := false
	depth := 0
	for j := start; j < n; j++ {
		switch code[j] {
		case '{':
			if depth == 0 && !semi {
				blockAtTop = true
			}
			depth++
		case '(', '[':
			depth++
		case ')', ']':
			depth--
			if depth < 0 {
				return j, false
			}
		case '}':
			depth--
			if depth < 0 {
				return j, false
			}
			if depth == 0 && blockAtTop && !followedByElse(code[j+1:]) {
				return j + 1, true
			}
		case ';':
			if depth == 0 {
				return j + 1, true
			}
		}
	}
	return n, false
}

// attributeOpen returns the length of a `#[` or `#![` prefix, or 0.
func attributeOpen(s string) int {
	switch {
	case strings.HasPrefix(s, "#["):
		return 2
	case strings.HasPrefix(s, "#!["):
		return 3
	}
	return 0
}

func followedByElse(s string) bool {
	return StartsWithWord(s[SkipWhitespace(s, 0):], "else")
}

// isSemicolonStmt reports statements that always end at `;` even when they
// contain a depth-0 brace, such as `use a::{b, c};` or `let x = S { a: 1 };`.
func isSemicolonStmt(s string) bool {
	if off, _, ok := StripVisibility(s); ok {
		s = s[off:]
	}
	for _, w := range []string{"let", "use", "static", "type"} {
		if StartsWithWord(s, w) {
			return true
		}
	}
	if n, ok := StripWord(s, "extern"); ok && StartsWithWord(s[n:], "crate") {
		return true
	}
	if n, ok := StripWord(s, "const"); ok {
		rest := s[n:]
		for _, w := range []string{"fn", "unsafe", "async", "extern"} {
			if StartsWithWord(rest, w) {
				return false
			}
		}
		return true
	}
	return false
}

func trimmedRange(code string, start, end int) (model.ByteRange, bool) {
	for end > start && IsWhitespaceByte(code[end-1]) {
		end--
	}
	return model.NewRange(model.BytePos(start), model.BytePos(end)), end > start
}
