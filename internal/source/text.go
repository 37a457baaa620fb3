package source

import (
	"strings"

	"github.com/phobologic/rustguide/internal/model"
)

// IsIdentByte reports whether b can appear in an identifier or macro name.
// Bytes of multi-byte UTF-8 sequences count as identifier bytes so scanners
// never stop in the middle of a character.
func IsIdentByte(b byte) bool {
	return b == '_' || b == '!' || isAlnum(b) || b >= 0x80
}

// IsWhitespaceByte reports ASCII whitespace.
func IsWhitespaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

// IsSearchExprByte reports bytes that may appear in a dotted/path expression.
func IsSearchExprByte(b byte) bool {
	return b == '_' || b == ':' || b == '.' || isAlnum(b) || b >= 0x80
}

// IsPatternByte reports bytes that may appear in a match pattern.
func IsPatternByte(b byte) bool {
	return b == '_' || b == ':' || b == '.' || isAlnum(b) || b >= 0x80 || IsWhitespaceByte(b)
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// FindIdentEnd returns the offset of the first non-identifier byte at or after pos.
func FindIdentEnd(s string, pos model.BytePos) model.BytePos {
	i := min(pos.Int(), len(s))
	for i < len(s) && IsIdentByte(s[i]) {
		i++
	}
	return model.BytePos(i)
}

// SkipWhitespace returns the offset of the first non-whitespace byte at or after pos.
func SkipWhitespace(s string, pos int) int {
	for pos < len(s) && IsWhitespaceByte(s[pos]) {
		pos++
	}
	return pos
}

// StartsWithWord reports whether s starts with word followed by a
// non-identifier byte or the end of s.
func StartsWithWord(s, word string) bool {
	if !strings.HasPrefix(s, word) {
		return false
	}
	return len(s) == len(word) || !IsIdentByte(s[len(word)])
}

// StripVisibility recognises a leading visibility modifier and returns the
// offset just past it and its trailing whitespace.
func StripVisibility(s string) (model.BytePos, model.Visibility, bool) {
	if !StartsWithWord(s, "pub") && !strings.HasPrefix(s, "pub(") {
		if StartsWithWord(s, "crate") && !strings.HasPrefix(s, "crate::") {
			i := SkipWhitespace(s, len("crate"))
			if i > len("crate") {
				return model.BytePos(i), model.Crate, true
			}
		}
		return 0, model.Inherited, false
	}
	i := SkipWhitespace(s, len("pub"))
	vis := model.Public
	if i < len(s) && s[i] == '(' {
		end := strings.IndexByte(s[i:], ')')
		if end < 0 {
			return 0, model.Inherited, false
		}
		inner := strings.TrimSpace(s[i+1 : i+end])
		switch {
		case inner == "crate":
			vis = model.Crate
		case inner == "super":
			vis = model.Super
		case inner == "self", strings.HasPrefix(inner, "in "):
			vis = model.Restricted
		default:
			return 0, model.Inherited, false
		}
		i = SkipWhitespace(s, i+end+1)
	}
	return model.BytePos(i), vis, true
}

// StripWord strips word and the whitespace after it. At least one
// whitespace byte must follow word.
func StripWord(s, word string) (model.BytePos, bool) {
	if !strings.HasPrefix(s, word) {
		return 0, false
	}
	i := SkipWhitespace(s, len(word))
	if i == len(word) {
		return 0, false
	}
	return model.BytePos(i), true
}

// StripWords strips each of words in order when present and returns the
// total number of bytes stripped.
func StripWords(s string, words []string) model.BytePos {
	var start model.BytePos
	for _, w := range words {
		if n, ok := StripWord(s[start:], w); ok {
			start += n
		}
	}
	return start
}

// TxtMatches reports whether needle occurs in haystack at an identifier
// boundary. ExactMatch additionally requires a boundary after the needle.
func TxtMatches(st model.SearchType, needle, haystack string) bool {
	if needle == "" {
		return true
	}
	n := 0
	for {
		k := strings.Index(haystack[n:], needle)
		if k < 0 {
			return false
		}
		n += k
		before := n == 0 || !IsIdentByte(haystack[n-1])
		after := n+len(needle) == len(haystack) || !IsIdentByte(haystack[n+len(needle)])
		if before && (st == model.StartsWith || after) {
			return true
		}
		n++
	}
}

// SymbolMatches compares a complete candidate identifier with searchStr.
func SymbolMatches(st model.SearchType, searchStr, candidate string) bool {
	if st == model.StartsWith {
		return strings.HasPrefix(candidate, searchStr)
	}
	return searchStr == candidate
}

// ClosureValidArgScope looks for a closure argument list `|...|` in s and
// returns its range including both pipes.
func ClosureValidArgScope(s string) (model.ByteRange, bool) {
	left := strings.IndexByte(s, '|')
	if left < 0 {
		return model.ByteRange{}, false
	}
	level := 0
	for i := left + 1; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{', '<':
			level++
		case ')', ']', '}', '>':
			level--
			if level < 0 {
				return model.ByteRange{}, false
			}
		case ';':
			return model.ByteRange{}, false
		case '|':
			if level == 0 {
				return model.NewRange(model.BytePos(left), model.BytePos(i+1)), true
			}
		}
	}
	return model.ByteRange{}, false
}
