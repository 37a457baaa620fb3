package source

import (
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/phobologic/rustguide/internal/model"
)

type segKind uint8

const (
	segCode segKind = iota
	segComment
	// segLiteral covers the contents of a string or char literal; the
	// delimiting quotes stay in the surrounding code segments.
	segLiteral
)

type segment struct {
	kind       segKind
	start, end int
}

// segments splits text into code, comment and literal-content runs. It never
// fails: an unterminated comment or literal runs to the end of text.
func segments(text string) iter.Seq[segment] {
	return func(yield func(segment) bool) {
		n := len(text)
		last := 0
		emit := func(kind segKind, start, end int) bool {
			if start > last && !yield(segment{segCode, last, start}) {
				return false
			}
			if end > start && !yield(segment{kind, start, end}) {
				return false
			}
			last = end
			return true
		}

		i := 0
		for i < n {
			c := text[i]
			switch {
			case c == '/' && i+1 < n && text[i+1] == '/':
				end := strings.IndexByte(text[i:], '\n')
				if end < 0 {
					end = n
				} else {
					end += i
				}
				if !emit(segComment, i, end) {
					return
				}
				i = end

			case c == '/' && i+1 < n && text[i+1] == '*':
				end := blockCommentEnd(text, i)
				if !emit(segComment, i, end) {
					return
				}
				i = end

			case c == '"':
				end := stringEnd(text, i+1)
				if !emit(segLiteral, i+1, end) {
					return
				}
				i = end + 1

			case (c == 'r' || c == 'b') && (i == 0 || !IsIdentByte(text[i-1])):
				start, end, next, ok := rawString(text, i)
				if !ok {
					i++
					continue
				}
				if !emit(segLiteral, start, end) {
					return
				}
				i = next

			case c == '\'':
				start, end, ok := charLiteral(text, i)
				if !ok {
					i++
					continue
				}
				if !emit(segLiteral, start, end) {
					return
				}
				i = end + 1

			default:
				i++
			}
		}
		if last < n {
			yield(segment{segCode, last, n})
		}
	}
}

// blockCommentEnd returns the offset just past the (possibly nested) block
// comment opening at i.
func blockCommentEnd(text string, i int) int {
	depth := 0
	n := len(text)
	for j := i; j+1 < n; {
		switch {
		case text[j] == '/' && text[j+1] == '*':
			depth++
			j += 2
		case text[j] == '*' && text[j+1] == '/':
			depth--
			j += 2
			if depth == 0 {
				return j
			}
		default:
			j++
		}
	}
	return n
}

// stringEnd returns the offset of the closing quote of a string whose
// contents start at i, or len(text) if unterminated.
func stringEnd(text string, i int) int {
	for i < len(text) {
		switch text[i] {
		case '\\':
			i += 2
			continue
		case '"':
			return i
		}
		i++
	}
	return len(text)
}

// rawString recognises r"..", r#".."#, br".." and b".." at i.
func rawString(text string, i int) (start, end, next int, ok bool) {
	n := len(text)
	j := i
	if text[j] == 'b' {
		j++
		if j < n && text[j] == '"' {
			end := stringEnd(text, j+1)
			return j + 1, end, end + 1, true
		}
		if j >= n || text[j] != 'r' {
			return 0, 0, 0, false
		}
	}
	j++ // past 'r'
	hashes := 0
	for j < n && text[j] == '#' {
		hashes++
		j++
	}
	if j >= n || text[j] != '"' {
		return 0, 0, 0, false
	}
	start = j + 1
	closing := `"` + strings.Repeat("#", hashes)
	k := strings.Index(text[start:], closing)
	if k < 0 {
		return start, n, n, true
	}
	end = start + k
	return start, end, end + len(closing), true
}

// charLiteral distinguishes 'x' and '\n' from lifetimes such as 'a.
func charLiteral(text string, i int) (start, end int, ok bool) {
	n := len(text)
	if i+1 >= n {
		return 0, 0, false
	}
	if text[i+1] == '\\' {
		k := strings.IndexByte(text[i+2:], '\'')
		if k < 0 || k > 10 {
			return 0, 0, false
		}
		return i + 1, i + 2 + k, true
	}
	r, size := utf8.DecodeRuneInString(text[i+1:])
	if r == '\'' || r == '\n' {
		return 0, 0, false
	}
	if i+1+size < n && text[i+1+size] == '\'' {
		return i + 1, i + 1 + size, true
	}
	return 0, 0, false
}

// ChunkIndices yields the non-comment chunks of s, relative to s's start.
// String literals are part of the chunks.
func (s Src) ChunkIndices() iter.Seq[model.ByteRange] {
	return chunkIndices(s.Text())
}

func chunkIndices(text string) iter.Seq[model.ByteRange] {
	return func(yield func(model.ByteRange) bool) {
		cur := -1
		curEnd := 0
		for seg := range segments(text) {
			if seg.kind == segComment {
				if cur >= 0 {
					if !yield(model.NewRange(model.BytePos(cur), model.BytePos(curEnd))) {
						return
					}
					cur = -1
				}
				continue
			}
			if cur < 0 {
				cur = seg.start
			}
			curEnd = seg.end
		}
		if cur >= 0 {
			yield(model.NewRange(model.BytePos(cur), model.BytePos(curEnd)))
		}
	}
}
