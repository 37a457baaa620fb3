// Package source holds source buffers and the byte scanners that carve them
// into comments, literals and statements.
package source

import (
	"sort"
	"unicode/utf8"

	"github.com/phobologic/rustguide/internal/model"
)

// Buffer is an immutable file text plus its precomputed scanning mask and
// line index.
type Buffer struct {
	text  string
	code  string
	lines []int
}

// NewBuffer builds a Buffer over text.
func NewBuffer(text string) *Buffer {
	lines := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &Buffer{text: text, code: maskForScan(text), lines: lines}
}

// Src returns a window over the whole buffer.
func (b *Buffer) Src() Src {
	return Src{buf: b, rng: model.NewRange(0, model.BytePos(len(b.text)))}
}

// Text returns the raw file text.
func (b *Buffer) Text() string { return b.text }

// Len returns the size of the buffer in bytes.
func (b *Buffer) Len() int { return len(b.text) }

// CoordsToPoint converts a 1-based line and 0-based character column to a
// byte offset. Out of range coordinates report false.
func (b *Buffer) CoordsToPoint(c model.Coordinate) (model.BytePos, bool) {
	if c.Line < 1 || c.Line > len(b.lines) || c.Column < 0 {
		return 0, false
	}
	pos := b.lines[c.Line-1]
	end := len(b.text)
	if c.Line < len(b.lines) {
		end = b.lines[c.Line] - 1
	}
	for col := 0; col < c.Column; col++ {
		if pos >= end {
			return 0, false
		}
		_, size := utf8.DecodeRuneInString(b.text[pos:end])
		pos += size
	}
	return model.BytePos(pos), true
}

// PointToCoords converts a byte offset to a line and character column.
func (b *Buffer) PointToCoords(p model.BytePos) (model.Coordinate, bool) {
	if p < 0 || p.Int() > len(b.text) {
		return model.Coordinate{}, false
	}
	line := sort.Search(len(b.lines), func(i int) bool { return b.lines[i] > p.Int() }) - 1
	col := utf8.RuneCountInString(b.text[b.lines[line]:p.Int()])
	return model.Coordinate{Line: line + 1, Column: col}, true
}

// Src is a window [Start, End) over a Buffer. Positions passed to and
// returned by its methods are relative to the window start.
type Src struct {
	buf *Buffer
	rng model.ByteRange
}

// NewSrc is a convenience for tests and one-off scans over a string.
func NewSrc(text string) Src {
	return NewBuffer(text).Src()
}

// Buffer returns the underlying buffer.
func (s Src) Buffer() *Buffer { return s.buf }

// Range returns the window in buffer coordinates.
func (s Src) Range() model.ByteRange { return s.rng }

// Start returns the absolute offset of the window start.
func (s Src) Start() model.BytePos { return s.rng.Start }

// Len returns the window length in bytes.
func (s Src) Len() int { return s.rng.Len() }

// Text returns the raw text of the window.
func (s Src) Text() string {
	return s.buf.text[s.rng.Start:s.rng.End]
}

// Code returns the window with comments and literal contents blanked.
func (s Src) Code() string {
	return s.buf.code[s.rng.Start:s.rng.End]
}

func (s Src) clamp(p model.BytePos) model.BytePos {
	return max(0, min(p, model.BytePos(s.Len())))
}

// From returns the window starting at relative offset p.
func (s Src) From(p model.BytePos) Src {
	return s.FromTo(p, model.BytePos(s.Len()))
}

// To returns the window ending at relative offset p.
func (s Src) To(p model.BytePos) Src {
	return s.FromTo(0, p)
}

// FromTo returns the relative window [from, to).
func (s Src) FromTo(from, to model.BytePos) Src {
	from, to = s.clamp(from), s.clamp(to)
	if to < from {
		to = from
	}
	return Src{buf: s.buf, rng: model.NewRange(s.rng.Start+from, s.rng.Start+to)}
}

// ShiftRange returns the relative window r.
func (s Src) ShiftRange(r model.ByteRange) Src {
	return s.FromTo(r.Start, r.End)
}

// Slice returns the raw text of the relative range r.
func (s Src) Slice(r model.ByteRange) string {
	return s.ShiftRange(r).Text()
}
