package source

import "strings"

const blanks = "                                                                "

// fillGap appends a blank run covering gap, keeping its newlines.
func fillGap(b *strings.Builder, gap string) {
	for len(gap) > 0 {
		nl := strings.IndexByte(gap, '\n')
		run := len(gap)
		if nl >= 0 {
			run = nl
		}
		for run > 0 {
			k := min(run, len(blanks))
			b.WriteString(blanks[:k])
			run -= k
		}
		if nl < 0 {
			return
		}
		b.WriteByte('\n')
		gap = gap[nl+1:]
	}
}

// MaskComments returns s's text with every comment byte replaced by a space.
// Newlines inside block comments are kept so line numbers stay valid; the
// result has exactly the byte length of s.
func (s Src) MaskComments() string {
	return MaskComments(s.Text())
}

// MaskComments is the string form of Src.MaskComments.
func MaskComments(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	prev := 0
	for r := range chunkIndices(text) {
		fillGap(&b, text[prev:r.Start])
		b.WriteString(text[r.Start:r.End])
		prev = r.End.Int()
	}
	if prev < len(text) {
		fillGap(&b, text[prev:])
	}
	return b.String()
}

// maskForScan blanks comments and the contents of string and char literals.
// Scanners that balance delimiters run over this form.
func maskForScan(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for seg := range segments(text) {
		if seg.kind == segCode {
			b.WriteString(text[seg.start:seg.end])
			continue
		}
		fillGap(&b, text[seg.start:seg.end])
	}
	return b.String()
}

// MaskSubScopes blanks the contents of every {...} block nested inside text,
// leaving the braces themselves and all depth-0 text intact. Newlines in a
// blanked block are kept. An unterminated block is blanked to the end.
func MaskSubScopes(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	depth := 0
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			if depth == 0 {
				b.WriteString(text[start : i+1])
				start = i + 1
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				fillGap(&b, text[start:i])
				start = i
			}
		}
	}
	if depth > 0 {
		fillGap(&b, text[start:])
	} else {
		b.WriteString(text[start:])
	}
	return b.String()
}
