// Package model defines core data structures for rustguide.
package model

import (
	"fmt"
	"strings"
)

// BytePos is a byte offset into a UTF-8 source buffer. It is never a
// character offset; line/column positions use Coordinate.
type BytePos int

// Add returns p advanced by o bytes.
func (p BytePos) Add(o BytePos) BytePos { return p + o }

// Sub returns p moved back by o bytes.
func (p BytePos) Sub(o BytePos) BytePos { return p - o }

// Increment returns the next byte offset.
func (p BytePos) Increment() BytePos { return p + 1 }

// Decrement returns the previous byte offset.
func (p BytePos) Decrement() BytePos { return p - 1 }

// Int returns p as an index for slicing.
func (p BytePos) Int() int { return int(p) }

// ByteRange is the half-open byte interval [Start, End).
type ByteRange struct {
	Start BytePos
	End   BytePos
}

// NewRange builds a ByteRange.
func NewRange(start, end BytePos) ByteRange {
	return ByteRange{Start: start, End: end}
}

// Len returns the number of bytes covered by r.
func (r ByteRange) Len() int { return int(r.End - r.Start) }

// Contains reports whether Start <= p < End.
func (r ByteRange) Contains(p BytePos) bool {
	return r.Start <= p && p < r.End
}

// StrictlyContains reports whether Start < p < End.
func (r ByteRange) StrictlyContains(p BytePos) bool {
	return r.Start < p && p < r.End
}

// Shift moves both ends of r forward by off.
func (r ByteRange) Shift(off BytePos) ByteRange {
	return ByteRange{Start: r.Start + off, End: r.End + off}
}

func (r ByteRange) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Coordinate is a 1-based line and 0-based character column.
type Coordinate struct {
	Line   int
	Column int
}

// StartOfFile is the coordinate of the first character in a file.
func StartOfFile() Coordinate {
	return Coordinate{Line: 1, Column: 0}
}

// SearchType selects how a candidate identifier is compared to the search string.
type SearchType int

const (
	// ExactMatch requires the whole identifier to equal the search string.
	ExactMatch SearchType = iota
	// StartsWith accepts any identifier prefixed by the search string.
	StartsWith
)

func (s SearchType) String() string {
	if s == StartsWith {
		return "starts_with"
	}
	return "exact"
}

// Namespace restricts which item kinds a search considers.
type Namespace uint8

const (
	TypeNamespace Namespace = 1 << iota
	ValueNamespace

	BothNamespaces = TypeNamespace | ValueNamespace
)

// Has reports whether n includes o.
func (n Namespace) Has(o Namespace) bool { return n&o != 0 }

// Visibility is the access modifier recorded for a candidate.
type Visibility int

const (
	// Inherited is an item without a visibility modifier.
	Inherited Visibility = iota
	Public
	// Crate is pub(crate).
	Crate
	// Super is pub(super).
	Super
	// Restricted is pub(in path) or pub(self).
	Restricted
	// Local is a function-local binding.
	Local
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "pub"
	case Crate:
		return "pub(crate)"
	case Super:
		return "pub(super)"
	case Restricted:
		return "pub(in)"
	case Local:
		return "local"
	default:
		return "private"
	}
}

// Kind is the item kind of a Match. The set of implementations is closed.
type Kind interface {
	String() string
	kind()
}

type (
	Let      struct{}
	IfLet    struct{}
	WhileLet struct{}
	For      struct{}
	Module   struct{}
	Function struct{}
	Struct   struct{}
	Type     struct{}
	Trait    struct{}
	Enum     struct{}
	Const    struct{}
	Static   struct{}
	Macro    struct{}

	// EnumVariant carries the enum that declares it, when known.
	EnumVariant struct {
		Enum *Match
	}
)

func (Let) kind()         {}
func (IfLet) kind()       {}
func (WhileLet) kind()    {}
func (For) kind()         {}
func (Module) kind()      {}
func (Function) kind()    {}
func (Struct) kind()      {}
func (Type) kind()        {}
func (Trait) kind()       {}
func (Enum) kind()        {}
func (Const) kind()       {}
func (Static) kind()      {}
func (Macro) kind()       {}
func (EnumVariant) kind() {}

func (Let) String() string         { return "let" }
func (IfLet) String() string       { return "if_let" }
func (WhileLet) String() string    { return "while_let" }
func (For) String() string         { return "for" }
func (Module) String() string      { return "module" }
func (Function) String() string    { return "function" }
func (Struct) String() string      { return "struct" }
func (Type) String() string        { return "type" }
func (Trait) String() string       { return "trait" }
func (Enum) String() string        { return "enum" }
func (Const) String() string       { return "const" }
func (Static) String() string      { return "static" }
func (Macro) String() string       { return "macro" }
func (EnumVariant) String() string { return "enum_variant" }

// Match is a resolved symbol occurrence.
type Match struct {
	// MatchStr is the identifier as seen by the caller; it may differ from
	// the declared name when reached through a `use ... as` alias.
	MatchStr string
	Filepath string
	Point    BytePos
	// Coords is set instead of Point when the match is the start of another file.
	Coords      *Coordinate
	Kind        Kind
	Visibility  Visibility
	Context     string
	GenericArgs []string
	Docs        string
}

func (m Match) String() string {
	return fmt.Sprintf("%s %s %s:%d", m.Kind, m.MatchStr, m.Filepath, m.Point)
}

// PathSegment is one `::`-separated component of a path.
type PathSegment struct {
	Name string
}

// Path is a (possibly global) `a::b::c` path.
type Path struct {
	Global   bool
	Segments []PathSegment
}

// ParsePath splits s on `::`. A leading `::` marks the path global.
func ParsePath(s string) Path {
	s = strings.TrimSpace(s)
	var p Path
	if strings.HasPrefix(s, "::") {
		p.Global = true
		s = s[2:]
	}
	for _, seg := range strings.Split(s, "::") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		p.Segments = append(p.Segments, PathSegment{Name: seg})
	}
	return p
}

// Append returns a copy of p with name added as the last segment.
func (p Path) Append(name string) Path {
	segs := make([]PathSegment, len(p.Segments), len(p.Segments)+1)
	copy(segs, p.Segments)
	return Path{Global: p.Global, Segments: append(segs, PathSegment{Name: name})}
}

// Last returns the final segment name, or "" for an empty path.
func (p Path) Last() string {
	if len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[len(p.Segments)-1].Name
}

// Parent returns p without its final segment.
func (p Path) Parent() Path {
	if len(p.Segments) == 0 {
		return p
	}
	return Path{Global: p.Global, Segments: p.Segments[:len(p.Segments)-1]}
}

func (p Path) String() string {
	names := make([]string, len(p.Segments))
	for i, s := range p.Segments {
		names[i] = s.Name
	}
	out := strings.Join(names, "::")
	if p.Global {
		return "::" + out
	}
	return out
}
