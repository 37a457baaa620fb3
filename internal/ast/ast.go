// Package ast parses small Rust snippets with tree-sitter and extracts the
// pieces the scanners cannot get from bytes alone: use trees, pattern
// bindings, enum variants, generics and item names.
package ast

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/rustguide/internal/lang"
	"github.com/phobologic/rustguide/internal/model"
)

// parse returns the syntax tree for source. The caller must Close the tree.
func parse(source []byte) *sitter.Tree {
	if len(source) == 0 {
		return nil
	}
	p := lang.Rust().NewParser()
	defer p.Close()
	tree, err := p.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil
	}
	return tree
}

func nodeText(node *sitter.Node, source []byte) string {
	return lang.NodeText(node, source)
}

// findFirst does a depth-first search for the first node whose type is one of types.
func findFirst(node *sitter.Node, types ...string) *sitter.Node {
	if node == nil {
		return nil
	}
	for _, t := range types {
		if node.Type() == t {
			return node
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if found := findFirst(node.NamedChild(i), types...); found != nil {
			return found
		}
	}
	return nil
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// AliasKind classifies one leaf of a use tree.
type AliasKind int

const (
	// IdentAlias imports a single name, possibly renamed.
	IdentAlias AliasKind = iota
	// SelfAlias is the `a::b::{self}` form importing the module b itself.
	SelfAlias
	// GlobAlias is `a::b::*`.
	GlobAlias
)

// PathAlias is one name brought into scope by a use statement. Ident is the
// name visible in the importing scope; Path is the imported path. For
// GlobAlias, Ident is empty and Path names the module being expanded.
type PathAlias struct {
	Kind  AliasKind
	Ident string
	Path  model.Path
}

// ParseUse flattens the use tree in stmt into its leaves.
func ParseUse(stmt string) []PathAlias {
	source := []byte(stmt)
	tree := parse(source)
	if tree == nil {
		return nil
	}
	defer tree.Close()

	decl := findFirst(tree.RootNode(), "use_declaration")
	if decl == nil {
		return nil
	}
	arg := decl.ChildByFieldName("argument")
	if arg == nil {
		return nil
	}
	var out []PathAlias
	walkUseTree(arg, model.Path{}, source, &out)
	return out
}

func joinPath(prefix, p model.Path) model.Path {
	out := model.Path{Global: prefix.Global || (len(prefix.Segments) == 0 && p.Global)}
	out.Segments = append(append([]model.PathSegment{}, prefix.Segments...), p.Segments...)
	return out
}

func leafAlias(path model.Path, rename string) PathAlias {
	if path.Last() == "self" && len(path.Segments) > 1 {
		parent := path.Parent()
		ident := parent.Last()
		if rename != "" {
			ident = rename
		}
		return PathAlias{Kind: SelfAlias, Ident: ident, Path: parent}
	}
	ident := path.Last()
	if rename != "" {
		ident = rename
	}
	return PathAlias{Kind: IdentAlias, Ident: ident, Path: path}
}

func walkUseTree(node *sitter.Node, prefix model.Path, source []byte, out *[]PathAlias) {
	switch node.Type() {
	case "identifier", "self", "crate", "super", "scoped_identifier", "metavariable":
		*out = append(*out, leafAlias(joinPath(prefix, model.ParsePath(nodeText(node, source))), ""))

	case "use_as_clause":
		pathNode := node.ChildByFieldName("path")
		aliasNode := node.ChildByFieldName("alias")
		if pathNode == nil {
			return
		}
		rename := ""
		if aliasNode != nil {
			rename = nodeText(aliasNode, source)
		}
		if rename == "_" {
			return
		}
		*out = append(*out, leafAlias(joinPath(prefix, model.ParsePath(nodeText(pathNode, source))), rename))

	case "use_wildcard":
		text := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(nodeText(node, source)), "*"))
		*out = append(*out, PathAlias{Kind: GlobAlias, Path: joinPath(prefix, model.ParsePath(text))})

	case "scoped_use_list":
		next := prefix
		if p := node.ChildByFieldName("path"); p != nil {
			next = joinPath(prefix, model.ParsePath(nodeText(p, source)))
		} else if strings.HasPrefix(strings.TrimSpace(nodeText(node, source)), "::") {
			next.Global = true
		}
		if list := node.ChildByFieldName("list"); list != nil {
			walkUseTree(list, next, source, out)
		}

	case "use_list":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			walkUseTree(node.NamedChild(i), prefix, source, out)
		}
	}
}

// PatternKind selects which binding form ParsePatBindings looks for.
type PatternKind int

const (
	LetPattern PatternKind = iota
	IfLetPattern
	WhileLetPattern
	ForPattern
)

const patWrapperPrefix = "fn __rustguide_pat() {\n"

// ParsePatBindings returns the ranges (relative to blob) of every identifier
// bound by the pattern of the let, if let, while let or for statement in blob.
func ParsePatBindings(blob string, kind PatternKind) []model.ByteRange {
	wrapped := patWrapperPrefix + blob + "\n}"
	source := []byte(wrapped)
	tree := parse(source)
	if tree == nil {
		return nil
	}
	defer tree.Close()

	var types []string
	switch kind {
	case LetPattern:
		types = []string{"let_declaration"}
	case IfLetPattern:
		types = []string{"let_condition", "if_let_expression"}
	case WhileLetPattern:
		types = []string{"let_condition", "while_let_expression"}
	case ForPattern:
		types = []string{"for_expression"}
	}
	holder := findFirst(tree.RootNode(), types...)
	if holder == nil {
		return nil
	}
	pat := holder.ChildByFieldName("pattern")
	if pat == nil {
		return nil
	}

	var ranges []model.ByteRange
	collectBindings(pat, &ranges)

	off := model.BytePos(len(patWrapperPrefix))
	out := ranges[:0]
	for _, r := range ranges {
		r = r.Shift(-off)
		if r.Start >= 0 && r.End.Int() <= len(blob) {
			out = append(out, r)
		}
	}
	return out
}

func nodeRange(n *sitter.Node) model.ByteRange {
	return model.NewRange(model.BytePos(n.StartByte()), model.BytePos(n.EndByte()))
}

func collectBindings(node *sitter.Node, out *[]model.ByteRange) {
	switch node.Type() {
	case "identifier", "shorthand_field_identifier":
		*out = append(*out, nodeRange(node))
		return
	case "scoped_identifier", "scoped_type_identifier", "type_identifier", "generic_type",
		"macro_invocation", "string_literal", "char_literal", "integer_literal",
		"float_literal", "boolean_literal", "negative_literal", "range_pattern":
		return
	case "tuple_struct_pattern", "struct_pattern":
		typ := node.ChildByFieldName("type")
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if sameNode(child, typ) {
				continue
			}
			collectBindings(child, out)
		}
		return
	case "field_pattern":
		if pat := node.ChildByFieldName("pattern"); pat != nil {
			collectBindings(pat, out)
			return
		}
		if name := node.ChildByFieldName("name"); name != nil {
			collectBindings(name, out)
		}
		return
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		collectBindings(node.NamedChild(i), out)
	}
}

// Variant is one enum variant name and its offset in the parsed text.
type Variant struct {
	Name   string
	Offset model.BytePos
}

// ParseEnumVariants returns the variants of the first enum declared in s.
func ParseEnumVariants(s string) []Variant {
	source := []byte(s)
	tree := parse(source)
	if tree == nil {
		return nil
	}
	defer tree.Close()

	enum := findFirst(tree.RootNode(), "enum_item")
	if enum == nil {
		return nil
	}
	body := enum.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	var out []Variant
	for i := 0; i < int(body.NamedChildCount()); i++ {
		v := body.NamedChild(i)
		if v.Type() != "enum_variant" {
			continue
		}
		name := v.ChildByFieldName("name")
		if name == nil {
			continue
		}
		out = append(out, Variant{Name: nodeText(name, source), Offset: model.BytePos(name.StartByte())})
	}
	return out
}

// ParseGenerics returns the type and const parameter names declared by the
// first item in s. Lifetimes are skipped.
func ParseGenerics(s string) []string {
	source := []byte(s)
	tree := parse(source)
	if tree == nil {
		return nil
	}
	defer tree.Close()

	params := findFirst(tree.RootNode(), "type_parameters")
	if params == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "type_identifier":
			out = append(out, nodeText(p, source))
		case "constrained_type_parameter":
			if left := p.ChildByFieldName("left"); left != nil && left.Type() != "lifetime" {
				out = append(out, nodeText(left, source))
			}
		case "optional_type_parameter", "const_parameter", "type_parameter":
			if name := p.ChildByFieldName("name"); name != nil {
				out = append(out, nodeText(name, source))
			}
		}
	}
	return out
}

// ExternCrate is a parsed `extern crate real as name;`.
type ExternCrate struct {
	// Name is the name the crate is visible as in the declaring scope.
	Name string
	// RealName is the crate being linked.
	RealName string
}

// ParseExternCrate parses the extern crate declaration in s.
func ParseExternCrate(s string) (ExternCrate, bool) {
	source := []byte(s)
	tree := parse(source)
	if tree == nil {
		return ExternCrate{}, false
	}
	defer tree.Close()

	decl := findFirst(tree.RootNode(), "extern_crate_declaration")
	if decl == nil {
		return ExternCrate{}, false
	}
	name := decl.ChildByFieldName("name")
	if name == nil {
		return ExternCrate{}, false
	}
	ec := ExternCrate{RealName: nodeText(name, source)}
	ec.Name = ec.RealName
	if alias := decl.ChildByFieldName("alias"); alias != nil {
		ec.Name = nodeText(alias, source)
	}
	return ec, true
}

// ParseMod returns the name of the module declared in s.
func ParseMod(s string) (string, bool) {
	source := []byte(s)
	tree := parse(source)
	if tree == nil {
		return "", false
	}
	defer tree.Close()

	mod := findFirst(tree.RootNode(), "mod_item")
	if mod == nil {
		return "", false
	}
	name := mod.ChildByFieldName("name")
	if name == nil {
		return "", false
	}
	return nodeText(name, source), true
}

// Item is one top-level item in a file outline.
type Item struct {
	Name      string
	Kind      string
	Line      int
	Signature string
}

// ParseItems returns the top-level items of a Rust file, descending into
// inline modules.
func ParseItems(source []byte) []Item {
	tree := parse(source)
	if tree == nil {
		return nil
	}
	defer tree.Close()

	var items []Item
	collectItems(tree.RootNode(), "", source, &items)
	return items
}

func collectItems(parent *sitter.Node, prefix string, source []byte, items *[]Item) {
	rs := lang.Rust()
	for i := 0; i < int(parent.NamedChildCount()); i++ {
		node := parent.NamedChild(i)
		kind, ok := rs.ItemKinds[node.Type()]
		if !ok {
			continue
		}
		name := itemName(node, source)
		if name == "" {
			continue
		}
		*items = append(*items, Item{
			Name:      prefix + name,
			Kind:      kind,
			Line:      int(node.StartPoint().Row) + 1,
			Signature: rs.ExtractSignature(node, source),
		})
		if node.Type() == "mod_item" {
			if body := node.ChildByFieldName("body"); body != nil {
				collectItems(body, prefix+name+"::", source, items)
			}
		}
	}
}

func itemName(node *sitter.Node, source []byte) string {
	if node.Type() == "impl_item" {
		typ := node.ChildByFieldName("type")
		if typ == nil {
			return ""
		}
		name := lang.CollapseWhitespace(nodeText(typ, source))
		if tr := node.ChildByFieldName("trait"); tr != nil {
			name = lang.CollapseWhitespace(nodeText(tr, source)) + " for " + name
		}
		return name
	}
	if name := node.ChildByFieldName("name"); name != nil {
		return nodeText(name, source)
	}
	return ""
}

// ImplSelfType returns the path Self refers to inside the first impl or
// trait block in s, without generic arguments.
func ImplSelfType(s string) (string, bool) {
	source := []byte(s)
	tree := parse(source)
	if tree == nil {
		return "", false
	}
	defer tree.Close()

	node := findFirst(tree.RootNode(), "impl_item", "trait_item")
	if node == nil {
		return "", false
	}
	field := "type"
	if node.Type() == "trait_item" {
		field = "name"
	}
	typ := node.ChildByFieldName(field)
	if typ == nil {
		return "", false
	}
	if typ.Type() == "generic_type" {
		if base := typ.ChildByFieldName("type"); base != nil {
			typ = base
		}
	}
	return nodeText(typ, source), true
}
