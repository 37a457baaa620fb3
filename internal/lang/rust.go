package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

func init() {
	Languages["rust"] = &Language{
		Name:       "rust",
		Extensions: []string{".rs"},
		lang:       rust.GetLanguage(),
		ItemKinds: map[string]string{
			"function_item":            "function",
			"struct_item":              "struct",
			"enum_item":                "enum",
			"union_item":               "struct",
			"trait_item":               "trait",
			"type_item":                "type",
			"const_item":               "const",
			"static_item":              "static",
			"mod_item":                 "module",
			"macro_definition":         "macro",
			"impl_item":                "impl",
			"extern_crate_declaration": "extern_crate",
		},
		ExtractSignature: rustExtractSignature,
	}
}

// rustExtractSignature returns the item header up to (not including) its
// body, with whitespace collapsed.
func rustExtractSignature(node *sitter.Node, source []byte) string {
	end := node.EndByte()
	if body := node.ChildByFieldName("body"); body != nil {
		end = body.StartByte()
	} else if node.Type() == "macro_definition" {
		if name := node.ChildByFieldName("name"); name != nil {
			end = name.EndByte()
		}
	}
	return strings.TrimSpace(strings.TrimSuffix(CollapseWhitespace(string(source[node.StartByte():end])), ";"))
}
