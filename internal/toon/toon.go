// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/rustguide/internal/ast"
	"github.com/phobologic/rustguide/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Candidate is a match with its position converted to a line and column.
type Candidate struct {
	model.Match
	Line   int
	Column int
}

// Candidates encodes the result of a completion or definition query.
// A docs table follows when any candidate carries documentation; it holds
// the first line of each doc comment.
func Candidates(query string, cs []Candidate) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("query: %s", encodeValue(query)))

	var rows, docRows [][]string
	for i := range cs {
		c := &cs[i]
		rows = append(rows, []string{
			c.MatchStr,
			kindName(c.Kind),
			c.Filepath,
			strconv.Itoa(c.Line),
			strconv.Itoa(c.Column),
			c.Visibility.String(),
			c.Context,
		})
		if c.Docs != "" {
			first, _, _ := strings.Cut(c.Docs, "\n")
			docRows = append(docRows, []string{c.MatchStr, first})
		}
	}
	parts = append(parts, formatTabular("candidates", []string{"name", "kind", "file", "line", "column", "visibility", "context"}, rows))

	if len(docRows) > 0 {
		parts = append(parts, formatTabular("docs", []string{"name", "doc"}, docRows))
	}

	return strings.Join(parts, "\n")
}

// OutlineFile is one file of a workspace outline.
type OutlineFile struct {
	Path  string
	Test  bool
	Items []ast.Item
}

// Outline encodes the top-level items of a set of files.
func Outline(root string, files []OutlineFile) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("root: %s", encodeValue(root)))

	var fileRows, itemRows [][]string
	for i := range files {
		f := &files[i]
		fileRows = append(fileRows, []string{
			f.Path,
			strconv.Itoa(len(f.Items)),
			fileRole(f.Test),
		})
		for j := range f.Items {
			it := &f.Items[j]
			itemRows = append(itemRows, []string{
				f.Path,
				it.Name,
				it.Kind,
				strconv.Itoa(it.Line),
				it.Signature,
			})
		}
	}
	parts = append(parts, formatTabular("files", []string{"path", "items", "role"}, fileRows))
	parts = append(parts, formatTabular("items", []string{"file", "name", "kind", "line", "signature"}, itemRows))

	return strings.Join(parts, "\n")
}

// Field is one key/value line of a flat object.
type Field struct {
	Key   string
	Value string
}

// Fields encodes a flat object, one `key: value` line per field.
func Fields(fields ...Field) string {
	lines := make([]string, len(fields))
	for i, f := range fields {
		lines[i] = fmt.Sprintf("%s: %s", f.Key, encodeValue(f.Value))
	}
	return strings.Join(lines, "\n")
}

func fileRole(test bool) string {
	if test {
		return "test"
	}
	return "lib"
}

func kindName(k model.Kind) string {
	if k == nil {
		return ""
	}
	return k.String()
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
