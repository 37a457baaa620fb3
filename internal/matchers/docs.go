package matchers

import "strings"

// lines splits s like a line iterator would: no trailing empty line and
// no carriage returns.
func lines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	out := strings.Split(s, "\n")
	for i, l := range out {
		out[i] = strings.TrimSuffix(l, "\r")
	}
	return out
}

// FindDoc returns the /// doc comment directly above the line containing
// point. Attribute and blank lines between the docs and the item are skipped.
func FindDoc(text string, point int) string {
	if point > len(text) {
		point = len(text)
	}
	// The last element is the partial line holding point, possibly empty.
	ls := strings.Split(text[:point], "\n")
	var docs []string
	for i := len(ls) - 2; i >= 0; i-- {
		line := strings.TrimSpace(ls[i])
		if line == "" || strings.HasPrefix(line, "#[") {
			continue
		}
		if !strings.HasPrefix(line, "///") {
			break
		}
		docs = append(docs, stripMarker(line))
	}
	for i, j := 0, len(docs)-1; i < j; i, j = i+1, j-1 {
		docs[i], docs[j] = docs[j], docs[i]
	}
	return strings.Join(docs, "\n")
}

// FindModDoc returns the //! inner doc comment at the top of the module
// starting at start. Ordinary comments and blank lines before it are skipped.
func FindModDoc(text string, start int) string {
	var docs []string
	for _, line := range lines(text[start:]) {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "//") {
			break
		}
		if strings.HasPrefix(line, "//!") {
			docs = append(docs, stripMarker(line))
		}
	}
	return strings.Join(docs, "\n")
}

func stripMarker(line string) string {
	if len(line) < 4 {
		return ""
	}
	return line[4:]
}

// FirstLine returns blob up to its first newline.
func FirstLine(blob string) string {
	if i := strings.IndexByte(blob, '\n'); i >= 0 {
		return blob[:i]
	}
	return blob
}

// GetContext returns blob up to the first occurrence of end with all
// whitespace runs collapsed to single spaces.
func GetContext(blob, end string) string {
	if i := strings.Index(blob, end); i >= 0 {
		blob = blob[:i]
	}
	return strings.Join(strings.Fields(blob), " ")
}
