// Package unitfile provides the line-level structure of systemd unit files:
// section headers, key=value entries, and which section a given line falls in.
//
// Everything here is a pure function of the document text. Nothing is cached,
// so two queries against the same text always agree with each other.
package unitfile

import (
	"strings"
	"unicode/utf16"
)

// Entry is a key=value line. Key and Value are trimmed.
type Entry struct {
	Key   string
	Value string
	Line  int
}

// Lines splits text into lines, dropping a trailing carriage return from each.
// An empty document has no lines; a trailing newline yields a final empty line
// so the cursor position after it is addressable.
func Lines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// LineAt returns line n of text, or false when the document has no such line.
func LineAt(text string, n int) (string, bool) {
	lines := Lines(text)
	if n < 0 || n >= len(lines) {
		return "", false
	}
	return lines[n], true
}

// HeaderName reports whether line is a complete section header and returns
// the trimmed name between the brackets.
func HeaderName(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < 2 || !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return "", false
	}
	return strings.TrimSpace(trimmed[1 : len(trimmed)-1]), true
}

// IsUnterminatedHeader reports whether line opens a header that has no closing
// bracket anywhere on it, i.e. the user is still typing the section name.
func IsUnterminatedHeader(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "[") && !strings.Contains(line, "]")
}

// IsComment reports whether line is a comment.
func IsComment(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "#")
}

// SplitEntry splits line on its first '=' and trims both halves.
func SplitEntry(line string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(line, "=")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(key), strings.TrimSpace(value), true
}

// EntryAt parses line n as an entry. Comments and anything starting with '['
// are never entries, even when they contain '='.
func EntryAt(line string, n int) (Entry, bool) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "[") {
		return Entry{}, false
	}
	key, value, ok := SplitEntry(line)
	if !ok {
		return Entry{}, false
	}
	return Entry{Key: key, Value: value, Line: n}, true
}

// SectionAt returns the name of the section enclosing line n: the last
// complete header at or before n. Unterminated headers do not open a section,
// and a line outside the document has no section.
func SectionAt(text string, n int) (string, bool) {
	lines := Lines(text)
	if n < 0 || n >= len(lines) {
		return "", false
	}

	var (
		current string
		found   bool
	)
	for _, line := range lines[:n+1] {
		if name, ok := HeaderName(line); ok {
			current, found = name, true
		}
	}
	return current, found
}

// Width returns the length of s in UTF-16 code units, the unit LSP columns use.
func Width(s string) int {
	w := 0
	for _, r := range s {
		w += utf16.RuneLen(r)
	}
	return w
}
