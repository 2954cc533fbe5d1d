package unitfile

import "strings"

// Section is one [Name] block of a unit file.
type Section struct {
	Name string
	// Line is the header line.
	Line int
	// EndLine is the last non-blank line before the next header, or Line
	// itself when the section has no body.
	EndLine int
	// HeaderWidth is the header line length in UTF-16 code units.
	HeaderWidth int
	Entries     []Entry
}

// Outline returns the sections of text in document order. Entries that
// appear before the first header belong to no section and are left out.
func Outline(text string) []Section {
	var sections []Section
	for i, line := range Lines(text) {
		if name, ok := HeaderName(line); ok {
			sections = append(sections, Section{
				Name:        name,
				Line:        i,
				EndLine:     i,
				HeaderWidth: Width(line),
			})
			continue
		}
		if len(sections) == 0 {
			continue
		}
		current := &sections[len(sections)-1]
		if strings.TrimSpace(line) != "" {
			current.EndLine = i
		}
		if entry, ok := EntryAt(line, i); ok {
			current.Entries = append(current.Entries, entry)
		}
	}
	return sections
}
