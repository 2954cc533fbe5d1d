package analysis

import (
	"github.com/alexispurslane/systemd-lsp/unitfile"
	protocol "go.lsp.dev/protocol"
)

// HoverAt returns the explanation for the section header or key on the line
// under pos, or nil when the line holds nothing the knowledge table covers.
func HoverAt(text string, pos protocol.Position) *protocol.Hover {
	line, ok := unitfile.LineAt(text, int(pos.Line))
	if !ok {
		return nil
	}

	if name, ok := unitfile.HeaderName(line); ok {
		doc, ok := SectionDoc(name)
		if !ok {
			return nil
		}
		return markdownHover(doc, pos.Line, unitfile.Width(line))
	}

	if unitfile.IsComment(line) {
		return nil
	}
	key, _, ok := unitfile.SplitEntry(line)
	if !ok {
		return nil
	}
	doc, ok := KeyDoc(key)
	if !ok {
		return nil
	}
	return markdownHover(doc, pos.Line, unitfile.Width(key))
}

func markdownHover(doc string, line uint32, end int) *protocol.Hover {
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: doc,
		},
		Range: &protocol.Range{
			Start: protocol.Position{Line: line, Character: 0},
			End:   protocol.Position{Line: line, Character: uint32(end)},
		},
	}
}
