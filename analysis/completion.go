package analysis

import (
	"github.com/alexispurslane/systemd-lsp/unitfile"
	protocol "go.lsp.dev/protocol"
)

// CompletionsAt returns the candidates for the cursor at pos. The set depends
// only on where the cursor is structurally; prefix filtering is left to the
// editor.
func CompletionsAt(text string, pos protocol.Position) []protocol.CompletionItem {
	line, ok := unitfile.LineAt(text, int(pos.Line))
	if !ok {
		return []protocol.CompletionItem{}
	}

	if unitfile.IsUnterminatedHeader(line) {
		return headerClosers()
	}

	section, _ := unitfile.SectionAt(text, int(pos.Line))
	if keys, ok := sectionKeys[section]; ok {
		items := make([]protocol.CompletionItem, 0, len(keys))
		for _, k := range keys {
			item := protocol.CompletionItem{
				Label:      k.name + "=",
				Kind:       protocol.CompletionItemKindProperty,
				Detail:     k.detail,
				InsertText: k.name + "=",
			}
			if doc, ok := KeyDoc(k.name); ok {
				item.Documentation = protocol.MarkupContent{Kind: protocol.Markdown, Value: doc}
			}
			items = append(items, item)
		}
		return items
	}

	// No section yet, or one without a key list (Mount, anything unknown).
	return sectionHeaders()
}

func headerClosers() []protocol.CompletionItem {
	items := make([]protocol.CompletionItem, 0, len(knownSections))
	for _, s := range knownSections {
		items = append(items, protocol.CompletionItem{
			Label:      s.name + "]",
			Kind:       protocol.CompletionItemKindModule,
			Detail:     s.detail,
			InsertText: s.name + "]",
		})
	}
	return items
}

func sectionHeaders() []protocol.CompletionItem {
	items := make([]protocol.CompletionItem, 0, len(knownSections))
	for _, s := range knownSections {
		item := protocol.CompletionItem{
			Label:      "[" + s.name + "]",
			Kind:       protocol.CompletionItemKindModule,
			Detail:     s.detail,
			InsertText: "[" + s.name + "]",
		}
		if doc, ok := SectionDoc(s.name); ok {
			item.Documentation = protocol.MarkupContent{Kind: protocol.Markdown, Value: doc}
		}
		items = append(items, item)
	}
	return items
}
