package server

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/alexispurslane/systemd-lsp/unitfile"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// DocumentSymbol implements textDocument/documentSymbol: one namespace per
// section with its entries as properties.
func (s *ServerImpl) DocumentSymbol(ctx context.Context, params *protocol.DocumentSymbolParams) ([]interface{}, error) {
	docURI := params.TextDocument.URI
	slog.Debug("textDocument/documentSymbol handler called", "uri", docURI)

	doc, ok := s.docs.Get(docURI)
	if !ok {
		slog.Debug("Document not open", "uri", docURI)
		return nil, nil
	}

	symbols := sectionsToSymbols(doc.Text)

	result := make([]interface{}, len(symbols))
	for i, sym := range symbols {
		result[i] = sym
	}
	slog.Debug("Document symbols generated", "uri", docURI, "count", len(result))
	return result, nil
}

func sectionsToSymbols(text string) []protocol.DocumentSymbol {
	lines := unitfile.Lines(text)
	var symbols []protocol.DocumentSymbol

	for _, section := range unitfile.Outline(text) {
		sym := protocol.DocumentSymbol{
			Name:           section.Name,
			Kind:           protocol.SymbolKindNamespace,
			Range:          spanRange(section.Line, section.EndLine, unitfile.Width(lines[section.EndLine])),
			SelectionRange: spanRange(section.Line, section.Line, section.HeaderWidth),
		}

		for _, entry := range section.Entries {
			if entry.Key == "" {
				continue
			}
			sym.Children = append(sym.Children, protocol.DocumentSymbol{
				Name:           entry.Key,
				Detail:         entry.Value,
				Kind:           protocol.SymbolKindProperty,
				Range:          spanRange(entry.Line, entry.Line, unitfile.Width(lines[entry.Line])),
				SelectionRange: spanRange(entry.Line, entry.Line, unitfile.Width(entry.Key)),
			})
		}

		symbols = append(symbols, sym)
	}
	return symbols
}

func spanRange(startLine, endLine, endChar int) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: uint32(startLine), Character: 0},
		End:   protocol.Position{Line: uint32(endLine), Character: uint32(endChar)},
	}
}

// Symbols implements workspace/symbol over the indexed unit files.
func (s *ServerImpl) Symbols(ctx context.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	slog.Debug("workspace/symbol handler called", "query", params.Query)

	s.mu.RLock()
	scanner := s.scanner
	s.mu.RUnlock()
	if scanner == nil {
		return nil, nil
	}

	var symbols []protocol.SymbolInformation
	for _, f := range scanner.Search(params.Query) {
		symbols = append(symbols, protocol.SymbolInformation{
			Name: f.Name(),
			Kind: protocol.SymbolKindFile,
			Location: protocol.Location{
				URI: uri.File(filepath.Join(scanner.Root, f.Path)),
			},
			ContainerName: f.Description,
		})
	}

	slog.Debug("Workspace symbols generated", "query", params.Query, "count", len(symbols))
	return symbols, nil
}
