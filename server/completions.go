package server

import (
	"context"
	"log/slog"

	"github.com/alexispurslane/systemd-lsp/analysis"
	"go.lsp.dev/protocol"
)

// Completion implements textDocument/completion. A document that is not
// open is treated as empty, which yields an empty list.
func (s *ServerImpl) Completion(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	uri := params.TextDocument.URI
	slog.Debug("textDocument/completion handler called", "uri", uri, "line", params.Position.Line, "char", params.Position.Character)

	items := analysis.CompletionsAt(s.docs.Text(uri), params.Position)

	slog.Debug("Completion items generated", "uri", uri, "count", len(items))
	return &protocol.CompletionList{
		IsIncomplete: false,
		Items:        items,
	}, nil
}
