package server

import (
	"context"
	"log/slog"

	"github.com/alexispurslane/systemd-lsp/analysis"
	"go.lsp.dev/protocol"
)

// Hover implements textDocument/hover.
func (s *ServerImpl) Hover(ctx context.Context, params *protocol.HoverParams) (result *protocol.Hover, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("PANIC in Hover", "recover", r)
			result, err = nil, nil
		}
	}()
	slog.Debug("Hover called", "uri", params.TextDocument.URI, "line", params.Position.Line, "char", params.Position.Character)

	return analysis.HoverAt(s.docs.Text(params.TextDocument.URI), params.Position), nil
}
