package server

import (
	"context"
	"log/slog"

	"go.lsp.dev/protocol"
)

// DidOpen implements textDocument/didOpen.
func (s *ServerImpl) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	item := params.TextDocument
	slog.Info("Opening document", "uri", item.URI, "version", item.Version)

	seq := s.docs.Put(item.URI, item.Version, item.Text)
	s.analyzeAndPublish(ctx, Document{URI: item.URI, Version: item.Version, Text: item.Text}, seq)
	return nil
}

// DidChange implements textDocument/didChange. Sync is full-document, so
// the last content change carries the complete new text.
func (s *ServerImpl) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	version := params.TextDocument.Version
	slog.Debug("Changing document", "uri", uri, "version", version)

	if len(params.ContentChanges) == 0 {
		return nil
	}
	text := params.ContentChanges[len(params.ContentChanges)-1].Text

	seq := s.docs.Put(uri, version, text)
	s.analyzeAndPublish(ctx, Document{URI: uri, Version: version, Text: text}, seq)
	return nil
}

// DidClose implements textDocument/didClose. The client's diagnostics for
// the document are cleared.
func (s *ServerImpl) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	slog.Info("Closing document", "uri", uri)

	seq := s.docs.Remove(uri)
	if _, err := s.publisher.Publish(ctx, uri, 0, seq, nil); err != nil {
		slog.Error("Failed to clear diagnostics", "uri", uri, "error", err)
	}
	return nil
}

// DidSave implements textDocument/didSave by refreshing the workspace index.
func (s *ServerImpl) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.mu.RLock()
	scanner := s.scanner
	s.mu.RUnlock()
	if scanner == nil {
		return nil
	}

	slog.Info("Re-scanning unit files on save", "file", params.TextDocument.URI)
	if err := scanner.Process(); err != nil {
		slog.Error("Failed to re-scan unit files", "error", err)
		return nil
	}
	slog.Info("Completed unit file re-scan", "files_scanned", scanner.ProcessedFiles.Len())
	return nil
}
