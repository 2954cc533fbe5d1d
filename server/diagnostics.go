package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alexispurslane/systemd-lsp/analysis"
	"go.lsp.dev/protocol"
)

type publishFunc func(ctx context.Context, params *protocol.PublishDiagnosticsParams) error

// diagnosticsPublisher sends diagnostics so that, per document, the set the
// client ends up with always comes from the newest snapshot. A result whose
// sequence number is older than one already published is dropped. Sending
// happens under the lock, so publications for one server never interleave.
type diagnosticsPublisher struct {
	mu      sync.Mutex
	latest  map[protocol.DocumentURI]uint64
	publish publishFunc
}

func newDiagnosticsPublisher(publish publishFunc) *diagnosticsPublisher {
	return &diagnosticsPublisher{
		latest:  make(map[protocol.DocumentURI]uint64),
		publish: publish,
	}
}

// Publish sends diags for uri unless a newer snapshot already won. It reports
// whether the diagnostics were sent.
func (p *diagnosticsPublisher) Publish(ctx context.Context, uri protocol.DocumentURI, version int32, seq uint64, diags []protocol.Diagnostic) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if seq < p.latest[uri] {
		slog.Debug("Dropping stale diagnostics", "uri", uri, "seq", seq, "latest", p.latest[uri])
		return false, nil
	}
	p.latest[uri] = seq

	if diags == nil {
		diags = []protocol.Diagnostic{}
	}
	params := &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Version:     uint32(max(version, 0)),
		Diagnostics: diags,
	}
	return true, p.publish(ctx, params)
}

func (s *ServerImpl) publishToClient(ctx context.Context, params *protocol.PublishDiagnosticsParams) error {
	client := s.currentClient()
	if client == nil {
		slog.Debug("No client attached, diagnostics not sent", "uri", params.URI)
		return nil
	}
	return client.PublishDiagnostics(ctx, params)
}

// analyzeAndPublish runs the diagnostics pass over one snapshot and publishes it.
func (s *ServerImpl) analyzeAndPublish(ctx context.Context, doc Document, seq uint64) {
	diags := analysis.Diagnose(doc.Text)
	sent, err := s.publisher.Publish(ctx, doc.URI, doc.Version, seq, diags)
	if err != nil {
		slog.Error("Failed to publish diagnostics", "uri", doc.URI, "error", err)
		return
	}
	if sent {
		slog.Debug("Published diagnostics", "uri", doc.URI, "version", doc.Version, "count", len(diags))
	}
}
