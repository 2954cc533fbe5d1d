package server

import (
	"context"

	"github.com/alexispurslane/systemd-lsp/unitfile"
	"go.lsp.dev/protocol"
)

// FoldingRanges implements textDocument/foldingRange.
//
// Every section with a body folds from its header to its last non-blank
// line, so trailing blank lines stay visible between folded sections.
func (s *ServerImpl) FoldingRanges(ctx context.Context, params *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error) {
	doc, ok := s.docs.Get(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	return findFoldingRanges(doc.Text), nil
}

func findFoldingRanges(text string) []protocol.FoldingRange {
	var ranges []protocol.FoldingRange
	for _, section := range unitfile.Outline(text) {
		if section.EndLine <= section.Line {
			continue
		}
		ranges = append(ranges, protocol.FoldingRange{
			StartLine: uint32(section.Line),
			EndLine:   uint32(section.EndLine),
			Kind:      protocol.RegionFoldingRange,
		})
	}
	return ranges
}
