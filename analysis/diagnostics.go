package analysis

import (
	"fmt"
	"slices"
	"strings"

	"github.com/alexispurslane/systemd-lsp/unitfile"
	protocol "go.lsp.dev/protocol"
)

// Diagnose returns every problem found in text. A document that fails to
// parse gets one error pinned to the first character; the per-line rules run
// either way since they only look at one line at a time.
func Diagnose(text string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}

	if _, err := unitfile.Parse(text); err != nil {
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: 0, Character: 0},
				End:   protocol.Position{Line: 0, Character: 1},
			},
			Severity: protocol.DiagnosticSeverityError,
			Source:   Source,
			Message:  fmt.Sprintf("Systemd unit file syntax error: %v", err),
		})
	}

	for i, line := range unitfile.Lines(text) {
		entry, ok := unitfile.EntryAt(line, i)
		if !ok {
			continue
		}
		diagnostics = append(diagnostics, checkEntry(entry, lineRange(i, line))...)
	}

	return diagnostics
}

// checkEntry applies the line rules. Rules are independent: an empty
// ExecStart= trips both the empty-value and the absolute-path rule.
func checkEntry(entry unitfile.Entry, rng protocol.Range) []protocol.Diagnostic {
	var found []protocol.Diagnostic

	if entry.Value == "" {
		found = append(found, protocol.Diagnostic{
			Range:    rng,
			Severity: protocol.DiagnosticSeverityWarning,
			Source:   Source,
			Message:  fmt.Sprintf("Key '%s' has an empty value", entry.Key),
		})
	}

	switch entry.Key {
	case "ExecStart":
		if !strings.HasPrefix(entry.Value, "/") && !strings.HasPrefix(entry.Value, "-") {
			found = append(found, protocol.Diagnostic{
				Range:    rng,
				Severity: protocol.DiagnosticSeverityWarning,
				Source:   Source,
				Message:  "ExecStart should use absolute paths",
			})
		}
	case "Type":
		if !slices.Contains(serviceTypes, entry.Value) {
			found = append(found, protocol.Diagnostic{
				Range:    rng,
				Severity: protocol.DiagnosticSeverityError,
				Source:   Source,
				Message: fmt.Sprintf("Invalid service type: '%s'. Valid types: %s",
					entry.Value, strings.Join(serviceTypes, ", ")),
			})
		}
	}

	return found
}

// lineRange covers the whole of line n.
func lineRange(n int, line string) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: uint32(n), Character: 0},
		End:   protocol.Position{Line: uint32(n), Character: uint32(unitfile.Width(line))},
	}
}
