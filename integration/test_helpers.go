package integration

import (
	"go.lsp.dev/protocol"
)

// With stores value in tc.TestData under key for use in GivenFile templates.
// Example: tc.With("bin", "/usr/bin/web").GivenFile("web.service", "[Service]\nExecStart={{.bin}}\n")
func (tc *LSPTestContext) With(key, value string) *LSPTestContext {
	tc.TestData[key] = value
	return tc
}

// DiagnosticMessages returns the messages of diags in order.
func DiagnosticMessages(diags []protocol.Diagnostic) []string {
	messages := make([]string, len(diags))
	for i, d := range diags {
		messages[i] = d.Message
	}
	return messages
}

// CompletionLabels returns the labels of a completion list in order.
func CompletionLabels(list *protocol.CompletionList) []string {
	if list == nil {
		return nil
	}
	labels := make([]string, len(list.Items))
	for i, item := range list.Items {
		labels[i] = item.Label
	}
	return labels
}
