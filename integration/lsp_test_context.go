package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"text/template"
	"time"

	"github.com/alexispurslane/systemd-lsp/config"
	"github.com/alexispurslane/systemd-lsp/lspstream"
	ourserver "github.com/alexispurslane/systemd-lsp/server"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// LSPTestContext manages server lifecycle and provides test helpers
type LSPTestContext struct {
	t            *testing.T
	conn         jsonrpc2.Conn
	ctx          context.Context
	cancel       context.CancelFunc
	tempDir      string
	rootURI      string
	server       *ourserver.ServerImpl
	done         chan struct{}
	listener     net.Listener
	TestData     map[string]string // Values available to GivenFile templates
	lastSaveTime time.Time         // Track when we last triggered a save for indexing polls
	versions     map[protocol.DocumentURI]int32

	mu          sync.Mutex
	diagnostics map[protocol.DocumentURI][]protocol.PublishDiagnosticsParams
	logMessages []protocol.LogMessageParams
}

// NewTestContext creates a temp directory in /tmp, starts the LSP server
// with that directory as root, and returns a context for testing.
func NewTestContext(t *testing.T) *LSPTestContext {
	t.Helper()

	// Create temp directory in /tmp for automatic OS cleanup
	tempDir, err := os.MkdirTemp("", "systemd-lsp-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	cfg := config.Default()
	cfg.LogLevel = "ERROR"
	srv := ourserver.New(cfg)

	done := make(chan struct{})
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		cancel()
		os.RemoveAll(tempDir)
		t.Fatalf("Failed to create TCP listener: %v", err)
	}
	addr := listener.Addr().String()

	// The test drives a single connection, so the server instance is bound
	// to the first accepted client.
	go func() {
		defer close(done)
		c, err := listener.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		srvConn := srv.Serve(ctx, lspstream.NewLargeBufferStream(c))
		select {
		case <-srvConn.Done():
		case <-ctx.Done():
			srvConn.Close()
		}
	}()

	clientConn, err := net.Dial("tcp", addr)
	if err != nil {
		cancel()
		listener.Close()
		os.RemoveAll(tempDir)
		t.Fatalf("Failed to connect to server: %v", err)
	}

	tc := &LSPTestContext{
		t:           t,
		ctx:         ctx,
		cancel:      cancel,
		tempDir:     tempDir,
		rootURI:     string(uri.File(tempDir)),
		server:      srv,
		done:        done,
		listener:    listener,
		TestData:    make(map[string]string),
		versions:    make(map[protocol.DocumentURI]int32),
		diagnostics: make(map[protocol.DocumentURI][]protocol.PublishDiagnosticsParams),
	}

	jsonrpcConn := jsonrpc2.NewConn(lspstream.NewLargeBufferStream(clientConn))
	jsonrpcConn.Go(ctx, tc.handleServerMessage)
	tc.conn = jsonrpcConn

	initParams := protocol.InitializeParams{
		ProcessID: int32(os.Getpid()),
		RootURI:   protocol.DocumentURI(tc.rootURI),
	}

	var initResult protocol.InitializeResult
	if _, err := jsonrpcConn.Call(ctx, "initialize", initParams, &initResult); err != nil {
		tc.Shutdown()
		t.Fatalf("Initialize failed: %v", err)
	}

	if err := jsonrpcConn.Notify(ctx, "initialized", protocol.InitializedParams{}); err != nil {
		tc.Shutdown()
		t.Fatalf("Initialized notification failed: %v", err)
	}

	return tc
}

// handleServerMessage records the notifications the server pushes to the
// client and answers anything else with an empty result.
func (tc *LSPTestContext) handleServerMessage(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	switch req.Method() {
	case protocol.MethodTextDocumentPublishDiagnostics:
		var params protocol.PublishDiagnosticsParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, err)
		}
		tc.mu.Lock()
		tc.diagnostics[params.URI] = append(tc.diagnostics[params.URI], params)
		tc.mu.Unlock()
	case protocol.MethodWindowLogMessage:
		var params protocol.LogMessageParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, err)
		}
		tc.mu.Lock()
		tc.logMessages = append(tc.logMessages, params)
		tc.mu.Unlock()
	}
	return reply(ctx, nil, nil)
}

// GivenFile creates a file in the temp directory with template substitution.
// The path is relative to the temp directory root.
// Content is treated as a Go text/template, with tc.TestData as the data context.
// Use {{.KeyName}} to substitute values from TestData.
func (tc *LSPTestContext) GivenFile(path, content string) *LSPTestContext {
	tc.t.Helper()

	fullPath := filepath.Join(tc.tempDir, path)
	dir := filepath.Dir(fullPath)

	err := os.MkdirAll(dir, 0755)
	if err != nil {
		tc.t.Fatalf("Failed to create directory %s: %v", dir, err)
	}

	tmpl, err := template.New(path).Parse(content)
	if err != nil {
		tc.t.Fatalf("Failed to parse template for %s: %v", path, err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, tc.TestData)
	if err != nil {
		tc.t.Fatalf("Failed to execute template for %s: %v", path, err)
	}

	err = os.WriteFile(fullPath, buf.Bytes(), 0644)
	if err != nil {
		tc.t.Fatalf("Failed to create file %s: %v", path, err)
	}

	return tc
}

// GivenOpenFile opens a document in the LSP server.
// The path is relative like "web.service" and resolves inside the temp directory.
func (tc *LSPTestContext) GivenOpenFile(path string) *LSPTestContext {
	tc.t.Helper()

	docURI := tc.DocURI(path)
	content, err := os.ReadFile(filepath.Join(tc.tempDir, path))
	if err != nil {
		tc.t.Fatalf("Failed to read file for didOpen: %v", err)
	}

	tc.versions[docURI] = 1
	params := protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        docURI,
			LanguageID: "systemd",
			Version:    1,
			Text:       string(content),
		},
	}

	if err := tc.conn.Notify(tc.ctx, "textDocument/didOpen", params); err != nil {
		tc.t.Fatalf("didOpen failed: %v", err)
	}

	return tc
}

// GivenChange replaces the full text of an open document and bumps its version.
func (tc *LSPTestContext) GivenChange(path, text string) *LSPTestContext {
	tc.t.Helper()

	docURI := tc.DocURI(path)
	tc.versions[docURI]++
	params := protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: docURI},
			Version:                tc.versions[docURI],
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: text}},
	}

	if err := tc.conn.Notify(tc.ctx, "textDocument/didChange", params); err != nil {
		tc.t.Fatalf("didChange failed: %v", err)
	}

	return tc
}

// GivenClose closes an open document.
func (tc *LSPTestContext) GivenClose(path string) *LSPTestContext {
	tc.t.Helper()

	docURI := tc.DocURI(path)
	// Diagnostics cleared on close are published without a version.
	tc.versions[docURI] = 0
	params := protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
	}
	if err := tc.conn.Notify(tc.ctx, "textDocument/didClose", params); err != nil {
		tc.t.Fatalf("didClose failed: %v", err)
	}

	return tc
}

// GivenSaveFile triggers a didSave notification for the document.
func (tc *LSPTestContext) GivenSaveFile(path string) *LSPTestContext {
	tc.t.Helper()

	params := protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{
			URI: tc.DocURI(path),
		},
	}

	// Recorded before sending so the re-scan can never finish before it.
	tc.lastSaveTime = time.Now()

	if err := tc.conn.Notify(tc.ctx, "textDocument/didSave", params); err != nil {
		tc.t.Fatalf("didSave failed: %v", err)
	}

	return tc
}

// When performs an LSP operation and calls the handler with the result.
// It wraps the operation in t.Run with a "when " prefix for Gherkin-style output.
// For methods requiring indexed data, it polls internally until ready.
func When[T any](t *testing.T, tc *LSPTestContext, description string, method string, params any, handler func(*testing.T, T)) bool {
	return t.Run("when "+description, func(t *testing.T) {
		if requiresIndexing(method) {
			tc.pollUntilIndexed()
		}

		var result T
		if _, err := tc.conn.Call(tc.ctx, method, params, &result); err != nil {
			t.Fatalf("LSP call %s failed: %v", method, err)
		}

		handler(t, result)
	})
}

// WhenDiagnostics waits until the server has published diagnostics for path
// at the document's current version, then calls the handler with them.
func WhenDiagnostics(t *testing.T, tc *LSPTestContext, description string, path string, handler func(*testing.T, protocol.PublishDiagnosticsParams)) bool {
	return t.Run("when "+description, func(t *testing.T) {
		docURI := tc.DocURI(path)
		version := uint32(max(tc.versions[docURI], 0))
		params, ok := tc.waitForDiagnostics(docURI, version)
		if !ok {
			t.Fatalf("No diagnostics published for %s at version %d", path, version)
		}
		handler(t, params)
	})
}

// Shutdown gracefully shuts down the server and cleans up resources
func (tc *LSPTestContext) Shutdown() {
	tc.cancel()
	tc.conn.Close()
	tc.listener.Close()
	<-tc.done
	os.RemoveAll(tc.tempDir)
}

// requiresIndexing returns true if the method requires data to be indexed
func requiresIndexing(method string) bool {
	switch method {
	case "workspace/symbol":
		return true
	default:
		return false
	}
}

// pollUntilIndexed polls until the scanner's LastScanTime is after our last
// save time.
func (tc *LSPTestContext) pollUntilIndexed() {
	if tc.server == nil {
		return
	}

	// The initial scan happens synchronously during Initialize.
	if tc.lastSaveTime.IsZero() {
		return
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if tc.server.LastScanTime().After(tc.lastSaveTime) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	tc.t.Logf("Warning: Indexing did not complete within 2 seconds after save at %v", tc.lastSaveTime)
}

// waitForDiagnostics polls for the newest publication for docURI until it
// carries the given version.
func (tc *LSPTestContext) waitForDiagnostics(docURI protocol.DocumentURI, version uint32) (protocol.PublishDiagnosticsParams, bool) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		tc.mu.Lock()
		published := tc.diagnostics[docURI]
		var last protocol.PublishDiagnosticsParams
		found := len(published) > 0
		if found {
			last = published[len(published)-1]
		}
		tc.mu.Unlock()

		if found && last.Version == version {
			return last, true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return protocol.PublishDiagnosticsParams{}, false
}

// LogMessages returns the window/logMessage notifications received so far.
func (tc *LSPTestContext) LogMessages() []protocol.LogMessageParams {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return append([]protocol.LogMessageParams(nil), tc.logMessages...)
}

// DocURI returns a DocumentURI for a file relative to the test root
func (tc *LSPTestContext) DocURI(filename string) protocol.DocumentURI {
	return uri.File(filepath.Join(tc.tempDir, filename))
}

// PosAfter returns a Position just after the first occurrence of marker in the specified file
// Useful for placing the cursor right after a prefix like "Type="
func (tc *LSPTestContext) PosAfter(filename, marker string) protocol.Position {
	content, err := os.ReadFile(filepath.Join(tc.tempDir, filename))
	if err != nil {
		tc.t.Fatalf("Failed to read file %s for PosAfter: %v", filename, err)
	}

	lines := strings.Split(string(content), "\n")
	for lineNum, line := range lines {
		if idx := strings.Index(line, marker); idx >= 0 {
			return protocol.Position{
				Line:      uint32(lineNum),
				Character: uint32(idx + len(marker)),
			}
		}
	}
	tc.t.Fatalf("Marker %q not found in file %s", marker, filename)
	return protocol.Position{Line: 0, Character: 0}
}
