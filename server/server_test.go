package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alexispurslane/systemd-lsp/analysis"
	"github.com/alexispurslane/systemd-lsp/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

type fakeClient struct {
	protocol.Client

	mu        sync.Mutex
	published []protocol.PublishDiagnosticsParams
	logs      []protocol.LogMessageParams
}

func (c *fakeClient) PublishDiagnostics(ctx context.Context, params *protocol.PublishDiagnosticsParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, *params)
	return nil
}

func (c *fakeClient) LogMessage(ctx context.Context, params *protocol.LogMessageParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = append(c.logs, *params)
	return nil
}

func (c *fakeClient) last(u protocol.DocumentURI) (protocol.PublishDiagnosticsParams, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.published) - 1; i >= 0; i-- {
		if c.published[i].URI == u {
			return c.published[i], true
		}
	}
	return protocol.PublishDiagnosticsParams{}, false
}

func newTestServer(t *testing.T) (*ServerImpl, *fakeClient) {
	t.Helper()
	cfg := config.Default()
	cfg.LogLevel = "ERROR"
	s := New(cfg)
	client := &fakeClient{}
	s.SetClient(client)
	return s, client
}

const testURI = protocol.DocumentURI("file:///etc/systemd/system/web.service")

func open(t *testing.T, s *ServerImpl, text string) {
	t.Helper()
	require.NoError(t, s.DidOpen(context.Background(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: testURI, LanguageID: "systemd", Version: 1, Text: text},
	}))
}

func change(t *testing.T, s *ServerImpl, version int32, text string) {
	t.Helper()
	require.NoError(t, s.DidChange(context.Background(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
			Version:                version,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: text}},
	}))
}

func completionAt(t *testing.T, s *ServerImpl, line, char uint32) []string {
	t.Helper()
	list, err := s.Completion(context.Background(), &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
			Position:     protocol.Position{Line: line, Character: char},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, list)
	var labels []string
	for _, item := range list.Items {
		labels = append(labels, item.Label)
	}
	return labels
}

func hoverAt(t *testing.T, s *ServerImpl, line uint32) *protocol.Hover {
	t.Helper()
	h, err := s.Hover(context.Background(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
			Position:     protocol.Position{Line: line},
		},
	})
	require.NoError(t, err)
	return h
}

func TestDocumentStore(t *testing.T) {
	store := NewDocumentStore()

	assert.Equal(t, "", store.Text(testURI))

	first := store.Put(testURI, 1, "[Unit]\n")
	second := store.Put(testURI, 2, "[Service]\n")
	assert.Greater(t, second, first)
	assert.Equal(t, "[Service]\n", store.Text(testURI))

	doc, ok := store.Get(testURI)
	require.True(t, ok)
	assert.Equal(t, int32(2), doc.Version)
	assert.Equal(t, 1, store.Len())

	third := store.Remove(testURI)
	assert.Greater(t, third, second)
	_, ok = store.Get(testURI)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestPublisherDropsStaleResults(t *testing.T) {
	var sent []uint32
	p := newDiagnosticsPublisher(func(ctx context.Context, params *protocol.PublishDiagnosticsParams) error {
		sent = append(sent, params.Version)
		return nil
	})
	ctx := context.Background()

	ok, err := p.Publish(ctx, testURI, 2, 5, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Publish(ctx, testURI, 1, 3, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _ = p.Publish(ctx, "file:///other.service", 1, 4, nil)
	assert.True(t, ok, "sequence numbers are tracked per document")

	assert.Equal(t, []uint32{2, 1}, sent)
}

func TestPublisherSendsEmptySliceNotNull(t *testing.T) {
	var got *protocol.PublishDiagnosticsParams
	p := newDiagnosticsPublisher(func(ctx context.Context, params *protocol.PublishDiagnosticsParams) error {
		got = params
		return nil
	})
	_, err := p.Publish(context.Background(), testURI, 0, 1, nil)
	require.NoError(t, err)
	require.NotNil(t, got.Diagnostics)
	assert.Empty(t, got.Diagnostics)
}

func TestDidOpenPublishesDiagnostics(t *testing.T) {
	s, client := newTestServer(t)
	open(t, s, "[Service]\nExecStart=\n")

	pub, ok := client.last(testURI)
	require.True(t, ok)
	assert.Equal(t, uint32(1), pub.Version)
	require.Len(t, pub.Diagnostics, 2)
	assert.Equal(t, "Key 'ExecStart' has an empty value", pub.Diagnostics[0].Message)
	assert.Equal(t, "ExecStart should use absolute paths", pub.Diagnostics[1].Message)
}

func TestDidChangeReplacesText(t *testing.T) {
	s, client := newTestServer(t)
	open(t, s, "[Service]\nType=bogus\n")
	change(t, s, 2, "[Service]\nType=simple\n")

	pub, ok := client.last(testURI)
	require.True(t, ok)
	assert.Equal(t, uint32(2), pub.Version)
	assert.Empty(t, pub.Diagnostics)
	assert.Equal(t, "[Service]\nType=simple\n", s.docs.Text(testURI))
}

func TestDidChangeUsesLastContentChange(t *testing.T) {
	s, _ := newTestServer(t)
	open(t, s, "")
	require.NoError(t, s.DidChange(context.Background(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
			Version:                2,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: "[Unit]\n"}, {Text: "[Timer]\n"}},
	}))
	assert.Equal(t, "[Timer]\n", s.docs.Text(testURI))
}

func TestDidCloseClearsDiagnostics(t *testing.T) {
	s, client := newTestServer(t)
	open(t, s, "[Service]\nType=bogus\n")

	require.NoError(t, s.DidClose(context.Background(), &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	}))

	pub, ok := client.last(testURI)
	require.True(t, ok)
	assert.NotNil(t, pub.Diagnostics)
	assert.Empty(t, pub.Diagnostics)

	// Closed documents behave as empty text.
	assert.Empty(t, completionAt(t, s, 0, 0))
	assert.Nil(t, hoverAt(t, s, 0))
}

func TestCompletionAndHoverThroughServer(t *testing.T) {
	s, _ := newTestServer(t)
	open(t, s, "[Unit]\nDescription=web\n\n[Service]\n")

	assert.Equal(t, []string{
		"Type=", "ExecStart=", "ExecStop=", "Restart=",
		"RestartSec=", "User=", "Group=", "WorkingDirectory=",
	}, completionAt(t, s, 4, 0))

	h := hoverAt(t, s, 1)
	require.NotNil(t, h)
	assert.Equal(t, "Describes the unit's function and purpose.", h.Contents.Value)
}

func TestCompletionUnknownDocument(t *testing.T) {
	s, _ := newTestServer(t)
	assert.Empty(t, completionAt(t, s, 0, 0))
}

func TestConcurrentChangesLastWriteWins(t *testing.T) {
	s, client := newTestServer(t)
	open(t, s, "")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := "[Service]\nType=simple\n"
			if i%2 == 0 {
				text = fmt.Sprintf("[Service]\nType=bad%d\n", i)
			}
			err := s.DidChange(context.Background(), &protocol.DidChangeTextDocumentParams{
				TextDocument: protocol.VersionedTextDocumentIdentifier{
					TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
					Version:                int32(i + 2),
				},
				ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: text}},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	pub, ok := client.last(testURI)
	require.True(t, ok)

	want := analysis.Diagnose(s.docs.Text(testURI))
	assert.Equal(t, len(want), len(pub.Diagnostics))
	if len(want) > 0 {
		assert.Equal(t, want[0].Message, pub.Diagnostics[0].Message)
	}
}

func TestDocumentSymbolsAndFolding(t *testing.T) {
	s, _ := newTestServer(t)
	open(t, s, "[Unit]\nDescription=web\n\n[Service]\nType=simple\nExecStart=/bin/web\n\n[Install]\n")

	result, err := s.DocumentSymbol(context.Background(), &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	require.Len(t, result, 3)

	service := result[1].(protocol.DocumentSymbol)
	assert.Equal(t, "Service", service.Name)
	assert.Equal(t, protocol.SymbolKindNamespace, service.Kind)
	assert.Equal(t, uint32(3), service.Range.Start.Line)
	assert.Equal(t, uint32(5), service.Range.End.Line)
	require.Len(t, service.Children, 2)
	assert.Equal(t, "ExecStart", service.Children[1].Name)
	assert.Equal(t, "/bin/web", service.Children[1].Detail)
	assert.Equal(t, protocol.SymbolKindProperty, service.Children[1].Kind)

	ranges, err := s.FoldingRanges(context.Background(), &protocol.FoldingRangeParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []protocol.FoldingRange{
		{StartLine: 0, EndLine: 1, Kind: protocol.RegionFoldingRange},
		{StartLine: 3, EndLine: 5, Kind: protocol.RegionFoldingRange},
	}, ranges)
}

func TestDocumentSymbolUnknownDocument(t *testing.T) {
	s, _ := newTestServer(t)
	result, err := s.DocumentSymbol(context.Background(), &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestInitializeScansWorkspace(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "web.service"), []byte("[Unit]\nDescription=Web frontend\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# hi"), 0o644))

	s, client := newTestServer(t)
	result, err := s.Initialize(context.Background(), &protocol.InitializeParams{RootURI: uri.File(root)})
	require.NoError(t, err)

	assert.Equal(t, "systemd-language-server", result.ServerInfo.Name)
	assert.Equal(t, "0.1.0", result.ServerInfo.Version)
	assert.Equal(t, []string{"[", "="}, result.Capabilities.CompletionProvider.TriggerCharacters)
	syncOpts, ok := result.Capabilities.TextDocumentSync.(*protocol.TextDocumentSyncOptions)
	require.True(t, ok)
	assert.Equal(t, protocol.TextDocumentSyncKindFull, syncOpts.Change)
	assert.False(t, s.LastScanTime().IsZero())

	require.NoError(t, s.Initialized(context.Background(), &protocol.InitializedParams{}))
	require.Len(t, client.logs, 1)
	assert.Equal(t, protocol.MessageTypeInfo, client.logs[0].Type)

	symbols, err := s.Symbols(context.Background(), &protocol.WorkspaceSymbolParams{Query: "frontend"})
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "web.service", symbols[0].Name)
	assert.Equal(t, protocol.SymbolKindFile, symbols[0].Kind)
	assert.Equal(t, "Web frontend", symbols[0].ContainerName)
	assert.Equal(t, uri.File(filepath.Join(root, "web.service")), symbols[0].Location.URI)
}

func TestInitializeWithoutRoot(t *testing.T) {
	s, _ := newTestServer(t)
	_, err := s.Initialize(context.Background(), &protocol.InitializeParams{})
	require.NoError(t, err)

	assert.True(t, s.LastScanTime().IsZero())
	symbols, err := s.Symbols(context.Background(), &protocol.WorkspaceSymbolParams{})
	require.NoError(t, err)
	assert.Empty(t, symbols)
}

func TestShutdownThenExitWithoutConnection(t *testing.T) {
	s, _ := newTestServer(t)
	require.NoError(t, s.Shutdown(context.Background()))
	assert.NoError(t, s.Exit(context.Background()))
}

func TestWorkspaceRoot(t *testing.T) {
	assert.Equal(t, "/srv/units", workspaceRoot(&protocol.InitializeParams{RootURI: "file:///srv/units"}))
	assert.Equal(t, "/srv/with space", workspaceRoot(&protocol.InitializeParams{RootURI: "file:///srv/with%20space"}))
	assert.Equal(t, "/srv/folder", workspaceRoot(&protocol.InitializeParams{
		WorkspaceFolders: []protocol.WorkspaceFolder{{URI: "file:///srv/folder", Name: "folder"}},
	}))
	assert.Equal(t, "/srv/path", workspaceRoot(&protocol.InitializeParams{RootPath: "/srv/path"}))
	assert.Equal(t, "", workspaceRoot(&protocol.InitializeParams{}))
}

func TestURIToPath(t *testing.T) {
	assert.Equal(t, "/etc/systemd/system/a b.service", uriToPath("file:///etc/systemd/system/a%20b.service"))
	assert.Equal(t, "C:/units/web.service", uriToPath("file:///C:/units/web.service"))
	assert.Equal(t, "untitled:Untitled-1", uriToPath("untitled:Untitled-1"))
}
