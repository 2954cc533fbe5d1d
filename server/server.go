// Package server provides the LSP server implementation for systemd unit files.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/alexispurslane/systemd-lsp/config"
	"github.com/alexispurslane/systemd-lsp/lspstream"
	"github.com/alexispurslane/systemd-lsp/unitscanner"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version is reported to clients in the initialize result.
const Version = "0.1.0"

// ServerImpl serves one client connection. Create one per connection with New.
type ServerImpl struct {
	cfg    config.Config
	logger *zap.Logger

	docs      *DocumentStore
	publisher *diagnosticsPublisher

	mu       sync.RWMutex
	client   protocol.Client
	conn     jsonrpc2.Conn
	scanner  *unitscanner.UnitScanner
	shutdown bool
}

// New creates a server with the given configuration.
func New(cfg config.Config) *ServerImpl {
	s := &ServerImpl{
		cfg:    cfg,
		logger: newZapLogger(cfg),
		docs:   NewDocumentStore(),
	}
	s.publisher = newDiagnosticsPublisher(s.publishToClient)
	return s
}

// newZapLogger builds the logger handed to the protocol layer. It writes to
// stderr at the configured level so it never mixes with stdio traffic.
func newZapLogger(cfg config.Config) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zapLevel(cfg.Level()))
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	logger, err := zcfg.Build()
	if err != nil {
		slog.Warn("Falling back to no-op protocol logger", "error", err)
		return zap.NewNop()
	}
	return logger.Named("protocol")
}

func zapLevel(level slog.Level) zapcore.Level {
	switch {
	case level <= slog.LevelDebug:
		return zapcore.DebugLevel
	case level <= slog.LevelInfo:
		return zapcore.InfoLevel
	case level <= slog.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// SetClient sets the handle used for server-to-client notifications.
func (s *ServerImpl) SetClient(client protocol.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = client
}

func (s *ServerImpl) currentClient() protocol.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// Serve binds the server to stream and starts handling messages. The returned
// connection is done when the client goes away or sends exit.
func (s *ServerImpl) Serve(ctx context.Context, stream jsonrpc2.Stream) jsonrpc2.Conn {
	ctx = protocol.WithLogger(ctx, s.logger)
	_, conn, client := protocol.NewServer(ctx, s, stream, s.logger)

	s.mu.Lock()
	s.client = client
	s.conn = conn
	s.mu.Unlock()

	return conn
}

func (s *ServerImpl) streamOptions() lspstream.Options {
	return lspstream.Options{
		BufferSize:     s.cfg.Stream.BufferSize,
		MaxMessageSize: s.cfg.Stream.MaxMessageSize,
	}
}

// RunStdio serves a single client over stdin/stdout until it disconnects.
func RunStdio(ctx context.Context, cfg config.Config) error {
	s := New(cfg)
	defer s.logger.Sync() //nolint:errcheck

	rwc := lspstream.NewReadWriteCloser(os.Stdin, os.Stdout, os.Stdin)
	conn := s.Serve(ctx, lspstream.New(rwc, s.streamOptions()))

	select {
	case <-conn.Done():
		return conn.Err()
	case <-ctx.Done():
		conn.Close()
		return ctx.Err()
	}
}

// RunTCP listens on addr and serves every accepted connection with its own
// server instance until ctx is cancelled.
func RunTCP(ctx context.Context, cfg config.Config, addr string) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	slog.Info("Listening", "address", listener.Addr().String())

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		c, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}

		go func(c net.Conn) {
			defer c.Close()
			slog.Info("Client connected", "remote", c.RemoteAddr().String())

			s := New(cfg)
			defer s.logger.Sync() //nolint:errcheck
			conn := s.Serve(ctx, lspstream.New(c, s.streamOptions()))
			<-conn.Done()

			slog.Info("Client disconnected", "remote", c.RemoteAddr().String())
		}(c)
	}
}

// LastScanTime reports when the workspace index was last refreshed, or the
// zero time when no workspace is being indexed.
func (s *ServerImpl) LastScanTime() time.Time {
	s.mu.RLock()
	scanner := s.scanner
	s.mu.RUnlock()
	if scanner == nil {
		return time.Time{}
	}
	return scanner.LastScanTime()
}

// Initialize implements initialize.
func (s *ServerImpl) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	root := workspaceRoot(params)
	slog.Info("Initializing", "root", root, "process_id", params.ProcessID)

	if root != "" && s.cfg.Workspace.Scan {
		scanner := unitscanner.NewUnitScanner(root, s.cfg.Workspace.Extensions)
		slog.Info("Starting unit file scan", "root", root)
		if err := scanner.Process(); err != nil {
			slog.Error("Failed to scan unit files", "root", root, "error", err)
		} else {
			slog.Info("Completed unit file scan", "files_scanned", scanner.ProcessedFiles.Len())
		}

		s.mu.Lock()
		s.scanner = scanner
		s.mu.Unlock()
	}

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save:      &protocol.SaveOptions{},
			},
			CompletionProvider: &protocol.CompletionOptions{
				ResolveProvider:   false,
				TriggerCharacters: []string{"[", "="},
			},
			HoverProvider:           true,
			DocumentSymbolProvider:  true,
			FoldingRangeProvider:    true,
			WorkspaceSymbolProvider: s.cfg.Workspace.Scan,
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    s.cfg.Server.Name,
			Version: Version,
		},
	}, nil
}

// Initialized implements initialized.
func (s *ServerImpl) Initialized(ctx context.Context, params *protocol.InitializedParams) error {
	client := s.currentClient()
	if client == nil {
		return nil
	}
	err := client.LogMessage(ctx, &protocol.LogMessageParams{
		Type:    protocol.MessageTypeInfo,
		Message: "Systemd language server initialized",
	})
	if err != nil {
		slog.Debug("Failed to send log message", "error", err)
	}
	return nil
}

// Shutdown implements shutdown.
func (s *ServerImpl) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()
	slog.Info("Shutdown requested")
	return nil
}

// Exit implements exit.
func (s *ServerImpl) Exit(ctx context.Context) error {
	s.mu.RLock()
	conn, clean := s.conn, s.shutdown
	s.mu.RUnlock()

	if !clean {
		slog.Warn("Exit received before shutdown")
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// SetTrace implements $/setTrace.
func (s *ServerImpl) SetTrace(ctx context.Context, params *protocol.SetTraceParams) error {
	slog.Debug("Trace level changed", "value", params.Value)
	return nil
}

// workspaceRoot picks the directory to index from the initialize params.
func workspaceRoot(params *protocol.InitializeParams) string {
	switch {
	case params.RootURI != "":
		return uriToPath(string(params.RootURI))
	case len(params.WorkspaceFolders) > 0:
		return uriToPath(params.WorkspaceFolders[0].URI)
	default:
		return params.RootPath
	}
}
