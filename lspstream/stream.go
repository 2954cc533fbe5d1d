// Package lspstream frames jsonrpc2 messages with Content-Length headers.
package lspstream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"go.lsp.dev/jsonrpc2"
)

const (
	// DefaultBufferSize is larger than bufio's 4KB so that whole unit files
	// usually arrive in one read.
	DefaultBufferSize = 64 * 1024
	// DefaultMaxMessageSize bounds the allocation for a single message body.
	DefaultMaxMessageSize = 32 * 1024 * 1024
)

// ErrMessageTooLarge is returned by Read when a header declares a body larger
// than the configured maximum.
var ErrMessageTooLarge = errors.New("message exceeds maximum size")

// ReadWriteCloser wraps separate read and write closers into a single io.ReadWriteCloser
type ReadWriteCloser struct {
	Reader io.Reader
	Writer io.Writer
	Closer io.Closer
}

// NewReadWriteCloser creates a new ReadWriteCloser
func NewReadWriteCloser(r io.Reader, w io.Writer, c io.Closer) *ReadWriteCloser {
	return &ReadWriteCloser{Reader: r, Writer: w, Closer: c}
}

func (rwc *ReadWriteCloser) Read(p []byte) (n int, err error) {
	return rwc.Reader.Read(p)
}

func (rwc *ReadWriteCloser) Write(p []byte) (n int, err error) {
	return rwc.Writer.Write(p)
}

func (rwc *ReadWriteCloser) Close() error {
	if rwc.Closer != nil {
		return rwc.Closer.Close()
	}
	return nil
}

// Options tune a Stream. Zero fields take the defaults.
type Options struct {
	BufferSize     int
	MaxMessageSize int64
}

// Stream is a jsonrpc2.Stream over a byte connection.
type Stream struct {
	conn    io.ReadWriteCloser
	in      *bufio.Reader
	maxSize int64

	// writeMu keeps header and body of concurrent writes together.
	writeMu sync.Mutex
}

// New creates a stream over conn.
func New(conn io.ReadWriteCloser, opts Options) *Stream {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = DefaultMaxMessageSize
	}
	return &Stream{
		conn:    conn,
		in:      bufio.NewReaderSize(conn, opts.BufferSize),
		maxSize: opts.MaxMessageSize,
	}
}

// NewLargeBufferStream creates a stream with the default options.
func NewLargeBufferStream(conn io.ReadWriteCloser) jsonrpc2.Stream {
	return New(conn, Options{})
}

func (s *Stream) Read(ctx context.Context) (jsonrpc2.Message, int64, error) {
	var total int64
	var length int64
	for {
		line, err := s.in.ReadString('\n')
		total += int64(len(line))
		if err != nil {
			return nil, total, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		length, err = strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return nil, total, fmt.Errorf("failed parsing Content-Length: %w", err)
		}
		if length <= 0 {
			return nil, total, fmt.Errorf("invalid Content-Length: %v", length)
		}
	}

	if length == 0 {
		return nil, total, fmt.Errorf("missing Content-Length header")
	}
	if length > s.maxSize {
		return nil, total, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, length, s.maxSize)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(s.in, data); err != nil {
		return nil, total, err
	}
	total += length

	msg, err := jsonrpc2.DecodeMessage(data)
	return msg, total, err
}

func (s *Stream) Write(ctx context.Context, msg jsonrpc2.Message) (int64, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("marshaling message: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data))
	if _, err := io.WriteString(s.conn, header); err != nil {
		return 0, err
	}
	n, err := s.conn.Write(data)
	return int64(len(header)) + int64(n), err
}

func (s *Stream) Close() error {
	return s.conn.Close()
}
