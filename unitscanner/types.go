// Package unitscanner indexes the systemd unit files found under a
// workspace root so they can be searched by name and description.
package unitscanner

import (
	"path/filepath"
	"sync"
	"time"
)

// SectionInfo is a section header found in an indexed file.
type SectionInfo struct {
	Name string
	Line int
}

// FileInfo contains the metadata extracted from one unit file.
// Path is relative to the scanner's root.
type FileInfo struct {
	Path        string
	ModTime     time.Time
	Description string
	Sections    []SectionInfo
	// Valid is false when the file failed the well-formedness check.
	Valid bool
}

// Name is the unit name, i.e. the file's base name.
func (f FileInfo) Name() string {
	return filepath.Base(f.Path)
}

// FileAction says what to do with a file after comparing a walk against the index.
type FileAction int

const (
	ShouldParse FileAction = iota
	ShouldDelete
)

// FileMessage pairs a file with the action a scan decided on.
type FileMessage struct {
	Action FileAction
	Info   FileInfo
}

// ProcessedFiles holds the indexed files.
type ProcessedFiles struct {
	mu    sync.RWMutex
	files map[string]FileInfo
}

func newProcessedFiles() *ProcessedFiles {
	return &ProcessedFiles{files: make(map[string]FileInfo)}
}

// Get returns the indexed file at the root-relative path.
func (p *ProcessedFiles) Get(path string) (FileInfo, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	f, ok := p.files[path]
	return f, ok
}

// Len returns the number of indexed files.
func (p *ProcessedFiles) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.files)
}

// Files returns a snapshot of the indexed files in no particular order.
func (p *ProcessedFiles) Files() []FileInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]FileInfo, 0, len(p.files))
	for _, f := range p.files {
		out = append(out, f)
	}
	return out
}

func (p *ProcessedFiles) store(f FileInfo) {
	p.mu.Lock()
	p.files[f.Path] = f
	p.mu.Unlock()
}

func (p *ProcessedFiles) remove(path string) {
	p.mu.Lock()
	delete(p.files, path)
	p.mu.Unlock()
}
