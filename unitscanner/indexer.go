package unitscanner

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// UnitScanner keeps an index of the unit files under Root up to date.
type UnitScanner struct {
	Root           string
	Extensions     []string
	ProcessedFiles *ProcessedFiles

	mu           sync.Mutex
	lastScanTime time.Time
}

func NewUnitScanner(root string, exts []string) *UnitScanner {
	return &UnitScanner{
		Root:           root,
		Extensions:     exts,
		ProcessedFiles: newProcessedFiles(),
	}
}

// LastScanTime is when Process last finished.
func (s *UnitScanner) LastScanTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastScanTime
}

// Process performs an incremental scan: new and modified files are parsed
// concurrently, files that disappeared are dropped.
func (s *UnitScanner) Process() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages, err := s.scanUnlocked()
	if err != nil || len(messages) == 0 {
		slog.Debug("No unit file changes detected")
		s.lastScanTime = time.Now()
		return err
	}

	var wg sync.WaitGroup
	for _, msg := range messages {
		if msg.Action == ShouldDelete {
			s.ProcessedFiles.remove(msg.Info.Path)
			continue
		}

		wg.Add(1)
		go func(m FileMessage) {
			defer wg.Done()

			parsed, err := ParseFile(m.Info.Path, s.Root)
			if err != nil {
				slog.Error("Failed to parse unit file", "path", m.Info.Path, "error", err)
				return
			}
			s.ProcessedFiles.store(*parsed)
		}(msg)
	}
	wg.Wait()
	s.lastScanTime = time.Now()

	slog.Info("Incremental scan complete",
		"messages_processed", len(messages),
		"files_total", s.ProcessedFiles.Len())

	return nil
}

// scanUnlocked walks Root and diffs the result against the index.
func (s *UnitScanner) scanUnlocked() ([]FileMessage, error) {
	found, err := Scan(s.Root, s.Extensions)
	if err != nil {
		return nil, err
	}

	var messages []FileMessage
	seen := make(map[string]struct{}, len(found))
	for _, f := range found {
		seen[f.Path] = struct{}{}
		indexed, ok := s.ProcessedFiles.Get(f.Path)
		if !ok || !indexed.ModTime.Equal(f.ModTime) {
			messages = append(messages, FileMessage{Action: ShouldParse, Info: f})
		}
	}

	for _, f := range s.ProcessedFiles.Files() {
		if _, ok := seen[f.Path]; !ok {
			messages = append(messages, FileMessage{Action: ShouldDelete, Info: f})
		}
	}

	return messages, nil
}

// Search returns the indexed files whose unit name or description contains
// query, case-insensitively, ordered by path. An empty query matches all.
func (s *UnitScanner) Search(query string) []FileInfo {
	query = strings.ToLower(query)

	var matches []FileInfo
	for _, f := range s.ProcessedFiles.Files() {
		if query == "" ||
			strings.Contains(strings.ToLower(f.Name()), query) ||
			strings.Contains(strings.ToLower(f.Description), query) {
			matches = append(matches, f)
		}
	}

	slices.SortFunc(matches, func(a, b FileInfo) int {
		return strings.Compare(a.Path, b.Path)
	})
	return matches
}
