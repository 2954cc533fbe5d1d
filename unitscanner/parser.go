package unitscanner

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alexispurslane/systemd-lsp/unitfile"
)

// ParseFile reads a unit file relative to root and extracts its metadata.
// Malformed files are still indexed by their headers; only Description
// needs a successful parse.
func ParseFile(filePath, root string) (*FileInfo, error) {
	absPath := filepath.Join(root, filePath)
	slog.Debug("Parsing unit file", "path", filePath)

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	text := string(data)
	result := &FileInfo{
		Path:    filePath,
		ModTime: info.ModTime(),
	}

	for _, s := range unitfile.Outline(text) {
		result.Sections = append(result.Sections, SectionInfo{Name: s.Name, Line: s.Line})
	}

	unit, err := unitfile.Parse(text)
	if err != nil {
		slog.Debug("Unit file is malformed", "path", filePath, "error", err)
	} else {
		result.Valid = true
		result.Description, _ = unit.Get("Unit", "Description")
	}

	slog.Debug("Extracted unit metadata",
		"path", filePath,
		"description", result.Description,
		"sections", len(result.Sections))

	return result, nil
}
