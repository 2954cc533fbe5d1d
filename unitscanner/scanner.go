package unitscanner

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Scan walks the directory tree from root and collects every file whose
// extension is in exts. Returns FileInfo with relative paths and
// modification times only.
func Scan(root string, exts []string) ([]FileInfo, error) {
	slog.Debug("Scanning directory for unit files", "root", root)
	var files []FileInfo

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			// Continue scanning on individual file errors
			return nil
		}

		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !slices.Contains(exts, filepath.Ext(path)) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			slog.Error("Error getting file info", "path", path, "error", err)
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			relPath = path
		}

		slog.Debug("Found unit file", "path", relPath, "mod_time", info.ModTime())
		files = append(files, FileInfo{
			Path:    relPath,
			ModTime: info.ModTime(),
		})
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}
