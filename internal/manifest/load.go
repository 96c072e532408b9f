package manifest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Extensions are the file extensions recognized when loading a directory.
var Extensions = []string{".yaml", ".yml", ".json"}

// IsManifestFile reports whether path has a manifest extension.
func IsManifestFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Files returns the manifest files at path: the file itself, or every
// manifest file below a directory in lexical order.
func Files(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat manifest: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if IsManifestFile(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, &ManifestError{File: path, Message: "no manifest files found"}
	}
	sort.Strings(files)
	return files, nil
}

// Load reads the manifest file or directory at path, merges the files and
// drops duplicate entities. Files are parsed concurrently; the result does
// not depend on scheduling.
func Load(ctx context.Context, path string, logger *slog.Logger) (*Manifest, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	files, err := Files(path)
	if err != nil {
		return nil, err
	}

	parsed := make([]*Manifest, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read manifest: %w", err)
			}
			m, err := Parse(file, data)
			if err != nil {
				return err
			}
			parsed[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m, err := Merge(parsed...)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	before := len(m.Entities)
	m.Dedup(logger)
	logger.Debug("manifest loaded",
		"files", len(files),
		"entities", len(m.Entities),
		"duplicates", before-len(m.Entities))
	return m, nil
}
