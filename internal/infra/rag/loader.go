package rag

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Document is a knowledge-base file loaded from disk.
type Document struct {
	Title   string
	Path    string
	Content string
}

// LoadDocuments reads every .md and .txt file under dir, recursively.
// The title is the file name without its extension. Empty files are
// skipped with a warning.
func LoadDocuments(dir string) ([]Document, error) {
	var docs []Document

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".txt" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		content := strings.TrimSpace(string(data))
		if content == "" {
			slog.Warn("Skipping empty knowledge-base file", slog.String("path", path))
			return nil
		}

		docs = append(docs, Document{
			Title:   strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())),
			Path:    path,
			Content: content,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load documents from %s: %w", dir, err)
	}

	slog.Info("Loaded knowledge-base documents",
		slog.String("dir", dir),
		slog.Int("count", len(docs)))

	return docs, nil
}
