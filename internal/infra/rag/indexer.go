package rag

import (
	"context"
	"fmt"
	"log/slog"
)

// Index loads every document under dir, splits it into token windows
// and stores the chunks. It returns the number of chunks indexed.
// Chunk IDs are stable (path plus position), so re-indexing the same
// tree overwrites in place.
func Index(ctx context.Context, dir string, splitter *Splitter, store *Store) (int, error) {
	docs, err := LoadDocuments(dir)
	if err != nil {
		return 0, err
	}

	var chunks []IndexedChunk
	for _, doc := range docs {
		parts := splitter.Split(doc.Content)
		for i, part := range parts {
			chunks = append(chunks, IndexedChunk{
				ID:      fmt.Sprintf("%s#%d", doc.Path, i),
				Title:   doc.Title,
				Path:    doc.Path,
				Content: part,
			})
		}
	}

	if err := store.Add(ctx, chunks); err != nil {
		return 0, err
	}

	slog.Info("Indexed knowledge base",
		slog.String("dir", dir),
		slog.Int("documents", len(docs)),
		slog.Int("chunks", len(chunks)))

	return len(chunks), nil
}
