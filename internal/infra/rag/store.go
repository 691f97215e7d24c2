package rag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	chromem "github.com/philippgille/chromem-go"
)

const defaultCollection = "knowledge_base"

// StoreConfig configures the embedded vector store.
type StoreConfig struct {
	// PersistDir enables gob persistence when non-empty. The directory
	// is created if missing. Empty keeps everything in memory.
	PersistDir string
	Compress   bool
	Collection string
	// Embed computes the embedding for a text. Used when indexing and
	// when embedding queries.
	Embed chromem.EmbeddingFunc
}

// Store is an embedded vector index over knowledge-base chunks. It
// wraps chromem-go, so it needs no external services.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewStore opens or creates the vector store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Embed == nil {
		return nil, fmt.Errorf("embedding function is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = defaultCollection
	}

	var db *chromem.DB
	var err error
	if cfg.PersistDir != "" {
		if err := os.MkdirAll(cfg.PersistDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create persist directory: %w", err)
		}
		db, err = chromem.NewPersistentDB(cfg.PersistDir, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector database: %w", err)
		}
		slog.Info("Opened persistent vector database", slog.String("dir", cfg.PersistDir))
	} else {
		db = chromem.NewDB()
		slog.Info("Created in-memory vector database")
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, cfg.Embed)
	if err != nil {
		return nil, fmt.Errorf("failed to get/create collection %q: %w", cfg.Collection, err)
	}

	return &Store{db: db, collection: collection}, nil
}

// IndexedChunk is one unit of indexed content.
type IndexedChunk struct {
	ID      string
	Title   string
	Path    string
	Content string
}

// Add embeds and stores chunks. Chunks with an existing ID are
// overwritten.
func (s *Store) Add(ctx context.Context, chunks []IndexedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:      c.ID,
			Content: c.Content,
			Metadata: map[string]string{
				"title": c.Title,
				"path":  c.Path,
			},
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to index chunks: %w", err)
	}
	return nil
}

// Result is a query hit with its cosine similarity.
type Result struct {
	Title      string
	Content    string
	Similarity float32
}

// Query embeds the query text and returns up to topK nearest chunks.
// An empty index returns no results instead of an error.
func (s *Store) Query(ctx context.Context, query string, topK int) ([]Result, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	hits, err := s.collection.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{
			Title:      h.Metadata["title"],
			Content:    h.Content,
			Similarity: h.Similarity,
		})
	}
	return results, nil
}

// Count reports the number of indexed chunks.
func (s *Store) Count() int {
	return s.collection.Count()
}
