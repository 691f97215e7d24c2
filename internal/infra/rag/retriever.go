package rag

import (
	"context"
	"fmt"
	"log/slog"

	"ragchat/internal/usecase/chat"
)

// Retriever adapts the vector store to the chat service, filtering out
// hits below a similarity floor.
type Retriever struct {
	store         *Store
	minSimilarity float32
}

// NewRetriever wraps a store. minSimilarity of zero keeps every hit.
func NewRetriever(store *Store, minSimilarity float32) (*Retriever, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if minSimilarity < 0 || minSimilarity > 1 {
		return nil, fmt.Errorf("min similarity must be in [0, 1], got %v", minSimilarity)
	}
	return &Retriever{store: store, minSimilarity: minSimilarity}, nil
}

// Retrieve implements chat.Retriever.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]chat.Chunk, error) {
	if query == "" {
		return nil, nil
	}

	hits, err := r.store.Query(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	chunks := make([]chat.Chunk, 0, len(hits))
	for _, h := range hits {
		if h.Similarity < r.minSimilarity {
			continue
		}
		chunks = append(chunks, chat.Chunk{
			Title:      h.Title,
			Content:    h.Content,
			Similarity: h.Similarity,
		})
	}

	slog.Debug("Retrieved knowledge-base context",
		slog.String("query", query),
		slog.Int("hits", len(hits)),
		slog.Int("kept", len(chunks)))

	return chunks, nil
}
