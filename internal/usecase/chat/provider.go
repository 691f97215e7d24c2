package chat

import (
	"context"

	"ragchat/pkg/respcache"
)

// Message roles accepted on the wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn of the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Source describes a knowledge-base chunk that grounded the reply.
type Source struct {
	Title      string  `json:"title"`
	Similarity float32 `json:"similarity"`
}

// Chunk is a retrieved piece of the knowledge base.
type Chunk struct {
	Title      string
	Content    string
	Similarity float32
}

// Generator produces model completions for a prepared conversation.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
	// GenerateStream calls onDelta for every content fragment as it
	// arrives. onDelta returning an error aborts the stream.
	GenerateStream(ctx context.Context, messages []Message, onDelta func(delta string) error) error
	// Params reports the generation parameters the provider is
	// configured with. They take part in cache fingerprinting.
	Params() respcache.GenerationParams
}

// Retriever finds knowledge-base chunks relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]Chunk, error)
}
