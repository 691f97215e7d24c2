package rag

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Splitter cuts text into overlapping token windows so each chunk fits
// an embedding call and neighbouring chunks share context.
type Splitter struct {
	encoding    *tiktoken.Tiktoken
	chunkTokens int
	overlap     int
}

// NewSplitter creates a splitter that counts tokens with the encoding
// of the given model, falling back to cl100k_base for unknown models.
func NewSplitter(model string, chunkTokens, overlap int) (*Splitter, error) {
	if chunkTokens <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkTokens)
	}
	if overlap < 0 || overlap >= chunkTokens {
		return nil, fmt.Errorf("overlap must be in [0, chunk size), got %d", overlap)
	}

	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("failed to get encoding: %w", err)
		}
	}

	return &Splitter{
		encoding:    encoding,
		chunkTokens: chunkTokens,
		overlap:     overlap,
	}, nil
}

// Split returns the chunks of text, each at most the configured token
// count, with consecutive chunks overlapping by the configured amount.
// Whitespace-only chunks are dropped.
func (s *Splitter) Split(text string) []string {
	ids := s.encoding.Encode(text, nil, nil)
	if len(ids) == 0 {
		return nil
	}

	step := s.chunkTokens - s.overlap
	var chunks []string
	for start := 0; start < len(ids); start += step {
		end := start + s.chunkTokens
		if end > len(ids) {
			end = len(ids)
		}
		chunk := strings.TrimSpace(s.encoding.Decode(ids[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(ids) {
			break
		}
	}
	return chunks
}

// CountTokens returns the token count of text under the splitter's
// encoding.
func (s *Splitter) CountTokens(text string) int {
	return len(s.encoding.Encode(text, nil, nil))
}
