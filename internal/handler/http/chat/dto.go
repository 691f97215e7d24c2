package chat

import (
	"errors"

	chatUC "ragchat/internal/usecase/chat"
)

// Request is the POST /chat payload.
type Request struct {
	Messages []Message `json:"messages"`
	// Stream switches the response to server-sent events. Streamed
	// replies are not cached.
	Stream bool `json:"stream,omitempty"`
	// UseCache controls the response cache for this request. Absent
	// means true.
	UseCache *bool `json:"use_cache,omitempty"`
}

func (r *Request) skipCache() bool {
	return r.UseCache != nil && !*r.UseCache
}

// Message is one conversation turn on the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// maxMessages bounds the conversation length a single request may carry.
const maxMessages = 100

func (r *Request) toUsecase() ([]chatUC.Message, error) {
	if len(r.Messages) > maxMessages {
		return nil, errors.New("conversation must be at most 100 messages")
	}
	msgs := make([]chatUC.Message, len(r.Messages))
	for i, m := range r.Messages {
		msgs[i] = chatUC.Message{Role: m.Role, Content: m.Content}
	}
	return msgs, nil
}
