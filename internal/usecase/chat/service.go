package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"ragchat/internal/handler/http/requestid"
	"ragchat/pkg/respcache"
)

// maxContentLength bounds a single message body to keep prompts and
// cache payloads within sane limits.
const maxContentLength = 32 * 1024

// Response is the result of a completed chat exchange.
type Response struct {
	Reply            string   `json:"reply"`
	Sources          []Source `json:"sources,omitempty"`
	Cached           bool     `json:"cached"`
	ProcessingTimeMS int64    `json:"processing_time_ms"`
}

// ServiceConfig wires the collaborators of the chat service.
type ServiceConfig struct {
	Generator    Generator
	Retriever    Retriever        // optional, nil disables retrieval
	Cache        *respcache.Cache // optional, nil disables response caching
	SystemPrompt string
	TopK         int
	Now          func() time.Time // defaults to time.Now
}

// Service orchestrates a chat turn: validation, cache lookup, context
// retrieval, completion and cache store.
type Service struct {
	generator    Generator
	retriever    Retriever
	cache        *respcache.Cache
	systemPrompt string
	topK         int
	now          func() time.Time
}

// NewService creates a chat service. The generator is required.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Generator == nil {
		return nil, fmt.Errorf("chat service: generator is required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		generator:    cfg.Generator,
		retriever:    cfg.Retriever,
		cache:        cfg.Cache,
		systemPrompt: cfg.SystemPrompt,
		topK:         cfg.TopK,
		now:          cfg.Now,
	}, nil
}

// Options tunes a single chat turn.
type Options struct {
	// SkipCache bypasses the response cache for this turn, both the
	// lookup and the store.
	SkipCache bool
}

// Chat answers a conversation and returns the reply together with the
// knowledge-base sources that grounded it. Identical conversations are
// served from the response cache until the entry expires.
//
// Returns:
//   - *Response: Reply with sources, cache flag and processing time
//   - error: Validation errors (ErrNoMessages and friends) or provider errors
func (s *Service) Chat(ctx context.Context, messages []Message) (*Response, error) {
	return s.ChatWithOptions(ctx, messages, Options{})
}

// ChatWithOptions is Chat with per-turn tuning.
func (s *Service) ChatWithOptions(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	requestID := s.getOrCreateRequestID(ctx)
	start := s.now()

	if err := validateMessages(messages); err != nil {
		slog.Warn("Rejected chat request",
			slog.String("request_id", requestID),
			slog.Any("error", err))
		return nil, err
	}

	fp := s.fingerprint(messages)

	useCache := s.cache != nil && !opts.SkipCache

	if useCache {
		if payload, ok := s.cache.Lookup(fp, s.now()); ok {
			var resp Response
			if err := json.Unmarshal(payload, &resp); err == nil {
				resp.Cached = true
				resp.ProcessingTimeMS = s.now().Sub(start).Milliseconds()
				slog.Info("Served chat response from cache",
					slog.String("request_id", requestID),
					slog.String("fingerprint", string(fp)))
				return &resp, nil
			}
			// A payload we cannot decode is useless; fall through and
			// regenerate.
			slog.Error("Dropping undecodable cache entry",
				slog.String("request_id", requestID),
				slog.String("fingerprint", string(fp)))
		}
	}

	prompt, sources, err := s.buildPrompt(ctx, requestID, messages)
	if err != nil {
		return nil, err
	}

	slog.Info("Generating chat completion",
		slog.String("request_id", requestID),
		slog.Int("messages", len(prompt)),
		slog.Int("sources", len(sources)))

	reply, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		slog.Error("Chat completion failed",
			slog.String("request_id", requestID),
			slog.Any("error", err))
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	resp := &Response{
		Reply:   reply,
		Sources: sources,
	}

	if useCache {
		// The stored payload carries Cached=false and zero processing
		// time; hits overwrite both fields before returning.
		if payload, err := json.Marshal(resp); err == nil {
			s.cache.Store(fp, payload, s.now(), s.cache.TTL())
		}
	}

	resp.ProcessingTimeMS = s.now().Sub(start).Milliseconds()

	slog.Info("Chat completed",
		slog.String("request_id", requestID),
		slog.Int("reply_length", len(reply)),
		slog.Int64("processing_ms", resp.ProcessingTimeMS))

	return resp, nil
}

// ChatStream answers a conversation incrementally, invoking onDelta for
// every content fragment. Streamed responses bypass the cache in both
// directions.
func (s *Service) ChatStream(ctx context.Context, messages []Message, onDelta func(delta string) error) error {
	requestID := s.getOrCreateRequestID(ctx)

	if err := validateMessages(messages); err != nil {
		slog.Warn("Rejected streaming chat request",
			slog.String("request_id", requestID),
			slog.Any("error", err))
		return err
	}

	prompt, sources, err := s.buildPrompt(ctx, requestID, messages)
	if err != nil {
		return err
	}

	slog.Info("Streaming chat completion",
		slog.String("request_id", requestID),
		slog.Int("messages", len(prompt)),
		slog.Int("sources", len(sources)))

	if err := s.generator.GenerateStream(ctx, prompt, onDelta); err != nil {
		slog.Error("Streaming chat completion failed",
			slog.String("request_id", requestID),
			slog.Any("error", err))
		return fmt.Errorf("chat stream failed: %w", err)
	}
	return nil
}

// buildPrompt prepends the system prompt and, when a retriever is
// configured, injects retrieved knowledge-base chunks ahead of the
// conversation. Retrieval failures degrade to an uncontextualized
// prompt instead of failing the request.
func (s *Service) buildPrompt(ctx context.Context, requestID string, messages []Message) ([]Message, []Source, error) {
	var sources []Source
	var contextBlock string

	if s.retriever != nil {
		query := lastUserMessage(messages)
		chunks, err := s.retriever.Retrieve(ctx, query, s.topK)
		if err != nil {
			slog.Error("Knowledge-base retrieval failed, continuing without context",
				slog.String("request_id", requestID),
				slog.Any("error", err))
		} else if len(chunks) > 0 {
			var b strings.Builder
			b.WriteString("Use the following knowledge base excerpts to answer:\n\n")
			for _, c := range chunks {
				b.WriteString("### ")
				b.WriteString(c.Title)
				b.WriteString("\n")
				b.WriteString(c.Content)
				b.WriteString("\n\n")
				sources = append(sources, Source{Title: c.Title, Similarity: c.Similarity})
			}
			contextBlock = b.String()
		}
	}

	prompt := make([]Message, 0, len(messages)+2)
	if s.systemPrompt != "" {
		prompt = append(prompt, Message{Role: RoleSystem, Content: s.systemPrompt})
	}
	if contextBlock != "" {
		prompt = append(prompt, Message{Role: RoleSystem, Content: contextBlock})
	}
	prompt = append(prompt, messages...)

	return prompt, sources, nil
}

// fingerprint derives the cache key from the caller-supplied messages
// and the generator's parameters. The injected system prompt and
// retrieved context are deliberately excluded so a prompt change
// invalidates nothing until entries expire naturally.
func (s *Service) fingerprint(messages []Message) respcache.Fingerprint {
	msgs := make([]respcache.Message, len(messages))
	for i, m := range messages {
		msgs[i] = respcache.Message{Role: m.Role, Content: m.Content}
	}
	return respcache.FingerprintRequest(msgs, s.generator.Params())
}

func validateMessages(messages []Message) error {
	if len(messages) == 0 {
		return ErrNoMessages
	}
	hasUser := false
	for i, m := range messages {
		switch m.Role {
		case RoleSystem, RoleAssistant:
		case RoleUser:
			hasUser = true
		default:
			return fmt.Errorf("%w: %q at index %d", ErrUnknownRole, m.Role, i)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("%w: index %d", ErrEmptyContent, i)
		}
		if len(m.Content) > maxContentLength {
			return fmt.Errorf("%w: index %d", ErrContentTooLong, i)
		}
	}
	if !hasUser {
		return ErrNoUserMessage
	}
	return nil
}

// lastUserMessage returns the content of the most recent user turn. It
// is the retrieval query for the whole conversation.
func lastUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

func (s *Service) getOrCreateRequestID(ctx context.Context) string {
	if id := requestid.FromContext(ctx); id != "" {
		return id
	}
	return uuid.New().String()
}
