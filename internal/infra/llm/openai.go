package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"ragchat/internal/resilience/circuitbreaker"
	"ragchat/internal/resilience/retry"
	"ragchat/internal/usecase/chat"
	"ragchat/pkg/respcache"
)

// Config holds the OpenAI client settings.
type Config struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float32
	MaxTokens      int
	// Timeout bounds a single completion call including retries of it.
	Timeout time.Duration
	// RequestsPerSecond paces outgoing API calls. Zero disables pacing.
	RequestsPerSecond float64
}

// Validate returns an error if the configuration cannot produce a
// working client.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api key cannot be empty")
	}
	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be in [0, 2], got %v", c.Temperature)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// Client talks to the OpenAI API with circuit breaking, retry and
// client-side pacing. It implements chat.Generator and serves as the
// embedder for the knowledge-base index.
type Client struct {
	api            *openai.Client
	cfg            Config
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	limiter        *rate.Limiter
}

// NewClient creates an OpenAI-backed client.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid openai configuration: %w", err)
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = string(openai.SmallEmbedding3)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	slog.Info("Initialized OpenAI client",
		slog.String("model", cfg.Model),
		slog.String("embedding_model", cfg.EmbeddingModel),
		slog.Float64("requests_per_second", cfg.RequestsPerSecond))

	return &Client{
		api:            openai.NewClient(cfg.APIKey),
		cfg:            cfg,
		circuitBreaker: circuitbreaker.New(circuitbreaker.OpenAIConfig()),
		retryConfig:    retry.OpenAIConfig(),
		limiter:        limiter,
	}, nil
}

// BreakerOpen reports whether the circuit breaker currently rejects
// calls. The health endpoint surfaces it.
func (c *Client) BreakerOpen() bool {
	return c.circuitBreaker.IsOpen()
}

// Params reports the generation parameters for cache fingerprinting.
func (c *Client) Params() respcache.GenerationParams {
	return respcache.GenerationParams{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
}

// Generate produces a single completion for the conversation.
func (c *Client) Generate(ctx context.Context, messages []chat.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var result string

	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		cbResult, err := c.circuitBreaker.Execute(func() (any, error) {
			return c.doComplete(ctx, messages)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("openai circuit breaker open, request rejected",
					slog.String("breaker", c.circuitBreaker.Name()))
				return fmt.Errorf("openai api unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(string)
		return nil
	})
	if retryErr != nil {
		return "", fmt.Errorf("openai completion failed after retries: %w", retryErr)
	}
	return result, nil
}

func (c *Client) doComplete(ctx context.Context, messages []chat.Message) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    toOpenAIMessages(messages),
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "Completion failed",
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai api returned empty response")
	}

	slog.InfoContext(ctx, "Completion finished",
		slog.Duration("duration", duration),
		slog.Int("prompt_tokens", resp.Usage.PromptTokens),
		slog.Int("completion_tokens", resp.Usage.CompletionTokens))

	return resp.Choices[0].Message.Content, nil
}

// GenerateStream streams a completion, invoking onDelta for each content
// fragment. An in-flight stream is never retried; failures before the
// first byte go through the circuit breaker like any other call.
func (c *Client) GenerateStream(ctx context.Context, messages []chat.Message, onDelta func(delta string) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	cbResult, err := c.circuitBreaker.Execute(func() (any, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:       c.cfg.Model,
			Messages:    toOpenAIMessages(messages),
			Temperature: c.cfg.Temperature,
			MaxTokens:   c.cfg.MaxTokens,
			Stream:      true,
		})
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			return fmt.Errorf("openai api unavailable: circuit breaker open")
		}
		return fmt.Errorf("openai stream error: %w", err)
	}

	stream := cbResult.(*openai.ChatCompletionStream)
	defer stream.Close()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("openai stream recv: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			if err := onDelta(delta); err != nil {
				return err
			}
		}
	}
}

// Embed returns the embedding vector for a single text. The knowledge
// base index uses it both at build time and at query time.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var result []float32

	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		cbResult, err := c.circuitBreaker.Execute(func() (any, error) {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
			resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
				Input: []string{text},
			})
			if err != nil {
				return nil, fmt.Errorf("openai embeddings error: %w", err)
			}
			if len(resp.Data) == 0 {
				return nil, fmt.Errorf("openai embeddings returned no data")
			}
			return resp.Data[0].Embedding, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return fmt.Errorf("openai api unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.([]float32)
		return nil
	})
	if retryErr != nil {
		return nil, fmt.Errorf("openai embed failed after retries: %w", retryErr)
	}
	return result, nil
}

func toOpenAIMessages(messages []chat.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}
