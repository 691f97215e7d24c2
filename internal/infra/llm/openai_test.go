package llm

import (
	"testing"
	"time"

	"ragchat/internal/usecase/chat"
)

func validConfig() Config {
	return Config{
		APIKey:      "sk-test-key-0000000000",
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
		MaxTokens:   1024,
		Timeout:     time.Minute,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing api key", func(c *Config) { c.APIKey = "" }, true},
		{"missing model", func(c *Config) { c.Model = "" }, true},
		{"zero max tokens", func(c *Config) { c.MaxTokens = 0 }, true},
		{"temperature too high", func(c *Config) { c.Temperature = 2.5 }, true},
		{"negative temperature", func(c *Config) { c.Temperature = -0.1 }, true},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(validConfig())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.cfg.EmbeddingModel == "" {
		t.Error("embedding model default not applied")
	}

	p := c.Params()
	if p.Model != "gpt-4o-mini" || p.MaxTokens != 1024 {
		t.Errorf("Params() = %+v", p)
	}
}

func TestToOpenAIMessages(t *testing.T) {
	in := []chat.Message{
		{Role: chat.RoleSystem, Content: "be brief"},
		{Role: chat.RoleUser, Content: "hi"},
	}
	out := toOpenAIMessages(in)
	if len(out) != 2 {
		t.Fatalf("len = %d", len(out))
	}
	if out[0].Role != "system" || out[1].Content != "hi" {
		t.Errorf("converted = %+v", out)
	}
}
