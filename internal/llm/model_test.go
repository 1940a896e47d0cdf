package llm

import (
	"testing"

	"github.com/lorekeep/lorekeep/internal/config"
)

func TestNewModelProviderValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{
			"ollama needs no key",
			config.Config{LLMProvider: config.ProviderOllama, LLMModel: "llama3.2", OllamaHost: "http://localhost:11434"},
			false,
		},
		{
			"openai without key",
			config.Config{LLMProvider: config.ProviderOpenAI, LLMModel: "gpt-4o-mini"},
			true,
		},
		{
			"openai with key",
			config.Config{LLMProvider: config.ProviderOpenAI, LLMModel: "gpt-4o-mini", OpenAIAPIKey: "sk-test"},
			false,
		},
		{
			"anthropic without key",
			config.Config{LLMProvider: config.ProviderAnthropic, LLMModel: "claude-sonnet-4-5"},
			true,
		},
		{
			"anthropic with key",
			config.Config{LLMProvider: config.ProviderAnthropic, LLMModel: "claude-sonnet-4-5", AnthropicAPIKey: "sk-test"},
			false,
		},
		{
			"unsupported provider",
			config.Config{LLMProvider: config.Provider("bedrock"), LLMModel: "x"},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewModel(tt.cfg, nil)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewModel: %v", err)
			}
			if m.Model() != tt.cfg.LLMModel {
				t.Errorf("Model() = %q, want %q", m.Model(), tt.cfg.LLMModel)
			}
		})
	}
}
