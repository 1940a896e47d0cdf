// Package llm wraps langchaingo models for answer streaming and title
// generation.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/lorekeep/lorekeep/internal/config"
	"github.com/lorekeep/lorekeep/internal/metrics"
)

const systemPrompt = `You are the assistant inside a personal knowledge and document
management product. Answer the user's question directly and concisely.`

const titlePrompt = `Generate a short title (at most six words) for a chat that starts
with the following message. Reply with the title only, no quotes.`

// Model wraps a langchaingo LLM for chat generation.
type Model struct {
	llm       llms.Model
	modelName string
	metrics   *metrics.Collector
}

// NewModel creates an LLM model based on configuration.
func NewModel(cfg config.Config, mc *metrics.Collector) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Model{
		llm:       model,
		modelName: cfg.LLMModel,
		metrics:   mc,
	}, nil
}

// Model returns the configured model name.
func (m *Model) Model() string {
	return m.modelName
}

// StreamAnswer generates a response to the prompt, invoking onToken for each
// streamed fragment in order. Returns the full response text.
func (m *Model) StreamAnswer(ctx context.Context, prompt string, onToken func(token string) error) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	var sb strings.Builder
	var tokens int64

	start := time.Now()
	response, err := m.llm.GenerateContent(ctx, messages,
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			tokens++
			sb.Write(chunk)
			return onToken(string(chunk))
		}),
	)
	duration := time.Since(start)

	if m.metrics != nil {
		m.metrics.RecordStream(metrics.OpLLMStream, duration, tokens)
	}

	if err != nil {
		return "", fmt.Errorf("stream answer: %w", err)
	}

	// Some providers only deliver the full text in the final choice.
	if sb.Len() == 0 && len(response.Choices) > 0 {
		return response.Choices[0].Content, nil
	}
	return sb.String(), nil
}

// GenerateTitle produces a short session title from the opening message.
func (m *Model) GenerateTitle(ctx context.Context, text string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, titlePrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, text),
	}

	start := time.Now()
	response, err := m.llm.GenerateContent(ctx, messages)
	if m.metrics != nil {
		m.metrics.RecordTiming(metrics.OpLLMTitle, time.Since(start))
	}
	if err != nil {
		return "", fmt.Errorf("generate title: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	title := strings.Trim(response.Choices[0].Content, "\"'\n\r\t .")
	return title, nil
}
