package factory

import (
	"context"
	"fmt"

	"tokinarc-sales-be/pkg/llm"
	"tokinarc-sales-be/pkg/llm/gemini"
	"tokinarc-sales-be/pkg/llm/ollama"
	"tokinarc-sales-be/pkg/llm/stub"
)

// Config selects and configures a backend.
type Config struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// NewLLMProvider builds the raw backend. Callers wrap it with
// llm.NewRetryingProvider.
func NewLLMProvider(ctx context.Context, cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "gemini", "":
		return gemini.NewProvider(ctx, cfg.APIKey, cfg.Model)
	case "ollama":
		return ollama.NewOllamaProvider(cfg.BaseURL, cfg.Model), nil
	case "stub":
		return stub.New(), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
