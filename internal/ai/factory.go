package ai

import (
	"fmt"

	"github.com/kiranshivaraju/copyforge/internal/ai/anthropic"
	"github.com/kiranshivaraju/copyforge/internal/ai/mock"
	"github.com/kiranshivaraju/copyforge/internal/ai/ollama"
	"github.com/kiranshivaraju/copyforge/internal/ai/openai"
	"github.com/kiranshivaraju/copyforge/internal/ai/prompt"
	"github.com/kiranshivaraju/copyforge/internal/config"
	"github.com/kiranshivaraju/copyforge/pkg/models"
)

// NewProvider constructs the appropriate copy provider based on config.
// Called once at process startup.
func NewProvider(cfg config.AIConfig) (models.CopyProvider, error) {
	params := prompt.Params{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Tone:        cfg.Tone,
	}

	switch cfg.Provider {
	case "ollama":
		return ollama.NewProvider(cfg.Ollama, params), nil
	case "openai":
		return openai.NewProvider(cfg.OpenAI, params), nil
	case "anthropic":
		return anthropic.NewProvider(cfg.Anthropic, params), nil
	case "mock":
		return mock.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of ollama, openai, anthropic, mock", cfg.Provider)
	}
}
