package backend

import (
	"errors"
	"fmt"
	"strings"
)

// Config controls generator construction.
type Config struct {
	Provider      string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	OllamaBaseURL string
	OllamaModel   string
}

// New selects the generator once at construction. Modes: openai,
// ollama, mock, or auto (openai when a key is present, then ollama,
// then mock).
func New(cfg Config) (Generator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "auto"
	}

	switch provider {
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, errors.New("openai provider requires an API key")
		}
		return NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	case "ollama":
		return NewOllamaGenerator(cfg.OllamaBaseURL, cfg.OllamaModel)
	case "mock":
		return NewMockGenerator(), nil
	case "auto":
		if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
			return NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
		}
		if g, err := NewOllamaGenerator(cfg.OllamaBaseURL, cfg.OllamaModel); err == nil {
			return g, nil
		}
		return NewMockGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported backend provider %q", cfg.Provider)
	}
}
