// Package adapter selects and builds the chat model named in configuration.
package adapter

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/jeddict/jeddict/internal/adapter/gemini"
	"github.com/jeddict/jeddict/internal/adapter/langchain"
	"github.com/jeddict/jeddict/internal/adapter/ollama"
	"github.com/jeddict/jeddict/internal/adapter/openai"
	"github.com/jeddict/jeddict/internal/llm"
)

// Provider is the backend family of a model.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderCohere    Provider = "cohere"
	ProviderOllama    Provider = "ollama"
)

// apiKeyEnv is consulted when no key is configured.
var apiKeyEnv = map[Provider]string{
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderAnthropic: "ANTHROPIC_API_KEY",
	ProviderGemini:    "GEMINI_API_KEY",
	ProviderCohere:    "COHERE_API_KEY",
}

// Config holds what is needed to build a chat model.
type Config struct {
	Model   string // "provider:model_id"
	APIKey  string
	BaseURL string // custom endpoint, e.g. Azure OpenAI or a remote Ollama
	Logger  *zap.Logger
}

// New builds the chat model for cfg.Model.
func New(ctx context.Context, cfg Config) (llm.ChatModel, error) {
	provider, id, err := GetProviderFromModel(cfg.Model)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	key := cfg.APIKey
	if env, ok := apiKeyEnv[provider]; ok && key == "" {
		key = os.Getenv(env)
		if key == "" {
			return nil, fmt.Errorf("%s API key not set: configure api_key or set %s", provider, env)
		}
	}
	logger.Debug("creating chat model", zap.String("provider", string(provider)), zap.String("model", id))

	switch provider {
	case ProviderOpenAI:
		return openai.New(key, id, cfg.BaseURL, openai.WithLogger(logger)), nil
	case ProviderAnthropic:
		return langchain.NewAnthropic(key, id, cfg.BaseURL, logger)
	case ProviderCohere:
		return langchain.NewCohere(key, id, cfg.BaseURL, logger)
	case ProviderGemini:
		return gemini.New(ctx, key, id, cfg.BaseURL, logger)
	case ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = os.Getenv("OLLAMA_HOST")
		}
		return ollama.New(baseURL, id, logger), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}
