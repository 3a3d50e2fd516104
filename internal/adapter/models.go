package adapter

import (
	"fmt"
	"strings"
)

// Model is a chat model reference with its provider prefix, as written in config.
type Model struct {
	ProviderPrefix string // e.g. "openai", "claude", "ollama"
	ID             string // e.g. "gpt-4o", "llama3.1:8b"
}

// String returns the "provider:id" form.
func (m Model) String() string {
	return fmt.Sprintf("%s:%s", m.ProviderPrefix, m.ID)
}

// ParseModel parses a model string in the format "provider:model_id". Only the
// first colon separates the provider, so Ollama tags like "llama3:8b" survive.
func ParseModel(modelString string) (Model, error) {
	parts := strings.SplitN(modelString, ":", 2)
	if len(parts) != 2 {
		return Model{}, fmt.Errorf("invalid model format: %s (expected provider:model_id)", modelString)
	}

	providerPrefix := strings.TrimSpace(parts[0])
	modelID := strings.TrimSpace(parts[1])
	if providerPrefix == "" || modelID == "" {
		return Model{}, fmt.Errorf("both provider and model ID must be specified")
	}

	return Model{ProviderPrefix: providerPrefix, ID: modelID}, nil
}

// AvailableModels returns well-known models for `jeddict config list` output.
func AvailableModels() []Model {
	models := []string{
		"openai:gpt-4o",
		"openai:gpt-4.1",
		"openai:o4-mini",
		"claude:claude-sonnet-4-20250514",
		"claude:claude-3-5-haiku-20241022",
		"gemini:gemini-2.5-pro",
		"gemini:gemini-2.5-flash",
		"cohere:command-r-plus",
		"ollama:llama3.1:8b",
		"ollama:qwen2.5-coder:7b",
		"ollama:deepseek-coder-v2:16b",
	}

	result := make([]Model, 0, len(models))
	for _, s := range models {
		if m, err := ParseModel(s); err == nil {
			result = append(result, m)
		}
	}
	return result
}

// GetProviderFromModel resolves the provider of a model string.
func GetProviderFromModel(modelString string) (Provider, string, error) {
	model, err := ParseModel(modelString)
	if err != nil {
		return "", "", err
	}

	var provider Provider
	switch strings.ToLower(model.ProviderPrefix) {
	case "openai":
		provider = ProviderOpenAI
	case "claude", "anthropic":
		provider = ProviderAnthropic
	case "gemini", "google":
		provider = ProviderGemini
	case "cohere":
		provider = ProviderCohere
	case "ollama":
		provider = ProviderOllama
	default:
		return "", "", fmt.Errorf("unknown provider: %s", model.ProviderPrefix)
	}
	return provider, model.ID, nil
}
