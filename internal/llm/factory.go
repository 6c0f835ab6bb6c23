package llm

import (
	"fmt"
	"os"
)

// NewProvider creates an LLM provider by name. The API key falls back to the
// provider's conventional environment variable when unset in cfg.
func NewProvider(name string, cfg *ProviderConfig) (Provider, error) {
	if name == "" {
		name = "openai"
	}
	if cfg == nil {
		cfg = DefaultConfig(name)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = apiKeyFromEnv(name)
	}

	switch name {
	case "openai":
		return NewOpenAIProvider(cfg), nil
	case "ollama":
		return NewOllamaProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}

// apiKeyFromEnv retrieves the API key from standard environment variables.
func apiKeyFromEnv(name string) string {
	envVars := map[string]string{
		"openai": "OPENAI_API_KEY",
	}
	if envVar, ok := envVars[name]; ok {
		return os.Getenv(envVar)
	}
	return ""
}
