package llm

import (
	"fmt"
	"net/url"
	"strings"
)

// Provider names accepted by Config.Provider.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Built-in endpoint defaults.
const (
	DefaultGenerateURL = "http://localhost:11434/api/generate"
	DefaultOpenAIURL   = "http://localhost:11434/v1"
	DefaultModel       = "llama3"
)

// Config selects and configures the generation backend.
type Config struct {
	// Provider selects the wire protocol.
	// Values: "ollama" (native /api/generate), "openai" (chat completions).
	Provider string

	// URL is the full generate endpoint for "ollama", or the API base URL
	// for "openai". Empty selects the provider default.
	URL string

	// Model is the model identifier sent with every request.
	Model string
}

// DefaultConfig returns the built-in local Ollama configuration.
func DefaultConfig() Config {
	return Config{
		Provider: ProviderOllama,
		URL:      DefaultGenerateURL,
		Model:    DefaultModel,
	}
}

// Endpoint returns the configured URL or the provider's default.
func (c Config) Endpoint() string {
	if strings.TrimSpace(c.URL) != "" {
		return c.URL
	}
	if c.Provider == ProviderOpenAI {
		return DefaultOpenAIURL
	}
	return DefaultGenerateURL
}

// Validate checks that the configuration can build a provider.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("model is required for the %s provider", c.Provider)
	}
	u, err := url.Parse(c.Endpoint())
	if err != nil {
		return fmt.Errorf("invalid endpoint URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid endpoint URL %q: scheme must be http or https", c.Endpoint())
	}
	return nil
}
