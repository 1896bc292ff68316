package llm

import (
	"fmt"
	"net/http"

	"github.com/abhisek/answergen/internal/store"
	"github.com/rs/zerolog"
)

// NewProvider creates a Provider from configuration, wrapped with logging.
// eventRepo may be nil to disable the journal.
func NewProvider(cfg Config, eventRepo store.EventRepo, logger zerolog.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// No client timeout: a generation call may legitimately run for minutes.
	client := &http.Client{}

	var base Provider
	var err error

	switch cfg.Provider {
	case ProviderOllama:
		base, err = NewOllamaProvider(cfg, client)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg, client)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	return WithLogging(base, cfg.Provider, logger, eventRepo), nil
}
