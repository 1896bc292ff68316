// Package answers runs questions through a generation provider and
// collects the replies into a single JSON document.
package answers

import (
	"errors"
	"strings"

	"github.com/abhisek/answergen/internal/llm"
)

// Built-in run defaults.
const (
	DefaultInputPath      = "Q.jsonl"
	DefaultOutputPath     = "generated_answers_llama3_to_mistral-7B.json"
	DefaultMaxTokens      = 300
	DefaultTemperature    = 0.7
	DefaultResponderLabel = "Llama3"
)

// Config holds everything a Pipeline needs besides its provider.
type Config struct {
	InputPath  string
	OutputPath string

	// MaxTokens and Temperature are sent with every request.
	MaxTokens   int
	Temperature float64

	// ResponderLabel is written into every record as Responsed_model and
	// names the model in diagnostic strings.
	ResponderLabel string

	// ReplyField is the reply key holding the generated text.
	ReplyField string

	// Workers bounds concurrent inference calls. Values below 2 run
	// strictly sequentially.
	Workers int
}

// DefaultConfig returns the built-in run configuration.
func DefaultConfig() Config {
	return Config{
		InputPath:      DefaultInputPath,
		OutputPath:     DefaultOutputPath,
		MaxTokens:      DefaultMaxTokens,
		Temperature:    DefaultTemperature,
		ResponderLabel: DefaultResponderLabel,
		ReplyField:     llm.ReplyField,
		Workers:        1,
	}
}

// Validate reports configuration that cannot produce a run.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.InputPath) == "" {
		errs = append(errs, errors.New("input path is required"))
	}
	if strings.TrimSpace(c.OutputPath) == "" {
		errs = append(errs, errors.New("output path is required"))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, errors.New("max tokens must be positive"))
	}
	if c.Temperature < 0 {
		errs = append(errs, errors.New("temperature must not be negative"))
	}
	if strings.TrimSpace(c.ReplyField) == "" {
		errs = append(errs, errors.New("reply field is required"))
	}
	if c.Workers < 0 {
		errs = append(errs, errors.New("workers must not be negative"))
	}
	return errors.Join(errs...)
}
