package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/abhisek/answergen/internal/answers"
	"github.com/abhisek/answergen/internal/llm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "ANSWERGEN"

// bindConfig layers the command's flags over ANSWERGEN_* environment
// variables. A flag set on the command line wins over the environment,
// which wins over the flag default.
func bindConfig(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	return v, nil
}

func pipelineConfig(v *viper.Viper) answers.Config {
	return answers.Config{
		InputPath:      v.GetString("input"),
		OutputPath:     v.GetString("output"),
		MaxTokens:      v.GetInt("max-tokens"),
		Temperature:    v.GetFloat64("temperature"),
		ResponderLabel: v.GetString("label"),
		ReplyField:     v.GetString("reply-field"),
		Workers:        v.GetInt("workers"),
	}
}

func providerConfig(v *viper.Viper) llm.Config {
	return llm.Config{
		Provider: strings.ToLower(strings.TrimSpace(v.GetString("provider"))),
		URL:      v.GetString("endpoint"),
		Model:    v.GetString("model"),
	}
}

// newLogger builds the run logger writing to w.
func newLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q", level)
	}

	switch format {
	case "json":
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime}
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q: want console or json", format)
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
