// Package log configures the process-wide zerolog logger.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level   string    // "debug", "info", ... (default info)
	Output  io.Writer // defaults to os.Stdout
	Service string    // service field on every entry
}

var (
	once sync.Once
	base zerolog.Logger
)

// Configure initialises the global logger exactly once.
func Configure(cfg Config) {
	once.Do(func() {
		level := zerolog.InfoLevel
		if cfg.Level != "" {
			if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
				level = parsed
			}
		}
		zerolog.SetGlobalLevel(level)
		zerolog.TimeFieldFormat = time.RFC3339

		writer := cfg.Output
		if writer == nil {
			writer = os.Stdout
		}
		service := cfg.Service
		if service == "" {
			service = "poolsched"
		}

		base = zerolog.New(writer).With().
			Timestamp().
			Str("service", service).
			Logger()
	})
}

// Logger returns the configured base logger. Configure is applied with
// defaults if the caller never did.
func Logger() zerolog.Logger {
	Configure(Config{})
	return base
}

// WithRun returns a logger scoped to one orchestrator run.
func WithRun(runID string) zerolog.Logger {
	return Logger().With().Str("run_id", runID).Logger()
}
