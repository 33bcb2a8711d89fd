package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu            sync.Mutex
	defaultLogger *slog.Logger
)

// Options selects the handler format and minimum level of the process logger.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// Init builds the process logger from opts and installs it as the slog default.
func Init(opts Options) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return install(opts)
}

// install must be called with mu held.
func install(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
	return defaultLogger
}

// InitForEnv keeps the env-based shortcut used by CLI commands that run
// before configuration is loaded.
func InitForEnv(env string) *slog.Logger {
	return Init(envOptions(env))
}

func envOptions(env string) Options {
	if env == "production" {
		return Options{Level: "info", Format: "json"}
	}
	return Options{Level: "debug", Format: "text"}
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoggerWrapper returns the process logger, installing a development
// logger on first use when Init has not run. Safe for concurrent callers.
func LoggerWrapper() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		install(envOptions("development"))
	}
	return defaultLogger
}
