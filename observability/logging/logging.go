// Package logging configures the process-wide structured logger. The pricing
// packages themselves never log; only entry points do, through the logger
// returned here.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

const levelEnv = "XDX_LOG_LEVEL"

// Setup installs a JSON slog handler on stdout and returns the base logger.
// Every line carries the tool name and, when provided, the chain name. The
// level is read from XDX_LOG_LEVEL (debug, info, warn, error), defaulting to
// info.
func Setup(tool, chain string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: levelFromEnv(),
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "timestamp"
			case slog.LevelKey:
				attr.Key = "severity"
				attr.Value = slog.StringValue(strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				attr.Key = "message"
			}
			return attr
		},
	})

	args := []any{slog.String("tool", strings.TrimSpace(tool))}
	if chain = strings.TrimSpace(chain); chain != "" {
		args = append(args, slog.String("chain", chain))
	}

	base := slog.New(handler).With(args...)
	slog.SetDefault(base)
	return base
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(levelEnv))) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
