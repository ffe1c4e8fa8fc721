package cliutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type LogOptions struct {
	// e.g. debug, info, warn, error
	LogLevel string

	// e.g. text or json
	LogFormat string

	// path to a log file; "" or "-" for stdout
	LogPath string
}

func firstenv(env_var_names ...string) string {
	for _, env_var_name := range env_var_names {
		val := os.Getenv(env_var_name)
		if val != "" {
			return val
		}
	}
	return ""
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %#v", s)
	}
}

// SetupSlog integrates passed in options and env vars, and installs the result as the default logger.
//
// passing default cliutil.LogOptions{} is ok.
//
// TURNSTILE_LOG_LEVEL=info|debug|warn|error
//
// TURNSTILE_LOG_FMT=text|json
//
// TURNSTILE_LOG_FILE=path (or "-" or "" for stdout)
func SetupSlog(options LogOptions) (*slog.Logger, error) {
	var hopts slog.HandlerOptions

	if options.LogLevel == "" {
		options.LogLevel = firstenv("TURNSTILE_LOG_LEVEL", "LOG_LEVEL")
	}
	level, err := parseLevel(options.LogLevel)
	if err != nil {
		return nil, err
	}
	hopts.Level = level
	hopts.AddSource = level <= slog.LevelDebug

	if options.LogFormat == "" {
		options.LogFormat = firstenv("TURNSTILE_LOG_FMT", "LOG_FMT")
	}
	options.LogFormat = strings.ToLower(options.LogFormat)
	if options.LogFormat == "" {
		options.LogFormat = "text"
	}

	if options.LogPath == "" {
		options.LogPath = os.Getenv("TURNSTILE_LOG_FILE")
	}
	var out io.Writer
	if options.LogPath == "" || options.LogPath == "-" {
		out = os.Stdout
	} else {
		f, err := os.OpenFile(options.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", options.LogPath, err)
		}
		out = f
	}

	var handler slog.Handler
	switch options.LogFormat {
	case "text":
		handler = slog.NewTextHandler(out, &hopts)
	case "json":
		handler = slog.NewJSONHandler(out, &hopts)
	default:
		return nil, fmt.Errorf("invalid log format: %#v", options.LogFormat)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}
