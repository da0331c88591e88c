package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

const (
	defaultDBPath     = "magma.db"
	defaultStressors  = "pthread"
	defaultInstances  = 1
	defaultPthreadMax = 1024

	envMetricsAddr = "MAGMA_METRICS_ADDR"
	envDBPath      = "MAGMA_DB_PATH"
	envLogLevel    = "MAGMA_LOG_LEVEL"
)

// Config holds application configuration loaded from environment variables.
// CLI flags may override any field after Load.
type Config struct {
	MetricsAddr string // empty disables the observability HTTP server
	DBPath      string
	LogLevel    slog.Level
	Stressors   string // comma-separated stressor names
	Instances   int
	PthreadMax  uint64
	MaxOps      uint64 // 0 means unlimited
	Timeout     time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		DBPath:     defaultDBPath,
		LogLevel:   slog.LevelInfo,
		Stressors:  defaultStressors,
		Instances:  defaultInstances,
		PthreadMax: defaultPthreadMax,
	}

	if v := os.Getenv(envMetricsAddr); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
