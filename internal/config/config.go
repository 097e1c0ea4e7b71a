// Package config handles hasher configuration
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/RXminuS/impression-hash/internal/errors"
)

type Config struct {
	HTTPAddr       string
	GRPCAddr       string
	HasherAddr     string // gRPC target used by clients
	MaxImageBytes  int64
	MaxImagePixels int
	LogLevel       string
	LogFormat      string // "text" or "json"
	WSRateLimit    int    // frames per second per connection
	RequestTimeout time.Duration
}

func Load() *Config {
	return &Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8000"),
		GRPCAddr:       getEnv("GRPC_ADDR", ":50051"),
		HasherAddr:     getEnv("HASHER_ADDR", "localhost:50051"),
		MaxImageBytes:  int64(getEnvInt("MAX_IMAGE_BYTES", 10<<20)),
		MaxImagePixels: getEnvInt("MAX_IMAGE_PIXELS", 50_000_000),
		LogLevel:       getEnv("LOG_LEVEL", "debug"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		WSRateLimit:    getEnvInt("WS_RATE_LIMIT", 30),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
	}
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	switch {
	case c.MaxImageBytes <= 0:
		return apperrors.Newf(apperrors.CodeConfigInvalid, "MAX_IMAGE_BYTES must be positive, got %d", c.MaxImageBytes)
	case c.MaxImagePixels <= 0:
		return apperrors.Newf(apperrors.CodeConfigInvalid, "MAX_IMAGE_PIXELS must be positive, got %d", c.MaxImagePixels)
	case c.WSRateLimit <= 0:
		return apperrors.Newf(apperrors.CodeConfigInvalid, "WS_RATE_LIMIT must be positive, got %d", c.WSRateLimit)
	case c.RequestTimeout <= 0:
		return apperrors.Newf(apperrors.CodeConfigInvalid, "REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return apperrors.Newf(apperrors.CodeConfigInvalid, "LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// Level converts LogLevel to a slog level, defaulting to debug.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// NewLogger builds the process logger described by the config.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
