package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/harliandi/go-imgfit/pkg/codec"
	"github.com/harliandi/go-imgfit/pkg/limits"
	"github.com/harliandi/go-imgfit/pkg/optimizer"
)

// Config holds application configuration
type Config struct {
	Port            int
	MaxUploadMB     int
	MaxConcurrent   int
	RateLimitPerSec int
	RateLimitBurst  int

	// Request defaults, used when a request leaves the value out.
	DefaultMaxBytes  int // 0 = no default ceiling
	DefaultMaxBase64 int // 0 = no default ceiling
	DefaultFormat    string
	InitialQuality   int
	MinQuality       int

	// Search policy.
	QualityStep     int
	TierSizes       []int
	FallbackQuality int
	ResizeFilter    string

	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:             getEnvInt("PORT", 8080),
		MaxUploadMB:      getEnvInt("MAX_UPLOAD_MB", 10),
		MaxConcurrent:    getEnvInt("MAX_CONCURRENT", 50),
		RateLimitPerSec:  getEnvInt("RATE_LIMIT", 10),
		RateLimitBurst:   getEnvInt("RATE_LIMIT_BURST", 20),
		DefaultMaxBytes:  getEnvInt("DEFAULT_MAX_BYTES", 0),
		DefaultMaxBase64: getEnvInt("DEFAULT_MAX_BASE64", 0),
		DefaultFormat:    getEnv("DEFAULT_FORMAT", string(codec.JPEG)),
		InitialQuality:   getEnvInt("INITIAL_QUALITY", 85),
		MinQuality:       getEnvInt("MIN_QUALITY", 10),
		QualityStep:      getEnvInt("QUALITY_STEP", 1),
		TierSizes:        getEnvInts("TIER_SIZES", []int{800, 600, 400}),
		FallbackQuality:  getEnvInt("FALLBACK_QUALITY", 50),
		ResizeFilter:     getEnv("RESIZE_FILTER", codec.ResizeLanczos),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
	}
}

// Validate returns an error if the configuration is inconsistent.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("config: MAX_UPLOAD_MB must be positive")
	}
	if c.DefaultMaxBytes < 0 || c.DefaultMaxBase64 < 0 {
		return fmt.Errorf("config: default ceilings must not be negative")
	}
	if _, err := codec.ParseFormat(c.DefaultFormat); err != nil {
		return fmt.Errorf("config: DEFAULT_FORMAT: %w", err)
	}
	if c.MinQuality < codec.MinQuality || c.MinQuality > codec.MaxQuality {
		return fmt.Errorf("config: MIN_QUALITY must be between %d and %d", codec.MinQuality, codec.MaxQuality)
	}
	if c.InitialQuality < codec.MinQuality || c.InitialQuality > codec.MaxQuality {
		return fmt.Errorf("config: INITIAL_QUALITY must be between %d and %d", codec.MinQuality, codec.MaxQuality)
	}
	if c.FallbackQuality < codec.MinQuality || c.FallbackQuality > codec.MaxQuality {
		return fmt.Errorf("config: FALLBACK_QUALITY must be between %d and %d", codec.MinQuality, codec.MaxQuality)
	}
	if c.QualityStep < 1 {
		return fmt.Errorf("config: QUALITY_STEP must be at least 1")
	}
	for _, s := range c.TierSizes {
		if s <= 0 {
			return fmt.Errorf("config: TIER_SIZES entries must be positive, got %d", s)
		}
	}
	if _, err := codec.NewResizer(c.ResizeFilter); err != nil {
		return fmt.Errorf("config: RESIZE_FILTER: %w", err)
	}
	return nil
}

// Policy returns the optimizer policy described by the configuration.
func (c *Config) Policy() optimizer.Policy {
	tiers := make([]int, len(c.TierSizes))
	copy(tiers, c.TierSizes)
	return optimizer.Policy{
		Tiers:           tiers,
		FallbackCeiling: c.FallbackQuality,
		Step:            c.QualityStep,
	}
}

// DefaultConstraints returns the configured fallback ceilings, which may be
// empty.
func (c *Config) DefaultConstraints() limits.Constraints {
	var lc limits.Constraints
	if c.DefaultMaxBytes > 0 {
		lc.MaxBinaryBytes = limits.Int(c.DefaultMaxBytes)
	}
	if c.DefaultMaxBase64 > 0 {
		lc.MaxBase64Chars = limits.Int(c.DefaultMaxBase64)
	}
	return lc
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.LogLevel)}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func getEnv(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInts parses a comma-separated list; any bad entry falls back to the
// default list.
func getEnvInts(key string, defaultValue []int) []int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	parts := strings.Split(val, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return defaultValue
		}
		out = append(out, n)
	}
	return out
}
