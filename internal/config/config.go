// Package config provides environment-based configuration for the service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the service configuration loaded from environment variables.
type Config struct {
	Port         int
	DatabaseURL  string
	GeminiAPIKey string

	// TTS provider settings. When TTSBaseURL is empty the interview runs
	// text-only.
	TTSBaseURL string
	TTSAPIKey  string
	TTSVoice   string

	RequestTimeout time.Duration
}

// Load reads the service configuration from the environment. GEMINI_API_KEY
// is required; everything else has a default or is optional.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           8080,
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		TTSBaseURL:     os.Getenv("TTS_BASE_URL"),
		TTSAPIKey:      os.Getenv("TTS_API_KEY"),
		TTSVoice:       os.Getenv("TTS_VOICE"),
		RequestTimeout: 60 * time.Second,
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %v", err)
		}
		cfg.Port = port
	}

	if timeoutStr := os.Getenv("REQUEST_TIMEOUT_SECONDS"); timeoutStr != "" {
		seconds, err := strconv.Atoi(timeoutStr)
		if err != nil {
			return nil, fmt.Errorf("invalid REQUEST_TIMEOUT_SECONDS: %v", err)
		}
		cfg.RequestTimeout = time.Duration(seconds) * time.Second
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// normalize validates the configuration.
func (c *Config) normalize() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required but not set")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.RequestTimeout < time.Second {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be at least 1 second")
	}
	return nil
}
