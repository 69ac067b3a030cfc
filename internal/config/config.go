package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config holds all environment backed configuration.
type Config struct {
	// HTTP Server
	HTTPAddr           string   `env:"HTTP_ADDR" envDefault:":8100"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	MetricsEnabled     bool     `env:"METRICS_ENABLED" envDefault:"true"`

	// Storage
	StoreDriver  string `env:"STORE_DRIVER" envDefault:"sqlite"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"pad-i.db"`

	// Response generator
	LLMBaseURL    string        `env:"LLM_BASE_URL" envDefault:"http://localhost:11434/v1/"`
	LLMAPIKey     string        `env:"LLM_API_KEY"`
	LLMTextModel  string        `env:"LLM_TEXT_MODEL" envDefault:"llama3.1:8b"`
	LLMImageModel string        `env:"LLM_IMAGE_MODEL" envDefault:"dall-e-3"`
	LLMImageSize  string        `env:"LLM_IMAGE_SIZE" envDefault:"1024x1024"`
	LLMTimeout    time.Duration `env:"LLM_TIMEOUT" envDefault:"0s"`

	// Auth
	JWTSecret string `env:"AUTH_JWT_SECRET"`
	JWTIssuer string `env:"AUTH_JWT_ISSUER" envDefault:"padchat"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}
	if c.LLMTimeout < 0 {
		return errors.New("LLM_TIMEOUT must not be negative")
	}
	return nil
}
