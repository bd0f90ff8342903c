// Package config loads world-weaver settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/rcliao/world-weaver/internal/imagegen"
	"github.com/rcliao/world-weaver/internal/llm"
)

// Config holds every setting read from the environment.
type Config struct {
	Home       string `env:"WORLD_WEAVER_HOME"`
	DB         string `env:"WORLD_WEAVER_DB"`
	TextModel  string `env:"WORLD_WEAVER_TEXT_MODEL" envDefault:"claude"`
	ImageModel string `env:"WORLD_WEAVER_IMAGE_MODEL" envDefault:"flux2"`
	MaxTokens  int    `env:"WORLD_WEAVER_MAX_TOKENS" envDefault:"3000"`

	AnthropicKey  string `env:"ANTHROPIC_API_KEY"`
	OpenRouterKey string `env:"OPENROUTER_API_KEY"`
	GeminiKey     string `env:"GEMINI_API_KEY"`
	BFLKey        string `env:"BFL_API_KEY"`
	ReplicateKey  string `env:"REPLICATE_API_TOKEN"`

	OtelEndpoint string `env:"WORLD_WEAVER_OTEL_ENDPOINT"`

	Backup BackupConfig `envPrefix:"WORLD_WEAVER_BACKUP_"`
}

// BackupConfig locates the S3-compatible bucket backups are uploaded to.
type BackupConfig struct {
	Endpoint  string `env:"ENDPOINT"`
	Bucket    string `env:"BUCKET" envDefault:"world-weaver"`
	Region    string `env:"REGION" envDefault:"us-east-1"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"true"`
}

// Enabled reports whether a backup endpoint is configured.
func (b BackupConfig) Enabled() bool { return b.Endpoint != "" }

// Load reads a .env file from the working directory, if any, and then the
// environment. Variables already set take precedence over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Home == "" {
		home, _ := os.UserHomeDir()
		cfg.Home = filepath.Join(home, ".world-weaver")
	}
	if cfg.DB == "" {
		cfg.DB = filepath.Join(cfg.Home, "library.db")
	}
	if cfg.MaxTokens <= 0 {
		return nil, fmt.Errorf("parse env: WORLD_WEAVER_MAX_TOKENS must be positive, got %d", cfg.MaxTokens)
	}
	return &cfg, nil
}

// SaveDir is where new archives are placed.
func (c *Config) SaveDir() string { return filepath.Join(c.Home, "saves") }

// LLMKeys returns the text model credentials.
func (c *Config) LLMKeys() llm.Keys {
	return llm.Keys{Anthropic: c.AnthropicKey, OpenRouter: c.OpenRouterKey, Gemini: c.GeminiKey}
}

// ImageKeys returns the image model credentials.
func (c *Config) ImageKeys() imagegen.Keys {
	return imagegen.Keys{BFL: c.BFLKey, Replicate: c.ReplicateKey, Gemini: c.GeminiKey}
}
