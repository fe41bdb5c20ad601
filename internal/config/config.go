package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string

	// Auth for this service's own API.
	APIKey string

	// Generation pipeline connection.
	PipelineURL    string
	PipelineAPIKey string

	// Upload limits
	MaxUploadBytes int64

	// Session state
	SessionTTL time.Duration

	// Stream routing
	FinalStep       int
	SuggestKeywords []string
	TreeKeywords    []string

	// PDF
	PDFFallbackPdftotext bool
}

// fileConfig is the optional YAML overlay, loaded from the path named by
// PAPEREDIT_CONFIG. Only non-zero fields override.
type fileConfig struct {
	Port            string   `yaml:"port"`
	PipelineURL     string   `yaml:"pipeline_url"`
	MaxUploadBytes  int64    `yaml:"max_upload_bytes"`
	SessionTTL      string   `yaml:"session_ttl"`
	FinalStep       int      `yaml:"final_step"`
	SuggestKeywords []string `yaml:"suggest_keywords"`
	TreeKeywords    []string `yaml:"tree_keywords"`
}

func Load() (Config, error) {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("PAPEREDIT_API_KEY"),

		PipelineURL:    envOr("PIPELINE_URL", "http://localhost:8080"),
		PipelineAPIKey: os.Getenv("PIPELINE_API_KEY"),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		SessionTTL: envDuration("SESSION_TTL", 1*time.Hour),

		FinalStep: envInt("PIPELINE_FINAL_STEP", 7),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if path := os.Getenv("PAPEREDIT_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return cfg, err
		}
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 1 * time.Hour
	}
	if cfg.FinalStep <= 0 {
		cfg.FinalStep = 7
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Port != "" {
		c.Port = fc.Port
	}
	if fc.PipelineURL != "" {
		c.PipelineURL = fc.PipelineURL
	}
	if fc.MaxUploadBytes > 0 {
		c.MaxUploadBytes = fc.MaxUploadBytes
	}
	if fc.SessionTTL != "" {
		d, err := time.ParseDuration(fc.SessionTTL)
		if err != nil {
			return fmt.Errorf("parse session_ttl: %w", err)
		}
		c.SessionTTL = d
	}
	if fc.FinalStep > 0 {
		c.FinalStep = fc.FinalStep
	}
	if len(fc.SuggestKeywords) > 0 {
		c.SuggestKeywords = fc.SuggestKeywords
	}
	if len(fc.TreeKeywords) > 0 {
		c.TreeKeywords = fc.TreeKeywords
	}
	return nil
}

func (c Config) Validate() error {
	if c.PipelineURL == "" {
		return fmt.Errorf("PIPELINE_URL is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
