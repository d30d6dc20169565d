// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Supabase project base URL (e.g., https://xyzcompany.supabase.co).
	// Both the JWKS endpoint and the PostgREST data API hang off this URL.
	SupabaseURL string `env:"SUPABASE_URL,required"`

	// Service-role key for the data API. Row ownership is enforced by
	// query filters, not by this credential.
	SupabaseServiceKey string `env:"SUPABASE_SERVICE_ROLE_KEY,required"`

	// Inference provider credentials. Both are optional; summary
	// generation reports a configuration error when neither is set.
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	GroqAPIKey   string `env:"GROQ_API_KEY"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts. The write timeout must cover a full summary
	// generation round trip, which can take tens of seconds.
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CORS configuration
	// Comma-separated list of allowed origins; empty allows any origin.
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// JWKSURL returns the identity provider's published key-set endpoint.
func (c *Config) JWKSURL() string {
	return strings.TrimSuffix(c.SupabaseURL, "/") + "/auth/v1/.well-known/jwks.json"
}

// DataAPIURL returns the base URL of the hosted REST data API.
func (c *Config) DataAPIURL() string {
	return strings.TrimSuffix(c.SupabaseURL, "/") + "/rest/v1"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
