/*
Package configs is responsible for loading and parsing the application's configuration settings.

Both binaries read their settings from operating system environment variables: the
game client (mmoctl) needs the backend base URL, request timeout and outbound rate
limit; the development backend (devserver) needs its port, CORS origins and JWT secret.
*/
package configs

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	// EnvDevelopment is the default running environment.
	EnvDevelopment = "development"

	// DefaultBaseURL is the address the original game client was hard-wired to.
	DefaultBaseURL = "http://localhost:3000"

	// DefaultRequestTimeout bounds every gateway round trip.
	DefaultRequestTimeout = 5 * time.Second
)

// ClientConfig contains the settings of the game client's network gateway.
type ClientConfig struct {
	// Environment selects the log format ("development" => console, debug level).
	Environment string `env:"MMO_ENVIRONMENT" envDefault:"development"`

	// BaseURL is the backend root; endpoint paths are resolved against it.
	BaseURL string `env:"MMO_BASE_URL" envDefault:"http://localhost:3000"`

	// RequestTimeout bounds a single request, including rate limiter wait.
	RequestTimeout time.Duration `env:"MMO_REQUEST_TIMEOUT" envDefault:"5s"`

	// RequestsPerSecond caps outbound requests. Zero disables the limiter.
	RequestsPerSecond float64 `env:"MMO_REQUESTS_PER_SECOND" envDefault:"10"`

	// RequestBurst is the limiter's bucket size.
	RequestBurst int `env:"MMO_REQUEST_BURST" envDefault:"5"`

	// StrictAuth makes CreateCharacter and SavePosition refuse to run without a
	// token, like ListCharacters does.
	StrictAuth bool `env:"MMO_STRICT_AUTH" envDefault:"false"`

	// SessionFile is where mmoctl keeps the session between invocations.
	SessionFile string `env:"MMO_SESSION_FILE" envDefault:".mmoctl-session.yaml"`
}

// LoadClientConfig reads the client configuration from environment variables and validates it.
func LoadClientConfig() (*ClientConfig, error) {
	cfg := &ClientConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse client env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the values that env tags cannot express.
func (c *ClientConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid MMO_BASE_URL %q: %w", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("MMO_BASE_URL must use http or https, got %q", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("MMO_BASE_URL %q has no host", c.BaseURL)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("MMO_REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}

	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("MMO_REQUESTS_PER_SECOND must not be negative, got %v", c.RequestsPerSecond)
	}
	if c.RequestsPerSecond > 0 && c.RequestBurst < 1 {
		return fmt.Errorf("MMO_REQUEST_BURST must be at least 1 when rate limiting is enabled, got %d", c.RequestBurst)
	}

	return nil
}

// ServerConfig contains the settings of the development backend.
type ServerConfig struct {
	// General Server Settings
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        int    `env:"PORT" envDefault:"3000"`

	// Security Settings
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	JWTSecret      string   `env:"JWT_SECRET"`
}

// LoadServerConfig reads and validates the development backend configuration.
// In development an empty JWT secret is allowed; the caller generates one per run.
func LoadServerConfig() (*ServerConfig, error) {
	cfg := &ServerConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse server env: %w", err)
	}

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	origins := cfg.AllowedOrigins[:0]
	for _, origin := range cfg.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	cfg.AllowedOrigins = origins

	if cfg.Environment != EnvDevelopment && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required in %s environment for security", cfg.Environment)
	}

	return cfg, nil
}
