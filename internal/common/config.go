// Package common provides shared utilities for the Akumol guardian server.
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the guardian server.
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Auth        AuthConfig    `toml:"auth"`
	Gemini      GeminiConfig  `toml:"gemini"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig selects and configures the storage engine.
// Engine is "surreal" or "memory".
type StorageConfig struct {
	Engine    string `toml:"engine"`
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// AuthConfig holds JWT and credential-change configuration.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
	// TokenExpiry is a duration string, default "24h".
	TokenExpiry string `toml:"token_expiry"`
	// RecentLoginWindow bounds how old a token may be for email or
	// password changes, default "5m".
	RecentLoginWindow string `toml:"recent_login_window"`
}

// GetTokenExpiry parses and returns the token expiry duration.
func (c *AuthConfig) GetTokenExpiry() time.Duration {
	d, err := time.ParseDuration(c.TokenExpiry)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// GetRecentLoginWindow parses and returns the recent-login window.
func (c *AuthConfig) GetRecentLoginWindow() time.Duration {
	d, err := time.ParseDuration(c.RecentLoginWindow)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// GeminiConfig holds Gemini API configuration for the counselor.
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Engine:    "surreal",
			Address:   "ws://localhost:8000",
			Namespace: "akumol",
			Database:  "guardian",
			Username:  "root",
			Password:  "root",
		},
		Auth: AuthConfig{
			JWTSecret:         "dev-jwt-secret-change-in-production",
			TokenExpiry:       "24h",
			RecentLoginWindow: "5m",
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.0-flash",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies AKUMOL_* environment variable overrides.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("AKUMOL_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("AKUMOL_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("AKUMOL_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("AKUMOL_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if v := os.Getenv("AKUMOL_STORAGE_ENGINE"); v != "" {
		config.Storage.Engine = v
	}
	if v := os.Getenv("AKUMOL_STORAGE_ADDRESS"); v != "" {
		config.Storage.Address = v
	}
	if v := os.Getenv("AKUMOL_STORAGE_NAMESPACE"); v != "" {
		config.Storage.Namespace = v
	}
	if v := os.Getenv("AKUMOL_STORAGE_DATABASE"); v != "" {
		config.Storage.Database = v
	}
	if v := os.Getenv("AKUMOL_STORAGE_USERNAME"); v != "" {
		config.Storage.Username = v
	}
	if v := os.Getenv("AKUMOL_STORAGE_PASSWORD"); v != "" {
		config.Storage.Password = v
	}

	if v := os.Getenv("AKUMOL_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
	if v := os.Getenv("AKUMOL_AUTH_TOKEN_EXPIRY"); v != "" {
		config.Auth.TokenExpiry = v
	}
	if v := os.Getenv("AKUMOL_AUTH_RECENT_LOGIN_WINDOW"); v != "" {
		config.Auth.RecentLoginWindow = v
	}

	if v := os.Getenv("AKUMOL_GEMINI_MODEL"); v != "" {
		config.Gemini.Model = v
	}
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveGeminiKey resolves the Gemini API key from environment or config.
func (c *Config) ResolveGeminiKey() string {
	for _, name := range []string{"GEMINI_API_KEY", "AKUMOL_GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return c.Gemini.APIKey
}
