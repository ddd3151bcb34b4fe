// Package config loads the daemon configuration: a JSON5 file overlaid
// with environment variables. Secrets (Postgres DSN, gateway tokens) are
// env-only and never read from the file.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/titanous/json5"
)

// Config is the root configuration for the helpdesk daemon.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Gateways GatewaysConfig `json:"gateways"`
	Security SecurityConfig `json:"security"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig configures the HTTP/WebSocket listener.
type ServerConfig struct {
	Host           string   `json:"host" env:"HELPDESK_HOST"`
	Port           int      `json:"port" env:"HELPDESK_PORT"`
	AllowedOrigins []string `json:"allowed_origins" env:"HELPDESK_ALLOWED_ORIGINS" envSeparator:","`
}

// DatabaseConfig selects the storage backend. The DSN is a secret and
// comes from the environment only.
type DatabaseConfig struct {
	// Mode is "memory" (default) or "postgres".
	Mode        string `json:"mode" env:"HELPDESK_DB_MODE"`
	PostgresDSN string `json:"-" env:"HELPDESK_POSTGRES_DSN"`
}

// GatewaysConfig holds per-channel gateway settings.
type GatewaysConfig struct {
	WhatsApp WhatsAppConfig `json:"whatsapp"`
	Viber    ViberConfig    `json:"viber"`
}

// WhatsAppConfig configures the WhatsApp bridge gateway.
type WhatsAppConfig struct {
	Enabled   bool   `json:"enabled" env:"HELPDESK_WHATSAPP_ENABLED"`
	BridgeURL string `json:"bridge_url" env:"HELPDESK_WHATSAPP_BRIDGE_URL"`
	Token     string `json:"-" env:"HELPDESK_WHATSAPP_TOKEN"`
}

// ViberConfig configures the Viber REST gateway.
type ViberConfig struct {
	Enabled bool   `json:"enabled" env:"HELPDESK_VIBER_ENABLED"`
	APIURL  string `json:"api_url" env:"HELPDESK_VIBER_API_URL"`
	Token   string `json:"-" env:"HELPDESK_VIBER_TOKEN"`
}

// SecurityConfig configures password hashing and login sessions.
type SecurityConfig struct {
	HashAlgorithm     string `json:"hash_algorithm" env:"HELPDESK_HASH_ALGORITHM"`
	SessionTTLMinutes int    `json:"session_ttl_minutes" env:"HELPDESK_SESSION_TTL_MINUTES"`
}

// LoggingConfig configures slog.
type LoggingConfig struct {
	Level string `json:"level" env:"HELPDESK_LOG_LEVEL"` // debug, info, warn, error
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Mode: "memory",
		},
		Security: SecurityConfig{
			HashAlgorithm:     "sha256",
			SessionTTLMinutes: 12 * 60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars. A missing
// file is not an error; env vars still apply over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case os.IsNotExist(err):
		// defaults + env only
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
