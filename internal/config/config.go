// Package config provides configuration management for the Nocturne memory
// server. Settings come from environment variables with the NOCTURNE_ prefix,
// optionally overridden by a YAML config file pointed to by
// NOCTURNE_CONFIG_FILE (file values take precedence over environment values).
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the Nocturne server.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Neo4j    Neo4jConfig    `yaml:"neo4j"`
	Journal  JournalConfig  `yaml:"journal"`
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host string `yaml:"host"` // Server host (default: 127.0.0.1)
	Port int    `yaml:"port"` // Server port (default: 8000)
	// RateLimit is the sustained requests-per-second budget per server;
	// RateBurst is the burst allowance. Zero RateLimit disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// Neo4jConfig contains graph database connection settings.
type Neo4jConfig struct {
	URI      string `yaml:"uri"`      // Bolt URI (default: bolt://localhost:7687)
	Username string `yaml:"username"` // default: neo4j
	Password string `yaml:"password"`
	Database string `yaml:"database"` // empty uses the driver default database
}

// JournalConfig contains snapshot journal settings.
type JournalConfig struct {
	Path string `yaml:"path"` // SQLite path (default: ./data/journal.db)
}

// SecurityConfig contains authentication settings.
type SecurityConfig struct {
	APIToken string `yaml:"api_token"` // empty disables token auth
}

// Load builds the configuration from environment variables, then overlays the
// YAML file named by NOCTURNE_CONFIG_FILE if set.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:      getEnv("NOCTURNE_HOST", "127.0.0.1"),
			Port:      getEnvInt("NOCTURNE_PORT", 8000),
			RateLimit: getEnvFloat("NOCTURNE_RATE_LIMIT", 50),
			RateBurst: getEnvInt("NOCTURNE_RATE_BURST", 100),
		},
		Neo4j: Neo4jConfig{
			URI:      getEnv("NOCTURNE_NEO4J_URI", "bolt://localhost:7687"),
			Username: getEnv("NOCTURNE_NEO4J_USERNAME", "neo4j"),
			Password: getEnv("NOCTURNE_NEO4J_PASSWORD", "password"),
			Database: getEnv("NOCTURNE_NEO4J_DATABASE", ""),
		},
		Journal: JournalConfig{
			Path: getEnv("NOCTURNE_JOURNAL_PATH", "./data/journal.db"),
		},
		Security: SecurityConfig{
			APIToken: getEnv("NOCTURNE_API_TOKEN", ""),
		},
	}

	if path := os.Getenv("NOCTURNE_CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("config: invalid server port %d", cfg.Server.Port)
	}
	return cfg, nil
}

// overlayFile applies the YAML file at path on top of the current values.
// Fields absent from the file keep their environment/default value.
func (c *Config) overlayFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return nil
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. Unparseable values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default
// value. Unparseable values fall back to the default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
