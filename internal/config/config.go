// Package config provides application configuration management with
// support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App        AppConfig
	Logger     LoggerConfig
	Server     ServerConfig
	Database   DatabaseConfig
	Search     SearchConfig
	Auth       AuthConfig
	Automation AutomationConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	// DataDir is the base directory for the database, search index and
	// generated auth key.
	DataDir string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins  []string      // Allowed CORS origins (default: *)
}

// DatabaseConfig holds SQLite configuration.
type DatabaseConfig struct {
	Path string // Path to the SQLite database file
}

// SearchConfig holds full-text search index configuration.
type SearchConfig struct {
	DataPath string // Directory holding the bleve index
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key for access tokens (32 bytes, hex-encoded
	// in the environment). Generated at startup when absent.
	AccessTokenKey []byte
	// Access token lifetime, e.g. 15m.
	AccessTokenDuration time.Duration
}

// AutomationConfig holds automation engine policy.
type AutomationConfig struct {
	// ExecuteOnCreate applies actions immediately when an automation is
	// submitted. When false, actions stay pending until approval.
	ExecuteOnCreate bool
}

// Load builds the configuration from defaults, then a .env file if
// present, then environment variables.
func Load() (*Config, error) {
	loadDotEnv(".env")

	dataDir := envOr("SPARK_DATA_DIR", "data")

	cfg := &Config{
		App: AppConfig{
			Environment: envOr("SPARK_ENV", "development"),
			DataDir:     dataDir,
		},
		Logger: LoggerConfig{
			Level: envOr("SPARK_LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:         envOr("SPARK_PORT", "8080"),
			ReadTimeout:  envDuration("SPARK_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: envDuration("SPARK_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  envDuration("SPARK_IDLE_TIMEOUT", 60*time.Second),
			CORSOrigins:  envList("SPARK_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Path: envOr("SPARK_DB_PATH", filepath.Join(dataDir, "spark.db")),
		},
		Search: SearchConfig{
			DataPath: envOr("SPARK_SEARCH_PATH", dataDir),
		},
		Auth: AuthConfig{
			AccessTokenDuration: envDuration("SPARK_ACCESS_TOKEN_DURATION", 15*time.Minute),
		},
		Automation: AutomationConfig{
			ExecuteOnCreate: envBool("SPARK_AUTOMATION_EXECUTE_ON_CREATE", true),
		},
	}

	if keyHex := os.Getenv("SPARK_ACCESS_TOKEN_KEY"); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("decode SPARK_ACCESS_TOKEN_KEY: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("SPARK_ACCESS_TOKEN_KEY must be 32 bytes, got %d", len(key))
		}
		cfg.Auth.AccessTokenKey = key
	}

	return cfg, nil
}

// loadDotEnv reads KEY=VALUE pairs from a .env file into the process
// environment. Existing environment variables win.
func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
