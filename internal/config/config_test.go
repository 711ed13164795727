package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Port: got %q, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Path != "spark.db" {
		t.Errorf("Database.Path: got %q", cfg.Database.Path)
	}
	if !cfg.Automation.ExecuteOnCreate {
		t.Error("ExecuteOnCreate should default to true")
	}
	if cfg.Auth.AccessTokenDuration != 15*time.Minute {
		t.Errorf("AccessTokenDuration: got %v", cfg.Auth.AccessTokenDuration)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SPARK_PORT", "9090")
	t.Setenv("SPARK_LOG_LEVEL", "debug")
	t.Setenv("SPARK_AUTOMATION_EXECUTE_ON_CREATE", "false")
	t.Setenv("SPARK_ACCESS_TOKEN_DURATION", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Port: got %q, want 9090", cfg.Server.Port)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("Level: got %q, want debug", cfg.Logger.Level)
	}
	if cfg.Automation.ExecuteOnCreate {
		t.Error("ExecuteOnCreate should be false")
	}
	if cfg.Auth.AccessTokenDuration != 30*time.Minute {
		t.Errorf("AccessTokenDuration: got %v", cfg.Auth.AccessTokenDuration)
	}
}

func TestLoadBadKey(t *testing.T) {
	t.Setenv("SPARK_ACCESS_TOKEN_KEY", "not-hex")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-hex key")
	}

	t.Setenv("SPARK_ACCESS_TOKEN_KEY", "abcd")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for short key")
	}
}
