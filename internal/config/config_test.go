package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/agrisetu")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "5000" {
		t.Fatalf("expected default port 5000, got %q", cfg.Port)
	}
	if cfg.TokenTTL != 30*24*time.Hour {
		t.Fatalf("expected 30-day token ttl, got %v", cfg.TokenTTL)
	}
	if cfg.MaxRetries != 5 {
		t.Fatalf("expected 5 max retries, got %d", cfg.MaxRetries)
	}
	if cfg.RetryMaxDelay != 10*time.Second {
		t.Fatalf("expected 10s retry cap, got %v", cfg.RetryMaxDelay)
	}
	if cfg.MinPoolSize != 2 || cfg.MaxPoolSize != 10 {
		t.Fatalf("expected pool bounds 2/10, got %d/%d", cfg.MinPoolSize, cfg.MaxPoolSize)
	}
}

func TestLoadRequiresMongoURI(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	t.Setenv("JWT_SECRET", "test-secret")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "MONGODB_URI") {
		t.Fatalf("expected MONGODB_URI error, got %v", err)
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/agrisetu")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}
}

func TestLoadShutdownOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ShutdownPeriod != 3*time.Second {
		t.Fatalf("expected 3s shutdown period, got %v", cfg.ShutdownPeriod)
	}
}

func TestLoadRejectsBadRetryCount(t *testing.T) {
	setRequired(t)
	t.Setenv("MONGODB_MAX_RETRIES", "zero")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid retry count")
	}
}

func TestAddress(t *testing.T) {
	c := Config{Port: "5000"}
	if c.Address() != ":5000" {
		t.Fatalf("expected :5000, got %q", c.Address())
	}
	c.Port = ":9000"
	if c.Address() != ":9000" {
		t.Fatalf("expected :9000, got %q", c.Address())
	}
}
