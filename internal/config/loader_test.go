package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTPPort != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Fatalf("expected default session TTL, got %v", cfg.SessionTTL)
	}
	if cfg.AMQPURL != "" {
		t.Fatalf("expected queue publishing disabled by default, got %q", cfg.AMQPURL)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := strings.Join([]string{
		"http_port: 9000",
		"session_ttl: 1h",
		"log_level: debug",
		"require_review_for_validator_move: true",
	}, "\n")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("LABBOOK_HTTP_PORT", "9100")
	t.Setenv("LABBOOK_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTPPort != 9100 {
		t.Fatalf("expected environment port to win, got %d", cfg.HTTPPort)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected environment log level to win, got %q", cfg.LogLevel)
	}
	if cfg.SessionTTL != time.Hour {
		t.Fatalf("expected file session TTL, got %v", cfg.SessionTTL)
	}
	if !cfg.RequireReviewForValidatorMove {
		t.Fatal("expected review policy from file")
	}
}

func TestLoad_ReportsInvalidValues(t *testing.T) {
	t.Setenv("LABBOOK_HTTP_PORT", "not-a-port")
	t.Setenv("LABBOOK_SESSION_TTL", "-5m")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error for invalid environment values")
	}
	for _, name := range []string{"LABBOOK_HTTP_PORT", "LABBOOK_SESSION_TTL"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("expected %s to be reported, got %v", name, err)
		}
	}
}

func TestLoad_RejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("session_ttl: [nope"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}
