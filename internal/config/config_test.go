package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OrderHistoryTTL != 5*time.Minute {
		t.Fatalf("order history ttl = %s, want 5m", cfg.OrderHistoryTTL)
	}
	if cfg.TypingTimeout != 3*time.Second {
		t.Fatalf("typing timeout = %s, want 3s", cfg.TypingTimeout)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("server port = %s", cfg.ServerPort)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.test")
	t.Setenv("SESSION_TIMEOUT", "120")
	t.Setenv("TYPING_TIMEOUT", "1500ms")
	t.Setenv("RECONNECT_ATTEMPTS", "2")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIBaseURL != "https://api.example.test" {
		t.Fatalf("api base url = %s", cfg.APIBaseURL)
	}
	if cfg.SessionTimeout != 2*time.Minute {
		t.Fatalf("session timeout = %s, want 2m", cfg.SessionTimeout)
	}
	if cfg.TypingTimeout != 1500*time.Millisecond {
		t.Fatalf("typing timeout = %s", cfg.TypingTimeout)
	}
	if cfg.ReconnectAttempts != 2 {
		t.Fatalf("reconnect attempts = %d", cfg.ReconnectAttempts)
	}
}

func TestLoad_ConfigFileAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portal.yaml")
	if err := os.WriteFile(path, []byte("server_port: \"9090\"\norder_history_ttl: 10m\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("server-port", "", "")
	if err := flags.Parse([]string{"--server-port=7070"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OrderHistoryTTL != 10*time.Minute {
		t.Fatalf("order history ttl = %s, want 10m", cfg.OrderHistoryTTL)
	}
	if cfg.ServerPort != "7070" {
		t.Fatalf("flag should win over file, got port %s", cfg.ServerPort)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("ORDER_HISTORY_TTL", "0s")
	if _, err := Load("", nil); err == nil {
		t.Fatalf("expected validation error for zero ttl")
	}
}
