package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "editor.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadYAMLThenEnv(t *testing.T) {
	p := writeConfig(t, `
env: production
api:
  base_url: https://api.example.com/v1/
  timeout: 10
  max_retries: 1
stream:
  transport: SSE
  url: https://api.example.com/v1/progress
  reconnect_min: 250ms
  reconnect_max: 100ms
progress:
  expected_classes: 8
`)
	t.Setenv("NB_EDITOR_CONFIG_PATH", p)
	t.Setenv("NB_HTTP_ADDR", ":9999")
	t.Setenv("NB_EXPECTED_CLASSES", "6")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "https://api.example.com/v1" {
		t.Fatalf("base url: got=%q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout.Duration != 10*time.Second {
		t.Fatalf("timeout: want=10s got=%v", cfg.API.Timeout.Duration)
	}
	if cfg.Stream.Transport != TransportSSE {
		t.Fatalf("transport: got=%q", cfg.Stream.Transport)
	}
	if cfg.Stream.ReconnectMax.Duration != 250*time.Millisecond {
		t.Fatalf("reconnect max clamped: got=%v", cfg.Stream.ReconnectMax.Duration)
	}
	if cfg.HTTP.Addr != ":9999" || cfg.Progress.ExpectedClasses != 6 {
		t.Fatalf("env overrides: addr=%q expected=%d", cfg.HTTP.Addr, cfg.Progress.ExpectedClasses)
	}
	if cfg.Redis.FlagTTL.Duration != 30*time.Minute {
		t.Fatalf("default flag ttl lost: %v", cfg.Redis.FlagTTL.Duration)
	}
}

func TestLoadRequiresAPIURL(t *testing.T) {
	t.Setenv("NB_EDITOR_CONFIG_PATH", writeConfig(t, "env: development\n"))
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "BaseURL") {
		t.Fatalf("want BaseURL validation error got=%v", err)
	}
}

func TestLoadRedisTransportNeedsAddr(t *testing.T) {
	t.Setenv("NB_EDITOR_CONFIG_PATH", writeConfig(t, "api:\n  base_url: http://localhost:8080\n"))
	t.Setenv("NB_STREAM_TRANSPORT", "redis")
	t.Setenv("REDIS_ADDR", "")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "Addr") {
		t.Fatalf("want redis addr validation error got=%v", err)
	}

	t.Setenv("REDIS_ADDR", "localhost:6379")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Stream.URL != "" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("redis config: %+v", cfg.Redis)
	}
}

func TestLoadWithoutStreamURL(t *testing.T) {
	t.Setenv("NB_EDITOR_CONFIG_PATH", writeConfig(t, "api:\n  base_url: http://localhost:8080\n"))
	t.Setenv("NB_STREAM_TRANSPORT", "")
	t.Setenv("NB_STREAM_URL", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Stream.Transport != TransportSSE || cfg.Stream.URL != "" {
		t.Fatalf("stream: %+v", cfg.Stream)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("NB_EDITOR_CONFIG_PATH", writeConfig(t, "api:\n  base_url: http://x.test\n  timeout: soon\n"))
	if _, err := Load(); err == nil {
		t.Fatalf("want duration parse error")
	}
}
