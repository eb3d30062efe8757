package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	cfg, err := Load("does-not-exist.yaml", true)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if cfg.Server.HTTPAddr != ":8080" {
		t.Fatalf("http_addr=%q", cfg.Server.HTTPAddr)
	}
	if cfg.Completion.Temperature != 0.2 || cfg.Completion.MaxTokens != 4096 {
		t.Fatalf("completion=%+v", cfg.Completion)
	}
	if cfg.Completion.Timeout != 0 {
		t.Fatalf("timeout=%s want 0", cfg.Completion.Timeout)
	}
	if cfg.RunStore.TTL != 72*time.Hour {
		t.Fatalf("run_store.ttl=%s", cfg.RunStore.TTL)
	}
	if cfg.DB.DSN != "" {
		t.Fatalf("dsn=%q want empty", cfg.DB.DSN)
	}
	if cfg.Auth.Issuer != "dealflow" || cfg.Auth.TokenTTL != 720*time.Hour {
		t.Fatalf("auth=%+v", cfg.Auth)
	}
	if cfg.Log.Output != "stdout" {
		t.Fatalf("log.output=%q", cfg.Log.Output)
	}
	if len(cfg.Server.AllowedOrigins) != 0 || cfg.Fetch.AllowPrivate {
		t.Fatalf("server=%+v fetch=%+v want locked down", cfg.Server, cfg.Fetch)
	}
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := []byte("completion:\n  provider: anthropic\n  model: claude-sonnet-4-5\nfetch:\n  timeout: 5s\nserver:\n  allowed_origins: [\"app.example.com\", \"*.dealflow.dev\"]\n")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("DEALFLOW_COMPLETION_MODEL", "override-model")

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if cfg.Completion.Provider != "anthropic" {
		t.Fatalf("provider=%q", cfg.Completion.Provider)
	}
	if cfg.Completion.Model != "override-model" {
		t.Fatalf("model=%q want env override", cfg.Completion.Model)
	}
	if cfg.Fetch.Timeout != 5*time.Second {
		t.Fatalf("fetch.timeout=%s", cfg.Fetch.Timeout)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "*.dealflow.dev" {
		t.Fatalf("allowed_origins=%v", cfg.Server.AllowedOrigins)
	}
}

func TestSecrets_CompletionKey(t *testing.T) {
	t.Setenv("DEALFLOW_OPENAI_API_KEY", "sk-openai")
	t.Setenv("DEALFLOW_ANTHROPIC_API_KEY", " sk-ant ")
	s, err := LoadSecrets()
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got := s.CompletionKey("openai"); got != "sk-openai" {
		t.Fatalf("openai key=%q", got)
	}
	if got := s.CompletionKey("Anthropic"); got != "sk-ant" {
		t.Fatalf("anthropic key=%q", got)
	}
	if got := s.CompletionKey("gemini"); got != "" {
		t.Fatalf("gemini key=%q want empty", got)
	}
}
