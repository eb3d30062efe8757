package config

import (
	"strings"

	"github.com/caarlos0/env/v11"
)

// Secrets are read from the environment only so they never end up in a YAML file.
type Secrets struct {
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	AuditAPIKey     string `env:"AUDIT_API_KEY"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	// JWTSecret enables bearer auth on /api when set.
	JWTSecret string `env:"JWT_SECRET"`
}

func LoadSecrets() (Secrets, error) {
	var s Secrets
	if err := env.ParseWithOptions(&s, env.Options{Prefix: "DEALFLOW_"}); err != nil {
		return Secrets{}, err
	}
	return s, nil
}

// CompletionKey returns the credential for the configured provider, or "" when none is set.
func (s Secrets) CompletionKey(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "anthropic":
		return strings.TrimSpace(s.AnthropicAPIKey)
	case "gemini":
		return strings.TrimSpace(s.GeminiAPIKey)
	default:
		return strings.TrimSpace(s.OpenAIAPIKey)
	}
}
