package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	DB         DBConfig         `mapstructure:"db"`
	Completion CompletionConfig `mapstructure:"completion"`
	RunStore   RunStoreConfig   `mapstructure:"run_store"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Digest     DigestConfig     `mapstructure:"digest"`
	Auth       AuthConfig       `mapstructure:"auth"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
	// AllowedOrigins are host patterns (path.Match syntax, e.g. "*.example.com")
	// trusted for CORS with credentials and for the pipeline websocket.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	// Output is stdout, stderr or a file path.
	Output string `mapstructure:"output"`
}

// DBConfig configures PostgreSQL. An empty DSN selects the in-memory store.
type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

// CompletionConfig selects the text-generation backend. Credentials come from Secrets.
type CompletionConfig struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type RunStoreConfig struct {
	Backend   string        `mapstructure:"backend"`
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	MaxBytes  int64         `mapstructure:"max_bytes"`
	// AllowPrivate permits loopback, private and link-local targets.
	AllowPrivate bool `mapstructure:"allow_private"`
}

type AuditConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Agent   string `mapstructure:"agent"`
}

type DigestConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
	TopN     int    `mapstructure:"top_n"`
}

type AuthConfig struct {
	Issuer   string        `mapstructure:"issuer"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DEALFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("log.output", "stdout")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")

	v.SetDefault("completion.provider", "openai")
	v.SetDefault("completion.model", "gpt-4o")
	v.SetDefault("completion.base_url", "")
	v.SetDefault("completion.temperature", 0.2)
	v.SetDefault("completion.max_tokens", 4096)
	// Zero leaves the remote call's own limit in charge.
	v.SetDefault("completion.timeout", "0s")

	v.SetDefault("run_store.backend", "memory")
	v.SetDefault("run_store.redis_addr", "localhost:6379")
	v.SetDefault("run_store.redis_db", 0)
	v.SetDefault("run_store.ttl", "72h")

	v.SetDefault("fetch.timeout", "20s")
	v.SetDefault("fetch.user_agent", "dealflow/1.0")
	v.SetDefault("fetch.max_bytes", 4<<20)
	v.SetDefault("fetch.allow_private", false)

	v.SetDefault("audit.base_url", "")
	v.SetDefault("audit.agent", "dealflow-service")

	v.SetDefault("digest.enabled", false)
	v.SetDefault("digest.schedule", "0 0 8 * * *")
	v.SetDefault("digest.top_n", 5)

	v.SetDefault("auth.issuer", "dealflow")
	v.SetDefault("auth.token_ttl", "720h")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
