package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/praxis-labs/veracity/internal/collect"
	"github.com/praxis-labs/veracity/internal/enrich"
	"github.com/praxis-labs/veracity/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig            `yaml:"store" mapstructure:"store"`
	Collect   collect.Config         `yaml:"collect" mapstructure:"collect"`
	Catalog   CatalogConfig          `yaml:"catalog" mapstructure:"catalog"`
	Anthropic AnthropicConfig        `yaml:"anthropic" mapstructure:"anthropic"`
	Enrich    enrich.AnthropicConfig `yaml:"enrich" mapstructure:"enrich"`
	Keywords  KeywordsConfig         `yaml:"keywords" mapstructure:"keywords"`
	Jobs      JobsConfig             `yaml:"jobs" mapstructure:"jobs"`
	Temporal  TemporalConfig         `yaml:"temporal" mapstructure:"temporal"`
	Notify    NotifyConfig           `yaml:"notify" mapstructure:"notify"`
	Server    ServerConfig           `yaml:"server" mapstructure:"server"`
	Log       LogConfig              `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// CatalogConfig points at the directory source catalog file.
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// AnthropicConfig holds Anthropic API credentials.
type AnthropicConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// KeywordsConfig lists suspicious keywords for the scanner enricher.
type KeywordsConfig struct {
	Suspicious []string `yaml:"suspicious" mapstructure:"suspicious"`
}

// JobsConfig configures background verification.
type JobsConfig struct {
	Backend       string `yaml:"backend" mapstructure:"backend"` // "local" or "temporal"
	MaxConcurrent int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// TemporalConfig configures the Temporal connection for the temporal backend.
type TemporalConfig struct {
	HostPort  string `yaml:"host_port" mapstructure:"host_port"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
}

// NotifyConfig configures the outbound event webhook.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VERACITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "veracity.db")
	v.SetDefault("store.pool.max_conns", 10)
	v.SetDefault("store.pool.min_conns", 2)
	v.SetDefault("collect.cache_ttl", "1h")
	v.SetDefault("collect.max_retries", 3)
	v.SetDefault("collect.retry_delay", "1s")
	v.SetDefault("collect.max_response_bytes", 10<<20)
	v.SetDefault("collect.connect_timeout", "10s")
	v.SetDefault("collect.total_timeout", "30s")
	v.SetDefault("collect.per_host_rate", 5)
	v.SetDefault("catalog.path", "sources.yaml")
	v.SetDefault("enrich.model", "claude-haiku-4-5-20251001")
	v.SetDefault("enrich.max_tokens", 1024)
	v.SetDefault("jobs.backend", "local")
	v.SetDefault("jobs.max_concurrent", 4)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
