// Package config loads service configuration.
//
// Precedence: environment > config file > defaults. Environment variables
// use the VACATIONS_ prefix with dots replaced by underscores, e.g.
// VACATIONS_SERVER_PORT. .env.local and .env are loaded first when present
// and never override variables already set.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "VACATIONS"

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	Oracle  OracleConfig  `mapstructure:"oracle"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Import  ImportConfig  `mapstructure:"import"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Manual  ManualConfig  `mapstructure:"manual"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// StoreConfig points at the SQLite database file. ":memory:" is allowed;
// an empty path runs the server without a store.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// OracleConfig configures the OpenAI-compatible extraction service.
type OracleConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	DefaultYear int           `mapstructure:"default_year"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// RedisConfig enables the distributed employee lock when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// ImportConfig paces oracle calls during bulk import. Rate is calls per
// second; zero means unlimited.
type ImportConfig struct {
	Rate          float64       `mapstructure:"rate"`
	Burst         int           `mapstructure:"burst"`
	WatchDir      string        `mapstructure:"watch_dir"`
	WatchInterval time.Duration `mapstructure:"watch_interval"`
}

// WebhookConfig limits deliveries per client address. Rate zero disables it.
type WebhookConfig struct {
	Rate  float64 `mapstructure:"rate"`
	Burst int     `mapstructure:"burst"`
}

type ManualConfig struct {
	IDPrefix string `mapstructure:"id_prefix"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration. An empty path searches config.yaml in ./config
// and the working directory; a missing file is not an error then.
func Load(path string) (*Config, error) {
	loadDotenv()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The key name used by the chat export tooling.
	v.BindEnv("oracle.api_key", EnvPrefix+"_ORACLE_API_KEY", "DEEPSEEK_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})

	v.SetDefault("store.path", "vacations.db")

	v.SetDefault("oracle.base_url", "https://api.deepseek.com/v1")
	v.SetDefault("oracle.api_key", "")
	v.SetDefault("oracle.model", "deepseek-chat")
	v.SetDefault("oracle.max_tokens", 200)
	v.SetDefault("oracle.default_year", 2026)
	v.SetDefault("oracle.timeout", "0s")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", "10s")

	v.SetDefault("import.rate", 2.0)
	v.SetDefault("import.burst", 1)
	v.SetDefault("import.watch_dir", "")
	v.SetDefault("import.watch_interval", "1m")

	v.SetDefault("webhook.rate", 5.0)
	v.SetDefault("webhook.burst", 10)

	v.SetDefault("manual.id_prefix", "manual_")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func loadDotenv() {
	for _, f := range []string{".env.local", ".env"} {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

// Validate checks values the service cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Oracle.DefaultYear < 2000 || c.Oracle.DefaultYear > 2100 {
		return fmt.Errorf("oracle.default_year out of range: %d", c.Oracle.DefaultYear)
	}
	if c.Oracle.MaxTokens <= 0 {
		return fmt.Errorf("oracle.max_tokens must be positive, got %d", c.Oracle.MaxTokens)
	}
	if c.Import.Rate < 0 || c.Webhook.Rate < 0 {
		return errors.New("rates must not be negative")
	}
	if c.Import.Burst < 1 {
		return fmt.Errorf("import.burst must be at least 1, got %d", c.Import.Burst)
	}
	if c.Webhook.Rate > 0 && c.Webhook.Burst < 1 {
		return fmt.Errorf("webhook.burst must be at least 1, got %d", c.Webhook.Burst)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}
