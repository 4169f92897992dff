// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config carries everything the server needs at startup. Values come from
// an optional config.yaml and environment variables (env wins), so a bare
// DATABASE_URL in the environment is enough to run.
type Config struct {
	Addr         string        `mapstructure:"addr"`
	DatabaseURL  string        `mapstructure:"database_url"`
	RedisAddr    string        `mapstructure:"redis_addr"`
	RedisDB      int           `mapstructure:"redis_db"`
	EventQueue   string        `mapstructure:"event_queue"`
	StoreTimeout time.Duration `mapstructure:"store_timeout"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`
	LogLevel     string        `mapstructure:"log_level"`
}

// Load reads configuration from ./config.yaml (if present) and the
// environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("addr", ":8080")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("event_queue", "lobby_events")
	v.SetDefault("store_timeout", "5s")
	v.SetDefault("ping_period", "30s")
	v.SetDefault("log_level", "info")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database_url (DATABASE_URL) is required")
	}
	return &cfg, nil
}
