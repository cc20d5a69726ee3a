package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. TASKHUB_SERVER_PORT.
const EnvPrefix = "TASKHUB"

// keys that have no default but must still be readable from the environment
var envOnlyKeys = []string{
	"database.url",
	"auth.jwt_secret",
	"admin.email",
	"admin.full_name",
	"admin.password",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout_seconds", 10)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime_minutes", 5)

	v.SetDefault("auth.issuer", "taskhub-api")
	v.SetDefault("auth.audience", "taskhub-clients")
	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("realtime.send_buffer_size", 64)
	v.SetDefault("realtime.write_timeout_seconds", 5)
	v.SetDefault("realtime.allowed_origins", []string{})

	v.SetDefault("tasks.default_page_size", 20)
	v.SetDefault("tasks.max_page_size", 100)

	v.SetDefault("notifications.archive", true)
	v.SetDefault("notifications.retention_days", 30)
	v.SetDefault("notifications.prune_schedule", "@daily")
}

// Load reads configuration from environment variables and, when present, a
// config.yaml in the working directory. Environment variables take precedence.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// working directory for config.yaml and tolerates its absence.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if (cfg.Admin.Email == "") != (cfg.Admin.Password == "") {
		return fmt.Errorf("config validation failed: admin.email and admin.password must be set together")
	}
	return nil
}
