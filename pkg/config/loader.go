// Package config provides configuration loading and validation utilities.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultConfigDir = "./configs"

// legacyEnv maps config keys to the environment variable names used by earlier deployments.
var legacyEnv = map[string]string{
	"bot.token":          "TG_TOKEN",
	"commerce.client_id": "ELASTICPATH_ID",
	"redis.password":     "REDIS_PASSWORD",
}

// Load reads configuration from YAML files and environment variables, validates it, and returns the resulting Config.
func Load() (*Config, *viper.Viper, error) {
	return LoadFrom(defaultConfigDir)
}

// LoadFrom behaves like Load but reads <dir>/<APP_ENV>.yaml.
func LoadFrom(dir string) (*Config, *viper.Viper, error) {
	// missing env files are fine: production passes everything through the environment
	_ = godotenv.Load(".env.local", ".env")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(filepath.Join(dir, env+".yaml"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, name := range legacyEnv {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, name); err != nil {
			return nil, nil, fmt.Errorf("bind env %s: %w", name, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	cfg.AppEnv = env

	return cfg, v, nil
}

// Watch re-decodes the config file whenever it changes and hands valid results to onChange.
func Watch(v *viper.Viper, log *slog.Logger, onChange func(*Config)) {
	if v == nil || onChange == nil {
		return
	}
	if log == nil {
		log = slog.Default()
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		cfg, err := decode(v)
		if err != nil {
			log.Warn("ignoring invalid config change", slog.String("file", e.Name), slog.Any("error", err))
			return
		}

		log.Info("config reloaded", slog.String("file", e.Name))
		onChange(cfg)
	})
	v.WatchConfig()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyLegacyRedisAddr(&cfg)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// applyLegacyRedisAddr honours REDIS_HOST/REDIS_PORT when REDIS_ADDR is not set explicitly.
func applyLegacyRedisAddr(cfg *Config) {
	if _, ok := os.LookupEnv("REDIS_ADDR"); ok {
		return
	}

	host, hasHost := os.LookupEnv("REDIS_HOST")
	if !hasHost || host == "" {
		return
	}

	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	cfg.Redis.Addr = net.JoinHostPort(host, port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.max_size_mb", 100)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age_days", 28)

	v.SetDefault("sentry.enabled", false)

	v.SetDefault("bot.mode", "polling")
	v.SetDefault("bot.timeout", 10*time.Second)

	v.SetDefault("server.port", ":8081")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("commerce.base_url", "https://api.moltin.com")
	v.SetDefault("commerce.timeout", 15*time.Second)
	v.SetDefault("commerce.token_key", "auth_credentials")

	v.SetDefault("session.lock_ttl", 10*time.Second)
	v.SetDefault("session.lock_wait", 3*time.Second)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.per_user.limit", 30)
	v.SetDefault("rate_limit.per_user.window", "1m")
}
