// Package config loads the storefront gateway configuration from YAML and
// STOREFRONT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/b2b-storefront/pkg/catalog"
	"github.com/Sternrassler/b2b-storefront/pkg/logging"
	"github.com/Sternrassler/b2b-storefront/pkg/pagination"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. STOREFRONT_CATALOG_BASE_URL.
const EnvPrefix = "STOREFRONT"

// Config holds all configuration for the gateway.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Feed    FeedConfig    `mapstructure:"feed"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" validate:"min=1024"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// RedisConfig holds Redis connection details.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr" validate:"required,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0,max=15"`
}

// Options returns go-redis options.
func (r RedisConfig) Options() *redis.Options {
	return &redis.Options{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
	}
}

// CatalogConfig holds catalog API client settings.
type CatalogConfig struct {
	BaseURL         string        `mapstructure:"base_url" validate:"required,url"`
	UserAgent       string        `mapstructure:"user_agent" validate:"required"`
	AccountID       string        `mapstructure:"account_id"`
	RateLimit       int           `mapstructure:"rate_limit" validate:"min=0"`
	ErrorThreshold  int           `mapstructure:"error_threshold" validate:"min=5"`
	MaxRetries      int           `mapstructure:"max_retries" validate:"min=0,max=10"`
	InitialBackoff  time.Duration `mapstructure:"initial_backoff" validate:"gt=0"`
	Timeout         time.Duration `mapstructure:"timeout" validate:"gt=0"`
	DefaultCacheTTL time.Duration `mapstructure:"default_cache_ttl" validate:"gt=0"`
}

// ClientConfig converts to a catalog client configuration.
// redisClient may be nil.
func (c CatalogConfig) ClientConfig(redisClient *redis.Client) catalog.Config {
	return catalog.Config{
		Redis:           redisClient,
		BaseURL:         c.BaseURL,
		UserAgent:       c.UserAgent,
		AccountID:       c.AccountID,
		RateLimit:       c.RateLimit,
		ErrorThreshold:  c.ErrorThreshold,
		DefaultCacheTTL: c.DefaultCacheTTL,
		MaxRetries:      c.MaxRetries,
		InitialBackoff:  c.InitialBackoff,
		Timeout:         c.Timeout,
	}
}

// FeedConfig bounds feed draining in the gateway.
type FeedConfig struct {
	MaxPages      int           `mapstructure:"max_pages" validate:"min=1"`
	PageTimeout   time.Duration `mapstructure:"page_timeout" validate:"gt=0"`
	ProgressEvery int           `mapstructure:"progress_every" validate:"min=0"`
}

// DrainConfig converts to a pagination drain configuration.
func (f FeedConfig) DrainConfig() pagination.DrainConfig {
	return pagination.DrainConfig{
		MaxPages:      f.MaxPages,
		Timeout:       f.PageTimeout,
		ProgressEvery: f.ProgressEvery,
	}
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Pretty bool   `mapstructure:"pretty"`
}

// LoggingConfig converts to a logging configuration for service.
func (l LogConfig) LoggingConfig(service string) logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(l.Level)
	cfg.Pretty = l.Pretty
	cfg.Service = service
	return cfg
}

func setDefaults(v *viper.Viper) {
	drain := pagination.DefaultDrainConfig()

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("catalog.base_url", "")
	v.SetDefault("catalog.user_agent", "b2b-storefront/0.1.0")
	v.SetDefault("catalog.account_id", "")
	v.SetDefault("catalog.rate_limit", 10)
	v.SetDefault("catalog.error_threshold", 5)
	v.SetDefault("catalog.max_retries", 2)
	v.SetDefault("catalog.initial_backoff", 500*time.Millisecond)
	v.SetDefault("catalog.timeout", 30*time.Second)
	v.SetDefault("catalog.default_cache_ttl", 5*time.Minute)

	v.SetDefault("feed.max_pages", drain.MaxPages)
	v.SetDefault("feed.page_timeout", drain.Timeout)
	v.SetDefault("feed.progress_every", drain.ProgressEvery)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Load reads configuration with the following priority (highest first):
//  1. Environment variables with STOREFRONT_ prefix (e.g., STOREFRONT_REDIS_ADDR)
//  2. The YAML file at path, or storefront.yaml in . or /etc/storefront when path is ""
//  3. Built-in defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("storefront")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/storefront")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks every field constraint and reports all violations.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		key := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", key, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s (got %v)", key, fe.Tag(), fe.Value()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
