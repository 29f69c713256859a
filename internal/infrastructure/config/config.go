package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Redis     RedisConfig
	Catalogue CatalogueConfig
	Cart      CartConfig
	Breaker   BreakerConfig
	Log       LogConfig
	HTTP      HTTPConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CatalogueConfig holds the external catalogue service settings
type CatalogueConfig struct {
	Host string
	Port int
}

// BaseURL returns the catalogue service root URL
func (c *CatalogueConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}

// CartConfig holds cart storage settings
type CartConfig struct {
	// TTL is how long a cart survives without a write before the store
	// silently discards it.
	TTL time.Duration
	// MonitorInterval is how often the store connection is probed and the
	// active-cart count sampled.
	MonitorInterval time.Duration
}

// BreakerConfig holds circuit breaker tuning for the catalogue client
type BreakerConfig struct {
	CallTimeout    time.Duration
	ErrorThreshold float64
	Window         time.Duration
	Buckets        int
	Cooldown       time.Duration
	MinRequests    int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CART_ prefix (e.g. CART_REDIS_HOST)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("CART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Catalogue: CatalogueConfig{
			Host: v.GetString("catalogue.host"),
			Port: v.GetInt("catalogue.port"),
		},
		Cart: CartConfig{
			TTL:             v.GetDuration("cart.ttl"),
			MonitorInterval: v.GetDuration("cart.monitor_interval"),
		},
		Breaker: BreakerConfig{
			CallTimeout:    v.GetDuration("breaker.call_timeout"),
			ErrorThreshold: v.GetFloat64("breaker.error_threshold"),
			Window:         v.GetDuration("breaker.window"),
			Buckets:        v.GetInt("breaker.buckets"),
			Cooldown:       v.GetDuration("breaker.cooldown"),
			MinRequests:    v.GetInt("breaker.min_requests"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
			IdleTimeout:  v.GetDuration("http.idle_timeout"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "cart"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "redis"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Catalogue.Host == "" {
		cfg.Catalogue.Host = "catalogue"
	}
	if cfg.Catalogue.Port == 0 {
		cfg.Catalogue.Port = 8080
	}
	if cfg.Cart.TTL == 0 {
		cfg.Cart.TTL = time.Hour
	}
	if cfg.Cart.MonitorInterval == 0 {
		cfg.Cart.MonitorInterval = 30 * time.Second
	}
	if cfg.Breaker.CallTimeout == 0 {
		cfg.Breaker.CallTimeout = 3 * time.Second
	}
	if cfg.Breaker.ErrorThreshold == 0 {
		cfg.Breaker.ErrorThreshold = 0.5
	}
	if cfg.Breaker.Window == 0 {
		cfg.Breaker.Window = 10 * time.Second
	}
	if cfg.Breaker.Buckets == 0 {
		cfg.Breaker.Buckets = 10
	}
	if cfg.Breaker.Cooldown == 0 {
		cfg.Breaker.Cooldown = 30 * time.Second
	}
	if cfg.Breaker.MinRequests == 0 {
		cfg.Breaker.MinRequests = 1
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Cart.TTL < time.Second {
		return fmt.Errorf("cart.ttl must be at least one second")
	}
	if c.Breaker.ErrorThreshold < 0 || c.Breaker.ErrorThreshold > 1 {
		return fmt.Errorf("breaker.error_threshold must be between 0 and 1, got %f", c.Breaker.ErrorThreshold)
	}
	if c.Breaker.Buckets < 1 {
		return fmt.Errorf("breaker.buckets must be positive")
	}
	if c.Breaker.Window < time.Duration(c.Breaker.Buckets)*time.Millisecond {
		return fmt.Errorf("breaker.window too small for %d buckets", c.Breaker.Buckets)
	}
	if c.App.Env == "production" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be json in production")
	}
	return nil
}
