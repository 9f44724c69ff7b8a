package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure for the whole service.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Site     SiteConfig     `mapstructure:"site"`
	Store    StoreConfig    `mapstructure:"store"`
	Server   ServerConfig   `mapstructure:"server"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	AddSource   bool   `mapstructure:"add_source"`
	ServiceName string `mapstructure:"service_name"`
	LogFile     string `mapstructure:"log_file"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"`
	Compress    bool   `mapstructure:"compress"`
}

// RedisConfig holds settings for the cache tier connection.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// PostgresConfig holds settings for the durable tier connection.
type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

// BrowserConfig holds settings for the headless browser and the handle pool.
type BrowserConfig struct {
	Headless        bool          `mapstructure:"headless"`
	IgnoreTLSErrors bool          `mapstructure:"ignore_tls_errors"`
	PoolCapacity    int           `mapstructure:"pool_capacity"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ReapInterval    time.Duration `mapstructure:"reap_interval"`
	StepTimeout     time.Duration `mapstructure:"step_timeout"`
}

// SiteConfig holds the target-site parameters. Selectors live with the flow
// code; only the knobs an operator may need to change are configurable.
type SiteConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	PinCode     string        `mapstructure:"pin_code"`
	SettleDelay time.Duration `mapstructure:"settle_delay"`
}

// StoreConfig holds session persistence settings.
type StoreConfig struct {
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// ServerConfig holds settings for the HTTP surface.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// SetDefaults registers every default on the given viper instance. Called
// before reading config files or the environment so partial configs work.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "grocery-cart-automater")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("postgres.url", "postgres://localhost:5432/grocery?sslmode=disable")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.pool_capacity", 8)
	v.SetDefault("browser.idle_timeout", 5*time.Minute)
	v.SetDefault("browser.reap_interval", 30*time.Second)
	v.SetDefault("browser.step_timeout", 30*time.Second)

	v.SetDefault("site.base_url", "https://www.blinkit.com")
	v.SetDefault("site.pin_code", "110001")
	v.SetDefault("site.settle_delay", 2*time.Second)

	v.SetDefault("store.session_ttl", time.Hour)

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
}

// Load unmarshals the viper state into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewDefaultConfig returns a Config populated with defaults only. Used by
// tests and as a fallback when no config file is present.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return cfg
}

// Validate sanity-checks ranges that would otherwise fail in confusing ways
// deep inside the browser or store layers.
func (c *Config) Validate() error {
	if c.Browser.PoolCapacity < 1 {
		return fmt.Errorf("browser.pool_capacity must be at least 1, got %d", c.Browser.PoolCapacity)
	}
	if c.Browser.StepTimeout <= 0 {
		return fmt.Errorf("browser.step_timeout must be positive, got %s", c.Browser.StepTimeout)
	}
	if c.Store.SessionTTL <= 0 {
		return fmt.Errorf("store.session_ttl must be positive, got %s", c.Store.SessionTTL)
	}
	if c.Site.BaseURL == "" {
		return fmt.Errorf("site.base_url must not be empty")
	}
	if c.Browser.IdleTimeout > 0 && c.Browser.ReapInterval <= 0 {
		return fmt.Errorf("browser.reap_interval must be positive when idle_timeout is set")
	}
	return nil
}
