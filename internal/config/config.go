package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	RefHub   RefHubConfig   `mapstructure:"refhub"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// ServerConfig holds HTTP API configuration
type ServerConfig struct {
	Port            int    `mapstructure:"port"`
	Host            string `mapstructure:"host"`
	MetricsEnabled  bool   `mapstructure:"metrics_enabled"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RefHubConfig holds upstream site configuration
type RefHubConfig struct {
	BaseURL              string   `mapstructure:"base_url"`
	Timeout              int      `mapstructure:"timeout"`
	MaxRequestsPerSecond int      `mapstructure:"max_requests_per_second"`
	CrawlDelayMs         int      `mapstructure:"crawl_delay_ms"`
	CrawlMaxPages        int      `mapstructure:"crawl_max_pages"`
	PrefetchWorkers      int      `mapstructure:"prefetch_workers"`
	UserAgent            string   `mapstructure:"user_agent"`
	Proxies              []string `mapstructure:"proxies"`
	InsecureSkipVerify   bool     `mapstructure:"insecure_skip_verify"`
}

func (c RefHubConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c RefHubConfig) CrawlDelay() time.Duration {
	return time.Duration(c.CrawlDelayMs) * time.Millisecond
}

// LogConfig controls logrus output
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig holds the search archive connection
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

// RedisConfig holds the search cache connection
type RedisConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	Database   int    `mapstructure:"database"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
	KeyPrefix  string `mapstructure:"key_prefix"`

	ConsumerGroup string `mapstructure:"consumer_group"`
	MinIdleTime   int    `mapstructure:"min_idle_time"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c RedisConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

func (c RedisConfig) MinIdle() time.Duration {
	return time.Duration(c.MinIdleTime) * time.Second
}

// Load loads configuration from config.yaml with environment variable overrides.
// The current directory is always searched; extra paths are searched after it.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("config.yaml file not found in search paths")
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.RefHub.BaseURL == "" {
		return errors.New("refhub.base_url must not be empty")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive, got %d", c.Server.Port)
	}
	if c.RefHub.CrawlMaxPages < 1 {
		c.RefHub.CrawlMaxPages = 1
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5181)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.metrics_enabled", true)
	v.SetDefault("server.shutdown_timeout", 5)

	v.SetDefault("refhub.base_url", "https://refhub.ir/fa/search/")
	v.SetDefault("refhub.timeout", 30)
	v.SetDefault("refhub.max_requests_per_second", 0)
	v.SetDefault("refhub.crawl_delay_ms", 500)
	v.SetDefault("refhub.crawl_max_pages", 10)
	v.SetDefault("refhub.prefetch_workers", 2)
	v.SetDefault("refhub.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("refhub.proxies", []string{})
	v.SetDefault("refhub.insecure_skip_verify", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "refhub")
	v.SetDefault("database.user", "refhub_user")
	v.SetDefault("database.password", "refhub_pass")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.ttl_seconds", 600)
	v.SetDefault("redis.key_prefix", "refhub:search:")
	v.SetDefault("redis.consumer_group", "refhub_prefetch")
	v.SetDefault("redis.min_idle_time", 120)
}
