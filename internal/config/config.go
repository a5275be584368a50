// Package config handles application configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/feedbackhub/feedbackhub/internal/ratelimit"
)

// Config holds all configuration for the application.
type Config struct {
	App      AppConfig       `mapstructure:"app"`
	Log      LogConfig       `mapstructure:"log"`
	Server   ServerConfig    `mapstructure:"server"`
	Database DatabaseConfig  `mapstructure:"db"`
	Redis    RedisConfig     `mapstructure:"redis"`
	Rate     RateLimitConfig `mapstructure:"rate"`
	Chatbot  ChatbotConfig   `mapstructure:"chatbot"`
	Cache    CacheConfig     `mapstructure:"cache"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Env string `mapstructure:"env"`
}

// IsDevelopment returns true if the app is running in development mode.
func (a AppConfig) IsDevelopment() bool {
	return a.Env == "development" || a.Env == "dev"
}

// IsProduction returns true if the app is running in production mode.
func (a AppConfig) IsProduction() bool {
	return a.Env == "production" || a.Env == "prod"
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the server address in host:port format.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	ChatbotRequests  int           `mapstructure:"chatbot_requests"`
	ChatbotWindow    time.Duration `mapstructure:"chatbot_window"`
	FeedbackRequests int           `mapstructure:"feedback_requests"`
	FeedbackWindow   time.Duration `mapstructure:"feedback_window"`
	GeneralRequests  int           `mapstructure:"general_requests"`
	GeneralWindow    time.Duration `mapstructure:"general_window"`

	// FallbackIdentifier is used when no forwarding header names the client.
	FallbackIdentifier string `mapstructure:"fallback_identifier"`
	// UseRemoteAddr falls back to the peer address instead of FallbackIdentifier.
	UseRemoteAddr bool `mapstructure:"use_remote_addr"`

	SweepThreshold  int           `mapstructure:"sweep_threshold"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
}

// ChatbotConfig holds the generative model client configuration.
type ChatbotConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	QPS     float64       `mapstructure:"qps"`
	Burst   int           `mapstructure:"burst"`
}

// CacheConfig holds read-cache configuration.
type CacheConfig struct {
	FeedbackTTL time.Duration `mapstructure:"feedback_ttl"`
}

// setDefaults registers every key so environment overrides are visible to Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("log.level", "info")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "feedbackhub")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "feedbackhub")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("rate.chatbot_requests", ratelimit.ChatbotConfig.Requests)
	v.SetDefault("rate.chatbot_window", ratelimit.ChatbotConfig.Window)
	v.SetDefault("rate.feedback_requests", ratelimit.FeedbackConfig.Requests)
	v.SetDefault("rate.feedback_window", ratelimit.FeedbackConfig.Window)
	v.SetDefault("rate.general_requests", ratelimit.GeneralConfig.Requests)
	v.SetDefault("rate.general_window", ratelimit.GeneralConfig.Window)
	v.SetDefault("rate.fallback_identifier", "default-client")
	v.SetDefault("rate.use_remote_addr", false)
	v.SetDefault("rate.sweep_threshold", ratelimit.DefaultSweepThreshold)
	v.SetDefault("rate.janitor_interval", time.Duration(0))

	v.SetDefault("chatbot.api_key", "")
	v.SetDefault("chatbot.model", "gemini-2.0-flash-exp")
	v.SetDefault("chatbot.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("chatbot.timeout", 30*time.Second)
	v.SetDefault("chatbot.qps", 5.0)
	v.SetDefault("chatbot.burst", 5)

	v.SetDefault("cache.feedback_ttl", 5*time.Minute)
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from an optional file, with environment
// variables taking precedence. Keys map to variables by upper-casing and
// replacing dots with underscores (server.port -> SERVER_PORT).
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("chatbot.api_key", "CHATBOT_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind chatbot api key: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail at construction time.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid SERVER_PORT: %d", c.Server.Port))
	}

	limits := []struct {
		name     string
		requests int
		window   time.Duration
	}{
		{"CHATBOT", c.Rate.ChatbotRequests, c.Rate.ChatbotWindow},
		{"FEEDBACK", c.Rate.FeedbackRequests, c.Rate.FeedbackWindow},
		{"GENERAL", c.Rate.GeneralRequests, c.Rate.GeneralWindow},
	}
	for _, l := range limits {
		if l.requests <= 0 {
			errs = append(errs, fmt.Errorf("invalid RATE_%s_REQUESTS: must be positive", l.name))
		}
		if l.window <= 0 {
			errs = append(errs, fmt.Errorf("invalid RATE_%s_WINDOW: must be positive", l.name))
		}
	}

	if c.Rate.FallbackIdentifier == "" && !c.Rate.UseRemoteAddr {
		errs = append(errs, errors.New("invalid RATE_FALLBACK_IDENTIFIER: must not be empty"))
	}
	if c.Rate.SweepThreshold <= 0 {
		errs = append(errs, errors.New("invalid RATE_SWEEP_THRESHOLD: must be positive"))
	}
	if c.Chatbot.QPS < 0 {
		errs = append(errs, errors.New("invalid CHATBOT_QPS: must not be negative"))
	}

	return errors.Join(errs...)
}

// DatabaseEnabled returns true if database configuration is provided.
func (c *Config) DatabaseEnabled() bool {
	return c.Database.Host != "" && c.Database.Password != ""
}

// RedisEnabled returns true if Redis configuration is provided.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

// ChatbotEnabled returns true if a model API key is configured.
func (c *Config) ChatbotEnabled() bool {
	return c.Chatbot.APIKey != ""
}
