// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Economy   EconomyConfig   `mapstructure:"economy"`
	Points    PointsConfig    `mapstructure:"points"`
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds HTTP listener configuration.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	LockTimeout     time.Duration `mapstructure:"lock_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AuthConfig holds the shared secret for service-to-service routes.
type AuthConfig struct {
	ServiceToken string `mapstructure:"service_token"`
}

// EconomyConfig holds token prices and earning rules.
type EconomyConfig struct {
	HintCost          int64 `mapstructure:"hint_cost"`
	RevealCost        int64 `mapstructure:"reveal_cost"`
	SecretAdmirerCost int64 `mapstructure:"secret_admirer_cost"`
	SendReward        int64 `mapstructure:"send_reward"`
}

// PointsConfig holds point awards for scoring side effects.
type PointsConfig struct {
	SendNormal        int64 `mapstructure:"send_normal"`
	SendSecretAdmirer int64 `mapstructure:"send_secret_admirer"`
	Receive           int64 `mapstructure:"receive"`
	CorrectGuess      int64 `mapstructure:"correct_guess"`
}

// ExchangeConfig holds Secret Admirer thread settings.
type ExchangeConfig struct {
	RevealThreshold int `mapstructure:"reveal_threshold"`
}

// RateLimitConfig holds per-action token bucket settings.
type RateLimitConfig struct {
	Enabled        bool        `mapstructure:"enabled"`
	SendCompliment LimitConfig `mapstructure:"send_compliment"`
	Guess          LimitConfig `mapstructure:"guess"`
	SendReply      LimitConfig `mapstructure:"send_reply"`
}

// LimitConfig describes one token bucket: Count events per Per, bursting to Burst.
type LimitConfig struct {
	Count int           `mapstructure:"count"`
	Per   time.Duration `mapstructure:"per"`
	Burst int           `mapstructure:"burst"`
}

// NotifyConfig holds push-subsystem delivery settings.
// An empty WebhookURL disables webhook delivery; events are still logged.
type NotifyConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Token      string        `mapstructure:"token"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslMode,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase
	// e.g., DATABASE_HOST, ECONOMY_HINT_COST, AUTH_SERVICE_TOKEN
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we can use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings that would break economy invariants.
func (c *Config) Validate() error {
	if c.Economy.HintCost <= 0 || c.Economy.RevealCost <= 0 || c.Economy.SecretAdmirerCost <= 0 {
		return fmt.Errorf("invalid config: token costs must be positive")
	}
	if c.Economy.SendReward < 0 {
		return fmt.Errorf("invalid config: economy.send_reward must not be negative")
	}
	if c.Exchange.RevealThreshold <= 0 {
		return fmt.Errorf("invalid config: exchange.reveal_threshold must be positive")
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.lock_timeout", "5s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "oomf")
	v.SetDefault("database.name", "oomf")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Economy defaults
	v.SetDefault("economy.hint_cost", 1)
	v.SetDefault("economy.reveal_cost", 3)
	v.SetDefault("economy.secret_admirer_cost", 3)
	v.SetDefault("economy.send_reward", 0)

	// Points defaults
	v.SetDefault("points.send_normal", 1)
	v.SetDefault("points.send_secret_admirer", 15)
	v.SetDefault("points.receive", 3)
	v.SetDefault("points.correct_guess", 5)

	v.SetDefault("exchange.reveal_threshold", 6)

	// Rate limit defaults
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.send_compliment.count", 30)
	v.SetDefault("ratelimit.send_compliment.per", "1h")
	v.SetDefault("ratelimit.send_compliment.burst", 10)
	v.SetDefault("ratelimit.guess.count", 60)
	v.SetDefault("ratelimit.guess.per", "1m")
	v.SetDefault("ratelimit.guess.burst", 10)
	v.SetDefault("ratelimit.send_reply.count", 60)
	v.SetDefault("ratelimit.send_reply.per", "1m")
	v.SetDefault("ratelimit.send_reply.burst", 20)

	v.SetDefault("notify.timeout", "5s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}
