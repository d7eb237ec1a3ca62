// Package config loads the application's configuration from a .env file and
// environment variables, grounded on internal/config/config.go's shape
// (godotenv + viper, explicit BindEnv calls, defaults, then Validate).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ridopark/jonbu-patterns/internal/engine"
)

// Config is the process-wide configuration surface: the pattern engine's
// own Configuration (spec.md §3/§6) nested alongside the ambient server,
// storage, cache, and auth settings grouped alongside it.
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`

	Server   ServerConfig            `mapstructure:"server"`
	Database DatabaseConfig          `mapstructure:"database"`
	Redis    RedisConfig             `mapstructure:"redis"`
	Auth     AuthConfig              `mapstructure:"auth"`
	Analysis engine.Configuration    `mapstructure:"analysis"`
}

// ServerConfig controls the HTTP/WebSocket API surface (pkg/api).
type ServerConfig struct {
	HTTPPort     int    `mapstructure:"http_port"`
	Host         string `mapstructure:"host"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	EnableCORS   bool   `mapstructure:"enable_cors"`
}

// DatabaseConfig points at the Postgres store holding persisted
// AnalysisResult summaries (internal/store, via lib/pq).
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Name            string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxConnections  int    `mapstructure:"max_connections"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// RedisConfig points at the distributed indicator cache
// (internal/indicators.Cache, via redis/go-redis).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

// AuthConfig configures the JWT middleware guarding the /v1 analyze API;
// the stream routes are not behind it.
type AuthConfig struct {
	Secret           string `mapstructure:"secret"`
	Issuer           string `mapstructure:"issuer"`
	TokenTTLMinutes  int    `mapstructure:"token_ttl_minutes"`
}

// Load reads configuration from config/.env (if present) and the
// environment, applies defaults, unmarshals, and validates.
func Load() (*Config, error) {
	if err := godotenv.Load("config/.env"); err != nil {
		if os.Getenv("ENVIRONMENT") == "" {
			fmt.Printf("warning: no .env file found, using environment variables only\n")
		}
	}

	viper.SetConfigType("env")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnv()
	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func bindEnv() {
	viper.BindEnv("server.http_port", "SERVER_HTTP_PORT")
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")
	viper.BindEnv("server.enable_cors", "SERVER_ENABLE_CORS")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")
	viper.BindEnv("redis.enabled", "REDIS_ENABLED")

	viper.BindEnv("auth.secret", "AUTH_SECRET")
	viper.BindEnv("auth.issuer", "AUTH_ISSUER")
	viper.BindEnv("auth.token_ttl_minutes", "AUTH_TOKEN_TTL_MINUTES")
}

// Validate enforces the ambient surface's required settings and then
// validates the nested engine.Configuration; the engine validates the
// configuration it runs with again on every Analyze call, since its
// sensitivity dials may be overridden per-request.
func (c *Config) Validate() error {
	if c.Server.HTTPPort == 0 {
		return errors.New("server http port is required")
	}
	if c.Database.Host == "" {
		return errors.New("database host is required")
	}
	if c.Auth.Secret == "" && c.Environment == "production" {
		return errors.New("auth secret is required in production")
	}
	return c.Analysis.Validate()
}

// String renders the configuration with secrets masked, for startup logs.
func (c *Config) String() string {
	masked := *c
	masked.Database.Password = "***"
	masked.Redis.Password = "***"
	masked.Auth.Secret = "***"
	return fmt.Sprintf("%+v", masked)
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 10)
	viper.SetDefault("server.write_timeout", 10)
	viper.SetDefault("server.enable_cors", true)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.name", "jonbu_patterns")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 300)

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.enabled", false)

	viper.SetDefault("auth.issuer", "jonbu-patterns")
	viper.SetDefault("auth.token_ttl_minutes", 60)

	viper.SetDefault("analysis.sensitivity.geometric_patterns", 0.5)
	viper.SetDefault("analysis.sensitivity.reversal_patterns", 0.5)
	viper.SetDefault("analysis.sensitivity.advanced_patterns", 0.5)
	viper.SetDefault("analysis.sensitivity.candlestick_patterns", 0.5)
	viper.SetDefault("analysis.sensitivity.harmonic_patterns", 0.5)
	viper.SetDefault("analysis.sensitivity.divergence_patterns", 0.5)
	viper.SetDefault("analysis.sensitivity.min_pattern_duration", 3)
	viper.SetDefault("analysis.sensitivity.max_pattern_duration", 200)
	viper.SetDefault("analysis.sensitivity.require_volume_confirmation", false)

	viper.SetDefault("analysis.patterns.enabled_geometric", true)
	viper.SetDefault("analysis.patterns.enabled_reversal", true)
	viper.SetDefault("analysis.patterns.enabled_advanced", true)
	viper.SetDefault("analysis.patterns.enabled_candlestick", true)
	viper.SetDefault("analysis.patterns.enabled_harmonic", true)
	viper.SetDefault("analysis.patterns.enabled_divergence", true)
	viper.SetDefault("analysis.patterns.max_patterns_per_type", 3)
	viper.SetDefault("analysis.patterns.max_total_patterns", 20)
	viper.SetDefault("analysis.patterns.filter_overlapping", true)
	viper.SetDefault("analysis.patterns.overlap_threshold", 0.5)

	viper.SetDefault("analysis.analysis.min_data_points", 30)
	viper.SetDefault("analysis.analysis.max_data_points", 2000)
}
