// Package config loads application configuration from defaults, an optional
// YAML file and APP_ environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override, e.g. APP_DATABASE__URL.
	EnvPrefix = "APP_"
	// PathEnv names the variable holding the optional YAML config path.
	PathEnv = "CONFIG_PATH"

	envNestingDelimiter = "__"
)

// Config is the application configuration.
type Config struct {
	App      AppConfig      `koanf:"app"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Auth     AuthConfig     `koanf:"auth"`
	CORS     CORSConfig     `koanf:"cors"`
}

// AppConfig describes the running service.
type AppConfig struct {
	Name        string `koanf:"name"`
	Environment string `koanf:"environment"`
	// Version defaults to the build version when empty.
	Version string `koanf:"version"`
	// APIVersion is the path prefix of the REST API, e.g. "v1".
	APIVersion string `koanf:"api_version"`
}

// ServerConfig configures the HTTP servers.
type ServerConfig struct {
	Host              string          `koanf:"host"`
	Port              string          `koanf:"port"`
	MetricsPort       string          `koanf:"metrics_port"`
	ReadTimeout       time.Duration   `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration   `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration   `koanf:"write_timeout"`
	IdleTimeout       time.Duration   `koanf:"idle_timeout"`
	RequestTimeout    time.Duration   `koanf:"request_timeout"`
	ShutdownTimeout   time.Duration   `koanf:"shutdown_timeout"`
	RateLimit         RateLimitConfig `koanf:"rate_limit"`
}

// RateLimitConfig limits requests per client IP. A zero rate disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

// DatabaseConfig configures the PostgreSQL pool and migrations.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxConns        int32         `koanf:"max_conns"`
	MinConns        int32         `koanf:"min_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
	MigrationsPath  string        `koanf:"migrations_path"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	// RequestLevel is the level of per-request access log records.
	RequestLevel string `koanf:"request_level"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	SecretKey string `koanf:"secret_key"`
	Issuer    string `koanf:"issuer"`
	Audience  string `koanf:"audience"`
}

// CORSConfig configures cross-origin requests.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// Default returns the configuration used for keys not set elsewhere.
func Default() Config {
	return Config{
		App: AppConfig{
			Name:        "roadmap-api",
			Environment: "development",
			APIVersion:  "v1",
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			RequestTimeout:    60 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxConns:        10,
			MinConns:        1,
			ConnMaxLifetime: time.Hour,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
			MigrationsPath:  "migrations",
		},
		Log: LogConfig{
			Level:        "info",
			Format:       "json",
			RequestLevel: "info",
		},
	}
}

// Load reads configuration. path names an optional YAML file; when empty,
// the CONFIG_PATH environment variable is consulted.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(PathEnv)
	}

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
			TagName:          "koanf",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps APP_DATABASE__URL to database.url.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, envNestingDelimiter, ".")
}

var (
	environments = map[string]bool{"development": true, "test": true, "staging": true, "production": true}
	logLevels    = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	logFormats   = map[string]bool{"json": true, "text": true}
)

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	if !environments[c.App.Environment] {
		errs = append(errs, fmt.Errorf("app.environment: unknown environment %q", c.App.Environment))
	}
	if c.App.APIVersion == "" {
		errs = append(errs, errors.New("app.api_version is required"))
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("server.request_timeout must be positive"))
	}
	if c.Server.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("server.rate_limit.requests_per_second must not be negative"))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, errors.New("database.min_conns must not exceed database.max_conns"))
	}
	if c.Auth.SecretKey == "" {
		errs = append(errs, errors.New("auth.secret_key is required"))
	}
	if !logLevels[c.Log.Level] {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	if !logLevels[c.Log.RequestLevel] {
		errs = append(errs, fmt.Errorf("log.request_level: unknown level %q", c.Log.RequestLevel))
	}
	if !logFormats[c.Log.Format] {
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
