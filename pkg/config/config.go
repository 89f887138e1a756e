package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/quill/pkg/email"
	"github.com/platinummonkey/quill/pkg/observability"
)

// ConfigFileEnv names the optional YAML file applied before env overrides
const ConfigFileEnv = "QUILL_CONFIG_FILE"

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Auth          AuthConfig          `yaml:"auth"`
	Access        AccessConfig        `yaml:"access"`
	Invitations   InvitationsConfig   `yaml:"invitations"`
	Email         EmailConfig         `yaml:"email"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server on its own port
	HealthPort string `yaml:"health_port"`

	// BaseURL is the public app URL used in invitation links
	BaseURL        string   `yaml:"base_url"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxBodyBytes   int64    `yaml:"max_body_bytes"`
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MigrateOnStart  bool          `yaml:"migrate_on_start"`
}

// RedisConfig holds the optional Redis used for shared rate limits
type RedisConfig struct {
	URL      string `yaml:"url"`
	PoolSize int    `yaml:"pool_size"`
}

// AuthConfig holds session token settings
type AuthConfig struct {
	TokenSecret string        `yaml:"token_secret"`
	TokenIssuer string        `yaml:"token_issuer"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
}

// AccessConfig holds workspace resolution settings
type AccessConfig struct {
	ResolveTimeout   time.Duration `yaml:"resolve_timeout"`
	ProfileCacheSize int           `yaml:"profile_cache_size"`
	ProfileCacheTTL  time.Duration `yaml:"profile_cache_ttl"`

	// TrustedProxies are the IPs or CIDR ranges whose forwarding headers
	// identify the client for per-IP rate limits. Empty trusts none.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// InvitationsConfig holds invitation lifecycle settings
type InvitationsConfig struct {
	TTL         time.Duration `yaml:"ttl"`
	SendTimeout time.Duration `yaml:"send_timeout"`

	// ReapSchedule is the janitor's cron expression; ReapGrace keeps expired
	// invitations around for a while after expiry
	ReapSchedule string        `yaml:"reap_schedule"`
	ReapGrace    time.Duration `yaml:"reap_grace"`

	// Limits for the public preview and accept endpoints
	RateLimitRequests int           `yaml:"rate_limit_requests"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
}

// EmailConfig holds SMTP settings. Delivery is disabled when Host is empty.
type EmailConfig struct {
	AppName   string        `yaml:"app_name"`
	Host      string        `yaml:"host"`
	Port      string        `yaml:"port"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	From      string        `yaml:"from"`
	FromName  string        `yaml:"from_name"`
	EnableTLS bool          `yaml:"enable_tls"`
	Timeout   time.Duration `yaml:"timeout"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel string `yaml:"log_level"`

	// Metrics
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"` // Use insecure gRPC connection
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
			BaseURL:         "http://localhost:3000",
			MaxBodyBytes:    1 << 20,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			MigrateOnStart:  true,
		},
		Redis: RedisConfig{
			PoolSize: 10,
		},
		Auth: AuthConfig{
			TokenIssuer: "quill",
			TokenTTL:    15 * time.Minute,
		},
		Access: AccessConfig{
			ResolveTimeout:   3 * time.Second,
			ProfileCacheSize: 4096,
			ProfileCacheTTL:  5 * time.Minute,
		},
		Invitations: InvitationsConfig{
			TTL:               7 * 24 * time.Hour,
			SendTimeout:       15 * time.Second,
			ReapSchedule:      "@hourly",
			ReapGrace:         30 * 24 * time.Hour,
			RateLimitRequests: 30,
			RateLimitWindow:   time.Minute,
		},
		Email: EmailConfig{
			AppName:   "Quill",
			Port:      "587",
			FromName:  "Quill",
			EnableTLS: true,
			Timeout:   email.DefaultTimeout,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "quill",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

// LoadConfig loads and validates configuration
func LoadConfig() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Load reads configuration from defaults, the optional YAML file named by
// QUILL_CONFIG_FILE, then environment variables. It does not validate.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// loadFile overlays a YAML file onto the configuration
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides values with QUILL_* environment variables
func (c *Config) applyEnv() {
	s := &c.Server
	s.Host = getEnv("QUILL_HOST", s.Host)
	s.Port = getEnv("QUILL_PORT", s.Port)
	s.ReadTimeout = getEnvDuration("QUILL_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("QUILL_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("QUILL_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("QUILL_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.HealthPort = getEnv("QUILL_HEALTH_PORT", s.HealthPort)
	s.BaseURL = strings.TrimRight(getEnv("QUILL_BASE_URL", s.BaseURL), "/")
	s.AllowedOrigins = getEnvList("QUILL_ALLOWED_ORIGINS", s.AllowedOrigins)
	s.MaxBodyBytes = getEnvInt64("QUILL_MAX_BODY_BYTES", s.MaxBodyBytes)

	d := &c.Database
	d.URL = getEnv("QUILL_DATABASE_URL", d.URL)
	d.MaxOpenConns = getEnvInt("QUILL_DATABASE_MAX_OPEN_CONNS", d.MaxOpenConns)
	d.MaxIdleConns = getEnvInt("QUILL_DATABASE_MAX_IDLE_CONNS", d.MaxIdleConns)
	d.ConnMaxLifetime = getEnvDuration("QUILL_DATABASE_CONN_MAX_LIFETIME", d.ConnMaxLifetime)
	d.MigrateOnStart = getEnvBool("QUILL_MIGRATE_ON_START", d.MigrateOnStart)

	c.Redis.URL = getEnv("QUILL_REDIS_URL", c.Redis.URL)
	c.Redis.PoolSize = getEnvInt("QUILL_REDIS_POOL_SIZE", c.Redis.PoolSize)

	a := &c.Auth
	a.TokenSecret = getEnv("QUILL_TOKEN_SECRET", a.TokenSecret)
	a.TokenIssuer = getEnv("QUILL_TOKEN_ISSUER", a.TokenIssuer)
	a.TokenTTL = getEnvDuration("QUILL_TOKEN_TTL", a.TokenTTL)

	ac := &c.Access
	ac.ResolveTimeout = getEnvDuration("QUILL_RESOLVE_TIMEOUT", ac.ResolveTimeout)
	ac.ProfileCacheSize = getEnvInt("QUILL_PROFILE_CACHE_SIZE", ac.ProfileCacheSize)
	ac.ProfileCacheTTL = getEnvDuration("QUILL_PROFILE_CACHE_TTL", ac.ProfileCacheTTL)
	ac.TrustedProxies = getEnvList("QUILL_TRUSTED_PROXIES", ac.TrustedProxies)

	inv := &c.Invitations
	inv.TTL = getEnvDuration("QUILL_INVITATION_TTL", inv.TTL)
	inv.SendTimeout = getEnvDuration("QUILL_INVITATION_SEND_TIMEOUT", inv.SendTimeout)
	inv.ReapSchedule = getEnv("QUILL_INVITATION_REAP_SCHEDULE", inv.ReapSchedule)
	inv.ReapGrace = getEnvDuration("QUILL_INVITATION_REAP_GRACE", inv.ReapGrace)
	inv.RateLimitRequests = getEnvInt("QUILL_INVITATION_RATE_LIMIT", inv.RateLimitRequests)
	inv.RateLimitWindow = getEnvDuration("QUILL_INVITATION_RATE_WINDOW", inv.RateLimitWindow)

	e := &c.Email
	e.AppName = getEnv("QUILL_APP_NAME", e.AppName)
	e.Host = getEnv("QUILL_SMTP_HOST", e.Host)
	e.Port = getEnv("QUILL_SMTP_PORT", e.Port)
	e.Username = getEnv("QUILL_SMTP_USERNAME", e.Username)
	e.Password = getEnv("QUILL_SMTP_PASSWORD", e.Password)
	e.From = getEnv("QUILL_SMTP_FROM", e.From)
	e.FromName = getEnv("QUILL_SMTP_FROM_NAME", e.FromName)
	e.EnableTLS = getEnvBool("QUILL_SMTP_TLS", e.EnableTLS)
	e.Timeout = getEnvDuration("QUILL_SMTP_TIMEOUT", e.Timeout)

	o := &c.Observability
	o.LogLevel = getEnv("QUILL_LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("QUILL_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("QUILL_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("QUILL_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("QUILL_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("QUILL_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("QUILL_OTEL_INSECURE", o.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if c.Server.HealthPort == "" {
		return errors.New("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return errors.New("server port and health port must be different")
	}
	if c.Server.BaseURL == "" {
		return errors.New("base URL is required")
	}

	if c.Database.URL == "" {
		return errors.New("database URL is required")
	}

	if len(c.Auth.TokenSecret) < 32 {
		return errors.New("token secret must be at least 32 bytes")
	}

	if c.Access.ResolveTimeout <= 0 {
		return errors.New("resolve timeout must be positive")
	}

	if c.Invitations.TTL <= 0 {
		return errors.New("invitation TTL must be positive")
	}
	if c.Invitations.RateLimitRequests <= 0 || c.Invitations.RateLimitWindow <= 0 {
		return errors.New("invitation rate limit must be positive")
	}

	if c.Email.Host != "" && c.Email.From == "" {
		return errors.New("SMTP from address is required when SMTP host is set")
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return errors.New("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return errors.New("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// Level returns the parsed log level
func (o ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLevel(o.LogLevel)
}

// SMTP returns the email sender configuration
func (e EmailConfig) SMTP() email.Config {
	return email.Config{
		Host:      e.Host,
		Port:      e.Port,
		Username:  e.Username,
		Password:  e.Password,
		From:      e.From,
		FromName:  e.FromName,
		EnableTLS: e.EnableTLS,
		Timeout:   e.Timeout,
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
