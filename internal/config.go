package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultUpstreamTimeout = 20 * time.Second
	DefaultSessionTTL      = 24 * time.Hour
	DefaultAPIPrefix       = "/api/v1"
	SessionCookieName      = "accessToken"
)

// placeholderSecrets are sample signing secrets that have appeared in
// shipped configuration and must never sign real sessions.
var placeholderSecrets = []string{
	"change-me-to-a-random-string-of-32-chars",
}

type Config struct {
	AppName     string            `mapstructure:"app_name"`
	Server      ServerConfig      `mapstructure:"http_server"`
	Security    SecurityConfig    `mapstructure:"security" validate:"required"`
	Upstream    UpstreamConfig    `mapstructure:"upstream" validate:"required"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Relay       RelayConfig       `mapstructure:"relay"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	OpenAPIPath       string        `mapstructure:"openapi_path"`
}

type SecurityConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret" validate:"required,min=32"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	SecureCookies string        `mapstructure:"secure_cookies" validate:"oneof=auto always never"`
}

// UpstreamConfig points the gateway at the vendor inventory API.
type UpstreamConfig struct {
	BaseURL   string        `mapstructure:"base_url" validate:"required,url"`
	APIPrefix string        `mapstructure:"api_prefix"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type CredentialsConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=file database"`
	File    string `mapstructure:"file"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Source          string        `mapstructure:"source"`
}

type RelayConfig struct {
	// EnforceLocationScope rejects single-record reads whose location does
	// not match the caller's branch.
	EnforceLocationScope bool `mapstructure:"enforce_location_scope"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// ----------------- DEFAULTS -----------------

// ApplyDefaults fills zero values that have a sensible default. Required
// values (upstream base URL, signing secret) are never defaulted.
func (c *Config) ApplyDefaults() {
	if c.AppName == "" {
		c.AppName = "Branch Assets"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = 5 * time.Second
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		// exports chain up to three upstream calls
		c.Server.WriteTimeout = 90 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}
	if c.Server.OpenAPIPath == "" {
		c.Server.OpenAPIPath = "./api/openapi.yml"
	}
	if c.Security.SessionTTL == 0 {
		c.Security.SessionTTL = DefaultSessionTTL
	}
	if c.Security.SecureCookies == "" {
		c.Security.SecureCookies = "auto"
	}
	if c.Upstream.APIPrefix == "" {
		c.Upstream.APIPrefix = DefaultAPIPrefix
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = DefaultUpstreamTimeout
	}
	if c.Credentials.Backend == "" {
		c.Credentials.Backend = "file"
	}
	if c.Credentials.File == "" {
		c.Credentials.File = "./data/users.json"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// LoadConfigFromEnv builds the configuration from plain environment
// variables, used for container deployments.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		AppName: getEnv("APP_NAME", ""),
		Server: ServerConfig{
			Port:           getEnvAsInt("PORT", 8080),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", ""),
			OpenAPIPath:    getEnv("OPENAPI_PATH", ""),
		},
		Security: SecurityConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			SessionTTL:    getEnvAsDuration("SESSION_TTL", DefaultSessionTTL),
			SecureCookies: getEnv("SECURE_COOKIES", "auto"),
		},
		Upstream: UpstreamConfig{
			BaseURL:   getEnv("UPSTREAM_BASE_URL", ""),
			APIPrefix: getEnv("UPSTREAM_API_PREFIX", DefaultAPIPrefix),
			Timeout:   getEnvAsDuration("UPSTREAM_TIMEOUT", DefaultUpstreamTimeout),
		},
		Credentials: CredentialsConfig{
			Backend: getEnv("CREDENTIALS_BACKEND", "file"),
			File:    getEnv("CREDENTIALS_FILE", ""),
		},
		Database: DatabaseConfig{
			Source:       getEnv("DATABASE_URL", ""),
			MaxOpenConns: getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Relay: RelayConfig{
			EnforceLocationScope: getEnvAsBool("RELAY_ENFORCE_LOCATION_SCOPE", false),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Upstream.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("upstream config: %v", err))
	}

	if err := c.Credentials.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("credentials config: %v", err))
	}

	if c.Credentials.Backend == "database" {
		if err := c.Database.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("database config: %v", err))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		for _, origin := range c.Origins() {
			// credentialed CORS cannot use a wildcard origin
			if origin == "*" {
				return errors.New("allowed_origins cannot contain * because session cookies are sent with credentials")
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

// Origins splits the comma-separated allowed origins list.
func (c *ServerConfig) Origins() []string {
	if c.AllowedOrigins == "" {
		return nil
	}
	var out []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}

func (c *SecurityConfig) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("jwt_secret must be at least 32 characters")
	}
	if slices.Contains(placeholderSecrets, c.JWTSecret) {
		return errors.New("jwt_secret is the sample value; generate a random secret")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session_ttl must be positive")
	}
	switch c.SecureCookies {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("secure_cookies must be one of auto, always, never (got %q)", c.SecureCookies)
	}
	return nil
}

func (c *UpstreamConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url must be http or https (got %q)", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}

// Endpoint joins the base URL with the API prefix.
func (c *UpstreamConfig) Endpoint() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.Trim(c.APIPrefix, "/")
}

func (c *CredentialsConfig) Validate() error {
	switch c.Backend {
	case "file":
		if c.File == "" {
			return errors.New("file is required for the file backend")
		}
	case "database":
	default:
		return fmt.Errorf("backend must be file or database (got %q)", c.Backend)
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required for the database credential backend")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}
