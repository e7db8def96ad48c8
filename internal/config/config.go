// Package config handles TOML configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/taskboard/config.toml",
	"configs/config.toml",
}

// CLI holds the global command-line arguments parsed by Kong.
type CLI struct {
	Config   string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host     string `kong:"help='Proxy listen host (overrides config).',env='HOST'"`
	Port     int    `kong:"short='p',help='Proxy listen port (overrides config).',env='PORT'"`
	Upstream string `kong:"help='Upstream base URL (overrides config).',env='UPSTREAM_URL'"`
	LogLevel string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration.
type Config struct {
	Proxy    ProxyConfig    `toml:"proxy"`
	Upstream UpstreamConfig `toml:"upstream"`
	API      APIConfig      `toml:"api"`
	Session  SessionConfig  `toml:"session"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// ProxyConfig holds the development proxy listener settings.
type ProxyConfig struct {
	Host         string          `toml:"host"`
	Port         int             `toml:"port"` // 0 means "use default" (4201)
	BodyMaxBytes int64           `toml:"body_max_bytes"`
	CORS         CORSConfig      `toml:"cors"`
	RateLimit    RateLimitConfig `toml:"rate_limit"`
}

// CORSConfig describes the single browser origin the proxy serves.
type CORSConfig struct {
	AllowedOrigin    string   `toml:"allowed_origin"`
	AllowMethods     []string `toml:"allow_methods"`
	AllowHeaders     []string `toml:"allow_headers"`
	AllowCredentials *bool    `toml:"allow_credentials"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// UpstreamConfig holds the proxy target settings.
type UpstreamConfig struct {
	BaseURL         string `toml:"base_url"`
	PathPrefix      string `toml:"path_prefix"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	IdleConnections int    `toml:"idle_connections"`
}

// APIConfig points the session manager and REST client at the backend.
type APIConfig struct {
	BaseURL        string          `toml:"base_url"`
	TimeoutSeconds int             `toml:"timeout_seconds"`
	Endpoints      EndpointsConfig `toml:"endpoints"`
}

// EndpointsConfig holds backend resource paths relative to APIConfig.BaseURL.
type EndpointsConfig struct {
	Auth     string `toml:"auth"`
	Projects string `toml:"projects"`
	Stories  string `toml:"stories"`
	Tasks    string `toml:"tasks"`
	Users    string `toml:"users"`
	Health   string `toml:"health"`
}

// SessionConfig selects the durable store for the login session.
type SessionConfig struct {
	Backend  string      `toml:"backend"` // badger | redis | memory
	Dir      string      `toml:"dir"`
	TokenKey string      `toml:"token_key"`
	UserKey  string      `toml:"user_key"`
	Redis    RedisConfig `toml:"redis"`
}

// RedisConfig holds the redis session backend settings.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the TOML config file, applies CLI overrides, validates and
// fills defaults. An explicitly given path must exist; when nothing is found
// in the search paths the defaults are used as-is.
func Load(cli *CLI) (*Config, error) {
	path := cli.Config
	if path == "" {
		path = findConfig()
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.filePath = path
	}

	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Proxy.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Proxy.Port = cli.Port
	}
	if cli.Upstream != "" {
		c.Upstream.BaseURL = cli.Upstream
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate() error {
	if err := validateHTTPURL("upstream.base_url", c.Upstream.BaseURL); err != nil {
		return err
	}
	if err := validateHTTPURL("api.base_url", c.API.BaseURL); err != nil {
		return err
	}
	if c.Proxy.CORS.AllowedOrigin != "" && c.Proxy.CORS.AllowedOrigin != "*" {
		if err := validateHTTPURL("proxy.cors.allowed_origin", c.Proxy.CORS.AllowedOrigin); err != nil {
			return err
		}
	}

	if p := c.Upstream.PathPrefix; p != "" {
		if p[0] != '/' {
			return fmt.Errorf("upstream.path_prefix must start with '/'; got %q", p)
		}
		if p == "/" || strings.HasSuffix(p, "/") {
			return fmt.Errorf("upstream.path_prefix must not end with '/'; got %q", p)
		}
	}

	// Numeric bounds.
	if c.Proxy.Port < 0 || c.Proxy.Port > 65535 {
		return fmt.Errorf("proxy.port must be 0–65535; got %d", c.Proxy.Port)
	}
	if c.Proxy.BodyMaxBytes < 0 {
		return fmt.Errorf("proxy.body_max_bytes must be non-negative; got %d", c.Proxy.BodyMaxBytes)
	}
	if c.Upstream.TimeoutSeconds < 0 {
		return fmt.Errorf("upstream.timeout_seconds must be non-negative; got %d", c.Upstream.TimeoutSeconds)
	}
	if c.Upstream.IdleConnections < 0 {
		return fmt.Errorf("upstream.idle_connections must be non-negative; got %d", c.Upstream.IdleConnections)
	}
	if c.API.TimeoutSeconds < 0 {
		return fmt.Errorf("api.timeout_seconds must be non-negative; got %d", c.API.TimeoutSeconds)
	}
	if c.Proxy.RateLimit.Enabled && c.Proxy.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("proxy.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Proxy.RateLimit.RequestsPerSecond)
	}

	switch strings.ToLower(c.Session.Backend) {
	case "badger", "redis", "memory", "":
	default:
		return fmt.Errorf("session.backend must be one of: badger, redis, memory; got %q", c.Session.Backend)
	}
	if c.Session.TokenKey != "" && c.Session.TokenKey == c.Session.UserKey {
		return fmt.Errorf("session.token_key and session.user_key must differ; both are %q", c.Session.TokenKey)
	}

	// Log fields.
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text", "":
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		prefix := c.Upstream.PathPrefix
		if prefix == "" {
			prefix = DefaultPathPrefix
		}
		for _, reserved := range []string{prefix, HealthPath, StatusPath} {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
	}

	return nil
}

func validateHTTPURL(field, raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https; got %q", field, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host; got %q", field, raw)
	}
	return nil
}

// Defaults mirror the local development setup: the web app on :4200, the
// proxy on :4201 and the backend on :3000.
const (
	DefaultPathPrefix    = "/api"
	DefaultUpstreamURL   = "http://localhost:3000"
	DefaultAllowedOrigin = "http://localhost:4200"
	HealthPath           = "/health"
	StatusPath           = "/proxy/status"
	LoginRoute           = "/login"
)

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields zero means "unset" because TOML cannot distinguish
// between an explicit 0 and an omitted key.
func (c *Config) setDefaults() {
	if c.Proxy.Host == "" {
		c.Proxy.Host = "127.0.0.1"
	}
	if c.Proxy.Port == 0 {
		c.Proxy.Port = 4201
	}
	if c.Proxy.BodyMaxBytes == 0 {
		c.Proxy.BodyMaxBytes = 10 * 1024 * 1024 // 10 MB
	}
	if c.Proxy.CORS.AllowedOrigin == "" {
		c.Proxy.CORS.AllowedOrigin = DefaultAllowedOrigin
	}
	if len(c.Proxy.CORS.AllowMethods) == 0 {
		c.Proxy.CORS.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(c.Proxy.CORS.AllowHeaders) == 0 {
		c.Proxy.CORS.AllowHeaders = []string{"Content-Type", "Authorization"}
	}
	if c.Proxy.CORS.AllowCredentials == nil {
		on := true
		c.Proxy.CORS.AllowCredentials = &on
	}

	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = DefaultUpstreamURL
	}
	if c.Upstream.PathPrefix == "" {
		c.Upstream.PathPrefix = DefaultPathPrefix
	}
	if c.Upstream.TimeoutSeconds == 0 {
		c.Upstream.TimeoutSeconds = 120
	}
	if c.Upstream.IdleConnections == 0 {
		c.Upstream.IdleConnections = 100
	}

	if c.API.BaseURL == "" {
		c.API.BaseURL = c.Upstream.BaseURL
	}
	if c.API.TimeoutSeconds == 0 {
		c.API.TimeoutSeconds = 30
	}
	ep := &c.API.Endpoints
	if ep.Auth == "" {
		ep.Auth = "/api/auth"
	}
	if ep.Projects == "" {
		ep.Projects = "/api/projects"
	}
	if ep.Stories == "" {
		ep.Stories = "/api/stories"
	}
	if ep.Tasks == "" {
		ep.Tasks = "/api/tasks"
	}
	if ep.Users == "" {
		ep.Users = "/api/users"
	}
	if ep.Health == "" {
		ep.Health = "/api/health"
	}

	c.Session.Backend = strings.ToLower(c.Session.Backend)
	if c.Session.Backend == "" {
		c.Session.Backend = "badger"
	}
	if c.Session.Dir == "" {
		c.Session.Dir = defaultSessionDir()
	}
	if c.Session.TokenKey == "" {
		c.Session.TokenKey = "authToken"
	}
	if c.Session.UserKey == "" {
		c.Session.UserKey = "authUser"
	}
	if c.Session.Redis.Addr == "" {
		c.Session.Redis.Addr = "localhost:6379"
	}
	if c.Session.Redis.Prefix == "" {
		c.Session.Redis.Prefix = "taskboard"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

func defaultSessionDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".taskboard/session"
	}
	return dir + "/taskboard/session"
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the proxy listen address as host:port.
func (c *ProxyConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CredentialsAllowed reports whether the CORS response allows credentials.
func (c *CORSConfig) CredentialsAllowed() bool {
	return c.AllowCredentials == nil || *c.AllowCredentials
}

// FilePath returns the config file that was loaded, or "" when running on defaults.
func (c *Config) FilePath() string {
	return c.filePath
}

// WarnPermissions logs a warning if the config file is readable by group or
// others. The file may hold a redis password.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 && c.Session.Redis.Password != "" {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
