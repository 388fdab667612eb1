package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultUpstreamBaseURL is used when UPSTREAM_BASE_URL is unset.
const DefaultUpstreamBaseURL = "https://shop.example.com/wp-json/dokan/v1"

type Config struct {
	Environment string
	Server      ServerConfig
	Upstream    UpstreamConfig
	Proxy       ProxyConfig
	Session     SessionConfig
	CORS        CORSConfig
	RateLimit   RateLimitConfig
	OTP         OTPConfig
	Redis       RedisConfig
	Logging     LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	Prefork      bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// UpstreamConfig holds the marketplace API location and the credentials injected
// into every gateway call. Username and Password have no default.
type UpstreamConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

type ProxyConfig struct {
	TargetURL string
	Timeout   time.Duration
}

type SessionConfig struct {
	CookieName string
	Secret     string
	TargetURL  string
}

type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	ExposedHeaders   []string `yaml:"exposed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"`
}

type RateLimitConfig struct {
	Enabled       bool
	Requests      int
	Window        time.Duration
	SweepInterval time.Duration
	Exclude       []string
}

type OTPConfig struct {
	TTL            time.Duration
	ExposeCode     bool
	ResendBurst    int
	ResendInterval time.Duration
	SweepInterval  time.Duration
}

// RedisConfig selects the shared store backend. An empty URL keeps state in process.
type RedisConfig struct {
	URL       string
	KeyPrefix string
}

type LoggingConfig struct {
	Level      string
	JSONFormat bool
}

// fileConfig is the optional YAML overlay.
type fileConfig struct {
	RateLimit struct {
		Exclude []string `yaml:"exclude"`
	} `yaml:"rate_limit"`
	CORS *CORSConfig `yaml:"cors"`
}

var defaultExclude = []string{
	"/_next/static/*",
	"/_next/image/*",
	"/favicon.ico",
	"/health",
	"/metrics",
}

func Load() (*Config, error) {
	env := getEnv("ENVIRONMENT", "development")
	cfg := &Config{
		Environment: env,
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", ""),
			Port:         getEnv("SERVER_PORT", "8080"),
			Prefork:      getEnvBool("SERVER_PREFORK", false),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Upstream: UpstreamConfig{
			BaseURL:  strings.TrimRight(getEnv("UPSTREAM_BASE_URL", DefaultUpstreamBaseURL), "/"),
			Username: os.Getenv("UPSTREAM_USERNAME"),
			Password: os.Getenv("UPSTREAM_PASSWORD"),
			Timeout:  getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		},
		Proxy: ProxyConfig{
			TargetURL: strings.TrimRight(getEnv("PROXY_TARGET_URL", "https://api.example.com"), "/"),
			Timeout:   getEnvDuration("PROXY_TIMEOUT", 30*time.Second),
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE_NAME", "session"),
			Secret:     os.Getenv("SESSION_SECRET"),
			TargetURL:  strings.TrimRight(getEnv("SESSION_PROXY_URL", "https://api.example.com"), "/"),
		},
		CORS: CORSConfig{
			AllowedOrigins:   parseStringSlice(getEnv("CORS_ALLOWED_ORIGINS", "https://*,http://*")),
			AllowedMethods:   parseStringSlice(getEnv("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS")),
			AllowedHeaders:   parseStringSlice(getEnv("CORS_ALLOWED_HEADERS", "Accept,Authorization,Content-Type")),
			ExposedHeaders:   parseStringSlice(getEnv("CORS_EXPOSED_HEADERS", "X-Request-ID,Retry-After")),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           getEnvInt("CORS_MAX_AGE", 300),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvBool("RATE_LIMIT_ENABLED", true),
			Requests:      getEnvInt("RATE_LIMIT_REQUESTS", 100),
			Window:        getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
			SweepInterval: getEnvDuration("RATE_LIMIT_SWEEP_INTERVAL", time.Minute),
			Exclude:       append(append([]string{}, defaultExclude...), parseStringSlice(getEnv("RATE_LIMIT_EXCLUDE", ""))...),
		},
		OTP: OTPConfig{
			TTL:            getEnvDuration("OTP_TTL", 5*time.Minute),
			ExposeCode:     getEnvBool("OTP_EXPOSE_CODE", env != "production"),
			ResendBurst:    getEnvInt("OTP_RESEND_BURST", 5),
			ResendInterval: getEnvDuration("OTP_RESEND_INTERVAL", time.Minute),
			SweepInterval:  getEnvDuration("OTP_SWEEP_INTERVAL", time.Minute),
		},
		Redis: RedisConfig{
			URL:       getEnv("REDIS_URL", ""),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "vendorgate:"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			JSONFormat: getEnvBool("LOG_JSON_FORMAT", env == "production"),
		},
	}

	if err := cfg.loadFile(getEnv("GATEWAY_CONFIG_FILE", "config/gateway.yaml")); err != nil {
		return nil, fmt.Errorf("failed to load gateway config file: %w", err)
	}

	if cfg.RateLimit.Requests <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", cfg.RateLimit.Requests)
	}
	if cfg.RateLimit.Window <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	if cfg.RateLimit.SweepInterval <= 0 || cfg.OTP.SweepInterval <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_SWEEP_INTERVAL and OTP_SWEEP_INTERVAL must be positive")
	}

	return cfg, nil
}

// loadFile merges the YAML overlay into c. A missing file is not an error.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	c.RateLimit.Exclude = append(c.RateLimit.Exclude, fc.RateLimit.Exclude...)
	if fc.CORS != nil {
		if len(fc.CORS.AllowedOrigins) > 0 {
			c.CORS.AllowedOrigins = fc.CORS.AllowedOrigins
		}
		if len(fc.CORS.AllowedMethods) > 0 {
			c.CORS.AllowedMethods = fc.CORS.AllowedMethods
		}
		if len(fc.CORS.AllowedHeaders) > 0 {
			c.CORS.AllowedHeaders = fc.CORS.AllowedHeaders
		}
		if len(fc.CORS.ExposedHeaders) > 0 {
			c.CORS.ExposedHeaders = fc.CORS.ExposedHeaders
		}
		if fc.CORS.MaxAge > 0 {
			c.CORS.MaxAge = fc.CORS.MaxAge
		}
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	return strings.ToLower(valueStr) == "true" || strings.ToLower(valueStr) == "1"
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func parseStringSlice(input string) []string {
	var result []string
	for _, v := range strings.Split(input, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
