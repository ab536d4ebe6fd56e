package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the console process.
// Values come from env, optionally preloaded from a .env file.
// Components receive the values they need by construction; nothing else reads env.
type Config struct {
	App     AppConfig
	Backend BackendConfig
	Agent   AgentConfig
	Session SessionConfig
	DB      DBConfig
	Redis   RedisConfig
	Auth    AuthConfig
}

type AppConfig struct {
	Env  string
	Port int
}

// BackendConfig points at the calls/SMS/leads backend the console synchronizes with.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AgentConfig carries the settings sent along with every start-call command.
type AgentConfig struct {
	AgentName   string
	Brokerage   string
	DefaultArea string
}

type SessionConfig struct {
	IdleTTL time.Duration
}

// DBConfig is optional. When Host is empty the audit log stays in memory.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is optional. When Host is empty start-call requests are not capped.
type RedisConfig struct {
	Host string
	Port int

	// CallConcurrencyLimit bounds in-flight start-call requests per workspace.
	CallConcurrencyLimit int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

const (
	DefaultBackendBaseURL = "http://localhost:8000"
	DefaultBackendTimeout = 15 * time.Second
	DefaultAgentName      = "Agent"
	DefaultBrokerage      = "Harvey Realty"
	DefaultArea           = "the area"
	DefaultSessionIdleTTL = 30 * time.Minute
	DefaultCallCap        = 5
)

func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.Backend.BaseURL = strings.TrimSpace(os.Getenv("BACKEND_BASE_URL"))
	{
		d, err := optionalDuration("BACKEND_TIMEOUT")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Backend.Timeout = d
	}

	c.Agent.AgentName = strings.TrimSpace(os.Getenv("AGENT_NAME"))
	c.Agent.Brokerage = strings.TrimSpace(os.Getenv("BROKERAGE"))
	c.Agent.DefaultArea = strings.TrimSpace(os.Getenv("DEFAULT_AREA"))

	{
		d, err := optionalDuration("SESSION_IDLE_TTL")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Session.IdleTTL = d
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	if c.DB.Host != "" {
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	if c.Redis.Host != "" {
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}
	{
		n, err := optionalInt("CALL_CONCURRENCY_LIMIT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.CallConcurrencyLimit = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate().
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports every problem at once and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = DefaultBackendBaseURL
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("BACKEND_BASE_URL must be an absolute URL, got %q", c.Backend.BaseURL))
	} else if c.IsProduction() && u.Scheme != "https" {
		errs = append(errs, errors.New("BACKEND_BASE_URL must use https in production"))
	}
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = DefaultBackendTimeout
	}

	if c.Agent.AgentName == "" {
		c.Agent.AgentName = DefaultAgentName
	}
	if c.Agent.Brokerage == "" {
		c.Agent.Brokerage = DefaultBrokerage
	}
	if c.Agent.DefaultArea == "" {
		c.Agent.DefaultArea = DefaultArea
	}
	if c.Session.IdleTTL <= 0 {
		c.Session.IdleTTL = DefaultSessionIdleTTL
	}

	if c.DBEnabled() {
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required when DB_HOST is set"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required when DB_HOST is set"))
		}
		if c.DB.SSLMode == "" {
			if c.IsProduction() {
				errs = append(errs, errors.New("DB_SSLMODE is required in production"))
			} else {
				// Production must be explicit.
				c.DB.SSLMode = "disable"
			}
		}
		if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	}

	if c.RedisEnabled() {
		if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	}
	if c.Redis.CallConcurrencyLimit < 0 {
		errs = append(errs, fmt.Errorf("CALL_CONCURRENCY_LIMIT must be >= 0, got %d", c.Redis.CallConcurrencyLimit))
	} else if c.Redis.CallConcurrencyLimit == 0 {
		c.Redis.CallConcurrencyLimit = DefaultCallCap
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) DBEnabled() bool {
	return c.DB.Host != ""
}

func (c Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// loadEnvFile preloads ENV_FILE when set (missing file is an error),
// otherwise ./.env when present. Variables already in the environment win.
func loadEnvFile() error {
	if p := strings.TrimSpace(os.Getenv("ENV_FILE")); p != "" {
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("ENV_FILE %q: %w", p, err)
		}
		return nil
	}
	_ = godotenv.Load()
	return nil
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(key string) (int, error) {
	if strings.TrimSpace(os.Getenv(key)) == "" {
		return 0, nil
	}
	return mustInt(key)
}

func optionalDuration(key string) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration, got %q", key, v)
	}
	return d, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
