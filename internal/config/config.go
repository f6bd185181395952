package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the headset daemon.
// All values come from env (or an env-file loaded by the process runner).
// Postgres and Redis are optional; without them history and diagnostics stay in memory.
type Config struct {
	App     AppConfig
	Headset HeadsetConfig
	DB      DBConfig
	Redis   RedisConfig
	Auth    AuthConfig
}

type AppConfig struct {
	Env  string
	Host string
	Port int

	// LogFile enables a rotating JSON log file in addition to stdout.
	LogFile string

	// AllowedOrigins lists browser origins allowed to open the event stream.
	// Empty allows any origin.
	AllowedOrigins []string
}

type HeadsetConfig struct {
	PluginName string

	ActivePollInterval   time.Duration
	ConnectedInterval    time.Duration
	DisconnectedInterval time.Duration
	MaxRetryInterval     time.Duration
	RequestTimeout       time.Duration

	// Base URL overrides per vendor; empty means the vendor's fixed loopback endpoint.
	PlantronicsURL string
	JabraURL       string
	SennheiserURL  string

	DiagnosticsMaxEvents int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.App.Host = strings.TrimSpace(os.Getenv("APP_HOST"))
	c.App.Port, parseErrs = optionalInt(parseErrs, "APP_PORT")
	c.App.LogFile = strings.TrimSpace(os.Getenv("LOG_FILE"))
	c.App.AllowedOrigins = splitList(os.Getenv("APP_ALLOWED_ORIGINS"))

	c.Headset.PluginName = strings.TrimSpace(os.Getenv("HEADSET_PLUGIN_NAME"))
	c.Headset.ActivePollInterval, parseErrs = optionalDuration(parseErrs, "HEADSET_ACTIVE_POLL_INTERVAL")
	c.Headset.ConnectedInterval, parseErrs = optionalDuration(parseErrs, "HEADSET_CONNECTED_INTERVAL")
	c.Headset.DisconnectedInterval, parseErrs = optionalDuration(parseErrs, "HEADSET_DISCONNECTED_INTERVAL")
	c.Headset.MaxRetryInterval, parseErrs = optionalDuration(parseErrs, "HEADSET_MAX_RETRY_INTERVAL")
	c.Headset.RequestTimeout, parseErrs = optionalDuration(parseErrs, "VENDOR_REQUEST_TIMEOUT")
	c.Headset.PlantronicsURL = strings.TrimSpace(os.Getenv("PLANTRONICS_BASE_URL"))
	c.Headset.JabraURL = strings.TrimSpace(os.Getenv("JABRA_BASE_URL"))
	c.Headset.SennheiserURL = strings.TrimSpace(os.Getenv("SENNHEISER_BASE_URL"))
	c.Headset.DiagnosticsMaxEvents, parseErrs = optionalInt(parseErrs, "DIAGNOSTICS_MAX_EVENTS")

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	c.DB.Port, parseErrs = optionalInt(parseErrs, "DB_PORT")
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port, parseErrs = optionalInt(parseErrs, "REDIS_PORT")
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL, parseErrs = optionalDuration(parseErrs, "JWT_ACCESS_TTL")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the config and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		c.App.Env = "local"
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Host == "" {
		c.App.Host = "127.0.0.1"
	}
	if c.App.Port == 0 {
		c.App.Port = 8765
	}
	if c.App.Port < 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	h := &c.Headset
	if h.PluginName == "" {
		h.PluginName = "genesys-cloud-headset-library"
	}
	if h.ActivePollInterval <= 0 {
		h.ActivePollInterval = 2 * time.Second
	}
	if h.ConnectedInterval <= 0 {
		h.ConnectedInterval = 6 * time.Second
	}
	if h.DisconnectedInterval <= 0 {
		h.DisconnectedInterval = 2 * time.Second
	}
	if h.MaxRetryInterval <= 0 {
		h.MaxRetryInterval = 30 * time.Second
	}
	if h.MaxRetryInterval < h.DisconnectedInterval {
		errs = append(errs, errors.New("HEADSET_MAX_RETRY_INTERVAL must not be less than HEADSET_DISCONNECTED_INTERVAL"))
	}
	if h.RequestTimeout <= 0 {
		h.RequestTimeout = 5 * time.Second
	}
	if h.DiagnosticsMaxEvents <= 0 {
		h.DiagnosticsMaxEvents = 1000
	}

	if c.DBEnabled() {
		if c.DB.Port == 0 {
			c.DB.Port = 5432
		}
		if c.DB.Port < 0 || c.DB.Port > 65535 {
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
				c.DB.SSLMode = "disable"
			}
		}
		if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	}

	if c.RedisEnabled() {
		if c.Redis.Port == 0 {
			c.Redis.Port = 6379
		}
		if c.Redis.Port < 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	}

	if c.IsProduction() && c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 12 * time.Hour
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

// AuthEnabled reports whether the control API requires bearer tokens.
func (c Config) AuthEnabled() bool { return c.Auth.JWTSecret != "" }

func (c Config) DBEnabled() bool { return c.DB.Host != "" }

func (c Config) RedisEnabled() bool { return c.Redis.Host != "" }

func (c Config) HTTPAddr() string {
	return net.JoinHostPort(c.App.Host, strconv.Itoa(c.App.Port))
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
	return net.JoinHostPort(c.Redis.Host, strconv.Itoa(c.Redis.Port))
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func optionalInt(errs []error, key string) (int, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, errs
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be an integer, got %q", key, v))
	}
	return n, errs
}

func optionalDuration(errs []error, key string) (time.Duration, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, errs
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be a duration, got %q", key, v))
	}
	return d, errs
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
