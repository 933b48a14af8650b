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

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	// PlaceholderJWTSecret is used when JWT_SECRET_KEY is unset outside
	// production.
	PlaceholderJWTSecret = "your-secret-key-change-in-production"
	minSecretLength      = 32
)

type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Sentry    SentryConfig
	Postgres  PostgresConfig
}

type ServerConfig struct {
	Environment    string
	LogLevel       string
	Host           string
	Port           string
	AllowedHosts   []string
	AllowedOrigins []string
	// TrustedProxies lists proxy IPs/CIDRs whose X-Forwarded-For is
	// honoured. Empty means the socket address is the client address.
	TrustedProxies []string
}

type AuthConfig struct {
	JWTSecret                string
	JWTAlgorithm             string
	AccessTokenExpireMinutes int
	RefreshTokenExpireDays   int
	BcryptCost               int
	AdminUsername            string
	AdminPassword            string
	AdminEmail               string
}

type RateLimitConfig struct {
	PerMinute int
}

type SentryConfig struct {
	DSN string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

func Load() (Config, error) {
	var errs []error
	intVar := func(key string, fallback int) int {
		v, err := getenvInt(key, fallback)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := Config{
		Server: ServerConfig{
			Environment:    strings.ToLower(getenv("ENVIRONMENT", EnvDevelopment)),
			LogLevel:       getenv("LOG_LEVEL", "INFO"),
			Host:           getenv("HOST", "0.0.0.0"),
			Port:           getenv("PORT", "8001"),
			AllowedHosts:   splitList(getenv("ALLOWED_HOSTS", "*")),
			AllowedOrigins: splitList(getenv("ALLOWED_ORIGINS", "*")),
			TrustedProxies: splitList(os.Getenv("TRUSTED_PROXIES")),
		},
		Auth: AuthConfig{
			JWTSecret:                os.Getenv("JWT_SECRET_KEY"),
			JWTAlgorithm:             getenv("JWT_ALGORITHM", "HS256"),
			AccessTokenExpireMinutes: intVar("ACCESS_TOKEN_EXPIRE_MINUTES", 30),
			RefreshTokenExpireDays:   intVar("REFRESH_TOKEN_EXPIRE_DAYS", 7),
			BcryptCost:               intVar("BCRYPT_COST", 0),
			AdminUsername:            strings.TrimSpace(os.Getenv("ADMIN_USERNAME")),
			AdminPassword:            os.Getenv("ADMIN_PASSWORD"),
			AdminEmail:               strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
		},
		RateLimit: RateLimitConfig{
			PerMinute: intVar("RATE_LIMIT_PER_MINUTE", 60),
		},
		Sentry: SentryConfig{
			DSN: os.Getenv("SENTRY_DSN"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	if cfg.Auth.JWTSecret == "" && !cfg.IsProduction() {
		cfg.Auth.JWTSecret = PlaceholderJWTSecret
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server must not start with.
func (c Config) Validate() error {
	var errs []error

	switch c.Server.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		errs = append(errs, fmt.Errorf("ENVIRONMENT must be one of development, production, test; got %q", c.Server.Environment))
	}

	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET_KEY is required"))
	} else if c.IsProduction() {
		if c.Auth.JWTSecret == PlaceholderJWTSecret || c.Auth.JWTSecret == "changethis" {
			errs = append(errs, errors.New("JWT_SECRET_KEY must be changed in production"))
		} else if len(c.Auth.JWTSecret) < minSecretLength {
			errs = append(errs, fmt.Errorf("JWT_SECRET_KEY must be at least %d bytes in production", minSecretLength))
		}
	}

	if c.Auth.AccessTokenExpireMinutes <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive"))
	}
	if c.Auth.RefreshTokenExpireDays <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_EXPIRE_DAYS must be positive"))
	}
	if (c.Auth.AdminUsername == "") != (c.Auth.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_USERNAME and ADMIN_PASSWORD are required together"))
	}

	return errors.Join(errs...)
}

// Warnings lists settings that are tolerated but unsafe.
func (c Config) Warnings() []string {
	var warnings []string
	if c.Auth.JWTSecret == PlaceholderJWTSecret {
		warnings = append(warnings, "JWT_SECRET_KEY is not set; using the placeholder secret")
	} else if len(c.Auth.JWTSecret) < minSecretLength {
		warnings = append(warnings, fmt.Sprintf("JWT_SECRET_KEY is shorter than %d bytes", minSecretLength))
	}
	for _, origin := range c.Server.AllowedOrigins {
		if origin == "*" && c.IsProduction() {
			warnings = append(warnings, "ALLOWED_ORIGINS allows any origin")
		}
	}
	return warnings
}

func (c Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

func (a AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTokenExpireMinutes) * time.Minute
}

func (a AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTokenExpireDays) * 24 * time.Hour
}

func getenv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid integer %q", key, val)
	}
	return parsed, nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
