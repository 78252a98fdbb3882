package config

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"

	// insecureSecret is the built-in JWT secret, only tolerated in development.
	insecureSecret = "supersecretkey"
)

type Config struct {
	Addr           string        `yaml:"addr"`
	Env            string        `yaml:"env"`
	JWTSecret      string        `yaml:"jwt_secret"`
	APITimeout     time.Duration `yaml:"timeout"`
	TokenDuration  time.Duration `yaml:"token_duration"`
	Store          StoreConfig   `yaml:"store"`
	MigrateOnStart bool          `yaml:"migrate_on_start"`
	LogLevel       string        `yaml:"log_level"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	// Timezone is the IANA zone date-only filter values are read in.
	Timezone string `yaml:"timezone"`
}

type StoreConfig struct {
	Driver        string `yaml:"driver"`
	DatabasePath  string `yaml:"database_path"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

// CookiePolicy describes the session cookie. It is resolved once from the
// environment and handed to the HTTP layer.
type CookiePolicy struct {
	Name     string
	Path     string
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

func LoadConfig(path string) (*Config, error) {
	apiTimeout := 15 * time.Second
	tokenDuration := 7 * 24 * time.Hour

	cfg := &Config{
		Addr:          getEnv("LEADS_ADDR", ":5000"),
		Env:           getEnv("LEADS_ENV", EnvDevelopment),
		JWTSecret:     getEnv("LEADS_JWT_SECRET", insecureSecret),
		APITimeout:    apiTimeout,
		TokenDuration: tokenDuration,
		Store: StoreConfig{
			Driver:        getEnv("LEADS_STORE_DRIVER", StoreSQLite),
			DatabasePath:  getEnv("LEADS_DATABASE_PATH", "leads.db"),
			MongoURI:      getEnv("LEADS_MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase: getEnv("LEADS_MONGO_DATABASE", "leads"),
		},
		MigrateOnStart: true,
		LogLevel:       getEnv("LEADS_LOG_LEVEL", "info"),
		CORSOrigins:    []string{"http://localhost:3000", "http://localhost:5173"},
		Timezone:       getEnv("LEADS_TIMEZONE", "Local"),
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate rejects configurations the server must not start with.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvDevelopment, EnvProduction, "test":
	default:
		return fmt.Errorf("env must be development, test or production, got %q", c.Env)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if c.JWTSecret == insecureSecret && c.Env != EnvDevelopment {
		return fmt.Errorf("jwt_secret uses the insecure default outside development; set LEADS_JWT_SECRET")
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.TokenDuration <= 0 {
		return fmt.Errorf("token_duration must be positive")
	}

	switch c.Store.Driver {
	case StoreSQLite:
		if c.Store.DatabasePath == "" {
			return fmt.Errorf("store.database_path is required for the sqlite driver")
		}
	case StoreMongo:
		if c.Store.MongoURI == "" || c.Store.MongoDatabase == "" {
			return fmt.Errorf("store.mongo_uri and store.mongo_database are required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.Env == EnvProduction }

// CookiePolicy returns the session cookie settings. Production serves the
// API and the client from different sites over TLS, which requires
// SameSite=None and Secure; elsewhere a lax, non-secure cookie works over
// plain HTTP.
func (c *Config) CookiePolicy() CookiePolicy {
	p := CookiePolicy{
		Name:     "token",
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   c.TokenDuration,
	}
	if c.IsProduction() {
		p.Secure = true
		p.SameSite = http.SameSiteNoneMode
	}
	return p
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// Location loads Timezone. "Local" and the empty string mean time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
