// Package config loads the application configuration.
//
// Sources, later ones winning:
//  1. defaults declared in the env-default tags below
//  2. an optional YAML file: CONFIG_PATH=... or --config=...
//  3. environment variables, including those loaded from a .env file
//
// The result is built once in main and passed down; nothing reads the
// environment after startup.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// DevJWTSecret is the fallback signing secret. It is refused in prod.
	DevJWTSecret = "dev-secret"
)

// Config is the root configuration. Every field maps to a YAML key and
// can be overridden by the env variable named in its env tag.
type Config struct {
	// Env selects log format and verbosity: dev, staging or prod.
	Env string `yaml:"env" env:"ENV" env-default:"dev"`

	HTTPServer `yaml:"http_server"`
	Storage    Storage `yaml:"storage"`
	Auth       Auth    `yaml:"auth"`
	Redis      Redis   `yaml:"redis"`
}

// HTTPServer holds the listener settings.
type HTTPServer struct {
	Host         string        `yaml:"host"          env:"HTTP_HOST"`
	Port         int           `yaml:"port"          env:"PORT"              env-default:"3000"`
	ReadTimeout  time.Duration `yaml:"read_timeout"  env:"HTTP_READ_TIMEOUT"  env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"  env:"HTTP_IDLE_TIMEOUT"  env-default:"60s"`

	// AuthRateLimit is the number of /auth requests allowed per IP per minute.
	// 0 disables the limiter.
	AuthRateLimit int `yaml:"auth_rate_limit" env:"AUTH_RATE_LIMIT" env-default:"20"`

	// CORSAllowedOrigins enables CORS when not empty.
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:","`
}

// Addr is the host:port the server listens on.
func (h HTTPServer) Addr() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

type Storage struct {
	Driver      string `yaml:"driver"       env:"STORAGE_DRIVER" env-default:"sqlite"`
	Path        string `yaml:"path"         env:"STORAGE_PATH"   env-default:"storage/students.db"`
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`
}

type Auth struct {
	JWTSecret  string        `yaml:"jwt_secret"  env:"JWT_SECRET"  env-default:"dev-secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"   env:"JWT_TTL"     env-default:"24h"`
	BcryptCost int           `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
}

// Redis enables token revocation (and POST /auth/logout) when Addr is set.
type Redis struct {
	Addr string `yaml:"addr" env:"REDIS_ADDR"`
}

// IsProduction reports whether Env is prod.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProd
}

// Load builds the configuration from args (without the program name),
// the process environment and the optional YAML file.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("students-api", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFlag := fs.String("config", "", "path to the configuration YAML file")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = *configFlag
	}

	var cfg Config
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configPath, err)
		}
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad loads .env (if present) and the configuration, exiting on error.
func MustLoad() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("cannot load .env: %s", err)
	}

	cfg, err := Load(os.Args[1:])
	if err != nil {
		log.Fatalf("cannot load config: %s", err)
	}
	return cfg
}

func (c *Config) validate() error {
	var errs []error

	switch c.Env {
	case EnvDev, EnvStaging, EnvProd:
	default:
		errs = append(errs, fmt.Errorf("env must be dev, staging or prod, got %q", c.Env))
	}

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.AuthRateLimit < 0 {
		errs = append(errs, errors.New("auth_rate_limit must not be negative"))
	}

	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for sqlite"))
		}
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be sqlite or postgres, got %q", c.Storage.Driver))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	if c.IsProduction() && c.Auth.JWTSecret == DevJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in prod"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
