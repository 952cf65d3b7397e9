// Package config handles loading and parsing application configuration.
// It supports three sources (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//  3. Nothing at all: every value is then read from the environment
//     (env:"..." tags) with env-default fallbacks, which is how the
//     service runs in a container.
//
// Environment variables always override values from the YAML file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultAdminKey is used when no admin key is configured. It exists so a
// fresh checkout starts; it MUST be overridden anywhere the service is
// reachable, and the process logs a warning while it is in use.
const DefaultAdminKey = "admin123"

// Storage backend names accepted in storage.backend.
const (
	BackendSQLite      = "sqlite"
	BackendSQLiteAsync = "sqlite-async"
	BackendMongo       = "mongo"
	BackendJSONFile    = "jsonfile"
	BackendPostgres    = "postgres"
	BackendRedis       = "redis"
	BackendMemory      = "memory"
)

// Config is the root configuration structure.
// Every field maps to a key in the YAML file AND can be overridden
// by the corresponding environment variable (env:"...").
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-default:"dev"`

	// AdminKey is the shared secret expected in the admin-key header of
	// GET /api/students.
	AdminKey string `yaml:"admin_key" env:"ADMIN_KEY" env-default:"admin123"`

	// ClientDir, when set, is served as static files at "/".
	ClientDir string `yaml:"client_dir" env:"CLIENT_DIR"`

	HTTPServer `yaml:"http_server"`
	CORS       CORS    `yaml:"cors"`
	Storage    Storage `yaml:"storage"`
}

// HTTPServer holds settings specific to the HTTP server.
// Nested under http_server: in the YAML file.
type HTTPServer struct {
	// Addr is the TCP address the server listens on, e.g. "localhost:3000".
	Addr            string        `yaml:"address" env:"HTTP_SERVER_ADDR" env-default:"localhost:3000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

// CORS lists the origins allowed to call the API from a browser.
type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
}

// Storage selects and configures the persistence backend.
type Storage struct {
	// Backend is one of the Backend* constants.
	Backend string `yaml:"backend" env:"STORAGE_BACKEND" env-default:"sqlite"`

	// Timeout bounds every individual storage call.
	Timeout time.Duration `yaml:"timeout" env:"STORAGE_TIMEOUT" env-default:"5s"`

	SQLitePath string `yaml:"sqlite_path" env:"STORAGE_PATH" env-default:"storage/students.db"`
	JSONPath   string `yaml:"json_path" env:"STORAGE_JSON_PATH" env-default:"storage/students.json"`

	MongoURI        string `yaml:"mongo_uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	MongoDatabase   string `yaml:"mongo_database" env:"MONGO_DATABASE" env-default:"registration"`
	MongoCollection string `yaml:"mongo_collection" env:"MONGO_COLLECTION" env-default:"students"`

	PostgresDSN string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`

	RedisURL    string `yaml:"redis_url" env:"REDIS_URL" env-default:"redis://localhost:6379/0"`
	RedisPrefix string `yaml:"redis_prefix" env:"REDIS_PREFIX" env-default:"registration:"`
}

// UsesDefaultAdminKey reports whether the admin key was left at its
// insecure default.
func (c *Config) UsesDefaultAdminKey() bool {
	return c.AdminKey == DefaultAdminKey
}

// Validate checks values cleanenv cannot express as tags.
func (c *Config) Validate() error {
	var errs []error

	switch c.Env {
	case "dev", "staging", "prod":
	default:
		errs = append(errs, fmt.Errorf("env %q: must be dev, staging or prod", c.Env))
	}

	if c.AdminKey == "" {
		errs = append(errs, errors.New("admin_key must not be empty"))
	}
	if c.Storage.Timeout <= 0 {
		errs = append(errs, errors.New("storage.timeout must be positive"))
	}

	switch c.Storage.Backend {
	case BackendSQLite, BackendSQLiteAsync:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required for sqlite backends"))
		}
	case BackendJSONFile:
		if c.Storage.JSONPath == "" {
			errs = append(errs, errors.New("storage.json_path is required for the jsonfile backend"))
		}
	case BackendMongo:
		if c.Storage.MongoURI == "" {
			errs = append(errs, errors.New("storage.mongo_uri is required for the mongo backend"))
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres backend"))
		}
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			errs = append(errs, errors.New("storage.redis_url is required for the redis backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend))
	}

	return errors.Join(errs...)
}

// Load reads configuration from path, or from the environment alone when
// path is empty, and validates it.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config.Load: read env: %w", err)
		}
	} else {
		// Verify the file exists before trying to read it, for a clearer
		// message than a cryptic "open: no such file" later.
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("config.Load: config file does not exist: %s", path)
		}
		// cleanenv.ReadConfig reads the YAML file, then applies env
		// overrides and env-default values.
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: read %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// MustLoad reads, validates, and returns the application config.
// Functions prefixed with "Must" are allowed to fatal on failure: if this
// returns, the config is valid.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot load config: %s", err)
	}
	return cfg
}
