// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port int `yaml:"port"` // metrics + health
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

// RedisConfig is optional; an empty URL disables the unit lookup cache.
type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// AuthConfig enables technician authentication on the API when either
// field is set. Bearer tokens are HS256 JWTs whose subject is the technician id.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	APIKey    string `yaml:"api_key"`
}

type WorkflowConfig struct {
	DefaultMaxAttempts int `yaml:"default_max_attempts"`
}

type CatalogConfig struct {
	Path string `yaml:"path"` // SOP step catalog yaml; empty disables catalog checks
}

type TechnicianConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type StatsConfig struct {
	Timezone        string        `yaml:"timezone"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

type Config struct {
	HTTP        HTTPConfig         `yaml:"http"`
	Admin       AdminConfig        `yaml:"admin"`
	Log         LogConfig          `yaml:"log"`
	Database    DatabaseConfig     `yaml:"database"`
	Redis       RedisConfig        `yaml:"redis"`
	Auth        AuthConfig         `yaml:"auth"`
	Workflow    WorkflowConfig     `yaml:"workflow"`
	Catalog     CatalogConfig      `yaml:"catalog"`
	Technicians []TechnicianConfig `yaml:"technicians"`
	Stats       StatsConfig        `yaml:"stats"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads and validates the yaml file at path. Flags are parsed by
// the caller so tests can load configs directly.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes raw yaml, applies defaults and validates required fields.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 15 * time.Second
	}
	if cfg.Admin.Port <= 0 {
		cfg.Admin.Port = 9090
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Workflow.DefaultMaxAttempts == 0 {
		cfg.Workflow.DefaultMaxAttempts = 2
	}
	if cfg.Stats.Timezone == "" {
		cfg.Stats.Timezone = "UTC"
	}
	if cfg.Stats.RefreshInterval <= 0 {
		cfg.Stats.RefreshInterval = 30 * time.Second
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Workflow.DefaultMaxAttempts < 1 {
		return nil, errors.New("workflow.default_max_attempts must be at least 1")
	}
	if _, err := time.LoadLocation(cfg.Stats.Timezone); err != nil {
		return nil, fmt.Errorf("stats.timezone: %w", err)
	}
	seen := make(map[string]bool, len(cfg.Technicians))
	for i, t := range cfg.Technicians {
		if t.ID == "" {
			return nil, fmt.Errorf("technicians[%d].id is required", i)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("technicians[%d]: duplicate id %q", i, t.ID)
		}
		seen[t.ID] = true
	}
	return &cfg, nil
}

// Location returns the configured stats timezone. Parse has already validated it.
func (c StatsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
