/*
Package config loads server configuration.

LAYERING (later wins):
  1. Defaults()
  2. YAML file passed to Load (optional, unknown keys rejected)
  3. .env in the working directory (optional, never overrides the process env)
  4. Environment: CAMPUS_PORT, CAMPUS_DB, CAMPUS_JWT_SECRET,
     CAMPUS_LOG_LEVEL, CAMPUS_AUDIT_INTERVAL, CAMPUS_CORS_ORIGINS

EXAMPLE (campus.yaml):
  server:
    port: 8080
  storage:
    dsn: ./data/campus.db
  auth:
    jwt_secret: change-me
    token_ttl: 24h
  catalog:
    venues: [Grand Auditorium, Conference Hall A, Sports Complex]
    time_slots: [Morning, Afternoon, Evening]
  budget:
    - {category: Marketing, amount: "5000"}
  audit:
    interval: 15m
*/
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/warp/campus-scheduler/analytics"
	"github.com/warp/campus-scheduler/campus"
	"gopkg.in/yaml.v3"
)

// Config is the complete server configuration.
type Config struct {
	Server  ServerConfig       `yaml:"server"`
	Storage StorageConfig      `yaml:"storage"`
	Auth    AuthConfig         `yaml:"auth"`
	Catalog CatalogConfig      `yaml:"catalog"`
	Budget  []BudgetAllocation `yaml:"budget"`
	Audit   AuditConfig        `yaml:"audit"`
	Log     LogConfig          `yaml:"log"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// StorageConfig selects the backend: "memory", a SQLite path, or a
// postgres:// URL.
type StorageConfig struct {
	DSN string `yaml:"dsn"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type CatalogConfig struct {
	Venues    []string `yaml:"venues"`
	TimeSlots []string `yaml:"time_slots"`
}

// BudgetAllocation keeps the amount as text so it parses straight into a
// decimal.
type BudgetAllocation struct {
	Category string `yaml:"category"`
	Amount   string `yaml:"amount"`
}

type AuditConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Defaults returns a configuration that runs locally once a JWT secret is
// supplied.
func Defaults() *Config {
	budget := make([]BudgetAllocation, len(analytics.DefaultAllocations))
	for i, a := range analytics.DefaultAllocations {
		budget[i] = BudgetAllocation{Category: a.Category, Amount: a.Amount.String()}
	}

	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Storage: StorageConfig{DSN: "./data/campus.db"},
		Auth:    AuthConfig{TokenTTL: 24 * time.Hour},
		Catalog: CatalogConfig{
			Venues:    []string{"Grand Auditorium", "Conference Hall A", "Sports Complex"},
			TimeSlots: append([]string(nil), campus.DefaultTimeSlots...),
		},
		Budget: budget,
		Audit:  AuditConfig{Enabled: true, Interval: 15 * time.Minute},
		Log:    LogConfig{Level: "info"},
	}
}

// Load layers the YAML file at path (if non-empty), .env and the process
// environment over Defaults, then validates the result.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays CAMPUS_* variables read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("CAMPUS_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CAMPUS_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("CAMPUS_DB"); ok {
		c.Storage.DSN = v
	}
	if v, ok := lookup("CAMPUS_JWT_SECRET"); ok {
		c.Auth.JWTSecret = v
	}
	if v, ok := lookup("CAMPUS_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup("CAMPUS_AUDIT_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CAMPUS_AUDIT_INTERVAL: %w", err)
		}
		c.Audit.Interval = d
	}
	if v, ok := lookup("CAMPUS_CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = splitList(v)
	}
	return nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if strings.TrimSpace(c.Storage.DSN) == "" {
		errs = append(errs, errors.New("storage.dsn is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required (or CAMPUS_JWT_SECRET)"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if len(c.Catalog.TimeSlots) == 0 {
		errs = append(errs, errors.New("catalog.time_slots must not be empty"))
	}
	for _, slot := range c.Catalog.TimeSlots {
		if strings.EqualFold(slot, campus.TimeTBA) {
			errs = append(errs, fmt.Errorf("catalog.time_slots: %q is implicit", campus.TimeTBA))
		}
	}
	if c.Audit.Enabled && c.Audit.Interval <= 0 {
		errs = append(errs, errors.New("audit.interval must be positive"))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Allocations(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Allocations parses the budget section.
func (c *Config) Allocations() ([]analytics.Allocation, error) {
	if len(c.Budget) == 0 {
		return nil, errors.New("budget must list at least one category")
	}

	seen := make(map[string]bool, len(c.Budget))
	out := make([]analytics.Allocation, 0, len(c.Budget))
	for _, b := range c.Budget {
		name := strings.TrimSpace(b.Category)
		if name == "" {
			return nil, errors.New("budget: category name is required")
		}
		if seen[name] {
			return nil, fmt.Errorf("budget: duplicate category %q", name)
		}
		seen[name] = true

		amount, err := decimal.NewFromString(strings.TrimSpace(b.Amount))
		if err != nil {
			return nil, fmt.Errorf("budget: category %q: invalid amount %q", name, b.Amount)
		}
		out = append(out, analytics.Allocation{Category: name, Amount: amount})
	}
	return out, nil
}

// LogLevel parses log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
