package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// DefaultPath is where the server looks for its settings file.
const DefaultPath = "configs/league.yaml"

const (
	host   = "localhost"
	port   = 5432
	user   = "postgres"
	dbname = "LeagueSimulator"
)

// TeamConfig describes a club created when the league is initialized.
// A zero Strength is replaced by a random one.
type TeamConfig struct {
	Name     string `yaml:"name"`
	Strength int    `yaml:"strength"`
}

// Config holds everything the server needs to start.
type Config struct {
	HTTPAddr    string        `yaml:"http_addr"`
	DatabaseURL string        `yaml:"database_url"`
	RedisAddr   string        `yaml:"redis_addr"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	LogLevel    string        `yaml:"log_level"`
	Teams       []TeamConfig  `yaml:"teams"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		HTTPAddr: ":8080",
		DatabaseURL: fmt.Sprintf(
			"host=%s port=%d user=%s dbname=%s sslmode=disable",
			host, port, user, dbname,
		),
		CacheTTL: 30 * time.Second,
		LogLevel: "info",
		Teams: []TeamConfig{
			{Name: "Liverpool"},
			{Name: "Manchester City"},
			{Name: "Chelsea"},
			{Name: "Arsenal"},
		},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	if v := os.Getenv("CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parsing CACHE_TTL %q: %w", v, err)
		}
		cfg.CacheTTL = ttl
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the team list can produce a balanced season.
func (c *Config) Validate() error {
	if len(c.Teams) < 2 || len(c.Teams)%2 != 0 {
		return fmt.Errorf("config: need an even number of at least 2 teams, got %d", len(c.Teams))
	}
	seen := make(map[string]bool, len(c.Teams))
	for _, t := range c.Teams {
		if t.Name == "" {
			return errors.New("config: team name must not be empty")
		}
		if seen[t.Name] {
			return fmt.Errorf("config: duplicate team %q", t.Name)
		}
		seen[t.Name] = true
		if t.Strength < 0 || t.Strength > 100 {
			return fmt.Errorf("config: team %q strength %d outside 0..100", t.Name, t.Strength)
		}
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("config: negative cache_ttl %s", c.CacheTTL)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
