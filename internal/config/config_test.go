package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "league.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Len(t, cfg.Teams, 4)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
http_addr: ":9090"
cache_ttl: 1m
teams:
  - name: Leeds
    strength: 70
  - name: Everton
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, []TeamConfig{{Name: "Leeds", Strength: 70}, {Name: "Everton"}}, cfg.Teams)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":7000")
	t.Setenv("DATABASE_URL", "postgres://league@db/league")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CACHE_TTL", "5s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.HTTPAddr)
	assert.Equal(t, "postgres://league@db/league", cfg.DatabaseURL)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.CacheTTL)
}

func TestLoad_BadTTL(t *testing.T) {
	t.Setenv("CACHE_TTL", "soon")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeFile(t, "teams: [\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		teams []TeamConfig
	}{
		{"odd", []TeamConfig{{Name: "A"}, {Name: "B"}, {Name: "C"}}},
		{"too few", []TeamConfig{{Name: "A"}}},
		{"duplicate", []TeamConfig{{Name: "A"}, {Name: "A"}}},
		{"unnamed", []TeamConfig{{Name: "A"}, {}}},
		{"strength", []TeamConfig{{Name: "A", Strength: 101}, {Name: "B"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Teams = tc.teams
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}
