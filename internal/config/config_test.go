package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("THERA_WEBHOOK", "https://discord.example/hook")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, 5, cfg.MaxDistance)
	assert.Equal(t, []string{"Jita", "5ZXX-K"}, cfg.Systems)
	assert.Equal(t, 60*time.Second, cfg.PollInterval)
	assert.Equal(t, ":8000", cfg.MetricsAddr)
	assert.Equal(t, "https://esi.evetech.net/latest", cfg.ESIBaseURL)
	assert.Equal(t, time.Duration(0), cfg.RouteCacheTTL)
	assert.False(t, cfg.JournalEnabled())
}

func TestLoad_MissingWebhook(t *testing.T) {
	t.Setenv("THERA_WEBHOOK", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingWebhook)
}

func TestLoad_InvalidMaxDistance(t *testing.T) {
	t.Setenv("THERA_WEBHOOK", "https://discord.example/hook")
	t.Setenv("THERA_MAXDISTANCE", "five")

	_, err := Load()
	assert.ErrorContains(t, err, "THERA_MAXDISTANCE")
}

func TestLoad_MaxDistanceFallbackName(t *testing.T) {
	t.Setenv("THERA_WEBHOOK", "https://discord.example/hook")
	t.Setenv("THERA_MAXDISTANCE", "")
	t.Setenv("MAXDISTANCE", "8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.MaxDistance)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("THERA_WEBHOOK", "https://discord.example/hook")
	t.Setenv("LOGLEVEL", "debug")
	t.Setenv("THERA_SYSTEMS", " Amarr , ,Dodixie")
	t.Setenv("THERA_POLL_INTERVAL", "90")
	t.Setenv("THERA_ROUTE_CACHE_TTL", "1h")
	t.Setenv("ESI_BASE_URL", "http://esi.local/latest/")
	t.Setenv("THERA_DB_HOST", "db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, []string{"Amarr", "Dodixie"}, cfg.Systems)
	assert.Equal(t, 90*time.Second, cfg.PollInterval)
	assert.Equal(t, time.Hour, cfg.RouteCacheTTL)
	assert.Equal(t, "http://esi.local/latest", cfg.ESIBaseURL)
	assert.True(t, cfg.JournalEnabled())
	assert.Equal(t, "host=db port=5432 user= dbname=thera sslmode=disable", cfg.AppDSN())
}

func TestParseDuration_Negative(t *testing.T) {
	_, err := parseDuration("-5")
	assert.Error(t, err)
	_, err = parseDuration("-5s")
	assert.Error(t, err)
}

func TestLoadJournal(t *testing.T) {
	t.Setenv("THERA_WEBHOOK", "")
	t.Setenv("THERA_DB_HOST", "")

	_, err := LoadJournal()
	assert.ErrorContains(t, err, "THERA_DB_HOST")

	t.Setenv("THERA_DB_HOST", "db")
	t.Setenv("THERA_DB_USER", "thera")
	t.Setenv("THERA_DB_PASSWORD", "secret")

	cfg, err := LoadJournal()
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5432 user=thera dbname=postgres sslmode=disable password=secret", cfg.AdminDSN())
}
