package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "catalog.csv", cfg.Catalog.Path)
	assert.Equal(t, "cache.db", cfg.Cache.Path)
	assert.Equal(t, 168, cfg.Cache.TTLHours)
	assert.Equal(t, "https://store.steampowered.com", cfg.Steam.BaseURL)
	assert.Equal(t, "https://api.rawg.io", cfg.RAWG.BaseURL)
	assert.Equal(t, "https://api.igdb.com/v4", cfg.IGDB.BaseURL)
	assert.Equal(t, "https://query.wikidata.org/sparql", cfg.Wikidata.SPARQLURL)
	assert.Equal(t, 90, cfg.Consensus.TitleThreshold)
	assert.Equal(t, 1, cfg.Consensus.YearTolerance)
	assert.Equal(t, 2, cfg.Consensus.MinSources)
	assert.Equal(t, []string{"steam", "rawg", "igdb", "hltb", "wikidata"}, cfg.Diagnose.Sources)
	assert.Equal(t, 4, cfg.Diagnose.Parallelism)
	assert.Equal(t, 90, cfg.Resolve.AcceptScore)
	assert.Equal(t, 1, cfg.Resolve.AcceptYearTolerance)
	assert.Equal(t, 200, cfg.Review.MaxRows)
	assert.Equal(t, "production_tiers.yaml", cfg.Tiers.Path)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
catalog:
  path: games.csv
log:
  level: debug
  format: console
consensus:
  min_sources: 3
diagnose:
  sources: [steam, hltb]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "games.csv", cfg.Catalog.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 3, cfg.Consensus.MinSources)
	assert.Equal(t, []string{"steam", "hltb"}, cfg.Diagnose.Sources)
	// Defaults still apply for unset values
	assert.Equal(t, 90, cfg.Consensus.TitleThreshold)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
catalog:
  path: games.csv
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("CATALOG_CATALOG_PATH", "other.csv")
	t.Setenv("CATALOG_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "other.csv", cfg.Catalog.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("CATALOG_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with the fields validation inspects.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Catalog.Path = "catalog.csv"
	cfg.Consensus.TitleThreshold = 90
	cfg.Consensus.MinSources = 2
	cfg.Diagnose.Parallelism = 4
	cfg.Resolve.AcceptScore = 90
	cfg.Review.MaxRows = 200
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateTag_SourcesNeedCredentials(t *testing.T) {
	cfg := validDefaults()
	cfg.Diagnose.Sources = []string{"steam", "rawg", "igdb"}

	err := cfg.Validate("tag")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rawg.key is required")
	assert.Contains(t, err.Error(), "igdb.client_id and igdb.token are required")

	cfg.RAWG.Key = "rawg-key"
	cfg.IGDB.ClientID = "twitch-id"
	cfg.IGDB.Token = "twitch-token"
	assert.NoError(t, cfg.Validate("tag"))
}

func TestValidateTag_KeylessSources(t *testing.T) {
	cfg := validDefaults()
	cfg.Diagnose.Sources = []string{"steam", "hltb", "wikidata"}

	assert.NoError(t, cfg.Validate("tag"))
}

func TestValidateResolve_AcceptScoreBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Resolve.AcceptScore = 101

	err := cfg.Validate("resolve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve.accept_score must be between 0 and 100")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateReview_MaxRows(t *testing.T) {
	cfg := validDefaults()
	cfg.Review.MaxRows = 0

	err := cfg.Validate("review")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "review.max_rows must be >= 1")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateCommonBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Consensus.MinSources = 0
	err := cfg.Validate("review")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "consensus.min_sources must be >= 1")

	cfg.Consensus.MinSources = 2
	cfg.Diagnose.Parallelism = 0
	err = cfg.Validate("review")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "diagnose.parallelism must be between 1 and 32")
}
