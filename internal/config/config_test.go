package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "fundscan.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.Server.CORSOrigins)
	assert.Equal(t, ProviderFirecrawl, cfg.Search.Provider)
	assert.Equal(t, ProviderPerplexity, cfg.Generate.Provider)
	assert.Equal(t, "https://api.firecrawl.dev/v2", cfg.Firecrawl.BaseURL)
	assert.Equal(t, "https://s.jina.ai", cfg.Jina.SearchBaseURL)
	assert.Equal(t, "sonar", cfg.Perplexity.Model)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.ProModel)
	assert.Equal(t, int64(4096), cfg.Anthropic.MaxTokens)
	assert.InDelta(t, 3.0, cfg.Notion.RPS, 0.001)
	assert.False(t, cfg.Notion.Enabled())
	assert.Equal(t, 300*time.Second, cfg.Pipeline.Timeout())
	assert.Equal(t, time.Duration(0), cfg.Pipeline.AttemptTimeout())
	assert.Equal(t, 24*time.Hour, cfg.Pipeline.ProfileCacheTTL())
	assert.True(t, cfg.Pipeline.Website)
	assert.Zero(t, cfg.Pipeline.Concurrency)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/fundscan
log:
  level: debug
  format: console
server:
  port: 9090
generate:
  provider: anthropic
pipeline:
  timeout_secs: 120
  attempt_timeout_secs: 45
  concurrency: 2
notion:
  token: ntn_token
  report_db: db-1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ProviderAnthropic, cfg.Generate.Provider)
	assert.Equal(t, 2*time.Minute, cfg.Pipeline.Timeout())
	assert.Equal(t, 45*time.Second, cfg.Pipeline.AttemptTimeout())
	assert.Equal(t, 2, cfg.Pipeline.Concurrency)
	assert.True(t, cfg.Notion.Enabled())
	// Defaults still apply for unset values
	assert.Equal(t, 24, cfg.Pipeline.ProfileCacheTTLHours)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("FUNDSCAN_STORE_DRIVER", "postgres")
	t.Setenv("FUNDSCAN_LOG_LEVEL", "warn")
	t.Setenv("FUNDSCAN_FIRECRAWL_KEY", "fc-key")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "fc-key", cfg.Firecrawl.Key)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("FUNDSCAN_SERVER_PORT", "3000")
	t.Setenv("FUNDSCAN_PIPELINE_TIMEOUT_SECS", "60")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Pipeline.Timeout())
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
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

// validDefaults returns a Config that passes every validation mode.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "fundscan.db"
	cfg.Search.Provider = ProviderFirecrawl
	cfg.Firecrawl.Key = "fc-key"
	cfg.Generate.Provider = ProviderPerplexity
	cfg.Perplexity.Key = "pplx-key"
	cfg.Pipeline.TimeoutSecs = 300
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_AllModesPass(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{ModeAnalyze, ModeSearch, ModeServe, ModeRuns} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidateAnalyze_MissingKeys(t *testing.T) {
	cfg := validDefaults()
	cfg.Firecrawl.Key = ""
	cfg.Perplexity.Key = ""

	err := cfg.Validate(ModeAnalyze)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "firecrawl.key is required")
	assert.Contains(t, err.Error(), "perplexity.key is required")
}

func TestValidateAnalyze_AlternateProviders(t *testing.T) {
	cfg := validDefaults()
	cfg.Search.Provider = ProviderJina
	cfg.Generate.Provider = ProviderAnthropic

	err := cfg.Validate(ModeAnalyze)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jina.key is required")
	assert.Contains(t, err.Error(), "anthropic.key is required")

	cfg.Jina.Key = "jina-key"
	cfg.Anthropic.Key = "sk-ant"
	assert.NoError(t, cfg.Validate(ModeAnalyze))

	// Profile collection still needs Firecrawl.
	cfg.Firecrawl.Key = ""
	err = cfg.Validate(ModeAnalyze)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile collection")
}

func TestValidate_UnknownProviders(t *testing.T) {
	cfg := validDefaults()
	cfg.Search.Provider = "bing"
	cfg.Generate.Provider = "gpt"

	err := cfg.Validate(ModeAnalyze)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown search provider "bing"`)
	assert.Contains(t, err.Error(), `unknown generate provider "gpt"`)
}

func TestValidate_Store(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""
	err := cfg.Validate(ModeAnalyze)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.Driver = "mysql"
	err = cfg.Validate(ModeAnalyze)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown store driver "mysql"`)

	// Analysis runs without a store; run history needs one.
	cfg.Store.Driver = ""
	assert.NoError(t, cfg.Validate(ModeAnalyze))
	err = cfg.Validate(ModeRuns)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver is required")
}

func TestValidate_Pipeline(t *testing.T) {
	cfg := validDefaults()
	cfg.Pipeline.TimeoutSecs = 0
	cfg.Pipeline.AttemptTimeoutSecs = -1
	cfg.Pipeline.Concurrency = -1

	err := cfg.Validate(ModeServe)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.timeout_secs must be > 0")
	assert.Contains(t, err.Error(), "pipeline.attempt_timeout_secs must be >= 0")
	assert.Contains(t, err.Error(), "pipeline.concurrency must be >= 0")
}

func TestValidateSearch_OnlyNeedsSearchProvider(t *testing.T) {
	cfg := validDefaults()
	cfg.Perplexity.Key = ""
	cfg.Pipeline.TimeoutSecs = 0

	assert.NoError(t, cfg.Validate(ModeSearch))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate(ModeServe)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
