package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Provider names accepted by the search and generate sections.
const (
	ProviderFirecrawl  = "firecrawl"
	ProviderJina       = "jina"
	ProviderPerplexity = "perplexity"
	ProviderAnthropic  = "anthropic"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Generate   GenerateConfig   `yaml:"generate" mapstructure:"generate"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend. An empty driver disables run
// history and the profile cache.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// FirecrawlConfig holds Firecrawl API settings.
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// MaxAgeMS lets Firecrawl serve cached pages up to this age.
	MaxAgeMS int64 `yaml:"max_age_ms" mapstructure:"max_age_ms"`
}

// JinaConfig holds Jina search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	Model    string `yaml:"model" mapstructure:"model"`
	ProModel string `yaml:"pro_model" mapstructure:"pro_model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	ProModel  string `yaml:"pro_model" mapstructure:"pro_model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// NotionConfig holds Notion credentials. Export is enabled when both the
// token and the report database are set.
type NotionConfig struct {
	Token    string  `yaml:"token" mapstructure:"token"`
	ReportDB string  `yaml:"report_db" mapstructure:"report_db"`
	RPS      float64 `yaml:"rps" mapstructure:"rps"`
}

// Enabled reports whether reports should be exported to Notion.
func (n NotionConfig) Enabled() bool {
	return n.Token != "" && n.ReportDB != ""
}

// SearchConfig selects and throttles the enrichment search provider.
type SearchConfig struct {
	Provider     string  `yaml:"provider" mapstructure:"provider"`
	RPS          float64 `yaml:"rps" mapstructure:"rps"`
	Burst        int     `yaml:"burst" mapstructure:"burst"`
	ContentLimit int     `yaml:"content_limit" mapstructure:"content_limit"`
}

// GenerateConfig selects and throttles the text-generation provider.
type GenerateConfig struct {
	Provider string  `yaml:"provider" mapstructure:"provider"`
	RPS      float64 `yaml:"rps" mapstructure:"rps"`
	Burst    int     `yaml:"burst" mapstructure:"burst"`
}

// PipelineConfig bounds a run and its stages.
type PipelineConfig struct {
	TimeoutSecs          int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	AttemptTimeoutSecs   int  `yaml:"attempt_timeout_secs" mapstructure:"attempt_timeout_secs"`
	ProfileCacheTTLHours int  `yaml:"profile_cache_ttl_hours" mapstructure:"profile_cache_ttl_hours"`
	Website              bool `yaml:"website" mapstructure:"website"`
	Concurrency          int  `yaml:"concurrency" mapstructure:"concurrency"`
}

// Timeout returns the overall run budget.
func (p PipelineConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSecs) * time.Second
}

// AttemptTimeout returns the per-attempt budget; zero means unbounded.
func (p PipelineConfig) AttemptTimeout() time.Duration {
	return time.Duration(p.AttemptTimeoutSecs) * time.Second
}

// ProfileCacheTTL returns how long collected profiles stay cached.
func (p PipelineConfig) ProfileCacheTTL() time.Duration {
	return time.Duration(p.ProfileCacheTTLHours) * time.Hour
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FUNDSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "fundscan.db")
	v.SetDefault("firecrawl.key", "")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("firecrawl.max_age_ms", 0)
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("perplexity.key", "")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("perplexity.pro_model", "sonar-pro")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.pro_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.report_db", "")
	v.SetDefault("notion.rps", 3.0)
	v.SetDefault("search.provider", ProviderFirecrawl)
	v.SetDefault("search.rps", 5.0)
	v.SetDefault("search.burst", 5)
	v.SetDefault("search.content_limit", 4000)
	v.SetDefault("generate.provider", ProviderPerplexity)
	v.SetDefault("generate.rps", 2.0)
	v.SetDefault("generate.burst", 5)
	v.SetDefault("pipeline.timeout_secs", 300)
	v.SetDefault("pipeline.attempt_timeout_secs", 0)
	v.SetDefault("pipeline.profile_cache_ttl_hours", 24)
	v.SetDefault("pipeline.website", true)
	v.SetDefault("pipeline.concurrency", 0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validation modes.
const (
	ModeAnalyze = "analyze"
	ModeSearch  = "search"
	ModeServe   = "serve"
	ModeRuns    = "runs"
)

// Validate checks the settings the given command needs and reports every
// problem at once.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case ModeAnalyze:
		errs = append(errs, c.validateProviders()...)
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validatePipeline()...)
	case ModeSearch:
		errs = append(errs, c.validateSearch()...)
	case ModeServe:
		errs = append(errs, c.validateProviders()...)
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validatePipeline()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case ModeRuns:
		errs = append(errs, c.validateStore()...)
		if c.Store.Driver == "" {
			errs = append(errs, "store.driver is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateSearch() []string {
	switch c.Search.Provider {
	case ProviderFirecrawl:
		if c.Firecrawl.Key == "" {
			return []string{"firecrawl.key is required"}
		}
	case ProviderJina:
		if c.Jina.Key == "" {
			return []string{"jina.key is required"}
		}
	default:
		return []string{"unknown search provider " + strconv.Quote(c.Search.Provider)}
	}
	return nil
}

func (c *Config) validateProviders() []string {
	errs := c.validateSearch()

	switch c.Generate.Provider {
	case ProviderPerplexity:
		if c.Perplexity.Key == "" {
			errs = append(errs, "perplexity.key is required")
		}
	case ProviderAnthropic:
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
	default:
		errs = append(errs, "unknown generate provider "+strconv.Quote(c.Generate.Provider))
	}

	// Profiles are always scraped through Firecrawl.
	if c.Search.Provider != ProviderFirecrawl && c.Firecrawl.Key == "" {
		errs = append(errs, "firecrawl.key is required for profile collection")
	}
	return errs
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "":
		return nil
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required"}
		}
		return nil
	default:
		return []string{"unknown store driver " + strconv.Quote(c.Store.Driver)}
	}
}

func (c *Config) validatePipeline() []string {
	var errs []string
	if c.Pipeline.TimeoutSecs <= 0 {
		errs = append(errs, "pipeline.timeout_secs must be > 0")
	}
	if c.Pipeline.AttemptTimeoutSecs < 0 {
		errs = append(errs, "pipeline.attempt_timeout_secs must be >= 0")
	}
	if c.Pipeline.Concurrency < 0 {
		errs = append(errs, "pipeline.concurrency must be >= 0")
	}
	if c.Pipeline.ProfileCacheTTLHours < 0 {
		errs = append(errs, "pipeline.profile_cache_ttl_hours must be >= 0")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
