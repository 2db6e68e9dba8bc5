package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/fundscan/internal/analysis"
	"github.com/sells-group/fundscan/internal/collect"
	"github.com/sells-group/fundscan/internal/config"
	"github.com/sells-group/fundscan/internal/export"
	"github.com/sells-group/fundscan/internal/pipeline"
	"github.com/sells-group/fundscan/internal/provider"
	"github.com/sells-group/fundscan/internal/resilience"
	"github.com/sells-group/fundscan/internal/store"
	anthropicpkg "github.com/sells-group/fundscan/pkg/anthropic"
	"github.com/sells-group/fundscan/pkg/firecrawl"
	"github.com/sells-group/fundscan/pkg/jina"
	"github.com/sells-group/fundscan/pkg/notion"
	"github.com/sells-group/fundscan/pkg/perplexity"
)

// pipelineEnv holds the initialized clients and the pipeline needed by the
// analyze, search and serve commands.
type pipelineEnv struct {
	Store    store.Store // nil when run history is disabled
	Searcher provider.Searcher
	Pipeline *pipeline.Pipeline
	Breakers *resilience.Breakers
}

// Close releases resources held by the environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initSearcher builds the guarded enrichment searcher.
func initSearcher(breakers *resilience.Breakers, fc firecrawl.Client) provider.Searcher {
	var s provider.Searcher
	switch cfg.Search.Provider {
	case config.ProviderJina:
		s = provider.NewJinaSearcher(jina.NewClient(cfg.Jina.Key, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL)))
	default:
		s = provider.NewFirecrawlSearcher(fc,
			provider.WithMaxAge(cfg.Firecrawl.MaxAgeMS),
			provider.WithContentLimit(cfg.Search.ContentLimit),
		)
	}
	guard := provider.NewGuard(cfg.Search.Provider, cfg.Search.RPS, cfg.Search.Burst, breakers.For(cfg.Search.Provider))
	return provider.GuardSearcher(s, guard)
}

// initGenerator builds the guarded text generator.
func initGenerator(breakers *resilience.Breakers) provider.Generator {
	var g provider.Generator
	switch cfg.Generate.Provider {
	case config.ProviderAnthropic:
		g = newAnthropicGenerator(cfg.Anthropic)
	default:
		client := perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
		g = provider.NewPerplexityGenerator(client, cfg.Perplexity.Model, cfg.Perplexity.ProModel)
	}
	guard := provider.NewGuard(cfg.Generate.Provider, cfg.Generate.RPS, cfg.Generate.Burst, breakers.For(cfg.Generate.Provider))
	return provider.GuardGenerator(g, guard)
}

// newAnthropicGenerator builds an unguarded Anthropic generator. SDK retries
// are off so each tier attempt is a single upstream request.
func newAnthropicGenerator(ac config.AnthropicConfig, opts ...anthropicpkg.Option) provider.Generator {
	opts = append(opts, anthropicpkg.WithMaxRetries(0))
	client := anthropicpkg.NewClient(ac.Key, opts...)
	return provider.NewAnthropicGenerator(client, ac.Model, ac.ProModel, ac.MaxTokens)
}

// initSearchOnly builds just the searcher for the search command.
func initSearchOnly() provider.Searcher {
	breakers := resilience.NewBreakers(resilience.DefaultBreakerConfig())
	fc := firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
	return initSearcher(breakers, fc)
}

// initPipeline sets up the store, all API clients and the Pipeline. Callers
// should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	breakers := resilience.NewBreakers(resilience.DefaultBreakerConfig())
	fc := firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
	searcher := initSearcher(breakers, fc)
	runner := analysis.NewRunner(searcher, initGenerator(breakers),
		analysis.WithAttemptTimeout(cfg.Pipeline.AttemptTimeout()),
	)

	profileOpts := []collect.ProfileOption{}
	if st != nil {
		profileOpts = append(profileOpts, collect.WithProfileCache(st, cfg.Pipeline.ProfileCacheTTL()))
	}
	profiles := collect.NewProfileCollector(fc, profileOpts...)

	opts := []pipeline.Option{
		pipeline.WithTimeout(cfg.Pipeline.Timeout()),
		pipeline.WithConcurrency(cfg.Pipeline.Concurrency),
	}
	if st != nil {
		opts = append(opts, pipeline.WithStore(st))
	}
	if cfg.Pipeline.Website {
		opts = append(opts, pipeline.WithWebsite(collect.NewWebsiteCollector()))
	}
	if cfg.Notion.Enabled() {
		nc := notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(cfg.Notion.RPS))
		opts = append(opts, pipeline.WithExporter(export.NewNotionExporter(nc, cfg.Notion.ReportDB)))
		zap.L().Info("notion export enabled")
	}

	p, err := pipeline.New(profiles, runner, opts...)
	if err != nil {
		if st != nil {
			_ = st.Close()
		}
		return nil, eris.Wrap(err, "init pipeline")
	}

	return &pipelineEnv{Store: st, Searcher: searcher, Pipeline: p, Breakers: breakers}, nil
}
