// Package provider adapts the search and text-generation clients to the
// narrow interfaces the analysis engine depends on.
package provider

import (
	"context"

	"github.com/sells-group/fundscan/internal/model"
)

// Source kinds understood by searchers.
const (
	SourceWeb  = "web"
	SourceNews = "news"
)

// Searcher fetches enrichment documents for a query.
type Searcher interface {
	Search(ctx context.Context, query string, sources []string, limit int) ([]model.SourceDocument, error)
}

// Tier selects the model class a generator should use.
type Tier string

// Model tiers.
const (
	TierStandard Tier = "standard"
	TierPro      Tier = "pro"
)

// GenerateRequest is one text-generation call.
type GenerateRequest struct {
	Prompt      string
	Temperature float64
	Tier        Tier
}

// Generator produces raw text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, query string, sources []string, limit int) ([]model.SourceDocument, error)

// Search calls f.
func (f SearcherFunc) Search(ctx context.Context, query string, sources []string, limit int) ([]model.SourceDocument, error) {
	return f(ctx, query, sources, limit)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req GenerateRequest) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return f(ctx, req)
}
