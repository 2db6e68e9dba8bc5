package provider

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/fundscan/internal/model"
	"github.com/sells-group/fundscan/internal/resilience"
	"github.com/sells-group/fundscan/pkg/anthropic"
	"github.com/sells-group/fundscan/pkg/firecrawl"
	"github.com/sells-group/fundscan/pkg/jina"
	"github.com/sells-group/fundscan/pkg/perplexity"
)

func TestFirecrawlSearcher_Search(t *testing.T) {
	t.Parallel()

	fc := &mockFirecrawlClient{}
	fc.On("Search", mock.Anything, mock.MatchedBy(func(req firecrawl.SearchRequest) bool {
		return req.Query == "acme funding" &&
			assert.ObjectsAreEqual([]string{"web", "news"}, req.Sources) &&
			req.Limit == 5 &&
			req.ScrapeOptions != nil && req.ScrapeOptions.OnlyMainContent &&
			req.ScrapeOptions.MaxAge == 1000
	})).Return(&firecrawl.SearchResponse{
		Success: true,
		Data: firecrawl.SearchData{
			Web:  []firecrawl.SearchResult{{URL: "https://a", Title: "A", Markdown: strings.Repeat("x", 20)}},
			News: []firecrawl.SearchResult{{URL: "https://b", Title: "B", Description: "desc", Date: "2024-01-01"}},
		},
	}, nil)

	s := NewFirecrawlSearcher(fc, WithMaxAge(1000), WithContentLimit(10))
	docs, err := s.Search(context.Background(), "acme funding", []string{"web", "news"}, 5)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, model.SourceDocument{Kind: "web", Title: "A", URL: "https://a", Content: strings.Repeat("x", 10)}, docs[0])
	assert.Equal(t, model.SourceDocument{Kind: "news", Title: "B", URL: "https://b", Content: "desc", Date: "2024-01-01"}, docs[1])
	fc.AssertExpectations(t)
}

func TestFirecrawlSearcher_DefaultsToWeb(t *testing.T) {
	t.Parallel()

	fc := &mockFirecrawlClient{}
	fc.On("Search", mock.Anything, mock.MatchedBy(func(req firecrawl.SearchRequest) bool {
		return len(req.Sources) == 1 && req.Sources[0] == "web"
	})).Return(&firecrawl.SearchResponse{Success: true}, nil)

	docs, err := NewFirecrawlSearcher(fc).Search(context.Background(), "q", nil, 3)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestFirecrawlSearcher_Errors(t *testing.T) {
	t.Parallel()

	fc := &mockFirecrawlClient{}
	fc.On("Search", mock.Anything, mock.Anything).
		Return(nil, &firecrawl.APIError{StatusCode: 503, Body: "busy"}).Once()
	fc.On("Search", mock.Anything, mock.Anything).
		Return(&firecrawl.SearchResponse{Success: false}, nil).Once()

	s := NewFirecrawlSearcher(fc)
	_, err := s.Search(context.Background(), "q", nil, 1)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))

	_, err = s.Search(context.Background(), "q", nil, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsuccessful")
}

func TestJinaSearcher_Search(t *testing.T) {
	t.Parallel()

	jc := &mockJinaClient{}
	jc.On("Search", mock.Anything, "acme team").Return(&jina.SearchResponse{
		Data: []jina.SearchResult{
			{Title: "T1", URL: "https://1", Content: "body"},
			{Title: "T2", URL: "https://2", Description: "only desc"},
		},
	}, nil)

	docs, err := NewJinaSearcher(jc).Search(context.Background(), "acme team", []string{"news"}, 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "body", docs[0].Content)
	assert.Equal(t, "only desc", docs[1].Content)
	assert.Equal(t, SourceWeb, docs[1].Kind)
}

func TestJinaSearcher_SiteOperator(t *testing.T) {
	t.Parallel()

	jc := &mockJinaClient{}
	jc.On("Search", mock.Anything, "acme").Return(&jina.SearchResponse{}, nil)

	docs, err := NewJinaSearcher(jc).Search(context.Background(), "site:crunchbase.com acme", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, docs)
	jc.AssertExpectations(t)
}

func TestSplitSiteOperator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query, site, rest string
	}{
		{"site:crunchbase.com acme", "crunchbase.com", "acme"},
		{"  site:crunchbase.com  acme robotics ", "crunchbase.com", "acme robotics"},
		{"acme site:crunchbase.com", "", "acme site:crunchbase.com"},
		{"site:crunchbase.com", "", "site:crunchbase.com"},
		{"site: acme", "", "site: acme"},
	}
	for _, tt := range tests {
		site, rest := splitSiteOperator(tt.query)
		assert.Equal(t, tt.site, site, tt.query)
		assert.Equal(t, tt.rest, rest, tt.query)
	}
}

func TestJinaSearcher_StatusError(t *testing.T) {
	t.Parallel()

	jc := &mockJinaClient{}
	jc.On("Search", mock.Anything, "q").Return(nil, &jina.StatusError{StatusCode: 429})

	_, err := NewJinaSearcher(jc).Search(context.Background(), "q", nil, 2)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestPerplexityGenerator_Tiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		tier  Tier
		model string
	}{
		{"standard", TierStandard, "sonar"},
		{"unset", "", "sonar"},
		{"pro", TierPro, "sonar-pro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pc := &mockPerplexityClient{}
			pc.On("ChatCompletion", mock.Anything, mock.MatchedBy(func(req perplexity.ChatCompletionRequest) bool {
				return req.Model == tt.model &&
					req.Temperature != nil && *req.Temperature == 0.2 &&
					len(req.Messages) == 1 && req.Messages[0].Content == "prompt"
			})).Return(&perplexity.ChatCompletionResponse{
				Choices: []perplexity.Choice{{Message: perplexity.Message{Content: " answer "}}},
			}, nil)

			text, err := NewPerplexityGenerator(pc, "", "").Generate(context.Background(), GenerateRequest{
				Prompt: "prompt", Temperature: 0.2, Tier: tt.tier,
			})
			require.NoError(t, err)
			assert.Equal(t, "answer", text)
			pc.AssertExpectations(t)
		})
	}
}

func TestPerplexityGenerator_EmptyCompletion(t *testing.T) {
	t.Parallel()

	pc := &mockPerplexityClient{}
	pc.On("ChatCompletion", mock.Anything, mock.Anything).
		Return(&perplexity.ChatCompletionResponse{Choices: []perplexity.Choice{{}}}, nil)

	_, err := NewPerplexityGenerator(pc, "sonar", "sonar-pro").Generate(context.Background(), GenerateRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty completion")
}

func TestPerplexityGenerator_StatusClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status    int
		transient bool
	}{
		{429, true},
		{503, true},
		{401, false},
	}
	for _, tt := range tests {
		pc := &mockPerplexityClient{}
		pc.On("ChatCompletion", mock.Anything, mock.Anything).
			Return(nil, &perplexity.APIError{StatusCode: tt.status, Body: "nope"})

		_, err := NewPerplexityGenerator(pc, "", "").Generate(context.Background(), GenerateRequest{Prompt: "p"})
		require.Error(t, err)
		assert.Equal(t, tt.transient, resilience.IsTransient(err), "status %d", tt.status)
	}
}

func TestAnthropicGenerator_Generate(t *testing.T) {
	t.Parallel()

	ac := &mockAnthropicClient{}
	ac.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "big" && req.MaxTokens == defaultMaxTokens
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "{\"ok\":true}"}},
	}, nil)

	text, err := NewAnthropicGenerator(ac, "small", "big", 0).Generate(context.Background(), GenerateRequest{Prompt: "p", Tier: TierPro})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, text)
}

func TestAnthropicGenerator_Error(t *testing.T) {
	t.Parallel()

	ac := &mockAnthropicClient{}
	ac.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("overloaded"))

	_, err := NewAnthropicGenerator(ac, "m", "", 100).Generate(context.Background(), GenerateRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
}

func TestGuard_CircuitOpensAndFailsFast(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	inner := GeneratorFunc(func(context.Context, GenerateRequest) (string, error) {
		calls.Add(1)
		return "", errors.New("upstream down")
	})
	cb := resilience.NewBreaker("perplexity", resilience.BreakerConfig{Threshold: 2, Cooldown: time.Hour})
	gen := GuardGenerator(inner, NewGuard("perplexity", 0, 0, cb))

	for range 2 {
		_, err := gen.Generate(context.Background(), GenerateRequest{})
		require.Error(t, err)
	}
	_, err := gen.Generate(context.Background(), GenerateRequest{})
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGuard_NoRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	inner := SearcherFunc(func(context.Context, string, []string, int) ([]model.SourceDocument, error) {
		calls.Add(1)
		return nil, resilience.NewTransientError(errors.New("503"), 503)
	})
	s := GuardSearcher(inner, NewGuard("firecrawl", 100, 10, nil))

	_, err := s.Search(context.Background(), "q", nil, 1)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGuard_RateLimitHonoursContext(t *testing.T) {
	t.Parallel()

	inner := SearcherFunc(func(context.Context, string, []string, int) ([]model.SourceDocument, error) {
		return []model.SourceDocument{{Title: "ok"}}, nil
	})
	s := GuardSearcher(inner, NewGuard("firecrawl", 0.001, 1, nil))

	docs, err := s.Search(context.Background(), "q", nil, 1)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Search(ctx, "q", nil, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
}
