package provider

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/fundscan/internal/model"
	"github.com/sells-group/fundscan/internal/resilience"
	"github.com/sells-group/fundscan/pkg/firecrawl"
)

// defaultContentLimit caps the characters kept per search hit.
const defaultContentLimit = 4000

// FirecrawlSearcher searches through the Firecrawl v2 search endpoint.
type FirecrawlSearcher struct {
	client       firecrawl.Client
	maxAge       int64
	contentLimit int
}

// FirecrawlOption configures a FirecrawlSearcher.
type FirecrawlOption func(*FirecrawlSearcher)

// WithMaxAge lets Firecrawl serve cached pages up to maxAgeMS old.
func WithMaxAge(maxAgeMS int64) FirecrawlOption {
	return func(s *FirecrawlSearcher) { s.maxAge = maxAgeMS }
}

// WithContentLimit caps the characters kept per hit.
func WithContentLimit(n int) FirecrawlOption {
	return func(s *FirecrawlSearcher) {
		if n > 0 {
			s.contentLimit = n
		}
	}
}

// NewFirecrawlSearcher wraps a Firecrawl client.
func NewFirecrawlSearcher(client firecrawl.Client, opts ...FirecrawlOption) *FirecrawlSearcher {
	s := &FirecrawlSearcher{client: client, contentLimit: defaultContentLimit}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Search implements Searcher. Web hits are returned before news hits.
func (s *FirecrawlSearcher) Search(ctx context.Context, query string, sources []string, limit int) ([]model.SourceDocument, error) {
	if len(sources) == 0 {
		sources = []string{SourceWeb}
	}
	resp, err := s.client.Search(ctx, firecrawl.SearchRequest{
		Query:   query,
		Sources: sources,
		Limit:   limit,
		ScrapeOptions: &firecrawl.ScrapeOptions{
			Formats:         []firecrawl.Format{firecrawl.Markdown},
			OnlyMainContent: true,
			MaxAge:          s.maxAge,
		},
	})
	if err != nil {
		var apiErr *firecrawl.APIError
		if errors.As(err, &apiErr) {
			err = resilience.ClassifyStatus(err, apiErr.StatusCode)
		}
		return nil, eris.Wrap(err, "firecrawl searcher")
	}
	if !resp.Success {
		return nil, eris.New("firecrawl searcher: search unsuccessful")
	}

	docs := make([]model.SourceDocument, 0, len(resp.Data.Web)+len(resp.Data.News))
	add := func(kind string, hits []firecrawl.SearchResult) {
		for _, h := range hits {
			content := h.Markdown
			if content == "" {
				content = firstNonEmpty(h.Description, h.Snippet)
			}
			docs = append(docs, model.SourceDocument{
				Kind:    kind,
				Title:   h.Title,
				URL:     h.URL,
				Content: truncate(content, s.contentLimit),
				Date:    h.Date,
			})
		}
	}
	add(SourceWeb, resp.Data.Web)
	add(SourceNews, resp.Data.News)
	return docs, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
