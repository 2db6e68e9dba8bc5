package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/fundscan/internal/model"
	"github.com/sells-group/fundscan/internal/resilience"
	"github.com/sells-group/fundscan/pkg/jina"
)

// JinaSearcher searches through s.jina.ai. Jina has no news vertical, so
// requested source kinds are ignored.
type JinaSearcher struct {
	client       jina.Client
	contentLimit int
}

// NewJinaSearcher wraps a Jina client.
func NewJinaSearcher(client jina.Client) *JinaSearcher {
	return &JinaSearcher{client: client, contentLimit: defaultContentLimit}
}

// Search implements Searcher.
func (s *JinaSearcher) Search(ctx context.Context, query string, _ []string, limit int) ([]model.SourceDocument, error) {
	opts := []jina.SearchOption{jina.WithCount(limit)}
	if site, rest := splitSiteOperator(query); site != "" {
		query = rest
		opts = append(opts, jina.WithSiteFilter(site))
	}

	resp, err := s.client.Search(ctx, query, opts...)
	if err != nil {
		var se *jina.StatusError
		if errors.As(err, &se) {
			err = resilience.ClassifyStatus(err, se.StatusCode)
		}
		return nil, eris.Wrap(err, "jina searcher")
	}

	docs := make([]model.SourceDocument, 0, len(resp.Data))
	for _, r := range resp.Data {
		docs = append(docs, model.SourceDocument{
			Kind:    SourceWeb,
			Title:   r.Title,
			URL:     r.URL,
			Content: truncate(firstNonEmpty(r.Content, r.Description), s.contentLimit),
			Date:    r.Date,
		})
	}
	return docs, nil
}

// splitSiteOperator moves a leading "site:domain" operator out of query so it
// can be sent as Jina's site parameter.
func splitSiteOperator(query string) (site, rest string) {
	first, remainder, _ := strings.Cut(strings.TrimSpace(query), " ")
	domain, ok := strings.CutPrefix(first, "site:")
	if !ok || domain == "" || strings.TrimSpace(remainder) == "" {
		return "", query
	}
	return domain, strings.TrimSpace(remainder)
}
