package collect

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/fundscan/internal/model"
	"github.com/sells-group/fundscan/internal/provider"
)

// Profile search result bounds. Larger requests are cut to MaxSearchLimit.
const (
	DefaultSearchLimit = 5
	MaxSearchLimit     = 20
)

const (
	profileSite       = "site:crunchbase.com"
	descriptionLength = 300
)

// ErrEmptyQuery is returned for a blank profile search query.
var ErrEmptyQuery = eris.New("collect: query cannot be empty")

// SearchProfiles finds candidate profile pages for a company name or URL.
func SearchProfiles(ctx context.Context, searcher provider.Searcher, query string, limit int) ([]model.CompanySearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if searcher == nil {
		return nil, eris.New("collect: no searcher configured")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	limit = min(limit, MaxSearchLimit)

	docs, err := searcher.Search(ctx, profileSite+" "+query, []string{provider.SourceWeb}, limit)
	if err != nil {
		return nil, eris.Wrap(err, "collect: profile search")
	}

	results := make([]model.CompanySearchResult, 0, len(docs))
	for _, d := range docs {
		if d.URL == "" {
			continue
		}
		results = append(results, model.CompanySearchResult{
			URL:         d.URL,
			Title:       d.Title,
			Description: snippet(d.Content),
		})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

func snippet(s string) string {
	s = collapse(s)
	r := []rune(s)
	if len(r) <= descriptionLength {
		return s
	}
	return strings.TrimSpace(string(r[:descriptionLength])) + "..."
}
