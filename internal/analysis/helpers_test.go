package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sells-group/fundscan/internal/model"
	"github.com/sells-group/fundscan/internal/provider"
)

type toyRecord struct {
	Verdict string `json:"verdict" validate:"required"`
	Score   int    `json:"score" validate:"min=0,max=100"`
}

func toyTask(name string) *TaskSpec[toyRecord] {
	return &TaskSpec[toyRecord]{
		Name:        name,
		Temperature: 0.1,
		Query:       func(b *InputBundle) string { return b.CompanyName() + " " + name },
		Sources:     []string{provider.SourceWeb},
		Limit:       2,
		EnrichedPrompt: func(b *InputBundle, docs []model.SourceDocument) string {
			titles := make([]string, len(docs))
			for i, d := range docs {
				titles[i] = d.Title
			}
			return "ENRICHED " + name + " " + strings.Join(titles, ",")
		},
		PlainPrompt:  func(*InputBundle) string { return "PLAIN " + name },
		RequiredKeys: []string{"verdict"},
		Default:      func(*InputBundle) toyRecord { return toyRecord{Verdict: "default"} },
	}
}

func testBundle() *InputBundle {
	return &InputBundle{
		CompanyURL: "https://www.acme.io",
		ProfileURL: "https://www.crunchbase.com/organization/acme",
		Domain:     "acme.io",
		Profile: model.Profile{
			Name:        "Acme",
			Description: "Widgets for robots",
			Funding:     "$12M",
			Employees:   "42",
		},
		Auxiliary: map[string][]model.SourceDocument{"reddit": {}, "news": {}},
	}
}

var errUpstream = errors.New("upstream unavailable")

// recorder captures collaborator calls.
type recorder struct {
	mu       sync.Mutex
	searches []string
	prompts  []provider.GenerateRequest
}

func (r *recorder) searcher(fn func(query string) ([]model.SourceDocument, error)) provider.Searcher {
	return provider.SearcherFunc(func(_ context.Context, query string, _ []string, _ int) ([]model.SourceDocument, error) {
		r.mu.Lock()
		r.searches = append(r.searches, query)
		r.mu.Unlock()
		return fn(query)
	})
}

func (r *recorder) generator(fn func(req provider.GenerateRequest) (string, error)) provider.Generator {
	return provider.GeneratorFunc(func(_ context.Context, req provider.GenerateRequest) (string, error) {
		r.mu.Lock()
		r.prompts = append(r.prompts, req)
		r.mu.Unlock()
		return fn(req)
	})
}

func (r *recorder) promptCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.prompts)
}

func docs(titles ...string) []model.SourceDocument {
	out := make([]model.SourceDocument, len(titles))
	for i, t := range titles {
		out[i] = model.SourceDocument{Title: t, URL: "https://example.com/" + t, Content: strings.Repeat(t, 3)}
	}
	return out
}

func someDocs(string) ([]model.SourceDocument, error) { return docs("a", "b", "c"), nil }
func noDocs(string) ([]model.SourceDocument, error)   { return nil, nil }
func failSearch(string) ([]model.SourceDocument, error) {
	return nil, errUpstream
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
