// Package analysis runs analysis tasks with a two-tier strategy and a static
// default, fans tasks out across a stage, and reduces their results into a
// synthesis.
package analysis

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/fundscan/internal/extract"
	"github.com/sells-group/fundscan/internal/model"
	"github.com/sells-group/fundscan/internal/provider"
)

// ErrInvalidTask is returned for a task whose configuration cannot run.
var ErrInvalidTask = eris.New("analysis: invalid task")

// ViaFallback tags results produced by the plain tier.
const ViaFallback = "fallback"

const (
	defaultContextChars = 1000
	defaultSearchLimit  = 5
)

// InputBundle is the evidence shared by every task of a run. Tasks must treat
// it as read-only.
type InputBundle struct {
	CompanyURL string
	ProfileURL string
	Domain     string
	Profile    model.Profile
	Website    *model.WebsiteSnapshot
	// Auxiliary holds named secondary sources (reddit, news). Empty slices are
	// placeholders for sources that were not collected.
	Auxiliary map[string][]model.SourceDocument
}

// CompanyName returns the profile name, or model.UnknownCompany.
func (b *InputBundle) CompanyName() string {
	if b == nil || b.Profile.Name == "" {
		return model.UnknownCompany
	}
	return b.Profile.Name
}

// TaskResult is the single outcome of running one task.
type TaskResult struct {
	Task     string        `json:"task"`
	Outcome  model.Outcome `json:"outcome"`
	Via      string        `json:"via,omitempty"`
	Record   any           `json:"record"`
	Failures []string      `json:"failures,omitempty"`
	Path     []State       `json:"path"`
}

// RecordAs returns the result's record as T.
func RecordAs[T any](r TaskResult) (T, bool) {
	v, ok := r.Record.(T)
	return v, ok
}

// TaskSpec declares one analysis task producing records of type T.
type TaskSpec[T any] struct {
	Name        string
	Temperature float64
	Tier        provider.Tier

	// Query builds the enrichment search query.
	Query   func(b *InputBundle) string
	Sources []string
	Limit   int
	// ContextChars caps the characters of each document placed in the prompt.
	ContextChars int

	EnrichedPrompt func(b *InputBundle, docs []model.SourceDocument) string
	PlainPrompt    func(b *InputBundle) string

	RequiredKeys []string
	Normalize    func(*T)
	// Finalize copies deterministic facts from the bundle onto any record,
	// including the static default.
	Finalize func(b *InputBundle, rec *T)
	Default  func(b *InputBundle) T
}

// Task is a TaskSpec of any record type.
type Task interface {
	TaskName() string
	Validate() error

	enrichment(b *InputBundle) (query string, sources []string, limit int)
	enrichedPrompt(b *InputBundle, docs []model.SourceDocument) string
	plainPrompt(b *InputBundle) string
	request() (temperature float64, tier provider.Tier)
	extract(raw string, b *InputBundle) (any, error)
	staticDefault(b *InputBundle) any
}

var _ Task = (*TaskSpec[model.Traction])(nil)

// TaskName returns the task identity.
func (s *TaskSpec[T]) TaskName() string { return s.Name }

// Validate reports configuration faults as ErrInvalidTask.
func (s *TaskSpec[T]) Validate() error {
	if s == nil {
		return eris.Wrap(ErrInvalidTask, "nil task")
	}
	if s.Name == "" {
		return eris.Wrap(ErrInvalidTask, "task has no name")
	}
	switch {
	case s.Query == nil:
		return eris.Wrapf(ErrInvalidTask, "task %q: missing enrichment query", s.Name)
	case s.EnrichedPrompt == nil:
		return eris.Wrapf(ErrInvalidTask, "task %q: missing enriched prompt", s.Name)
	case s.PlainPrompt == nil:
		return eris.Wrapf(ErrInvalidTask, "task %q: missing plain prompt", s.Name)
	case s.Default == nil:
		return eris.Wrapf(ErrInvalidTask, "task %q: missing static default", s.Name)
	case s.Temperature < 0 || s.Temperature > 2:
		return eris.Wrapf(ErrInvalidTask, "task %q: temperature %.2f out of range", s.Name, s.Temperature)
	case s.Limit < 0:
		return eris.Wrapf(ErrInvalidTask, "task %q: negative search limit", s.Name)
	}
	return nil
}

func (s *TaskSpec[T]) enrichment(b *InputBundle) (string, []string, int) {
	return s.Query(b), s.Sources, s.limit()
}

func (s *TaskSpec[T]) limit() int {
	if s.Limit == 0 {
		return defaultSearchLimit
	}
	return s.Limit
}

// enrichedPrompt trims docs to the search limit and each body to
// ContextChars before building the prompt.
func (s *TaskSpec[T]) enrichedPrompt(b *InputBundle, docs []model.SourceDocument) string {
	if limit := s.limit(); len(docs) > limit {
		docs = docs[:limit]
	}
	chars := s.contextChars()
	trimmed := make([]model.SourceDocument, len(docs))
	for i, d := range docs {
		if r := []rune(d.Content); len(r) > chars {
			d.Content = string(r[:chars])
		}
		trimmed[i] = d
	}
	return s.EnrichedPrompt(b, trimmed)
}

func (s *TaskSpec[T]) plainPrompt(b *InputBundle) string {
	return s.PlainPrompt(b)
}

func (s *TaskSpec[T]) request() (float64, provider.Tier) {
	tier := s.Tier
	if tier == "" {
		tier = provider.TierStandard
	}
	return s.Temperature, tier
}

func (s *TaskSpec[T]) extract(raw string, b *InputBundle) (any, error) {
	opts := []extract.Option[T]{extract.WithRequiredKeys[T](s.RequiredKeys...)}
	if s.Normalize != nil {
		opts = append(opts, extract.WithNormalizer(s.Normalize))
	}
	rec, err := extract.Parse[T](raw, opts...)
	if err != nil {
		return nil, err
	}
	if s.Finalize != nil {
		s.Finalize(b, &rec)
	}
	return rec, nil
}

func (s *TaskSpec[T]) staticDefault(b *InputBundle) any {
	var rec T
	if s.Default != nil {
		rec = s.Default(b)
	}
	if s.Finalize != nil {
		s.Finalize(b, &rec)
	}
	return rec
}

func (s *TaskSpec[T]) contextChars() int {
	if s.ContextChars > 0 {
		return s.ContextChars
	}
	return defaultContextChars
}
