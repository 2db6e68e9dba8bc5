package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/fundscan/internal/model"
	"github.com/sells-group/fundscan/internal/provider"
)

func TestRunner_Transitions(t *testing.T) {
	t.Parallel()

	valid := `{"verdict":"ok","score":80}`

	tests := []struct {
		name        string
		search      func(string) ([]model.SourceDocument, error)
		generate    func(provider.GenerateRequest) (string, error)
		wantOutcome model.Outcome
		wantVia     string
		wantPath    []State
		wantRecord  toyRecord
		wantPrompts int
	}{
		{
			name:        "enriched success",
			search:      someDocs,
			generate:    func(provider.GenerateRequest) (string, error) { return valid, nil },
			wantOutcome: model.OutcomeSuccess,
			wantPath:    []State{StateStart, StateTryEnriched, StateDone},
			wantRecord:  toyRecord{Verdict: "ok", Score: 80},
			wantPrompts: 1,
		},
		{
			name:        "search error falls back to plain",
			search:      failSearch,
			generate:    func(provider.GenerateRequest) (string, error) { return valid, nil },
			wantOutcome: model.OutcomeDegraded,
			wantVia:     ViaFallback,
			wantPath:    []State{StateStart, StateTryEnriched, StateTryPlain, StateDone},
			wantRecord:  toyRecord{Verdict: "ok", Score: 80},
			wantPrompts: 1,
		},
		{
			name:        "empty search falls back to plain",
			search:      noDocs,
			generate:    func(provider.GenerateRequest) (string, error) { return "```json\n" + valid + "\n```", nil },
			wantOutcome: model.OutcomeDegraded,
			wantVia:     ViaFallback,
			wantPath:    []State{StateStart, StateTryEnriched, StateTryPlain, StateDone},
			wantRecord:  toyRecord{Verdict: "ok", Score: 80},
			wantPrompts: 1,
		},
		{
			name:   "enriched extraction failure falls back to plain",
			search: someDocs,
			generate: func(req provider.GenerateRequest) (string, error) {
				if strings.HasPrefix(req.Prompt, "ENRICHED") {
					return "no structured output here", nil
				}
				return valid, nil
			},
			wantOutcome: model.OutcomeDegraded,
			wantVia:     ViaFallback,
			wantPath:    []State{StateStart, StateTryEnriched, StateTryPlain, StateDone},
			wantRecord:  toyRecord{Verdict: "ok", Score: 80},
			wantPrompts: 2,
		},
		{
			name:        "both tiers fail to extract",
			search:      someDocs,
			generate:    func(provider.GenerateRequest) (string, error) { return `{"score":500}`, nil },
			wantOutcome: model.OutcomeStaticDefault,
			wantPath:    []State{StateStart, StateTryEnriched, StateTryPlain, StateUseStaticDefault, StateDone},
			wantRecord:  toyRecord{Verdict: "default"},
			wantPrompts: 2,
		},
		{
			name:        "generator errors",
			search:      noDocs,
			generate:    func(provider.GenerateRequest) (string, error) { return "", errUpstream },
			wantOutcome: model.OutcomeStaticDefault,
			wantPath:    []State{StateStart, StateTryEnriched, StateTryPlain, StateUseStaticDefault, StateDone},
			wantRecord:  toyRecord{Verdict: "default"},
			wantPrompts: 1,
		},
		{
			name:        "generator panics",
			search:      someDocs,
			generate:    func(provider.GenerateRequest) (string, error) { panic("boom") },
			wantOutcome: model.OutcomeStaticDefault,
			wantPath:    []State{StateStart, StateTryEnriched, StateTryPlain, StateUseStaticDefault, StateDone},
			wantRecord:  toyRecord{Verdict: "default"},
			wantPrompts: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := &recorder{}
			r := NewRunner(rec.searcher(tt.search), rec.generator(tt.generate))
			res := r.Run(context.Background(), toyTask("toy"), testBundle())

			assert.Equal(t, "toy", res.Task)
			assert.Equal(t, tt.wantOutcome, res.Outcome)
			assert.Equal(t, tt.wantVia, res.Via)
			assert.Equal(t, tt.wantPath, res.Path)
			got, ok := RecordAs[toyRecord](res)
			require.True(t, ok)
			assert.Equal(t, tt.wantRecord, got)
			assert.Equal(t, tt.wantPrompts, rec.promptCount())
			assert.Len(t, rec.searches, 1)
			if tt.wantOutcome != model.OutcomeSuccess {
				assert.NotEmpty(t, res.Failures)
			}
		})
	}
}

func TestRunner_EmptyEnrichmentAttemptsPlainBeforeDefault(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	r := NewRunner(rec.searcher(noDocs), rec.generator(func(provider.GenerateRequest) (string, error) {
		return "garbage", nil
	}))
	res := r.Run(context.Background(), toyTask("toy"), testBundle())

	assert.Equal(t, model.OutcomeStaticDefault, res.Outcome)
	require.Len(t, rec.prompts, 1)
	assert.Equal(t, "PLAIN toy", rec.prompts[0].Prompt)
	assert.Contains(t, res.Failures[0], "no documents")
}

func TestRunner_EnrichedPromptTrimsDocs(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	r := NewRunner(rec.searcher(someDocs), rec.generator(func(provider.GenerateRequest) (string, error) {
		return `{"verdict":"ok"}`, nil
	}))
	r.Run(context.Background(), toyTask("toy"), testBundle())

	require.Len(t, rec.prompts, 1)
	assert.Equal(t, "ENRICHED toy a,b", rec.prompts[0].Prompt)
	assert.InDelta(t, 0.1, rec.prompts[0].Temperature, 0.0001)
	assert.Equal(t, provider.TierStandard, rec.prompts[0].Tier)
}

func TestRunner_NilCollaborators(t *testing.T) {
	t.Parallel()

	res := NewRunner(nil, nil).Run(context.Background(), toyTask("toy"), testBundle())
	assert.Equal(t, model.OutcomeStaticDefault, res.Outcome)
	require.Len(t, res.Failures, 2)
	assert.Contains(t, res.Failures[0], "no searcher configured")
	assert.Contains(t, res.Failures[1], "no generator configured")
}

func TestRunner_AttemptTimeout(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	slow := rec.generator(func(provider.GenerateRequest) (string, error) { return "", nil })
	gen := provider.GeneratorFunc(func(ctx context.Context, req provider.GenerateRequest) (string, error) {
		_, _ = slow.Generate(ctx, req)
		<-ctx.Done()
		return "", ctx.Err()
	})

	r := NewRunner(rec.searcher(someDocs), gen, WithAttemptTimeout(20*time.Millisecond))
	start := time.Now()
	res := r.Run(context.Background(), toyTask("toy"), testBundle())

	assert.Equal(t, model.OutcomeStaticDefault, res.Outcome)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 2, rec.promptCount())
	assert.Contains(t, res.Failures[0], context.DeadlineExceeded.Error())
}

func TestRunner_CancelledContextStillResolves(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := provider.GeneratorFunc(func(ctx context.Context, _ provider.GenerateRequest) (string, error) {
		return "", ctx.Err()
	})
	search := provider.SearcherFunc(func(ctx context.Context, _ string, _ []string, _ int) ([]model.SourceDocument, error) {
		return nil, ctx.Err()
	})
	res := NewRunner(search, gen).Run(ctx, toyTask("toy"), testBundle())
	assert.Equal(t, model.OutcomeStaticDefault, res.Outcome)
}

func TestRunner_DefaultPanicLeavesNilRecord(t *testing.T) {
	t.Parallel()

	task := toyTask("toy")
	task.Default = func(*InputBundle) toyRecord { panic("bad default") }

	res := NewRunner(nil, nil).Run(context.Background(), task, testBundle())
	assert.Equal(t, model.OutcomeStaticDefault, res.Outcome)
	assert.Nil(t, res.Record)
}

func TestEnrichmentError(t *testing.T) {
	t.Parallel()

	empty := &EnrichmentError{Query: "acme"}
	assert.ErrorIs(t, empty, ErrEnrichment)
	assert.Contains(t, empty.Error(), "no documents")

	wrapped := &EnrichmentError{Query: "acme", Err: errUpstream}
	assert.ErrorIs(t, wrapped, ErrEnrichment)
	assert.True(t, errors.Is(wrapped, errUpstream))
}

func TestTaskSpec_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*TaskSpec[toyRecord])
		want   string
	}{
		{"valid", func(*TaskSpec[toyRecord]) {}, ""},
		{"no name", func(s *TaskSpec[toyRecord]) { s.Name = "" }, "no name"},
		{"no query", func(s *TaskSpec[toyRecord]) { s.Query = nil }, "enrichment query"},
		{"no enriched prompt", func(s *TaskSpec[toyRecord]) { s.EnrichedPrompt = nil }, "enriched prompt"},
		{"no plain prompt", func(s *TaskSpec[toyRecord]) { s.PlainPrompt = nil }, "plain prompt"},
		{"no default", func(s *TaskSpec[toyRecord]) { s.Default = nil }, "static default"},
		{"temperature", func(s *TaskSpec[toyRecord]) { s.Temperature = 3 }, "temperature"},
		{"negative limit", func(s *TaskSpec[toyRecord]) { s.Limit = -1 }, "negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			spec := toyTask("toy")
			tt.mutate(spec)
			err := spec.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTask)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	var nilSpec *TaskSpec[toyRecord]
	assert.ErrorIs(t, nilSpec.Validate(), ErrInvalidTask)
}
