package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/fundscan/internal/model"
	"github.com/sells-group/fundscan/internal/provider"
)

// ErrEnrichment is matched by every *EnrichmentError.
var ErrEnrichment = eris.New("analysis: enrichment unavailable")

// EnrichmentError reports that the enrichment fetch produced nothing usable.
type EnrichmentError struct {
	Query string
	Err   error
}

func (e *EnrichmentError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("enrichment: no documents for %q", e.Query)
	}
	return fmt.Sprintf("enrichment: search %q: %v", e.Query, e.Err)
}

func (e *EnrichmentError) Unwrap() error { return e.Err }

// Is reports whether target is ErrEnrichment.
func (e *EnrichmentError) Is(target error) bool { return target == ErrEnrichment }

// State is a step of the runner state machine.
type State string

// Runner states.
const (
	StateStart            State = "start"
	StateTryEnriched      State = "try_enriched"
	StateTryPlain         State = "try_plain"
	StateUseStaticDefault State = "use_static_default"
	StateDone             State = "done"
)

// Runner executes tasks. A task gets at most one enriched attempt and one
// plain attempt before its static default is used.
type Runner struct {
	searcher       provider.Searcher
	generator      provider.Generator
	attemptTimeout time.Duration
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithAttemptTimeout bounds each enriched or plain attempt. Zero leaves
// attempts bounded only by the caller's context.
func WithAttemptTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.attemptTimeout = d }
}

// NewRunner creates a runner. A nil searcher makes every enriched attempt
// fail with an EnrichmentError.
func NewRunner(searcher provider.Searcher, generator provider.Generator, opts ...RunnerOption) *Runner {
	r := &Runner{searcher: searcher, generator: generator}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes task against b and always returns exactly one result.
// Failures are logged and recorded on the result, never returned.
func (r *Runner) Run(ctx context.Context, task Task, b *InputBundle) TaskResult {
	res := TaskResult{Task: task.TaskName()}
	log := zap.L().With(zap.String("task", res.Task), zap.String("company", b.CompanyName()))

	state := StateStart
	for {
		res.Path = append(res.Path, state)
		switch state {
		case StateStart:
			state = StateTryEnriched

		case StateTryEnriched:
			rec, err := r.attempt(ctx, task, b, true)
			if err != nil {
				log.Warn("runner: enriched attempt failed", zap.Error(err))
				res.Failures = append(res.Failures, fmt.Sprintf("%s: %v", state, err))
				state = StateTryPlain
				continue
			}
			res.Record, res.Outcome = rec, model.OutcomeSuccess
			state = StateDone

		case StateTryPlain:
			rec, err := r.attempt(ctx, task, b, false)
			if err != nil {
				log.Warn("runner: plain attempt failed", zap.Error(err))
				res.Failures = append(res.Failures, fmt.Sprintf("%s: %v", state, err))
				state = StateUseStaticDefault
				continue
			}
			res.Record, res.Outcome, res.Via = rec, model.OutcomeDegraded, ViaFallback
			state = StateDone

		case StateUseStaticDefault:
			res.Record, res.Outcome = r.fallback(task, b), model.OutcomeStaticDefault
			log.Warn("runner: using static default", zap.Int("failures", len(res.Failures)))
			state = StateDone

		case StateDone:
			log.Debug("runner: task resolved", zap.String("outcome", string(res.Outcome)))
			return res
		}
	}
}

// attempt runs one tier. Panics from collaborators become errors.
func (r *Runner) attempt(ctx context.Context, task Task, b *InputBundle, enriched bool) (rec any, err error) {
	defer func() {
		if p := recover(); p != nil {
			rec, err = nil, eris.Errorf("panic: %v", p)
		}
	}()

	if r.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.attemptTimeout)
		defer cancel()
	}

	var prompt string
	if enriched {
		docs, err := r.enrich(ctx, task, b)
		if err != nil {
			return nil, err
		}
		prompt = task.enrichedPrompt(b, docs)
	} else {
		prompt = task.plainPrompt(b)
	}

	if r.generator == nil {
		return nil, eris.New("no generator configured")
	}
	temp, tier := task.request()
	raw, err := r.generator.Generate(ctx, provider.GenerateRequest{Prompt: prompt, Temperature: temp, Tier: tier})
	if err != nil {
		return nil, eris.Wrap(err, "generate")
	}
	return task.extract(raw, b)
}

func (r *Runner) enrich(ctx context.Context, task Task, b *InputBundle) ([]model.SourceDocument, error) {
	query, sources, limit := task.enrichment(b)
	if r.searcher == nil {
		return nil, &EnrichmentError{Query: query, Err: eris.New("no searcher configured")}
	}
	docs, err := r.searcher.Search(ctx, query, sources, limit)
	if err != nil {
		return nil, &EnrichmentError{Query: query, Err: err}
	}
	if len(docs) == 0 {
		return nil, &EnrichmentError{Query: query}
	}
	return docs, nil
}

// fallback builds the static default. A panicking builder leaves the record
// nil so this state cannot fail.
func (r *Runner) fallback(task Task, b *InputBundle) (rec any) {
	defer func() {
		if p := recover(); p != nil {
			zap.L().Error("runner: static default panicked", zap.String("task", task.TaskName()), zap.Any("panic", p))
			rec = nil
		}
	}()
	return task.staticDefault(b)
}
