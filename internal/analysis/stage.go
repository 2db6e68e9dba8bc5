package analysis

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/fundscan/internal/model"
)

// Stage is a fixed set of independent tasks run concurrently.
type Stage struct {
	Name  string
	Tasks []Task
	// Concurrency caps in-flight tasks. Zero runs every task at once.
	Concurrency int
}

// StageOutput holds one result per task, in task declaration order.
type StageOutput struct {
	Stage   string       `json:"stage"`
	Results []TaskResult `json:"results"`
}

// Get returns the result of the named task.
func (o StageOutput) Get(task string) (TaskResult, bool) {
	for _, r := range o.Results {
		if r.Task == task {
			return r, true
		}
	}
	return TaskResult{}, false
}

// Counts tallies results by outcome.
func (o StageOutput) Counts() map[model.Outcome]int {
	counts := make(map[model.Outcome]int, 3)
	for _, r := range o.Results {
		counts[r.Outcome]++
	}
	return counts
}

// Validate checks every task and rejects duplicate names.
func (s Stage) Validate() error {
	if len(s.Tasks) == 0 {
		return eris.Wrapf(ErrInvalidTask, "stage %q has no tasks", s.Name)
	}
	seen := make(map[string]bool, len(s.Tasks))
	for _, t := range s.Tasks {
		if t == nil {
			return eris.Wrapf(ErrInvalidTask, "stage %q: nil task", s.Name)
		}
		if err := t.Validate(); err != nil {
			return eris.Wrapf(err, "stage %q", s.Name)
		}
		if seen[t.TaskName()] {
			return eris.Wrapf(ErrInvalidTask, "stage %q: duplicate task %q", s.Name, t.TaskName())
		}
		seen[t.TaskName()] = true
	}
	return nil
}

// Run executes every task against b and returns once all have resolved.
// Each goroutine writes only its own slot, so output order never depends on
// completion order.
func (s Stage) Run(ctx context.Context, runner *Runner, b *InputBundle) StageOutput {
	start := time.Now()
	results := make([]TaskResult, len(s.Tasks))

	var g errgroup.Group
	if s.Concurrency > 0 {
		g.SetLimit(s.Concurrency)
	}
	for i, t := range s.Tasks {
		g.Go(func() error {
			results[i] = runner.Run(ctx, t, b)
			return nil
		})
	}
	_ = g.Wait()

	out := StageOutput{Stage: s.Name, Results: results}
	counts := out.Counts()
	zap.L().Info("stage: complete",
		zap.String("stage", s.Name),
		zap.Int("tasks", len(results)),
		zap.Int("success", counts[model.OutcomeSuccess]),
		zap.Int("degraded", counts[model.OutcomeDegraded]),
		zap.Int("static_default", counts[model.OutcomeStaticDefault]),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out
}
