package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/fundscan/internal/analysis"
	"github.com/sells-group/fundscan/internal/model"
	"github.com/sells-group/fundscan/internal/store"
)

// tracker mirrors a run's progress into the store. Store failures are logged
// and never fail the run. Writes use a context detached from the run's
// deadline so a timed-out run can still be marked failed.
type tracker struct {
	st    store.Store
	ctx   context.Context
	log   *zap.Logger
	runID string

	mu       sync.Mutex
	finished bool
}

func newTracker(ctx context.Context, st store.Store, req model.AnalyzeRequest, log *zap.Logger) *tracker {
	t := &tracker{st: st, ctx: context.WithoutCancel(ctx), log: log}
	if st == nil {
		return t
	}
	run, err := st.CreateRun(t.ctx, req)
	if err != nil {
		log.Warn("pipeline: failed to create run", zap.Error(err))
		return t
	}
	t.runID = run.ID
	t.log = log.With(zap.String("run_id", run.ID))
	return t
}

// active reports whether the run is tracked and not yet finished.
func (t *tracker) active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runID != "" && !t.finished
}

func (t *tracker) status(status model.RunStatus) {
	if !t.active() {
		return
	}
	if err := t.st.UpdateRunStatus(t.ctx, t.runID, status); err != nil {
		t.log.Warn("pipeline: failed to update status", zap.String("status", string(status)), zap.Error(err))
	}
}

// phase runs fn and records its duration and outcome counts.
func (t *tracker) phase(name string, fn func() analysis.StageOutput) analysis.StageOutput {
	var phase *model.RunPhase
	if t.active() {
		var err error
		phase, err = t.st.CreatePhase(t.ctx, t.runID, name)
		if err != nil {
			t.log.Warn("pipeline: failed to create phase", zap.String("phase", name), zap.Error(err))
		}
	}

	start := time.Now()
	out := fn()
	duration := time.Since(start).Milliseconds()

	result := &model.PhaseResult{
		Name:     name,
		Status:   model.PhaseStatusComplete,
		Duration: duration,
		Outcomes: out.Counts(),
	}
	t.log.Info("pipeline: stage complete",
		zap.String("stage", name),
		zap.Int64("duration_ms", duration),
		zap.Int("static_default", result.Outcomes[model.OutcomeStaticDefault]),
	)

	if phase != nil && t.active() {
		if err := t.st.CompletePhase(t.ctx, phase.ID, result); err != nil {
			t.log.Warn("pipeline: failed to complete phase", zap.String("phase", name), zap.Error(err))
		}
	}
	return out
}

func (t *tracker) complete(report *model.Report) {
	if !t.finish() {
		return
	}
	if err := t.st.CompleteRun(t.ctx, t.runID, report); err != nil {
		t.log.Warn("pipeline: failed to complete run", zap.Error(err))
	}
}

func (t *tracker) fail(cause error) {
	if !t.finish() {
		return
	}
	if err := t.st.FailRun(t.ctx, t.runID, cause.Error()); err != nil {
		t.log.Warn("pipeline: failed to mark run failed", zap.Error(err))
	}
}

// finish marks the run finished and reports whether the caller should write
// the terminal state.
func (t *tracker) finish() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.runID == "" || t.finished {
		return false
	}
	t.finished = true
	return true
}
