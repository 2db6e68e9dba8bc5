// Package pipeline drives one analysis run through its sequential stages:
// input collection, parallel analysis and synthesis.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/fundscan/internal/analysis"
	"github.com/sells-group/fundscan/internal/model"
	"github.com/sells-group/fundscan/internal/store"
)

var (
	// ErrPipelineTimeout is returned when a run exceeds its wall-clock budget.
	ErrPipelineTimeout = eris.New("pipeline: timeout")
	// ErrInvalidRequest is returned for a request that fails validation.
	ErrInvalidRequest = eris.New("pipeline: invalid request")
)

// DefaultTimeout bounds a whole run.
const DefaultTimeout = 300 * time.Second

// Stage identifies a pipeline state.
type Stage string

const (
	StageCollectInput    Stage = "collect_input"
	StageParallelAnalyze Stage = analysis.StageParallelAnalysis
	StageSynthesize      Stage = analysis.StageSynthesis
	StageComplete        Stage = "complete"
)

// Stages lists the pipeline states in execution order.
var Stages = []Stage{StageCollectInput, StageParallelAnalyze, StageSynthesize, StageComplete}

// ProfileCollector fetches the structured company profile.
type ProfileCollector interface {
	Collect(ctx context.Context, profileURL string) (model.Profile, error)
}

// WebsiteCollector fetches a summary of the company homepage.
type WebsiteCollector interface {
	Snapshot(ctx context.Context, companyURL string) (*model.WebsiteSnapshot, error)
}

// Exporter publishes a completed report.
type Exporter interface {
	Export(ctx context.Context, report *model.Report) error
}

// Pipeline runs the collect, analyze and synthesize stages for a company.
type Pipeline struct {
	profiles ProfileCollector
	website  WebsiteCollector
	runner   *analysis.Runner
	analysis analysis.Stage
	store    store.Store
	exporter Exporter
	timeout  time.Duration
	parallel int
	validate *validator.Validate
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWebsite enables the homepage snapshot during collection.
func WithWebsite(w WebsiteCollector) Option {
	return func(p *Pipeline) { p.website = w }
}

// WithStore records runs and phases in st.
func WithStore(st store.Store) Option {
	return func(p *Pipeline) { p.store = st }
}

// WithExporter publishes every completed report.
func WithExporter(e Exporter) Option {
	return func(p *Pipeline) { p.exporter = e }
}

// WithTimeout sets the overall run budget.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithConcurrency caps how many analysis tasks run at once. Zero or less
// runs every task at once.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) { p.parallel = n }
}

// WithAnalysisStage replaces the default five-task analysis stage.
func WithAnalysisStage(s analysis.Stage) Option {
	return func(p *Pipeline) { p.analysis = s }
}

// New creates a Pipeline. It fails when the analysis stage is misconfigured.
func New(profiles ProfileCollector, runner *analysis.Runner, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		profiles: profiles,
		runner:   runner,
		analysis: analysis.DefaultStage(),
		timeout:  DefaultTimeout,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, o := range opts {
		o(p)
	}
	if p.parallel > 0 {
		p.analysis.Concurrency = p.parallel
	}
	if p.profiles == nil {
		return nil, eris.New("pipeline: profile collector is required")
	}
	if p.runner == nil {
		return nil, eris.New("pipeline: runner is required")
	}
	if err := p.analysis.Validate(); err != nil {
		return nil, eris.Wrap(err, "pipeline: analysis stage")
	}
	return p, nil
}

// Timeout returns the overall run budget.
func (p *Pipeline) Timeout() time.Duration { return p.timeout }

// Tasks returns the analysis task names followed by the synthesis task.
func (p *Pipeline) Tasks() []string {
	names := make([]string, 0, len(p.analysis.Tasks)+1)
	for _, t := range p.analysis.Tasks {
		names = append(names, t.TaskName())
	}
	return append(names, analysis.TaskSynthesis)
}

// runState carries each stage's output to the next. It is owned by the
// goroutine executing the stages.
type runState struct {
	req         model.AnalyzeRequest
	bundle      *analysis.InputBundle
	collected   analysis.StageOutput
	analyzed    analysis.StageOutput
	synthesized analysis.StageOutput
}

type runOutcome struct {
	report *model.Report
	err    error
}

// Run executes the pipeline for req. It returns a complete report or a
// single error; a timeout is reported as ErrPipelineTimeout.
func (p *Pipeline) Run(ctx context.Context, req model.AnalyzeRequest) (*model.Report, error) {
	if err := p.validate.Struct(req); err != nil {
		return nil, eris.Wrapf(ErrInvalidRequest, "%v", err)
	}

	log := zap.L().With(zap.String("company_url", req.CompanyURL))
	log.Info("pipeline: starting run", zap.Duration("timeout", p.timeout))
	start := time.Now()

	tr := newTracker(ctx, p.store, req, log)

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan runOutcome, 1)
	go func() {
		report, err := p.execute(runCtx, tr, req)
		done <- runOutcome{report: report, err: err}
	}()

	var out runOutcome
	select {
	case out = <-done:
	case <-runCtx.Done():
		out.err = runCtx.Err()
	}

	if out.err != nil {
		err := out.err
		switch {
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			err = eris.Wrapf(ErrPipelineTimeout, "exceeded %s", p.timeout)
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			err = eris.Wrap(err, "pipeline: cancelled")
		}
		tr.fail(err)
		log.Error("pipeline: run failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return nil, err
	}

	tr.complete(out.report)
	log.Info("pipeline: run complete",
		zap.String("company", out.report.Name),
		zap.String("outlook", out.report.Outlook.Level),
		zap.Bool("degraded", out.report.Degraded()),
		zap.Duration("elapsed", time.Since(start)),
	)

	if p.exporter != nil {
		if err := p.exporter.Export(context.WithoutCancel(ctx), out.report); err != nil {
			log.Warn("pipeline: export failed", zap.Error(err))
		}
	}
	return out.report, nil
}

// execute walks the stage machine. Each stage starts only after the previous
// stage's output is fully resolved.
func (p *Pipeline) execute(ctx context.Context, tr *tracker, req model.AnalyzeRequest) (*model.Report, error) {
	st := &runState{req: req}
	stage := StageCollectInput

	for {
		if stage != StageComplete {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		switch stage {
		case StageCollectInput:
			tr.status(model.RunStatusCollecting)
			st.collected = tr.phase(string(stage), func() analysis.StageOutput {
				return p.collect(ctx, st)
			})
			stage = StageParallelAnalyze

		case StageParallelAnalyze:
			tr.status(model.RunStatusAnalyzing)
			st.analyzed = tr.phase(string(stage), func() analysis.StageOutput {
				return p.analysis.Run(ctx, p.runner, st.bundle)
			})
			stage = StageSynthesize

		case StageSynthesize:
			tr.status(model.RunStatusSynthesizing)
			synth := analysis.SynthesisStage(analysis.AnalysesFrom(st.analyzed))
			st.synthesized = tr.phase(string(stage), func() analysis.StageOutput {
				return synth.Run(ctx, p.runner, st.bundle)
			})
			stage = StageComplete

		case StageComplete:
			return assemble(st), nil

		default:
			return nil, eris.Errorf("pipeline: unknown stage %q", stage)
		}
	}
}
