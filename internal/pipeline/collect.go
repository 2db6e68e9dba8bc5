package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/fundscan/internal/analysis"
	"github.com/sells-group/fundscan/internal/collect"
	"github.com/sells-group/fundscan/internal/model"
)

// Collection task names.
const (
	TaskProfile = "profile"
	TaskWebsite = "website"
)

// Secondary sources that are not collected yet. They reach the bundle as
// named empty entries.
var auxiliarySources = []string{"reddit", "news"}

func emptyAuxiliary() map[string][]model.SourceDocument {
	aux := make(map[string][]model.SourceDocument, len(auxiliarySources))
	for _, name := range auxiliarySources {
		aux[name] = []model.SourceDocument{}
	}
	return aux
}

// collect gathers the profile and, when configured, the homepage snapshot
// concurrently. Neither failure aborts the run: a failed profile becomes the
// placeholder record and a failed snapshot is left out of the bundle.
func (p *Pipeline) collect(ctx context.Context, st *runState) analysis.StageOutput {
	start := time.Now()
	log := zap.L().With(zap.String("company_url", st.req.CompanyURL))

	var (
		profile    model.Profile
		profileErr error
		snapshot   *model.WebsiteSnapshot
		websiteErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		profile, profileErr = p.profiles.Collect(ctx, st.req.ProfileURL)
		return nil
	})
	if p.website != nil {
		g.Go(func() error {
			snapshot, websiteErr = p.website.Snapshot(ctx, st.req.CompanyURL)
			return nil
		})
	}
	_ = g.Wait()

	results := make([]analysis.TaskResult, 0, 2)

	profileResult := analysis.TaskResult{Task: TaskProfile, Outcome: model.OutcomeSuccess}
	if profileErr != nil {
		log.Warn("pipeline: profile collection failed, using placeholder", zap.Error(profileErr))
		profile = collect.Placeholder(profileErr)
		profileResult.Outcome = model.OutcomeStaticDefault
		profileResult.Failures = []string{profileErr.Error()}
	}
	profileResult.Record = profile
	results = append(results, profileResult)

	if p.website != nil {
		websiteResult := analysis.TaskResult{Task: TaskWebsite, Outcome: model.OutcomeSuccess, Record: snapshot}
		if websiteErr != nil {
			log.Warn("pipeline: website snapshot failed", zap.Error(websiteErr))
			snapshot = nil
			websiteResult.Outcome = model.OutcomeStaticDefault
			websiteResult.Record = snapshot
			websiteResult.Failures = []string{websiteErr.Error()}
		}
		results = append(results, websiteResult)
	}

	st.bundle = &analysis.InputBundle{
		CompanyURL: st.req.CompanyURL,
		ProfileURL: st.req.ProfileURL,
		Domain:     ExtractDomain(st.req.CompanyURL),
		Profile:    profile,
		Website:    snapshot,
		Auxiliary:  emptyAuxiliary(),
	}

	out := analysis.StageOutput{Stage: string(StageCollectInput), Results: results}
	log.Info("pipeline: collection complete",
		zap.String("company", st.bundle.CompanyName()),
		zap.String("domain", st.bundle.Domain),
		zap.Bool("placeholder", profileErr != nil),
		zap.Bool("website", snapshot != nil),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out
}
