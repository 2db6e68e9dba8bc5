package pipeline

import (
	"net/url"
	"strings"

	"github.com/sells-group/fundscan/internal/analysis"
	"github.com/sells-group/fundscan/internal/model"
)

// assemble builds the report from the three stage outputs.
func assemble(st *runState) *model.Report {
	a := analysis.AnalysesFrom(st.analyzed)

	synth, ok := synthesisFrom(st.synthesized)
	if !ok {
		synth = analysis.FallbackSynthesis(st.bundle.CompanyName(), a)
	}

	var sections []model.SectionStatus
	for _, out := range []analysis.StageOutput{st.collected, st.analyzed, st.synthesized} {
		for _, r := range out.Results {
			sections = append(sections, model.SectionStatus{Task: r.Task, Outcome: r.Outcome, Via: r.Via})
		}
	}

	return &model.Report{
		Name:               st.bundle.CompanyName(),
		Domain:             st.bundle.Domain,
		Traction:           a.Traction,
		Team:               a.Team,
		Market:             a.Market,
		Risks:              a.Risks,
		DeepMarketResearch: a.DeepMarketResearch,
		Indicators:         synth.Indicators,
		Outlook:            synth.Outlook,
		Sections:           sections,
	}
}

func synthesisFrom(out analysis.StageOutput) (model.Synthesis, bool) {
	r, ok := out.Get(analysis.TaskSynthesis)
	if !ok {
		return model.Synthesis{}, false
	}
	return analysis.RecordAs[model.Synthesis](r)
}

// ExtractDomain returns the host of rawURL without a leading "www.". A URL
// without a scheme is treated as a bare host.
func ExtractDomain(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	host := u.Host
	if host == "" {
		host, _, _ = strings.Cut(u.Path, "/")
	}
	if host == "" {
		return s
	}
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
