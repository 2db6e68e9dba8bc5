package analysis

import (
	"fmt"
	"strings"

	"github.com/sells-group/fundscan/internal/extract"
	"github.com/sells-group/fundscan/internal/model"
	"github.com/sells-group/fundscan/internal/provider"
)

// StageSynthesis names the synthesis stage.
const StageSynthesis = "synthesis"

// Outlook thresholds on the mean indicator score.
const (
	StrongThreshold   = 70.0
	ModerateThreshold = 50.0
)

// neutralScore is where every fallback indicator starts.
const neutralScore = 50

// Analyses are the typed records of the parallel analysis stage.
type Analyses struct {
	Traction           model.Traction
	Team               model.Team
	Market             model.Market
	Risks              model.Risk
	DeepMarketResearch model.DeepMarketResearch
}

// AnalysesFrom collects typed records from a stage output. Missing or
// mistyped records are left as zero values.
func AnalysesFrom(out StageOutput) Analyses {
	var a Analyses
	if r, ok := out.Get(TaskTraction); ok {
		a.Traction, _ = RecordAs[model.Traction](r)
	}
	if r, ok := out.Get(TaskTeam); ok {
		a.Team, _ = RecordAs[model.Team](r)
	}
	if r, ok := out.Get(TaskMarket); ok {
		a.Market, _ = RecordAs[model.Market](r)
	}
	if r, ok := out.Get(TaskRisks); ok {
		a.Risks, _ = RecordAs[model.Risk](r)
	}
	if r, ok := out.Get(TaskDeepMarketResearch); ok {
		a.DeepMarketResearch, _ = RecordAs[model.DeepMarketResearch](r)
	}
	return a
}

// SynthesisStage wraps the synthesis task as a single-task stage.
func SynthesisStage(a Analyses) Stage {
	return Stage{Name: StageSynthesis, Tasks: []Task{SynthesisTask(a)}}
}

const synthesisInstructions = `You are an expert venture capital analyst. Synthesize these analyses into a final investment thesis for %s.`

const synthesisGuidance = `Based on all the above analyses, provide:

1. Indicators (0-100 scale):
   - growth: traction metrics, revenue growth, user growth, market position
   - team: founder experience, team composition, domain expertise
   - market: market size (TAM/SAM/SOM), growth trajectory, competitive landscape
   - product: product-market fit indicators, differentiation, technological moats

2. Overall Outlook:
   - overall: "Strong", "Moderate", or "Weak"
   - summary: 2-3 sentence investment thesis
   - keyPoints: 5-7 key actionable insights for the investment decision`

const synthesisSchema = `{
    "indicators": {"growth": 0, "team": 0, "market": 0, "product": 0},
    "outlook": {
        "overall": "Strong" | "Moderate" | "Weak",
        "summary": "string",
        "keyPoints": ["string"]
    }
}`

// SynthesisTask reduces the analyses into indicators and an outlook. Its
// static default is computed from a by FallbackSynthesis.
func SynthesisTask(a Analyses) *TaskSpec[model.Synthesis] {
	build := func(b *InputBundle, docs []model.SourceDocument) string {
		var sb strings.Builder
		fmt.Fprintf(&sb, synthesisInstructions, b.CompanyName())
		sections := []struct {
			title string
			v     any
		}{
			{"TRACTION ANALYSIS", a.Traction},
			{"TEAM ANALYSIS", a.Team},
			{"MARKET ANALYSIS (BASIC)", a.Market},
			{"DEEP MARKET RESEARCH", a.DeepMarketResearch},
			{"RISK ANALYSIS", a.Risks},
		}
		for _, s := range sections {
			fmt.Fprintf(&sb, "\n\n%s:\n%s", s.title, sectionJSON(s.v))
		}
		if docs != nil {
			sb.WriteString("\n\nEXTERNAL MARKET INTELLIGENCE:\n")
			sb.WriteString(formatSources(docs))
		}
		sb.WriteString("\n\n")
		sb.WriteString(synthesisGuidance)
		sb.WriteString("\n\n")
		sb.WriteString(jsonOnlyFooter)
		sb.WriteString(synthesisSchema)
		return sb.String()
	}

	return &TaskSpec[model.Synthesis]{
		Name:           TaskSynthesis,
		Temperature:    0.3,
		Tier:           provider.TierPro,
		Query:          queryFor("investment analysis valuation funding investors industry outlook"),
		Sources:        webAndNews,
		ContextChars:   800,
		EnrichedPrompt: build,
		PlainPrompt:    func(b *InputBundle) string { return build(b, nil) },
		RequiredKeys:   []string{"indicators", "outlook"},
		Normalize:      normalizeSynthesis,
		Default: func(b *InputBundle) model.Synthesis {
			return FallbackSynthesis(b.CompanyName(), a)
		},
	}
}

func normalizeSynthesis(s *model.Synthesis) {
	s.Indicators.Growth = clampScore(s.Indicators.Growth)
	s.Indicators.Team = clampScore(s.Indicators.Team)
	s.Indicators.Market = clampScore(s.Indicators.Market)
	s.Indicators.Product = clampScore(s.Indicators.Product)
	s.Outlook.Level = extract.Title(s.Outlook.Level)
	if s.Outlook.KeyPoints == nil {
		s.Outlook.KeyPoints = []string{}
	}
}

func clampScore(n int) int {
	return min(max(n, 0), 100)
}

// LevelFor maps the mean indicator score to an outlook level.
func LevelFor(ind model.Indicators) string {
	switch mean := ind.Mean(); {
	case mean >= StrongThreshold:
		return model.LevelStrong
	case mean >= ModerateThreshold:
		return model.LevelModerate
	default:
		return model.LevelWeak
	}
}

// FallbackIndicators scores the analyses by presence and keyword rules,
// starting every indicator at the neutral midpoint.
func FallbackIndicators(a Analyses) model.Indicators {
	ind := model.Indicators{Growth: neutralScore, Team: neutralScore, Market: neutralScore, Product: neutralScore}

	if present(a.Traction.Revenue) || present(a.Traction.Users) {
		ind.Growth = 60
	}
	if len(a.Team.Founders) > 0 {
		ind.Team = 60
	}
	if strings.Contains(strings.ToLower(a.Market.MarketSize), "billion") {
		ind.Market = 65
	}
	if len(a.DeepMarketResearch.CompetitiveLandscape) > 0 {
		ind.Market = 70
	}
	switch a.Risks.OverallRiskLevel {
	case "Low":
		ind.Product = 65
	case "High":
		ind.Product = 40
	}
	return ind
}

// FallbackSynthesis computes a schema-valid synthesis from whatever the
// analyses contain. It never fails.
func FallbackSynthesis(company string, a Analyses) model.Synthesis {
	ind := FallbackIndicators(a)
	level := LevelFor(ind)
	return model.Synthesis{
		Indicators: ind,
		Outlook: model.Outlook{
			Level: level,
			Summary: fmt.Sprintf("Comprehensive analysis complete for %s. Based on available data, the company shows %s potential.",
				company, strings.ToLower(level)),
			KeyPoints: []string{
				"Traction: " + orDefault(a.Traction.Summary, "Analyzed"),
				"Team: " + orDefault(a.Team.Summary, "Analyzed"),
				"Market: " + orDefault(a.Market.Summary, "Analyzed"),
				"Risk Level: " + orDefault(a.Risks.OverallRiskLevel, "Unknown"),
				"Detailed synthesis unavailable - review individual sections",
			},
		},
	}
}

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
