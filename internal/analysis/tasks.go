package analysis

import (
	"fmt"

	"github.com/sells-group/fundscan/internal/extract"
	"github.com/sells-group/fundscan/internal/model"
	"github.com/sells-group/fundscan/internal/provider"
)

// Task names.
const (
	TaskTraction           = "traction"
	TaskTeam               = "team"
	TaskMarket             = "market"
	TaskRisks              = "risks"
	TaskDeepMarketResearch = "deep_market_research"
	TaskSynthesis          = "synthesis"
)

// StageParallelAnalysis names the default analysis stage.
const StageParallelAnalysis = "parallel_analysis"

var webAndNews = []string{provider.SourceWeb, provider.SourceNews}

// DefaultStage returns the five independent analysis tasks.
func DefaultStage() Stage {
	return Stage{
		Name: StageParallelAnalysis,
		Tasks: []Task{
			TractionTask(),
			TeamTask(),
			MarketTask(),
			RiskTask(),
			DeepMarketResearchTask(),
		},
	}
}

func queryFor(suffix string) func(*InputBundle) string {
	return func(b *InputBundle) string {
		return fmt.Sprintf("%s %s", b.CompanyName(), suffix)
	}
}

// TractionTask extracts revenue, users and funding momentum.
func TractionTask() *TaskSpec[model.Traction] {
	enriched, plain := promptPair(tractionInstructions, tractionSchema)
	return &TaskSpec[model.Traction]{
		Name:           TaskTraction,
		Temperature:    0.2,
		Query:          queryFor("revenue users growth funding round traction milestones"),
		Sources:        webAndNews,
		EnrichedPrompt: enriched,
		PlainPrompt:    plain,
		RequiredKeys:   []string{"summary"},
		Finalize:       finalizeTraction,
		Default: func(*InputBundle) model.Traction {
			return model.Traction{
				Milestones: []string{},
				Summary:    "Unable to extract traction data from available sources",
			}
		},
	}
}

// finalizeTraction prefers the collected profile's employee count and
// disclosed funding over generated values.
func finalizeTraction(b *InputBundle, t *model.Traction) {
	if n := b.Profile.EmployeeCount(); n != nil {
		t.EmployeeCount = n
	}
	if raised := b.Profile.TotalRaised(); raised != nil {
		t.TotalRaised = raised
	}
	if t.Milestones == nil {
		t.Milestones = []string{}
	}
}

// TeamTask extracts founders, key members and advisors.
func TeamTask() *TaskSpec[model.Team] {
	enriched, plain := promptPair(teamInstructions, teamSchema)
	return &TaskSpec[model.Team]{
		Name:           TaskTeam,
		Temperature:    0.2,
		Query:          queryFor("founders CEO team executives leadership background experience"),
		Sources:        webAndNews,
		EnrichedPrompt: enriched,
		PlainPrompt:    plain,
		RequiredKeys:   []string{"founders", "summary"},
		Normalize: func(t *model.Team) {
			founders := t.Founders[:0]
			for _, f := range t.Founders {
				if f.Name != "" {
					founders = append(founders, f)
				}
			}
			t.Founders = founders
		},
		Default: func(*InputBundle) model.Team {
			return model.Team{
				Founders:   []model.Founder{},
				KeyMembers: []string{},
				Advisors:   []string{},
				Summary:    "Unable to extract team data from available sources",
			}
		},
	}
}

// MarketTask extracts market size, competition and trends.
func MarketTask() *TaskSpec[model.Market] {
	enriched, plain := promptPair(marketInstructions, marketSchema)
	return &TaskSpec[model.Market]{
		Name:           TaskMarket,
		Temperature:    0.3,
		Query:          queryFor("market size competition trends industry analysis"),
		Sources:        webAndNews,
		EnrichedPrompt: enriched,
		PlainPrompt:    plain,
		RequiredKeys:   []string{"market_size", "competition_level", "summary"},
		Normalize: func(m *model.Market) {
			m.CompetitionLevel = extract.Title(m.CompetitionLevel)
		},
		Default: func(*InputBundle) model.Market {
			return model.Market{
				MarketSize:       "Unable to determine",
				CompetitionLevel: "Medium",
				TargetSegment:    "Unable to determine",
				MarketTrends:     []string{},
				Summary:          "Unable to extract market data from available sources",
			}
		},
	}
}

// RiskTask identifies technical, market, team and financial risks.
func RiskTask() *TaskSpec[model.Risk] {
	enriched, plain := promptPair(riskInstructions, riskSchema)
	return &TaskSpec[model.Risk]{
		Name:           TaskRisks,
		Temperature:    0.2,
		Query:          queryFor("risks challenges problems controversies failures issues concerns"),
		Sources:        webAndNews,
		EnrichedPrompt: enriched,
		PlainPrompt:    plain,
		RequiredKeys:   []string{"overall_risk_level", "summary"},
		Normalize: func(r *model.Risk) {
			r.OverallRiskLevel = extract.Title(r.OverallRiskLevel)
		},
		Default: func(*InputBundle) model.Risk {
			return model.Risk{
				TechnicalRisks:   []string{"Unable to assess technical risks"},
				MarketRisks:      []string{"Unable to assess market risks"},
				TeamRisks:        []string{"Unable to assess team risks"},
				FinancialRisks:   []string{"Unable to assess financial risks"},
				RedFlags:         []string{},
				OverallRiskLevel: "Medium",
				Summary:          "Unable to extract risk data from available sources",
			}
		},
	}
}

// DeepMarketResearchTask produces the long-form market study on the pro tier.
func DeepMarketResearchTask() *TaskSpec[model.DeepMarketResearch] {
	return &TaskSpec[model.DeepMarketResearch]{
		Name:        TaskDeepMarketResearch,
		Temperature: 0.7,
		Tier:        provider.TierPro,
		Query:       queryFor("market size TAM competitors industry report growth forecast regulation"),
		Sources:     webAndNews,
		EnrichedPrompt: func(b *InputBundle, docs []model.SourceDocument) string {
			return composePrompt(fmt.Sprintf(deepResearchInstructions, b.CompanyName()), b, docs, deepResearchSchema)
		},
		PlainPrompt: func(b *InputBundle) string {
			return composePrompt(fmt.Sprintf(deepResearchInstructions, b.CompanyName()), b, nil, deepResearchSchema)
		},
		RequiredKeys: []string{"market_overview", "competitive_landscape"},
		Default: func(*InputBundle) model.DeepMarketResearch {
			return model.DeepMarketResearch{
				MarketOverview: model.MarketOverview{
					TAM: "Data unavailable", SAM: "Data unavailable", SOM: "Data unavailable",
					Sources: []string{},
				},
				CompetitiveLandscape: []model.Competitor{},
				MarketTrends:         []model.MarketTrend{},
				GrowthTrajectory: model.GrowthTrajectory{
					CurrentRate: "Unknown", ProjectedRate: "Unknown", KeyDrivers: []string{},
				},
				BarriersAndMoats:       model.BarriersAndMoats{EntryBarriers: []string{}, CompanyMoats: []string{}},
				RegulatoryLandscape:    model.RegulatoryLandscape{Regulations: []string{}, ComplianceRequirements: []string{}},
				ExpansionOpportunities: []model.ExpansionOpportunity{},
				MarketRisks:            []model.MarketRisk{},
				Sources:                []model.Citation{},
			}
		},
	}
}
