package model

// Traction summarises revenue, user and funding momentum.
type Traction struct {
	Revenue       *string  `json:"revenue"`
	Users         *string  `json:"users"`
	GrowthRate    *string  `json:"growth_rate"`
	Milestones    []string `json:"milestones"`
	Summary       string   `json:"summary" validate:"required"`
	EmployeeCount *int     `json:"employee_count"`
	FundingStage  *string  `json:"funding_stage"`
	TotalRaised   *string  `json:"total_raised"`
	RecentRound   *string  `json:"recent_round"`
}

// Founder is a named founder with a short background.
type Founder struct {
	Name       string `json:"name" validate:"required"`
	Background string `json:"background"`
}

// Team describes founders, key hires and advisors.
type Team struct {
	Founders   []Founder `json:"founders" validate:"dive"`
	KeyMembers []string  `json:"key_members"`
	Advisors   []string  `json:"advisors"`
	Summary    string    `json:"summary" validate:"required"`
}

// Market describes market size and competition.
type Market struct {
	MarketSize       string   `json:"market_size" validate:"required"`
	CompetitionLevel string   `json:"competition_level" validate:"required,oneof=High Medium Low"`
	TargetSegment    string   `json:"target_segment" validate:"required"`
	MarketTrends     []string `json:"market_trends"`
	Summary          string   `json:"summary" validate:"required"`
}

// Risk groups identified risks by category.
type Risk struct {
	TechnicalRisks   []string `json:"technical_risks"`
	MarketRisks      []string `json:"market_risks"`
	TeamRisks        []string `json:"team_risks"`
	FinancialRisks   []string `json:"financial_risks"`
	RedFlags         []string `json:"red_flags"`
	OverallRiskLevel string   `json:"overall_risk_level" validate:"required,oneof=High Medium Low"`
	Summary          string   `json:"summary" validate:"required"`
}

// MarketOverview holds TAM/SAM/SOM estimates.
type MarketOverview struct {
	TAM     string   `json:"tam" validate:"required"`
	SAM     string   `json:"sam"`
	SOM     string   `json:"som"`
	Sources []string `json:"sources"`
}

// Competitor is one entry of the competitive landscape.
type Competitor struct {
	Name        string   `json:"name" validate:"required"`
	Positioning string   `json:"positioning"`
	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
}

// MarketTrend is a trend with its expected impact.
type MarketTrend struct {
	Trend       string `json:"trend"`
	Impact      string `json:"impact"`
	Description string `json:"description"`
}

// GrowthTrajectory describes current and projected market growth.
type GrowthTrajectory struct {
	CurrentRate   string   `json:"current_rate"`
	ProjectedRate string   `json:"projected_rate"`
	KeyDrivers    []string `json:"key_drivers"`
}

// BarriersAndMoats lists entry barriers and the company's defensibility.
type BarriersAndMoats struct {
	EntryBarriers []string `json:"entry_barriers"`
	CompanyMoats  []string `json:"company_moats"`
}

// RegulatoryLandscape lists applicable regulation.
type RegulatoryLandscape struct {
	Regulations            []string `json:"regulations"`
	ComplianceRequirements []string `json:"compliance_requirements"`
}

// ExpansionOpportunity is an adjacent market the company could enter.
type ExpansionOpportunity struct {
	Market    string `json:"market"`
	Potential string `json:"potential"`
	Rationale string `json:"rationale"`
}

// MarketRisk is a market-specific risk with mitigation.
type MarketRisk struct {
	Risk       string `json:"risk"`
	Severity   string `json:"severity"`
	Mitigation string `json:"mitigation"`
}

// Citation is a source the research relied on.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Date  string `json:"date"`
}

// DeepMarketResearch is the long-form market study.
type DeepMarketResearch struct {
	MarketOverview         MarketOverview         `json:"market_overview"`
	CompetitiveLandscape   []Competitor           `json:"competitive_landscape" validate:"dive"`
	MarketTrends           []MarketTrend          `json:"market_trends"`
	GrowthTrajectory       GrowthTrajectory       `json:"growth_trajectory"`
	BarriersAndMoats       BarriersAndMoats       `json:"barriers_and_moats"`
	RegulatoryLandscape    RegulatoryLandscape    `json:"regulatory_landscape"`
	ExpansionOpportunities []ExpansionOpportunity `json:"expansion_opportunities"`
	MarketRisks            []MarketRisk           `json:"market_risks"`
	Sources                []Citation             `json:"sources"`
}
