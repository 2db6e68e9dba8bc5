package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sells-group/fundscan/internal/model"
)

const jsonOnlyFooter = "Output ONLY valid JSON matching this exact schema (no markdown, no extra text):\n"

const tractionInstructions = `You are a startup traction analyst. Analyze %s and extract:
- Revenue/ARR metrics
- User growth numbers
- Key milestones achieved
- Product-market fit indicators
- Funding stage (e.g., Seed, Series A, Series B, etc.)
- Recent funding round information`

const tractionSchema = `{
    "revenue": "string or null",
    "users": "string or null",
    "growth_rate": "string or null",
    "milestones": ["string"],
    "summary": "string",
    "funding_stage": "string or null (e.g., Seed, Series A, Pre-seed, etc.)",
    "recent_round": "string or null (most recent funding round amount and details)"
}`

const teamInstructions = `You are a startup team analyst. Analyze %s and extract:
- Founder backgrounds and experience
- Key team members and advisors
- Technical expertise
- Domain knowledge
- Previous startup experience`

const teamSchema = `{
    "founders": [{"name": "string", "background": "string"}],
    "key_members": ["string"],
    "advisors": ["string"],
    "summary": "string"
}`

const marketInstructions = `You are a startup market analyst. Analyze %s and extract:
- Overall market size and opportunity
- Competition level in this space
- Target customer segment
- Relevant market trends
- Market positioning and fit`

const marketSchema = `{
    "market_size": "string describing TAM/market size",
    "competition_level": "High" or "Medium" or "Low",
    "target_segment": "string describing primary customer segment",
    "market_trends": ["trend1", "trend2", "trend3"],
    "summary": "string summarizing market opportunity and positioning"
}`

const riskInstructions = `You are a startup risk analyst specializing in venture capital due diligence. Analyze %s and identify:
- Technical risks and challenges
- Market and competitive risks
- Team and execution risks
- Financial risks and concerns
- Any red flags or warning signs`

const riskSchema = `{
    "technical_risks": ["risk1", "risk2", "risk3"],
    "market_risks": ["risk1", "risk2", "risk3"],
    "team_risks": ["risk1", "risk2"],
    "financial_risks": ["risk1", "risk2"],
    "red_flags": ["flag1", "flag2"],
    "overall_risk_level": "High" or "Medium" or "Low",
    "summary": "string summarizing key risks and concerns"
}`

const deepResearchInstructions = `You are an expert venture capital market research analyst. Conduct comprehensive market research for %s.

Provide deep market analysis with web-sourced competitive intelligence:
- Recent market reports and data
- Competitor information and analysis
- Industry trends and projections
- Regulatory landscape
- Market opportunities

List 5-10 competitors in competitive_landscape and 5-7 trends in market_trends, with citations in sources.
Use "High", "Medium", or "Low" for impact, potential and severity.`

const deepResearchSchema = `{
    "market_overview": {"tam": "string", "sam": "string", "som": "string", "sources": ["string"]},
    "competitive_landscape": [{"name": "string", "positioning": "string", "strengths": ["string"], "weaknesses": ["string"]}],
    "market_trends": [{"trend": "string", "impact": "High", "description": "string"}],
    "growth_trajectory": {"current_rate": "string", "projected_rate": "string", "key_drivers": ["string"]},
    "barriers_and_moats": {"entry_barriers": ["string"], "company_moats": ["string"]},
    "regulatory_landscape": {"regulations": ["string"], "compliance_requirements": ["string"]},
    "expansion_opportunities": [{"market": "string", "potential": "High", "rationale": "string"}],
    "market_risks": [{"risk": "string", "severity": "High", "mitigation": "string"}],
    "sources": [{"title": "string", "url": "string", "date": "YYYY-MM-DD"}]
}`

// subject phrases what the model is asked to analyze.
func subject(b *InputBundle, enriched bool) string {
	if enriched {
		return "the provided sources about " + b.CompanyName()
	}
	return "the provided data about " + b.CompanyName()
}

// composePrompt lays out instructions, company data, optional sources and
// the output schema. A nil docs slice omits the sources block.
func composePrompt(instructions string, b *InputBundle, docs []model.SourceDocument, schema string) string {
	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\nCompany Data: ")
	sb.WriteString(companyData(b))
	if docs != nil {
		sb.WriteString("\n\nSources:\n")
		sb.WriteString(formatSources(docs))
	}
	sb.WriteString("\n\n")
	sb.WriteString(jsonOnlyFooter)
	sb.WriteString(schema)
	return sb.String()
}

// companyData renders the bundle's evidence as indented JSON.
func companyData(b *InputBundle) string {
	data := map[string]any{"profile": b.Profile}
	if b.Website != nil {
		data["website"] = b.Website
	}
	for name, docs := range b.Auxiliary {
		if len(docs) > 0 {
			data[name] = docs
		}
	}
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}

func formatSources(docs []model.SourceDocument) string {
	var sb strings.Builder
	for i, d := range docs {
		title := d.Title
		if title == "" {
			title = "No title"
		}
		fmt.Fprintf(&sb, "[%d] %s\n%s\n\n", i+1, title, d.Content)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// sectionJSON renders an upstream record for the synthesis prompt.
func sectionJSON(v any) string {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}

// promptPair builds matching enriched and plain prompt builders.
func promptPair(instructions, schema string) (func(*InputBundle, []model.SourceDocument) string, func(*InputBundle) string) {
	enriched := func(b *InputBundle, docs []model.SourceDocument) string {
		return composePrompt(fmt.Sprintf(instructions, subject(b, true)), b, docs, schema)
	}
	plain := func(b *InputBundle) string {
		return composePrompt(fmt.Sprintf(instructions, subject(b, false)), b, nil, schema)
	}
	return enriched, plain
}
