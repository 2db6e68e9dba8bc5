package model

import (
	"encoding/json"
	"math"
)

// Outlook levels.
const (
	LevelStrong   = "Strong"
	LevelModerate = "Moderate"
	LevelWeak     = "Weak"
)

// Indicators are the four synthesis scores, each in [0,100].
type Indicators struct {
	Growth  int `json:"growth" validate:"min=0,max=100"`
	Team    int `json:"team" validate:"min=0,max=100"`
	Market  int `json:"market" validate:"min=0,max=100"`
	Product int `json:"product" validate:"min=0,max=100"`
}

// UnmarshalJSON accepts fractional scores, rounds them and clamps them to
// [0,100].
func (i *Indicators) UnmarshalJSON(data []byte) error {
	var raw struct {
		Growth  float64 `json:"growth"`
		Team    float64 `json:"team"`
		Market  float64 `json:"market"`
		Product float64 `json:"product"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	i.Growth = roundScore(raw.Growth)
	i.Team = roundScore(raw.Team)
	i.Market = roundScore(raw.Market)
	i.Product = roundScore(raw.Product)
	return nil
}

func roundScore(f float64) int {
	return int(math.Round(max(0, min(100, f))))
}

// Mean returns the arithmetic mean of the four scores.
func (i Indicators) Mean() float64 {
	return float64(i.Growth+i.Team+i.Market+i.Product) / 4
}

// Outlook is the qualitative verdict of the synthesis.
type Outlook struct {
	Level     string   `json:"overall" validate:"required,oneof=Strong Moderate Weak"`
	Summary   string   `json:"summary" validate:"required"`
	KeyPoints []string `json:"keyPoints"`
}

// Synthesis is the final reduction over every analysis section.
type Synthesis struct {
	Indicators Indicators `json:"indicators"`
	Outlook    Outlook    `json:"outlook"`
}

// Outcome tags how a task produced its record.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeDegraded      Outcome = "degraded"
	OutcomeStaticDefault Outcome = "static_default"
)

// SectionStatus records the provenance of one report section.
type SectionStatus struct {
	Task    string  `json:"task"`
	Outcome Outcome `json:"outcome"`
	Via     string  `json:"via,omitempty"`
}

// Report is the aggregate result of one analysis run.
type Report struct {
	Name               string             `json:"name"`
	Domain             string             `json:"domain"`
	Traction           Traction           `json:"traction"`
	Team               Team               `json:"team"`
	Market             Market             `json:"market"`
	Risks              Risk               `json:"risks"`
	DeepMarketResearch DeepMarketResearch `json:"deep_market_research"`
	Indicators         Indicators         `json:"indicators"`
	Outlook            Outlook            `json:"outlook"`
	Sections           []SectionStatus    `json:"sections"`
}

// Degraded reports whether any section fell back from the enriched tier.
func (r *Report) Degraded() bool {
	for _, s := range r.Sections {
		if s.Outcome != OutcomeSuccess {
			return true
		}
	}
	return false
}
