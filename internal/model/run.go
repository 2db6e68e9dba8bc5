package model

import "time"

// RunStatus represents the state of an analysis run.
type RunStatus string

const (
	RunStatusQueued       RunStatus = "queued"
	RunStatusCollecting   RunStatus = "collecting"
	RunStatusAnalyzing    RunStatus = "analyzing"
	RunStatusSynthesizing RunStatus = "synthesizing"
	RunStatusComplete     RunStatus = "complete"
	RunStatusFailed       RunStatus = "failed"
)

// AnalyzeRequest is the inbound trigger for one pipeline run.
type AnalyzeRequest struct {
	CompanyURL string `json:"company_url" yaml:"company_url" validate:"required,url"`
	ProfileURL string `json:"crunchbase_url" yaml:"crunchbase_url" validate:"required,url"`
}

// Run is a persisted analysis run.
type Run struct {
	ID        string         `json:"id"`
	Request   AnalyzeRequest `json:"request"`
	Status    RunStatus      `json:"status"`
	Report    *Report        `json:"report,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// PhaseStatus represents the outcome of a pipeline stage.
type PhaseStatus string

const (
	PhaseStatusRunning  PhaseStatus = "running"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
)

// RunPhase is a persisted record of one stage within a run.
type RunPhase struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	Name      string       `json:"name"`
	Status    PhaseStatus  `json:"status"`
	Result    *PhaseResult `json:"result,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// PhaseResult captures the outcome of a stage.
type PhaseResult struct {
	Name     string          `json:"name"`
	Status   PhaseStatus     `json:"status"`
	Duration int64           `json:"duration_ms"`
	Outcomes map[Outcome]int `json:"outcomes,omitempty"`
	Error    string          `json:"error,omitempty"`
}
