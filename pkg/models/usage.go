package models

import "time"

// UsageRecord is one observed stage execution priced against the rate card.
type UsageRecord struct {
	ID           int64     `json:"id"`
	RunID        string    `json:"run_id"`
	Stage        string    `json:"stage"`
	Tier         string    `json:"tier,omitempty"`
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
	HitRatio     float64   `json:"hit_ratio"`
	CostUSD      float64   `json:"cost_usd"`
	ElapsedS     float64   `json:"elapsed_s,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RunSummary aggregates the recorded stages of one pipeline run.
type RunSummary struct {
	RunID        string    `json:"run_id"`
	StartedAt    time.Time `json:"started_at"`
	LastEvent    time.Time `json:"last_event"`
	StageCount   int       `json:"stage_count"`
	TotalTokens  int64     `json:"total_tokens"`
	TotalCostUSD float64   `json:"total_cost_usd"`
}

// StageRollup aggregates recorded usage grouped by stage and tier.
type StageRollup struct {
	Stage        string  `json:"stage"`
	Tier         string  `json:"tier,omitempty"`
	RecordCount  int     `json:"record_count"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	TotalTokens  int64   `json:"total_tokens"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}
