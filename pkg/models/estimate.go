package models

// StageCost is the per-stage entry of a cost estimate document.
type StageCost struct {
	TokenCount       int64   `json:"token_count"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// StageCosts holds the per-stage breakdown keyed by fixed stage fields.
type StageCosts struct {
	Ingestion    StageCost `json:"ingestion"`
	Embedding    StageCost `json:"embedding"`
	Generation   StageCost `json:"generation"`
	Verification StageCost `json:"verification"`
	Delivery     StageCost `json:"delivery"`
}

// CostEstimate is the cost_estimate_json document: per-stage token counts and
// USD costs for a single pipeline run, plus rollups.
type CostEstimate struct {
	Stages                StageCosts `json:"stages"`
	TotalTokenCount       int64      `json:"total_token_count"`
	TotalEstimatedCostUSD float64    `json:"total_estimated_cost_usd"`
}

// ByStage returns the entry for a stage name.
func (s StageCosts) ByStage(name string) (StageCost, bool) {
	switch name {
	case StageIngestion:
		return s.Ingestion, true
	case StageEmbedding:
		return s.Embedding, true
	case StageGeneration:
		return s.Generation, true
	case StageVerification:
		return s.Verification, true
	case StageDelivery:
		return s.Delivery, true
	}
	return StageCost{}, false
}
