// Package estimate evaluates run scenarios into cost_estimate_json documents.
package estimate

import (
	"fmt"

	"github.com/pipecost/pipecost/pkg/models"
	"github.com/pipecost/pipecost/pkg/pricing"
)

// StageInput describes the projected token usage of one stage. Token counts
// are raw (pre-discount); hit ratios are the expected cache hit fractions.
type StageInput struct {
	InputTokens    int64   `json:"input_tokens" yaml:"input_tokens"`
	InputHitRatio  float64 `json:"input_hit_ratio" yaml:"input_hit_ratio"`
	OutputTokens   int64   `json:"output_tokens" yaml:"output_tokens"`
	OutputHitRatio float64 `json:"output_hit_ratio" yaml:"output_hit_ratio"`
}

// Scenario is a full run projection across all five stages.
type Scenario struct {
	Tier         pricing.Tier `json:"tier" yaml:"tier"`
	RunsPerMonth int          `json:"runs_per_month" yaml:"runs_per_month"`
	Ingestion    StageInput   `json:"ingestion" yaml:"ingestion"`
	Embedding    StageInput   `json:"embedding" yaml:"embedding"`
	Generation   StageInput   `json:"generation" yaml:"generation"`
	Verification StageInput   `json:"verification" yaml:"verification"`
	Delivery     StageInput   `json:"delivery" yaml:"delivery"`
}

// ByStage returns the input for a stage name.
func (s Scenario) ByStage(name string) (StageInput, bool) {
	switch name {
	case models.StageIngestion:
		return s.Ingestion, true
	case models.StageEmbedding:
		return s.Embedding, true
	case models.StageGeneration:
		return s.Generation, true
	case models.StageVerification:
		return s.Verification, true
	case models.StageDelivery:
		return s.Delivery, true
	}
	return StageInput{}, false
}

// Estimator prices scenarios against a rate card.
type Estimator struct {
	rates pricing.RateCard
}

// New creates an Estimator.
func New(rates pricing.RateCard) *Estimator {
	return &Estimator{rates: rates}
}

// Estimate evaluates a scenario into a cost estimate document. Stage token
// counts report raw tokens; costs are computed on billable tokens.
func (e *Estimator) Estimate(s Scenario) (models.CostEstimate, error) {
	tier := s.Tier
	if tier == "" {
		tier = pricing.TierSonnet
	}
	if !tier.Valid() {
		return models.CostEstimate{}, fmt.Errorf("unknown tier %q", s.Tier)
	}

	var est models.CostEstimate
	for _, stage := range models.Stages() {
		input, _ := s.ByStage(stage)
		rates, _ := e.rates.ForStage(stage)

		cost, err := pricing.StageCost(stage, tier, rates,
			float64(input.InputTokens), input.InputHitRatio,
			float64(input.OutputTokens), input.OutputHitRatio)
		if err != nil {
			return models.CostEstimate{}, err
		}

		sc := models.StageCost{
			TokenCount:       input.InputTokens + input.OutputTokens,
			EstimatedCostUSD: cost,
		}
		switch stage {
		case models.StageIngestion:
			est.Stages.Ingestion = sc
		case models.StageEmbedding:
			est.Stages.Embedding = sc
		case models.StageGeneration:
			est.Stages.Generation = sc
		case models.StageVerification:
			est.Stages.Verification = sc
		case models.StageDelivery:
			est.Stages.Delivery = sc
		}
		est.TotalTokenCount += sc.TokenCount
		est.TotalEstimatedCostUSD += sc.EstimatedCostUSD
	}
	return est, nil
}

// MonthlyCost projects a run cost over an integer number of runs per month.
func MonthlyCost(runCost float64, runsPerMonth int) (float64, error) {
	if runsPerMonth < 0 {
		return 0, fmt.Errorf("runs per month must be >= 0, got %d", runsPerMonth)
	}
	return float64(runsPerMonth) * runCost, nil
}
