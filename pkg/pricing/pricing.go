// Package pricing implements the billing formulas for pipeline runs:
// cache-discounted billable tokens, per-million-token rates, and the
// Sonnet/Opus tier multiplier.
package pricing

import (
	"fmt"

	"github.com/pipecost/pipecost/pkg/models"
)

// Tier selects the generation billing multiplier.
type Tier string

const (
	TierSonnet Tier = "sonnet"
	TierOpus   Tier = "opus"
)

// OpusMultiplier is the generation cost multiplier for the Opus tier
// relative to the Sonnet baseline.
const OpusMultiplier = 5.0

// Multiplier returns the generation cost multiplier for the tier.
// Unknown tiers bill at the Sonnet baseline.
func (t Tier) Multiplier() float64 {
	if t == TierOpus {
		return OpusMultiplier
	}
	return 1.0
}

// Valid reports whether the tier is a recognized billing tier.
func (t Tier) Valid() bool {
	return t == TierSonnet || t == TierOpus
}

// StageRates holds USD-per-million-token rates for one stage.
type StageRates struct {
	InputPerMillion  float64 `json:"input_per_million" yaml:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million" yaml:"output_per_million"`
}

// RateCard maps each pipeline stage to its token rates. Rates are Sonnet
// baseline; the tier multiplier applies to the generation stage only.
type RateCard struct {
	Ingestion    StageRates `json:"ingestion" yaml:"ingestion"`
	Embedding    StageRates `json:"embedding" yaml:"embedding"`
	Generation   StageRates `json:"generation" yaml:"generation"`
	Verification StageRates `json:"verification" yaml:"verification"`
	Delivery     StageRates `json:"delivery" yaml:"delivery"`
}

// Default returns the shipped rate card. Ingestion and delivery consume no
// model tokens and are zero-rated.
func Default() RateCard {
	return RateCard{
		Embedding:    StageRates{InputPerMillion: 0.02},
		Generation:   StageRates{InputPerMillion: 3.00, OutputPerMillion: 15.00},
		Verification: StageRates{InputPerMillion: 0.80},
	}
}

// ForStage returns the rates for a stage name.
func (c RateCard) ForStage(stage string) (StageRates, bool) {
	switch stage {
	case models.StageIngestion:
		return c.Ingestion, true
	case models.StageEmbedding:
		return c.Embedding, true
	case models.StageGeneration:
		return c.Generation, true
	case models.StageVerification:
		return c.Verification, true
	case models.StageDelivery:
		return c.Delivery, true
	}
	return StageRates{}, false
}

// BillableTokens applies the cache-hit discount: raw * (1 - hitRatio).
// Raw must be non-negative and hitRatio must lie in [0, 1].
func BillableTokens(raw, hitRatio float64) (float64, error) {
	if raw < 0 {
		return 0, fmt.Errorf("raw tokens must be >= 0, got %v", raw)
	}
	if hitRatio < 0 || hitRatio > 1 {
		return 0, fmt.Errorf("hit ratio must be in [0,1], got %v", hitRatio)
	}
	return raw * (1 - hitRatio), nil
}

// TokenCost converts billable tokens to USD at a per-million rate.
func TokenCost(billable, ratePerMillion float64) float64 {
	return (billable / 1_000_000) * ratePerMillion
}

// StageCost prices one stage execution: input and output tokens are
// discounted by their hit ratios, priced at the stage rates, and the tier
// multiplier is applied when the stage is generation.
func StageCost(stage string, tier Tier, rates StageRates, inputTokens, inputHitRatio, outputTokens, outputHitRatio float64) (float64, error) {
	billableIn, err := BillableTokens(inputTokens, inputHitRatio)
	if err != nil {
		return 0, fmt.Errorf("stage %s input: %w", stage, err)
	}
	billableOut, err := BillableTokens(outputTokens, outputHitRatio)
	if err != nil {
		return 0, fmt.Errorf("stage %s output: %w", stage, err)
	}

	cost := TokenCost(billableIn, rates.InputPerMillion) + TokenCost(billableOut, rates.OutputPerMillion)
	if stage == models.StageGeneration {
		cost *= tier.Multiplier()
	}
	return cost, nil
}
