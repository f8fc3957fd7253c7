package pricing

import (
	"math"
	"testing"

	"github.com/pipecost/pipecost/pkg/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBillableTokensNoDiscount(t *testing.T) {
	got, err := BillableTokens(2_000_000, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != 2_000_000 {
		t.Errorf("expected 2000000 billable at hit ratio 0, got %v", got)
	}
}

func TestBillableTokensMonotonicInHitRatio(t *testing.T) {
	prev := math.Inf(1)
	for _, h := range []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1} {
		got, err := BillableTokens(1_000_000, h)
		if err != nil {
			t.Fatal(err)
		}
		if got > prev {
			t.Errorf("billable increased at hit ratio %v: %v > %v", h, got, prev)
		}
		prev = got
	}
	if prev != 0 {
		t.Errorf("expected 0 billable at hit ratio 1, got %v", prev)
	}
}

func TestBillableTokensValidation(t *testing.T) {
	if _, err := BillableTokens(-1, 0); err == nil {
		t.Error("expected error for negative raw tokens")
	}
	if _, err := BillableTokens(100, -0.1); err == nil {
		t.Error("expected error for hit ratio < 0")
	}
	if _, err := BillableTokens(100, 1.1); err == nil {
		t.Error("expected error for hit ratio > 1")
	}
}

func TestEmbeddingWorkedExample(t *testing.T) {
	// 2M raw tokens at 40% cache hit -> 1.2M billable at $0.02/M = $0.024.
	billable, err := BillableTokens(2_000_000, 0.40)
	if err != nil {
		t.Fatal(err)
	}
	cost := TokenCost(billable, Default().Embedding.InputPerMillion)
	if !almostEqual(cost, 0.024) {
		t.Errorf("expected embedding cost 0.024, got %v", cost)
	}
}

func TestGenerationWorkedExample(t *testing.T) {
	// 1.2M input at 25% hit plus 220K output -> $6.00 on Sonnet.
	cost, err := StageCost(models.StageGeneration, TierSonnet, Default().Generation,
		1_200_000, 0.25, 220_000, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(cost, 6.00) {
		t.Errorf("expected generation cost 6.00, got %v", cost)
	}
}

func TestOpusIsFiveTimesSonnet(t *testing.T) {
	sonnet, err := StageCost(models.StageGeneration, TierSonnet, Default().Generation,
		1_200_000, 0.25, 220_000, 0)
	if err != nil {
		t.Fatal(err)
	}
	opus, err := StageCost(models.StageGeneration, TierOpus, Default().Generation,
		1_200_000, 0.25, 220_000, 0)
	if err != nil {
		t.Fatal(err)
	}
	if opus != sonnet*5.0 {
		t.Errorf("expected opus = sonnet * 5.0 exactly, got %v vs %v", opus, sonnet*5.0)
	}
}

func TestTierMultiplierOnlyAppliesToGeneration(t *testing.T) {
	rates := StageRates{InputPerMillion: 0.02}
	sonnet, err := StageCost(models.StageEmbedding, TierSonnet, rates, 1_000_000, 0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	opus, err := StageCost(models.StageEmbedding, TierOpus, rates, 1_000_000, 0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if sonnet != opus {
		t.Errorf("embedding cost should not depend on tier: %v vs %v", sonnet, opus)
	}
}

func TestForStage(t *testing.T) {
	card := Default()
	for _, stage := range models.Stages() {
		if _, ok := card.ForStage(stage); !ok {
			t.Errorf("no rates for stage %s", stage)
		}
	}
	if _, ok := card.ForStage("rendering"); ok {
		t.Error("expected no rates for unknown stage")
	}
}

func TestZeroRatedStages(t *testing.T) {
	card := Default()
	for _, stage := range []string{models.StageIngestion, models.StageDelivery} {
		rates, _ := card.ForStage(stage)
		cost, err := StageCost(stage, TierSonnet, rates, 5_000_000, 0, 0, 0)
		if err != nil {
			t.Fatal(err)
		}
		if cost != 0 {
			t.Errorf("expected zero cost for %s, got %v", stage, cost)
		}
	}
}
