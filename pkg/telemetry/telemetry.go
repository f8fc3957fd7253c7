// Package telemetry folds the pipeline's JSONL stage events into the ledger.
package telemetry

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pipecost/pipecost/pkg/ledger"
	"github.com/pipecost/pipecost/pkg/models"
	"github.com/pipecost/pipecost/pkg/pricing"
)

// StageEvent is one line of pipeline telemetry. Stages emit a start event
// and a complete event carrying elapsed time and token counters.
type StageEvent struct {
	PipelineRunID string  `json:"pipeline_run_id"`
	Stage         string  `json:"stage"`
	Event         string  `json:"event"`
	ElapsedS      float64 `json:"elapsed_s,omitempty"`
	Tier          string  `json:"tier,omitempty"`
	TokenCount    int64   `json:"token_count,omitempty"`
	InputTokens   int64   `json:"input_tokens,omitempty"`
	OutputTokens  int64   `json:"output_tokens,omitempty"`
	CacheHitRatio float64 `json:"cache_hit_ratio,omitempty"`
}

// EventComplete marks the end of a stage; only complete events are billed.
const EventComplete = "complete"

// Result summarizes one ingest pass.
type Result struct {
	Records       int `json:"records"`
	Skipped       int `json:"skipped"`
	UnknownStages int `json:"unknown_stages"`
	Malformed     int `json:"malformed"`
}

// Ingestor prices stage events and records them in the ledger.
type Ingestor struct {
	ledger      ledger.Ledger
	rates       pricing.RateCard
	defaultTier pricing.Tier
	log         zerolog.Logger
	now         func() time.Time
}

// NewIngestor creates an Ingestor. Events without a tier bill at defaultTier.
func NewIngestor(l ledger.Ledger, rates pricing.RateCard, defaultTier pricing.Tier, log zerolog.Logger) *Ingestor {
	return &Ingestor{
		ledger:      l,
		rates:       rates,
		defaultTier: defaultTier,
		log:         log,
		now:         time.Now,
	}
}

// IngestStream reads JSONL stage events from r and records a priced usage
// row for every complete event on a known stage. Malformed lines, non-complete
// events, and unknown stages are counted and skipped, never fatal; only a
// read or ledger failure aborts the pass.
func (i *Ingestor) IngestStream(ctx context.Context, r io.Reader) (Result, error) {
	var res Result

	// Lines missing a run id are grouped under one generated id per pass.
	fallbackRunID := ""

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var ev StageEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			res.Malformed++
			i.log.Warn().Err(err).Msg("skipping malformed event line")
			continue
		}

		if ev.Event != EventComplete {
			res.Skipped++
			continue
		}
		if !models.KnownStage(ev.Stage) {
			res.UnknownStages++
			i.log.Warn().Str("stage", ev.Stage).Msg("skipping unknown stage")
			continue
		}

		runID := ev.PipelineRunID
		if runID == "" {
			if fallbackRunID == "" {
				fallbackRunID = uuid.NewString()
			}
			runID = fallbackRunID
		}

		rec, err := i.price(ev, runID)
		if err != nil {
			res.Malformed++
			i.log.Warn().Err(err).Str("stage", ev.Stage).Msg("skipping unpriceable event")
			continue
		}

		if err := i.ledger.Record(ctx, rec); err != nil {
			return res, fmt.Errorf("record stage event: %w", err)
		}
		res.Records++
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("read events: %w", err)
	}
	return res, nil
}

func (i *Ingestor) price(ev StageEvent, runID string) (models.UsageRecord, error) {
	tier := i.defaultTier
	if ev.Tier != "" {
		tier = pricing.Tier(ev.Tier)
		if !tier.Valid() {
			return models.UsageRecord{}, fmt.Errorf("unknown tier %q", ev.Tier)
		}
	}

	input := ev.InputTokens
	if input == 0 && ev.TokenCount > 0 {
		input = ev.TokenCount
	}

	rates, _ := i.rates.ForStage(ev.Stage)
	cost, err := pricing.StageCost(ev.Stage, tier, rates,
		float64(input), ev.CacheHitRatio,
		float64(ev.OutputTokens), 0)
	if err != nil {
		return models.UsageRecord{}, err
	}

	return models.UsageRecord{
		RunID:        runID,
		Stage:        ev.Stage,
		Tier:         string(tier),
		InputTokens:  input,
		OutputTokens: ev.OutputTokens,
		HitRatio:     ev.CacheHitRatio,
		CostUSD:      cost,
		ElapsedS:     ev.ElapsedS,
		CreatedAt:    i.now().UTC(),
	}, nil
}
