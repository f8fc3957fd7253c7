package telemetry

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pipecost/pipecost/pkg/ledger"
	"github.com/pipecost/pipecost/pkg/models"
	"github.com/pipecost/pipecost/pkg/pricing"
)

func newTestIngestor(t *testing.T) (*Ingestor, *ledger.SQLiteLedger) {
	t.Helper()
	l, err := ledger.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return NewIngestor(l, pricing.Default(), pricing.TierSonnet, zerolog.Nop()), l
}

func TestIngestStream(t *testing.T) {
	ing, led := newTestIngestor(t)
	ctx := context.Background()

	events := strings.Join([]string{
		`{"pipeline_run_id":"run-1","stage":"embedding","event":"start"}`,
		`{"pipeline_run_id":"run-1","stage":"embedding","event":"complete","elapsed_s":12.5,"input_tokens":2000000,"cache_hit_ratio":0.4}`,
		`{"pipeline_run_id":"run-1","stage":"generation","event":"complete","elapsed_s":90.1,"input_tokens":1200000,"output_tokens":220000,"cache_hit_ratio":0.25}`,
		``,
		`{"pipeline_run_id":"run-1","stage":"rendering","event":"complete","input_tokens":100}`,
		`not json at all`,
	}, "\n")

	res, err := ing.IngestStream(ctx, strings.NewReader(events))
	if err != nil {
		t.Fatal(err)
	}

	if res.Records != 2 {
		t.Errorf("expected 2 records, got %d", res.Records)
	}
	if res.Skipped != 1 {
		t.Errorf("expected 1 skipped start event, got %d", res.Skipped)
	}
	if res.UnknownStages != 1 {
		t.Errorf("expected 1 unknown stage, got %d", res.UnknownStages)
	}
	if res.Malformed != 1 {
		t.Errorf("expected 1 malformed line, got %d", res.Malformed)
	}

	records, err := led.RunRecords(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", len(records))
	}

	if records[0].Stage != models.StageEmbedding {
		t.Errorf("expected embedding first, got %s", records[0].Stage)
	}
	if math.Abs(records[0].CostUSD-0.024) > 1e-9 {
		t.Errorf("expected embedding cost 0.024, got %v", records[0].CostUSD)
	}
	if math.Abs(records[1].CostUSD-6.00) > 1e-9 {
		t.Errorf("expected generation cost 6.00, got %v", records[1].CostUSD)
	}
	if records[1].ElapsedS != 90.1 {
		t.Errorf("expected elapsed 90.1, got %v", records[1].ElapsedS)
	}
}

func TestIngestEventTierOverride(t *testing.T) {
	ing, led := newTestIngestor(t)
	ctx := context.Background()

	events := `{"pipeline_run_id":"run-2","stage":"generation","event":"complete","tier":"opus","input_tokens":1200000,"output_tokens":220000,"cache_hit_ratio":0.25}`

	res, err := ing.IngestStream(ctx, strings.NewReader(events))
	if err != nil {
		t.Fatal(err)
	}
	if res.Records != 1 {
		t.Fatalf("expected 1 record, got %d", res.Records)
	}

	records, _ := led.RunRecords(ctx, "run-2")
	if records[0].Tier != "opus" {
		t.Errorf("expected opus tier, got %s", records[0].Tier)
	}
	if math.Abs(records[0].CostUSD-30.00) > 1e-9 {
		t.Errorf("expected opus cost 30.00, got %v", records[0].CostUSD)
	}
}

func TestIngestTokenCountFallback(t *testing.T) {
	ing, led := newTestIngestor(t)
	ctx := context.Background()

	// token_count is the documented telemetry field; it bills as input.
	events := `{"pipeline_run_id":"run-3","stage":"verification","event":"complete","token_count":500000}`

	if _, err := ing.IngestStream(ctx, strings.NewReader(events)); err != nil {
		t.Fatal(err)
	}

	records, _ := led.RunRecords(ctx, "run-3")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].InputTokens != 500_000 {
		t.Errorf("expected 500000 input tokens, got %d", records[0].InputTokens)
	}
	if math.Abs(records[0].CostUSD-0.40) > 1e-9 {
		t.Errorf("expected verification cost 0.40, got %v", records[0].CostUSD)
	}
}

func TestIngestGeneratesRunID(t *testing.T) {
	ing, led := newTestIngestor(t)
	ctx := context.Background()

	events := strings.Join([]string{
		`{"stage":"embedding","event":"complete","input_tokens":1000}`,
		`{"stage":"delivery","event":"complete"}`,
	}, "\n")

	res, err := ing.IngestStream(ctx, strings.NewReader(events))
	if err != nil {
		t.Fatal(err)
	}
	if res.Records != 2 {
		t.Fatalf("expected 2 records, got %d", res.Records)
	}

	runs, err := led.ListRuns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected both orphan events under one generated run, got %d runs", len(runs))
	}
	if runs[0].RunID == "" {
		t.Error("expected non-empty generated run id")
	}
}

func TestIngestBadHitRatioSkipped(t *testing.T) {
	ing, _ := newTestIngestor(t)
	ctx := context.Background()

	events := `{"pipeline_run_id":"run-4","stage":"embedding","event":"complete","input_tokens":1000,"cache_hit_ratio":1.5}`

	res, err := ing.IngestStream(ctx, strings.NewReader(events))
	if err != nil {
		t.Fatal(err)
	}
	if res.Records != 0 {
		t.Errorf("expected no records, got %d", res.Records)
	}
	if res.Malformed != 1 {
		t.Errorf("expected 1 malformed, got %d", res.Malformed)
	}
}

func TestIngestClockInjection(t *testing.T) {
	ing, led := newTestIngestor(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ing.now = func() time.Time { return fixed }

	events := `{"pipeline_run_id":"run-5","stage":"delivery","event":"complete"}`
	if _, err := ing.IngestStream(context.Background(), strings.NewReader(events)); err != nil {
		t.Fatal(err)
	}

	records, _ := led.RunRecords(context.Background(), "run-5")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if !records[0].CreatedAt.Equal(fixed) {
		t.Errorf("expected created_at %v, got %v", fixed, records[0].CreatedAt)
	}
}
