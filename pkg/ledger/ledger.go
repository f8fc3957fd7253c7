// Package ledger stores observed per-stage token usage in SQLite.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pipecost/pipecost/pkg/models"
)

// Ledger records and queries priced stage usage.
type Ledger interface {
	// EnsureRun creates the run row if it does not exist yet.
	EnsureRun(ctx context.Context, runID string, startedAt time.Time) error
	// Record stores a usage record and updates run counters.
	Record(ctx context.Context, rec models.UsageRecord) error
	// RunRecords returns all records for a run in stage execution order.
	RunRecords(ctx context.Context, runID string) ([]models.UsageRecord, error)
	// ListRuns returns run summaries, most recent first.
	ListRuns(ctx context.Context) ([]models.RunSummary, error)
	// StageRollups returns usage grouped by stage and tier since a given time,
	// optionally filtered to one stage.
	StageRollups(ctx context.Context, since time.Time, stage string) ([]models.StageRollup, error)
	// SpendSince returns total recorded USD spend since a given time,
	// optionally filtered to one stage.
	SpendSince(ctx context.Context, since time.Time, stage string) (float64, error)
	// Close releases resources.
	Close() error
}

// SQLiteLedger implements Ledger with a SQLite database.
type SQLiteLedger struct {
	db *sql.DB
}

const createUsageTable = `
CREATE TABLE IF NOT EXISTS usage_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	stage TEXT NOT NULL,
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	hit_ratio REAL NOT NULL DEFAULT 0,
	cost_usd REAL NOT NULL,
	elapsed_s REAL NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_usage_run ON usage_records(run_id);
CREATE INDEX IF NOT EXISTS idx_usage_stage_time ON usage_records(stage, created_at);
`

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at DATETIME NOT NULL,
	last_event DATETIME NOT NULL,
	stage_count INTEGER NOT NULL DEFAULT 0,
	total_tokens INTEGER NOT NULL DEFAULT 0,
	total_cost_usd REAL NOT NULL DEFAULT 0
);
`

// Open creates a SQLiteLedger and runs auto-migration.
func Open(dbPath string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}

	if _, err := db.Exec(createUsageTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate usage table: %w", err)
	}

	if _, err := db.Exec(createRunsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate runs table: %w", err)
	}

	// Add tier column to usage_records if missing.
	if !columnExists(db, "usage_records", "tier") {
		if _, err := db.Exec(`ALTER TABLE usage_records ADD COLUMN tier TEXT NOT NULL DEFAULT ''`); err != nil {
			db.Close()
			return nil, fmt.Errorf("add tier column: %w", err)
		}
	}

	return &SQLiteLedger{db: db}, nil
}

func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false
		}
		if name == column {
			return true
		}
	}
	return false
}

// EnsureRun creates the run row if it does not exist yet.
func (l *SQLiteLedger) EnsureRun(ctx context.Context, runID string, startedAt time.Time) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, last_event) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		runID, startedAt.UTC(), startedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("ensure run: %w", err)
	}
	return nil
}

// Record stores a usage record and updates run counters.
func (l *SQLiteLedger) Record(ctx context.Context, rec models.UsageRecord) error {
	if err := l.EnsureRun(ctx, rec.RunID, rec.CreatedAt); err != nil {
		return err
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO usage_records (run_id, stage, tier, input_tokens, output_tokens, hit_ratio, cost_usd, elapsed_s, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Stage, rec.Tier, rec.InputTokens, rec.OutputTokens, rec.HitRatio, rec.CostUSD, rec.ElapsedS, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}

	_, err = l.db.ExecContext(ctx,
		`UPDATE runs
		 SET last_event = ?,
		     stage_count = stage_count + 1,
		     total_tokens = total_tokens + ?,
		     total_cost_usd = total_cost_usd + ?
		 WHERE id = ?`,
		rec.CreatedAt, rec.InputTokens+rec.OutputTokens, rec.CostUSD, rec.RunID,
	)
	if err != nil {
		return fmt.Errorf("update run counters: %w", err)
	}
	return nil
}

// RunRecords returns all records for a run in recording order.
func (l *SQLiteLedger) RunRecords(ctx context.Context, runID string) ([]models.UsageRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, run_id, stage, tier, input_tokens, output_tokens, hit_ratio, cost_usd, elapsed_s, created_at
		 FROM usage_records WHERE run_id = ? ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("run records: %w", err)
	}
	defer rows.Close()

	var records []models.UsageRecord
	for rows.Next() {
		var r models.UsageRecord
		if err := rows.Scan(&r.ID, &r.RunID, &r.Stage, &r.Tier, &r.InputTokens, &r.OutputTokens, &r.HitRatio, &r.CostUSD, &r.ElapsedS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ListRuns returns run summaries, most recent first.
func (l *SQLiteLedger) ListRuns(ctx context.Context) ([]models.RunSummary, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, started_at, last_event, stage_count, total_tokens, total_cost_usd
		 FROM runs ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.RunSummary
	for rows.Next() {
		var r models.RunSummary
		if err := rows.Scan(&r.RunID, &r.StartedAt, &r.LastEvent, &r.StageCount, &r.TotalTokens, &r.TotalCostUSD); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// StageRollups returns usage grouped by stage and tier since a given time.
func (l *SQLiteLedger) StageRollups(ctx context.Context, since time.Time, stage string) ([]models.StageRollup, error) {
	query := `SELECT stage, tier, COUNT(*), SUM(input_tokens), SUM(output_tokens), SUM(cost_usd)
		 FROM usage_records WHERE created_at >= ?`
	args := []any{since}
	if stage != "" {
		query += ` AND stage = ?`
		args = append(args, stage)
	}
	query += ` GROUP BY stage, tier ORDER BY stage, tier`

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("stage rollups: %w", err)
	}
	defer rows.Close()

	var rollups []models.StageRollup
	for rows.Next() {
		var r models.StageRollup
		if err := rows.Scan(&r.Stage, &r.Tier, &r.RecordCount, &r.InputTokens, &r.OutputTokens, &r.TotalCostUSD); err != nil {
			return nil, fmt.Errorf("scan rollup: %w", err)
		}
		r.TotalTokens = r.InputTokens + r.OutputTokens
		rollups = append(rollups, r)
	}
	return rollups, rows.Err()
}

// SpendSince returns total recorded USD spend since a given time.
func (l *SQLiteLedger) SpendSince(ctx context.Context, since time.Time, stage string) (float64, error) {
	query := `SELECT COALESCE(SUM(cost_usd), 0) FROM usage_records WHERE created_at >= ?`
	args := []any{since}
	if stage != "" {
		query += ` AND stage = ?`
		args = append(args, stage)
	}

	var total float64
	if err := l.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("spend since: %w", err)
	}
	return total, nil
}

// Close releases the database connection.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
