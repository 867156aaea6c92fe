package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"canal-optimization-service/internal/domain"
)

// SQLite-backed implementation of the ResultStore port for local runs.
// Run outputs are stored as one row per run with the structured payload
// serialized to JSON; downstream consumers query by run id and time.
type SqliteResultStore struct{ DB *sql.DB }

func NewSqliteResultStore(db *sql.DB) *SqliteResultStore {
	return &SqliteResultStore{DB: db}
}

// InitSchema creates the result tables if they do not exist.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init result schema: DB is nil")
	}

	schema := `
	CREATE TABLE IF NOT EXISTS optimization_results (
		run_id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		efficiency_pc REAL NOT NULL,
		suboptimal INTEGER NOT NULL,
		time_limited INTEGER NOT NULL,
		payload TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS contingency_plans (
		plan_id TEXT PRIMARY KEY,
		segment_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		alternates INTEGER NOT NULL,
		payload TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init result schema: %w", err)
	}
	return nil
}

func (s *SqliteResultStore) SaveResult(ctx context.Context, result *domain.OptimizationResult) error {
	if s.DB == nil {
		return errors.New("sqlite result store: DB is nil")
	}
	if result == nil {
		return errors.New("save result: result is nil")
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("save result %q: marshal: %w", result.RunID, err)
	}

	q := `
	INSERT INTO optimization_results (run_id, started_at, efficiency_pc, suboptimal, time_limited, payload)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (run_id) DO UPDATE
	SET payload = EXCLUDED.payload,
		efficiency_pc = EXCLUDED.efficiency_pc,
		suboptimal = EXCLUDED.suboptimal,
		time_limited = EXCLUDED.time_limited;
	`
	_, err = s.DB.ExecContext(ctx, q,
		result.RunID,
		result.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
		result.EfficiencyPc,
		boolToInt(result.Suboptimal),
		boolToInt(result.TimeLimited),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("save result %q: insert: %w", result.RunID, err)
	}
	return nil
}

func (s *SqliteResultStore) SaveContingencyPlan(ctx context.Context, plan *domain.ContingencyPlan) error {
	if s.DB == nil {
		return errors.New("sqlite result store: DB is nil")
	}
	if plan == nil {
		return errors.New("save contingency plan: plan is nil")
	}

	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("save contingency plan %q: marshal: %w", plan.PlanID, err)
	}

	q := `
	INSERT INTO contingency_plans (plan_id, segment_id, created_at, alternates, payload)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (plan_id) DO UPDATE
	SET payload = EXCLUDED.payload,
		alternates = EXCLUDED.alternates;
	`
	_, err = s.DB.ExecContext(ctx, q,
		plan.PlanID,
		plan.SegmentID,
		plan.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		len(plan.Alternates),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("save contingency plan %q: insert: %w", plan.PlanID, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
