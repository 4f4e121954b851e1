package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"tradecompass/internal/contracts"
	"tradecompass/internal/logging"
)

// SQLiteStore is the durable ArtifactStore. One connection, WAL mode,
// write serialization through a mutex on top of the single-conn pool.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewSQLiteStore opens (or creates) the database file and ensures the
// schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	log := logging.Get(logging.CategoryStore)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		log.Debugw("failed to set busy_timeout", "error", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		log.Debugw("failed to set journal_mode=WAL", "error", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		log.Debugw("failed to set synchronous=NORMAL", "error", err)
	}

	s := &SQLiteStore{db: db, dbPath: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	log.Debugw("artifact store opened", "path", path)
	return s, nil
}

func (s *SQLiteStore) ensureSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS stage_inputs (
			run_id       TEXT NOT NULL,
			workspace_id TEXT,
			stage        TEXT NOT NULL,
			model_id     TEXT,
			payload      TEXT NOT NULL,
			validation   TEXT NOT NULL DEFAULT '[]',
			guard        TEXT NOT NULL DEFAULT '[]',
			created_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (run_id, stage)
		)`,
		`CREATE TABLE IF NOT EXISTS stage_outputs (
			run_id       TEXT NOT NULL,
			workspace_id TEXT,
			stage        TEXT NOT NULL,
			model_id     TEXT,
			payload      TEXT NOT NULL,
			validation   TEXT NOT NULL DEFAULT '[]',
			guard        TEXT NOT NULL DEFAULT '[]',
			created_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (run_id, stage)
		)`,
		`CREATE TABLE IF NOT EXISTS run_results (
			run_id       TEXT PRIMARY KEY,
			workspace_id TEXT,
			status       TEXT NOT NULL,
			failed_stage TEXT,
			failure_code TEXT,
			detail       TEXT,
			validation   TEXT NOT NULL DEFAULT '[]',
			guard        TEXT NOT NULL DEFAULT '[]',
			decision     TEXT,
			finished_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stage_outputs_run ON stage_outputs(run_id)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to ensure store schema: %w", err)
		}
	}
	return nil
}

// gateJSON serializes gate results for a TEXT column. Nil slices become
// an empty JSON array so the column reads back uniformly.
func gateJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode gate results: %w", err)
	}
	if string(data) == "null" {
		return "[]", nil
	}
	return string(data), nil
}

func (s *SQLiteStore) persistStageRecord(ctx context.Context, table string, rec StageRecord) error {
	validation, err := gateJSON(rec.Validation)
	if err != nil {
		return err
	}
	guard, err := gateJSON(rec.Guard)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO `+table+` (run_id, workspace_id, stage, model_id, payload, validation, guard)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.WorkspaceID, string(rec.Stage), rec.ModelID, string(rec.Payload), validation, guard)
	if err != nil {
		return fmt.Errorf("failed to persist %s row: %w", table, err)
	}
	return nil
}

func (s *SQLiteStore) PersistStageInput(ctx context.Context, rec StageRecord) error {
	return s.persistStageRecord(ctx, "stage_inputs", rec)
}

func (s *SQLiteStore) PersistStageOutput(ctx context.Context, rec StageRecord) error {
	return s.persistStageRecord(ctx, "stage_outputs", rec)
}

func (s *SQLiteStore) PersistPipelineSuccess(ctx context.Context, runID, workspaceID string, decision json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO run_results (run_id, workspace_id, status, decision) VALUES (?, ?, 'completed', ?)`,
		runID, workspaceID, string(decision))
	if err != nil {
		return fmt.Errorf("failed to persist run result: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PersistPipelineFailure(ctx context.Context, rec FailureRecord) error {
	validation, err := gateJSON(rec.Validation)
	if err != nil {
		return err
	}
	guard, err := gateJSON(rec.Guard)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO run_results (run_id, workspace_id, status, failed_stage, failure_code, detail, validation, guard)
		 VALUES (?, ?, 'failed', ?, ?, ?, ?, ?)`,
		rec.RunID, rec.WorkspaceID, string(rec.Stage), rec.Code, rec.Detail, validation, guard)
	if err != nil {
		return fmt.Errorf("failed to persist run failure: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadStageOutput(ctx context.Context, runID string, stage contracts.StageName) (StageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		rec        = StageRecord{RunID: runID, Stage: stage}
		payload    string
		validation string
		guard      string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT workspace_id, model_id, payload, validation, guard FROM stage_outputs WHERE run_id = ? AND stage = ?`,
		runID, string(stage)).Scan(&rec.WorkspaceID, &rec.ModelID, &payload, &validation, &guard)
	if errors.Is(err, sql.ErrNoRows) {
		return StageRecord{}, fmt.Errorf("%w: run %s stage %s", ErrNotFound, runID, stage)
	}
	if err != nil {
		return StageRecord{}, fmt.Errorf("failed to load stage output: %w", err)
	}
	rec.Payload = json.RawMessage(payload)
	if err := json.Unmarshal([]byte(validation), &rec.Validation); err != nil {
		return StageRecord{}, fmt.Errorf("failed to decode validation results: %w", err)
	}
	if err := json.Unmarshal([]byte(guard), &rec.Guard); err != nil {
		return StageRecord{}, fmt.Errorf("failed to decode guard results: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) LoadRunFailure(ctx context.Context, runID string) (FailureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		rec        = FailureRecord{RunID: runID}
		stage      string
		validation string
		guard      string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT workspace_id, failed_stage, failure_code, detail, validation, guard
		 FROM run_results WHERE run_id = ? AND status = 'failed'`,
		runID).Scan(&rec.WorkspaceID, &stage, &rec.Code, &rec.Detail, &validation, &guard)
	if errors.Is(err, sql.ErrNoRows) {
		return FailureRecord{}, fmt.Errorf("%w: no failure for run %s", ErrNotFound, runID)
	}
	if err != nil {
		return FailureRecord{}, fmt.Errorf("failed to load run failure: %w", err)
	}
	rec.Stage = contracts.StageName(stage)
	if err := json.Unmarshal([]byte(validation), &rec.Validation); err != nil {
		return FailureRecord{}, fmt.Errorf("failed to decode validation errors: %w", err)
	}
	if err := json.Unmarshal([]byte(guard), &rec.Guard); err != nil {
		return FailureRecord{}, fmt.Errorf("failed to decode guard failures: %w", err)
	}
	return rec, nil
}

// Close flushes and closes the underlying database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
