// Package store persists run artifacts: the exact input shown to each
// stage, the raw artifact each stage produced, and the terminal run
// result. Persistence is an audit trail, not a dependency: the pipeline
// logs store errors and keeps going.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"tradecompass/internal/contracts"
	"tradecompass/internal/doctrine"
)

// ErrNotFound reports a run/stage pair with no persisted record.
var ErrNotFound = errors.New("store: record not found")

// StageRecord is one audit row: the payload a stage was shown or
// produced, the model that handled it, and the gate results that let it
// through. Empty gate slices mean the gates passed.
type StageRecord struct {
	RunID       string                      `json:"run_id"`
	WorkspaceID string                      `json:"workspace_id"`
	Stage       contracts.StageName         `json:"stage_name"`
	ModelID     string                      `json:"model_id"`
	Payload     json.RawMessage             `json:"payload"`
	Validation  []contracts.ValidationError `json:"validation_results"`
	Guard       []doctrine.Failure          `json:"guard_results"`
}

// FailureRecord is the audit row for a run a gate stopped, carrying the
// structured findings alongside the classification.
type FailureRecord struct {
	RunID       string                      `json:"run_id"`
	WorkspaceID string                      `json:"workspace_id"`
	Stage       contracts.StageName         `json:"stage_failed"`
	Code        string                      `json:"reason"`
	Detail      string                      `json:"detail"`
	Validation  []contracts.ValidationError `json:"validation_errors"`
	Guard       []doctrine.Failure          `json:"guard_failures"`
}

// ArtifactStore is the persistence surface the pipeline writes through.
type ArtifactStore interface {
	// PersistStageInput records what a stage was shown, before it runs.
	PersistStageInput(ctx context.Context, rec StageRecord) error

	// PersistStageOutput records the raw validated artifact JSON with
	// its gate results.
	PersistStageOutput(ctx context.Context, rec StageRecord) error

	// PersistPipelineSuccess records a completed run and its decision.
	PersistPipelineSuccess(ctx context.Context, runID, workspaceID string, decision json.RawMessage) error

	// PersistPipelineFailure records where and why a run stopped.
	PersistPipelineFailure(ctx context.Context, rec FailureRecord) error

	// LoadStageOutput returns the persisted output record for a stage,
	// or ErrNotFound.
	LoadStageOutput(ctx context.Context, runID string, stage contracts.StageName) (StageRecord, error)

	// LoadRunFailure returns the persisted failure record for a run, or
	// ErrNotFound when the run completed or was never recorded.
	LoadRunFailure(ctx context.Context, runID string) (FailureRecord, error)

	Close() error
}

type outputKey struct {
	runID string
	stage contracts.StageName
}

type runResult struct {
	status      string
	workspaceID string
	decision    json.RawMessage
	failure     FailureRecord
}

func copyRecord(rec StageRecord) StageRecord {
	cp := rec
	cp.Payload = make(json.RawMessage, len(rec.Payload))
	copy(cp.Payload, rec.Payload)
	cp.Validation = append([]contracts.ValidationError(nil), rec.Validation...)
	cp.Guard = append([]doctrine.Failure(nil), rec.Guard...)
	return cp
}

// MemoryStore keeps everything in maps. It backs tests and the default
// CLI path when no store file is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	inputs  map[outputKey]StageRecord
	outputs map[outputKey]StageRecord
	results map[string]runResult
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		inputs:  make(map[outputKey]StageRecord),
		outputs: make(map[outputKey]StageRecord),
		results: make(map[string]runResult),
	}
}

func (s *MemoryStore) PersistStageInput(_ context.Context, rec StageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs[outputKey{rec.RunID, rec.Stage}] = copyRecord(rec)
	return nil
}

func (s *MemoryStore) PersistStageOutput(_ context.Context, rec StageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs[outputKey{rec.RunID, rec.Stage}] = copyRecord(rec)
	return nil
}

func (s *MemoryStore) PersistPipelineSuccess(_ context.Context, runID, workspaceID string, decision json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(json.RawMessage, len(decision))
	copy(cp, decision)
	s.results[runID] = runResult{status: "completed", workspaceID: workspaceID, decision: cp}
	return nil
}

func (s *MemoryStore) PersistPipelineFailure(_ context.Context, rec FailureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := rec
	cp.Validation = append([]contracts.ValidationError(nil), rec.Validation...)
	cp.Guard = append([]doctrine.Failure(nil), rec.Guard...)
	s.results[rec.RunID] = runResult{status: "failed", workspaceID: rec.WorkspaceID, failure: cp}
	return nil
}

func (s *MemoryStore) LoadStageOutput(_ context.Context, runID string, stage contracts.StageName) (StageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.outputs[outputKey{runID, stage}]
	if !ok {
		return StageRecord{}, fmt.Errorf("%w: run %s stage %s", ErrNotFound, runID, stage)
	}
	return copyRecord(rec), nil
}

func (s *MemoryStore) LoadRunFailure(_ context.Context, runID string) (FailureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[runID]
	if !ok || res.status != "failed" {
		return FailureRecord{}, fmt.Errorf("%w: no failure for run %s", ErrNotFound, runID)
	}
	return res.failure, nil
}

// InputRecord returns the persisted input row for a stage, if any.
func (s *MemoryStore) InputRecord(runID string, stage contracts.StageName) (StageRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.inputs[outputKey{runID, stage}]
	if !ok {
		return StageRecord{}, false
	}
	return copyRecord(rec), true
}

func (s *MemoryStore) Close() error { return nil }
