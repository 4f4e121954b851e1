package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecompass/internal/contracts"
	"tradecompass/internal/doctrine"
)

func sampleInput(runID string, stage contracts.StageName) *contracts.StageInput {
	return &contracts.StageInput{
		SchemaVersion: contracts.StageInputSchemaVersion,
		StageName:     stage,
		RunID:         runID,
		WorkspaceID:   "ws-store",
		Industry:      "electrical",
		DataLimits:    contracts.DataLimits{WindowMode: "last_90_days", WindowDays: 90, HasQuotes: true},
		EvidenceIndex: []string{"bucket:decision_latency:low"},
		Context:       map[string]string{"window": "last_90_days (90 days)"},
	}
}

func sampleArtifact(t *testing.T) json.RawMessage {
	t.Helper()
	art := &contracts.QuantSignalsArtifact{
		Envelope: contracts.Envelope{
			SchemaVersion: "quant_signals.v1",
			StageName:     contracts.StageQuantSignals,
			ModelID:       "rules/v1",
			PromptVersion: "p1",
			Confidence:    contracts.ConfidenceLow,
			EvidenceRefs:  []string{"bucket:decision_latency:low"},
			DataLimits:    contracts.DataLimits{WindowMode: "last_90_days", WindowDays: 90},
		},
		Window: "last_90_days (90 days)",
		Signals: []contracts.Signal{
			{ID: "decision_latency", Label: "Decision latency", Value: "low", Confidence: "low", Evidence: "bucket:decision_latency:low"},
			{ID: "seasonality", Label: "Seasonality", Value: "none", Confidence: "low", Evidence: "bucket:seasonality:none"},
			{ID: "open_pipeline", Label: "Open pipeline", Value: "low", Confidence: "low", Evidence: "bucket:open_pipeline:low"},
		},
	}
	data, err := json.Marshal(art)
	require.NoError(t, err)
	return data
}

func sampleInputRecord(t *testing.T, runID string, stage contracts.StageName) StageRecord {
	t.Helper()
	payload, err := json.Marshal(sampleInput(runID, stage))
	require.NoError(t, err)
	return StageRecord{
		RunID:       runID,
		WorkspaceID: "ws-store",
		Stage:       stage,
		ModelID:     "rules/v1",
		Payload:     payload,
	}
}

func sampleOutputRecord(t *testing.T, runID string, stage contracts.StageName) StageRecord {
	t.Helper()
	return StageRecord{
		RunID:       runID,
		WorkspaceID: "ws-store",
		Stage:       stage,
		ModelID:     "rules/v1",
		Payload:     sampleArtifact(t),
	}
}

// exerciseStore runs the shared contract against any implementation.
func exerciseStore(t *testing.T, s ArtifactStore) {
	ctx := context.Background()
	stage := contracts.StageQuantSignals

	require.NoError(t, s.PersistStageInput(ctx, sampleInputRecord(t, "run-a", stage)))
	require.NoError(t, s.PersistStageOutput(ctx, sampleOutputRecord(t, "run-a", stage)))

	t.Run("round trip preserves a decodable artifact", func(t *testing.T) {
		rec, err := s.LoadStageOutput(ctx, "run-a", stage)
		require.NoError(t, err)
		assert.Equal(t, "ws-store", rec.WorkspaceID)
		assert.Equal(t, "rules/v1", rec.ModelID)
		assert.Empty(t, rec.Validation)
		assert.Empty(t, rec.Guard)

		art, err := contracts.DecodeArtifact(stage, rec.Payload)
		require.NoError(t, err)
		assert.Empty(t, contracts.ValidateArtifact(art))

		quant, ok := art.(*contracts.QuantSignalsArtifact)
		require.True(t, ok)
		assert.Equal(t, "last_90_days (90 days)", quant.Window)

		guard := doctrine.NewGuard(doctrine.DefaultPolicy())
		assert.Empty(t, guard.EvaluateArtifact(stage, art))
	})

	t.Run("missing record is ErrNotFound", func(t *testing.T) {
		_, err := s.LoadStageOutput(ctx, "run-a", contracts.StageSynthesisDecision)
		require.ErrorIs(t, err, ErrNotFound)
		_, err = s.LoadStageOutput(ctx, "run-missing", stage)
		require.ErrorIs(t, err, ErrNotFound)
		_, err = s.LoadRunFailure(ctx, "run-missing")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("overwrite keeps the latest payload", func(t *testing.T) {
		rec := sampleOutputRecord(t, "run-a", stage)
		rec.Payload = json.RawMessage(`{"window":"v2"}`)
		require.NoError(t, s.PersistStageOutput(ctx, rec))
		got, err := s.LoadStageOutput(ctx, "run-a", stage)
		require.NoError(t, err)
		assert.JSONEq(t, `{"window":"v2"}`, string(got.Payload))
	})

	t.Run("failure record keeps structured gate findings", func(t *testing.T) {
		require.NoError(t, s.PersistPipelineSuccess(ctx, "run-a", "ws-store", json.RawMessage(`{"recommended_path":"B"}`)))
		require.NoError(t, s.PersistPipelineFailure(ctx, FailureRecord{
			RunID:       "run-b",
			WorkspaceID: "ws-store",
			Stage:       stage,
			Code:        "DOCTRINE_GUARD_FAILED",
			Detail:      "forbidden term",
			Guard: []doctrine.Failure{
				{Code: "forbidden_term", Stage: stage, Path: "window", Term: "guaranteed", Message: "forbidden term \"guaranteed\""},
			},
			Validation: []contracts.ValidationError{
				{Field: "signals", Rule: "min_items", Message: "2 items, need at least 3"},
			},
		}))

		got, err := s.LoadRunFailure(ctx, "run-b")
		require.NoError(t, err)
		assert.Equal(t, stage, got.Stage)
		assert.Equal(t, "DOCTRINE_GUARD_FAILED", got.Code)
		require.Len(t, got.Guard, 1)
		assert.Equal(t, "guaranteed", got.Guard[0].Term)
		require.Len(t, got.Validation, 1)
		assert.Equal(t, "min_items", got.Validation[0].Rule)

		// a completed run has no failure row to load
		_, err = s.LoadRunFailure(ctx, "run-a")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	exerciseStore(t, s)
}

func TestMemoryStore_InputRecordKeepsModelID(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	require.NoError(t, s.PersistStageInput(context.Background(), sampleInputRecord(t, "run-i", contracts.StageOwnerLoad)))

	rec, ok := s.InputRecord("run-i", contracts.StageOwnerLoad)
	require.True(t, ok)
	assert.Equal(t, "rules/v1", rec.ModelID)
	assert.Equal(t, "ws-store", rec.WorkspaceID)

	var in contracts.StageInput
	require.NoError(t, json.Unmarshal(rec.Payload, &in))
	assert.Equal(t, contracts.StageOwnerLoad, in.StageName)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStore_ReopenSeesPersistedRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.PersistStageOutput(ctx, StageRecord{
		RunID:   "run-r",
		Stage:   contracts.StageOwnerLoad,
		ModelID: "gemini/test-model",
		Payload: json.RawMessage(`{"load_picture":"short"}`),
	}))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	rec, err := reopened.LoadStageOutput(ctx, "run-r", contracts.StageOwnerLoad)
	require.NoError(t, err)
	assert.JSONEq(t, `{"load_picture":"short"}`, string(rec.Payload))
	assert.Equal(t, "gemini/test-model", rec.ModelID)
}
