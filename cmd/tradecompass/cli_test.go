package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecompass/internal/contracts"
	"tradecompass/internal/pipeline"
)

const fixturePackJSON = `{
  "business_name": "Mesa Plumbing Co",
  "industry": "plumbing",
  "quotes": [
    {"id": "q-1", "customer_id": "c-1", "created_at": "2025-03-01T12:00:00Z", "approved_at": "2025-03-03T12:00:00Z", "status": "approved", "total": 2600},
    {"id": "q-2", "customer_id": "c-2", "created_at": "2025-03-10T12:00:00Z", "approved_at": "2025-03-12T12:00:00Z", "status": "approved", "total": 2100},
    {"id": "q-3", "customer_id": "c-1", "created_at": "2025-04-01T12:00:00Z", "status": "sent", "total": 800}
  ],
  "invoices": [
    {"id": "i-1", "customer_id": "c-1", "created_at": "2025-03-05T12:00:00Z", "paid_at": "2025-03-20T12:00:00Z", "status": "paid", "total": 2600},
    {"id": "i-2", "customer_id": "c-2", "created_at": "2025-03-14T12:00:00Z", "paid_at": "2025-03-28T12:00:00Z", "status": "paid", "total": 2100}
  ],
  "customers": [
    {"id": "c-1", "created_at": "2024-11-01T00:00:00Z"},
    {"id": "c-2", "created_at": "2025-01-15T00:00:00Z"}
  ]
}`

func writeFixturePack(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pack.json")
	require.NoError(t, os.WriteFile(path, []byte(fixturePackJSON), 0644))
	return path
}

func TestRunOnePack_CompletesWithRuleModels(t *testing.T) {
	orch := pipeline.NewOrchestrator(pipeline.Options{})
	path := writeFixturePack(t)

	result, err := runOnePack(context.Background(), orch, path)
	require.NoError(t, err)
	require.Equal(t, pipeline.StatusCompleted, result.Status)
	require.NotNil(t, result.Decision)

	for _, key := range contracts.PathKeys {
		assert.Contains(t, result.Decision.Paths, key)
	}
	quant := result.Artifacts[contracts.StageQuantSignals].(*contracts.QuantSignalsArtifact)
	assert.GreaterOrEqual(t, len(quant.Signals), 3)
	assert.LessOrEqual(t, len(quant.Signals), 6)
}

func TestRunOnePack_MissingFile(t *testing.T) {
	orch := pipeline.NewOrchestrator(pipeline.Options{})
	_, err := runOnePack(context.Background(), orch, filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestPrintResult_CompletedShowsPathsAndActions(t *testing.T) {
	orch := pipeline.NewOrchestrator(pipeline.Options{})
	result, err := runOnePack(context.Background(), orch, writeFixturePack(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, printResult(cmd, result))
	out := buf.String()
	assert.Contains(t, out, "Path A")
	assert.Contains(t, out, "Path B")
	assert.Contains(t, out, "Path C")
	assert.Contains(t, out, "first 30 days:")
	assert.Contains(t, out, "* Path "+result.Decision.RecommendedPath)
}

func TestPrintResult_FailureIsNonZero(t *testing.T) {
	result := &pipeline.Result{
		RunID:  "run-x",
		Status: pipeline.StatusFailed,
		Failure: &pipeline.StageFailure{
			Stage:  "owner_load",
			Code:   pipeline.FailDoctrineGuard,
			Detail: "forbidden term",
			Action: pipeline.NextAction(pipeline.FailDoctrineGuard),
		},
	}

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	err := printResult(cmd, result)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "owner_load")
	assert.Contains(t, buf.String(), "DOCTRINE_GUARD_FAILED")
}
