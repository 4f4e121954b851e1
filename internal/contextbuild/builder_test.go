package contextbuild

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecompass/internal/bucketing"
	"tradecompass/internal/contracts"
)

func testFeatures() *bucketing.Features {
	return &bucketing.Features{
		Window: bucketing.Window{Mode: bucketing.WindowLast90Days, Days: 90},
		DataLimits: contracts.DataLimits{
			WindowMode: "last_90_days", WindowDays: 90, HasQuotes: true, HasInvoices: true,
		},
		Buckets: []bucketing.Bucket{
			{Signal: "revenue_concentration", Label: "Revenue concentration", Value: "high", Confidence: "low", Evidence: "bucket:revenue_concentration:high"},
			{Signal: "decision_latency", Label: "Decision latency", Value: "medium", Confidence: "low", Evidence: "bucket:decision_latency:medium"},
		},
	}
}

func envelope(stage contracts.StageName, version string, refs ...string) contracts.Envelope {
	return contracts.Envelope{
		SchemaVersion: version,
		StageName:     stage,
		ModelID:       "rules/v1",
		PromptVersion: "p1",
		Confidence:    contracts.ConfidenceLow,
		EvidenceRefs:  refs,
		DataLimits:    contracts.DataLimits{WindowMode: "last_90_days", WindowDays: 90, HasQuotes: true, HasInvoices: true},
	}
}

func quantArtifact(refs ...string) *contracts.QuantSignalsArtifact {
	return &contracts.QuantSignalsArtifact{
		Envelope: envelope(contracts.StageQuantSignals, "quant_signals.v1", refs...),
		Window:   "last_90_days (90 days)",
		Signals: []contracts.Signal{
			{ID: "revenue_concentration", Label: "Revenue concentration", Value: "high", Confidence: "low", Evidence: "bucket:revenue_concentration:high"},
			{ID: "decision_latency", Label: "Decision latency", Value: "medium", Confidence: "low", Evidence: "bucket:decision_latency:medium"},
			{ID: "seasonality", Label: "Seasonality", Value: "none", Confidence: "low", Evidence: "bucket:seasonality:none"},
		},
	}
}

func baseRun() Run {
	return Run{
		RunID:       "run-1",
		WorkspaceID: "ws-1",
		Industry:    "plumbing",
		Features:    testFeatures(),
		Artifacts:   make(map[contracts.StageName]contracts.Artifact),
	}
}

func TestBuild_QuantStageUsesBucketEvidence(t *testing.T) {
	run := baseRun()

	built, err := Build(contracts.StageQuantSignals, run)
	require.NoError(t, err)

	in := built.Input
	assert.Equal(t, contracts.StageInputSchemaVersion, in.SchemaVersion)
	assert.Equal(t, []string{"bucket:revenue_concentration:high", "bucket:decision_latency:medium"}, in.EvidenceIndex)
	assert.Contains(t, in.Context["buckets"], "revenue_concentration=high")
	assert.Empty(t, contracts.ValidateStageInput(in))

	assert.Contains(t, built.ExecutorInput, "buckets")
	assert.NotContains(t, built.ExecutorInput, "prior_artifacts")
}

func TestBuild_MissingUpstreamFailsLoudly(t *testing.T) {
	run := baseRun()
	run.Artifacts[contracts.StageQuantSignals] = quantArtifact("bucket:decision_latency:medium")
	// owner_load is absent

	_, err := Build(contracts.StageCompetitiveLens, run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner_load")
	assert.Contains(t, err.Error(), "competitive_lens")
}

func TestBuild_MissingFeaturesFailsLoudly(t *testing.T) {
	run := baseRun()
	run.Features = nil
	_, err := Build(contracts.StageQuantSignals, run)
	require.Error(t, err)
}

func TestBuild_EvidenceIndexDedupedAndCapped(t *testing.T) {
	run := baseRun()
	var refs []string
	for i := 0; i < 40; i++ {
		refs = append(refs, fmt.Sprintf("bucket:sig_%02d:high", i))
	}
	run.Artifacts[contracts.StageQuantSignals] = quantArtifact(refs[:20]...)
	run.Artifacts[contracts.StageOwnerLoad] = &contracts.OwnerLoadArtifact{
		// overlaps the quant refs, then pushes past the cap
		Envelope:         envelope(contracts.StageOwnerLoad, "owner_load.v1", refs[10:]...),
		LoadPicture:      "Owner does everything personally.",
		PressurePoints:   []string{"approvals queue"},
		ReliefCandidates: []string{"batch approvals"},
	}

	built, err := Build(contracts.StageCompetitiveLens, run)
	require.NoError(t, err)

	idx := built.Input.EvidenceIndex
	assert.Len(t, idx, contracts.MaxEvidenceRefs)
	seen := map[string]bool{}
	for _, ref := range idx {
		assert.False(t, seen[ref], "duplicate ref %s", ref)
		seen[ref] = true
	}
	// first-seen order: quant refs lead
	assert.Equal(t, "bucket:sig_00:high", idx[0])
}

func TestBuild_ContextValuesAreClipped(t *testing.T) {
	run := baseRun()
	quant := quantArtifact("bucket:decision_latency:medium")
	run.Artifacts[contracts.StageQuantSignals] = quant
	run.Artifacts[contracts.StageOwnerLoad] = &contracts.OwnerLoadArtifact{
		Envelope:         envelope(contracts.StageOwnerLoad, "owner_load.v1", "bucket:decision_latency:medium"),
		LoadPicture:      strings.Repeat("The owner quotes, schedules and invoices. ", 30),
		PressurePoints:   []string{"approvals queue"},
		ReliefCandidates: []string{"batch approvals"},
	}

	built, err := Build(contracts.StageCompetitiveLens, run)
	require.NoError(t, err)

	summary := built.Input.Context["owner_load_summary"]
	assert.Len(t, summary, contracts.MaxContextChars)
	assert.Empty(t, contracts.ValidateStageInput(built.Input))
}

func TestBuild_DownstreamCarriesQuantDataLimits(t *testing.T) {
	run := baseRun()
	quant := quantArtifact("bucket:decision_latency:medium")
	quant.DataLimits.Notes = []string{"no job records in window; capacity inferred from volume rhythm"}
	run.Artifacts[contracts.StageQuantSignals] = quant

	built, err := Build(contracts.StageOwnerLoad, run)
	require.NoError(t, err)
	assert.Equal(t, quant.DataLimits, built.Input.DataLimits)

	execPriors := built.ExecutorInput["prior_artifacts"].(map[string]interface{})
	assert.Contains(t, execPriors, "quant_signals")
}

func TestBuild_UnknownStageRejected(t *testing.T) {
	_, err := Build(contracts.StageName("coherence"), baseRun())
	require.Error(t, err)
}
