package contracts

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLimits() DataLimits {
	return DataLimits{WindowMode: "last_90_days", WindowDays: 90, HasQuotes: true, HasInvoices: true}
}

func testEnvelope(stage StageName, version string) Envelope {
	return Envelope{
		SchemaVersion: version,
		StageName:     stage,
		ModelID:       "rules/v1",
		PromptVersion: "p1",
		Confidence:    ConfidenceMedium,
		EvidenceRefs:  []string{"bucket:revenue_concentration:high"},
		DataLimits:    testLimits(),
	}
}

func TestStageOrder(t *testing.T) {
	stages := Stages()
	require.Len(t, stages, 5)
	assert.Equal(t, StageQuantSignals, stages[0])
	assert.Equal(t, StageSynthesisDecision, stages[4])
	for i, s := range stages {
		assert.Equal(t, i, s.Index())
	}
	assert.Equal(t, -1, StageName("intent_mapping").Index())
	assert.True(t, StageSynthesisDecision.Final())
	assert.False(t, StageBlueOcean.Final())
}

func TestRegistry_CoversEveryStage(t *testing.T) {
	for _, stage := range Stages() {
		c, ok := For(stage)
		require.True(t, ok, "stage %s has no contract", stage)
		assert.Equal(t, stage, c.Stage)
		assert.True(t, strings.HasPrefix(c.SchemaVersion, string(stage)+"."), "version %q", c.SchemaVersion)

		var doc map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(c.OutputSchema), &doc), "schema for %s is not valid JSON", stage)
		assert.Equal(t, "object", doc["type"])
	}
}

func TestDecodeArtifact_RejectsUnknownFields(t *testing.T) {
	blob := `{"schema_version":"blue_ocean.v1","stage_name":"blue_ocean","model_id":"rules/v1",
		"prompt_version":"p1","confidence":"low","evidence_refs":["bucket:seasonality:strong"],
		"data_limits":{"window_mode":"last_90_days","window_days":90,"has_quotes":true,
		"has_invoices":false,"has_jobs":false,"has_customers":false},
		"moves":[],"growth_hacks":["spam"]}`

	_, err := DecodeArtifact(StageBlueOcean, []byte(blob))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blue_ocean.v1")
}

func TestValidateArtifact_Envelope(t *testing.T) {
	a := &QuantSignalsArtifact{
		Envelope: testEnvelope(StageQuantSignals, "quant_signals.v1"),
		Window:   "last_90_days (90 days)",
		Signals: []Signal{
			{ID: "revenue_concentration", Label: "Revenue concentration", Value: "high", Confidence: "low", Evidence: "bucket:revenue_concentration:high"},
			{ID: "weekly_volatility", Label: "Weekly volatility", Value: "unknown", Confidence: "low", Evidence: "bucket:weekly_volatility:unknown"},
			{ID: "seasonality", Label: "Seasonality", Value: "none", Confidence: "low", Evidence: "bucket:seasonality:none"},
		},
	}
	assert.Empty(t, ValidateArtifact(a))

	t.Run("wrong schema version", func(t *testing.T) {
		bad := *a
		bad.SchemaVersion = "quant_signals.v2"
		errs := ValidateArtifact(&bad)
		require.Len(t, errs, 1)
		assert.Equal(t, "version_mismatch", errs[0].Rule)
	})

	t.Run("duplicate evidence ref", func(t *testing.T) {
		bad := *a
		bad.EvidenceRefs = []string{"bucket:seasonality:none", "bucket:seasonality:none"}
		errs := ValidateArtifact(&bad)
		require.Len(t, errs, 1)
		assert.Equal(t, "unique", errs[0].Rule)
	})

	t.Run("malformed evidence ref", func(t *testing.T) {
		bad := *a
		bad.EvidenceRefs = []string{"raw:Q-1042 approved $2,600"}
		errs := ValidateArtifact(&bad)
		require.Len(t, errs, 1)
		assert.Equal(t, "pattern", errs[0].Rule)
	})

	t.Run("signal count out of bounds", func(t *testing.T) {
		bad := *a
		bad.Signals = a.Signals[:2]
		errs := ValidateArtifact(&bad)
		require.Len(t, errs, 1)
		assert.Equal(t, "min_items", errs[0].Rule)
	})
}

func TestValidateArtifact_SynthesisPathKeys(t *testing.T) {
	base := func() *SynthesisDecisionArtifact {
		return &SynthesisDecisionArtifact{
			Envelope: testEnvelope(StageSynthesisDecision, "synthesis_decision.v1"),
			Paths: map[string]Path{
				"A": {Title: "Hold the line", Thesis: "t", Tradeoff: "x"},
				"B": {Title: "Tighten the funnel", Thesis: "t", Tradeoff: "x"},
				"C": {Title: "Shift the mix", Thesis: "t", Tradeoff: "x"},
			},
			RecommendedPath: "B",
			First30Days:     []string{"a", "b", "c", "d", "e"},
			LanguageCheck:   LanguageCheck{Passed: true},
		}
	}

	assert.Empty(t, ValidateArtifact(base()))

	t.Run("extra path key", func(t *testing.T) {
		a := base()
		a.Paths["D"] = Path{Title: "x", Thesis: "y", Tradeoff: "z"}
		errs := ValidateArtifact(a)
		require.Len(t, errs, 1)
		assert.Equal(t, "path_keys", errs[0].Rule)
	})

	t.Run("recommendation outside paths", func(t *testing.T) {
		a := base()
		a.RecommendedPath = "D"
		errs := ValidateArtifact(a)
		require.Len(t, errs, 1)
		assert.Equal(t, "enum", errs[0].Rule)
	})

	t.Run("action list too long", func(t *testing.T) {
		a := base()
		a.First30Days = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}
		errs := ValidateArtifact(a)
		require.Len(t, errs, 1)
		assert.Equal(t, "max_items", errs[0].Rule)
	})
}

func TestValidateStageInput(t *testing.T) {
	valid := func() *StageInput {
		return &StageInput{
			SchemaVersion: StageInputSchemaVersion,
			StageName:     StageOwnerLoad,
			RunID:         "run-1",
			WorkspaceID:   "ws-1",
			Industry:      "plumbing",
			DataLimits:    testLimits(),
			EvidenceIndex: []string{"bucket:decision_latency:medium"},
			Context:       map[string]string{"quant_summary": "latency medium, volatility unknown"},
		}
	}

	assert.Empty(t, ValidateStageInput(valid()))

	t.Run("free-text industry rejected", func(t *testing.T) {
		in := valid()
		in.Industry = "Plumbing & Drains LLC"
		errs := ValidateStageInput(in)
		require.Len(t, errs, 1)
		assert.Equal(t, "enum", errs[0].Rule)
	})

	t.Run("context over cap", func(t *testing.T) {
		in := valid()
		in.Context["quant_summary"] = strings.Repeat("x", MaxContextChars+1)
		errs := ValidateStageInput(in)
		require.Len(t, errs, 1)
		assert.Equal(t, "max_length", errs[0].Rule)
	})

	t.Run("evidence index over cap", func(t *testing.T) {
		in := valid()
		in.EvidenceIndex = nil
		for i := 0; i < MaxEvidenceRefs+1; i++ {
			in.EvidenceIndex = append(in.EvidenceIndex, "bucket:sig:v"+string(rune('a'+i%26))+string(rune('a'+i/26)))
		}
		errs := ValidateStageInput(in)
		require.NotEmpty(t, errs)
		assert.Equal(t, "max_items", errs[0].Rule)
	})
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	a := &OwnerLoadArtifact{
		Envelope:         testEnvelope(StageOwnerLoad, "owner_load.v1"),
		LoadPicture:      "Owner quotes, schedules and invoices personally; approvals queue up midweek.",
		PressurePoints:   []string{"quote approvals wait on the owner"},
		ReliefCandidates: []string{"batch approvals twice a day"},
	}
	data, err := EncodeArtifact(a)
	require.NoError(t, err)

	back, err := DecodeArtifact(StageOwnerLoad, data)
	require.NoError(t, err)
	assert.Empty(t, ValidateArtifact(back))
	assert.Equal(t, a, back)
}
