package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Contract binds a stage to its schema version, its output JSON schema
// document (handed to generation backends), and a constructor for the
// concrete artifact type.
type Contract struct {
	Stage         StageName
	SchemaVersion string
	OutputSchema  string
	New           func() Artifact
}

// registry is the exhaustive stage table. Adding a stage means adding a
// row here, a validate case in validate.go, and a drift entry in the
// doctrine policy.
var registry = map[StageName]Contract{
	StageQuantSignals: {
		Stage:         StageQuantSignals,
		SchemaVersion: "quant_signals.v1",
		OutputSchema:  quantSignalsSchema,
		New:           func() Artifact { return &QuantSignalsArtifact{} },
	},
	StageOwnerLoad: {
		Stage:         StageOwnerLoad,
		SchemaVersion: "owner_load.v1",
		OutputSchema:  ownerLoadSchema,
		New:           func() Artifact { return &OwnerLoadArtifact{} },
	},
	StageCompetitiveLens: {
		Stage:         StageCompetitiveLens,
		SchemaVersion: "competitive_lens.v1",
		OutputSchema:  competitiveLensSchema,
		New:           func() Artifact { return &CompetitiveLensArtifact{} },
	},
	StageBlueOcean: {
		Stage:         StageBlueOcean,
		SchemaVersion: "blue_ocean.v1",
		OutputSchema:  blueOceanSchema,
		New:           func() Artifact { return &BlueOceanArtifact{} },
	},
	StageSynthesisDecision: {
		Stage:         StageSynthesisDecision,
		SchemaVersion: "synthesis_decision.v1",
		OutputSchema:  synthesisDecisionSchema,
		New:           func() Artifact { return &SynthesisDecisionArtifact{} },
	},
}

// For returns the contract registered for a stage.
func For(stage StageName) (Contract, bool) {
	c, ok := registry[stage]
	return c, ok
}

// DecodeArtifact decodes raw JSON into the closed artifact type for the
// stage. Unknown fields and type mismatches are decode failures; bound
// violations are reported later by ValidateArtifact.
func DecodeArtifact(stage StageName, data []byte) (Artifact, error) {
	c, ok := registry[stage]
	if !ok {
		return nil, fmt.Errorf("no contract registered for stage %q", stage)
	}
	a := c.New()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(a); err != nil {
		return nil, fmt.Errorf("artifact does not match %s: %w", c.SchemaVersion, err)
	}
	return a, nil
}

// EncodeArtifact renders an artifact to canonical JSON for persistence and
// guard evaluation.
func EncodeArtifact(a Artifact) ([]byte, error) {
	return json.Marshal(a)
}
