package stages

import (
	"fmt"

	"tradecompass/internal/contextbuild"
	"tradecompass/internal/contracts"
)

// buildQuantSignals restates the bucketed features as the first-stage
// artifact. The stage adds nothing: buckets in, signals out, one evidence
// token each. No interpretation happens here.
func buildQuantSignals(run contextbuild.Run, in *contracts.StageInput, modelID, promptVersion string) (contracts.Artifact, error) {
	if run.Features == nil {
		return nil, fmt.Errorf("quant builder requires bucketed features")
	}

	signals := make([]contracts.Signal, len(run.Features.Buckets))
	for i, b := range run.Features.Buckets {
		signals[i] = contracts.Signal{
			ID:         b.Signal,
			Label:      b.Label,
			Value:      b.Value,
			Confidence: b.Confidence,
			Evidence:   b.Evidence,
		}
	}

	return &contracts.QuantSignalsArtifact{
		Envelope: newEnvelope(contracts.StageQuantSignals, in, modelID, promptVersion,
			overallConfidence(run.Features.Buckets)),
		Window:  fmt.Sprintf("%s (%d days)", run.Features.Window.Mode, run.Features.Window.Days),
		Signals: signals,
	}, nil
}
