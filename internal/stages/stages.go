// Package stages holds the deterministic rule builders behind the
// "rules/" model namespace. Each builder turns bucketed signals and
// upstream artifacts into a complete stage artifact without any remote
// call. Builders are pure: same run state in, same artifact out.
package stages

import (
	"fmt"

	"tradecompass/internal/bucketing"
	"tradecompass/internal/contextbuild"
	"tradecompass/internal/contracts"
)

// BuildFunc produces the artifact for one stage from run state.
type BuildFunc func(run contextbuild.Run, in *contracts.StageInput, modelID, promptVersion string) (contracts.Artifact, error)

var builders = map[contracts.StageName]BuildFunc{
	contracts.StageQuantSignals:      buildQuantSignals,
	contracts.StageOwnerLoad:         buildOwnerLoad,
	contracts.StageCompetitiveLens:   buildCompetitiveLens,
	contracts.StageBlueOcean:         buildBlueOcean,
	contracts.StageSynthesisDecision: buildSynthesisDecision,
}

// For returns the rule builder for a stage.
func For(stage contracts.StageName) (BuildFunc, error) {
	b, ok := builders[stage]
	if !ok {
		return nil, fmt.Errorf("no rule builder registered for stage %q", stage)
	}
	return b, nil
}

// newEnvelope stamps the common artifact header. Evidence refs come from
// the stage input's evidence index, which is already deduplicated and
// capped.
func newEnvelope(stage contracts.StageName, in *contracts.StageInput, modelID, promptVersion, confidence string) contracts.Envelope {
	c, _ := contracts.For(stage)
	refs := make([]string, len(in.EvidenceIndex))
	copy(refs, in.EvidenceIndex)
	return contracts.Envelope{
		SchemaVersion: c.SchemaVersion,
		StageName:     stage,
		ModelID:       modelID,
		PromptVersion: promptVersion,
		Confidence:    confidence,
		EvidenceRefs:  refs,
		DataLimits:    in.DataLimits,
	}
}

var confidenceRank = map[string]int{
	contracts.ConfidenceLow:    0,
	contracts.ConfidenceMedium: 1,
	contracts.ConfidenceHigh:   2,
}

// overallConfidence is the weakest bucket confidence. A single thin
// signal caps the whole artifact.
func overallConfidence(buckets []bucketing.Bucket) string {
	lowest := contracts.ConfidenceHigh
	for _, b := range buckets {
		if confidenceRank[b.Confidence] < confidenceRank[lowest] {
			lowest = b.Confidence
		}
	}
	if len(buckets) == 0 {
		return contracts.ConfidenceLow
	}
	return lowest
}

// carriedConfidence pulls the quant artifact's confidence forward so
// downstream prose never claims more certainty than the numbers did.
func carriedConfidence(run contextbuild.Run) string {
	if a, ok := run.Artifacts[contracts.StageQuantSignals]; ok {
		return a.Env().Confidence
	}
	return contracts.ConfidenceLow
}

// bucketValue reads one bucketed signal value from run state.
func bucketValue(run contextbuild.Run, signalID string) string {
	if run.Features == nil {
		return bucketing.ValueUnknown
	}
	for _, b := range run.Features.Buckets {
		if b.Signal == signalID {
			return b.Value
		}
	}
	return bucketing.ValueUnknown
}

// tradeNoun names the work in the owner's own vocabulary.
func tradeNoun(industry string) string {
	switch industry {
	case "hvac":
		return "service calls"
	case "plumbing":
		return "plumbing jobs"
	case "electrical":
		return "electrical work"
	case "landscaping":
		return "landscaping rounds"
	case "cleaning":
		return "cleaning visits"
	default:
		return "jobs"
	}
}
