// Package contextbuild assembles, per stage, the persisted stage input
// record and the larger executor-facing input object. A missing upstream
// artifact is a hard error: stage order is a dependency graph, not a
// convention, and a builder never defaults silently.
package contextbuild

import (
	"fmt"
	"strings"

	"tradecompass/internal/bucketing"
	"tradecompass/internal/contracts"
	"tradecompass/internal/logging"
)

// Run is the read-only view of run state a builder needs.
type Run struct {
	RunID        string
	WorkspaceID  string
	BusinessName string
	Industry     string
	Features     *bucketing.Features
	Artifacts    map[contracts.StageName]contracts.Artifact
}

// Built pairs the schema-enforced stage input with the convenience object
// handed to the executor. ExecutorInput is a superset of Input and is
// never persisted or schema-checked.
type Built struct {
	Input         *contracts.StageInput
	ExecutorInput map[string]interface{}
}

// Build assembles both input objects for a stage.
func Build(stage contracts.StageName, run Run) (*Built, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("cannot build input for unknown stage %q", stage)
	}
	if run.Features == nil {
		return nil, fmt.Errorf("stage %s: bucketed features missing from run state", stage)
	}
	for _, prior := range contracts.Stages()[:stage.Index()] {
		if _, ok := run.Artifacts[prior]; !ok {
			return nil, fmt.Errorf("stage %s: required upstream artifact %s missing from run state", stage, prior)
		}
	}

	limits := run.Features.DataLimits
	if quant, ok := run.Artifacts[contracts.StageQuantSignals]; ok {
		// downstream stages carry the quant stage's limits unchanged
		limits = quant.Env().DataLimits
	}

	input := &contracts.StageInput{
		SchemaVersion: contracts.StageInputSchemaVersion,
		StageName:     stage,
		RunID:         run.RunID,
		WorkspaceID:   run.WorkspaceID,
		Industry:      run.Industry,
		DataLimits:    limits,
		EvidenceIndex: evidenceIndex(stage, run),
		Context:       stageContext(stage, run),
	}

	exec := map[string]interface{}{
		"stage_input": input,
	}
	if stage == contracts.StageQuantSignals {
		exec["buckets"] = run.Features.Buckets
		exec["window"] = run.Features.Window
	}
	priors := make(map[string]interface{})
	for _, prior := range contracts.Stages()[:stage.Index()] {
		priors[string(prior)] = run.Artifacts[prior]
	}
	if len(priors) > 0 {
		exec["prior_artifacts"] = priors
	}

	logging.Get(logging.CategoryContext).Debugw("built stage input",
		"stage", string(stage), "run", run.RunID, "evidence_refs", len(input.EvidenceIndex))

	return &Built{Input: input, ExecutorInput: exec}, nil
}

// evidenceIndex collects the evidence the stage may cite: the bucket
// tokens for the quant stage, the union of upstream evidence refs for
// every later stage. First-seen order, deduplicated, capped.
func evidenceIndex(stage contracts.StageName, run Run) []string {
	var refs []string
	seen := make(map[string]bool)
	add := func(ref string) {
		if len(refs) >= contracts.MaxEvidenceRefs || seen[ref] {
			return
		}
		seen[ref] = true
		refs = append(refs, ref)
	}

	if stage == contracts.StageQuantSignals {
		for _, b := range run.Features.Buckets {
			add(b.Evidence)
		}
		return refs
	}
	for _, prior := range contracts.Stages()[:stage.Index()] {
		for _, ref := range run.Artifacts[prior].Env().EvidenceRefs {
			add(ref)
		}
	}
	return refs
}

// stageContext summarizes upstream material under the per-value character
// cap. Upstream text is condensed, never quoted verbatim past the cap.
func stageContext(stage contracts.StageName, run Run) map[string]string {
	ctx := make(map[string]string)
	if run.BusinessName != "" {
		// guarded like everything else: a name carrying policy terms
		// stops the run at the first input gate
		ctx["business"] = clip(run.BusinessName)
	}

	switch stage {
	case contracts.StageQuantSignals:
		ctx["window"] = clip(fmt.Sprintf("%s (%d days)", run.Features.Window.Mode, run.Features.Window.Days))
		ctx["buckets"] = clip(summarizeBuckets(run.Features.Buckets))
		return ctx
	case contracts.StageOwnerLoad:
		ctx["quant_summary"] = clip(summarizeQuant(run))
	case contracts.StageCompetitiveLens:
		ctx["quant_summary"] = clip(summarizeQuant(run))
		ctx["owner_load_summary"] = clip(summarizeOwnerLoad(run))
	case contracts.StageBlueOcean:
		ctx["quant_summary"] = clip(summarizeQuant(run))
		ctx["owner_load_summary"] = clip(summarizeOwnerLoad(run))
		ctx["competitive_summary"] = clip(summarizeCompetitive(run))
	case contracts.StageSynthesisDecision:
		ctx["quant_summary"] = clip(summarizeQuant(run))
		ctx["owner_load_summary"] = clip(summarizeOwnerLoad(run))
		ctx["competitive_summary"] = clip(summarizeCompetitive(run))
		ctx["blue_ocean_summary"] = clip(summarizeBlueOcean(run))
	}
	return ctx
}

// clip enforces the hard character cap on a context value.
func clip(s string) string {
	if len(s) <= contracts.MaxContextChars {
		return s
	}
	return s[:contracts.MaxContextChars]
}

func summarizeBuckets(buckets []bucketing.Bucket) string {
	parts := make([]string, len(buckets))
	for i, b := range buckets {
		parts[i] = fmt.Sprintf("%s=%s (%s)", b.Signal, b.Value, b.Confidence)
	}
	return strings.Join(parts, "; ")
}

func summarizeQuant(run Run) string {
	a := run.Artifacts[contracts.StageQuantSignals].(*contracts.QuantSignalsArtifact)
	parts := make([]string, len(a.Signals))
	for i, s := range a.Signals {
		parts[i] = fmt.Sprintf("%s=%s", s.ID, s.Value)
	}
	return fmt.Sprintf("window %s; %s", a.Window, strings.Join(parts, "; "))
}

func summarizeOwnerLoad(run Run) string {
	a := run.Artifacts[contracts.StageOwnerLoad].(*contracts.OwnerLoadArtifact)
	return fmt.Sprintf("%s pressure: %s", a.LoadPicture, strings.Join(a.PressurePoints, "; "))
}

func summarizeCompetitive(run Run) string {
	a := run.Artifacts[contracts.StageCompetitiveLens].(*contracts.CompetitiveLensArtifact)
	return fmt.Sprintf("%s edges: %s exposures: %s",
		a.Positioning, strings.Join(a.Edges, "; "), strings.Join(a.Exposures, "; "))
}

func summarizeBlueOcean(run Run) string {
	a := run.Artifacts[contracts.StageBlueOcean].(*contracts.BlueOceanArtifact)
	parts := make([]string, len(a.Moves))
	for i, m := range a.Moves {
		parts[i] = fmt.Sprintf("%s (%s)", m.Name, m.CapacityNote)
	}
	return strings.Join(parts, "; ")
}
