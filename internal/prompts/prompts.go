// Package prompts loads the per-stage prompt text and version used by
// remote-generated stages. A missing prompts file never blocks a run:
// built-in defaults apply, and deterministic stages only consume the
// version string for their artifact envelope.
package prompts

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tradecompass/internal/contracts"
)

// Prompt is one stage's instruction text plus its version tag.
type Prompt struct {
	Version string `yaml:"version"`
	Text    string `yaml:"text"`
}

// Source resolves prompts by stage name. Immutable after load.
type Source struct {
	prompts map[contracts.StageName]Prompt
}

var defaults = map[contracts.StageName]Prompt{
	contracts.StageQuantSignals: {
		Version: "quant_signals.p1",
		Text: "Report the quantitative signal buckets for this business. " +
			"Use only the buckets provided; cite each with its bucket token. " +
			"No recommendations, no staffing advice, buckets and plain labels only.",
	},
	contracts.StageOwnerLoad: {
		Version: "owner_load.p1",
		Text: "Describe where the owner's working week actually goes, using " +
			"the signal buckets as evidence. Name the pressure points and what " +
			"could relieve them. Stay off money topics; that is a later stage.",
	},
	contracts.StageCompetitiveLens: {
		Version: "competitive_lens.p1",
		Text: "Position this business against a typical local competitor in " +
			"the same trade. List the table stakes, the defensible edges and " +
			"the exposures. Cite bucket tokens, never raw figures.",
	},
	contracts.StageBlueOcean: {
		Version: "blue_ocean.p1",
		Text: "Propose at most three moves into demand the local market is " +
			"not serving. Every move must name the capacity, crew or schedule " +
			"implication that makes it workable.",
	},
	contracts.StageSynthesisDecision: {
		Version: "synthesis_decision.p1",
		Text: "Combine all prior findings into exactly three paths keyed A, B " +
			"and C, recommend one, and lay out a first-30-days list of five to " +
			"nine concrete actions the owner can finish. Plain, respectful " +
			"language; no hype, no guilt, no appointment to come back.",
	},
}

// LoadSource reads a prompts YAML file (stage name → {version, text}). A
// missing file yields the built-in defaults; entries present in the file
// override per stage.
func LoadSource(path string) (*Source, error) {
	s := &Source{prompts: make(map[contracts.StageName]Prompt, len(defaults))}
	for stage, p := range defaults {
		s.prompts[stage] = p
	}
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read prompts: %w", err)
	}
	var file map[string]Prompt
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse prompts: %w", err)
	}
	for name, p := range file {
		stage := contracts.StageName(name)
		if !stage.Valid() {
			return nil, fmt.Errorf("prompts file names unknown stage %q", name)
		}
		if p.Version == "" || p.Text == "" {
			return nil, fmt.Errorf("prompt for stage %s needs both version and text", name)
		}
		s.prompts[stage] = p
	}
	return s, nil
}

// Get returns the prompt for a stage. Every pipeline stage always has one.
func (s *Source) Get(stage contracts.StageName) Prompt {
	return s.prompts[stage]
}
