// Package doctrine enforces the content doctrine on pipeline artifacts:
// no hype vocabulary, no recurring check-in hooks, no shaming language, no
// raw source data, and per-stage scope discipline. Checks are pure
// functions over an artifact tree and return typed failure lists; any
// non-empty list is a hard stop for the orchestrator.
package doctrine

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"tradecompass/internal/logging"
)

// Policy is the data-driven half of the doctrine. Terms load once from
// YAML; a missing file falls back to the built-in default.
type Policy struct {
	ForbiddenTerms      []string            `yaml:"forbidden_terms"`
	InfiniteFeedPhrases []string            `yaml:"infinite_feed_phrases"`
	ShamingPhrases      []string            `yaml:"shaming_phrases"`
	CapacityTerms       []string            `yaml:"capacity_terms"`
	StageDrift          map[string][]string `yaml:"stage_drift"`
	ActionListMin       int                 `yaml:"action_list_min"`
	ActionListMax       int                 `yaml:"action_list_max"`
}

// DefaultPolicy returns the built-in doctrine terms.
func DefaultPolicy() *Policy {
	return &Policy{
		ForbiddenTerms: []string{
			"guarantee", "guaranteed", "get rich", "passive income",
			"10x", "hustle", "crush it", "dominate", "viral",
			"growth hack", "growth hacking", "scale fast", "no-brainer",
			"skyrocket", "explode your",
		},
		InfiniteFeedPhrases: []string{
			"check back daily", "come back tomorrow", "daily streak",
			"keep checking", "check in every day", "log in daily",
			"new insights every day",
		},
		ShamingPhrases: []string{
			"you failed", "falling behind", "you're behind", "lazy",
			"should have already", "everyone else is", "you neglected",
		},
		CapacityTerms: []string{
			"capacity", "load", "crew", "bandwidth", "schedule",
			"calendar", "workload", "headcount",
		},
		StageDrift: map[string][]string{
			"quant_signals":    {"strategy", "hire", "pivot"},
			"owner_load":       {"revenue", "pricing"},
			"competitive_lens": {"dashboard", "track", "monitor"},
			"blue_ocean":       {"discount"},
		},
		ActionListMin: 5,
		ActionListMax: 9,
	}
}

// LoadPolicy reads a policy file. A missing file is not an error: the
// built-in default applies so the guard can never be disabled by deleting
// its config.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Get(logging.CategoryDoctrine).Infow("policy file absent, using built-in doctrine", "path", path)
			return DefaultPolicy(), nil
		}
		return nil, fmt.Errorf("failed to read doctrine policy: %w", err)
	}
	p := DefaultPolicy()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse doctrine policy: %w", err)
	}
	if p.ActionListMin <= 0 || p.ActionListMax < p.ActionListMin {
		return nil, fmt.Errorf("doctrine policy has invalid action list bounds [%d,%d]", p.ActionListMin, p.ActionListMax)
	}
	return p, nil
}

var (
	sharedOnce   sync.Once
	sharedPolicy *Policy
)

// SharedPolicy loads the process-wide policy exactly once and freezes it.
// Concurrent runs share it read-only; it is never mutated after load.
func SharedPolicy(path string) *Policy {
	sharedOnce.Do(func() {
		p, err := LoadPolicy(path)
		if err != nil {
			logging.Get(logging.CategoryDoctrine).Warnw("falling back to built-in doctrine", "path", path, "error", err)
			p = DefaultPolicy()
		}
		sharedPolicy = p
	})
	return sharedPolicy
}
