package doctrine

import (
	"fmt"
	"sort"
	"strings"

	"tradecompass/internal/contracts"
)

// checkStructure applies the two structural checks unique to named stages.
// Everything else structural belongs to the schema layer.
func (g *Guard) checkStructure(stage contracts.StageName, node interface{}) []Failure {
	switch stage {
	case contracts.StageBlueOcean:
		return g.checkBlueOceanMoves(node)
	case contracts.StageSynthesisDecision:
		return g.checkSynthesisShape(node)
	default:
		return nil
	}
}

// checkBlueOceanMoves requires every move to reference a capacity, load or
// crew consideration somewhere in its text.
func (g *Guard) checkBlueOceanMoves(node interface{}) []Failure {
	root, ok := node.(map[string]interface{})
	if !ok {
		return nil
	}
	moves, ok := root["moves"].([]interface{})
	if !ok {
		return nil
	}
	var failures []Failure
	for i, m := range moves {
		move, ok := m.(map[string]interface{})
		if !ok {
			continue
		}
		var text strings.Builder
		for _, atom := range Flatten(move) {
			text.WriteString(atom.Value)
			text.WriteString(" ")
		}
		if !g.mentionsCapacity(text.String()) {
			failures = append(failures, Failure{
				Code:  CodeStructureInvalid,
				Stage: contracts.StageBlueOcean,
				Path:  fmt.Sprintf("moves[%d]", i),
				Message: "move does not reference a capacity, load or crew consideration",
			})
		}
	}
	return failures
}

func (g *Guard) mentionsCapacity(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range g.capacity {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// checkSynthesisShape enforces the terminal artifact's shape: path keys
// exactly {A,B,C}, a recommendation among them, and an action list within
// the policy bounds.
func (g *Guard) checkSynthesisShape(node interface{}) []Failure {
	root, ok := node.(map[string]interface{})
	if !ok {
		return nil
	}
	var failures []Failure

	paths, _ := root["paths"].(map[string]interface{})
	keys := make([]string, 0, len(paths))
	for k := range paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if strings.Join(keys, ",") != strings.Join(contracts.PathKeys, ",") {
		failures = append(failures, Failure{
			Code: CodeStructureInvalid, Stage: contracts.StageSynthesisDecision, Path: "paths",
			Message: fmt.Sprintf("path keys %v, doctrine requires exactly %v", keys, contracts.PathKeys),
		})
	}

	rec, _ := root["recommended_path"].(string)
	if _, ok := paths[rec]; !ok {
		failures = append(failures, Failure{
			Code: CodeStructureInvalid, Stage: contracts.StageSynthesisDecision, Path: "recommended_path",
			Message: fmt.Sprintf("recommended path %q is not a presented path", rec),
		})
	}

	actions, _ := root["first_30_days"].([]interface{})
	if len(actions) < g.policy.ActionListMin || len(actions) > g.policy.ActionListMax {
		failures = append(failures, Failure{
			Code: CodeStructureInvalid, Stage: contracts.StageSynthesisDecision, Path: "first_30_days",
			Message: fmt.Sprintf("%d actions outside policy bounds [%d,%d]",
				len(actions), g.policy.ActionListMin, g.policy.ActionListMax),
		})
	}
	return failures
}
