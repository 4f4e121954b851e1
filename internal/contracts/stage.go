// Package contracts defines the versioned inter-stage contracts of the
// decision pipeline: the five-stage order, the shared artifact envelope,
// the closed per-stage artifact records, the persisted stage input record,
// and the structural validation rules for all of them.
//
// Contracts are closed: decoding rejects unknown fields, and every list
// field has a bounded cardinality. Callers with looser shapes must map
// into these records at the boundary.
package contracts

// StageName identifies one of the five ordered pipeline stages.
type StageName string

const (
	StageQuantSignals      StageName = "quant_signals"
	StageOwnerLoad         StageName = "owner_load"
	StageCompetitiveLens   StageName = "competitive_lens"
	StageBlueOcean         StageName = "blue_ocean"
	StageSynthesisDecision StageName = "synthesis_decision"
)

// stageOrder fixes execution order. It is never mutated at runtime.
var stageOrder = [5]StageName{
	StageQuantSignals,
	StageOwnerLoad,
	StageCompetitiveLens,
	StageBlueOcean,
	StageSynthesisDecision,
}

// Stages returns the five stages in execution order.
func Stages() []StageName {
	s := make([]StageName, len(stageOrder))
	copy(s, stageOrder[:])
	return s
}

// Index returns the position of a stage in execution order, or -1 when the
// name is not a pipeline stage.
func (s StageName) Index() int {
	for i, name := range stageOrder {
		if name == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s names a pipeline stage.
func (s StageName) Valid() bool { return s.Index() >= 0 }

// Final reports whether s is the terminal synthesis stage.
func (s StageName) Final() bool { return s == StageSynthesisDecision }
