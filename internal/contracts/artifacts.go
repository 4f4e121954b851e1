package contracts

// Artifact is the closed union of stage outputs. Exactly one concrete type
// exists per stage; the registry in registry.go is the exhaustive table.
type Artifact interface {
	Env() *Envelope
	Stage() StageName
}

// Signal is one bucketed quantitative finding.
type Signal struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Value      string `json:"value"`
	Confidence string `json:"confidence"`
	Evidence   string `json:"evidence"`
}

// QuantSignalsArtifact is the output of the quant_signals stage: bucketed
// statistics only, no prose strategy.
type QuantSignalsArtifact struct {
	Envelope
	Window  string   `json:"window"`
	Signals []Signal `json:"signals"`
}

// OwnerLoadArtifact describes where the owner's week actually goes.
type OwnerLoadArtifact struct {
	Envelope
	LoadPicture      string   `json:"load_picture"`
	PressurePoints   []string `json:"pressure_points"`
	ReliefCandidates []string `json:"relief_candidates"`
}

// CompetitiveLensArtifact positions the business against its local market.
type CompetitiveLensArtifact struct {
	Envelope
	Positioning string   `json:"positioning"`
	TableStakes []string `json:"table_stakes"`
	Edges       []string `json:"edges"`
	Exposures   []string `json:"exposures"`
}

// Move is one uncontested-market move proposal.
type Move struct {
	Name         string `json:"name"`
	Rationale    string `json:"rationale"`
	CapacityNote string `json:"capacity_note"`
}

// BlueOceanArtifact proposes a small number of moves, each grounded in a
// capacity consideration.
type BlueOceanArtifact struct {
	Envelope
	Moves []Move `json:"moves"`
}

// Path is one of the three presented decision options.
type Path struct {
	Title    string `json:"title"`
	Thesis   string `json:"thesis"`
	Tradeoff string `json:"tradeoff"`
}

// LanguageCheck records the self-reported language review of the final
// artifact. The doctrine guard remains the enforcement layer.
type LanguageCheck struct {
	Passed bool   `json:"passed"`
	Notes  string `json:"notes,omitempty"`
}

// SynthesisDecisionArtifact is the terminal decision record: exactly three
// paths keyed A/B/C, one recommendation, and a bounded first-30-days list.
type SynthesisDecisionArtifact struct {
	Envelope
	Paths           map[string]Path `json:"paths"`
	RecommendedPath string          `json:"recommended_path"`
	First30Days     []string        `json:"first_30_days"`
	LanguageCheck   LanguageCheck   `json:"language_check"`
}

// PathKeys are the only admissible keys of SynthesisDecisionArtifact.Paths.
var PathKeys = []string{"A", "B", "C"}
