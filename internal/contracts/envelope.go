package contracts

import "regexp"

// Confidence levels shared by buckets, signals and artifact envelopes.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// MaxEvidenceRefs bounds evidence_refs on every artifact and the evidence
// index on every stage input.
const MaxEvidenceRefs = 32

// EvidenceRefPattern is the only admissible shape for an evidence token.
// Tokens cite computed buckets, never raw records.
var EvidenceRefPattern = regexp.MustCompile(`^bucket:[a-z0-9_:-]+$`)

// DataLimits records what the observation window could and could not see.
// The quant stage computes it once; every later stage carries it unchanged
// because all stages reason over the same window.
type DataLimits struct {
	WindowMode   string   `json:"window_mode"`
	WindowDays   int      `json:"window_days"`
	HasQuotes    bool     `json:"has_quotes"`
	HasInvoices  bool     `json:"has_invoices"`
	HasJobs      bool     `json:"has_jobs"`
	HasCustomers bool     `json:"has_customers"`
	Notes        []string `json:"notes,omitempty"`
}

// Envelope is the base record every stage artifact shares.
type Envelope struct {
	SchemaVersion string     `json:"schema_version"`
	StageName     StageName  `json:"stage_name"`
	ModelID       string     `json:"model_id"`
	PromptVersion string     `json:"prompt_version"`
	Confidence    string     `json:"confidence"`
	EvidenceRefs  []string   `json:"evidence_refs"`
	DataLimits    DataLimits `json:"data_limits"`
}

// Env exposes the envelope through the Artifact interface.
func (e *Envelope) Env() *Envelope { return e }

// Stage returns the stage that produced the artifact.
func (e *Envelope) Stage() StageName { return e.StageName }

func validConfidence(c string) bool {
	return c == ConfidenceLow || c == ConfidenceMedium || c == ConfidenceHigh
}
