package contracts

import "fmt"

// StageInputSchemaVersion versions the persisted stage input record.
const StageInputSchemaVersion = "stage_input.v1"

// MaxContextChars caps every context summary value. Upstream text is
// summarized under this cap, never quoted verbatim beyond it.
const MaxContextChars = 400

// industryKeys is the closed set a stage input may carry.
var industryKeys = map[string]bool{
	"unknown": true, "hvac": true, "plumbing": true,
	"electrical": true, "landscaping": true, "cleaning": true,
}

// StageInput is the persisted "what was shown to the stage" record. It is
// a strict subset of the executor input object and must validate before
// the stage may run.
type StageInput struct {
	SchemaVersion string            `json:"schema_version"`
	StageName     StageName         `json:"stage_name"`
	RunID         string            `json:"run_id"`
	WorkspaceID   string            `json:"workspace_id"`
	Industry      string            `json:"industry"`
	DataLimits    DataLimits        `json:"data_limits"`
	EvidenceIndex []string          `json:"evidence_index"`
	Context       map[string]string `json:"context"`
}

// ValidateStageInput checks a stage input record. An empty slice means the
// stage may run.
func ValidateStageInput(in *StageInput) []ValidationError {
	var errs []ValidationError
	if in.SchemaVersion != StageInputSchemaVersion {
		errs = append(errs, violation("schema_version", "version_mismatch",
			"got %q, want %q", in.SchemaVersion, StageInputSchemaVersion))
	}
	if !in.StageName.Valid() {
		errs = append(errs, violation("stage_name", "unknown_stage", "%q is not a pipeline stage", in.StageName))
	}
	if in.RunID == "" {
		errs = append(errs, violation("run_id", "required", "run id must be set"))
	}
	if in.WorkspaceID == "" {
		errs = append(errs, violation("workspace_id", "required", "workspace id must be set"))
	}
	if !industryKeys[in.Industry] {
		errs = append(errs, violation("industry", "enum", "industry %q is not a normalized key", in.Industry))
	}
	if in.DataLimits.WindowMode == "" {
		errs = append(errs, violation("data_limits.window_mode", "required", "window mode must be recorded"))
	}
	errs = append(errs, validateEvidenceRefs("evidence_index", in.EvidenceIndex)...)
	for key, val := range in.Context {
		if len(val) > MaxContextChars {
			errs = append(errs, violation(fmt.Sprintf("context.%s", key), "max_length",
				"%d chars exceed cap of %d", len(val), MaxContextChars))
		}
	}
	return errs
}
