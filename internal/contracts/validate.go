package contracts

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError is one structural violation. Rule is a stable machine
// code; Message is for humans and logs.
type ValidationError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Rule)
}

func violation(field, rule, format string, args ...interface{}) ValidationError {
	return ValidationError{Field: field, Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// ValidateArtifact checks an artifact against its stage contract and
// returns every violation found. An empty slice means schema-valid.
func ValidateArtifact(a Artifact) []ValidationError {
	env := a.Env()
	c, ok := registry[env.StageName]
	if !ok {
		return []ValidationError{violation("stage_name", "unknown_stage", "no contract for stage %q", env.StageName)}
	}

	errs := validateEnvelope(env, c)

	switch art := a.(type) {
	case *QuantSignalsArtifact:
		errs = append(errs, validateQuantSignals(art)...)
	case *OwnerLoadArtifact:
		errs = append(errs, validateOwnerLoad(art)...)
	case *CompetitiveLensArtifact:
		errs = append(errs, validateCompetitiveLens(art)...)
	case *BlueOceanArtifact:
		errs = append(errs, validateBlueOcean(art)...)
	case *SynthesisDecisionArtifact:
		errs = append(errs, validateSynthesisDecision(art)...)
	default:
		errs = append(errs, violation("artifact", "unknown_type", "unregistered artifact type %T", a))
	}
	return errs
}

func validateEnvelope(env *Envelope, c Contract) []ValidationError {
	var errs []ValidationError
	if env.SchemaVersion != c.SchemaVersion {
		errs = append(errs, violation("schema_version", "version_mismatch",
			"got %q, contract requires %q", env.SchemaVersion, c.SchemaVersion))
	}
	if env.ModelID == "" {
		errs = append(errs, violation("model_id", "required", "model_id must be set"))
	}
	if env.PromptVersion == "" {
		errs = append(errs, violation("prompt_version", "required", "prompt_version must be set"))
	}
	if !validConfidence(env.Confidence) {
		errs = append(errs, violation("confidence", "enum", "confidence %q not in {low,medium,high}", env.Confidence))
	}
	errs = append(errs, validateEvidenceRefs("evidence_refs", env.EvidenceRefs)...)
	if env.DataLimits.WindowMode == "" {
		errs = append(errs, violation("data_limits.window_mode", "required", "window mode must be recorded"))
	}
	return errs
}

func validateEvidenceRefs(field string, refs []string) []ValidationError {
	var errs []ValidationError
	if len(refs) == 0 {
		errs = append(errs, violation(field, "min_items", "at least one evidence ref required"))
	}
	if len(refs) > MaxEvidenceRefs {
		errs = append(errs, violation(field, "max_items", "%d refs exceed cap of %d", len(refs), MaxEvidenceRefs))
	}
	seen := make(map[string]bool, len(refs))
	for i, ref := range refs {
		if !EvidenceRefPattern.MatchString(ref) {
			errs = append(errs, violation(fmt.Sprintf("%s[%d]", field, i), "pattern",
				"ref %q does not match %s", ref, EvidenceRefPattern.String()))
		}
		if seen[ref] {
			errs = append(errs, violation(fmt.Sprintf("%s[%d]", field, i), "unique", "duplicate ref %q", ref))
		}
		seen[ref] = true
	}
	return errs
}

func checkListLen(field string, n, min, max int) []ValidationError {
	if n < min {
		return []ValidationError{violation(field, "min_items", "%d items, need at least %d", n, min)}
	}
	if n > max {
		return []ValidationError{violation(field, "max_items", "%d items exceed cap of %d", n, max)}
	}
	return nil
}

func checkNonEmptyItems(field string, items []string) []ValidationError {
	var errs []ValidationError
	for i, s := range items {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, violation(fmt.Sprintf("%s[%d]", field, i), "required", "empty entry"))
		}
	}
	return errs
}

func validateQuantSignals(a *QuantSignalsArtifact) []ValidationError {
	errs := checkListLen("signals", len(a.Signals), 3, 6)
	if a.Window == "" {
		errs = append(errs, violation("window", "required", "window description must be set"))
	}
	for i, s := range a.Signals {
		f := fmt.Sprintf("signals[%d]", i)
		if s.ID == "" || s.Label == "" || s.Value == "" {
			errs = append(errs, violation(f, "required", "id, label and value must be set"))
		}
		if !validConfidence(s.Confidence) {
			errs = append(errs, violation(f+".confidence", "enum", "confidence %q not in {low,medium,high}", s.Confidence))
		}
		if !EvidenceRefPattern.MatchString(s.Evidence) {
			errs = append(errs, violation(f+".evidence", "pattern", "evidence %q is not a bucket token", s.Evidence))
		}
	}
	return errs
}

// maxLoadPictureChars caps the owner-load narrative so raw upstream text
// can never ride through unsummarized.
const maxLoadPictureChars = 700

func validateOwnerLoad(a *OwnerLoadArtifact) []ValidationError {
	var errs []ValidationError
	if strings.TrimSpace(a.LoadPicture) == "" {
		errs = append(errs, violation("load_picture", "required", "load picture must be set"))
	}
	if len(a.LoadPicture) > maxLoadPictureChars {
		errs = append(errs, violation("load_picture", "max_length", "%d chars exceed cap of %d", len(a.LoadPicture), maxLoadPictureChars))
	}
	errs = append(errs, checkListLen("pressure_points", len(a.PressurePoints), 1, 5)...)
	errs = append(errs, checkNonEmptyItems("pressure_points", a.PressurePoints)...)
	errs = append(errs, checkListLen("relief_candidates", len(a.ReliefCandidates), 1, 4)...)
	errs = append(errs, checkNonEmptyItems("relief_candidates", a.ReliefCandidates)...)
	return errs
}

func validateCompetitiveLens(a *CompetitiveLensArtifact) []ValidationError {
	var errs []ValidationError
	if strings.TrimSpace(a.Positioning) == "" {
		errs = append(errs, violation("positioning", "required", "positioning must be set"))
	}
	errs = append(errs, checkListLen("table_stakes", len(a.TableStakes), 2, 6)...)
	errs = append(errs, checkNonEmptyItems("table_stakes", a.TableStakes)...)
	errs = append(errs, checkListLen("edges", len(a.Edges), 1, 4)...)
	errs = append(errs, checkNonEmptyItems("edges", a.Edges)...)
	errs = append(errs, checkListLen("exposures", len(a.Exposures), 1, 4)...)
	errs = append(errs, checkNonEmptyItems("exposures", a.Exposures)...)
	return errs
}

func validateBlueOcean(a *BlueOceanArtifact) []ValidationError {
	errs := checkListLen("moves", len(a.Moves), 1, 3)
	for i, m := range a.Moves {
		f := fmt.Sprintf("moves[%d]", i)
		if strings.TrimSpace(m.Name) == "" {
			errs = append(errs, violation(f+".name", "required", "move name must be set"))
		}
		if strings.TrimSpace(m.Rationale) == "" {
			errs = append(errs, violation(f+".rationale", "required", "rationale must be set"))
		}
		if strings.TrimSpace(m.CapacityNote) == "" {
			errs = append(errs, violation(f+".capacity_note", "required", "capacity note must be set"))
		}
	}
	return errs
}

func validateSynthesisDecision(a *SynthesisDecisionArtifact) []ValidationError {
	var errs []ValidationError

	keys := make([]string, 0, len(a.Paths))
	for k := range a.Paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if strings.Join(keys, ",") != strings.Join(PathKeys, ",") {
		errs = append(errs, violation("paths", "path_keys", "path keys %v, must be exactly %v", keys, PathKeys))
	}
	for _, k := range keys {
		p := a.Paths[k]
		f := "paths." + k
		if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Thesis) == "" || strings.TrimSpace(p.Tradeoff) == "" {
			errs = append(errs, violation(f, "required", "title, thesis and tradeoff must be set"))
		}
	}
	if _, ok := a.Paths[a.RecommendedPath]; !ok {
		errs = append(errs, violation("recommended_path", "enum", "recommended path %q is not a presented path", a.RecommendedPath))
	}
	errs = append(errs, checkListLen("first_30_days", len(a.First30Days), 5, 9)...)
	errs = append(errs, checkNonEmptyItems("first_30_days", a.First30Days)...)
	return errs
}
