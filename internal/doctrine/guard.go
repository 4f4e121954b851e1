package doctrine

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"tradecompass/internal/contracts"
)

// Failure codes, stable across policy changes.
const (
	CodeForbiddenTerm      = "forbidden_term"
	CodeInfiniteFeed       = "infinite_feed"
	CodeShamingLanguage    = "shaming_language"
	CodeRawDataLeak        = "raw_data_leak"
	CodeEvidenceRefInvalid = "evidence_ref_invalid"
	CodeStageDrift         = "stage_drift"
	CodeStructureInvalid   = "structure_invalid"
)

// Failure is one doctrine violation. Guards return failure lists, never
// booleans; any non-empty list halts the run.
type Failure struct {
	Code    string              `json:"code"`
	Stage   contracts.StageName `json:"stage"`
	Path    string              `json:"path"`
	Term    string              `json:"term,omitempty"`
	Message string              `json:"message"`
}

func (f Failure) String() string {
	return fmt.Sprintf("%s at %s: %s", f.Code, f.Path, f.Message)
}

// Leak heuristics. These catch raw source rows riding through prose; the
// bucketing contract says downstream text cites buckets, not records.
var (
	emailPattern   = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern   = regexp.MustCompile(`\(?\d{3}\)?[-. ]\d{3}[-. ]\d{4}`)
	addressPattern = regexp.MustCompile(`\b\d{1,5}\s+[A-Z][A-Za-z]+\s+(?:Street|St|Avenue|Ave|Road|Rd|Drive|Dr|Lane|Ln|Boulevard|Blvd|Court|Ct)\b`)
	rowLeakPattern = regexp.MustCompile(`(?m)^[ \t]*[A-Za-z][A-Za-z0-9 _/-]{1,31}:[ \t]*[^\n]*(?:\$ ?\d|\d{4,})`)
)

// evidenceFields are the field names whose string entries must be bucket
// tokens wherever they appear in a tree.
var evidenceFields = map[string]bool{"evidence_refs": true, "evidence_index": true}

// isEvidencePath reports whether an atom lives inside an evidence field.
// Those entries answer to the shape check alone, so a corrupted ref yields
// exactly one evidence_ref_invalid failure and nothing else.
func isEvidencePath(path string) bool {
	return strings.Contains(path, "evidence_refs[") || strings.Contains(path, "evidence_index[")
}

// Guard evaluates the doctrine against artifact trees. It is immutable
// after construction and safe for concurrent use.
type Guard struct {
	policy    *Policy
	forbidden []termPattern
	drift     map[contracts.StageName][]termPattern
	capacity  []string
}

type termPattern struct {
	term string
	re   *regexp.Regexp
}

// NewGuard compiles a policy into a reusable guard.
func NewGuard(p *Policy) *Guard {
	g := &Guard{
		policy: p,
		drift:  make(map[contracts.StageName][]termPattern),
	}
	for _, t := range p.ForbiddenTerms {
		g.forbidden = append(g.forbidden, compileTerm(t))
	}
	for stage, terms := range p.StageDrift {
		for _, t := range terms {
			g.drift[contracts.StageName(stage)] = append(g.drift[contracts.StageName(stage)], compileTerm(t))
		}
	}
	for _, t := range p.CapacityTerms {
		g.capacity = append(g.capacity, strings.ToLower(t))
	}
	return g
}

// compileTerm builds a whole-word, case-insensitive matcher. Multi-word
// phrases match across single spaces.
func compileTerm(term string) termPattern {
	escaped := regexp.QuoteMeta(strings.ToLower(strings.TrimSpace(term)))
	return termPattern{
		term: term,
		re:   regexp.MustCompile(`(?i)\b` + escaped + `\b`),
	}
}

// EvaluateInput runs the global doctrine pass over a stage input record.
// Drift terms do not apply here: inputs legitimately summarize upstream
// stages whose vocabulary would be drift in this stage's own output.
func (g *Guard) EvaluateInput(stage contracts.StageName, tree interface{}) []Failure {
	node := normalize(tree)
	return g.globalPass(stage, node)
}

// EvaluateArtifact runs the global pass plus the stage-specific pass
// (drift terms and structural checks) over a stage output artifact. The
// tree may be a typed artifact or a decoded JSON value.
func (g *Guard) EvaluateArtifact(stage contracts.StageName, tree interface{}) []Failure {
	node := normalize(tree)
	failures := g.globalPass(stage, node)
	failures = append(failures, g.scanDrift(stage, Flatten(node))...)
	failures = append(failures, g.checkStructure(stage, node)...)
	return failures
}

func (g *Guard) globalPass(stage contracts.StageName, node interface{}) []Failure {
	atoms := Flatten(node)
	var failures []Failure
	failures = append(failures, g.scanVocabulary(stage, atoms)...)
	failures = append(failures, g.scanLeaks(stage, atoms)...)
	failures = append(failures, scanEvidenceFields(stage, node, "")...)
	return failures
}

func (g *Guard) scanVocabulary(stage contracts.StageName, atoms []StringAtom) []Failure {
	var failures []Failure
	for _, atom := range atoms {
		if isEvidencePath(atom.Path) {
			continue
		}
		for _, tp := range g.forbidden {
			if tp.re.MatchString(atom.Value) {
				failures = append(failures, Failure{
					Code: CodeForbiddenTerm, Stage: stage, Path: atom.Path, Term: tp.term,
					Message: fmt.Sprintf("forbidden term %q", tp.term),
				})
			}
		}
		for _, phrase := range g.policy.InfiniteFeedPhrases {
			if containsFold(atom.Value, phrase) {
				failures = append(failures, Failure{
					Code: CodeInfiniteFeed, Stage: stage, Path: atom.Path, Term: phrase,
					Message: fmt.Sprintf("recurring check-in phrasing %q", phrase),
				})
			}
		}
		for _, phrase := range g.policy.ShamingPhrases {
			if containsFold(atom.Value, phrase) {
				failures = append(failures, Failure{
					Code: CodeShamingLanguage, Stage: stage, Path: atom.Path, Term: phrase,
					Message: fmt.Sprintf("shaming language %q", phrase),
				})
			}
		}
	}
	return failures
}

func (g *Guard) scanLeaks(stage contracts.StageName, atoms []StringAtom) []Failure {
	var failures []Failure
	for _, atom := range atoms {
		if isEvidencePath(atom.Path) || strings.HasPrefix(atom.Value, "bucket:") {
			continue
		}
		switch {
		case emailPattern.MatchString(atom.Value):
			failures = append(failures, leak(stage, atom.Path, "email address"))
		case phonePattern.MatchString(atom.Value):
			failures = append(failures, leak(stage, atom.Path, "phone number"))
		case addressPattern.MatchString(atom.Value):
			failures = append(failures, leak(stage, atom.Path, "street address"))
		case rowLeakPattern.MatchString(atom.Value):
			failures = append(failures, leak(stage, atom.Path, "raw data row"))
		}
	}
	return failures
}

func leak(stage contracts.StageName, path, kind string) Failure {
	return Failure{
		Code: CodeRawDataLeak, Stage: stage, Path: path,
		Message: fmt.Sprintf("%s leaked into artifact text", kind),
	}
}

// scanEvidenceFields checks the shape of every string under a field named
// evidence_refs or evidence_index, anywhere in the tree.
func scanEvidenceFields(stage contracts.StageName, node interface{}, path string) []Failure {
	var failures []Failure
	switch v := node.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			child := v[k]
			childPath := k
			if path != "" {
				childPath = path + "." + k
			}
			if evidenceFields[k] {
				failures = append(failures, checkEvidenceList(stage, child, childPath)...)
				continue
			}
			failures = append(failures, scanEvidenceFields(stage, child, childPath)...)
		}
	case []interface{}:
		for i, child := range v {
			failures = append(failures, scanEvidenceFields(stage, child, fmt.Sprintf("%s[%d]", path, i))...)
		}
	}
	return failures
}

func checkEvidenceList(stage contracts.StageName, node interface{}, path string) []Failure {
	var failures []Failure
	items, ok := node.([]interface{})
	if !ok {
		return []Failure{{
			Code: CodeEvidenceRefInvalid, Stage: stage, Path: path,
			Message: "evidence field is not a list",
		}}
	}
	for i, item := range items {
		s, ok := item.(string)
		if !ok || !contracts.EvidenceRefPattern.MatchString(s) {
			failures = append(failures, Failure{
				Code: CodeEvidenceRefInvalid, Stage: stage, Path: fmt.Sprintf("%s[%d]", path, i),
				Message: fmt.Sprintf("evidence ref %v is not a bucket token", item),
			})
		}
	}
	return failures
}

func (g *Guard) scanDrift(stage contracts.StageName, atoms []StringAtom) []Failure {
	patterns := g.drift[stage]
	if len(patterns) == 0 {
		return nil
	}
	var failures []Failure
	for _, atom := range atoms {
		if isEvidencePath(atom.Path) || strings.HasPrefix(atom.Value, "bucket:") {
			continue
		}
		for _, tp := range patterns {
			if tp.re.MatchString(atom.Value) {
				failures = append(failures, Failure{
					Code: CodeStageDrift, Stage: stage, Path: atom.Path, Term: tp.term,
					Message: fmt.Sprintf("term %q is out of scope for stage %s", tp.term, stage),
				})
			}
		}
	}
	return failures
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
