package contracts

import "fmt"

// Envelope properties shared by every stage output schema. The per-stage
// documents below splice this in so backend-facing schemas and the Go
// structs cannot drift independently of each other.
const envelopeProps = `
    "schema_version": {"type": "string", "const": %q},
    "stage_name": {"type": "string", "const": %q},
    "model_id": {"type": "string", "minLength": 1},
    "prompt_version": {"type": "string", "minLength": 1},
    "confidence": {"type": "string", "enum": ["low", "medium", "high"]},
    "evidence_refs": {
      "type": "array", "minItems": 1, "maxItems": 32, "uniqueItems": true,
      "items": {"type": "string", "pattern": "^bucket:[a-z0-9_:-]+$"}
    },
    "data_limits": {
      "type": "object",
      "properties": {
        "window_mode": {"type": "string"},
        "window_days": {"type": "integer"},
        "has_quotes": {"type": "boolean"},
        "has_invoices": {"type": "boolean"},
        "has_jobs": {"type": "boolean"},
        "has_customers": {"type": "boolean"},
        "notes": {"type": "array", "items": {"type": "string"}}
      },
      "required": ["window_mode", "window_days", "has_quotes", "has_invoices", "has_jobs", "has_customers"],
      "additionalProperties": false
    }`

const envelopeRequired = `"schema_version", "stage_name", "model_id", "prompt_version", "confidence", "evidence_refs", "data_limits"`

func stageSchema(stage StageName, version, props, required string) string {
	return fmt.Sprintf(`{
  "type": "object",
  "properties": {%s,
%s
  },
  "required": [%s, %s],
  "additionalProperties": false
}`, fmt.Sprintf(envelopeProps, version, string(stage)), props, envelopeRequired, required)
}

var quantSignalsSchema = stageSchema(StageQuantSignals, "quant_signals.v1", `    "window": {"type": "string", "minLength": 1},
    "signals": {
      "type": "array", "minItems": 3, "maxItems": 6,
      "items": {
        "type": "object",
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "label": {"type": "string", "minLength": 1},
          "value": {"type": "string", "minLength": 1},
          "confidence": {"type": "string", "enum": ["low", "medium", "high"]},
          "evidence": {"type": "string", "pattern": "^bucket:[a-z0-9_:-]+$"}
        },
        "required": ["id", "label", "value", "confidence", "evidence"],
        "additionalProperties": false
      }
    }`, `"window", "signals"`)

var ownerLoadSchema = stageSchema(StageOwnerLoad, "owner_load.v1", `    "load_picture": {"type": "string", "minLength": 1, "maxLength": 700},
    "pressure_points": {"type": "array", "minItems": 1, "maxItems": 5, "items": {"type": "string", "minLength": 1}},
    "relief_candidates": {"type": "array", "minItems": 1, "maxItems": 4, "items": {"type": "string", "minLength": 1}}`,
	`"load_picture", "pressure_points", "relief_candidates"`)

var competitiveLensSchema = stageSchema(StageCompetitiveLens, "competitive_lens.v1", `    "positioning": {"type": "string", "minLength": 1},
    "table_stakes": {"type": "array", "minItems": 2, "maxItems": 6, "items": {"type": "string", "minLength": 1}},
    "edges": {"type": "array", "minItems": 1, "maxItems": 4, "items": {"type": "string", "minLength": 1}},
    "exposures": {"type": "array", "minItems": 1, "maxItems": 4, "items": {"type": "string", "minLength": 1}}`,
	`"positioning", "table_stakes", "edges", "exposures"`)

var blueOceanSchema = stageSchema(StageBlueOcean, "blue_ocean.v1", `    "moves": {
      "type": "array", "minItems": 1, "maxItems": 3,
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "rationale": {"type": "string", "minLength": 1},
          "capacity_note": {"type": "string", "minLength": 1}
        },
        "required": ["name", "rationale", "capacity_note"],
        "additionalProperties": false
      }
    }`, `"moves"`)

const pathSchema = `{
          "type": "object",
          "properties": {
            "title": {"type": "string", "minLength": 1},
            "thesis": {"type": "string", "minLength": 1},
            "tradeoff": {"type": "string", "minLength": 1}
          },
          "required": ["title", "thesis", "tradeoff"],
          "additionalProperties": false
        }`

var synthesisDecisionSchema = stageSchema(StageSynthesisDecision, "synthesis_decision.v1", fmt.Sprintf(`    "paths": {
      "type": "object",
      "properties": {
        "A": %[1]s,
        "B": %[1]s,
        "C": %[1]s
      },
      "required": ["A", "B", "C"],
      "additionalProperties": false
    },
    "recommended_path": {"type": "string", "enum": ["A", "B", "C"]},
    "first_30_days": {"type": "array", "minItems": 5, "maxItems": 9, "items": {"type": "string", "minLength": 1}},
    "language_check": {
      "type": "object",
      "properties": {"passed": {"type": "boolean"}, "notes": {"type": "string"}},
      "required": ["passed"],
      "additionalProperties": false
    }`, pathSchema), `"paths", "recommended_path", "first_30_days", "language_check"`)
