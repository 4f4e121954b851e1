// Package executor runs a single pipeline stage. Dispatch is by model-id
// namespace: rules/* invokes the stage's pure deterministic builder,
// gemini/* forwards prompt, input and target schema to the remote
// generation backend. The two paths never fall back to each other, so the
// orchestration, contract and guard path stays identical either way.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tradecompass/internal/contracts"
	"tradecompass/internal/logging"
)

// Model-id namespaces.
const (
	RulesPrefix  = "rules/"
	GeminiPrefix = "gemini/"
)

// Executor-level failures, each a distinct named condition.
var (
	ErrUnknownModel       = errors.New("model id is not in a supported namespace")
	ErrMissingCredentials = errors.New("remote model requested but no backend is configured")
	ErrEmptyReply         = errors.New("generation backend returned an empty reply")
	ErrReplyNotJSON       = errors.New("generation backend reply is not valid JSON")
)

// Builder is a stage's deterministic artifact constructor. It must be pure
// and synchronous.
type Builder func(ctx context.Context) (contracts.Artifact, error)

// Backend is the remote structured-generation contract: one prompt, one
// JSON input, one target schema, one JSON-parseable text blob back.
type Backend interface {
	Generate(ctx context.Context, model, prompt string, input json.RawMessage, schema string) (string, error)
}

// Request carries everything one stage execution needs.
type Request struct {
	Stage   contracts.StageName
	ModelID string
	Prompt  string
	Schema  string
	// Input is the executor-facing convenience object, a superset of the
	// persisted stage input.
	Input map[string]interface{}
	// Builder runs when ModelID is in the rules namespace.
	Builder Builder
}

// Executor dispatches stage executions. Safe for concurrent use.
type Executor struct {
	backend Backend
}

// New creates an executor. backend may be nil when every configured stage
// is rule-based; a remote model id then fails with ErrMissingCredentials.
func New(backend Backend) *Executor {
	return &Executor{backend: backend}
}

// Execute runs one stage and returns the raw artifact JSON. The caller
// owns decoding, validation and guarding; Execute only guarantees the
// bytes parse as JSON.
func (e *Executor) Execute(ctx context.Context, req Request) ([]byte, error) {
	log := logging.Get(logging.CategoryExecutor)
	started := time.Now()

	switch {
	case strings.HasPrefix(req.ModelID, RulesPrefix):
		artifact, err := req.Builder(ctx)
		if err != nil {
			return nil, fmt.Errorf("rule builder for stage %s: %w", req.Stage, err)
		}
		data, err := contracts.EncodeArtifact(artifact)
		if err != nil {
			return nil, fmt.Errorf("encoding %s artifact: %w", req.Stage, err)
		}
		log.Debugw("stage built deterministically",
			"stage", string(req.Stage), "model", req.ModelID, "elapsed", time.Since(started))
		return data, nil

	case strings.HasPrefix(req.ModelID, GeminiPrefix):
		return e.executeRemote(ctx, req, started)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, req.ModelID)
	}
}

func (e *Executor) executeRemote(ctx context.Context, req Request, started time.Time) ([]byte, error) {
	if e.backend == nil {
		return nil, fmt.Errorf("%w (stage %s, model %s)", ErrMissingCredentials, req.Stage, req.ModelID)
	}

	input, err := json.Marshal(req.Input)
	if err != nil {
		return nil, fmt.Errorf("marshaling executor input for stage %s: %w", req.Stage, err)
	}

	model := strings.TrimPrefix(req.ModelID, GeminiPrefix)
	reply, err := e.backend.Generate(ctx, model, req.Prompt, input, req.Schema)
	if err != nil {
		return nil, fmt.Errorf("generation backend for stage %s: %w", req.Stage, err)
	}

	cleaned := NormalizeReply(reply)
	if cleaned == "" {
		return nil, fmt.Errorf("%w (stage %s)", ErrEmptyReply, req.Stage)
	}
	if !json.Valid([]byte(cleaned)) {
		return nil, fmt.Errorf("%w (stage %s)", ErrReplyNotJSON, req.Stage)
	}

	logging.Get(logging.CategoryExecutor).Debugw("stage generated remotely",
		"stage", string(req.Stage), "model", req.ModelID, "elapsed", time.Since(started))
	return []byte(cleaned), nil
}
