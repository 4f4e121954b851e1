// Package pipeline orchestrates the five stages in fixed order. Every
// stage walks the same gate sequence: build context, build input, validate
// input, guard input, execute, validate output, guard output, commit. The
// first failed gate ends the run; there is no retry and no partial
// decision artifact.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tradecompass/internal/bucketing"
	"tradecompass/internal/contextbuild"
	"tradecompass/internal/contracts"
	"tradecompass/internal/doctrine"
	"tradecompass/internal/executor"
	"tradecompass/internal/logging"
	"tradecompass/internal/prompts"
	"tradecompass/internal/stages"
	"tradecompass/internal/store"
)

// Run statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RuntimeState is the working memory of one run. Artifacts accumulate as
// stages commit; nothing is ever removed or replaced.
type RuntimeState struct {
	RunID        string
	WorkspaceID  string
	BusinessName string
	Industry     string
	Features     *bucketing.Features
	Artifacts    map[contracts.StageName]contracts.Artifact
}

// NewRuntimeState seeds run state with a fresh run id.
func NewRuntimeState(workspaceID, industry string, features *bucketing.Features) *RuntimeState {
	return &RuntimeState{
		RunID:       uuid.NewString(),
		WorkspaceID: workspaceID,
		Industry:    industry,
		Features:    features,
		Artifacts:   make(map[contracts.StageName]contracts.Artifact),
	}
}

func (s *RuntimeState) view() contextbuild.Run {
	return contextbuild.Run{
		RunID:        s.RunID,
		WorkspaceID:  s.WorkspaceID,
		BusinessName: s.BusinessName,
		Industry:     s.Industry,
		Features:     s.Features,
		Artifacts:    s.Artifacts,
	}
}

// Result is the terminal record of a run. Failed runs carry the failure
// and whatever artifacts committed before the stop.
type Result struct {
	RunID     string
	Status    string
	Artifacts map[contracts.StageName]contracts.Artifact
	Decision  *contracts.SynthesisDecisionArtifact
	Failure   *StageFailure
}

// Options configures an orchestrator. Zero values fall back to the
// deterministic defaults: in-memory store, built-in doctrine, built-in
// prompts, rules/v1 everywhere.
type Options struct {
	Executor *executor.Executor
	Guard    *doctrine.Guard
	Store    store.ArtifactStore
	Prompts  *prompts.Source
	// Models maps stages to model ids; missing stages use DefaultModel.
	Models       map[contracts.StageName]string
	DefaultModel string
}

// Orchestrator drives runs. Safe for concurrent use: per-run state lives
// in RuntimeState, everything here is read-only after construction.
type Orchestrator struct {
	exec         *executor.Executor
	guard        *doctrine.Guard
	store        store.ArtifactStore
	prompts      *prompts.Source
	models       map[contracts.StageName]string
	defaultModel string
}

// NewOrchestrator builds an orchestrator, filling unset options with
// defaults.
func NewOrchestrator(opts Options) *Orchestrator {
	o := &Orchestrator{
		exec:         opts.Executor,
		guard:        opts.Guard,
		store:        opts.Store,
		prompts:      opts.Prompts,
		models:       opts.Models,
		defaultModel: opts.DefaultModel,
	}
	if o.exec == nil {
		o.exec = executor.New(nil)
	}
	if o.guard == nil {
		o.guard = doctrine.NewGuard(doctrine.DefaultPolicy())
	}
	if o.store == nil {
		o.store = store.NewMemoryStore()
	}
	if o.prompts == nil {
		src, _ := prompts.LoadSource("")
		o.prompts = src
	}
	if o.defaultModel == "" {
		o.defaultModel = executor.RulesPrefix + "v1"
	}
	return o
}

func (o *Orchestrator) modelFor(stage contracts.StageName) string {
	if m, ok := o.models[stage]; ok && m != "" {
		return m
	}
	return o.defaultModel
}

// Run executes all five stages against the given state. The returned
// result is never nil.
func (o *Orchestrator) Run(ctx context.Context, state *RuntimeState) *Result {
	log := logging.Get(logging.CategoryPipeline)
	log.Infow("run started", "run", state.RunID, "workspace", state.WorkspaceID, "industry", state.Industry)

	for _, stage := range contracts.Stages() {
		if err := ctx.Err(); err != nil {
			return o.fail(ctx, state, stage, &StageFailure{Code: FailStageExecution, Detail: "run_cancelled"})
		}
		if failure := o.runStage(ctx, state, stage); failure != nil {
			return o.fail(ctx, state, stage, failure)
		}
	}

	decision := state.Artifacts[contracts.StageSynthesisDecision].(*contracts.SynthesisDecisionArtifact)
	if data, err := contracts.EncodeArtifact(decision); err != nil {
		log.Warnw("failed to encode decision for persistence", "run", state.RunID, "error", err)
	} else {
		o.persist(func() error { return o.store.PersistPipelineSuccess(ctx, state.RunID, state.WorkspaceID, data) })
	}
	log.Infow("run completed", "run", state.RunID, "recommended_path", decision.RecommendedPath)

	return &Result{
		RunID:     state.RunID,
		Status:    StatusCompleted,
		Artifacts: state.Artifacts,
		Decision:  decision,
	}
}

// runStage walks one stage through every gate. A nil return means the
// stage committed.
func (o *Orchestrator) runStage(ctx context.Context, state *RuntimeState, stage contracts.StageName) *StageFailure {
	log := logging.Get(logging.CategoryPipeline)
	run := state.view()

	built, err := contextbuild.Build(stage, run)
	if err != nil {
		return &StageFailure{Stage: string(stage), Code: FailStageExecution, Detail: err.Error()}
	}

	if errs := contracts.ValidateStageInput(built.Input); len(errs) > 0 {
		return &StageFailure{Stage: string(stage), Code: FailSchemaValidation, Detail: joinValidation(errs), ValidationErrors: errs}
	}
	if failures := o.guard.EvaluateInput(stage, built.Input); len(failures) > 0 {
		return &StageFailure{Stage: string(stage), Code: FailDoctrineGuard, Detail: joinGuard(failures), GuardFailures: failures}
	}

	modelID := o.modelFor(stage)
	if data, err := json.Marshal(built.Input); err != nil {
		log.Warnw("failed to encode stage input for persistence", "run", state.RunID, "stage", string(stage), "error", err)
	} else {
		rec := store.StageRecord{
			RunID:       state.RunID,
			WorkspaceID: state.WorkspaceID,
			Stage:       stage,
			ModelID:     modelID,
			Payload:     data,
		}
		o.persist(func() error { return o.store.PersistStageInput(ctx, rec) })
	}

	prompt := o.prompts.Get(stage)
	contract, _ := contracts.For(stage)

	builder, err := stages.For(stage)
	if err != nil {
		return &StageFailure{Stage: string(stage), Code: FailStageExecution, Detail: err.Error()}
	}

	raw, err := o.exec.Execute(ctx, executor.Request{
		Stage:   stage,
		ModelID: modelID,
		Prompt:  prompt.Text,
		Schema:  contract.OutputSchema,
		Input:   built.ExecutorInput,
		Builder: func(ctx context.Context) (contracts.Artifact, error) {
			return builder(run, built.Input, modelID, prompt.Version)
		},
	})
	if err != nil {
		code := FailStageExecution
		if errors.Is(err, executor.ErrReplyNotJSON) || errors.Is(err, executor.ErrEmptyReply) {
			code = FailOutputNotJSON
		}
		return &StageFailure{Stage: string(stage), Code: code, Detail: err.Error()}
	}

	artifact, err := contracts.DecodeArtifact(stage, raw)
	if err != nil {
		return &StageFailure{Stage: string(stage), Code: FailSchemaValidation, Detail: err.Error()}
	}
	if errs := contracts.ValidateArtifact(artifact); len(errs) > 0 {
		return &StageFailure{Stage: string(stage), Code: FailSchemaValidation, Detail: joinValidation(errs), ValidationErrors: errs}
	}
	if failures := o.guard.EvaluateArtifact(stage, artifact); len(failures) > 0 {
		return &StageFailure{Stage: string(stage), Code: FailDoctrineGuard, Detail: joinGuard(failures), GuardFailures: failures}
	}

	state.Artifacts[stage] = artifact
	outRec := store.StageRecord{
		RunID:       state.RunID,
		WorkspaceID: state.WorkspaceID,
		Stage:       stage,
		ModelID:     modelID,
		Payload:     json.RawMessage(raw),
	}
	o.persist(func() error { return o.store.PersistStageOutput(ctx, outRec) })

	log.Infow("stage committed", "run", state.RunID, "stage", string(stage), "model", modelID)
	return nil
}

// fail records the terminal failure and assembles the failed result. The
// persisted record carries the structured gate findings, not just the
// joined detail line.
func (o *Orchestrator) fail(ctx context.Context, state *RuntimeState, stage contracts.StageName, failure *StageFailure) *Result {
	failure.Stage = string(stage)
	failure.Action = NextAction(failure.Code)
	rec := store.FailureRecord{
		RunID:       state.RunID,
		WorkspaceID: state.WorkspaceID,
		Stage:       stage,
		Code:        string(failure.Code),
		Detail:      failure.Detail,
		Validation:  failure.ValidationErrors,
		Guard:       failure.GuardFailures,
	}
	o.persist(func() error { return o.store.PersistPipelineFailure(ctx, rec) })
	logging.Get(logging.CategoryPipeline).Warnw("run failed",
		"run", state.RunID, "stage", string(stage), "code", string(failure.Code), "detail", failure.Detail)

	return &Result{
		RunID:     state.RunID,
		Status:    StatusFailed,
		Artifacts: state.Artifacts,
		Failure:   failure,
	}
}

// persist runs a store write and logs the error. Store trouble never
// changes the run outcome.
func (o *Orchestrator) persist(write func() error) {
	if err := write(); err != nil {
		logging.Get(logging.CategoryPipeline).Warnw("store write failed", "error", err)
	}
}

func joinValidation(errs []contracts.ValidationError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

func joinGuard(failures []doctrine.Failure) string {
	parts := make([]string, len(failures))
	for i, f := range failures {
		parts[i] = f.String()
	}
	return strings.Join(parts, "; ")
}

// Replay loads a persisted stage output and revalidates it against the
// current contract. It answers "would this stored artifact still pass".
func (o *Orchestrator) Replay(ctx context.Context, runID string, stage contracts.StageName) (contracts.Artifact, error) {
	rec, err := o.store.LoadStageOutput(ctx, runID, stage)
	if err != nil {
		return nil, err
	}
	artifact, err := contracts.DecodeArtifact(stage, rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("stored artifact for run %s stage %s no longer decodes: %w", runID, stage, err)
	}
	if errs := contracts.ValidateArtifact(artifact); len(errs) > 0 {
		return nil, fmt.Errorf("stored artifact for run %s stage %s no longer validates: %s", runID, stage, joinValidation(errs))
	}
	return artifact, nil
}
