package executor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecompass/internal/contracts"
)

type fakeBackend struct {
	reply string
	err   error
	calls int

	gotModel  string
	gotPrompt string
	gotInput  json.RawMessage
	gotSchema string
}

func (f *fakeBackend) Generate(_ context.Context, model, prompt string, input json.RawMessage, schema string) (string, error) {
	f.calls++
	f.gotModel, f.gotPrompt, f.gotInput, f.gotSchema = model, prompt, input, schema
	return f.reply, f.err
}

func ruleArtifact() contracts.Artifact {
	return &contracts.BlueOceanArtifact{
		Envelope: contracts.Envelope{
			SchemaVersion: "blue_ocean.v1",
			StageName:     contracts.StageBlueOcean,
			ModelID:       "rules/v1",
			PromptVersion: "blue_ocean.p1",
			Confidence:    contracts.ConfidenceLow,
			EvidenceRefs:  []string{"bucket:capacity_squeeze:high"},
			DataLimits:    contracts.DataLimits{WindowMode: "last_90_days", WindowDays: 90},
		},
		Moves: []contracts.Move{{
			Name:         "Maintenance plan",
			Rationale:    "Quiet months leave idle capacity.",
			CapacityNote: "Served by the current crew.",
		}},
	}
}

func TestExecute_RulesPathInvokesBuilder(t *testing.T) {
	backend := &fakeBackend{}
	e := New(backend)

	built := 0
	data, err := e.Execute(context.Background(), Request{
		Stage:   contracts.StageBlueOcean,
		ModelID: "rules/v1",
		Builder: func(context.Context) (contracts.Artifact, error) {
			built++
			return ruleArtifact(), nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, built)
	assert.Equal(t, 0, backend.calls, "rules path must never touch the backend")

	back, err := contracts.DecodeArtifact(contracts.StageBlueOcean, data)
	require.NoError(t, err)
	assert.Empty(t, contracts.ValidateArtifact(back))
}

func TestExecute_RuleBuilderErrorPropagates(t *testing.T) {
	e := New(nil)
	boom := errors.New("no upstream artifact")

	_, err := e.Execute(context.Background(), Request{
		Stage:   contracts.StageOwnerLoad,
		ModelID: "rules/v1",
		Builder: func(context.Context) (contracts.Artifact, error) { return nil, boom },
	})
	require.ErrorIs(t, err, boom)
}

func TestExecute_RemotePathForwardsAndParses(t *testing.T) {
	raw, err := contracts.EncodeArtifact(ruleArtifact())
	require.NoError(t, err)
	backend := &fakeBackend{reply: "```json\n" + string(raw) + "\n```"}
	e := New(backend)

	data, err := e.Execute(context.Background(), Request{
		Stage:   contracts.StageBlueOcean,
		ModelID: "gemini/gemini-2.5-flash",
		Prompt:  "propose moves",
		Schema:  `{"type":"object"}`,
		Input:   map[string]interface{}{"industry": "plumbing"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, "gemini-2.5-flash", backend.gotModel, "namespace prefix must be stripped")
	assert.Equal(t, "propose moves", backend.gotPrompt)
	assert.JSONEq(t, `{"industry":"plumbing"}`, string(backend.gotInput))
	assert.Equal(t, `{"type":"object"}`, backend.gotSchema)
	assert.JSONEq(t, string(raw), string(data))
}

func TestExecute_DistinctNamedFailures(t *testing.T) {
	t.Run("unknown model namespace", func(t *testing.T) {
		e := New(&fakeBackend{})
		_, err := e.Execute(context.Background(), Request{Stage: contracts.StageOwnerLoad, ModelID: "anthropic/claude"})
		require.ErrorIs(t, err, ErrUnknownModel)
	})

	t.Run("missing backend for remote model", func(t *testing.T) {
		e := New(nil)
		_, err := e.Execute(context.Background(), Request{Stage: contracts.StageOwnerLoad, ModelID: "gemini/gemini-2.5-flash"})
		require.ErrorIs(t, err, ErrMissingCredentials)
	})

	t.Run("empty reply", func(t *testing.T) {
		e := New(&fakeBackend{reply: "   \n"})
		_, err := e.Execute(context.Background(), Request{Stage: contracts.StageOwnerLoad, ModelID: "gemini/gemini-2.5-flash"})
		require.ErrorIs(t, err, ErrEmptyReply)
	})

	t.Run("non-JSON reply", func(t *testing.T) {
		e := New(&fakeBackend{reply: "Here are my thoughts on the business..."})
		_, err := e.Execute(context.Background(), Request{Stage: contracts.StageOwnerLoad, ModelID: "gemini/gemini-2.5-flash"})
		require.ErrorIs(t, err, ErrReplyNotJSON)
	})

	t.Run("backend error is not reshaped", func(t *testing.T) {
		boom := errors.New("deadline exceeded")
		e := New(&fakeBackend{err: boom})
		_, err := e.Execute(context.Background(), Request{Stage: contracts.StageOwnerLoad, ModelID: "gemini/gemini-2.5-flash"})
		require.ErrorIs(t, err, boom)
	})
}

func TestNormalizeReply(t *testing.T) {
	cases := map[string]struct {
		in, want string
	}{
		"bare json":        {`{"a":1}`, `{"a":1}`},
		"fenced json":      {"```json\n{\"a\":1}\n```", `{"a":1}`},
		"anonymous fence":  {"```\n{\"a\":1}\n```", `{"a":1}`},
		"padded":           {"  {\"a\":1}  \n", `{"a":1}`},
		"unclosed fence":   {"```json\n{\"a\":1}", "```json\n{\"a\":1}"},
		"empty":            {"", ""},
		"whitespace only":  {" \n\t", ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeReply(tc.in))
		})
	}
}
