package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecompass/internal/contracts"
)

func TestLoadSource_DefaultsCoverEveryStage(t *testing.T) {
	s, err := LoadSource("")
	require.NoError(t, err)
	for _, stage := range contracts.Stages() {
		p := s.Get(stage)
		assert.NotEmpty(t, p.Version, "stage %s", stage)
		assert.NotEmpty(t, p.Text, "stage %s", stage)
	}
}

func TestLoadSource_MissingFileUsesDefaults(t *testing.T) {
	s, err := LoadSource(filepath.Join(t.TempDir(), "prompts.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "owner_load.p1", s.Get(contracts.StageOwnerLoad).Version)
}

func TestLoadSource_FileOverridesSingleStage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
owner_load:
  version: owner_load.p2
  text: Revised owner load instructions.
`), 0o644))

	s, err := LoadSource(path)
	require.NoError(t, err)
	assert.Equal(t, "owner_load.p2", s.Get(contracts.StageOwnerLoad).Version)
	assert.Equal(t, "quant_signals.p1", s.Get(contracts.StageQuantSignals).Version)
}

func TestLoadSource_RejectsUnknownStageAndPartialEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("intent_mapping:\n  version: x\n  text: y\n"), 0o644))
	_, err := LoadSource(path)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("owner_load:\n  version: only-version\n"), 0o644))
	_, err = LoadSource(path)
	require.Error(t, err)
}
