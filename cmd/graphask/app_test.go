package main

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/graphask/internal/config"
	"github.com/zero-day-ai/graphask/internal/synth"
)

func testApp(t *testing.T, fs afero.Fs, mutate func(cfg *config.Config)) *app {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	return &app{cfg: cfg, fs: fs}
}

func TestApp_EngineConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/graphask/examples.yaml", []byte(`
- question: Who knows Ann?
  query: MATCH (p:Person)-[:KNOWS]->(:Person {name: 'Ann'}) RETURN p.name
`), 0o644))

	a := testApp(t, fs, func(cfg *config.Config) {
		cfg.Engine.MaxAttempts = 4
		cfg.Engine.TopK = 7
		cfg.Engine.PerformExplanation = true
		cfg.Engine.ReturnCandidate = true
		cfg.Engine.ExamplesFile = "/etc/graphask/examples.yaml"
	})

	ec, err := a.engineConfig()
	require.NoError(t, err)
	assert.Equal(t, 4, ec.MaxAttempts)
	assert.Equal(t, 7, ec.TopK)
	assert.True(t, ec.PerformExplanation)
	assert.True(t, ec.ReturnCandidate)
	assert.Equal(t, synth.SafetyReadOnly, ec.SafetyMode)
	require.Len(t, ec.Examples, 1)
	assert.Equal(t, "Who knows Ann?", ec.Examples[0].Question)
}

func TestApp_EngineConfigMissingExamples(t *testing.T) {
	a := testApp(t, afero.NewMemMapFs(), func(cfg *config.Config) {
		cfg.Engine.ExamplesFile = "/nope.yaml"
	})
	_, err := a.engineConfig()
	require.Error(t, err)
}

func TestApp_PromptOverrides(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/prompts/explain.tmpl", []byte("Answer {{.Question}} from {{toJSON .Rows}}"), 0o644))

	a := testApp(t, fs, func(cfg *config.Config) {
		cfg.Engine.PromptFiles = map[string]string{"explain": "/prompts/explain.tmpl"}
	})
	overrides, err := a.promptOverrides()
	require.NoError(t, err)
	assert.Equal(t, "Answer {{.Question}} from {{toJSON .Rows}}", overrides[synth.PromptExplain])

	_, err = synth.NewPromptSet(synth.DialectCypher, overrides)
	assert.NoError(t, err)

	a.cfg.Engine.PromptFiles = map[string]string{"fix": "/prompts/missing.tmpl"}
	_, err = a.promptOverrides()
	assert.ErrorContains(t, err, "failed to read prompt file")
}

func TestApp_NoPromptOverrides(t *testing.T) {
	overrides, err := testApp(t, afero.NewMemMapFs(), nil).promptOverrides()
	require.NoError(t, err)
	assert.Nil(t, overrides)
}
