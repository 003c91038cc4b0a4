package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zero-day-ai/graphask/internal/guardrail"
)

func TestContentFilter_Construction(t *testing.T) {
	_, err := NewContentFilter(ContentFilterConfig{
		Patterns: []ContentPattern{{Pattern: `[invalid(`}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid regex pattern")

	cf, err := NewContentFilter(ContentFilterConfig{})
	require.NoError(t, err)
	assert.Equal(t, "content-filter", cf.Name())
	assert.Equal(t, guardrail.GuardrailTypeContent, cf.Type())
}

func TestContentFilter_CheckInput(t *testing.T) {
	cf, err := NewContentFilter(ContentFilterConfig{
		Name: "deny-secrets",
		Patterns: []ContentPattern{
			{Pattern: `(?i):Secret\b`, Action: guardrail.GuardrailActionBlock},
			{Pattern: `(?i)shortestPath`, Action: guardrail.GuardrailActionWarn},
			{Pattern: `(?i)apoc\.load`},
		},
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		input  string
		action guardrail.GuardrailAction
	}{
		{name: "no match", input: "MATCH (n:Person) RETURN n", action: guardrail.GuardrailActionAllow},
		{name: "block", input: "MATCH (n:Secret) RETURN n", action: guardrail.GuardrailActionBlock},
		{name: "warn", input: "MATCH p = shortestPath((a)-[*]-(b)) RETURN p", action: guardrail.GuardrailActionWarn},
		{name: "default action blocks", input: "CALL apoc.load.json($u)", action: guardrail.GuardrailActionBlock},
		{
			name:   "most restrictive wins",
			input:  "MATCH (s:Secret), p = shortestPath((a)-[*]-(s)) RETURN p",
			action: guardrail.GuardrailActionBlock,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := cf.CheckInput(context.Background(), guardrail.GuardrailInput{Content: tt.input})
			require.NoError(t, err)
			assert.Equal(t, tt.action, result.Action)
		})
	}
}

func TestSizeLimit(t *testing.T) {
	s := SizeLimit{MaxBytes: 10}
	r, err := s.CheckInput(context.Background(), guardrail.GuardrailInput{Content: "RETURN 1"})
	require.NoError(t, err)
	assert.False(t, r.IsBlocked())

	r, err = s.CheckInput(context.Background(), guardrail.GuardrailInput{Content: "MATCH (n) RETURN n"})
	require.NoError(t, err)
	assert.True(t, r.IsBlocked())
}
