package synth

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zero-day-ai/graphask/internal/guardrail"
	"github.com/zero-day-ai/graphask/internal/guardrail/builtin"
)

type failingGuardrail struct{}

func (failingGuardrail) Name() string                  { return "broken" }
func (failingGuardrail) Type() guardrail.GuardrailType { return guardrail.GuardrailTypeContent }
func (failingGuardrail) CheckInput(context.Context, guardrail.GuardrailInput) (guardrail.GuardrailResult, error) {
	return guardrail.GuardrailResult{}, errors.New("pattern store offline")
}

func TestSafetyGuard_Cypher(t *testing.T) {
	guard := NewSafetyGuard(DialectCypher, nil, nil, slog.Default())

	tests := []struct {
		name    string
		body    string
		mode    SafetyMode
		allowed bool
	}{
		{name: "read", body: "MATCH (n:Person) RETURN n.name", mode: SafetyReadOnly, allowed: true},
		{name: "create", body: "CREATE (n:Person {name: 'x'})", mode: SafetyReadOnly},
		{name: "lowercase detach delete", body: "match (n) detach delete n", mode: SafetyReadOnly},
		{name: "keyword in string", body: "MATCH (n) WHERE n.note = 'CREATE' RETURN n", mode: SafetyReadOnly, allowed: true},
		{name: "create allowed when unrestricted", body: "CREATE (n)", mode: SafetyUnrestricted, allowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := guard.Check(context.Background(), &Candidate{Body: tt.body, Language: "cypher"}, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, v.Allowed)
			if !tt.allowed {
				assert.Equal(t, "cypher-mutation", v.Guardrail)
				assert.NotEmpty(t, v.Reason)
			}
		})
	}
}

func TestSafetyGuard_ScriptUsesOnlyExtras(t *testing.T) {
	guard := NewSafetyGuard(DialectScript, nil, nil, slog.Default())
	assert.Empty(t, guard.Guardrails())

	v, err := guard.Check(context.Background(), &Candidate{Body: "FINAL_RESULT = 'CREATE'"}, SafetyReadOnly)
	require.NoError(t, err)
	assert.True(t, v.Allowed)

	filter, err := builtin.NewContentFilter(builtin.ContentFilterConfig{
		Patterns: []builtin.ContentPattern{{Pattern: `while\s+True`, Action: guardrail.GuardrailActionBlock}},
	})
	require.NoError(t, err)
	guard = NewSafetyGuard(DialectScript, []guardrail.Guardrail{filter}, nil, slog.Default())

	v, err = guard.Check(context.Background(), &Candidate{Body: "while True:\n    pass"}, SafetyReadOnly)
	require.NoError(t, err)
	assert.False(t, v.Allowed)
	assert.Equal(t, filter.Name(), v.Guardrail)
}

func TestSafetyGuard_FailingGuardrailRejects(t *testing.T) {
	guard := NewSafetyGuard(DialectCypher, []guardrail.Guardrail{failingGuardrail{}}, nil, slog.Default())

	v, err := guard.Check(context.Background(), &Candidate{Body: "MATCH (n) RETURN n"}, SafetyReadOnly)
	require.Error(t, err)
	assert.False(t, v.Allowed)
	assert.Contains(t, v.Reason, "pattern store offline")

	v, err = guard.Check(context.Background(), &Candidate{Body: "MATCH (n) RETURN n"}, SafetyUnrestricted)
	require.NoError(t, err)
	assert.True(t, v.Allowed)
}
