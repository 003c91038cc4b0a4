package synth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptSet_Render(t *testing.T) {
	data := promptData{
		Question:       "Who knows Bob?",
		Schema:         "Node properties:\nPerson {name: STRING}",
		Examples:       []Example{{Question: "How many?", Query: "MATCH (n) RETURN count(n)"}},
		PriorCandidate: "MATCH (p) RETURN p.x",
		PriorError:     "unknown field `x`",
		Candidate:      "MATCH (p) RETURN p.name",
		Rows:           []map[string]any{{"name": "Alice"}},
	}

	tests := []struct {
		name     string
		dialect  Dialect
		kind     PromptKind
		ordered  []string
		contains []string
	}{
		{
			name:     "cypher generate",
			dialect:  DialectCypher,
			kind:     PromptGenerate,
			ordered:  []string{"Person {name: STRING}", "Question: How many?", "```cypher\nMATCH (n) RETURN count(n)\n```", "Question: Who knows Bob?"},
			contains: []string{"Never use CREATE", "case-insensitively", "tagged cypher"},
		},
		{
			name:     "cypher fix",
			dialect:  DialectCypher,
			kind:     PromptFix,
			ordered:  []string{"Person {name: STRING}", "MATCH (p) RETURN p.x", "unknown field `x`"},
			contains: []string{"failed"},
		},
		{
			name:     "script generate",
			dialect:  DialectScript,
			kind:     PromptGenerate,
			ordered:  []string{"G.nodes", "Person {name: STRING}", "Question: Who knows Bob?"},
			contains: []string{"FINAL_RESULT", "tagged python"},
		},
		{
			name:     "explain",
			dialect:  DialectCypher,
			kind:     PromptExplain,
			ordered:  []string{"Question: Who knows Bob?", "MATCH (p) RETURN p.name", `[{"name":"Alice"}]`},
			contains: []string{"do not know"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := NewPromptSet(tt.dialect, nil)
			require.NoError(t, err)

			out, err := set.render(tt.kind, data)
			require.NoError(t, err)

			last := -1
			for _, s := range tt.ordered {
				idx := strings.Index(out, s)
				require.GreaterOrEqual(t, idx, 0, "missing %q in:\n%s", s, out)
				assert.Greater(t, idx, last, "%q out of order", s)
				last = idx
			}
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
		})
	}
}

func TestPromptSet_NoExamplesSection(t *testing.T) {
	set, err := NewPromptSet(DialectCypher, nil)
	require.NoError(t, err)

	out, err := set.render(PromptGenerate, promptData{Question: "q", Schema: "s"})
	require.NoError(t, err)
	assert.NotContains(t, out, "Examples:")
}

func TestPromptSet_Overrides(t *testing.T) {
	set, err := NewPromptSet(DialectCypher, map[PromptKind]string{
		PromptExplain: "Answer {{.Question}} from {{toJSON .Rows}}",
	})
	require.NoError(t, err)

	out, err := set.render(PromptExplain, promptData{Question: "q", Rows: []map[string]any{{"a": 1}}})
	require.NoError(t, err)
	assert.Equal(t, `Answer q from [{"a":1}]`, out)

	_, err = NewPromptSet(DialectCypher, map[PromptKind]string{"summary": "x"})
	assert.Equal(t, ErrCodeInvalidPrompt, CodeOf(err))

	set, err = NewPromptSet(DialectCypher, map[PromptKind]string{PromptFix: "{{.Missing}}"})
	require.NoError(t, err)
	_, err = set.render(PromptFix, promptData{})
	assert.Equal(t, ErrCodeInvalidPrompt, CodeOf(err))
}
