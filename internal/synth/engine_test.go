package synth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zero-day-ai/graphask/internal/graph"
	"github.com/zero-day-ai/graphask/internal/llm"
)

func fenced(lang, body string) string {
	return "Sure.\n```" + lang + "\n" + body + "\n```\n"
}

func testSchema() *graph.SchemaDescriptor {
	return &graph.SchemaDescriptor{
		Nodes: []graph.LabelSchema{{
			Label:      "Person",
			Properties: []graph.PropertySchema{{Name: "name", Types: []string{"String"}}},
		}},
		RelationshipTypes: []graph.RelationshipTypeSchema{{Type: "KNOWS"}},
		Patterns:          []graph.Pattern{{From: "Person", Type: "KNOWS", To: "Person"}},
	}
}

// recordingMetrics collects counter names for assertions.
type recordingMetrics struct {
	mu       sync.Mutex
	counters map[string]int64
}

func (r *recordingMetrics) RecordCounter(name string, value int64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counters == nil {
		r.counters = make(map[string]int64)
	}
	r.counters[name+"/"+labels["outcome"]] += value
}

func (r *recordingMetrics) RecordHistogram(string, float64, map[string]string) {}

func newCypherEngine(t *testing.T, oracle llm.Oracle, client graph.GraphClient, opts ...ConfigOption) *Engine {
	t.Helper()
	cfg, err := NewEngineConfig(opts...)
	require.NoError(t, err)
	e, err := New(cfg, oracle, NewCypherExecutor(client, nil), testSchema())
	require.NoError(t, err)
	return e
}

func TestEngine_FirstAttemptSucceeds(t *testing.T) {
	client := connectedMock(t)
	client.AddQueryResult(graph.QueryResult{
		Columns: []string{"name"},
		Records: []map[string]any{{"name": "Alice"}},
	})
	oracle := llm.NewStaticOracle(fenced("cypher", "MATCH (p:Person) RETURN p.name AS name"))

	res, err := newCypherEngine(t, oracle, client).Answer(context.Background(), "Who is there?")
	require.NoError(t, err)

	assert.Equal(t, 1, res.AttemptCount())
	assert.Equal(t, []map[string]any{{"name": "Alice"}}, res.Rows)
	assert.Empty(t, res.Explanation)
	assert.Nil(t, res.Candidate)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, StateSucceeded, res.Attempts[0].State)
	assert.Equal(t, 1, oracle.Calls())

	prompt := oracle.Prompts()[0]
	schemaAt := strings.Index(prompt, "(:Person)-[:KNOWS]->(:Person)")
	questionAt := strings.Index(prompt, "Question: Who is there?")
	require.GreaterOrEqual(t, schemaAt, 0)
	assert.Greater(t, questionAt, schemaAt)
	assert.Contains(t, prompt, "case-insensitively")
	assert.Contains(t, prompt, "exactly one fenced code block")
}

func TestEngine_RepairsFromExecutionError(t *testing.T) {
	client := connectedMock(t)
	client.SetQueryHandler(func(cypher string, _ map[string]any) (graph.QueryResult, error) {
		if strings.Contains(cypher, "p.x") {
			return graph.QueryResult{}, errors.New("unknown field `x`")
		}
		return graph.QueryResult{Columns: []string{"name"}, Records: []map[string]any{{"name": "Bob"}}}, nil
	})
	oracle := llm.NewStaticOracle(
		fenced("cypher", "MATCH (p:Person) RETURN p.x"),
		fenced("cypher", "MATCH (p:Person) RETURN p.name AS name"),
	)

	res, err := newCypherEngine(t, oracle, client, WithOutput(false, true, true)).Answer(context.Background(), "names?")
	require.NoError(t, err)

	assert.Equal(t, 2, res.AttemptCount())
	assert.Equal(t, "MATCH (p:Person) RETURN p.name AS name", res.Candidate.Body)
	assert.Equal(t, StateExecuting, res.Attempts[0].State)
	assert.Equal(t, "unknown field `x`", res.Attempts[0].Error)

	fix := oracle.Prompts()[1]
	assert.Contains(t, fix, "unknown field `x`")
	assert.Contains(t, fix, "MATCH (p:Person) RETURN p.x")
	assert.Contains(t, fix, "(:Person)-[:KNOWS]->(:Person)")
}

func TestEngine_AlwaysUnsafeExhaustsBudget(t *testing.T) {
	client := connectedMock(t)
	mutating := fenced("cypher", "MATCH (p:Person) DETACH DELETE p")
	oracle := llm.NewStaticOracle(mutating, mutating, mutating, mutating)

	_, err := newCypherEngine(t, oracle, client, WithMaxAttempts(3)).Answer(context.Background(), "delete everyone")
	require.Error(t, err)

	var exhausted *RepairBudgetExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.True(t, exhausted.OnlyRejections())
	assert.Contains(t, exhausted.LastError, "DELETE")

	var unsafe *UnsafeCandidateError
	require.ErrorAs(t, err, &unsafe)
	assert.Equal(t, "cypher-mutation", unsafe.Guardrail)

	assert.Equal(t, 3, oracle.Calls())
	assert.Empty(t, client.GetCallsByMethod("ReadQuery"))
	assert.Equal(t, ErrCodeRepairBudgetExhausted, CodeOf(err))
}

func TestEngine_ExhaustedAfterMixedFailuresIsNotUnsafe(t *testing.T) {
	client := connectedMock(t)
	client.SetQueryError(errors.New("boom"))
	oracle := llm.NewStaticOracle(
		fenced("cypher", "CREATE (n)"),
		fenced("cypher", "MATCH (n) RETURN n"),
	)

	_, err := newCypherEngine(t, oracle, client, WithMaxAttempts(2)).Answer(context.Background(), "q")

	var exhausted *RepairBudgetExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "boom", exhausted.LastError)

	var unsafe *UnsafeCandidateError
	assert.False(t, errors.As(err, &unsafe))
}

func TestEngine_BudgetInvariant(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5} {
		t.Run(fmt.Sprintf("max_attempts=%d", n), func(t *testing.T) {
			client := connectedMock(t)
			client.SetQueryError(errors.New("syntax error"))

			replies := make([]string, n+5)
			for i := range replies {
				replies[i] = fenced("cypher", fmt.Sprintf("RETURN %d", i))
			}
			oracle := llm.NewStaticOracle(replies...)

			_, err := newCypherEngine(t, oracle, client, WithMaxAttempts(n), WithOutput(true, true, false)).
				Answer(context.Background(), "q")

			var exhausted *RepairBudgetExhaustedError
			require.ErrorAs(t, err, &exhausted)
			assert.Equal(t, n, exhausted.Attempts)
			assert.Len(t, exhausted.Log, n)
			assert.Equal(t, n, oracle.Calls())
			assert.Len(t, client.GetCallsByMethod("ReadQuery"), n)
		})
	}
}

func TestEngine_MalformedGenerationIsFatal(t *testing.T) {
	client := connectedMock(t)
	oracle := llm.NewStaticOracle(
		"```cypher\nRETURN 1\n```\n```cypher\nRETURN 2\n```",
		fenced("cypher", "RETURN 3"),
	)

	_, err := newCypherEngine(t, oracle, client).Answer(context.Background(), "q")

	var malformed *MalformedGenerationError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 2, malformed.Blocks)
	assert.Equal(t, 1, oracle.Calls())
	assert.Empty(t, client.GetCallsByMethod("ReadQuery"))
}

func TestEngine_OracleFailureIsFatal(t *testing.T) {
	client := connectedMock(t)
	oracle := llm.NewStaticOracle("").FailOn(0, llm.NewRateLimitError("openai", errors.New("429")))

	_, err := newCypherEngine(t, oracle, client).Answer(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, ErrCodeOracleFailed, CodeOf(err))
	assert.Equal(t, 1, oracle.Calls())
}

func TestEngine_BackendFailureIsFatal(t *testing.T) {
	client := graph.NewMockGraphClient()
	oracle := llm.NewStaticOracle(fenced("cypher", "RETURN 1"), fenced("cypher", "RETURN 2"))

	_, err := newCypherEngine(t, oracle, client).Answer(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, ErrCodeBackendFailed, CodeOf(err))
	assert.Equal(t, 1, oracle.Calls())
}

func TestEngine_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	oracle := llm.NewStaticOracle(fenced("cypher", "RETURN 1"))

	_, err := newCypherEngine(t, oracle, connectedMock(t)).Answer(ctx, "q")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, oracle.Calls())
}

func TestEngine_CanceledBeforeExecution(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := connectedMock(t)
	oracle := llm.OracleFunc(func(context.Context, string) (string, error) {
		cancel()
		return fenced("cypher", "RETURN 1"), nil
	})

	_, err := newCypherEngine(t, oracle, client).Answer(ctx, "q")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, client.GetCallsByMethod("ReadQuery"))
}

func TestEngine_Explanation(t *testing.T) {
	tests := []struct {
		name        string
		explain     bool
		raw         bool
		explainErr  error
		wantRows    bool
		wantExplain bool
		wantWarning bool
	}{
		{name: "raw only", raw: true, wantRows: true},
		{name: "explanation only", explain: true, wantExplain: true},
		{name: "both", explain: true, raw: true, wantRows: true, wantExplain: true},
		{name: "explanation fails", explain: true, explainErr: errors.New("model overloaded"), wantRows: true, wantWarning: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := connectedMock(t)
			client.AddQueryResult(graph.QueryResult{Columns: []string{"n"}, Records: []map[string]any{{"n": int64(3)}}})

			oracle := llm.NewStaticOracle(fenced("cypher", "MATCH (p:Person) RETURN count(p) AS n"), "  There are 3 people.  ")
			if tt.explainErr != nil {
				oracle.FailOn(1, tt.explainErr)
			}

			res, err := newCypherEngine(t, oracle, client, WithOutput(tt.explain, tt.raw, false)).
				Answer(context.Background(), "How many people?")
			require.NoError(t, err)

			if tt.wantRows {
				assert.Equal(t, []map[string]any{{"n": int64(3)}}, res.Rows)
			} else {
				assert.Nil(t, res.Rows)
			}
			if tt.wantExplain {
				assert.Equal(t, "There are 3 people.", res.Explanation)
			} else {
				assert.Empty(t, res.Explanation)
			}
			assert.Equal(t, tt.wantWarning, res.ExplanationFailed)
			if tt.wantWarning {
				assert.Contains(t, res.Warning, "model overloaded")
			}

			wantCalls := 1
			if tt.explain {
				wantCalls = 2
				explain := oracle.Prompts()[1]
				assert.Contains(t, explain, "How many people?")
				assert.Contains(t, explain, "MATCH (p:Person) RETURN count(p) AS n")
				assert.Contains(t, explain, `[{"n":3}]`)
			}
			assert.Equal(t, wantCalls, oracle.Calls())
		})
	}
}

func TestEngine_ScriptMissingBindingFedBack(t *testing.T) {
	oracle := llm.NewStaticOracle(
		fenced("python", "answer = G.number_of_nodes()"),
		fenced("python", "FINAL_RESULT = [{\"count\": G.number_of_nodes()}]"),
	)
	cfg, err := NewEngineConfig()
	require.NoError(t, err)
	e, err := New(cfg, oracle, NewScriptExecutor(peopleGraph(t)), testSchema())
	require.NoError(t, err)

	res, err := e.Answer(context.Background(), "How many nodes?")
	require.NoError(t, err)

	assert.Equal(t, 2, res.AttemptCount())
	assert.Equal(t, "missing result binding", res.Attempts[0].Error)
	assert.Equal(t, []map[string]any{{"count": int64(4)}}, res.Rows)

	prompts := oracle.Prompts()
	assert.Contains(t, prompts[0], "FINAL_RESULT")
	assert.Contains(t, prompts[0], "nx.shortest_path")
	assert.Contains(t, prompts[1], "Error:\nmissing result binding")
}

func TestEngine_ExamplesRenderedBeforeQuestion(t *testing.T) {
	client := connectedMock(t)
	oracle := llm.NewStaticOracle(fenced("cypher", "RETURN 1"))
	e := newCypherEngine(t, oracle, client, WithExamples(Example{
		Question: "How many people?",
		Query:    "MATCH (p:Person) RETURN count(p)",
	}))

	_, err := e.Answer(context.Background(), "Who knows Bob?")
	require.NoError(t, err)

	prompt := oracle.Prompts()[0]
	exampleAt := strings.Index(prompt, "MATCH (p:Person) RETURN count(p)")
	questionAt := strings.Index(prompt, "Question: Who knows Bob?")
	require.GreaterOrEqual(t, exampleAt, 0)
	assert.Greater(t, questionAt, exampleAt)
}

func TestEngine_ConcurrentAnswersAreIndependent(t *testing.T) {
	client := connectedMock(t)
	client.SetQueryHandler(func(cypher string, _ map[string]any) (graph.QueryResult, error) {
		if strings.Contains(cypher, "bad") {
			return graph.QueryResult{}, errors.New("bad query")
		}
		return graph.QueryResult{Records: []map[string]any{{"ok": true}}}, nil
	})

	oracle := llm.OracleFunc(func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "bad query") {
			return fenced("cypher", "RETURN true AS ok"), nil
		}
		return fenced("cypher", "RETURN bad"), nil
	})
	e := newCypherEngine(t, oracle, client)

	var wg sync.WaitGroup
	results := make([]*FinalResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := e.Answer(context.Background(), fmt.Sprintf("question %d", i))
			if assert.NoError(t, err) {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, 2, res.AttemptCount())
	}
}

func TestEngine_Metrics(t *testing.T) {
	client := connectedMock(t)
	metrics := &recordingMetrics{}
	oracle := llm.NewStaticOracle(fenced("cypher", "RETURN 1"))
	cfg, err := NewEngineConfig()
	require.NoError(t, err)
	e, err := New(cfg, oracle, NewCypherExecutor(client, nil), nil, WithMetrics(metrics))
	require.NoError(t, err)

	_, err = e.Answer(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, int64(1), metrics.counters[MetricAnswers+"/success"])
}

func TestNew_Validation(t *testing.T) {
	cfg := DefaultEngineConfig()
	exec := NewCypherExecutor(graph.NewMockGraphClient(), nil)
	oracle := llm.NewStaticOracle()

	_, err := New(EngineConfig{}, oracle, exec, nil)
	assert.Equal(t, ErrCodeInvalidConfig, CodeOf(err))

	_, err = New(cfg, nil, exec, nil)
	assert.Equal(t, ErrCodeInvalidConfig, CodeOf(err))

	_, err = New(cfg, oracle, nil, nil)
	assert.Equal(t, ErrCodeInvalidConfig, CodeOf(err))

	_, err = New(cfg, oracle, exec, nil, WithPromptTemplates(map[PromptKind]string{PromptFix: "{{.Nope"}))
	assert.Equal(t, ErrCodeInvalidPrompt, CodeOf(err))

	e, err := New(cfg, oracle, exec, nil)
	require.NoError(t, err)
	_, err = e.Answer(context.Background(), "   ")
	assert.Equal(t, ErrCodeInvalidQuestion, CodeOf(err))
}
