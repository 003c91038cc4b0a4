package guardrail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zero-day-ai/graphask/internal/types"
	"go.opentelemetry.io/otel/trace/noop"
)

// mockGuardrail returns a fixed result and counts calls.
type mockGuardrail struct {
	name      string
	result    GuardrailResult
	err       error
	callCount int
}

func (m *mockGuardrail) Name() string { return m.name }

func (m *mockGuardrail) Type() GuardrailType { return GuardrailTypeContent }

func (m *mockGuardrail) CheckInput(ctx context.Context, input GuardrailInput) (GuardrailResult, error) {
	m.callCount++
	return m.result, m.err
}

func allow(name string) *mockGuardrail { return &mockGuardrail{name: name, result: NewAllowResult()} }

func block(name string) *mockGuardrail {
	return &mockGuardrail{name: name, result: NewBlockResult("blocked by " + name)}
}

func TestPipeline_Empty(t *testing.T) {
	p := NewGuardrailPipeline()
	assert.NoError(t, p.ProcessInput(context.Background(), GuardrailInput{Content: "anything"}))
}

func TestPipeline_ShortCircuitsOnBlock(t *testing.T) {
	first, second, third := allow("first"), block("second"), allow("third")
	p := NewGuardrailPipeline(first, second, third).WithTracer(noop.NewTracerProvider().Tracer("test"))

	err := p.ProcessInput(context.Background(), GuardrailInput{Content: "MATCH (n) RETURN n"})
	require.Error(t, err)

	var blocked *GuardrailBlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, "second", blocked.GuardrailName)
	assert.Equal(t, "blocked by second", blocked.Reason)
	assert.ErrorIs(t, err, types.NewError(ErrGuardrailBlocked, ""))

	assert.Equal(t, 1, first.callCount)
	assert.Equal(t, 1, second.callCount)
	assert.Equal(t, 0, third.callCount)
}

func TestPipeline_WarnLogsAndContinues(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	warn := &mockGuardrail{name: "warner", result: NewWarnResult("looks odd")}
	last := allow("last")
	p := NewGuardrailPipeline(warn, last).WithLogger(logger)

	require.NoError(t, p.ProcessInput(context.Background(), GuardrailInput{Content: "x"}))
	assert.Equal(t, 1, last.callCount)
	assert.Contains(t, buf.String(), "guardrail warning")
	assert.Contains(t, buf.String(), "looks odd")
}

func TestPipeline_GuardrailErrorBlocks(t *testing.T) {
	broken := &mockGuardrail{name: "broken", err: errors.New("regex engine exploded")}
	p := NewGuardrailPipeline(broken, allow("after"))

	err := p.ProcessInput(context.Background(), GuardrailInput{Content: "x"})
	require.Error(t, err)
	assert.Equal(t, ErrGuardrailExecution, types.CodeOf(err))
}

func TestPipeline_AddCopies(t *testing.T) {
	base := NewGuardrailPipeline(allow("a"))
	extended := base.Add(block("b"))

	assert.Len(t, base.Guardrails(), 1)
	assert.Len(t, extended.Guardrails(), 2)
	assert.NoError(t, base.ProcessInput(context.Background(), GuardrailInput{}))
	assert.Error(t, extended.ProcessInput(context.Background(), GuardrailInput{}))
}

func TestGuardrailResult(t *testing.T) {
	assert.True(t, NewBlockResult("x").IsBlocked())
	assert.False(t, NewBlockResult("x").AllowContinue())
	assert.True(t, NewWarnResult("x").AllowContinue())
	assert.True(t, NewAllowResult().AllowContinue())
}
