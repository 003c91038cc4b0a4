package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/zero-day-ai/graphask/cmd/graphask/internal"
	"github.com/zero-day-ai/graphask/internal/bus"
	"github.com/zero-day-ai/graphask/internal/config"
	"github.com/zero-day-ai/graphask/internal/graph"
	"github.com/zero-day-ai/graphask/internal/guardrail/builtin"
	"github.com/zero-day-ai/graphask/internal/llm"
	"github.com/zero-day-ai/graphask/internal/llm/providers"
	"github.com/zero-day-ai/graphask/internal/observability"
	"github.com/zero-day-ai/graphask/internal/synth"
)

const shutdownTimeout = 10 * time.Second

// app holds the backends shared by every command that talks to the graph
// or the LLM. Fields are created lazily so `schema` never builds an oracle
// and `ask --via-bus` never dials Neo4j.
type app struct {
	cfg    *config.Config
	fs     afero.Fs
	logger *slog.Logger

	tracing *observability.Tracing
	metrics *observability.Metrics

	client graph.GraphClient
	oracle llm.Oracle

	schemaOnce sync.Once
	schema     *graph.SchemaDescriptor
	schemaErr  error
}

func newApp(ctx context.Context, cfg *config.Config, fs afero.Fs, logOut io.Writer) (*app, error) {
	logger, err := observability.NewLogger(cfg.Logging, logOut)
	if err != nil {
		return nil, internal.WrapError(internal.ExitConfigError, "invalid logging configuration", err)
	}
	slog.SetDefault(logger)

	tracing, err := observability.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		return nil, err
	}
	metrics, err := observability.InitMetrics(ctx, cfg.Metrics)
	if err != nil {
		_ = tracing.Shutdown(ctx)
		return nil, err
	}

	return &app{
		cfg:     cfg,
		fs:      fs,
		logger:  logger,
		tracing: tracing,
		metrics: metrics,
	}, nil
}

// graphClient connects to Neo4j on first use.
func (a *app) graphClient(ctx context.Context) (graph.GraphClient, error) {
	if a.client != nil {
		return a.client, nil
	}
	client, err := graph.NewNeo4jClient(a.cfg.Graph.Neo4j.ClientConfig())
	if err != nil {
		return nil, internal.WrapError(internal.ExitConfigError, "invalid graph configuration", err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	a.client = client
	return client, nil
}

func (a *app) llmOracle(ctx context.Context) (llm.Oracle, error) {
	if a.oracle != nil {
		return a.oracle, nil
	}
	oracle, _, err := providers.NewOracle(ctx, a.cfg.LLM)
	if err != nil {
		return nil, err
	}
	a.oracle = oracle
	return oracle, nil
}

// graphSchema introspects the database once per process.
func (a *app) graphSchema(ctx context.Context) (*graph.SchemaDescriptor, error) {
	a.schemaOnce.Do(func() {
		client, err := a.graphClient(ctx)
		if err != nil {
			a.schemaErr = err
			return
		}
		a.schema, a.schemaErr = graph.Introspect(ctx, client, graph.IntrospectOptions{
			MaxPatterns: a.cfg.Engine.Schema.MaxPatterns,
		})
	})
	return a.schema, a.schemaErr
}

// engineConfig converts the engine section of the configuration, loading the
// examples file when one is configured.
func (a *app) engineConfig() (synth.EngineConfig, error) {
	ec := a.cfg.Engine
	opts := []synth.ConfigOption{
		synth.WithMaxAttempts(ec.MaxAttempts),
		synth.WithTopK(ec.TopK),
		synth.WithOutput(ec.PerformExplanation, ec.ReturnRawResult, ec.ReturnCandidate),
		synth.WithSafetyMode(synth.SafetyMode(ec.SafetyMode)),
	}
	if ec.ExamplesFile != "" {
		examples, err := synth.LoadExamples(a.fs, ec.ExamplesFile)
		if err != nil {
			return synth.EngineConfig{}, err
		}
		opts = append(opts, synth.WithExamples(examples...))
	}
	return synth.NewEngineConfig(opts...)
}

// promptOverrides reads the configured prompt template files.
func (a *app) promptOverrides() (map[synth.PromptKind]string, error) {
	if len(a.cfg.Engine.PromptFiles) == 0 {
		return nil, nil
	}
	overrides := make(map[synth.PromptKind]string, len(a.cfg.Engine.PromptFiles))
	for kind, path := range a.cfg.Engine.PromptFiles {
		data, err := afero.ReadFile(a.fs, path)
		if err != nil {
			return nil, internal.WrapError(internal.ExitConfigError, "failed to read prompt file "+path, err)
		}
		overrides[synth.PromptKind(kind)] = string(data)
	}
	return overrides, nil
}

// newExecutor builds the executor for mode. Script mode loads the graph
// snapshot the scripts run against.
func (a *app) newExecutor(ctx context.Context, mode string) (synth.CandidateExecutor, error) {
	client, err := a.graphClient(ctx)
	if err != nil {
		return nil, err
	}

	switch mode {
	case bus.ModeCypher:
		return synth.NewCypherExecutor(client, nil), nil
	case bus.ModeScript:
		snapshot, err := graph.LoadSnapshot(ctx, client, graph.SnapshotOptions{
			MaxNodes: a.cfg.Engine.Snapshot.MaxNodes,
			MaxEdges: a.cfg.Engine.Snapshot.MaxEdges,
		})
		if err != nil {
			return nil, err
		}
		a.logger.InfoContext(ctx, "graph snapshot loaded",
			"nodes", snapshot.NodeCount(),
			"edges", snapshot.EdgeCount(),
		)
		opts := []synth.ScriptOption{synth.WithScriptLogger(a.logger)}
		if a.cfg.Engine.ScriptMaxSteps > 0 {
			opts = append(opts, synth.WithMaxSteps(a.cfg.Engine.ScriptMaxSteps))
		}
		return synth.NewScriptExecutor(snapshot, opts...), nil
	default:
		return nil, internal.NewCLIError(internal.ExitUsageError, "unsupported mode: "+mode+" (expected cypher or script)")
	}
}

// newEngine assembles a question-answering engine for mode.
func (a *app) newEngine(ctx context.Context, mode string, cfg synth.EngineConfig) (*synth.Engine, error) {
	oracle, err := a.llmOracle(ctx)
	if err != nil {
		return nil, err
	}
	executor, err := a.newExecutor(ctx, mode)
	if err != nil {
		return nil, err
	}
	schema, err := a.graphSchema(ctx)
	if err != nil {
		return nil, err
	}
	rails, err := builtin.ParseGuardrailConfigs(a.cfg.Engine.Guardrails)
	if err != nil {
		return nil, internal.WrapError(internal.ExitConfigError, "invalid guardrail configuration", err)
	}
	overrides, err := a.promptOverrides()
	if err != nil {
		return nil, err
	}

	return synth.New(cfg, oracle, executor, schema,
		synth.WithLogger(a.logger),
		synth.WithTracer(a.tracing.Tracer),
		synth.WithMetrics(a.metrics.Recorder()),
		synth.WithGuardrails(rails...),
		synth.WithPromptTemplates(overrides),
	)
}

// withTimeout applies engine.timeout to ctx when it is set.
func (a *app) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Engine.Timeout > 0 {
		return context.WithTimeout(ctx, a.cfg.Engine.Timeout)
	}
	return context.WithCancel(ctx)
}

// Close releases backends and flushes telemetry.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	handler := observability.NewErrorHandler(observability.StrategyLog, a.logger)
	var errs []error
	if a.client != nil {
		errs = append(errs, a.client.Close(ctx))
	}
	_ = handler.Handle(ctx, "tracing_shutdown", a.tracing.Shutdown(ctx))
	_ = handler.Handle(ctx, "metrics_shutdown", a.metrics.Shutdown(ctx))
	return errors.Join(errs...)
}
