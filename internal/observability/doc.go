// Package observability wires the ambient telemetry of graphask: slog
// loggers with trace correlation and secret redaction, an OTLP tracer
// provider, OpenTelemetry metrics exported to Prometheus or OTLP, and a
// health monitor over the graph, LLM and bus backends.
//
// Initialize everything from the loaded configuration:
//
//	logger, err := observability.NewLogger(cfg.Logging, os.Stderr)
//	tracing, err := observability.InitTracing(ctx, cfg.Tracing)
//	defer tracing.Shutdown(ctx)
//	metrics, err := observability.InitMetrics(ctx, cfg.Metrics)
//	defer metrics.Shutdown(ctx)
//
//	engine, err := synth.New(engineCfg, oracle, executor, schema,
//	    synth.WithLogger(logger),
//	    synth.WithTracer(tracing.Tracer),
//	    synth.WithMetrics(metrics.Recorder()),
//	)
package observability
