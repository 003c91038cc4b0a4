package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/graphask/cmd/graphask/internal"
	"github.com/zero-day-ai/graphask/internal/bus"
	"github.com/zero-day-ai/graphask/internal/config"
	"github.com/zero-day-ai/graphask/internal/synth"
)

// askFlags are per-question overrides of the engine configuration.
type askFlags struct {
	mode         string
	maxAttempts  int
	topK         int
	explain      bool
	raw          bool
	showQuery    bool
	unrestricted bool
	viaBus       bool
	timeout      time.Duration
}

var (
	askOpts     askFlags
	analyzeOpts askFlags
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question with a generated Cypher query",
	Long: `Generate a Cypher query for the question, run it read-only against the
graph and print the rows, an explanation, or both.

When the query fails, the database error is sent back to the model and a
corrected query is tried, up to engine.max_attempts generations.

Examples:
  graphask ask "Which people know Alice?"
  graphask ask --explain --show-query "How many restaurants has Bo visited?"
  graphask ask -o json "Top 5 most visited restaurants"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd, strings.Join(args, " "), askOpts)
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <question>",
	Short: "Answer a question with a generated graph-analytics script",
	Long: `Load a read-only snapshot of the graph into memory, generate a Starlark
script that analyzes it (shortest paths, centrality, components) and print
the value the script binds to FINAL_RESULT.

Examples:
  graphask analyze "Who is the most central person in the KNOWS network?"
  graphask analyze "How many hops separate Ann from Noma?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := analyzeOpts
		opts.mode = bus.ModeScript
		return runAsk(cmd, strings.Join(args, " "), opts)
	},
}

func registerAskFlags(cmd *cobra.Command, opts *askFlags, withMode bool) {
	if withMode {
		cmd.Flags().StringVarP(&opts.mode, "mode", "m", bus.ModeCypher, "Generation mode (cypher|script)")
		cmd.Flags().BoolVar(&opts.viaBus, "via-bus", false, "Send the question to a `graphask serve` worker over NATS")
	}
	cmd.Flags().IntVar(&opts.maxAttempts, "max-attempts", 0, "Override engine.max_attempts")
	cmd.Flags().IntVar(&opts.topK, "top-k", 0, "Override engine.top_k")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Ask the model to explain the rows")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Include the rows in the output")
	cmd.Flags().BoolVar(&opts.showQuery, "show-query", false, "Include the generated query or script")
	cmd.Flags().BoolVar(&opts.unrestricted, "unrestricted", false, "Skip the read-only safety guard")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Override engine.timeout (0 for no limit)")
}

func init() {
	registerAskFlags(askCmd, &askOpts, true)
	registerAskFlags(analyzeCmd, &analyzeOpts, false)
}

// applyAskFlags layers explicitly set flags over the configured engine
// settings. Asking for --explain alone drops the rows unless --raw is also set.
func applyAskFlags(cmd *cobra.Command, base config.EngineConfig, opts askFlags) config.EngineConfig {
	out := base
	changed := func(name string) bool { return cmd.Flags().Changed(name) }

	if changed("max-attempts") {
		out.MaxAttempts = opts.maxAttempts
	}
	if changed("top-k") {
		out.TopK = opts.topK
	}
	if changed("explain") {
		out.PerformExplanation = opts.explain
		if opts.explain && !changed("raw") {
			out.ReturnRawResult = false
		}
	}
	if changed("raw") {
		out.ReturnRawResult = opts.raw
	}
	if changed("show-query") {
		out.ReturnCandidate = opts.showQuery
	}
	if opts.unrestricted {
		out.SafetyMode = string(synth.SafetyUnrestricted)
	}
	if changed("timeout") {
		out.Timeout = opts.timeout
	}
	return out
}

func runAsk(cmd *cobra.Command, question string, opts askFlags) error {
	ctx := cmd.Context()
	cfg := *loadedConfig
	cfg.Engine = applyAskFlags(cmd, cfg.Engine, opts)
	formatter := internal.NewFormatter(globalFlags.GetOutputFormat(), cmd.OutOrStdout())

	if opts.viaBus {
		return askViaBus(ctx, cmd, &cfg, question, opts.mode, formatter)
	}

	a, err := newApp(ctx, &cfg, appFs, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	engineCfg, err := a.engineConfig()
	if err != nil {
		return err
	}
	if isTerminal() && globalFlags.GetOutputFormat() == internal.FormatText && !globalFlags.Quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "Thinking (%s, up to %d attempts)...\n", opts.mode, engineCfg.MaxAttempts)
	}

	engine, err := a.newEngine(ctx, opts.mode, engineCfg)
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	result, err := engine.Answer(ctx, question)
	if err != nil {
		return err
	}
	return printResult(cmd, formatter, result)
}

func askViaBus(ctx context.Context, cmd *cobra.Command, cfg *config.Config, question, mode string, formatter internal.Formatter) error {
	conn, err := bus.Connect(cfg.Bus.URL, "graphask-cli")
	if err != nil {
		return internal.WrapError(internal.ExitBackendError, "failed to reach the bus", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, cfg.Bus.RequestTimeout)
	defer cancel()

	result, err := bus.Ask(ctx, conn, cfg.Bus.Subject, bus.Request{Question: question, Mode: mode})
	if err != nil {
		return err
	}
	return printResult(cmd, formatter, result)
}

func printResult(cmd *cobra.Command, formatter internal.Formatter, result *synth.FinalResult) error {
	if err := formatter.PrintResult(result); err != nil {
		return err
	}
	if result.Warning != "" && globalFlags.GetOutputFormat() == internal.FormatText {
		cmd.PrintErrln("Warning:", result.Warning)
	}
	if globalFlags.IsVerbose() {
		cmd.PrintErrf("run %s answered in %d attempt(s)\n", result.RunID, result.AttemptCount())
	}
	return nil
}
