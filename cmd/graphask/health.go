package main

import (
	"context"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/graphask/cmd/graphask/internal"
	"github.com/zero-day-ai/graphask/internal/bus"
	"github.com/zero-day-ai/graphask/internal/observability"
	"github.com/zero-day-ai/graphask/internal/types"
)

var healthWithBus bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the graph database and LLM provider",
	Long: `Check every backend graphask depends on and print one line per
component. The command exits non-zero when any component is unhealthy.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, loadedConfig, appFs, os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()

		monitor := observability.NewHealthMonitor(a.metrics.Recorder(), a.logger)
		registerHealthChecks(ctx, a, monitor)
		if healthWithBus {
			conn, err := bus.Connect(a.cfg.Bus.URL, "graphask-health")
			if err == nil {
				defer conn.Close()
			}
			monitor.Register("nats", observability.HealthCheckerFunc(func(context.Context) types.HealthStatus {
				if err != nil {
					return types.Unhealthy(err.Error())
				}
				return bus.ConnectionHealth(conn)
			}))
		}

		results, overall := monitor.CheckAll(ctx)
		if err := printHealth(cmd, results, overall); err != nil {
			return err
		}
		if overall.IsUnhealthy() {
			return internal.NewCLIError(internal.ExitBackendError, overall.Message)
		}
		return nil
	},
}

func init() {
	healthCmd.Flags().BoolVar(&healthWithBus, "bus", false, "Also check the NATS connection")
}

// registerHealthChecks adds the graph and LLM checks. A backend that cannot
// even be constructed is reported as unhealthy rather than aborting the run.
func registerHealthChecks(ctx context.Context, a *app, monitor *observability.HealthMonitor) {
	if client, err := a.graphClient(ctx); err != nil {
		monitor.Register("neo4j", staticHealth(types.Unhealthy(err.Error())))
	} else {
		monitor.Register("neo4j", client)
	}

	oracle, err := a.llmOracle(ctx)
	switch {
	case err != nil:
		monitor.Register("llm", staticHealth(types.Unhealthy(err.Error())))
	default:
		if checker, ok := oracle.(observability.HealthChecker); ok {
			monitor.Register("llm", checker)
		} else {
			monitor.Register("llm", staticHealth(types.Healthy("provider does not report health")))
		}
	}
}

func staticHealth(status types.HealthStatus) observability.HealthChecker {
	return observability.HealthCheckerFunc(func(context.Context) types.HealthStatus { return status })
}

func printHealth(cmd *cobra.Command, results map[string]types.HealthStatus, overall types.HealthStatus) error {
	formatter := internal.NewFormatter(globalFlags.GetOutputFormat(), cmd.OutOrStdout())
	if globalFlags.GetOutputFormat() == internal.FormatJSON {
		return formatter.PrintJSON(map[string]any{
			"status":     overall,
			"components": results,
		})
	}

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		status := results[name]
		rows = append(rows, []string{name, string(status.State), status.Message})
	}
	if err := formatter.PrintTable([]string{"component", "state", "message"}, rows); err != nil {
		return err
	}
	cmd.Println()
	cmd.Printf("overall: %s\n", overall.State)
	return nil
}
