package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zero-day-ai/graphask/cmd/graphask/internal"
	"github.com/zero-day-ai/graphask/internal/bus"
	"github.com/zero-day-ai/graphask/internal/observability"
	"github.com/zero-day-ai/graphask/internal/types"
)

var (
	serveModes          []string
	serveHealthInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer questions published on NATS",
	Long: `Run a worker that answers JSON requests {"question": "...", "mode": "cypher"}
published on bus.subject and replies with the result or a structured error.
Several workers may share bus.queue_group.

When metrics use the prometheus exporter, /metrics and /healthz are served on
metrics.address.`,
	Args: cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringSliceVar(&serveModes, "modes", []string{bus.ModeCypher, bus.ModeScript}, "Modes to serve")
	serveCmd.Flags().DurationVar(&serveHealthInterval, "health-interval", 30*time.Second, "Interval between background health checks")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, loadedConfig, appFs, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	engineCfg, err := a.engineConfig()
	if err != nil {
		return err
	}
	engines := make(map[string]bus.Answerer, len(serveModes))
	for _, mode := range serveModes {
		engine, err := a.newEngine(ctx, mode, engineCfg)
		if err != nil {
			return err
		}
		engines[mode] = engine
	}

	conn, err := bus.Connect(a.cfg.Bus.URL, "graphask-worker")
	if err != nil {
		return internal.WrapError(internal.ExitBackendError, "failed to reach the bus", err)
	}
	defer conn.Close()

	worker, err := bus.NewWorker(conn, a.cfg.Bus, engines, bus.WithWorkerLogger(a.logger))
	if err != nil {
		return err
	}

	monitor := observability.NewHealthMonitor(a.metrics.Recorder(), a.logger)
	registerHealthChecks(ctx, a, monitor)
	monitor.Register("nats", worker)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(ctx) })
	g.Go(func() error {
		monitor.StartPeriodicCheck(ctx, serveHealthInterval)
		return nil
	})
	if a.metrics.Handler != nil {
		srv := &http.Server{
			Addr:              a.cfg.Metrics.Address,
			Handler:           opsMux(a.metrics.Handler, monitor),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			a.logger.Info("serving metrics", "address", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// opsMux serves Prometheus metrics and an aggregate health endpoint that
// returns 503 when any component is unhealthy.
func opsMux(metrics http.Handler, monitor *observability.HealthMonitor) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		results, overall := monitor.CheckAll(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if overall.State == types.HealthStateUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":     overall,
			"components": results,
		})
	})
	return mux
}
