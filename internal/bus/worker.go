package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"

	"github.com/zero-day-ai/graphask/internal/config"
	"github.com/zero-day-ai/graphask/internal/types"
)

// Worker answers questions received on a NATS subject. Messages are consumed
// through a queue group so several processes can share the load, and at most
// cfg.Workers questions are answered concurrently per process.
type Worker struct {
	conn    *nats.Conn
	cfg     config.BusConfig
	engines map[string]Answerer
	logger  *slog.Logger
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithWorkerLogger sets the logger. Default is slog.Default().
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

// NewWorker creates a worker serving engines keyed by mode.
func NewWorker(conn *nats.Conn, cfg config.BusConfig, engines map[string]Answerer, opts ...WorkerOption) (*Worker, error) {
	if len(engines) == 0 {
		return nil, types.NewError(ErrCodeInvalidRequest, "at least one engine is required")
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	w := &Worker{
		conn:    conn,
		cfg:     cfg,
		engines: engines,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run subscribes and serves until ctx is canceled. In-flight questions are
// allowed to finish before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	msgs := make(chan *nats.Msg, w.cfg.Workers)
	sub, err := w.conn.ChanQueueSubscribe(w.cfg.Subject, w.cfg.QueueGroup, msgs)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", w.cfg.Subject, err)
	}
	w.logger.Info("bus worker started",
		"subject", w.cfg.Subject,
		"queue_group", w.cfg.QueueGroup,
		"workers", w.cfg.Workers,
	)

	var g errgroup.Group
	g.SetLimit(w.cfg.Workers)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case msg := <-msgs:
			g.Go(func() error {
				w.handle(context.WithoutCancel(ctx), msg)
				return nil
			})
		}
	}

	if err := sub.Unsubscribe(); err != nil {
		w.logger.Warn("unsubscribe failed", "error", err)
	}
	for len(msgs) > 0 {
		msg := <-msgs
		g.Go(func() error {
			w.handle(context.WithoutCancel(ctx), msg)
			return nil
		})
	}
	_ = g.Wait()
	w.logger.Info("bus worker stopped", "subject", w.cfg.Subject)
	return nil
}

func (w *Worker) handle(ctx context.Context, msg *nats.Msg) {
	if msg.Header != nil {
		ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(msg.Header))
	}

	data := w.encode(ctx, w.Process(ctx, msg.Data))
	if msg.Reply == "" {
		return
	}
	if err := msg.Respond(data); err != nil {
		w.logger.ErrorContext(ctx, "failed to send reply", "error", err)
	}
}

// encode marshals reply. A reply that cannot be encoded is replaced by an
// error reply so the requester is never left waiting.
func (w *Worker) encode(ctx context.Context, reply Reply) []byte {
	data, err := json.Marshal(reply)
	if err == nil {
		return data
	}
	w.logger.ErrorContext(ctx, "failed to marshal reply", "error", err)

	fallback := errorReply(types.WrapError(ErrCodeEncodeFailed, "failed to encode reply", err))
	if reply.Result != nil {
		fallback.Error.Attempts = reply.Result.Attempts
	}
	data, err = json.Marshal(fallback)
	if err != nil {
		fallback.Error.Attempts = nil
		data, _ = json.Marshal(fallback)
	}
	return data
}

// Process decodes one request, answers it under the configured timeout and
// returns the reply.
func (w *Worker) Process(ctx context.Context, data []byte) Reply {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return errorReply(types.WrapError(ErrCodeInvalidRequest, "invalid request", err))
	}

	mode := normalizeMode(req.Mode)
	engine, ok := w.engines[mode]
	if !ok {
		return errorReply(types.NewError(ErrCodeInvalidRequest, "unsupported mode: "+req.Mode))
	}

	if w.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := engine.Answer(ctx, req.Question)
	if err != nil {
		w.logger.WarnContext(ctx, "question failed",
			"mode", mode,
			"duration", time.Since(start),
			"error", err,
		)
		return errorReply(err)
	}

	w.logger.InfoContext(ctx, "question answered",
		"mode", mode,
		"run_id", result.RunID,
		"attempts", result.AttemptCount(),
		"duration", time.Since(start),
	)
	return Reply{Result: result}
}

// Health reports the state of the NATS connection.
func (w *Worker) Health(ctx context.Context) types.HealthStatus {
	return ConnectionHealth(w.conn)
}

// ConnectionHealth maps a NATS connection status to a health status.
func ConnectionHealth(conn *nats.Conn) types.HealthStatus {
	if conn == nil {
		return types.Unhealthy("nats: not connected")
	}
	switch conn.Status() {
	case nats.CONNECTED:
		return types.Healthy("nats: connected to " + conn.ConnectedUrlRedacted())
	case nats.RECONNECTING, nats.CONNECTING:
		return types.Degraded("nats: " + conn.Status().String())
	default:
		return types.Unhealthy("nats: " + conn.Status().String())
	}
}
