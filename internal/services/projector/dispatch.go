package projector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmmetrics "github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcoot/qhunt/internal/model"
)

// UpdatesTopic carries committed updates from the request path to the projector
const UpdatesTopic = "qhunt.updates"

// Dispatcher hands a committed update to the projection.
// Dispatch never fails the caller: the ledger write has already happened.
type Dispatcher interface {
	Dispatch(ctx context.Context, update model.Update)
}

// Inline applies updates synchronously on the caller's goroutine
type Inline struct {
	projector *Projector
	logger    *slog.Logger
}

// NewInline creates a dispatcher that projects in the request path
func NewInline(projector *Projector, logger *slog.Logger) *Inline {
	return &Inline{
		projector: projector,
		logger:    logger.With(slog.String("component", "dispatch-inline")),
	}
}

func (d *Inline) Dispatch(ctx context.Context, update model.Update) {
	if err := d.projector.Apply(ctx, update); err != nil {
		d.logger.Warn("projection failed, leaderboard may be stale",
			slog.String("event_id", string(update.EventID)),
			slog.String("update", string(update.Type)),
			slog.Any("error", err),
		)
	}
}

// QueueConfig holds settings for the queued dispatcher
type QueueConfig struct {
	Buffer        int64
	MaxRetries    int
	RetryInterval time.Duration
	CloseTimeout  time.Duration
}

// DefaultQueueConfig returns the default queue settings
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Buffer:        256,
		MaxRetries:    3,
		RetryInterval: 50 * time.Millisecond,
		CloseTimeout:  5 * time.Second,
	}
}

// Queue publishes updates to an in-process watermill topic consumed by a router
// that applies them to the projector, retrying failed projections.
type Queue struct {
	pubSub    *gochannel.GoChannel
	router    *message.Router
	projector *Projector
	logger    *slog.Logger
}

// NewQueue creates the pub/sub and router. Call Run before dispatching.
// registry may be nil to skip router metrics.
func NewQueue(projector *Projector, cfg QueueConfig, registry *prometheus.Registry, logger *slog.Logger) (*Queue, error) {
	logger = logger.With(slog.String("component", "dispatch-queue"))
	wmLogger := watermill.NewSlogLogger(logger)

	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.Buffer,
	}, wmLogger)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("projector.NewQueue: %w", err)
	}

	q := &Queue{
		pubSub:    pubSub,
		router:    router,
		projector: projector,
		logger:    logger,
	}

	router.AddMiddleware(
		q.dropExhausted,
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      cfg.MaxRetries,
			InitialInterval: cfg.RetryInterval,
			Logger:          wmLogger,
		}.Middleware,
	)

	if registry != nil {
		builder := wmmetrics.NewPrometheusMetricsBuilder(registry, "qhunt", "projector")
		builder.AddPrometheusRouterMetrics(router)
	}

	router.AddNoPublisherHandler("projector", UpdatesTopic, pubSub, q.handle)

	return q, nil
}

// Run consumes updates until ctx is cancelled or Close is called
func (q *Queue) Run(ctx context.Context) error {
	return q.router.Run(ctx)
}

// Running is closed once the consumer is subscribed
func (q *Queue) Running() chan struct{} {
	return q.router.Running()
}

// Close stops the router and the pub/sub
func (q *Queue) Close() error {
	if err := q.router.Close(); err != nil {
		return err
	}
	return q.pubSub.Close()
}

func (q *Queue) Dispatch(ctx context.Context, update model.Update) {
	payload, err := json.Marshal(update)
	if err != nil {
		q.logger.Error("failed to encode update",
			slog.String("event_id", string(update.EventID)),
			slog.Any("error", err),
		)
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_id", string(update.EventID))
	msg.Metadata.Set("update", string(update.Type))

	if err := q.pubSub.Publish(UpdatesTopic, msg); err != nil {
		q.logger.Warn("failed to publish update, leaderboard may be stale",
			slog.String("event_id", string(update.EventID)),
			slog.String("update", string(update.Type)),
			slog.Any("error", err),
		)
	}
}

func (q *Queue) handle(msg *message.Message) error {
	var update model.Update
	if err := json.Unmarshal(msg.Payload, &update); err != nil {
		q.logger.Error("discarding malformed update",
			slog.String("message_uuid", msg.UUID),
			slog.Any("error", err),
		)
		return nil
	}
	return q.projector.Apply(msg.Context(), update)
}

// dropExhausted acks a message whose retries ran out; the next update rebuilds
// the projection from the ledger.
func (q *Queue) dropExhausted(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		produced, err := h(msg)
		if err != nil {
			q.logger.Error("dropping update after retries",
				slog.String("event_id", msg.Metadata.Get("event_id")),
				slog.String("update", msg.Metadata.Get("update")),
				slog.Any("error", err),
			)
			return nil, nil
		}
		return produced, nil
	}
}
