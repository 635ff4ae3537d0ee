package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/doclab/doclab/internal/errors"
)

// QueueStats summarizes queue depth for the stats endpoint.
type QueueStats struct {
	Pending   int `json:"pending"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Enqueuer submits conversion tasks to redis.
type Enqueuer struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	redis     *redis.Client
	logger    *zap.Logger
}

// NewEnqueuer connects to redis via an asynq client.
func NewEnqueuer(redisURL string, logger *zap.Logger) (*Enqueuer, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	ropt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return &Enqueuer{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		redis:     redis.NewClient(ropt),
		logger:    logger.Named("enqueuer"),
	}, nil
}

// Ping verifies redis connectivity.
func (e *Enqueuer) Ping(ctx context.Context) error {
	if err := e.redis.Ping(ctx).Err(); err != nil {
		return apperrors.NewResourceError("redis unreachable", err)
	}
	return nil
}

// Enqueue submits one conversion task.
func (e *Enqueuer) Enqueue(ctx context.Context, p *ProcessPayload) error {
	task, err := NewProcessTask(p)
	if err != nil {
		return apperrors.NewResourceError("failed to build task", err)
	}
	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		return apperrors.NewResourceError("failed to enqueue task", err)
	}
	e.logger.Info("enqueued job",
		zap.String("job", p.JobID),
		zap.String("task", info.ID),
		zap.String("queue", info.Queue))
	return nil
}

// Stats reads queue depth from redis.
func (e *Enqueuer) Stats(ctx context.Context) (*QueueStats, error) {
	info, err := e.inspector.GetQueueInfo(QueueDocuments)
	if err != nil {
		return nil, apperrors.NewResourceError("failed to read queue info", err)
	}
	return &QueueStats{
		Pending:   info.Pending,
		Active:    info.Active,
		Completed: info.Completed,
		Failed:    info.Failed,
	}, nil
}

// Close releases the redis connections.
func (e *Enqueuer) Close() error {
	if err := e.redis.Close(); err != nil {
		return err
	}
	if err := e.inspector.Close(); err != nil {
		return err
	}
	return e.client.Close()
}
