package jobs

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/doclab/doclab/internal/options"
	"github.com/doclab/doclab/internal/processor"
	"github.com/doclab/doclab/internal/storage"
)

// WorkerConfig holds worker tunables.
type WorkerConfig struct {
	RedisURL    string
	Concurrency int
	JobTimeout  time.Duration
}

// Worker consumes conversion tasks and persists results.
type Worker struct {
	server    *asynq.Server
	processor *processor.Processor
	store     *storage.JobStore
	logger    *zap.Logger
	timeout   time.Duration
}

// NewWorker builds an asynq server bound to the documents queue.
func NewWorker(cfg WorkerConfig, proc *processor.Processor, store *storage.JobStore, logger *zap.Logger) (*Worker, error) {
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	log := logger.Named("worker")
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			QueueDocuments: 10,
			"default":      1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error("task failed", zap.String("type", task.Type()), zap.Error(err))
		}),
	})

	return &Worker{
		server:    server,
		processor: proc,
		store:     store,
		logger:    log,
		timeout:   cfg.JobTimeout,
	}, nil
}

// Run blocks consuming tasks until Shutdown.
func (w *Worker) Run() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeProcessDocument, w.handleProcess)
	return w.server.Run(mux)
}

// Shutdown stops the server, waiting for in-flight tasks.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

// handleProcess runs one job end to end. Processing failures are stored in
// the job record and return nil so asynq does not retry them; only
// infrastructure errors (store writes) propagate.
func (w *Worker) handleProcess(ctx context.Context, task *asynq.Task) error {
	payload, err := DecodeProcessPayload(task)
	if err != nil {
		return err
	}

	if err := w.store.MarkProcessing(ctx, payload.JobID); err != nil {
		return err
	}

	opts, err := options.Decode(payload.Options)
	if err != nil {
		w.logger.Warn("job carries invalid options", zap.String("job", payload.JobID), zap.Error(err))
		return w.store.Fail(ctx, payload.JobID, err.Error())
	}

	src := processor.Source{Filename: payload.Filename, URL: payload.URL}
	if payload.FileData != "" {
		data, err := base64.StdEncoding.DecodeString(payload.FileData)
		if err != nil {
			return w.store.Fail(ctx, payload.JobID, "corrupt file payload")
		}
		src.Data = data
	}

	runCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	res := w.processor.Process(runCtx, src, opts)
	if !res.Success {
		w.logger.Warn("job failed", zap.String("job", payload.JobID), zap.String("error", res.Error))
		return w.store.Fail(ctx, payload.JobID, res.Error)
	}

	w.logger.Info("job completed", zap.String("job", payload.JobID))
	return w.store.Complete(ctx, payload.JobID, res)
}
