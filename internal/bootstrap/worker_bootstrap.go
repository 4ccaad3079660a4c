package bootstrap

import (
	"context"
	"errors"

	"purchase_worker/adapter/in/worker"
	"purchase_worker/internal/stream"
	"purchase_worker/pkg/logger"
)

// streamReaders is the number of concurrent readers in one worker process.
const streamReaders = 4

type Worker struct {
	consumer *stream.Consumer
}

func NewWorker(deps *Dependencies) (*Worker, error) {
	if deps.Stream == nil {
		return nil, errors.New("worker mode requires REDIS_URL")
	}
	cfg := deps.Config

	processor := worker.NewEmailProcessor(deps.Service, deps.Cache, cfg.DedupTTL(), deps.Metrics)
	consumer := stream.NewConsumer(deps.Stream, cfg.StreamInbound, cfg.WorkerID, streamReaders, processor.Handle)

	return &Worker{consumer: consumer}, nil
}

// Run blocks until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	logger.Info("Starting worker...")
	return w.consumer.Run(ctx)
}
