package computeworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/conceptlens/conceptlens-backend/internal/clients/redis"
	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/repos"
	"github.com/conceptlens/conceptlens-backend/internal/services"
	"github.com/conceptlens/conceptlens-backend/internal/types"
)

// Worker drains queued compute runs. The compute_run table is the queue of
// record and claiming uses SKIP LOCKED, so multiple workers are safe; the
// redis channel only wakes the loop early between poll ticks.
type Worker struct {
	log      *logger.Logger
	runRepo  repos.ComputeRunRepo
	compute  services.ComputeService
	queue    redisclient.ComputeQueue
	interval time.Duration
	wake     chan struct{}
}

func NewWorker(runRepo repos.ComputeRunRepo, compute services.ComputeService, queue redisclient.ComputeQueue, baseLog *logger.Logger) *Worker {
	return &Worker{
		log:      baseLog.With("component", "ComputeWorker"),
		runRepo:  runRepo,
		compute:  compute,
		queue:    queue,
		interval: 2 * time.Second,
		wake:     make(chan struct{}, 1),
	}
}

func (w *Worker) Start(ctx context.Context) {
	if w.queue != nil {
		err := w.queue.StartListener(ctx, func(msg redisclient.WakeMessage) {
			select {
			case w.wake <- struct{}{}:
			default:
			}
		})
		if err != nil {
			w.log.Warn("Compute wake listener unavailable, relying on polling", "error", err)
		}
	}

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.wake:
			case <-ticker.C:
			}
			w.drain(ctx)
		}
	}()
}

// drain claims and executes runs until the queue is empty.
func (w *Worker) drain(ctx context.Context) {
	for {
		run, err := w.runRepo.ClaimNextQueued(ctx, nil)
		if errors.Is(err, repos.ErrNotFound) {
			return
		}
		if err != nil {
			w.log.Warn("Failed to claim compute run", "error", err)
			return
		}
		w.run(ctx, run.ID)
	}
}

func (w *Worker) run(ctx context.Context, runID uuid.UUID) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Compute run panicked", "run_id", runID.String(), "panic", r)
			if run, err := w.runRepo.GetByID(ctx, nil, runID); err == nil {
				now := time.Now().UTC()
				run.Status = types.ComputeRunFailed
				run.ErrorMessage = fmt.Sprintf("panic: %v", r)
				run.CompletedAt = &now
				_ = w.runRepo.Update(ctx, nil, run)
			}
		}
	}()
	if err := w.compute.Execute(ctx, runID); err != nil {
		// Execute already recorded the failure on the run row.
		w.log.Warn("Compute run finished with error", "run_id", runID.String(), "error", err)
	}
}
