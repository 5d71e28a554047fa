package sched

import (
	"context"
	"time"

	pg "svmedia/internal/infra/db/postgres"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
)

// Task is one unit of periodic work.
type Task func(ctx context.Context) error

// Worker runs a Task on a fixed interval until its context is cancelled.
type Worker struct {
	name     string
	interval time.Duration
	task     Task
	log      *zerolog.Logger
}

func NewWorker(name string, interval time.Duration, task Task, logger *zerolog.Logger) *Worker {
	wl := logger.With().Str("component", name).Logger()
	return &Worker{
		name:     name,
		interval: interval,
		task:     task,
		log:      &wl,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping worker")
			return ctx.Err()
		case <-ticker.C:
			if err := w.task(ctx); err != nil && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("worker task failed")
			}
		}
	}
}

// PoolStatsTask publishes pgxpool statistics as gauges.
func PoolStatsTask(pool *pgxpool.Pool) Task {
	return func(context.Context) error {
		pg.ExportPoolStats(pool)
		return nil
	}
}
