package usecase

import (
	"context"
	"log/slog"
	"time"

	"TNSDigest/internal/logging"
	"TNSDigest/internal/ports"
)

// Scheduler wires the interval driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	location *time.Location
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs; each run covers the trigger's calendar day in loc.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, location: loc, logger: logger}
}

// Start registers the pipeline with the provided scheduler. A failed run is logged and the schedule continues.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		day := trigger.In(s.location)
		res, err := s.pipeline.ProcessDay(ctx, day)
		if err != nil {
			s.logger.Error("scheduled run failed", "day", day.Format("2006-01-02"), "run_id", res.RunID, "error", err)
			return
		}
		s.logger.Info("scheduled run finished", "day", day.Format("2006-01-02"), "run_id", res.RunID, "rows", res.Qualifying)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
