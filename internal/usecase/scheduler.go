package usecase

import (
	"context"
	"log/slog"
	"time"

	"FortuneScanner/internal/ports"
)

// Scheduler wires the daily trigger driver with the pipeline for daemon
// mode. When run history is available, days that already committed an ok
// document are skipped.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	recorder ports.RunRecorder
	loc      *time.Location
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop the recurring daily run.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, recorder ports.RunRecorder, loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{driver: driver, pipeline: pipeline, recorder: recorder, loc: loc, logger: logger}
}

// Start registers the pipeline with the provided scheduler driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		dateKST := trigger.In(s.loc).Format("2006-01-02")

		if s.recorder != nil {
			if ok, err := s.recorder.HasOKRun(ctx, dateKST); err == nil && ok {
				if s.logger != nil {
					s.logger.Info("skipping run, already committed", "date", dateKST)
				}
				return
			}
		}

		if err := s.pipeline.ProcessDay(ctx, trigger); err != nil && s.logger != nil {
			s.logger.Error("scheduled run failed", "date", dateKST, "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
