package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/ptdat/paperblog/internal/models"
)

// Runner is the scheduled unit of work. *Pipeline satisfies it.
type Runner interface {
	RunCurrentWindow(ctx context.Context, force bool) (*models.BlogArtifact, error)
}

// Scheduler triggers digest runs on a cron schedule. The default schedule
// generates one digest per week.
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	schedule string
}

// DefaultSchedule runs every Thursday at 08:00.
const DefaultSchedule = "0 8 * * 4"

// NewScheduler creates a Scheduler for the given cron expression. An empty
// schedule uses DefaultSchedule.
func NewScheduler(schedule string, runner Runner) *Scheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Scheduler{
		cron:     cron.New(),
		runner:   runner,
		schedule: schedule,
	}
}

// Start registers the job and starts the cron loop. The given context is
// passed to each run; a failed run is logged and does not stop the
// scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		slog.Info("running scheduled digest generation", "schedule", s.schedule)
		artifact, err := s.runner.RunCurrentWindow(ctx, false)
		if err != nil {
			slog.Error("scheduled run failed", "error", err)
			return
		}
		slog.Info("scheduled run completed",
			"artifact_id", artifact.ID,
			"papers", artifact.PaperCount,
			"status", artifact.Status,
		)
	})
	if err != nil {
		return fmt.Errorf("registering schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	slog.Info("scheduler started", "schedule", s.schedule)
	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	slog.Info("scheduler stopped")
}
