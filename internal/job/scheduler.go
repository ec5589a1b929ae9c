package job

import (
	"context"
	"fmt"
	"time"

	"anoa.com/sparkvest/pkg/logger"
	"github.com/robfig/cron/v3"
)

const defaultTimeout = 10 * time.Minute

type Scheduler struct {
	cron    *cron.Cron
	jobs    []Job
	timeout time.Duration
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		jobs:    make([]Job, 0),
		timeout: defaultTimeout,
	}
}

// Register adds job and schedules it when it has a schedule.
func (s *Scheduler) Register(job Job) error {
	log := logger.With("scheduler")
	s.jobs = append(s.jobs, job)

	schedule := job.Schedule()
	if schedule == "" {
		log.Info().Str("job", job.Name()).Msg("registered as on-demand job")
		return nil
	}

	if _, err := s.cron.AddFunc(schedule, func() { s.run(job) }); err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name(), err)
	}
	log.Info().Str("job", job.Name()).Str("schedule", schedule).Msg("job scheduled")
	return nil
}

func (s *Scheduler) run(job Job) {
	log := logger.With("scheduler")
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	if err := job.Execute(ctx); err != nil {
		log.Error().Err(err).Str("job", job.Name()).Msg("job failed")
		return
	}
	log.Info().Str("job", job.Name()).Dur("took", time.Since(started)).Msg("job completed")
}

func (s *Scheduler) Start() {
	log := logger.With("scheduler")
	s.cron.Start()
	log.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
}

// Stop halts the scheduler and waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	log := logger.With("scheduler")
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	log.Info().Msg("scheduler stopped")
}

// RunByName executes a registered job immediately.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name() == name {
			return job.Execute(ctx)
		}
	}
	return fmt.Errorf("job %q not registered", name)
}

func (s *Scheduler) Registered() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}
