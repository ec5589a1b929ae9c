package job

import "context"

// Job is a unit of background work run by the Scheduler.
type Job interface {
	// Name identifies the job in logs and on-demand runs.
	Name() string

	// Schedule is a cron spec such as "@every 1h" or "0 3 * * *".
	// An empty schedule registers the job for on-demand runs only.
	Schedule() string

	Execute(ctx context.Context) error
}
