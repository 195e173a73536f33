// Package cron runs the conversation store's maintenance on a schedule:
// the idle-dialog sweep and the per-owner dialog limit.
package cron

import "context"

// Job is one scheduled maintenance task.
type Job interface {
	// Name identifies the job in logs and must be unique per Scheduler.
	Name() string

	// Schedule is a standard 5-field cron expression.
	Schedule() string

	// Run performs one pass. ctx is cancelled when the scheduler stops.
	Run(ctx context.Context) error
}
