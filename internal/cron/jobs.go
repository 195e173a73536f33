package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flemzord/chatmem/internal/metrics"
)

// DefaultSchedule runs maintenance every five minutes.
const DefaultSchedule = "*/5 * * * *"

// DialogStore is the subset of conversation.Store used by the eviction jobs.
type DialogStore interface {
	SweepExpired(ttl time.Duration) int
	EnforceCapacityAll(limit int) int
}

// LaneCleaner drops per-conversation lanes once their dialog is gone.
// It is implemented by router.Router.
type LaneCleaner interface {
	CleanupLanes()
}

// DialogSweepJob deletes dialogs idle for longer than TTL.
type DialogSweepJob struct {
	Store        DialogStore
	TTL          time.Duration
	Lanes        LaneCleaner
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	ScheduleExpr string // empty = DefaultSchedule
}

// Compile-time interface check.
var _ Job = (*DialogSweepJob)(nil)

// Name implements Job.
func (j *DialogSweepJob) Name() string { return "dialog_sweep" }

// Schedule implements Job.
func (j *DialogSweepJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return DefaultSchedule
}

// Run implements Job.
func (j *DialogSweepJob) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("cron: dialog sweep cancelled: %w", ctx.Err())
	}
	j.Sweep()
	return nil
}

// Sweep removes expired dialogs now and returns how many were removed.
func (j *DialogSweepJob) Sweep() int {
	removed := j.Store.SweepExpired(j.TTL)
	afterEviction(removed, metrics.PolicyTTL, j.Lanes, j.Metrics)
	if removed > 0 {
		logger(j.Logger).Info("cron: expired dialogs removed", "count", removed, "ttl", j.TTL)
	}
	return removed
}

// DialogCapacityJob keeps at most Limit dialogs per owner.
type DialogCapacityJob struct {
	Store        DialogStore
	Limit        int
	Lanes        LaneCleaner
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	ScheduleExpr string // empty = DefaultSchedule
}

// Compile-time interface check.
var _ Job = (*DialogCapacityJob)(nil)

// Name implements Job.
func (j *DialogCapacityJob) Name() string { return "dialog_capacity" }

// Schedule implements Job.
func (j *DialogCapacityJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return DefaultSchedule
}

// Run implements Job.
func (j *DialogCapacityJob) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("cron: dialog capacity cancelled: %w", ctx.Err())
	}
	j.Enforce()
	return nil
}

// Enforce applies the per-owner limit now and returns how many dialogs
// were removed.
func (j *DialogCapacityJob) Enforce() int {
	removed := j.Store.EnforceCapacityAll(j.Limit)
	afterEviction(removed, metrics.PolicyCapacity, j.Lanes, j.Metrics)
	if removed > 0 {
		logger(j.Logger).Info("cron: dialogs over capacity removed", "count", removed, "limit", j.Limit)
	}
	return removed
}

// Maintenance runs both eviction policies on demand, outside the schedule.
type Maintenance struct {
	Sweep    *DialogSweepJob
	Capacity *DialogCapacityJob
}

// RunNow applies the TTL policy then the capacity policy and returns the
// number of dialogs each removed.
func (m *Maintenance) RunNow() (expired, overCapacity int) {
	if m.Sweep != nil {
		expired = m.Sweep.Sweep()
	}
	if m.Capacity != nil {
		overCapacity = m.Capacity.Enforce()
	}
	return expired, overCapacity
}

func afterEviction(removed int, policy string, lanes LaneCleaner, m *metrics.Metrics) {
	if removed == 0 {
		return
	}
	m.AddEvictions(policy, removed)
	if lanes != nil {
		lanes.CleanupLanes()
	}
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
