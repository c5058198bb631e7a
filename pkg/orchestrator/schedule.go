package orchestrator

import (
	"context"
	"time"

	"github.com/adhocore/gronx"

	"github.com/esgscore/maturity/internal/logger"
)

// Scheduler drives an optional recurring batch sweep: every minute it
// checks whether the configured cron expression is due and, if so, runs
// the sweep function once. This is the only standing-process mode the
// orchestrator has; a one-shot CLI invocation never touches this file.
type Scheduler struct {
	expr string
	cron gronx.Gronx
}

// NewScheduler validates expr up front so a typo fails at startup rather
// than silently never firing.
func NewScheduler(expr string) (*Scheduler, error) {
	g := gronx.New()
	if !g.IsValid(expr) {
		return nil, &ScheduleError{Expr: expr}
	}
	return &Scheduler{expr: expr, cron: g}, nil
}

// ScheduleError is raised for an invalid cron expression.
type ScheduleError struct{ Expr string }

func (e *ScheduleError) Error() string { return "orchestrator: invalid cron expression: " + e.Expr }

// Run blocks, invoking sweep once per due minute-tick, until ctx is
// cancelled. sweep errors are logged, not fatal, so one bad document
// never stops the standing scheduler.
func (s *Scheduler) Run(ctx context.Context, sweep func(ctx context.Context) error) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			due, err := s.cron.IsDue(s.expr)
			if err != nil {
				logger.With(logger.Fields{"expr": s.expr, "err": err.Error()}).Error("cron evaluation failed")
				continue
			}
			if !due {
				continue
			}
			if err := sweep(ctx); err != nil {
				logger.With(logger.Fields{"expr": s.expr, "err": err.Error()}).Error("scheduled sweep failed")
			}
		}
	}
}
