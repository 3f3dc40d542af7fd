// Package sweeper runs the circulation batch jobs on a fixed interval.
package sweeper

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
)

type Jobs interface {
	RunOverdueSweep(ctx context.Context, asOf time.Time) (model.SweepResult, error)
	SendDueDateReminders(ctx context.Context, asOf time.Time) (int, error)
	ExpireReservations(ctx context.Context, asOf time.Time) (int, error)
}

type Sweeper struct {
	jobs     Jobs
	interval time.Duration
	now      func() time.Time
	log      *zap.Logger

	// remindedOn keeps reminders to one batch per day
	remindedOn time.Time
}

func New(jobs Jobs, interval time.Duration, log *zap.Logger) *Sweeper {
	return &Sweeper{
		jobs:     jobs,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log.Named("sweeper"),
	}
}

// Run executes a pass immediately and then once per interval until ctx is done.
// Pass failures are logged; the jobs are idempotent and the next tick retries them.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.RunOnce(ctx, s.now()); err != nil {
			s.log.Error("sweep pass", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) RunOnce(ctx context.Context, asOf time.Time) error {
	var errList []error

	res, err := s.jobs.RunOverdueSweep(ctx, asOf)
	if err != nil {
		errList = append(errList, err)
	}
	s.log.Info("overdue sweep",
		zap.Int("loans_marked_overdue", res.LoansMarkedOverdue), zap.Int("fines_created", res.FinesCreated))

	expired, err := s.jobs.ExpireReservations(ctx, asOf)
	if err != nil {
		errList = append(errList, err)
	}
	if expired > 0 {
		s.log.Info("reservations expired", zap.Int("count", expired))
	}

	today := model.Day(asOf)
	if !s.remindedOn.Equal(today) {
		n, err := s.jobs.SendDueDateReminders(ctx, asOf)
		if err != nil {
			errList = append(errList, err)
		} else {
			s.remindedOn = today
			s.log.Info("due date reminders", zap.Int("count", n))
		}
	}
	return errors.Join(errList...)
}
