package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/policy"
	"github.com/Astemirdum/library-circulation/circulation/internal/repository"
)

// RunOverdueSweep marks active loans due before asOf as overdue and opens an overdue fine
// for each of them unless one is already pending. Every loan is handled in its own
// transaction, so an interrupted run can simply be started again.
func (s *Service) RunOverdueSweep(ctx context.Context, asOf time.Time) (model.SweepResult, error) {
	result := model.SweepResult{AsOf: model.Day(asOf)}
	candidates, err := s.repo.ListOverdueCandidates(ctx, asOf)
	if err != nil {
		return result, err
	}

	var errList []error
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			errList = append(errList, err)
			break
		}
		var (
			marked bool
			fine   *model.Fine
			isNew  bool
			loan   model.Loan
		)
		err := s.repo.RunInTx(ctx, func(ctx context.Context, tx repository.Repository) error {
			marked, fine, isNew = false, nil, false
			var err error
			if loan, err = tx.LockLoan(ctx, c.ID); err != nil {
				return err
			}
			if loan.Status != model.LoanActive || !policy.IsOverdue(loan, asOf) {
				return nil
			}
			loan.Status = model.LoanOverdue
			if err := tx.UpdateLoan(ctx, loan); err != nil {
				return err
			}
			marked = true
			fine, isNew, err = s.assessOverdueFine(ctx, tx, loan, asOf)
			return err
		})
		if err != nil {
			s.log.Error("overdue sweep", zap.String("loan", c.ID), zap.Error(err))
			errList = append(errList, fmt.Errorf("loan %s: %w", c.ID, err))
			continue
		}
		if !marked {
			continue
		}
		result.LoansMarkedOverdue++
		s.notifier.Notify(ctx, model.Notification{
			Type:      model.NotifyOverdue,
			MemberID:  loan.MemberID,
			SubjectID: loan.ID,
			Message:   fmt.Sprintf("loan is overdue since %s", loan.DueDate.Format(time.DateOnly)),
			Timestamp: s.now(),
		})
		if fine != nil && isNew {
			result.FinesCreated++
			s.notifyFine(ctx, *fine, true)
		}
	}

	s.activity("overdue_sweep", "system",
		zap.Time("as_of", result.AsOf),
		zap.Int("loans_marked_overdue", result.LoansMarkedOverdue),
		zap.Int("fines_created", result.FinesCreated))
	return result, errors.Join(errList...)
}

// SendDueDateReminders notifies members whose active loans fall due exactly dueSoonDays after asOf.
func (s *Service) SendDueDateReminders(ctx context.Context, asOf time.Time) (int, error) {
	due := model.Day(asOf).AddDate(0, 0, s.dueSoonDays)
	loans, err := s.repo.ListLoansDueOn(ctx, due)
	if err != nil {
		return 0, err
	}
	for _, loan := range loans {
		s.notifier.Notify(ctx, model.Notification{
			Type:      model.NotifyDueSoon,
			MemberID:  loan.MemberID,
			SubjectID: loan.ID,
			Message:   fmt.Sprintf("copy %s is due on %s", loan.CopyID, due.Format(time.DateOnly)),
			Timestamp: s.now(),
		})
	}
	return len(loans), nil
}
