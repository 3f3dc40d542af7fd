package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/policy"
	"github.com/Astemirdum/library-circulation/circulation/internal/repository"
	"github.com/Astemirdum/library-circulation/pkg/retry"
)

const checkoutAttempts = 3

func (s *Service) checkoutState(ctx context.Context, repo repository.Repository, memberID, copyID string, lock bool) (policy.CheckoutState, error) {
	getMember, getCopy := repo.GetMember, repo.GetCopy
	if lock {
		getMember, getCopy = repo.LockMember, repo.LockCopy
	}
	member, err := getMember(ctx, memberID)
	if err != nil {
		return policy.CheckoutState{}, unknown(err, "member", memberID)
	}
	cp, err := getCopy(ctx, copyID)
	if err != nil {
		return policy.CheckoutState{}, unknown(err, "copy", copyID)
	}
	p, err := s.resolvePolicy(ctx, repo, member.Tier)
	if err != nil {
		return policy.CheckoutState{}, err
	}
	open, err := repo.CountOpenLoans(ctx, memberID)
	if err != nil {
		return policy.CheckoutState{}, err
	}
	return policy.CheckoutState{Member: member, Policy: p, OpenLoans: open, Copy: cp}, nil
}

func (s *Service) CanCheckout(ctx context.Context, memberID, copyID string) (policy.Decision, error) {
	if memberID == "" || copyID == "" {
		return policy.Decision{}, errs.Validation("memberId and copyId are required")
	}
	state, err := s.checkoutState(ctx, s.repo, memberID, copyID, false)
	if err != nil {
		return policy.Decision{}, err
	}
	return policy.CanCheckout(state), nil
}

// Checkout decides and creates the loan in one transaction with the member and copy rows locked.
// Lost races surface as ErrConflict and are retried; a retry re-reads the state and usually ends in a denial.
func (s *Service) Checkout(ctx context.Context, req model.CheckoutRequest) (model.Loan, error) {
	if req.MemberID == "" || req.CopyID == "" || req.Actor == "" {
		return model.Loan{}, errs.Validation("memberId, copyId and actor are required")
	}
	var loan model.Loan
	err := retry.Do(ctx, func(ctx context.Context) error {
		return s.repo.RunInTx(ctx, func(ctx context.Context, tx repository.Repository) error {
			state, err := s.checkoutState(ctx, tx, req.MemberID, req.CopyID, true)
			if err != nil {
				return err
			}
			if err := denied(policy.CanCheckout(state)); err != nil {
				return err
			}
			now := s.now()
			loan = model.Loan{
				ID:           uuid.NewString(),
				MemberID:     req.MemberID,
				CopyID:       req.CopyID,
				CheckoutDate: now,
				DueDate:      policy.DueDate(now, *state.Policy),
				MaxRenewals:  state.Policy.MaxRenewals,
				Status:       model.LoanActive,
				CheckedOutBy: req.Actor,
				Notes:        req.Notes,
			}
			if err := tx.CreateLoan(ctx, loan); err != nil {
				return err
			}
			return tx.SetCopyStatus(ctx, req.CopyID, model.CopyAvailable, model.CopyOnLoan)
		})
	}, retry.WithMaxAttempts(checkoutAttempts), retry.WithRetryIf(errs.ErrConflict))
	if err != nil {
		return model.Loan{}, err
	}

	s.activity("checkout", req.Actor,
		zap.String("loan", loan.ID), zap.String("member", loan.MemberID), zap.String("copy", loan.CopyID))
	s.notifier.Notify(ctx, model.Notification{
		Type:      model.NotifyCheckout,
		MemberID:  loan.MemberID,
		SubjectID: loan.ID,
		Message:   fmt.Sprintf("copy %s checked out, due %s", loan.CopyID, loan.DueDate.Format(time.DateOnly)),
		Timestamp: loan.CheckoutDate,
	})
	return loan, nil
}

func (s *Service) GetLoan(ctx context.Context, loanID string) (model.Loan, error) {
	loan, err := s.repo.GetLoan(ctx, loanID)
	if err != nil {
		return model.Loan{}, unknown(err, "loan", loanID)
	}
	return loan, nil
}

func (s *Service) CanRenew(ctx context.Context, loanID string) (policy.Decision, error) {
	loan, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return policy.Decision{}, err
	}
	return policy.CanRenew(loan, s.now()), nil
}

func (s *Service) Renew(ctx context.Context, loanID, actor string) (model.Loan, error) {
	if actor == "" {
		return model.Loan{}, errs.Validation("actor is required")
	}
	var (
		loan model.Loan
		rec  model.RenewalRecord
	)
	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx repository.Repository) error {
		var err error
		if loan, err = tx.LockLoan(ctx, loanID); err != nil {
			return unknown(err, "loan", loanID)
		}
		now := s.now()
		if err := denied(policy.CanRenew(loan, now)); err != nil {
			return err
		}
		member, err := tx.GetMember(ctx, loan.MemberID)
		if err != nil {
			return unknown(err, "member", loan.MemberID)
		}
		p, err := s.resolvePolicy(ctx, tx, member.Tier)
		if err != nil {
			return err
		}
		if p == nil {
			return errors.Wrapf(errs.ErrPolicyNotFound, "tier %s", member.Tier)
		}
		rec = model.RenewalRecord{
			ID:         uuid.NewString(),
			LoanID:     loan.ID,
			OldDueDate: loan.DueDate,
			NewDueDate: policy.RenewedDueDate(loan, *p),
			RenewedBy:  actor,
			RenewedOn:  now,
		}
		loan.DueDate = rec.NewDueDate
		loan.RenewalCount++
		if err := tx.UpdateLoan(ctx, loan); err != nil {
			return err
		}
		return tx.CreateRenewal(ctx, rec)
	})
	if err != nil {
		return model.Loan{}, err
	}

	s.activity("renew", actor, zap.String("loan", loan.ID), zap.Int("renewal_count", loan.RenewalCount))
	s.notifier.Notify(ctx, model.Notification{
		Type:      model.NotifyRenewal,
		MemberID:  loan.MemberID,
		SubjectID: loan.ID,
		Message:   fmt.Sprintf("loan renewed, new due date %s", loan.DueDate.Format(time.DateOnly)),
		Timestamp: rec.RenewedOn,
	})
	return loan, nil
}

// ReturnCopy closes the loan and frees the copy. An overdue loan is charged through the
// same assessment the overdue sweep uses; a fine the sweep already opened is brought up to date.
func (s *Service) ReturnCopy(ctx context.Context, loanID, actor string) (model.ReturnResult, error) {
	if actor == "" {
		return model.ReturnResult{}, errs.Validation("actor is required")
	}
	var (
		res     model.ReturnResult
		itemID  string
		freed   bool
		created bool
	)
	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx repository.Repository) error {
		loan, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return unknown(err, "loan", loanID)
		}
		if !loan.IsOpen() {
			return errs.Ineligible(model.ReasonLoanAlreadyClosed)
		}
		now := s.now()

		fine, isNew, err := s.assessOverdueFine(ctx, tx, loan, now)
		if err != nil {
			return err
		}
		res.Fine, created = fine, isNew

		loan.Status = model.LoanReturned
		loan.ReturnDate = &now
		if err := tx.UpdateLoan(ctx, loan); err != nil {
			return err
		}
		res.Loan = loan

		cp, err := tx.LockCopy(ctx, loan.CopyID)
		if err != nil {
			return unknown(err, "copy", loan.CopyID)
		}
		itemID = cp.ItemID
		if cp.Status != model.CopyOnLoan {
			s.log.Warn("returned copy was not on loan", zap.String("copy", cp.ID), zap.String("status", string(cp.Status)))
			return nil
		}
		freed = true
		return tx.SetCopyStatus(ctx, cp.ID, model.CopyOnLoan, model.CopyAvailable)
	})
	if err != nil {
		return model.ReturnResult{}, err
	}

	loan := res.Loan
	s.activity("return", actor, zap.String("loan", loan.ID), zap.String("copy", loan.CopyID))
	s.notifier.Notify(ctx, model.Notification{
		Type:      model.NotifyReturn,
		MemberID:  loan.MemberID,
		SubjectID: loan.ID,
		Message:   fmt.Sprintf("copy %s returned", loan.CopyID),
		Timestamp: *loan.ReturnDate,
	})
	if res.Fine != nil {
		s.notifyFine(ctx, *res.Fine, created)
	}
	if freed {
		s.notifier.CopyAvailable(ctx, itemID, loan.CopyID)
	}
	return res, nil
}

// assessOverdueFine charges the overdue fine for loan as of asOf. It returns the pending
// overdue fine of the loan (nil when nothing is owed) and whether it was created now.
// Fines already paid, waived or cancelled count against the capped total, so a loan
// is never charged more than one assessment and never carries two pending fines.
func (s *Service) assessOverdueFine(ctx context.Context, tx repository.Repository, loan model.Loan, asOf time.Time) (*model.Fine, bool, error) {
	days := policy.DaysOverdue(loan, asOf)
	if days == 0 {
		return nil, false, nil
	}
	member, err := tx.GetMember(ctx, loan.MemberID)
	if err != nil {
		return nil, false, unknown(err, "member", loan.MemberID)
	}
	p, err := s.resolvePolicy(ctx, tx, member.Tier)
	if err != nil {
		return nil, false, err
	}
	if p == nil {
		s.log.Warn("no checkout policy, fine skipped",
			zap.String("loan", loan.ID), zap.String("tier", string(member.Tier)))
		return nil, false, nil
	}
	amount, days, ok := policy.OverdueFine(loan, *p, asOf)
	if !ok {
		return nil, false, nil
	}

	fines, err := tx.ListLoanOverdueFines(ctx, loan.ID)
	if err != nil {
		return nil, false, err
	}
	pending, settled := policy.SettledOverdue(fines)
	owed := amount.Sub(settled)

	if pending != nil {
		if !owed.IsPositive() || pending.Amount.Equal(owed) {
			return pending, false, nil
		}
		pending.Amount = owed
		pending.Description = policy.OverdueDescription(days)
		if err := tx.UpdateFine(ctx, *pending); err != nil {
			return nil, false, err
		}
		return pending, false, nil
	}
	if !owed.IsPositive() {
		return nil, false, nil
	}

	loanID := loan.ID
	fine := model.Fine{
		ID:          uuid.NewString(),
		MemberID:    loan.MemberID,
		LoanID:      &loanID,
		Amount:      owed,
		Reason:      model.FineOverdue,
		Description: policy.OverdueDescription(days),
		Status:      model.FinePending,
		IssuedDate:  asOf,
	}
	if err := tx.CreateFine(ctx, fine); err != nil {
		return nil, false, err
	}
	return &fine, true, nil
}

func (s *Service) notifyFine(ctx context.Context, fine model.Fine, created bool) {
	verb := "updated"
	if created {
		verb = "issued"
	}
	s.notifier.Notify(ctx, model.Notification{
		Type:      model.NotifyFineIssued,
		MemberID:  fine.MemberID,
		SubjectID: fine.ID,
		Message:   fmt.Sprintf("fine %s: %s (%s)", verb, fine.Amount.StringFixed(2), fine.Description),
		Timestamp: s.now(),
	})
}

func (s *Service) ListRenewals(ctx context.Context, loanID string) ([]model.RenewalRecord, error) {
	if _, err := s.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}
	return s.repo.ListRenewals(ctx, loanID)
}

func (s *Service) ListMemberLoans(ctx context.Context, memberID string) (model.MemberLoans, error) {
	if _, err := s.repo.GetMember(ctx, memberID); err != nil {
		return model.MemberLoans{}, unknown(err, "member", memberID)
	}
	active, err := s.repo.ListLoans(ctx, memberID, []model.LoanStatus{model.LoanActive, model.LoanOverdue}, 0)
	if err != nil {
		return model.MemberLoans{}, err
	}
	history, err := s.repo.ListLoans(ctx, memberID, []model.LoanStatus{model.LoanReturned}, historyLimit)
	if err != nil {
		return model.MemberLoans{}, err
	}
	return model.MemberLoans{Active: active, History: history}, nil
}
