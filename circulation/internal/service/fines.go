package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/repository"
)

func (s *Service) PayFine(ctx context.Context, fineID string, req model.PayFineRequest) (model.Fine, error) {
	if req.PaymentMethod == "" || req.TransactionID == "" {
		return model.Fine{}, errs.Validation("paymentMethod and transactionId are required")
	}
	fine, err := s.settleFine(ctx, fineID, func(f *model.Fine) {
		now := s.now()
		f.Status = model.FinePaid
		f.PaidDate = &now
		f.PaymentMethod = req.PaymentMethod
		f.TransactionID = req.TransactionID
	})
	if err != nil {
		return model.Fine{}, err
	}
	s.activity("pay_fine", fine.MemberID,
		zap.String("fine", fine.ID), zap.String("amount", fine.Amount.StringFixed(2)), zap.String("transaction", fine.TransactionID))
	return fine, nil
}

func (s *Service) WaiveFine(ctx context.Context, fineID, actor string) (model.Fine, error) {
	if actor == "" {
		return model.Fine{}, errs.Validation("actor is required")
	}
	fine, err := s.settleFine(ctx, fineID, func(f *model.Fine) {
		f.Status = model.FineWaived
	})
	if err != nil {
		return model.Fine{}, err
	}
	s.activity("waive_fine", actor, zap.String("fine", fine.ID), zap.String("member", fine.MemberID))
	return fine, nil
}

// settleFine applies a terminal transition to a pending fine.
func (s *Service) settleFine(ctx context.Context, fineID string, apply func(*model.Fine)) (model.Fine, error) {
	var fine model.Fine
	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx repository.Repository) error {
		var err error
		if fine, err = tx.LockFine(ctx, fineID); err != nil {
			return unknown(err, "fine", fineID)
		}
		if fine.Status != model.FinePending {
			return errs.Ineligible(model.ReasonFineNotPending)
		}
		apply(&fine)
		return tx.UpdateFine(ctx, fine)
	})
	return fine, err
}

func (s *Service) ListMemberFines(ctx context.Context, memberID string) (model.MemberFines, error) {
	if _, err := s.repo.GetMember(ctx, memberID); err != nil {
		return model.MemberFines{}, unknown(err, "member", memberID)
	}
	fines, err := s.repo.ListFines(ctx, memberID)
	if err != nil {
		return model.MemberFines{}, err
	}
	total := decimal.Zero
	for _, f := range fines {
		if f.Status == model.FinePending {
			total = total.Add(f.Amount)
		}
	}
	return model.MemberFines{Items: fines, TotalPending: total}, nil
}
