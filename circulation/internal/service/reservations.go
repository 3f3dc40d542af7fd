package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/policy"
	"github.com/Astemirdum/library-circulation/circulation/internal/repository"
)

// Every queue mutation locks the item row first, so queue changes of one item are serialized.

func (s *Service) Reserve(ctx context.Context, req model.ReserveRequest) (model.Reservation, error) {
	if req.ItemID == "" || req.MemberID == "" {
		return model.Reservation{}, errs.Validation("itemId and memberId are required")
	}
	var res model.Reservation
	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx repository.Repository) error {
		if _, err := tx.GetMember(ctx, req.MemberID); err != nil {
			return unknown(err, "member", req.MemberID)
		}
		if _, err := tx.LockItem(ctx, req.ItemID); err != nil {
			return unknown(err, "item", req.ItemID)
		}
		available, err := tx.CountCopies(ctx, req.ItemID, model.CopyAvailable)
		if err != nil {
			return err
		}
		has, err := tx.HasActiveReservation(ctx, req.ItemID, req.MemberID)
		if err != nil {
			return err
		}
		if err := denied(policy.CanReserve(available, has)); err != nil {
			return err
		}
		queue, err := tx.ListActiveReservations(ctx, req.ItemID)
		if err != nil {
			return err
		}
		now := s.now()
		res = model.Reservation{
			ID:              uuid.NewString(),
			ItemID:          req.ItemID,
			MemberID:        req.MemberID,
			ReservationDate: now,
			ExpiryDate:      model.Day(now).AddDate(0, 0, s.holdDays),
			Status:          model.ReservationActive,
			PositionInQueue: len(queue) + 1,
		}
		return tx.CreateReservation(ctx, res)
	})
	if err != nil {
		return model.Reservation{}, err
	}
	s.activity("reserve", req.MemberID,
		zap.String("reservation", res.ID), zap.String("item", res.ItemID), zap.Int("position", res.PositionInQueue))
	return res, nil
}

// lockQueue loads the reservation and locks its item. The reservation is read again under
// the lock so the caller decides on its committed state.
func lockQueue(ctx context.Context, tx repository.Repository, reservationID string) (model.Reservation, error) {
	res, err := tx.GetReservation(ctx, reservationID)
	if err != nil {
		return model.Reservation{}, unknown(err, "reservation", reservationID)
	}
	if _, err := tx.LockItem(ctx, res.ItemID); err != nil {
		return model.Reservation{}, err
	}
	return tx.GetReservation(ctx, reservationID)
}

// relinearize renumbers the active queue of an item to 1..N in FIFO order,
// writing only the reservations whose position changed.
func relinearize(ctx context.Context, tx repository.Repository, itemID string) error {
	active, err := tx.ListActiveReservations(ctx, itemID)
	if err != nil {
		return err
	}
	current := make(map[string]int, len(active))
	for _, r := range active {
		current[r.ID] = r.PositionInQueue
	}
	for _, r := range policy.Resequence(active) {
		if current[r.ID] == r.PositionInQueue {
			continue
		}
		if err := tx.UpdateReservation(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) CancelReservation(ctx context.Context, reservationID string) error {
	var res model.Reservation
	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx repository.Repository) error {
		var err error
		if res, err = lockQueue(ctx, tx, reservationID); err != nil {
			return err
		}
		if res.Status != model.ReservationActive {
			return errs.Ineligible(model.ReasonReservationNotActive)
		}
		res.Status = model.ReservationCancelled
		res.PositionInQueue = 0
		if err := tx.UpdateReservation(ctx, res); err != nil {
			return err
		}
		return relinearize(ctx, tx, res.ItemID)
	})
	if err != nil {
		return err
	}
	s.activity("cancel_reservation", res.MemberID, zap.String("reservation", res.ID), zap.String("item", res.ItemID))
	return nil
}

// FulfillReservation completes the reservation at the head of its item's queue.
func (s *Service) FulfillReservation(ctx context.Context, reservationID string) (model.Reservation, error) {
	var res model.Reservation
	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx repository.Repository) error {
		var err error
		if res, err = lockQueue(ctx, tx, reservationID); err != nil {
			return err
		}
		if err := denied(policy.CanFulfill(res)); err != nil {
			return err
		}
		res, err = s.fulfill(ctx, tx, res)
		return err
	})
	if err != nil {
		return model.Reservation{}, err
	}
	s.notifyReady(ctx, res, "")
	return res, nil
}

// FulfillNext completes the head of the item's queue when a copy of the item becomes available.
// It returns ErrNotFound when nobody is waiting.
func (s *Service) FulfillNext(ctx context.Context, itemID, copyID string) (model.Reservation, error) {
	var res model.Reservation
	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx repository.Repository) error {
		if _, err := tx.LockItem(ctx, itemID); err != nil {
			return unknown(err, "item", itemID)
		}
		active, err := tx.ListActiveReservations(ctx, itemID)
		if err != nil {
			return err
		}
		queue := policy.Resequence(active)
		if len(queue) == 0 {
			return fmt.Errorf("no active reservations for item %s: %w", itemID, errs.ErrNotFound)
		}
		res, err = s.fulfill(ctx, tx, queue[0])
		return err
	})
	if err != nil {
		return model.Reservation{}, err
	}
	s.notifyReady(ctx, res, copyID)
	return res, nil
}

func (s *Service) fulfill(ctx context.Context, tx repository.Repository, res model.Reservation) (model.Reservation, error) {
	res.Status = model.ReservationFulfilled
	res.Notified = true
	res.PositionInQueue = 0
	if err := tx.UpdateReservation(ctx, res); err != nil {
		return model.Reservation{}, err
	}
	return res, relinearize(ctx, tx, res.ItemID)
}

func (s *Service) notifyReady(ctx context.Context, res model.Reservation, copyID string) {
	s.activity("fulfill_reservation", res.MemberID, zap.String("reservation", res.ID), zap.String("item", res.ItemID))
	msg := fmt.Sprintf("item %s is ready for pickup", res.ItemID)
	if copyID != "" {
		msg = fmt.Sprintf("item %s is ready for pickup (copy %s)", res.ItemID, copyID)
	}
	s.notifier.Notify(ctx, model.Notification{
		Type:      model.NotifyReservationReady,
		MemberID:  res.MemberID,
		SubjectID: res.ID,
		Message:   msg,
		Timestamp: s.now(),
	})
}

// ExpireReservations expires active reservations whose expiry date is before asOf
// and renumbers each affected queue. Items are processed in separate transactions.
func (s *Service) ExpireReservations(ctx context.Context, asOf time.Time) (int, error) {
	expired, err := s.repo.ListExpiredReservations(ctx, asOf)
	if err != nil {
		return 0, err
	}
	byItem := make(map[string][]string)
	var items []string
	for _, r := range expired {
		if _, ok := byItem[r.ItemID]; !ok {
			items = append(items, r.ItemID)
		}
		byItem[r.ItemID] = append(byItem[r.ItemID], r.ID)
	}

	var (
		total   int
		errList []error
	)
	day := model.Day(asOf)
	for _, itemID := range items {
		n := 0
		err := s.repo.RunInTx(ctx, func(ctx context.Context, tx repository.Repository) error {
			n = 0
			if _, err := tx.LockItem(ctx, itemID); err != nil {
				return err
			}
			for _, id := range byItem[itemID] {
				res, err := tx.GetReservation(ctx, id)
				if err != nil {
					return err
				}
				if res.Status != model.ReservationActive || !res.ExpiryDate.Before(day) {
					continue
				}
				res.Status = model.ReservationExpired
				res.PositionInQueue = 0
				if err := tx.UpdateReservation(ctx, res); err != nil {
					return err
				}
				n++
			}
			return relinearize(ctx, tx, itemID)
		})
		if err != nil {
			s.log.Error("expire reservations", zap.String("item", itemID), zap.Error(err))
			errList = append(errList, fmt.Errorf("item %s: %w", itemID, err))
			continue
		}
		total += n
	}
	if total > 0 {
		s.activity("expire_reservations", "system", zap.Int("expired", total), zap.Time("as_of", asOf))
	}
	return total, errors.Join(errList...)
}

func (s *Service) ListMemberReservations(ctx context.Context, memberID string) ([]model.Reservation, error) {
	if _, err := s.repo.GetMember(ctx, memberID); err != nil {
		return nil, unknown(err, "member", memberID)
	}
	return s.repo.ListMemberReservations(ctx, memberID)
}
