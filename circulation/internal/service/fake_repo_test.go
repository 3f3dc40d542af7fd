package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/repository"
)

// memRepo is an in-memory repository. Transactions are serialized and roll back
// to a snapshot when fn fails.
type memRepo struct {
	txMu sync.Mutex
	mu   sync.Mutex

	members      map[string]model.Member
	items        map[string]model.Item
	copies       map[string]model.Copy
	policies     map[model.Tier]model.CheckoutPolicy
	loans        map[string]model.Loan
	renewals     []model.RenewalRecord
	fines        map[string]model.Fine
	reservations map[string]model.Reservation
}

var _ repository.Repository = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{
		members:      map[string]model.Member{},
		items:        map[string]model.Item{},
		copies:       map[string]model.Copy{},
		policies:     map[model.Tier]model.CheckoutPolicy{},
		loans:        map[string]model.Loan{},
		fines:        map[string]model.Fine{},
		reservations: map[string]model.Reservation{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type snapshot struct {
	members      map[string]model.Member
	copies       map[string]model.Copy
	policies     map[model.Tier]model.CheckoutPolicy
	loans        map[string]model.Loan
	renewals     []model.RenewalRecord
	fines        map[string]model.Fine
	reservations map[string]model.Reservation
}

func (r *memRepo) snapshot() snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return snapshot{
		members:      cloneMap(r.members),
		copies:       cloneMap(r.copies),
		policies:     cloneMap(r.policies),
		loans:        cloneMap(r.loans),
		renewals:     append([]model.RenewalRecord(nil), r.renewals...),
		fines:        cloneMap(r.fines),
		reservations: cloneMap(r.reservations),
	}
}

func (r *memRepo) restore(s snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members, r.copies, r.policies = s.members, s.copies, s.policies
	r.loans, r.renewals, r.fines, r.reservations = s.loans, s.renewals, s.fines, s.reservations
}

func (r *memRepo) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	snap := r.snapshot()
	if err := fn(ctx, r); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

// fixtures

func (r *memRepo) addMember(m model.Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[m.ID] = m
}

func (r *memRepo) addItem(itemID string, copies map[string]model.CopyStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[itemID] = model.Item{ID: itemID, Title: itemID}
	for id, st := range copies {
		r.copies[id] = model.Copy{ID: id, ItemID: itemID, Status: st}
	}
}

func (r *memRepo) copyStatus(id string) model.CopyStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copies[id].Status
}

func (r *memRepo) allFines() []model.Fine {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Fine, 0, len(r.fines))
	for _, f := range r.fines {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// members and catalog

func (r *memRepo) GetMember(_ context.Context, id string) (model.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok {
		return model.Member{}, errs.ErrNotFound
	}
	return m, nil
}

func (r *memRepo) LockMember(ctx context.Context, id string) (model.Member, error) {
	return r.GetMember(ctx, id)
}

func (r *memRepo) GetCopy(_ context.Context, id string) (model.Copy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.copies[id]
	if !ok {
		return model.Copy{}, errs.ErrNotFound
	}
	return c, nil
}

func (r *memRepo) LockCopy(ctx context.Context, id string) (model.Copy, error) {
	return r.GetCopy(ctx, id)
}

func (r *memRepo) SetCopyStatus(_ context.Context, id string, from, to model.CopyStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.copies[id]
	if !ok || c.Status != from {
		return errors.Wrapf(errs.ErrConflict, "copy %s is not %s", id, from)
	}
	c.Status = to
	r.copies[id] = c
	return nil
}

func (r *memRepo) LockItem(_ context.Context, id string) (model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return model.Item{}, errs.ErrNotFound
	}
	return it, nil
}

func (r *memRepo) CountCopies(_ context.Context, itemID string, status model.CopyStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.copies {
		if c.ItemID == itemID && c.Status == status {
			n++
		}
	}
	return n, nil
}

// policies

func (r *memRepo) GetPolicy(_ context.Context, tier model.Tier) (model.CheckoutPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.policies[tier]
	if !ok {
		return model.CheckoutPolicy{}, errs.ErrNotFound
	}
	return p, nil
}

func (r *memRepo) ListPolicies(_ context.Context) ([]model.CheckoutPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.CheckoutPolicy, 0, len(r.policies))
	for _, p := range r.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tier < out[j].Tier })
	return out, nil
}

func (r *memRepo) UpsertPolicy(_ context.Context, p model.CheckoutPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[p.Tier] = p
	return nil
}

// loans

func (r *memRepo) CreateLoan(_ context.Context, loan model.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.loans {
		if l.CopyID == loan.CopyID && l.IsOpen() {
			return errors.Wrap(errs.ErrConflict, "open loan for copy exists")
		}
	}
	r.loans[loan.ID] = loan
	return nil
}

func (r *memRepo) GetLoan(_ context.Context, id string) (model.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loans[id]
	if !ok {
		return model.Loan{}, errs.ErrNotFound
	}
	return l, nil
}

func (r *memRepo) LockLoan(ctx context.Context, id string) (model.Loan, error) {
	return r.GetLoan(ctx, id)
}

func (r *memRepo) UpdateLoan(_ context.Context, loan model.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.loans[loan.ID]; !ok {
		return errs.ErrNotFound
	}
	r.loans[loan.ID] = loan
	return nil
}

func (r *memRepo) CountOpenLoans(_ context.Context, memberID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, l := range r.loans {
		if l.MemberID == memberID && l.IsOpen() {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) filterLoans(keep func(model.Loan) bool) []model.Loan {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Loan, 0)
	for _, l := range r.loans {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memRepo) ListLoans(_ context.Context, memberID string, statuses []model.LoanStatus, limit int) ([]model.Loan, error) {
	out := r.filterLoans(func(l model.Loan) bool {
		if l.MemberID != memberID {
			return false
		}
		if len(statuses) == 0 {
			return true
		}
		for _, st := range statuses {
			if l.Status == st {
				return true
			}
		}
		return false
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CheckoutDate.After(out[j].CheckoutDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) ListOverdueCandidates(_ context.Context, asOf time.Time) ([]model.Loan, error) {
	day := model.Day(asOf)
	return r.filterLoans(func(l model.Loan) bool {
		return l.Status == model.LoanActive && l.DueDate.Before(day)
	}), nil
}

func (r *memRepo) ListLoansDueOn(_ context.Context, day time.Time) ([]model.Loan, error) {
	day = model.Day(day)
	return r.filterLoans(func(l model.Loan) bool {
		return l.Status == model.LoanActive && l.DueDate.Equal(day)
	}), nil
}

// renewals

func (r *memRepo) CreateRenewal(_ context.Context, rec model.RenewalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renewals = append(r.renewals, rec)
	return nil
}

func (r *memRepo) ListRenewals(_ context.Context, loanID string) ([]model.RenewalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.RenewalRecord, 0)
	for _, rec := range r.renewals {
		if rec.LoanID == loanID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// fines

func (r *memRepo) CreateFine(_ context.Context, fine model.Fine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fines[fine.ID] = fine
	return nil
}

func (r *memRepo) GetFine(_ context.Context, id string) (model.Fine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.fines[id]
	if !ok {
		return model.Fine{}, errs.ErrNotFound
	}
	return f, nil
}

func (r *memRepo) LockFine(ctx context.Context, id string) (model.Fine, error) {
	return r.GetFine(ctx, id)
}

func (r *memRepo) UpdateFine(_ context.Context, fine model.Fine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.fines[fine.ID]; !ok {
		return errs.ErrNotFound
	}
	r.fines[fine.ID] = fine
	return nil
}

func (r *memRepo) ListLoanOverdueFines(_ context.Context, loanID string) ([]model.Fine, error) {
	out := make([]model.Fine, 0)
	for _, f := range r.allFines() {
		if f.LoanID != nil && *f.LoanID == loanID && f.Reason == model.FineOverdue {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *memRepo) ListFines(_ context.Context, memberID string) ([]model.Fine, error) {
	out := make([]model.Fine, 0)
	for _, f := range r.allFines() {
		if f.MemberID == memberID {
			out = append(out, f)
		}
	}
	return out, nil
}

// reservations

func (r *memRepo) CreateReservation(_ context.Context, res model.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.reservations {
		if x.ItemID == res.ItemID && x.MemberID == res.MemberID && x.Status == model.ReservationActive {
			return errors.Wrap(errs.ErrConflict, "active reservation exists")
		}
	}
	r.reservations[res.ID] = res
	return nil
}

func (r *memRepo) GetReservation(_ context.Context, id string) (model.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok {
		return model.Reservation{}, errs.ErrNotFound
	}
	return res, nil
}

func (r *memRepo) UpdateReservation(_ context.Context, res model.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reservations[res.ID]; !ok {
		return errs.ErrNotFound
	}
	r.reservations[res.ID] = res
	return nil
}

func (r *memRepo) filterReservations(keep func(model.Reservation) bool) []model.Reservation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Reservation, 0)
	for _, res := range r.reservations {
		if keep(res) {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReservationDate.Equal(out[j].ReservationDate) {
			return out[i].ReservationDate.Before(out[j].ReservationDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *memRepo) ListActiveReservations(_ context.Context, itemID string) ([]model.Reservation, error) {
	return r.filterReservations(func(res model.Reservation) bool {
		return res.ItemID == itemID && res.Status == model.ReservationActive
	}), nil
}

func (r *memRepo) HasActiveReservation(_ context.Context, itemID, memberID string) (bool, error) {
	return len(r.filterReservations(func(res model.Reservation) bool {
		return res.ItemID == itemID && res.MemberID == memberID && res.Status == model.ReservationActive
	})) > 0, nil
}

func (r *memRepo) ListMemberReservations(_ context.Context, memberID string) ([]model.Reservation, error) {
	return r.filterReservations(func(res model.Reservation) bool {
		return res.MemberID == memberID
	}), nil
}

func (r *memRepo) ListExpiredReservations(_ context.Context, asOf time.Time) ([]model.Reservation, error) {
	day := model.Day(asOf)
	return r.filterReservations(func(res model.Reservation) bool {
		return res.Status == model.ReservationActive && res.ExpiryDate.Before(day)
	}), nil
}
