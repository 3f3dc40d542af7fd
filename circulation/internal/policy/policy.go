// Package policy holds the circulation rules: checkout and renewal eligibility,
// overdue fines and reservation queue ordering. Everything here is pure; callers
// load the state, ask for a decision and persist the outcome.
package policy

import (
	"fmt"
	"sort"
	"time"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/shopspring/decimal"
)

// Default is the hard-coded policy used for tiers without a stored one
// when the fallback is enabled.
var Default = model.CheckoutPolicy{
	MaxBooks:       5,
	LoanPeriodDays: 14,
	MaxRenewals:    3,
	FinePerDay:     decimal.RequireFromString("0.50"),
	MaxFineAmount:  decimal.RequireFromString("50.00"),
}

type Decision struct {
	Allowed bool         `json:"allowed"`
	Reason  model.Reason `json:"reason,omitempty"`
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason model.Reason) Decision {
	return Decision{Reason: reason}
}

// CheckoutState is everything CanCheckout looks at.
// Policy is nil when the member's tier has no policy and no fallback applies.
type CheckoutState struct {
	Member    model.Member
	Policy    *model.CheckoutPolicy
	OpenLoans int
	Copy      model.Copy
}

// CanCheckout evaluates the checkout rules in order; the first failing rule wins.
func CanCheckout(s CheckoutState) Decision {
	if s.Member.Status != model.MemberActive {
		return Deny(model.ReasonMemberNotActive)
	}
	if s.Policy == nil {
		return Deny(model.ReasonNoPolicy)
	}
	if s.OpenLoans >= MaxBooks(s.Member, *s.Policy) {
		return Deny(model.ReasonMaxBooks)
	}
	if s.Copy.Status != model.CopyAvailable {
		return Deny(model.ReasonCopyNotAvailable)
	}
	return Allow()
}

// MaxBooks is the member's own limit when set, otherwise the tier's.
func MaxBooks(m model.Member, p model.CheckoutPolicy) int {
	if m.MaxBooksOverride != nil {
		return *m.MaxBooksOverride
	}
	return p.MaxBooks
}

func CanRenew(loan model.Loan, asOf time.Time) Decision {
	if loan.Status != model.LoanActive {
		return Deny(model.ReasonLoanNotActive)
	}
	if IsOverdue(loan, asOf) {
		return Deny(model.ReasonLoanOverdue)
	}
	if loan.RenewalCount >= loan.MaxRenewals {
		return Deny(model.ReasonMaxRenewals)
	}
	return Allow()
}

func DueDate(checkout time.Time, p model.CheckoutPolicy) time.Time {
	return model.Day(checkout).AddDate(0, 0, p.LoanPeriodDays)
}

func RenewedDueDate(loan model.Loan, p model.CheckoutPolicy) time.Time {
	return model.Day(loan.DueDate).AddDate(0, 0, p.LoanPeriodDays)
}

// DaysOverdue counts whole days past the due date; closed loans are never overdue.
func DaysOverdue(loan model.Loan, asOf time.Time) int {
	if loan.IsClosed() || loan.ReturnDate != nil {
		return 0
	}
	days := int(model.Day(asOf).Sub(model.Day(loan.DueDate)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func IsOverdue(loan model.Loan, asOf time.Time) bool {
	return DaysOverdue(loan, asOf) > 0
}

// FineAmount is min(days * fine_per_day, max_fine_amount), never negative.
func FineAmount(daysOverdue int, p model.CheckoutPolicy) decimal.Decimal {
	if daysOverdue <= 0 {
		return decimal.Zero
	}
	amount := p.FinePerDay.Mul(decimal.NewFromInt(int64(daysOverdue)))
	if amount.GreaterThan(p.MaxFineAmount) {
		amount = p.MaxFineAmount
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount.Round(2)
}

// OverdueFine assesses the fine owed for loan as of asOf. ok is false when nothing is owed.
func OverdueFine(loan model.Loan, p model.CheckoutPolicy, asOf time.Time) (amount decimal.Decimal, days int, ok bool) {
	days = DaysOverdue(loan, asOf)
	amount = FineAmount(days, p)
	return amount, days, amount.IsPositive()
}

// SettledOverdue splits the overdue fines of one loan into the open pending fine, if any,
// and the amount already closed out by payment, waiver or cancellation.
func SettledOverdue(fines []model.Fine) (pending *model.Fine, settled decimal.Decimal) {
	for _, f := range fines {
		if f.Reason != model.FineOverdue {
			continue
		}
		if f.Status == model.FinePending {
			f := f
			pending = &f
			continue
		}
		settled = settled.Add(f.Amount)
	}
	return pending, settled
}

func OverdueDescription(days int) string {
	if days == 1 {
		return "1 day overdue"
	}
	return fmt.Sprintf("%d days overdue", days)
}

func CanReserve(availableCopies int, hasActiveReservation bool) Decision {
	if availableCopies > 0 {
		return Deny(model.ReasonItemAvailable)
	}
	if hasActiveReservation {
		return Deny(model.ReasonDuplicateReservation)
	}
	return Allow()
}

func CanFulfill(r model.Reservation) Decision {
	if r.Status != model.ReservationActive {
		return Deny(model.ReasonReservationNotActive)
	}
	if r.PositionInQueue != 1 {
		return Deny(model.ReasonReservationNotAtHead)
	}
	return Allow()
}

// Resequence orders the active reservations of one item by reservation date
// (ties by id) and numbers them 1..N. The input is not modified; reservations
// that are not active are dropped.
func Resequence(reservations []model.Reservation) []model.Reservation {
	queue := make([]model.Reservation, 0, len(reservations))
	for _, r := range reservations {
		if r.Status == model.ReservationActive {
			queue = append(queue, r)
		}
	}
	sort.SliceStable(queue, func(i, j int) bool {
		if !queue[i].ReservationDate.Equal(queue[j].ReservationDate) {
			return queue[i].ReservationDate.Before(queue[j].ReservationDate)
		}
		return queue[i].ID < queue[j].ID
	})
	for i := range queue {
		queue[i].PositionInQueue = i + 1
	}
	return queue
}

// Validate checks the field ranges of a policy.
func Validate(p model.CheckoutPolicy) error {
	switch {
	case p.Tier == "":
		return fmt.Errorf("tier is required")
	case p.MaxBooks < 0:
		return fmt.Errorf("maxBooks must be >= 0")
	case p.LoanPeriodDays <= 0:
		return fmt.Errorf("loanPeriodDays must be > 0")
	case p.MaxRenewals < 0:
		return fmt.Errorf("maxRenewals must be >= 0")
	case p.FinePerDay.IsNegative():
		return fmt.Errorf("finePerDay must be >= 0")
	case p.MaxFineAmount.IsNegative():
		return fmt.Errorf("maxFineAmount must be >= 0")
	}
	return nil
}
