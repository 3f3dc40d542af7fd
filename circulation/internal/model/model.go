package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Tier string

const (
	TierStandard Tier = "STANDARD"
	TierPremium  Tier = "PREMIUM"
	TierVIP      Tier = "VIP"
	TierStudent  Tier = "STUDENT"
)

type MemberStatus string

const (
	MemberActive    MemberStatus = "ACTIVE"
	MemberSuspended MemberStatus = "SUSPENDED"
	MemberExpired   MemberStatus = "EXPIRED"
	MemberPending   MemberStatus = "PENDING"
)

type Member struct {
	ID               string       `json:"memberId" db:"id"`
	Username         string       `json:"username" db:"username"`
	Tier             Tier         `json:"tier" db:"tier"`
	Status           MemberStatus `json:"status" db:"status"`
	MaxBooksOverride *int         `json:"maxBooksOverride,omitempty" db:"max_books_override"`
}

type Item struct {
	ID    string `json:"itemId" db:"id"`
	Title string `json:"title" db:"title"`
}

type CopyStatus string

const (
	CopyAvailable   CopyStatus = "AVAILABLE"
	CopyOnLoan      CopyStatus = "ON_LOAN"
	CopyReserved    CopyStatus = "RESERVED"
	CopyMaintenance CopyStatus = "MAINTENANCE"
	CopyLost        CopyStatus = "LOST"
	CopyDamaged     CopyStatus = "DAMAGED"
)

type Copy struct {
	ID     string     `json:"copyId" db:"id"`
	ItemID string     `json:"itemId" db:"item_id"`
	Status CopyStatus `json:"status" db:"status"`
}

type CheckoutPolicy struct {
	Tier           Tier            `json:"tier" db:"tier" validate:"required"`
	MaxBooks       int             `json:"maxBooks" db:"max_books" validate:"gte=0"`
	LoanPeriodDays int             `json:"loanPeriodDays" db:"loan_period_days" validate:"gt=0"`
	MaxRenewals    int             `json:"maxRenewals" db:"max_renewals" validate:"gte=0"`
	FinePerDay     decimal.Decimal `json:"finePerDay" db:"fine_per_day"`
	MaxFineAmount  decimal.Decimal `json:"maxFineAmount" db:"max_fine_amount"`
}

type LoanStatus string

const (
	LoanActive   LoanStatus = "ACTIVE"
	LoanOverdue  LoanStatus = "OVERDUE"
	LoanReturned LoanStatus = "RETURNED"
	LoanLost     LoanStatus = "LOST"
)

type Loan struct {
	ID           string     `json:"loanId" db:"id"`
	MemberID     string     `json:"memberId" db:"member_id"`
	CopyID       string     `json:"copyId" db:"copy_id"`
	CheckoutDate time.Time  `json:"checkoutDate" db:"checkout_date"`
	DueDate      time.Time  `json:"dueDate" db:"due_date"`
	ReturnDate   *time.Time `json:"returnDate,omitempty" db:"return_date"`
	RenewalCount int        `json:"renewalCount" db:"renewal_count"`
	MaxRenewals  int        `json:"maxRenewals" db:"max_renewals"`
	Status       LoanStatus `json:"status" db:"status"`
	CheckedOutBy string     `json:"checkedOutBy" db:"checked_out_by"`
	Notes        string     `json:"notes,omitempty" db:"notes"`
}

// IsClosed is the single answer to "has this loan been returned".
// ReturnDate is set exactly when the status becomes RETURNED.
func (l Loan) IsClosed() bool {
	return l.Status == LoanReturned
}

// IsOpen reports whether the loan still holds its copy (ACTIVE or OVERDUE).
func (l Loan) IsOpen() bool {
	return l.Status == LoanActive || l.Status == LoanOverdue
}

type RenewalRecord struct {
	ID         string    `json:"renewalId" db:"id"`
	LoanID     string    `json:"loanId" db:"loan_id"`
	OldDueDate time.Time `json:"oldDueDate" db:"old_due_date"`
	NewDueDate time.Time `json:"newDueDate" db:"new_due_date"`
	RenewedBy  string    `json:"renewedBy" db:"renewed_by"`
	RenewedOn  time.Time `json:"renewedOn" db:"renewed_on"`
}

type FineReason string

const (
	FineOverdue FineReason = "OVERDUE"
	FineDamage  FineReason = "DAMAGE"
	FineLost    FineReason = "LOST"
	FineOther   FineReason = "OTHER"
)

type FineStatus string

const (
	FinePending   FineStatus = "PENDING"
	FinePaid      FineStatus = "PAID"
	FineWaived    FineStatus = "WAIVED"
	FineCancelled FineStatus = "CANCELLED"
)

type Fine struct {
	ID            string          `json:"fineId" db:"id"`
	MemberID      string          `json:"memberId" db:"member_id"`
	LoanID        *string         `json:"loanId,omitempty" db:"loan_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Reason        FineReason      `json:"reason" db:"reason"`
	Description   string          `json:"description" db:"description"`
	Status        FineStatus      `json:"status" db:"status"`
	IssuedDate    time.Time       `json:"issuedDate" db:"issued_date"`
	PaidDate      *time.Time      `json:"paidDate,omitempty" db:"paid_date"`
	PaymentMethod string          `json:"paymentMethod,omitempty" db:"payment_method"`
	TransactionID string          `json:"transactionId,omitempty" db:"transaction_id"`
}

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationFulfilled ReservationStatus = "FULFILLED"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationExpired   ReservationStatus = "EXPIRED"
)

type Reservation struct {
	ID              string            `json:"reservationId" db:"id"`
	ItemID          string            `json:"itemId" db:"item_id"`
	MemberID        string            `json:"memberId" db:"member_id"`
	ReservationDate time.Time         `json:"reservationDate" db:"reservation_date"`
	ExpiryDate      time.Time         `json:"expiryDate" db:"expiry_date"`
	Status          ReservationStatus `json:"status" db:"status"`
	PositionInQueue int               `json:"positionInQueue" db:"position_in_queue"`
	Notified        bool              `json:"notified" db:"notified"`
}

// Reason is the machine-readable code of a business denial.
type Reason string

const (
	ReasonMemberNotActive      Reason = "member not active"
	ReasonNoPolicy             Reason = "no policy for tier"
	ReasonMaxBooks             Reason = "max books reached"
	ReasonCopyNotAvailable     Reason = "copy not available"
	ReasonLoanNotActive        Reason = "not active"
	ReasonLoanOverdue          Reason = "cannot renew overdue"
	ReasonMaxRenewals          Reason = "max renewals reached"
	ReasonItemAvailable        Reason = "item available, reserve unnecessary"
	ReasonDuplicateReservation Reason = "duplicate reservation"
	ReasonReservationNotActive Reason = "reservation not active"
	ReasonReservationNotAtHead Reason = "reservation not at head of queue"
	ReasonLoanAlreadyClosed    Reason = "loan already closed"
	ReasonFineNotPending       Reason = "fine not pending"
)

type NotificationType string

const (
	NotifyCheckout         NotificationType = "BOOK_CHECKOUT"
	NotifyReturn           NotificationType = "BOOK_RETURN"
	NotifyRenewal          NotificationType = "LOAN_RENEWAL"
	NotifyOverdue          NotificationType = "OVERDUE"
	NotifyDueSoon          NotificationType = "DUE_SOON"
	NotifyFineIssued       NotificationType = "FINE_ISSUED"
	NotifyReservationReady NotificationType = "RESERVATION_READY"
)

type Notification struct {
	Type      NotificationType `json:"type"`
	MemberID  string           `json:"memberId"`
	SubjectID string           `json:"subjectId"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
}

type CheckoutRequest struct {
	MemberID string `json:"memberId" validate:"required"`
	CopyID   string `json:"copyId" validate:"required"`
	Actor    string `json:"-" validate:"required"`
	Notes    string `json:"notes"`
}

type ReserveRequest struct {
	ItemID   string `json:"itemId" validate:"required"`
	MemberID string `json:"memberId" validate:"required"`
}

type PayFineRequest struct {
	PaymentMethod string `json:"paymentMethod" validate:"required"`
	TransactionID string `json:"transactionId" validate:"required"`
}

type ReturnResult struct {
	Loan Loan  `json:"loan"`
	Fine *Fine `json:"fine,omitempty"`
}

type SweepResult struct {
	AsOf               time.Time `json:"asOf"`
	LoansMarkedOverdue int       `json:"loansMarkedOverdue"`
	FinesCreated       int       `json:"finesCreated"`
}

type MemberLoans struct {
	Active  []Loan `json:"active"`
	History []Loan `json:"history"`
}

type MemberFines struct {
	Items        []Fine          `json:"items"`
	TotalPending decimal.Decimal `json:"totalPending"`
}

type Date struct {
	time.Time `json:",inline"`
}

func (d *Date) UnmarshalJSON(b []byte) (err error) {
	s := strings.Trim(string(b), "\"")
	if s == "" || s == "null" {
		return nil
	}
	date, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return err
	}
	d.Time = date
	return nil
}

// Day truncates t to its UTC calendar date. Due and expiry dates are days, not instants.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date. An empty string yields the day of fallback.
func ParseDay(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return Day(fallback), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
