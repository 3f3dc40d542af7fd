package handler

import (
	"context"
	"time"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/policy"
	"github.com/Astemirdum/library-circulation/circulation/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type CirculationService interface {
	CanCheckout(ctx context.Context, memberID, copyID string) (policy.Decision, error)
	Checkout(ctx context.Context, req model.CheckoutRequest) (model.Loan, error)
	GetLoan(ctx context.Context, loanID string) (model.Loan, error)
	CanRenew(ctx context.Context, loanID string) (policy.Decision, error)
	Renew(ctx context.Context, loanID, actor string) (model.Loan, error)
	ListRenewals(ctx context.Context, loanID string) ([]model.RenewalRecord, error)
	ReturnCopy(ctx context.Context, loanID, actor string) (model.ReturnResult, error)

	Reserve(ctx context.Context, req model.ReserveRequest) (model.Reservation, error)
	CancelReservation(ctx context.Context, reservationID string) error
	FulfillReservation(ctx context.Context, reservationID string) (model.Reservation, error)
	FulfillNext(ctx context.Context, itemID, copyID string) (model.Reservation, error)

	PayFine(ctx context.Context, fineID string, req model.PayFineRequest) (model.Fine, error)
	WaiveFine(ctx context.Context, fineID, actor string) (model.Fine, error)

	ListMemberLoans(ctx context.Context, memberID string) (model.MemberLoans, error)
	ListMemberReservations(ctx context.Context, memberID string) ([]model.Reservation, error)
	ListMemberFines(ctx context.Context, memberID string) (model.MemberFines, error)

	RunOverdueSweep(ctx context.Context, asOf time.Time) (model.SweepResult, error)
	SendDueDateReminders(ctx context.Context, asOf time.Time) (int, error)
	ExpireReservations(ctx context.Context, asOf time.Time) (int, error)

	ListPolicies(ctx context.Context) ([]model.CheckoutPolicy, error)
	GetPolicy(ctx context.Context, tier model.Tier) (model.CheckoutPolicy, error)
	UpsertPolicy(ctx context.Context, p model.CheckoutPolicy, actor string) error
}

var _ CirculationService = (*service.Service)(nil)
