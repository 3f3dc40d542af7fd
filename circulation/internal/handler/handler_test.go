package handler_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/handler"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/policy"
	"github.com/Astemirdum/library-circulation/pkg/actor"
	"github.com/Astemirdum/library-circulation/pkg/validate"

	service_mocks "github.com/Astemirdum/library-circulation/circulation/internal/handler/mocks"
)

type response struct {
	expectedCode int
	expectedBody string
}

func newEcho(svc handler.CirculationService) (*echo.Echo, *handler.Handler) {
	e := echo.New()
	e.Validator = validate.NewCustomValidator()
	return e, handler.New(svc, zap.NewExample().Named("test"))
}

func serve(t *testing.T, e *echo.Echo, method, target, body, user string, resp response) {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, http.NoBody)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if user != "" {
		r.Header.Set(actor.XUserName, user)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)

	require.Equal(t, resp.expectedCode, w.Code)
	if resp.expectedBody != "" {
		require.Equal(t, resp.expectedBody, strings.Trim(w.Body.String(), "\n"))
	}
}

func TestHandler_CanCheckout(t *testing.T) {
	t.Parallel()
	type input struct {
		memberID, copyID string
	}
	type mockBehavior func(r *service_mocks.MockCirculationService, inp input)

	tests := []struct {
		name         string
		mockBehavior mockBehavior
		input        input
		response     response
	}{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockCirculationService, inp input) {
				r.EXPECT().CanCheckout(gomock.Any(), inp.memberID, inp.copyID).Return(policy.Allow(), nil)
			},
			input:    input{memberID: "m1", copyID: "c1"},
			response: response{expectedCode: http.StatusOK, expectedBody: `{"allowed":true}`},
		},
		{
			name: "denied",
			mockBehavior: func(r *service_mocks.MockCirculationService, inp input) {
				r.EXPECT().CanCheckout(gomock.Any(), inp.memberID, inp.copyID).Return(policy.Deny(model.ReasonMaxBooks), nil)
			},
			input:    input{memberID: "m1", copyID: "c1"},
			response: response{expectedCode: http.StatusOK, expectedBody: `{"allowed":false,"reason":"max books reached"}`},
		},
		{
			name:         "err. copyId required",
			mockBehavior: func(r *service_mocks.MockCirculationService, inp input) {},
			input:        input{memberID: "m1"},
			response:     response{expectedCode: http.StatusBadRequest, expectedBody: `{"message":"copyId is required"}`},
		},
		{
			name: "err. unknown member",
			mockBehavior: func(r *service_mocks.MockCirculationService, inp input) {
				r.EXPECT().CanCheckout(gomock.Any(), inp.memberID, inp.copyID).Return(policy.Decision{}, errs.Unknown("member", inp.memberID))
			},
			input:    input{memberID: "ghost", copyID: "c1"},
			response: response{expectedCode: http.StatusNotFound},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockCirculationService(c)
			e, h := newEcho(svc)
			e.GET("/members/:memberId/eligibility", h.CanCheckout)

			tt.mockBehavior(svc, tt.input)
			serve(t, e, http.MethodGet,
				fmt.Sprintf("/members/%s/eligibility?copyId=%s", tt.input.memberID, tt.input.copyID), "", "", tt.response)
		})
	}
}

func TestHandler_Checkout(t *testing.T) {
	t.Parallel()
	checkoutAt := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	type input struct {
		body string
		user string
	}
	type mockBehavior func(r *service_mocks.MockCirculationService)

	tests := []struct {
		name         string
		mockBehavior mockBehavior
		input        input
		response     response
	}{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockCirculationService) {
				r.EXPECT().
					Checkout(gomock.Any(), model.CheckoutRequest{MemberID: "m1", CopyID: "c1", Actor: "librarian"}).
					Return(model.Loan{
						ID:           "l1",
						MemberID:     "m1",
						CopyID:       "c1",
						CheckoutDate: checkoutAt,
						DueDate:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
						MaxRenewals:  3,
						Status:       model.LoanActive,
						CheckedOutBy: "librarian",
					}, nil)
			},
			input: input{body: `{"memberId":"m1","copyId":"c1"}`, user: "librarian"},
			response: response{
				expectedCode: http.StatusCreated,
				expectedBody: `{"loanId":"l1","memberId":"m1","copyId":"c1","checkoutDate":"2024-01-01T10:00:00Z","dueDate":"2024-01-15T00:00:00Z","renewalCount":0,"maxRenewals":3,"status":"ACTIVE","checkedOutBy":"librarian"}`,
			},
		},
		{
			name:         "err. no actor",
			mockBehavior: func(r *service_mocks.MockCirculationService) {},
			input:        input{body: `{"memberId":"m1","copyId":"c1"}`},
			response:     response{expectedCode: http.StatusUnauthorized, expectedBody: `{"message":"username is empty"}`},
		},
		{
			name:         "err. copyId required",
			mockBehavior: func(r *service_mocks.MockCirculationService) {},
			input:        input{body: `{"memberId":"m1"}`, user: "librarian"},
			response:     response{expectedCode: http.StatusBadRequest},
		},
		{
			name: "err. ineligible",
			mockBehavior: func(r *service_mocks.MockCirculationService) {
				r.EXPECT().Checkout(gomock.Any(), gomock.Any()).Return(model.Loan{}, errs.Ineligible(model.ReasonMaxBooks))
			},
			input: input{body: `{"memberId":"m1","copyId":"c1"}`, user: "librarian"},
			response: response{
				expectedCode: http.StatusUnprocessableEntity,
				expectedBody: `{"message":"ineligible: max books reached","reason":"max books reached"}`,
			},
		},
		{
			name: "err. conflict",
			mockBehavior: func(r *service_mocks.MockCirculationService) {
				r.EXPECT().Checkout(gomock.Any(), gomock.Any()).Return(model.Loan{}, errors.Wrap(errs.ErrConflict, "copy c1 is not AVAILABLE"))
			},
			input:    input{body: `{"memberId":"m1","copyId":"c1"}`, user: "librarian"},
			response: response{expectedCode: http.StatusConflict, expectedBody: `{"message":"copy c1 is not AVAILABLE: conflict"}`},
		},
		{
			name: "err. internal",
			mockBehavior: func(r *service_mocks.MockCirculationService) {
				r.EXPECT().Checkout(gomock.Any(), gomock.Any()).Return(model.Loan{}, errors.New("db internal"))
			},
			input:    input{body: `{"memberId":"m1","copyId":"c1"}`, user: "librarian"},
			response: response{expectedCode: http.StatusInternalServerError, expectedBody: `{"message":"db internal"}`},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockCirculationService(c)
			e, h := newEcho(svc)
			e.POST("/loans", h.Checkout, actor.Middleware)

			tt.mockBehavior(svc)
			serve(t, e, http.MethodPost, "/loans", tt.input.body, tt.input.user, tt.response)
		})
	}
}

func TestHandler_ReturnCopy(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	defer c.Finish()
	svc := service_mocks.NewMockCirculationService(c)
	e, h := newEcho(svc)
	e.POST("/loans/:loanId/return", h.ReturnCopy, actor.Middleware)

	svc.EXPECT().ReturnCopy(gomock.Any(), "l1", "librarian").
		Return(model.ReturnResult{}, errs.Ineligible(model.ReasonLoanAlreadyClosed))
	serve(t, e, http.MethodPost, "/loans/l1/return", "", "librarian", response{
		expectedCode: http.StatusUnprocessableEntity,
		expectedBody: `{"message":"ineligible: loan already closed","reason":"loan already closed"}`,
	})

	svc.EXPECT().ReturnCopy(gomock.Any(), "nope", "librarian").Return(model.ReturnResult{}, errs.Unknown("loan", "nope"))
	serve(t, e, http.MethodPost, "/loans/nope/return", "", "librarian", response{expectedCode: http.StatusNotFound})
}

func TestHandler_Renew_PolicyNotFound(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	defer c.Finish()
	svc := service_mocks.NewMockCirculationService(c)
	e, h := newEcho(svc)
	e.POST("/loans/:loanId/renew", h.Renew, actor.Middleware)

	svc.EXPECT().Renew(gomock.Any(), "l1", "librarian").Return(model.Loan{}, errors.Wrap(errs.ErrPolicyNotFound, "tier VIP"))
	serve(t, e, http.MethodPost, "/loans/l1/renew", "", "librarian", response{
		expectedCode: http.StatusUnprocessableEntity,
		expectedBody: `{"message":"tier VIP: no checkout policy for tier"}`,
	})
}

func TestHandler_Reservations(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	defer c.Finish()
	svc := service_mocks.NewMockCirculationService(c)
	e, h := newEcho(svc)
	e.POST("/reservations", h.Reserve)
	e.POST("/reservations/:reservationId/cancel", h.CancelReservation)

	svc.EXPECT().Reserve(gomock.Any(), model.ReserveRequest{ItemID: "x", MemberID: "m1"}).
		Return(model.Reservation{}, errs.Ineligible(model.ReasonItemAvailable))
	serve(t, e, http.MethodPost, "/reservations", `{"itemId":"x","memberId":"m1"}`, "", response{
		expectedCode: http.StatusUnprocessableEntity,
		expectedBody: `{"message":"ineligible: item available, reserve unnecessary","reason":"item available, reserve unnecessary"}`,
	})

	serve(t, e, http.MethodPost, "/reservations", `{"itemId":"x"}`, "", response{expectedCode: http.StatusBadRequest})

	svc.EXPECT().CancelReservation(gomock.Any(), "r1").Return(nil)
	serve(t, e, http.MethodPost, "/reservations/r1/cancel", "", "", response{expectedCode: http.StatusNoContent})
}

func TestHandler_RunOverdueSweep(t *testing.T) {
	t.Parallel()
	asOf := time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC)
	c := gomock.NewController(t)
	defer c.Finish()
	svc := service_mocks.NewMockCirculationService(c)
	e, h := newEcho(svc)
	e.POST("/sweeps/overdue", h.RunOverdueSweep, actor.Middleware)

	svc.EXPECT().RunOverdueSweep(gomock.Any(), asOf).
		Return(model.SweepResult{AsOf: asOf, LoansMarkedOverdue: 2, FinesCreated: 1}, nil)
	serve(t, e, http.MethodPost, "/sweeps/overdue?asOf=2024-01-25", "", "cron", response{
		expectedCode: http.StatusOK,
		expectedBody: `{"asOf":"2024-01-25T00:00:00Z","loansMarkedOverdue":2,"finesCreated":1}`,
	})

	serve(t, e, http.MethodPost, "/sweeps/overdue?asOf=25.01.2024", "", "cron", response{
		expectedCode: http.StatusBadRequest,
		expectedBody: `{"message":"asOf is invalid"}`,
	})
}

func TestHandler_PayFine(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	defer c.Finish()
	svc := service_mocks.NewMockCirculationService(c)
	e, h := newEcho(svc)
	e.POST("/fines/:fineId/pay", h.PayFine)

	serve(t, e, http.MethodPost, "/fines/f1/pay", `{"paymentMethod":"card"}`, "", response{expectedCode: http.StatusBadRequest})

	req := model.PayFineRequest{PaymentMethod: "card", TransactionID: "tx-1"}
	svc.EXPECT().PayFine(gomock.Any(), "f1", req).Return(model.Fine{}, errs.Ineligible(model.ReasonFineNotPending))
	serve(t, e, http.MethodPost, "/fines/f1/pay", `{"paymentMethod":"card","transactionId":"tx-1"}`, "", response{
		expectedCode: http.StatusUnprocessableEntity,
		expectedBody: `{"message":"ineligible: fine not pending","reason":"fine not pending"}`,
	})
}

func TestHandler_Router(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	defer c.Finish()
	svc := service_mocks.NewMockCirculationService(c)
	_, h := newEcho(svc)
	e := h.NewRouter()

	serve(t, e, http.MethodGet, "/manage/health", "", "", response{expectedCode: http.StatusOK, expectedBody: "OK"})
	serve(t, e, http.MethodPost, "/api/v1/sweeps/overdue", "", "", response{
		expectedCode: http.StatusUnauthorized,
		expectedBody: `{"message":"username is empty"}`,
	})

	svc.EXPECT().ListPolicies(gomock.Any()).Return([]model.CheckoutPolicy{}, nil)
	serve(t, e, http.MethodGet, "/api/v1/policies", "", "", response{expectedCode: http.StatusOK, expectedBody: `[]`})
}
