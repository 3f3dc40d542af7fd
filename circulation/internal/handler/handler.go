package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/pkg/actor"
	md "github.com/Astemirdum/library-circulation/pkg/middleware"
	"github.com/Astemirdum/library-circulation/pkg/validate"
)

type Handler struct {
	circulationSvc CirculationService
	log            *zap.Logger
}

func New(circulationSvc CirculationService, log *zap.Logger) *Handler {
	return &Handler{
		circulationSvc: circulationSvc,
		log:            log.Named("handler"),
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig(h.log)),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)

	api.GET("/members/:memberId/eligibility", h.CanCheckout)
	api.GET("/members/:memberId/loans", h.ListMemberLoans)
	api.GET("/members/:memberId/reservations", h.ListMemberReservations)
	api.GET("/members/:memberId/fines", h.ListMemberFines)

	api.POST("/loans", h.Checkout, actor.Middleware)
	api.GET("/loans/:loanId", h.GetLoan)
	api.GET("/loans/:loanId/renewal", h.CanRenew)
	api.GET("/loans/:loanId/renewals", h.ListRenewals)
	api.POST("/loans/:loanId/renew", h.Renew, actor.Middleware)
	api.POST("/loans/:loanId/return", h.ReturnCopy, actor.Middleware)

	api.POST("/reservations", h.Reserve)
	api.POST("/reservations/:reservationId/cancel", h.CancelReservation)
	api.POST("/reservations/:reservationId/fulfill", h.FulfillReservation, actor.Middleware)

	api.POST("/fines/:fineId/pay", h.PayFine)
	api.POST("/fines/:fineId/waive", h.WaiveFine, actor.Middleware)

	sweeps := api.Group("/sweeps", actor.Middleware)
	sweeps.POST("/overdue", h.RunOverdueSweep)
	sweeps.POST("/reminders", h.SendDueDateReminders)
	sweeps.POST("/reservations", h.ExpireReservations)

	api.GET("/policies", h.ListPolicies)
	api.GET("/policies/:tier", h.GetPolicy)
	api.PUT("/policies/:tier", h.UpsertPolicy, actor.Middleware)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// httpError maps service errors onto status codes. Denials carry their reason code.
func httpError(err error) error {
	if reason, ok := errs.ReasonOf(err); ok {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, errs.ErrorResponse{
			Message: err.Error(),
			Reason:  reason,
		})
	}
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrPolicyNotFound):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, errs.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func actorName(c echo.Context) (string, error) {
	name, err := actor.GetName(c)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	return name, nil
}

func (h *Handler) CanCheckout(c echo.Context) error {
	copyID := c.QueryParam("copyId")
	if copyID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "copyId is required")
	}
	d, err := h.circulationSvc.CanCheckout(c.Request().Context(), c.Param("memberId"), copyID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Checkout(c echo.Context) error {
	name, err := actorName(c)
	if err != nil {
		return err
	}
	var req model.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Actor = name
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	loan, err := h.circulationSvc.Checkout(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, loan)
}

func (h *Handler) GetLoan(c echo.Context) error {
	loan, err := h.circulationSvc.GetLoan(c.Request().Context(), c.Param("loanId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

func (h *Handler) CanRenew(c echo.Context) error {
	d, err := h.circulationSvc.CanRenew(c.Request().Context(), c.Param("loanId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Renew(c echo.Context) error {
	name, err := actorName(c)
	if err != nil {
		return err
	}
	loan, err := h.circulationSvc.Renew(c.Request().Context(), c.Param("loanId"), name)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

func (h *Handler) ListRenewals(c echo.Context) error {
	recs, err := h.circulationSvc.ListRenewals(c.Request().Context(), c.Param("loanId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *Handler) ReturnCopy(c echo.Context) error {
	name, err := actorName(c)
	if err != nil {
		return err
	}
	res, err := h.circulationSvc.ReturnCopy(c.Request().Context(), c.Param("loanId"), name)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Reserve(c echo.Context) error {
	var req model.ReserveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.circulationSvc.Reserve(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) CancelReservation(c echo.Context) error {
	if err := h.circulationSvc.CancelReservation(c.Request().Context(), c.Param("reservationId")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) FulfillReservation(c echo.Context) error {
	res, err := h.circulationSvc.FulfillReservation(c.Request().Context(), c.Param("reservationId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) PayFine(c echo.Context) error {
	var req model.PayFineRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	fine, err := h.circulationSvc.PayFine(c.Request().Context(), c.Param("fineId"), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, fine)
}

func (h *Handler) WaiveFine(c echo.Context) error {
	name, err := actorName(c)
	if err != nil {
		return err
	}
	fine, err := h.circulationSvc.WaiveFine(c.Request().Context(), c.Param("fineId"), name)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, fine)
}

func (h *Handler) ListMemberLoans(c echo.Context) error {
	loans, err := h.circulationSvc.ListMemberLoans(c.Request().Context(), c.Param("memberId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) ListMemberReservations(c echo.Context) error {
	list, err := h.circulationSvc.ListMemberReservations(c.Request().Context(), c.Param("memberId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) ListMemberFines(c echo.Context) error {
	fines, err := h.circulationSvc.ListMemberFines(c.Request().Context(), c.Param("memberId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, fines)
}

func asOf(c echo.Context) (time.Time, error) {
	t, err := model.ParseDay(c.QueryParam("asOf"), time.Now())
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "asOf is invalid")
	}
	return t, nil
}

type countResponse struct {
	AsOf  string `json:"asOf"`
	Count int    `json:"count"`
}

func (h *Handler) RunOverdueSweep(c echo.Context) error {
	day, err := asOf(c)
	if err != nil {
		return err
	}
	res, err := h.circulationSvc.RunOverdueSweep(c.Request().Context(), day)
	if err != nil {
		h.log.Error("overdue sweep", zap.Error(err))
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) SendDueDateReminders(c echo.Context) error {
	day, err := asOf(c)
	if err != nil {
		return err
	}
	n, err := h.circulationSvc.SendDueDateReminders(c.Request().Context(), day)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, countResponse{AsOf: day.Format(time.DateOnly), Count: n})
}

func (h *Handler) ExpireReservations(c echo.Context) error {
	day, err := asOf(c)
	if err != nil {
		return err
	}
	n, err := h.circulationSvc.ExpireReservations(c.Request().Context(), day)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, countResponse{AsOf: day.Format(time.DateOnly), Count: n})
}

func (h *Handler) ListPolicies(c echo.Context) error {
	policies, err := h.circulationSvc.ListPolicies(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, policies)
}

func (h *Handler) GetPolicy(c echo.Context) error {
	p, err := h.circulationSvc.GetPolicy(c.Request().Context(), model.Tier(c.Param("tier")))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpsertPolicy(c echo.Context) error {
	name, err := actorName(c)
	if err != nil {
		return err
	}
	var p model.CheckoutPolicy
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.Tier = model.Tier(c.Param("tier"))
	if err := c.Validate(p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.circulationSvc.UpsertPolicy(c.Request().Context(), p, name); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}
