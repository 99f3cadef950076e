package http

import (
	"fmt"
	"net/http"

	"credit-ledger/internal/adapter/middleware"
	"credit-ledger/internal/domain/loan"
	loanuc "credit-ledger/internal/usecase/loan"
	"credit-ledger/internal/usecase/workflow"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// LoanHandler serves the ledger reads and the direct admin operations.
type LoanHandler struct {
	loans *loanuc.Usecase
	co    *workflow.Coordinator
	log   *zap.Logger
}

func NewLoanHandler(loans *loanuc.Usecase, co *workflow.Coordinator, log *zap.Logger) *LoanHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoanHandler{loans: loans, co: co, log: log}
}

type clearDebtReq struct {
	UserID string `param:"user_id" validate:"required,userid"`
}

type transferReq struct {
	UserID string `json:"user_id" validate:"required,userid"`
	Amount int64  `json:"amount"  validate:"required,gt=0,lte=1000000000000"`
}

func (h *LoanHandler) Outstanding(c echo.Context) error {
	list, err := h.loans.Outstanding(c.Request().Context())
	if err != nil {
		return fail(c, h.log, err, nil)
	}
	if len(list) == 0 {
		return reply(c, http.StatusOK, "nobody has an outstanding loan", list)
	}
	return reply(c, http.StatusOK, fmt.Sprintf("%d outstanding loans", len(list)), list)
}

func (h *LoanHandler) Mine(c echo.Context) error {
	list, err := h.loans.History(c.Request().Context(), middleware.ActorFrom(c))
	if err != nil {
		return fail(c, h.log, err, nil)
	}
	if len(list) == 0 {
		return private(c, http.StatusOK, "you have no loan history", list)
	}
	return private(c, http.StatusOK, fmt.Sprintf("%d loans", len(list)), list)
}

func (h *LoanHandler) Transactions(c echo.Context) error {
	list, err := h.loans.Transactions(c.Request().Context())
	if err != nil {
		return fail(c, h.log, err, nil)
	}
	if len(list) == 0 {
		return private(c, http.StatusOK, "no transactions yet", list)
	}
	return private(c, http.StatusOK, fmt.Sprintf("%d transactions", len(list)), list)
}

func (h *LoanHandler) Stats(c echo.Context) error {
	s, err := h.loans.Stats(c.Request().Context())
	if err != nil {
		return fail(c, h.log, err, nil)
	}
	msg := fmt.Sprintf("%d transactions worth %s; %d outstanding worth %s plus %s interest",
		s.TotalLoans, loan.Credits(s.TotalAmount), s.PendingLoans, loan.Credits(s.PendingAmount), loan.Credits(s.InterestDue))
	return reply(c, http.StatusOK, msg, s)
}

func (h *LoanHandler) ClearDebt(c echo.Context) error {
	var req clearDebtReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	res, err := h.co.ClearDebt(c.Request().Context(), middleware.ActorFrom(c), req.UserID)
	if err != nil {
		return fail(c, h.log, err, nil)
	}
	if !res.Cleared {
		return reply(c, http.StatusOK, fmt.Sprintf("no outstanding loan for %s", req.UserID), res)
	}
	return reply(c, http.StatusOK, fmt.Sprintf("cleared %s of debt for %s", loan.Credits(res.Total), req.UserID), res)
}

func (h *LoanHandler) Transfer(c echo.Context) error {
	var req transferReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	res, err := h.co.TransferCredit(c.Request().Context(), middleware.ActorFrom(c), req.UserID, req.Amount)
	if err != nil {
		return fail(c, h.log, err, nil)
	}
	return reply(c, http.StatusCreated, fmt.Sprintf("transferred %s to %s", loan.Credits(req.Amount), req.UserID), res)
}
