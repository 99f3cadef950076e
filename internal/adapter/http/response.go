package http

import (
	"errors"
	"net/http"

	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/usecase/workflow"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Response is the body of every command reply. Ephemeral replies are
// meant for the requester only.
type Response struct {
	Message   string       `json:"message"`
	Ephemeral bool         `json:"ephemeral"`
	Data      any          `json:"data,omitempty"`
	Details   []FieldError `json:"details,omitempty"`
}

func reply(c echo.Context, code int, msg string, data any) error {
	return c.JSON(code, Response{Message: msg, Data: data})
}

func private(c echo.Context, code int, msg string, data any) error {
	return c.JSON(code, Response{Message: msg, Ephemeral: true, Data: data})
}

func invalid(c echo.Context, err error) error {
	return c.JSON(http.StatusUnprocessableEntity, Response{
		Message:   "validation failed",
		Ephemeral: true,
		Details:   ToFieldErrors(err),
	})
}

func badBody(c echo.Context) error {
	return private(c, http.StatusBadRequest, "invalid body", nil)
}

// fail maps a usecase error to a status and a short user-facing message.
// Expected business outcomes are not logged; infrastructure failures are.
func fail(c echo.Context, log *zap.Logger, err error, data any) error {
	code, msg := http.StatusInternalServerError, "something went wrong, please try again"
	switch {
	case errors.Is(err, loan.ErrUnauthorized):
		code, msg = http.StatusForbidden, "this command is for administrators only"
	case errors.Is(err, loan.ErrDuplicatePendingLoan):
		code, msg = http.StatusConflict, "you already have an outstanding loan, repay it first"
	case errors.Is(err, workflow.ErrAlreadyClaimed):
		code, msg = http.StatusConflict, "someone else already took this offer"
	case errors.Is(err, workflow.ErrRequestClosed):
		code, msg = http.StatusConflict, "this request has already been decided"
	case errors.Is(err, loan.ErrNoPendingLoan):
		code, msg = http.StatusNotFound, "no outstanding loan"
	case errors.Is(err, workflow.ErrRequestNotFound):
		code, msg = http.StatusNotFound, "request not found"
	case errors.Is(err, loan.ErrInvalidAmount), errors.Is(err, loan.ErrInvalidUser), errors.Is(err, loan.ErrInvalidTransition):
		code, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, loan.ErrStoreUnavailable):
		code, msg = http.StatusServiceUnavailable, "the ledger is unavailable, please try again later"
		log.Error("store unavailable", zap.String("path", c.Path()), zap.Error(err))
	default:
		log.Error("command failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return private(c, code, msg, data)
}
