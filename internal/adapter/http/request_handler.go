package http

import (
	"context"
	"fmt"
	"net/http"

	"credit-ledger/internal/adapter/middleware"
	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/usecase/workflow"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestHandler drives the borrow, offer and repayment conversations.
type RequestHandler struct {
	co  *workflow.Coordinator
	log *zap.Logger
}

func NewRequestHandler(co *workflow.Coordinator, log *zap.Logger) *RequestHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &RequestHandler{co: co, log: log}
}

type amountReq struct {
	Amount int64 `json:"amount" validate:"required,gt=0,lte=1000000000000"`
}

type requestPath struct {
	ID string `param:"id" validate:"required,hex32"`
}

type decision func(ctx context.Context, admin, requestID string) (workflow.PendingRequest, error)

// bindInto binds and validates v, writing the error reply itself.
// ok is false when a reply has already been sent.
func bindInto(c echo.Context, v any) (ok bool, err error) {
	if err := c.Bind(v); err != nil {
		return false, badBody(c)
	}
	if err := c.Validate(v); err != nil {
		return false, invalid(c, err)
	}
	return true, nil
}

func (h *RequestHandler) RequestBorrow(c echo.Context) error {
	var req amountReq
	if ok, err := bindInto(c, &req); !ok {
		return err
	}
	pr, err := h.co.RequestBorrow(c.Request().Context(), middleware.ActorFrom(c), req.Amount)
	if err != nil {
		return fail(c, h.log, err, nil)
	}
	return private(c, http.StatusCreated,
		fmt.Sprintf("loan request for %s sent to the administrators", loan.Credits(req.Amount)), pr)
}

func (h *RequestHandler) ApproveBorrow(c echo.Context) error {
	return h.decide(c, h.co.ApproveBorrow)
}

func (h *RequestHandler) RejectBorrow(c echo.Context) error {
	return h.decide(c, h.co.RejectBorrow)
}

func (h *RequestHandler) ApproveRepayment(c echo.Context) error {
	return h.decide(c, h.co.ApproveRepayment)
}

func (h *RequestHandler) RejectRepayment(c echo.Context) error {
	return h.decide(c, h.co.RejectRepayment)
}

func (h *RequestHandler) decide(c echo.Context, act decision) error {
	var p requestPath
	if ok, err := bindInto(c, &p); !ok {
		return err
	}
	pr, err := act(c.Request().Context(), middleware.ActorFrom(c), p.ID)
	if err != nil {
		return fail(c, h.log, err, orNil(pr))
	}
	return reply(c, http.StatusOK, outcomeMessage(pr), pr)
}

func (h *RequestHandler) PostOffer(c echo.Context) error {
	var req amountReq
	if ok, err := bindInto(c, &req); !ok {
		return err
	}
	pr, err := h.co.PostOffer(c.Request().Context(), middleware.ActorFrom(c), req.Amount)
	if err != nil {
		return fail(c, h.log, err, nil)
	}
	return reply(c, http.StatusCreated,
		fmt.Sprintf("loan offer of %s is open, first to accept takes it", loan.Credits(req.Amount)), pr)
}

func (h *RequestHandler) AcceptOffer(c echo.Context) error {
	var p requestPath
	if ok, err := bindInto(c, &p); !ok {
		return err
	}
	pr, err := h.co.AcceptOffer(c.Request().Context(), middleware.ActorFrom(c), p.ID)
	if err != nil {
		return fail(c, h.log, err, orNil(pr))
	}
	return reply(c, http.StatusOK, outcomeMessage(pr), pr)
}

func (h *RequestHandler) RequestRepayment(c echo.Context) error {
	q, err := h.co.RequestRepayment(c.Request().Context(), middleware.ActorFrom(c))
	if err != nil {
		return fail(c, h.log, err, nil)
	}
	return private(c, http.StatusCreated,
		fmt.Sprintf("repayment request for %s (principal %s plus %s interest) sent to the administrators",
			loan.Credits(q.Loan.Total), loan.Credits(q.Loan.Amount), loan.Credits(q.Loan.Interest)), q)
}

func outcomeMessage(pr workflow.PendingRequest) string {
	amount := loan.Credits(pr.Amount)
	switch pr.Kind {
	case workflow.KindBorrow:
		switch pr.Outcome {
		case workflow.OutcomeApproved:
			return fmt.Sprintf("loan of %s to %s approved", amount, pr.Requester)
		case workflow.OutcomeRejected:
			return fmt.Sprintf("loan of %s to %s rejected", amount, pr.Requester)
		}
	case workflow.KindOffer:
		if pr.Outcome == workflow.OutcomeClaimed {
			return fmt.Sprintf("%s took the offer of %s", pr.DecidedBy, amount)
		}
	case workflow.KindRepayment:
		switch pr.Outcome {
		case workflow.OutcomeApproved:
			return fmt.Sprintf("repayment of %s by %s approved", amount, pr.Requester)
		case workflow.OutcomeRejected:
			return fmt.Sprintf("repayment by %s rejected", pr.Requester)
		}
	}
	return string(pr.Outcome)
}

// orNil drops the zero request so error replies without one omit data.
func orNil(pr workflow.PendingRequest) any {
	if pr.ID == "" {
		return nil
	}
	return pr
}
