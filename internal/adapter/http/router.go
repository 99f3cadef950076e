package http

import (
	"net/http"
	"time"

	"credit-ledger/internal/adapter/middleware"
	"credit-ledger/internal/config"
	loanuc "credit-ledger/internal/usecase/loan"
	"credit-ledger/internal/usecase/workflow"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps is everything the command API needs.
type Deps struct {
	Loans    *loanuc.Usecase
	Workflow *workflow.Coordinator
	Admins   config.Roster
	// Metrics is served on /metrics when set.
	Metrics http.Handler
	// Redis enables idempotent replays of mutating commands.
	Redis     redis.Cmdable
	IdempTTL  time.Duration
	JWTSecret string
	Log       *zap.Logger
}

// Register wires every route onto e.
func Register(e *echo.Echo, d Deps) {
	if e.Validator == nil {
		e.Validator = NewValidator()
	}
	h := NewHandler()
	lh := NewLoanHandler(d.Loans, d.Workflow, d.Log)
	rh := NewRequestHandler(d.Workflow, d.Log)

	e.GET("/health", h.Health)
	e.GET("/help", h.Help)
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}

	api := e.Group("", middleware.Actor(d.JWTSecret))
	if d.Redis != nil {
		api.Use(middleware.Idempotency(d.Redis, d.IdempTTL, d.Log))
	}

	api.GET("/loans/outstanding", lh.Outstanding)
	api.GET("/loans/me", lh.Mine)

	// admin-only routes are denied before their input is bound
	adminOnly := middleware.RequireAdmin(d.Admins.IsAdmin)

	api.POST("/borrow-requests", rh.RequestBorrow)
	api.POST("/borrow-requests/:id/approve", rh.ApproveBorrow, adminOnly)
	api.POST("/borrow-requests/:id/reject", rh.RejectBorrow, adminOnly)

	api.POST("/offers", rh.PostOffer, adminOnly)
	api.POST("/offers/:id/accept", rh.AcceptOffer)

	api.POST("/repayment-requests", rh.RequestRepayment)
	api.POST("/repayment-requests/:id/approve", rh.ApproveRepayment, adminOnly)
	api.POST("/repayment-requests/:id/reject", rh.RejectRepayment, adminOnly)

	admin := api.Group("/admin", adminOnly)
	admin.GET("/transactions", lh.Transactions)
	admin.GET("/stats", lh.Stats)
	admin.POST("/debts/:user_id/clear", lh.ClearDebt)
	admin.POST("/transfers", lh.Transfer)
}
