package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

type health struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// Health needs no actor and never touches the store.
func (h *Handler) Health(c echo.Context) error {
	return reply(c, http.StatusOK, "ledger is up", health{Status: "ok", Time: time.Now().UTC()})
}

const helpText = `**Commands**
GET  /loans/outstanding        everyone's outstanding loans
GET  /loans/me                 your loan history
POST /borrow-requests          ask for a loan {amount}
POST /repayment-requests       ask to repay your outstanding loan
POST /offers/:id/accept        take a broadcast loan offer

**Administrators**
POST /borrow-requests/:id/approve | /reject
POST /repayment-requests/:id/approve | /reject
POST /offers                   broadcast a loan offer {amount}
POST /admin/debts/:user_id/clear
POST /admin/transfers          transfer credit {user_id, amount}
GET  /admin/transactions       every transaction
GET  /admin/stats              lending statistics

**Notes**
• Interest is 10% per hour, compounding
• Status "completed" = repaid, "cleared" = debt forgiven
• You cannot borrow again while you have an outstanding loan`

func (h *Handler) Help(c echo.Context) error {
	return reply(c, http.StatusOK, helpText, nil)
}
