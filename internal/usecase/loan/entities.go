package loan

import (
	"time"

	"credit-ledger/internal/domain/loan"
)

type LoanDTO struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Interest  int64     `json:"interest"`
	Total     int64     `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

// ClearResult reports what ClearDebt forgave. Cleared is false when the
// user had nothing pending.
type ClearResult struct {
	UserID  string    `json:"user_id"`
	Cleared bool      `json:"cleared"`
	Total   int64     `json:"total"`
	Loans   []LoanDTO `json:"loans"`
}

type Stats struct {
	TotalLoans    int       `json:"total_loans"`
	TotalAmount   int64     `json:"total_amount"`
	PendingLoans  int       `json:"pending_loans"`
	PendingAmount int64     `json:"pending_amount"`
	InterestDue   int64     `json:"interest_due"`
	HighInterest  []LoanDTO `json:"high_interest"`
}

func toDTO(c *loan.Calculator, l loan.Loan) LoanDTO {
	interest := c.AccruedInterest(l)
	return LoanDTO{
		ID:        l.ID,
		UserID:    l.UserID,
		Amount:    l.Amount,
		Status:    string(l.Status),
		Interest:  interest,
		Total:     l.Amount + interest,
		CreatedAt: l.CreatedAt,
	}
}

func toDTOs(c *loan.Calculator, ls []loan.Loan) []LoanDTO {
	out := make([]LoanDTO, 0, len(ls))
	for _, l := range ls {
		out = append(out, toDTO(c, l))
	}
	return out
}
