package workflow

import (
	"errors"
	"time"

	loanuc "credit-ledger/internal/usecase/loan"
)

var (
	ErrAlreadyClaimed  = errors.New("offer already claimed")
	ErrRequestClosed   = errors.New("request already decided")
	ErrRequestNotFound = errors.New("request not found")
)

type Kind string

const (
	KindBorrow    Kind = "borrow"
	KindOffer     Kind = "offer"
	KindRepayment Kind = "repayment"
)

type Outcome string

const (
	OutcomeOpen     Outcome = "open"
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
	OutcomeClaimed  Outcome = "claimed"
	// OutcomeFailed closes a conversation whose action can no longer apply,
	// e.g. the borrower took another loan in the meantime.
	OutcomeFailed Outcome = "failed"
	// OutcomeExpired closes a conversation nobody acted on in time.
	OutcomeExpired Outcome = "expired"
)

// PendingRequest is one interactive conversation awaiting a decision.
type PendingRequest struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Requester string    `json:"requester"`
	Amount    int64     `json:"amount"`
	Claimed   bool      `json:"claimed"`
	Outcome   Outcome   `json:"outcome"`
	DecidedBy string    `json:"decided_by,omitempty"`
	LoanID    string    `json:"loan_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	DecidedAt time.Time `json:"decided_at,omitempty"`
}

func (r PendingRequest) Terminal() bool { return r.Outcome != OutcomeOpen }

// RepaymentQuote is what the borrower owes at the moment they ask to repay.
type RepaymentQuote struct {
	Request PendingRequest `json:"request"`
	Loan    loanuc.LoanDTO `json:"loan"`
}

type TransferResult struct {
	Loan      loanuc.LoanDTO `json:"loan"`
	Delivered bool           `json:"delivered"`
}
