package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"credit-ledger/internal/config"
	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/infrastructure/metrics"
	loanuc "credit-ledger/internal/usecase/loan"
	"credit-ledger/pkg/id"
	"credit-ledger/pkg/logger"

	"go.uber.org/zap"
)

// Loans is the slice of the loan state machine the coordinator drives.
type Loans interface {
	CreateLoan(ctx context.Context, userID string, amount int64, initial loan.Status) (*loanuc.LoanDTO, error)
	ApproveRepayment(ctx context.Context, userID string) (*loanuc.LoanDTO, error)
	GrantCredit(ctx context.Context, userID string, amount int64) (*loanuc.LoanDTO, error)
	ClearDebt(ctx context.Context, userID string) (loanuc.ClearResult, error)
	RejectRequest(ctx context.Context, userID string, amount int64)
	PendingLoan(ctx context.Context, userID string) (*loanuc.LoanDTO, error)
}

// Sender delivers messages best-effort; it never blocks past its own timeout.
type Sender interface {
	Send(ctx context.Context, recipientID, text string) bool
	SendAll(ctx context.Context, recipients []string, text string) int
}

type Config struct {
	Admins config.Roster
	// AnnounceChannel receives public announcements. Empty disables them.
	AnnounceChannel string
	// Retention is how long a conversation is kept after it was opened
	// (while open) or decided (once terminal). Zero means DefaultRetention.
	Retention time.Duration
}

const DefaultRetention = 24 * time.Hour

type entry struct {
	mu  sync.Mutex
	req PendingRequest
}

// Coordinator runs the borrow, offer and repayment conversations. Each
// conversation has its own mutex, held from before the first store call
// until the conversation is terminal, so concurrent decisions on one
// conversation apply at most once. Notifications go out after the mutex
// is released.
type Coordinator struct {
	cfg     Config
	loans   Loans
	sender  Sender
	now     func() time.Time
	log     *zap.Logger
	metrics *metrics.Metrics

	mu   sync.Mutex
	reqs map[string]*entry
}

func NewCoordinator(cfg Config, loans Loans, sender Sender, now func() time.Time, log *zap.Logger, m *metrics.Metrics) *Coordinator {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	return &Coordinator{
		cfg:     cfg,
		loans:   loans,
		sender:  sender,
		now:     now,
		log:     log,
		metrics: m,
		reqs:    make(map[string]*entry),
	}
}

func (c *Coordinator) register(kind Kind, requester string, amount int64) PendingRequest {
	e := &entry{req: PendingRequest{
		ID:        id.NewID32(),
		Kind:      kind,
		Requester: requester,
		Amount:    amount,
		Outcome:   OutcomeOpen,
		CreatedAt: c.now().UTC(),
	}}
	c.mu.Lock()
	c.reqs[e.req.ID] = e
	c.mu.Unlock()
	return e.req
}

func (c *Coordinator) lookup(requestID string, kind Kind) (*entry, error) {
	c.mu.Lock()
	e, ok := c.reqs[requestID]
	c.mu.Unlock()
	if !ok || e.req.Kind != kind {
		return nil, ErrRequestNotFound
	}
	return e, nil
}

// Request returns a snapshot of a conversation.
func (c *Coordinator) Request(requestID string) (PendingRequest, error) {
	c.mu.Lock()
	e, ok := c.reqs[requestID]
	c.mu.Unlock()
	if !ok {
		return PendingRequest{}, ErrRequestNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.req, nil
}

// Len reports how many conversations are held in memory.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reqs)
}

// Sweep forgets conversations past the retention window. Open ones are
// closed as expired first so a caller already holding the entry sees
// ErrRequestClosed. It returns how many were removed.
func (c *Coordinator) Sweep() int {
	cutoff := c.now().UTC().Add(-c.cfg.Retention)

	c.mu.Lock()
	entries := make([]*entry, 0, len(c.reqs))
	for _, e := range c.reqs {
		entries = append(entries, e)
	}
	c.mu.Unlock()

	removed := 0
	for _, e := range entries {
		e.mu.Lock()
		since := e.req.CreatedAt
		if e.req.Terminal() {
			since = e.req.DecidedAt
		}
		if since.Before(cutoff) {
			if !e.req.Terminal() {
				e.req.Outcome = OutcomeExpired
				e.req.DecidedAt = c.now().UTC()
			}
			c.mu.Lock()
			delete(c.reqs, e.req.ID)
			c.mu.Unlock()
			removed++
		}
		e.mu.Unlock()
	}
	if removed > 0 {
		c.log.Info("conversations swept", zap.Int("removed", removed), zap.Int("held", c.Len()))
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (c *Coordinator) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.cfg.Retention / 4
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Sweep()
		}
	}
}

func (c *Coordinator) requireAdmin(actor string) error {
	if !c.cfg.Admins.IsAdmin(actor) {
		return loan.ErrUnauthorized
	}
	return nil
}

// decide runs act under the conversation mutex. act reports the outcome to
// record; an empty outcome leaves the conversation open for a retry.
func (c *Coordinator) decide(admin, requestID string, kind Kind, act func(req *PendingRequest) (Outcome, error)) (PendingRequest, error) {
	if err := c.requireAdmin(admin); err != nil {
		return PendingRequest{}, err
	}
	e, err := c.lookup(requestID, kind)
	if err != nil {
		return PendingRequest{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.req.Terminal() {
		c.metrics.Conflict(string(kind))
		return e.req, ErrRequestClosed
	}
	outcome, err := act(&e.req)
	if outcome != "" {
		e.req.Outcome = outcome
		e.req.DecidedBy = admin
		e.req.DecidedAt = c.now().UTC()
	}
	return e.req, err
}

func (c *Coordinator) otherAdmins(except string) []string {
	var out []string
	for _, a := range c.cfg.Admins.IDs() {
		if a != except {
			out = append(out, a)
		}
	}
	return out
}

func (c *Coordinator) announce(ctx context.Context, text string) {
	c.sender.Send(ctx, c.cfg.AnnounceChannel, text)
}

func validate(userID string, amount int64) error {
	if userID == "" {
		return loan.ErrInvalidUser
	}
	if !loan.ValidAmount(amount) {
		return loan.ErrInvalidAmount
	}
	return nil
}

// RequestBorrow opens a borrow conversation for actor and tells the
// administrators it is waiting.
func (c *Coordinator) RequestBorrow(ctx context.Context, actor string, amount int64) (PendingRequest, error) {
	if err := validate(actor, amount); err != nil {
		return PendingRequest{}, err
	}
	if err := c.refuseIfPending(ctx, actor); err != nil {
		return PendingRequest{}, err
	}

	req := c.register(KindBorrow, actor, amount)
	c.log.Info("borrow requested",
		zap.String("request_id", req.ID),
		logger.User(actor),
		zap.Int64("amount", amount),
	)
	c.sender.SendAll(ctx, c.cfg.Admins.IDs(),
		fmt.Sprintf("Loan request from %s for %s (request %s)", actor, loan.Credits(amount), req.ID))
	return req, nil
}

func (c *Coordinator) refuseIfPending(ctx context.Context, userID string) error {
	_, err := c.loans.PendingLoan(ctx, userID)
	switch {
	case err == nil:
		return loan.ErrDuplicatePendingLoan
	case errors.Is(err, loan.ErrNoPendingLoan):
		return nil
	default:
		return err
	}
}

func (c *Coordinator) ApproveBorrow(ctx context.Context, admin, requestID string) (PendingRequest, error) {
	req, err := c.decide(admin, requestID, KindBorrow, func(r *PendingRequest) (Outcome, error) {
		dto, err := c.loans.CreateLoan(ctx, r.Requester, r.Amount, loan.StatusPending)
		switch {
		case errors.Is(err, loan.ErrDuplicatePendingLoan):
			return OutcomeFailed, err
		case err != nil:
			return "", err
		}
		r.Claimed = true
		r.LoanID = dto.ID
		return OutcomeApproved, nil
	})
	if err != nil {
		if errors.Is(err, loan.ErrDuplicatePendingLoan) {
			c.sender.Send(ctx, req.Requester,
				fmt.Sprintf("Your loan request for %s could not be approved: you already have a pending loan.", loan.Credits(req.Amount)))
		}
		return req, err
	}

	c.log.Info("borrow approved",
		zap.String("request_id", req.ID),
		logger.User(req.Requester),
		logger.Actor(admin),
		zap.String("loan_id", req.LoanID),
	)
	c.sender.Send(ctx, req.Requester,
		fmt.Sprintf("Your loan request was approved: %s", loan.Credits(req.Amount)))
	c.sender.SendAll(ctx, c.otherAdmins(admin),
		fmt.Sprintf("%s was approved a loan of %s by %s", req.Requester, loan.Credits(req.Amount), admin))
	c.announce(ctx, fmt.Sprintf("Loan approved for %s: %s", req.Requester, loan.Credits(req.Amount)))
	return req, nil
}

func (c *Coordinator) RejectBorrow(ctx context.Context, admin, requestID string) (PendingRequest, error) {
	req, err := c.decide(admin, requestID, KindBorrow, func(r *PendingRequest) (Outcome, error) {
		c.loans.RejectRequest(ctx, r.Requester, r.Amount)
		return OutcomeRejected, nil
	})
	if err != nil {
		return req, err
	}
	c.sender.Send(ctx, req.Requester,
		fmt.Sprintf("Your loan request was rejected: %s", loan.Credits(req.Amount)))
	return req, nil
}

// PostOffer publishes a loan that the first accepting user receives.
func (c *Coordinator) PostOffer(ctx context.Context, admin string, amount int64) (PendingRequest, error) {
	if err := c.requireAdmin(admin); err != nil {
		return PendingRequest{}, err
	}
	if err := validate(admin, amount); err != nil {
		return PendingRequest{}, err
	}
	req := c.register(KindOffer, admin, amount)
	c.log.Info("offer posted",
		zap.String("request_id", req.ID),
		logger.Actor(admin),
		zap.Int64("amount", amount),
	)
	c.announce(ctx, fmt.Sprintf("Loan offer: %s, first to accept gets it (offer %s)", loan.Credits(amount), req.ID))
	return req, nil
}

// AcceptOffer hands the offer to actor unless someone got there first.
// A user who already holds a pending loan is refused and the offer stays
// open for everyone else.
func (c *Coordinator) AcceptOffer(ctx context.Context, actor, offerID string) (PendingRequest, error) {
	if actor == "" {
		return PendingRequest{}, loan.ErrInvalidUser
	}
	e, err := c.lookup(offerID, KindOffer)
	if err != nil {
		return PendingRequest{}, err
	}

	e.mu.Lock()
	if e.req.Claimed {
		req := e.req
		e.mu.Unlock()
		c.metrics.Conflict(string(KindOffer))
		return req, ErrAlreadyClaimed
	}
	if e.req.Terminal() {
		req := e.req
		e.mu.Unlock()
		return req, ErrRequestClosed
	}
	dto, err := c.loans.CreateLoan(ctx, actor, e.req.Amount, loan.StatusPending)
	if err != nil {
		req := e.req
		e.mu.Unlock()
		return req, err
	}
	e.req.Claimed = true
	e.req.Outcome = OutcomeClaimed
	e.req.DecidedBy = actor
	e.req.DecidedAt = c.now().UTC()
	e.req.LoanID = dto.ID
	req := e.req
	e.mu.Unlock()

	c.log.Info("offer claimed",
		zap.String("request_id", req.ID),
		logger.User(actor),
		zap.String("loan_id", req.LoanID),
	)
	c.sender.SendAll(ctx, c.cfg.Admins.IDs(),
		fmt.Sprintf("%s took the loan offer of %s", actor, loan.Credits(req.Amount)))
	return req, nil
}

// RequestRepayment quotes the actor's pending loan and opens a repayment
// conversation for an administrator to confirm.
func (c *Coordinator) RequestRepayment(ctx context.Context, actor string) (RepaymentQuote, error) {
	if actor == "" {
		return RepaymentQuote{}, loan.ErrInvalidUser
	}
	dto, err := c.loans.PendingLoan(ctx, actor)
	if err != nil {
		return RepaymentQuote{}, err
	}
	req := c.register(KindRepayment, actor, dto.Total)
	c.log.Info("repayment requested",
		zap.String("request_id", req.ID),
		logger.User(actor),
		zap.Int64("total", dto.Total),
	)
	c.sender.SendAll(ctx, c.cfg.Admins.IDs(),
		fmt.Sprintf("Repayment request from %s\nPrincipal: %s\nInterest: %s\nTotal: %s\n(request %s)",
			actor, loan.Credits(dto.Amount), loan.Credits(dto.Interest), loan.Credits(dto.Total), req.ID))
	return RepaymentQuote{Request: req, Loan: *dto}, nil
}

func (c *Coordinator) ApproveRepayment(ctx context.Context, admin, requestID string) (PendingRequest, error) {
	req, err := c.decide(admin, requestID, KindRepayment, func(r *PendingRequest) (Outcome, error) {
		dto, err := c.loans.ApproveRepayment(ctx, r.Requester)
		switch {
		case errors.Is(err, loan.ErrNoPendingLoan):
			return OutcomeFailed, err
		case err != nil:
			return "", err
		}
		r.LoanID = dto.ID
		return OutcomeApproved, nil
	})
	if err != nil {
		return req, err
	}

	c.log.Info("repayment approved",
		zap.String("request_id", req.ID),
		logger.User(req.Requester),
		logger.Actor(admin),
	)
	c.sender.Send(ctx, req.Requester, "Your repayment was approved. Your debt is settled.")
	c.announce(ctx, fmt.Sprintf("%s has repaid their debt!", req.Requester))
	return req, nil
}

func (c *Coordinator) RejectRepayment(ctx context.Context, admin, requestID string) (PendingRequest, error) {
	req, err := c.decide(admin, requestID, KindRepayment, func(*PendingRequest) (Outcome, error) {
		return OutcomeRejected, nil
	})
	if err != nil {
		return req, err
	}
	c.log.Info("repayment rejected",
		zap.String("request_id", req.ID),
		logger.User(req.Requester),
		logger.Actor(admin),
	)
	c.sender.Send(ctx, req.Requester, "Your repayment request was rejected. Your loan is still pending.")
	return req, nil
}

// ClearDebt forgives every pending loan of userID.
func (c *Coordinator) ClearDebt(ctx context.Context, admin, userID string) (loanuc.ClearResult, error) {
	if err := c.requireAdmin(admin); err != nil {
		return loanuc.ClearResult{}, err
	}
	if userID == "" {
		return loanuc.ClearResult{}, loan.ErrInvalidUser
	}
	res, err := c.loans.ClearDebt(ctx, userID)
	if err != nil {
		return res, err
	}
	if res.Cleared {
		c.log.Info("debt cleared",
			logger.User(userID),
			logger.Actor(admin),
			zap.Int64("total", res.Total),
		)
	}
	return res, nil
}

// TransferCredit grants userID a loan that is already settled. Users with
// an outstanding loan are refused.
func (c *Coordinator) TransferCredit(ctx context.Context, admin, userID string, amount int64) (TransferResult, error) {
	if err := c.requireAdmin(admin); err != nil {
		return TransferResult{}, err
	}
	if err := validate(userID, amount); err != nil {
		return TransferResult{}, err
	}
	dto, err := c.loans.GrantCredit(ctx, userID, amount)
	if err != nil {
		return TransferResult{}, err
	}
	c.log.Info("credit transferred",
		logger.User(userID),
		logger.Actor(admin),
		zap.Int64("amount", amount),
	)
	delivered := c.sender.Send(ctx, userID, fmt.Sprintf("You received %s!", loan.Credits(amount)))
	return TransferResult{Loan: *dto, Delivered: delivered}, nil
}
