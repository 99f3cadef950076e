package loan

import (
	"context"

	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/infrastructure/lock"
	"credit-ledger/internal/infrastructure/metrics"
	"credit-ledger/pkg/logger"

	"go.uber.org/zap"
)

// Usecase owns every status change of a loan. Writes for one user are
// serialized through the Locker so the pending check and the insert that
// follows it cannot interleave with another writer for that user.
type Usecase struct {
	repo    loan.Repository
	locker  lock.Locker
	calc    *loan.Calculator
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewUsecase(r loan.Repository, l lock.Locker, c *loan.Calculator, log *zap.Logger, m *metrics.Metrics) *Usecase {
	if l == nil {
		l = lock.NewKeyedMutex()
	}
	if c == nil {
		c = loan.NewCalculator(nil, log)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{repo: r, locker: l, calc: c, log: log, metrics: m}
}

func userKey(userID string) string { return "loan:user:" + userID }

// CreateLoan inserts a loan in the initial status. A pending loan is refused
// when the user already has one; a completed loan is always written.
func (u *Usecase) CreateLoan(ctx context.Context, userID string, amount int64, initial loan.Status) (*LoanDTO, error) {
	return u.create(ctx, userID, amount, initial, initial == loan.StatusPending)
}

// GrantCredit writes a completed loan for userID, refusing users who hold a
// pending loan. The check and the insert share one critical section.
func (u *Usecase) GrantCredit(ctx context.Context, userID string, amount int64) (*LoanDTO, error) {
	return u.create(ctx, userID, amount, loan.StatusCompleted, true)
}

func (u *Usecase) create(ctx context.Context, userID string, amount int64, initial loan.Status, refusePending bool) (*LoanDTO, error) {
	if userID == "" {
		return nil, loan.ErrInvalidUser
	}
	if !loan.ValidAmount(amount) {
		return nil, loan.ErrInvalidAmount
	}
	if initial != loan.StatusPending && initial != loan.StatusCompleted {
		return nil, loan.ErrInvalidTransition
	}

	var dto *LoanDTO
	err := u.locker.WithLock(ctx, userKey(userID), func(ctx context.Context) error {
		if refusePending {
			pending, err := u.repo.Query(ctx, loan.Filter{UserID: userID, Status: loan.StatusPending})
			if err != nil {
				return err
			}
			if len(pending) > 0 {
				return loan.ErrDuplicatePendingLoan
			}
		}

		l := &loan.Loan{
			UserID:    userID,
			Amount:    amount,
			Status:    initial,
			CreatedAt: u.calc.Now(),
		}
		if _, err := u.repo.Insert(ctx, l); err != nil {
			return err
		}
		d := toDTO(u.calc, *l)
		dto = &d
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.metrics.LoanCreated(string(initial))
	u.log.Info("loan created",
		zap.String("loan_id", dto.ID),
		logger.User(userID),
		zap.Int64("amount", amount),
		zap.String("status", string(initial)),
	)
	return dto, nil
}

// ApproveRepayment marks the user's pending loan completed. It is keyed by
// user, never by loan id, so a repeat call finds nothing and fails with
// ErrNoPendingLoan without touching the store.
func (u *Usecase) ApproveRepayment(ctx context.Context, userID string) (*LoanDTO, error) {
	moved, err := u.transition(ctx, userID, loan.StatusCompleted)
	if err != nil {
		return nil, err
	}
	if len(moved) == 0 {
		return nil, loan.ErrNoPendingLoan
	}
	if len(moved) > 1 {
		u.log.Warn("repayment completed more than one pending loan",
			logger.User(userID), zap.Int("count", len(moved)))
	}
	d := toDTO(u.calc, moved[0])
	return &d, nil
}

// ClearDebt forgives everything the user has pending. Nothing to clear is
// reported in the result, not as an error.
func (u *Usecase) ClearDebt(ctx context.Context, userID string) (ClearResult, error) {
	moved, err := u.transition(ctx, userID, loan.StatusCleared)
	if err != nil {
		return ClearResult{}, err
	}
	res := ClearResult{UserID: userID, Cleared: len(moved) > 0, Loans: toDTOs(u.calc, moved)}
	for _, l := range moved {
		res.Total += l.Amount
	}
	return res, nil
}

func (u *Usecase) transition(ctx context.Context, userID string, to loan.Status) ([]loan.Loan, error) {
	if !loan.CanTransition(loan.StatusPending, to) {
		return nil, loan.ErrInvalidTransition
	}
	var moved []loan.Loan
	err := u.locker.WithLock(ctx, userKey(userID), func(ctx context.Context) error {
		var err error
		moved, err = u.repo.Update(ctx, loan.Filter{UserID: userID, Status: loan.StatusPending}, to)
		return err
	})
	if err != nil {
		return nil, err
	}
	u.metrics.LoansMoved(string(to), len(moved))
	if len(moved) > 0 {
		u.log.Info("loans transitioned",
			logger.User(userID),
			zap.String("to", string(to)),
			zap.Int("count", len(moved)),
		)
	}
	return moved, nil
}

// RejectRequest records a declined borrow request. Nothing is persisted.
func (u *Usecase) RejectRequest(ctx context.Context, userID string, amount int64) {
	u.log.Info("loan request rejected",
		logger.User(userID),
		zap.Int64("amount", amount),
	)
}

func (u *Usecase) PendingLoan(ctx context.Context, userID string) (*LoanDTO, error) {
	rows, err := u.repo.Query(ctx, loan.Filter{UserID: userID, Status: loan.StatusPending})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, loan.ErrNoPendingLoan
	}
	d := toDTO(u.calc, rows[0])
	return &d, nil
}

func (u *Usecase) History(ctx context.Context, userID string) ([]LoanDTO, error) {
	rows, err := u.repo.Query(ctx, loan.Filter{UserID: userID})
	if err != nil {
		return nil, err
	}
	return toDTOs(u.calc, rows), nil
}

func (u *Usecase) Outstanding(ctx context.Context) ([]LoanDTO, error) {
	rows, err := u.repo.Query(ctx, loan.Filter{Status: loan.StatusPending})
	if err != nil {
		return nil, err
	}
	return toDTOs(u.calc, rows), nil
}

func (u *Usecase) Transactions(ctx context.Context) ([]LoanDTO, error) {
	rows, err := u.repo.Query(ctx, loan.Filter{})
	if err != nil {
		return nil, err
	}
	return toDTOs(u.calc, rows), nil
}

func (u *Usecase) Stats(ctx context.Context) (Stats, error) {
	rows, err := u.repo.Query(ctx, loan.Filter{})
	if err != nil {
		return Stats{}, err
	}
	s := Stats{TotalLoans: len(rows), HighInterest: []LoanDTO{}}
	for _, l := range rows {
		s.TotalAmount += l.Amount
		if l.Status != loan.StatusPending {
			continue
		}
		d := toDTO(u.calc, l)
		s.PendingLoans++
		s.PendingAmount += l.Amount
		s.InterestDue += d.Interest
		if d.Interest > l.Amount {
			s.HighInterest = append(s.HighInterest, d)
		}
	}
	return s, nil
}
