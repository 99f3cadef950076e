package loanmock

import (
	"context"

	domain "credit-ledger/internal/domain/loan"
)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	InsertFn func(ctx context.Context, l *domain.Loan) (string, error)
	QueryFn  func(ctx context.Context, f domain.Filter) ([]domain.Loan, error)
	UpdateFn func(ctx context.Context, f domain.Filter, status domain.Status) ([]domain.Loan, error)
}

func (m *Repo) Insert(ctx context.Context, l *domain.Loan) (string, error) {
	if m.InsertFn != nil {
		return m.InsertFn(ctx, l)
	}
	return l.ID, nil
}

func (m *Repo) Query(ctx context.Context, f domain.Filter) ([]domain.Loan, error) {
	if m.QueryFn != nil {
		return m.QueryFn(ctx, f)
	}
	return nil, nil
}

func (m *Repo) Update(ctx context.Context, f domain.Filter, status domain.Status) ([]domain.Loan, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, f, status)
	}
	return nil, nil
}

// Failing returns a Repo whose every call fails with err.
func Failing(err error) *Repo {
	return &Repo{
		InsertFn: func(context.Context, *domain.Loan) (string, error) { return "", err },
		QueryFn:  func(context.Context, domain.Filter) ([]domain.Loan, error) { return nil, err },
		UpdateFn: func(context.Context, domain.Filter, domain.Status) ([]domain.Loan, error) { return nil, err },
	}
}
