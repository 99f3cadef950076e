package gormdb

import (
	"context"
	"fmt"

	"credit-ledger/internal/domain/loan"
	"credit-ledger/pkg/id"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

// Tx runs fn in a db transaction, passing a repo bound to the tx.
func (r *LoanRepository) Tx(ctx context.Context, fn func(repo *LoanRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&LoanRepository{db: tx})
	})
}

func (r *LoanRepository) Insert(ctx context.Context, l *loan.Loan) (string, error) {
	if l.ID == "" {
		l.ID = id.NewID32()
	}
	if err := r.db.WithContext(ctx).Create(l).Error; err != nil {
		return "", unavailable(err)
	}
	return l.ID, nil
}

func (r *LoanRepository) Query(ctx context.Context, f loan.Filter) ([]loan.Loan, error) {
	var out []loan.Loan
	err := scope(r.db.WithContext(ctx), f).
		Order("created_at, id").
		Find(&out).Error
	if err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

// Update locks the matching rows, then moves them by id with a guard on
// their old status, so a row changed concurrently is skipped rather than
// overwritten.
func (r *LoanRepository) Update(ctx context.Context, f loan.Filter, status loan.Status) ([]loan.Loan, error) {
	var moved []loan.Loan
	err := r.Tx(ctx, func(tx *LoanRepository) error {
		var rows []loan.Loan
		err := scope(tx.db, f).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Order("created_at, id").
			Find(&rows).Error
		if err != nil {
			return err
		}
		for _, row := range rows {
			res := tx.db.Model(&loan.Loan{}).
				Where("id = ? AND status = ?", row.ID, row.Status).
				Update("status", status)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			row.Status = status
			moved = append(moved, row)
		}
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return moved, nil
}

func scope(db *gorm.DB, f loan.Filter) *gorm.DB {
	q := db.Model(&loan.Loan{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return q
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", loan.ErrStoreUnavailable, err)
}
