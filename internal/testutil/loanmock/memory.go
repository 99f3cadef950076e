package loanmock

import (
	"context"
	"sort"
	"sync"

	domain "credit-ledger/internal/domain/loan"
	"credit-ledger/pkg/id"
)

// Memory is an in-memory domain.Repository. Each call is atomic on its
// own; like the real store, nothing spans two calls.
type Memory struct {
	mu    sync.Mutex
	loans map[string]domain.Loan

	inserts int
	updates int
}

func NewMemory() *Memory { return &Memory{loans: map[string]domain.Loan{}} }

func (m *Memory) Insert(_ context.Context, l *domain.Loan) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID == "" {
		l.ID = id.NewID32()
	}
	m.loans[l.ID] = *l
	m.inserts++
	return l.ID, nil
}

func (m *Memory) Query(_ context.Context, f domain.Filter) ([]domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.match(f), nil
}

func (m *Memory) Update(_ context.Context, f domain.Filter, status domain.Status) ([]domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.match(f)
	for i := range rows {
		rows[i].Status = status
		m.loans[rows[i].ID] = rows[i]
	}
	if len(rows) > 0 {
		m.updates++
	}
	return rows, nil
}

// Mutations reports how many inserts and effective updates were applied.
func (m *Memory) Mutations() (inserts, updates int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserts, m.updates
}

func (m *Memory) match(f domain.Filter) []domain.Loan {
	var out []domain.Loan
	for _, l := range m.loans {
		if f.UserID != "" && l.UserID != f.UserID {
			continue
		}
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
