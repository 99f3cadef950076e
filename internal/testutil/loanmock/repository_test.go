package loanmock

import (
	"context"
	"errors"
	"testing"

	domain "credit-ledger/internal/domain/loan"
)

var _ domain.Repository = (*Repo)(nil)

func TestRepo_Insert(t *testing.T) {
	ctx := context.Background()
	l := &domain.Loan{ID: "LN-1"}

	called := false
	wantErr := errors.New("boom")
	m := &Repo{
		InsertFn: func(gotCtx context.Context, got *domain.Loan) (string, error) {
			called = true
			if gotCtx != ctx {
				t.Fatalf("Insert ctx mismatch")
			}
			if got != l {
				t.Fatalf("Insert arg mismatch")
			}
			return "", wantErr
		},
	}
	if _, err := m.Insert(ctx, l); !errors.Is(err, wantErr) {
		t.Fatalf("Insert: want %v, got %v", wantErr, err)
	}
	if !called {
		t.Fatalf("InsertFn not called")
	}

	// Default (nil func) echoes the preset id
	m = &Repo{}
	got, err := m.Insert(ctx, l)
	if err != nil || got != "LN-1" {
		t.Fatalf("Insert default: want LN-1, nil; got %q, %v", got, err)
	}
}

func TestRepo_QueryAndUpdate(t *testing.T) {
	ctx := context.Background()
	f := domain.Filter{UserID: "u1", Status: domain.StatusPending}
	want := []domain.Loan{{ID: "LN-2"}}

	m := &Repo{
		QueryFn: func(_ context.Context, got domain.Filter) ([]domain.Loan, error) {
			if got != f {
				t.Fatalf("Query filter mismatch: %+v", got)
			}
			return want, nil
		},
		UpdateFn: func(_ context.Context, got domain.Filter, s domain.Status) ([]domain.Loan, error) {
			if got != f || s != domain.StatusCleared {
				t.Fatalf("Update args mismatch: %+v %s", got, s)
			}
			return want, nil
		},
	}
	if got, _ := m.Query(ctx, f); len(got) != 1 || got[0].ID != "LN-2" {
		t.Fatalf("Query: got %+v", got)
	}
	if got, _ := m.Update(ctx, f, domain.StatusCleared); len(got) != 1 {
		t.Fatalf("Update: got %+v", got)
	}

	// Defaults return nothing
	m = &Repo{}
	if got, err := m.Query(ctx, f); got != nil || err != nil {
		t.Fatalf("Query default: got %+v, %v", got, err)
	}
	if got, err := m.Update(ctx, f, domain.StatusCleared); got != nil || err != nil {
		t.Fatalf("Update default: got %+v, %v", got, err)
	}
}

func TestFailing(t *testing.T) {
	wantErr := domain.ErrStoreUnavailable
	m := Failing(wantErr)
	ctx := context.Background()
	if _, err := m.Insert(ctx, &domain.Loan{}); !errors.Is(err, wantErr) {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := m.Query(ctx, domain.Filter{}); !errors.Is(err, wantErr) {
		t.Fatalf("Query: %v", err)
	}
	if _, err := m.Update(ctx, domain.Filter{}, domain.StatusCleared); !errors.Is(err, wantErr) {
		t.Fatalf("Update: %v", err)
	}
}

func TestMemory(t *testing.T) {
	var _ domain.Repository = NewMemory()
	ctx := context.Background()
	m := NewMemory()

	a := &domain.Loan{UserID: "u1", Amount: 300, Status: domain.StatusPending}
	if _, err := m.Insert(ctx, a); err != nil || a.ID == "" {
		t.Fatalf("Insert: id=%q err=%v", a.ID, err)
	}
	_, _ = m.Insert(ctx, &domain.Loan{UserID: "u2", Amount: 10, Status: domain.StatusPending})

	rows, _ := m.Query(ctx, domain.Filter{UserID: "u1", Status: domain.StatusPending})
	if len(rows) != 1 || rows[0].ID != a.ID {
		t.Fatalf("Query: got %+v", rows)
	}

	moved, _ := m.Update(ctx, domain.Filter{UserID: "u1", Status: domain.StatusPending}, domain.StatusCompleted)
	if len(moved) != 1 || moved[0].Status != domain.StatusCompleted {
		t.Fatalf("Update: got %+v", moved)
	}
	if again, _ := m.Update(ctx, domain.Filter{UserID: "u1", Status: domain.StatusPending}, domain.StatusCompleted); len(again) != 0 {
		t.Fatalf("second Update moved %+v", again)
	}
	if ins, upd := m.Mutations(); ins != 2 || upd != 1 {
		t.Fatalf("Mutations = %d, %d; want 2, 1", ins, upd)
	}
}
