package gormdb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	domain "credit-ledger/internal/domain/loan"
	"credit-ledger/pkg/id"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB creates a named in-memory sqlite DB shared by every connection
// of the pool, so concurrent goroutines see the same rows.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", id.NewID32())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&domain.Loan{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

func seed(t *testing.T, repo *LoanRepository, user string, amount int64, status domain.Status, at time.Time) string {
	t.Helper()
	l := &domain.Loan{UserID: user, Amount: amount, Status: status, CreatedAt: at}
	got, err := repo.Insert(context.Background(), l)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return got
}

func TestInsertAssignsID(t *testing.T) {
	repo := NewLoanRepository(openTestDB(t))
	ctx := context.Background()

	l := &domain.Loan{UserID: "u1", Amount: 1000, Status: domain.StatusPending, CreatedAt: time.Now().UTC()}
	got, err := repo.Insert(ctx, l)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !id.Valid(got) || got != l.ID {
		t.Fatalf("unexpected id %q (loan id %q)", got, l.ID)
	}

	rows, err := repo.Query(ctx, domain.Filter{UserID: "u1"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 1 || rows[0].Amount != 1000 || rows[0].Status != domain.StatusPending {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestQueryFiltersAndOrders(t *testing.T) {
	repo := NewLoanRepository(openTestDB(t))
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	second := seed(t, repo, "u1", 200, domain.StatusCompleted, t0.Add(time.Hour))
	first := seed(t, repo, "u1", 100, domain.StatusPending, t0)
	seed(t, repo, "u2", 300, domain.StatusPending, t0.Add(2*time.Hour))

	all, err := repo.Query(ctx, domain.Filter{UserID: "u1"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(all) != 2 || all[0].ID != first || all[1].ID != second {
		t.Fatalf("want [%s %s] oldest first, got %+v", first, second, all)
	}

	pending, err := repo.Query(ctx, domain.Filter{Status: domain.StatusPending})
	if err != nil {
		t.Fatalf("Query pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("want 2 pending loans, got %d", len(pending))
	}

	none, err := repo.Query(ctx, domain.Filter{UserID: "nobody"})
	if err != nil {
		t.Fatalf("Query none: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("want no rows, got %+v", none)
	}
}

func TestUpdateReturnsAffectedRows(t *testing.T) {
	repo := NewLoanRepository(openTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	seed(t, repo, "u2", 300, domain.StatusPending, now)
	seed(t, repo, "u2", 500, domain.StatusPending, now.Add(time.Second))
	seed(t, repo, "u2", 900, domain.StatusCompleted, now)
	seed(t, repo, "u3", 50, domain.StatusPending, now)

	moved, err := repo.Update(ctx, domain.Filter{UserID: "u2", Status: domain.StatusPending}, domain.StatusCleared)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(moved) != 2 {
		t.Fatalf("want 2 rows moved, got %+v", moved)
	}
	var sum int64
	for _, l := range moved {
		if l.Status != domain.StatusCleared {
			t.Fatalf("returned row has status %q", l.Status)
		}
		sum += l.Amount
	}
	if sum != 800 {
		t.Fatalf("sum = %d, want 800", sum)
	}

	again, err := repo.Update(ctx, domain.Filter{UserID: "u2", Status: domain.StatusPending}, domain.StatusCleared)
	if err != nil {
		t.Fatalf("second Update: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("second update should affect nothing, got %+v", again)
	}

	other, _ := repo.Query(ctx, domain.Filter{UserID: "u3"})
	if len(other) != 1 || other[0].Status != domain.StatusPending {
		t.Fatalf("other user's loan changed: %+v", other)
	}
}

func TestUpdateConcurrentMovesEachRowOnce(t *testing.T) {
	repo := NewLoanRepository(openTestDB(t))
	ctx := context.Background()
	seed(t, repo, "u1", 1000, domain.StatusPending, time.Now().UTC())

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			moved, err := repo.Update(ctx, domain.Filter{UserID: "u1", Status: domain.StatusPending}, domain.StatusCompleted)
			if err != nil {
				t.Errorf("Update: %v", err)
				return
			}
			mu.Lock()
			total += len(moved)
			mu.Unlock()
		}()
	}
	wg.Wait()
	if total != 1 {
		t.Fatalf("row moved %d times, want 1", total)
	}
}

func TestTx_Rollback(t *testing.T) {
	repo := NewLoanRepository(openTestDB(t))
	ctx := context.Background()
	wantErr := errors.New("boom")

	var loanID string
	err := repo.Tx(ctx, func(r *LoanRepository) error {
		got, err := r.Insert(ctx, &domain.Loan{UserID: "u9", Amount: 10, Status: domain.StatusPending, CreatedAt: time.Now().UTC()})
		if err != nil {
			return err
		}
		loanID = got
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("want %v, got %v", wantErr, err)
	}

	rows, err := repo.Query(ctx, domain.Filter{UserID: "u9"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("loan %s visible after rollback", loanID)
	}
}

func TestStoreFailureIsUnavailable(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	sqlDB, _ := db.DB()
	_ = sqlDB.Close()

	ctx := context.Background()
	if _, err := repo.Query(ctx, domain.Filter{}); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("Query: want ErrStoreUnavailable, got %v", err)
	}
	if _, err := repo.Insert(ctx, &domain.Loan{UserID: "u1", Amount: 1, CreatedAt: time.Now()}); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("Insert: want ErrStoreUnavailable, got %v", err)
	}
	if _, err := repo.Update(ctx, domain.Filter{UserID: "u1"}, domain.StatusCleared); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("Update: want ErrStoreUnavailable, got %v", err)
	}
}
