package loan

import "context"

// Repository is the ledger store boundary. Implementations guarantee
// read-committed visibility per call; callers must not assume that two
// calls share a transaction. Driver failures come back wrapped in
// ErrStoreUnavailable.
type Repository interface {
	// Insert assigns l.ID and persists the row.
	Insert(ctx context.Context, l *Loan) (string, error)
	// Query returns matching rows ordered by created_at, id.
	Query(ctx context.Context, f Filter) ([]Loan, error)
	// Update moves every matching row to status and returns the affected
	// rows as they are after the update.
	Update(ctx context.Context, f Filter, status Status) ([]Loan, error)
}
