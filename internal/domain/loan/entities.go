package loan

import (
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCleared   Status = "cleared"
)

// MaxAmount caps a single principal. Principal plus interest then stays
// inside int64 for any realistic loan age.
const MaxAmount int64 = 1_000_000_000_000

// ValidAmount reports whether n is an acceptable principal.
func ValidAmount(n int64) bool { return n > 0 && n <= MaxAmount }

// Valid reports whether s is one of the three ledger states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCleared:
		return true
	}
	return false
}

// CanTransition reports whether the state machine allows from → to.
// Only pending loans move, and nothing ever re-enters pending.
func CanTransition(from, to Status) bool {
	return from == StatusPending && (to == StatusCompleted || to == StatusCleared)
}

// Loan is one ledger row. Amount and CreatedAt never change after insert;
// interest is always recomputed from CreatedAt.
type Loan struct {
	ID        string    `gorm:"primaryKey;size:32;column:id" json:"id"`
	UserID    string    `gorm:"size:64;not null;index:idx_loans_user_status,priority:1;column:user_id" json:"user_id"`
	Amount    int64     `gorm:"not null;column:amount" json:"amount"`
	Status    Status    `gorm:"size:16;not null;default:'pending';index:idx_loans_user_status,priority:2;column:status" json:"status"`
	CreatedAt time.Time `gorm:"not null;column:created_at" json:"created_at"`
}

func (Loan) TableName() string { return "loans" }

// Filter selects loans for Query and Update. Zero fields match anything.
type Filter struct {
	UserID string
	Status Status
}
