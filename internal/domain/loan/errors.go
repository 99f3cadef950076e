package loan

import "errors"

var (
	ErrDuplicatePendingLoan = errors.New("user already has a pending loan")
	ErrNoPendingLoan        = errors.New("user has no pending loan")
	ErrUnauthorized         = errors.New("actor is not an administrator")
	ErrStoreUnavailable     = errors.New("ledger store unavailable")
	ErrMalformedTimestamp   = errors.New("malformed loan timestamp")
	ErrInvalidAmount        = errors.New("amount must be between 1 and 1,000,000,000,000 credits")
	ErrInvalidTransition    = errors.New("invalid loan status transition")
	ErrInvalidUser          = errors.New("user id is required")
)
