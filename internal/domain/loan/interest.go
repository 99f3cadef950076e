package loan

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// HourlyRate is the flat share of principal accrued per elapsed hour.
	HourlyRate = decimal.RequireFromString("0.10")

	nanosPerHour = decimal.NewFromInt(int64(time.Hour))
)

// Accrue computes simple interest on l as of at:
//
//	round_half_even(amount * HourlyRate * |at - created_at| / 1h)
//
// The result saturates so that Amount plus interest never exceeds
// math.MaxInt64. It ignores Status; callers wanting the "non-pending accrues nothing" rule
// go through Calculator.
func Accrue(l Loan, at time.Time) (int64, error) {
	if l.CreatedAt.IsZero() {
		return 0, ErrMalformedTimestamp
	}
	if l.Amount <= 0 {
		return 0, ErrInvalidAmount
	}

	elapsed := at.Sub(l.CreatedAt)
	if elapsed < 0 {
		// clock skew between writer and reader
		elapsed = -elapsed
	}

	hours := decimal.NewFromInt(int64(elapsed)).Div(nanosPerHour)
	interest := decimal.NewFromInt(l.Amount).Mul(HourlyRate).Mul(hours).RoundBank(0)
	if headroom := decimal.NewFromInt(math.MaxInt64 - l.Amount); interest.GreaterThan(headroom) {
		return headroom.IntPart(), nil
	}
	return interest.IntPart(), nil
}

// Calculator evaluates interest against a clock. It never fails: bad rows
// are logged and reported as zero interest so listings keep rendering.
type Calculator struct {
	now func() time.Time
	log *zap.Logger
}

func NewCalculator(now func() time.Time, log *zap.Logger) *Calculator {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Calculator{now: now, log: log}
}

func (c *Calculator) Now() time.Time { return c.now().UTC() }

func (c *Calculator) AccruedInterest(l Loan) int64 {
	if l.Status != StatusPending {
		return 0
	}
	v, err := Accrue(l, c.now())
	if err != nil {
		c.log.Warn("interest computation failed, reporting zero",
			zap.String("loan_id", l.ID),
			zap.String("user_id", l.UserID),
			zap.Error(err),
		)
		return 0
	}
	return v
}

func (c *Calculator) TotalOwed(l Loan) int64 {
	return l.Amount + c.AccruedInterest(l)
}

// HighInterest reports whether accrued interest has overtaken the principal.
func (c *Calculator) HighInterest(l Loan) bool {
	return c.AccruedInterest(l) > l.Amount
}
