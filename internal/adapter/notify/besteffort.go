package notify

import (
	"context"
	"fmt"
	"time"

	"credit-ledger/internal/domain/notification"
	"credit-ledger/internal/infrastructure/metrics"

	"go.uber.org/zap"
)

const DefaultTimeout = 5 * time.Second

// BestEffort bounds every delivery attempt with a timeout and swallows the
// outcome. A failed recipient is logged and skipped; it is never retried.
type BestEffort struct {
	next    notification.Notifier
	timeout time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewBestEffort(next notification.Notifier, timeout time.Duration, log *zap.Logger, m *metrics.Metrics) *BestEffort {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BestEffort{next: next, timeout: timeout, log: log, metrics: m}
}

// Send reports whether the message was handed to the backend.
func (b *BestEffort) Send(ctx context.Context, recipientID, text string) (ok bool) {
	if recipientID == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			ok = false
			b.fail(recipientID, fmt.Errorf("notifier panic: %v", r))
		}
	}()

	if err := b.next.Notify(ctx, recipientID, text); err != nil {
		b.fail(recipientID, err)
		return false
	}
	b.metrics.Notification("sent")
	return true
}

// SendAll notifies each distinct recipient in order and returns how many
// deliveries succeeded.
func (b *BestEffort) SendAll(ctx context.Context, recipients []string, text string) int {
	seen := make(map[string]struct{}, len(recipients))
	delivered := 0
	for _, r := range recipients {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		if b.Send(ctx, r, text) {
			delivered++
		}
	}
	return delivered
}

func (b *BestEffort) fail(recipientID string, err error) {
	b.metrics.Notification("failed")
	b.log.Warn("notification dropped",
		zap.String("recipient_id", recipientID),
		zap.Error(err),
	)
}
