package notification

import "context"

// Notifier delivers a direct message to one recipient. Delivery is
// best-effort: callers log failures and move on, nothing is retried.
type Notifier interface {
	Notify(ctx context.Context, recipientID, text string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, recipientID, text string) error

func (f NotifierFunc) Notify(ctx context.Context, recipientID, text string) error {
	return f(ctx, recipientID, text)
}
