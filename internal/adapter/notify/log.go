package notify

import (
	"context"

	"go.uber.org/zap"
)

// Log "delivers" messages to the service log. Used when no outbound
// channel is configured.
type Log struct{ log *zap.Logger }

func NewLog(log *zap.Logger) *Log { return &Log{log: log} }

func (l *Log) Notify(ctx context.Context, recipientID, text string) error {
	l.log.Info("direct message",
		zap.String("recipient_id", recipientID),
		zap.String("text", text),
	)
	return nil
}
