package monitor

import (
	"context"
	"fmt"
	"time"

	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/infrastructure/metrics"
	"credit-ledger/pkg/logger"

	"go.uber.org/zap"
)

const DefaultInterval = time.Hour

// Sender delivers one message and reports whether it got through. It must
// bound its own latency.
type Sender interface {
	Send(ctx context.Context, recipientID, text string) bool
}

type CycleReport struct {
	Scanned  int
	Alerts   int
	Failures int
}

// Monitor periodically scans pending loans and warns the borrower and
// every administrator about loans whose interest has overtaken the
// principal. Alerts repeat every cycle until the loan leaves pending.
type Monitor struct {
	repo     loan.Repository
	calc     *loan.Calculator
	sender   Sender
	admins   []string
	interval time.Duration
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func New(repo loan.Repository, calc *loan.Calculator, sender Sender, admins []string, interval time.Duration, log *zap.Logger, m *metrics.Metrics) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	if calc == nil {
		calc = loan.NewCalculator(nil, log)
	}
	return &Monitor{
		repo:     repo,
		calc:     calc,
		sender:   sender,
		admins:   admins,
		interval: interval,
		log:      log,
		metrics:  m,
	}
}

// Run scans once immediately and then on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.log.Info("interest monitor started", zap.Duration("interval", m.interval))
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			m.log.Info("interest monitor stopped")
			return
		case <-ticker.C:
			m.cycle(ctx)
		}
	}
}

func (m *Monitor) cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.metrics.MonitorCycle(0, true)
			m.log.Error("interest monitor cycle panicked", zap.Any("panic", r))
		}
	}()
	m.RunOnce(ctx)
}

func (m *Monitor) RunOnce(ctx context.Context) CycleReport {
	var rep CycleReport
	pending, err := m.repo.Query(ctx, loan.Filter{Status: loan.StatusPending})
	if err != nil {
		m.metrics.MonitorCycle(0, true)
		m.log.Error("interest monitor: fetch pending loans", zap.Error(err))
		return rep
	}
	rep.Scanned = len(pending)

	for _, l := range pending {
		if ctx.Err() != nil {
			break
		}
		interest := m.calc.AccruedInterest(l)
		if interest <= l.Amount {
			continue
		}
		rep.Alerts++
		m.log.Info("high interest loan",
			zap.String("loan_id", l.ID),
			logger.User(l.UserID),
			zap.Int64("amount", l.Amount),
			zap.Int64("interest", interest),
		)

		if !m.sender.Send(ctx, l.UserID, borrowerAlert(l.Amount, interest)) {
			rep.Failures++
		}
		text := adminAlert(l.UserID, l.Amount, interest)
		for _, admin := range m.admins {
			if !m.sender.Send(ctx, admin, text) {
				rep.Failures++
			}
		}
	}

	m.metrics.MonitorCycle(rep.Alerts, false)
	m.log.Debug("interest monitor cycle done",
		zap.Int("scanned", rep.Scanned),
		zap.Int("alerts", rep.Alerts),
		zap.Int("failures", rep.Failures),
	)
	return rep
}

func borrowerAlert(amount, interest int64) string {
	return fmt.Sprintf("Warning: your interest has exceeded the principal!\nPrincipal: %s\nInterest: %s\nPlease repay as soon as possible.",
		loan.Credits(amount), loan.Credits(interest))
}

func adminAlert(userID string, amount, interest int64) string {
	return fmt.Sprintf("Alert: user %s has interest above principal\nPrincipal: %s\nInterest: %s",
		userID, loan.Credits(amount), loan.Credits(interest))
}
