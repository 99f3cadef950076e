package notify

import (
	"context"
	"net"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
)

type EmailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	// Domain turns a bare recipient id into <id>@Domain.
	Domain string
}

// Email sends each message as a plain-text mail over SMTP.
type Email struct {
	cfg  EmailConfig
	send func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewEmail(cfg EmailConfig) *Email {
	return &Email{
		cfg:  cfg,
		send: func(e *email.Email, addr string, auth smtp.Auth) error { return e.Send(addr, auth) },
	}
}

func (m *Email) Notify(ctx context.Context, recipientID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = m.cfg.From
	e.To = []string{m.address(recipientID)}
	e.Subject = subject(text)
	e.Text = []byte(text)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)

	// net/smtp has no context support; abandon the send when ctx expires.
	errc := make(chan error, 1)
	go func() { errc <- m.send(e, addr, auth) }()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Email) address(recipientID string) string {
	if strings.Contains(recipientID, "@") || m.cfg.Domain == "" {
		return recipientID
	}
	return recipientID + "@" + m.cfg.Domain
}

func subject(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	const max = 78
	if len(line) > max {
		line = line[:max]
	}
	if line == "" {
		return "Credit ledger notification"
	}
	return line
}
