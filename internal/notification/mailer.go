// Package notification sends transactional email. Delivery is fire-and-forget:
// failures surface as a single dispatch error and are never retried.
package notification

import (
	"fmt"
	"net/smtp"
	"strings"

	"storefront/internal/config"
)

// Mailer dispatches a single message
type Mailer interface {
	Send(to, subject, body string) error
}

type smtpMailer struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPMailer creates a Mailer backed by the configured SMTP relay
func NewSMTPMailer(cfg config.SMTPConfig) Mailer {
	return &smtpMailer{
		addr: cfg.Host + ":" + cfg.Port,
		auth: smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host),
		from: cfg.From,
	}
}

func (m *smtpMailer) Send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

// NopMailer discards messages, used when SMTP is not configured
type NopMailer struct{}

func (NopMailer) Send(string, string, string) error { return nil }
