package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"

	"AINewsletter/internal/config"
	"AINewsletter/internal/domain"
	"AINewsletter/internal/ports"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer delivers newsletters through an authenticated SMTP relay.
// smtp.SendMail upgrades the session with STARTTLS when the server offers it.
type SMTPMailer struct {
	host     string
	port     int
	from     string
	username string
	password string
	logger   *slog.Logger
	send     sendFunc
}

var _ ports.Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer builds a mailer from SMTP settings.
func NewSMTPMailer(cfg config.SMTPConfig, logger *slog.Logger) *SMTPMailer {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPMailer{
		host:     cfg.Host,
		port:     cfg.Port,
		from:     from,
		username: cfg.Username,
		password: cfg.Password,
		logger:   logger,
		send:     smtp.SendMail,
	}
}

// SendNewsletter renders and submits the newsletter.
func (m *SMTPMailer) SendNewsletter(ctx context.Context, n domain.Newsletter) error {
	if m.host == "" || m.username == "" || m.password == "" {
		return fmt.Errorf("smtp mailer misconfigured: host, username and password are required")
	}
	if n.Recipient == "" {
		return fmt.Errorf("smtp mailer: newsletter has no recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := BuildMessage(m.from, n)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	if err := m.send(addr, auth, m.from, []string{n.Recipient}, msg); err != nil {
		return fmt.Errorf("send mail via %s: %w", addr, err)
	}

	if m.logger != nil {
		m.logger.Info("newsletter sent", "recipient", n.Recipient, "items", n.ItemCount())
	}
	return nil
}
