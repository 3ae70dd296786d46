// Package mailer sends transactional e-mail over SMTP.
//
// Any SMTP relay works. Mailtrap (smtp.mailtrap.io:2525) is convenient for
// development: sign up at https://mailtrap.io/ and use the inbox credentials as
// SMTP_USER and SMTP_PASS.
package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Message is a single outgoing e-mail.
type Message struct {
	To      string
	Subject string
	// Body can be plain text or HTML. The Content-Type is inferred from basic HTML tags.
	Body string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds the relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Sender   string
}

// sendMailFunc matches smtp.SendMail.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer implements Mailer with net/smtp.
type SMTPMailer struct {
	cfg      SMTPConfig
	sendMail sendMailFunc
}

// NewSMTPMailer creates a Mailer that relays through cfg.Host.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, sendMail: smtp.SendMail}
}

// Send sends msg through the configured relay.
//
// It returns an error if any of the following occurs:
//   - The recipient, sender or subject is empty.
//   - Connection to the SMTP server fails.
//   - SMTP authentication fails (e.g., incorrect user or password).
//   - The email sending command fails on the server.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.To == "" {
		return fmt.Errorf("recipient email address cannot be empty")
	}
	if m.cfg.Sender == "" {
		return fmt.Errorf("sender email address cannot be empty")
	}
	if msg.Subject == "" {
		return fmt.Errorf("email subject cannot be empty")
	}

	var auth smtp.Auth
	if m.cfg.User != "" || m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.sendMail(addr, auth, m.cfg.Sender, []string{msg.To}, buildMessage(m.cfg.Sender, msg)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func buildMessage(sender string, msg Message) []byte {
	contentType := "text/plain; charset=UTF-8"
	lower := strings.ToLower(msg.Body)
	if strings.Contains(lower, "<html>") || strings.Contains(lower, "<p>") {
		contentType = "text/html; charset=UTF-8"
	}

	return []byte(fmt.Sprintf("To: %s\r\n"+
		"From: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: %s\r\n"+
		"\r\n"+
		"%s\r\n", msg.To, sender, msg.Subject, contentType, msg.Body))
}

// LogMailer writes messages to the log instead of sending them. Used when no relay is configured.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("E-mail not sent, SMTP is not configured",
		zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
