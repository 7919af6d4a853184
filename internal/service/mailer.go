package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strconv"
	"strings"

	"uboard/internal/config"
	"uboard/internal/middleware"
	"uboard/internal/observability"
)

const (
	confirmSubject = "UBoard - Confirm your Email Address"
	resetSubject   = "UBoard - Password Reset Requested"
)

// Mailer delivers account emails. A false result means the message was not sent.
type Mailer interface {
	SendConfirmEmail(ctx context.Context, to, token string) bool
	SendResetEmail(ctx context.Context, to, token string) bool
}

// ConfirmationURL is the link mailed after signup.
func ConfirmationURL(website, token string) string {
	return fmt.Sprintf("%s/confirmation/c=%s", website, token)
}

// PasswordResetURL is the link mailed for a reset request.
func PasswordResetURL(website, token string) string {
	return fmt.Sprintf("%s/password-reset/r=%s", website, token)
}

type message struct {
	to      string
	subject string
	body    string
}

func confirmMessage(website, to, token string) message {
	link := ConfirmationURL(website, token)
	return message{
		to:      to,
		subject: confirmSubject,
		body:    "Welcome to UBoard!\r\n\r\nConfirm your email address by visiting:\r\n" + link + "\r\n",
	}
}

func resetMessage(website, to, token string) message {
	link := PasswordResetURL(website, token)
	return message{
		to:      to,
		subject: resetSubject,
		body: "A password reset was requested for your UBoard account.\r\n\r\n" +
			"Choose a new password within 12 hours:\r\n" + link + "\r\n\r\n" +
			"If you did not request this, ignore this email.\r\n",
	}
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	addr    string
	auth    smtp.Auth
	from    string
	website string
	send    func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewMailer returns an SMTP mailer when SMTP_HOST is set and a LogMailer otherwise.
func NewMailer(cfg *config.Config) Mailer {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return &LogMailer{Website: cfg.WebsiteURL}
	}
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &SMTPMailer{
		addr:    cfg.SMTPHost + ":" + strconv.Itoa(cfg.SMTPPort),
		auth:    auth,
		from:    cfg.MailFrom,
		website: cfg.WebsiteURL,
		send:    smtp.SendMail,
	}
}

func (m *SMTPMailer) SendConfirmEmail(ctx context.Context, to, token string) bool {
	return m.deliver(ctx, "confirm", confirmMessage(m.website, to, token))
}

func (m *SMTPMailer) SendResetEmail(ctx context.Context, to, token string) bool {
	return m.deliver(ctx, "reset", resetMessage(m.website, to, token))
}

func (m *SMTPMailer) deliver(ctx context.Context, kind string, msg message) bool {
	raw := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		m.from, msg.to, msg.subject, msg.body)
	if err := m.send(m.addr, m.auth, m.from, []string{msg.to}, []byte(raw)); err != nil {
		observability.MailFailures.WithLabelValues(kind).Inc()
		middleware.Logger.WarnContext(ctx, "mail delivery failed",
			slog.String("kind", kind),
			slog.String("to", msg.to),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

// LogMailer writes the links to the log instead of sending mail.
type LogMailer struct {
	Website string
}

func (m *LogMailer) SendConfirmEmail(ctx context.Context, to, token string) bool {
	middleware.Logger.InfoContext(ctx, "confirmation email",
		slog.String("to", to),
		slog.String("link", ConfirmationURL(m.Website, token)),
	)
	return true
}

func (m *LogMailer) SendResetEmail(ctx context.Context, to, token string) bool {
	middleware.Logger.InfoContext(ctx, "password reset email",
		slog.String("to", to),
		slog.String("link", PasswordResetURL(m.Website, token)),
	)
	return true
}
