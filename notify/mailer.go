// Package notify emails run reports. Every send is best-effort: callers log
// the returned error and carry on.
package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/gewnthar/projectscraper/config"
	"github.com/gewnthar/projectscraper/logger"
)

// ErrIncompleteSMTPConfig is returned without attempting a send when the
// server, port, credentials or recipient are missing.
var ErrIncompleteSMTPConfig = errors.New("incomplete SMTP configuration")

const (
	notificationSubject = "Web Scraper Notification"
	errorReportSubject  = "Web Scraper Error Report"
)

// Sender delivers composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type Option func(*Mailer)

// WithSender replaces the SMTP dialer.
func WithSender(s Sender) Option {
	return func(m *Mailer) { m.sender = s }
}

// WithClock replaces the time source used in default subjects.
func WithClock(now func() time.Time) Option {
	return func(m *Mailer) { m.now = now }
}

type Mailer struct {
	cfg    config.SMTPConfig
	sender Sender
	now    func() time.Time
	log    logger.Logger
}

// NewMailer builds a mailer over an SMTP dialer. The dialer upgrades the
// connection with STARTTLS when the server offers it, or uses implicit TLS
// on port 465.
func NewMailer(cfg config.SMTPConfig, log logger.Logger, opts ...Option) *Mailer {
	m := &Mailer{
		cfg:    cfg,
		sender: gomail.NewDialer(cfg.Server, cfg.Port, cfg.Username, cfg.Password),
		now:    time.Now,
		log:    log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SendReport mails the spreadsheet at attachmentPath to the configured
// recipient. Configured subject and body override the defaults.
func (m *Mailer) SendReport(ctx context.Context, attachmentPath string) error {
	subject := m.cfg.Subject
	if subject == "" {
		subject = "Web Scraper Report - " + m.now().Format("2006-01-02 15:04")
	}
	body := m.cfg.Body
	if body == "" {
		body = defaultReportBody(attachmentPath)
	}
	return m.send(ctx, subject, body, attachmentPath)
}

// SendNotification mails a plain message with no attachment.
func (m *Mailer) SendNotification(ctx context.Context, message string) error {
	return m.send(ctx, notificationSubject, message, "")
}

// SendErrorReport mails a failure description with optional details.
func (m *Mailer) SendErrorReport(ctx context.Context, message, details string) error {
	var b strings.Builder
	b.WriteString("The Web Scraper encountered an error:\n\n")
	b.WriteString(message)
	if details != "" {
		b.WriteString("\n\nError Details:\n")
		b.WriteString(details)
	}
	b.WriteString("\n\nPlease check the application logs for more information.")
	return m.send(ctx, errorReportSubject, b.String(), "")
}

func defaultReportBody(attachmentPath string) string {
	body := "Please find attached the latest web scraper report."
	if attachmentPath != "" {
		body += "\n\nFile: " + filepath.Base(attachmentPath)
	}
	return body + "\n\nThis is an automated message from the Web Scraper Tool."
}

func (m *Mailer) send(ctx context.Context, subject, body, attachmentPath string) error {
	if !m.cfg.Complete() {
		m.log.Error("Skipping email, SMTP configuration is incomplete",
			logger.Bool("server_set", m.cfg.Server != ""),
			logger.Bool("credentials_set", m.cfg.Username != "" && m.cfg.Password != ""),
			logger.Bool("recipient_set", m.cfg.Recipient != ""))
		return ErrIncompleteSMTPConfig
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", m.cfg.Recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if attachmentPath != "" {
		if _, err := os.Stat(attachmentPath); err == nil {
			msg.Attach(attachmentPath)
		} else {
			m.log.Warn("Attachment file not found, sending without it",
				logger.String("file", attachmentPath), logger.Error(err))
		}
	}

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", m.cfg.Recipient, err)
	}
	m.log.Info("Email sent", logger.String("recipient", m.cfg.Recipient), logger.String("subject", subject))
	return nil
}
