package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/platinummonkey/quill/pkg/observability"
)

// ErrNotConfigured is returned when no SMTP server has been configured
var ErrNotConfigured = errors.New("email not configured")

// DefaultTimeout bounds a single delivery when Config.Timeout is zero
const DefaultTimeout = 10 * time.Second

// Sender delivers a rendered HTML email to one recipient
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Config holds SMTP configuration
type Config struct {
	Host      string
	Port      string
	Username  string
	Password  string
	From      string
	FromName  string
	EnableTLS bool
	Timeout   time.Duration
}

// IsConfigured returns true if a server and sender address are set
func (c Config) IsConfigured() bool {
	return c.Host != "" && c.Port != "" && c.From != ""
}

// SMTPSender delivers mail through an SMTP relay
type SMTPSender struct {
	config Config
}

// NewSMTPSender creates a new SMTP sender
func NewSMTPSender(config Config) *SMTPSender {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &SMTPSender{config: config}
}

// Send delivers an HTML email. The whole exchange is bounded by the
// configured timeout and by ctx.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if !s.config.IsConfigured() {
		return ErrNotConfigured
	}
	if err := checkHeader(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	if err := checkHeader(subject); err != nil {
		return fmt.Errorf("invalid subject: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	addr := net.JoinHostPort(s.config.Host, s.config.Port)
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start SMTP session: %w", err)
	}
	defer client.Close()

	if s.config.EnableTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.config.Host}); err != nil {
				return fmt.Errorf("failed to start TLS: %w", err)
			}
		}
	}

	if s.config.Username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("failed to authenticate: %w", err)
			}
		}
	}

	if err := client.Mail(s.config.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open message body: %w", err)
	}
	if _, err := w.Write(s.buildMessage(to, subject, htmlBody)); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return client.Quit()
}

func (s *SMTPSender) buildMessage(to, subject, htmlBody string) []byte {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	boundary := "boundary-quill"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "Please view this email in an HTML-capable email client.\r\n")
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return msg.Bytes()
}

func checkHeader(v string) error {
	if strings.ContainsAny(v, "\r\n") {
		return errors.New("header contains a line break")
	}
	return nil
}

// LogSender writes emails to the log instead of delivering them. Used when
// SMTP is not configured.
type LogSender struct {
	logger *observability.Logger
}

// NewLogSender creates a new LogSender
func NewLogSender(logger *observability.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the recipient and subject
func (s *LogSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	s.logger.WithFields(map[string]interface{}{
		"to":         to,
		"subject":    subject,
		"body_bytes": len(htmlBody),
	}).Info("email delivery disabled, message logged")
	return nil
}
