package mailer

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SMTPMailer sends email through a plain SMTP relay.
type SMTPMailer struct {
	cfg    SMTPConfig
	logger *zap.Logger
}

// SMTPConfig holds relay connection settings. Username may be empty for
// relays that accept unauthenticated submission.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NewSMTPMailer creates an SMTP-backed transport.
func NewSMTPMailer(cfg SMTPConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// Send delivers one message to one address via the configured relay.
// The message carries a multipart/alternative body so clients can pick
// between the text and HTML renderings.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, html, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	messageID := uuid.New().String()
	body, err := buildMIMEMessage(m.cfg.From, to, subject, messageID, html, text)
	if err != nil {
		return "", fmt.Errorf("build mime message: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	// net/smtp has no context support; the dispatcher's per-send timeout
	// bounds the caller, not this connection.
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, body); err != nil {
		return "", fmt.Errorf("smtp send failed: %w", err)
	}

	m.logger.Info("email sent via SMTP",
		zap.String("to", to),
		zap.String("relay", addr),
		zap.String("message_id", messageID),
	)

	return messageID, nil
}

func buildMIMEMessage(from, to, subject, messageID, html, text string) ([]byte, error) {
	var buf strings.Builder
	mw := multipart.NewWriter(&buf)

	headers := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMessage-ID: <%s@leadrelay>\r\nMIME-Version: 1.0\r\nContent-Type: multipart/alternative; boundary=%q\r\n\r\n",
		from, to, subject, messageID, mw.Boundary(),
	)

	textPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=UTF-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := textPart.Write([]byte(text)); err != nil {
		return nil, err
	}

	htmlPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=UTF-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := htmlPart.Write([]byte(html)); err != nil {
		return nil, err
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}

	return []byte(headers + buf.String()), nil
}
