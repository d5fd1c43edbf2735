// Package mailer provides the outbound email capability the dispatch
// engine fans out over. The engine depends only on the Transport
// interface, never on a concrete provider.
package mailer

import (
	"context"

	"go.uber.org/zap"
)

// Transport sends one message to one address and returns the provider's
// message ID. Implementations: AWS SES (hosted API), SMTP relay, and a
// log-only transport for development.
type Transport interface {
	Send(ctx context.Context, to, subject, html, text string) (string, error)
}

// LogMailer is a transport that only logs messages (development mode).
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a log-only transport.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, html, text string) (string, error) {
	m.logger.Info("email logged (development mode)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("html_bytes", len(html)),
		zap.Int("text_bytes", len(text)),
	)
	return "log-" + to, nil
}
