package circuitbreaker

import (
	"context"

	"go.uber.org/zap"

	"github.com/veloship/leadrelay/internal/mailer"
	"github.com/veloship/leadrelay/internal/metrics"
)

// ProtectedMailer wraps a mail transport with a circuit breaker. When
// the circuit is open, sends fail fast with ErrCircuitOpen; the
// dispatcher records those as ordinary failed attempts, so the audit
// log stays complete while the provider gets room to recover.
type ProtectedMailer struct {
	transport mailer.Transport
	breaker   *CircuitBreaker
	logger    *zap.Logger
}

// NewProtectedMailer wraps transport with the given breaker.
func NewProtectedMailer(transport mailer.Transport, breaker *CircuitBreaker, logger *zap.Logger) *ProtectedMailer {
	return &ProtectedMailer{
		transport: transport,
		breaker:   breaker,
		logger:    logger,
	}
}

// Send forwards to the underlying transport when the circuit allows it.
func (p *ProtectedMailer) Send(ctx context.Context, to, subject, html, text string) (string, error) {
	if !p.breaker.Allow() {
		p.logger.Warn("send rejected, circuit open",
			zap.String("breaker", p.breaker.config.Name),
			zap.String("to", to),
		)
		p.reportState()
		return "", ErrCircuitOpen
	}

	messageID, err := p.transport.Send(ctx, to, subject, html, text)
	if err != nil {
		p.breaker.RecordFailure()
		p.reportState()
		return "", err
	}

	p.breaker.RecordSuccess()
	p.reportState()
	return messageID, nil
}

func (p *ProtectedMailer) reportState() {
	metrics.SetBreakerState(p.breaker.config.Name, int(p.breaker.GetState()))
}
