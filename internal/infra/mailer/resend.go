package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"jobradar/internal/resilience/circuitbreaker"
	"jobradar/internal/resilience/retry"

	"github.com/resend/resend-go/v2"
	"github.com/sony/gobreaker"
)

// Resend sends mail through the Resend API. Alternate provider for
// setups without a Google account.
type Resend struct {
	client         *resend.Client
	from           string
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewResend creates a Resend mailer from the given configuration.
func NewResend(cfg Config) *Resend {
	return &Resend{
		client:         resend.NewClient(cfg.ResendAPIKey),
		from:           cfg.From,
		circuitBreaker: circuitbreaker.New(circuitbreaker.MailConfig()),
		retryConfig:    retry.MailConfig(),
	}
}

// Name returns "resend".
func (r *Resend) Name() string { return "resend" }

// Send delivers the message through the Resend API.
func (r *Resend) Send(ctx context.Context, msg *Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}

	params := &resend.SendEmailRequest{
		From:    r.from,
		To:      msg.To,
		Subject: msg.Subject,
		Text:    msg.Body,
	}

	err := retry.WithBackoff(ctx, r.retryConfig, func() error {
		_, execErr := r.circuitBreaker.Execute(func() (interface{}, error) {
			return r.client.Emails.SendWithContext(ctx, params)
		})
		if errors.Is(execErr, gobreaker.ErrOpenState) {
			slog.Warn("resend circuit breaker is open",
				slog.String("breaker", r.circuitBreaker.Name()))
		}
		return execErr
	})
	if err != nil {
		return fmt.Errorf("resend send: %w", err)
	}

	slog.Info("digest mail accepted by resend",
		slog.Int("recipients", len(msg.To)),
		slog.String("subject", msg.Subject))
	return nil
}
