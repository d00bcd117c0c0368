// Package mailer implements mail delivery for the daily digest.
// The Gmail mailer talks to the Gmail REST API with a token file that a
// one-time OAuth bootstrap produced; Resend is available as an alternate
// provider for setups without a Google account.
package mailer

import (
	"context"
	"errors"
	"log/slog"
)

// Message is one outgoing mail.
type Message struct {
	To      []string
	Subject string
	Body    string // plain text
}

// Mailer sends a message through one provider.
type Mailer interface {
	// Name returns the provider identifier used in logs and metrics.
	Name() string
	// Send delivers the message. A nil return means the provider API
	// accepted the message.
	Send(ctx context.Context, msg *Message) error
}

// Sentinel errors for mail delivery.
var (
	// ErrNoRecipients indicates a message without any recipient.
	ErrNoRecipients = errors.New("no recipients")

	// ErrTokenExpired indicates the stored OAuth token could not be
	// refreshed. Re-running the mail-init bootstrap is required.
	ErrTokenExpired = errors.New("oauth token expired and refresh failed")
)

// NoOp is a mailer that logs instead of sending. Used in development and
// when no provider is configured.
type NoOp struct{}

// NewNoOp creates a mailer that drops every message after logging it.
func NewNoOp() *NoOp { return &NoOp{} }

// Name returns "noop".
func (n *NoOp) Name() string { return "noop" }

// Send logs the message and discards it.
func (n *NoOp) Send(_ context.Context, msg *Message) error {
	slog.Info("mail send skipped (noop mailer)",
		slog.Int("recipients", len(msg.To)),
		slog.String("subject", msg.Subject))
	return nil
}
