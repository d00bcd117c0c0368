package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"jobradar/internal/resilience/circuitbreaker"
	"jobradar/internal/resilience/retry"

	"github.com/sony/gobreaker"
)

// Gmail sends mail through the Gmail REST API using a pre-authorized
// OAuth token file. Only the messages.send scope is needed.
type Gmail struct {
	baseURL        string
	from           string
	client         *http.Client
	tokens         *tokenManager
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewGmail creates a Gmail mailer from the given configuration.
func NewGmail(cfg Config) *Gmail {
	client := &http.Client{Timeout: cfg.Timeout}
	return &Gmail{
		baseURL:        strings.TrimRight(cfg.GmailBaseURL, "/"),
		from:           cfg.From,
		client:         client,
		tokens:         newTokenManager(cfg, client),
		circuitBreaker: circuitbreaker.New(circuitbreaker.MailConfig()),
		retryConfig:    retry.MailConfig(),
	}
}

// Name returns "gmail".
func (g *Gmail) Name() string { return "gmail" }

// Send delivers the message via users/me/messages/send.
func (g *Gmail) Send(ctx context.Context, msg *Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}

	raw := buildRawMessage(g.from, msg)

	err := retry.WithBackoff(ctx, g.retryConfig, func() error {
		_, execErr := g.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, g.doSend(ctx, raw)
		})
		if errors.Is(execErr, gobreaker.ErrOpenState) {
			slog.Warn("gmail circuit breaker is open",
				slog.String("breaker", g.circuitBreaker.Name()))
		}
		return execErr
	})
	if err != nil {
		return fmt.Errorf("gmail send: %w", err)
	}

	slog.Info("digest mail accepted by gmail",
		slog.Int("recipients", len(msg.To)),
		slog.String("subject", msg.Subject))
	return nil
}

func (g *Gmail) doSend(ctx context.Context, raw string) error {
	token, err := g.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]string{"raw": raw})
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	url := g.baseURL + "/gmail/v1/users/me/messages/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gmail request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("gmail API returned %d: %s", resp.StatusCode, truncateBody(string(body), 200)),
		}
	}
	return nil
}

// buildRawMessage assembles an RFC 2822 message and encodes it the way
// the Gmail API expects: base64url without padding concerns (the API
// accepts standard URL encoding).
func buildRawMessage(from string, msg *Message) string {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return base64.URLEncoding.EncodeToString([]byte(b.String()))
}

func truncateBody(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
