package mailer

import (
	"fmt"
	"time"

	"jobradar/pkg/config"
)

// Provider type constants.
const (
	ProviderGmail  = "gmail"
	ProviderResend = "resend"
	ProviderNoop   = "noop"
)

// Default endpoints. Overridable for tests.
const (
	defaultGmailBaseURL  = "https://gmail.googleapis.com"
	defaultOAuthTokenURL = "https://oauth2.googleapis.com/token"
)

// Config holds mail delivery settings.
type Config struct {
	Provider   string
	From       string
	Recipients []string
	Timeout    time.Duration

	// Gmail settings.
	TokenFile     string
	ClientID      string
	ClientSecret  string
	GmailBaseURL  string
	OAuthTokenURL string

	// Resend settings.
	ResendAPIKey string
}

// Validate checks the configuration for the selected provider.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGmail:
		if c.From == "" {
			return fmt.Errorf("MAIL_FROM is required for the gmail provider")
		}
		if c.TokenFile == "" {
			return fmt.Errorf("GMAIL_TOKEN_FILE is required for the gmail provider")
		}
	case ProviderResend:
		if c.From == "" {
			return fmt.Errorf("MAIL_FROM is required for the resend provider")
		}
		if c.ResendAPIKey == "" {
			return fmt.Errorf("RESEND_API_KEY is required for the resend provider")
		}
	case ProviderNoop:
	default:
		return fmt.Errorf("unknown mail provider: %s (must be gmail, resend, or noop)", c.Provider)
	}
	if len(c.Recipients) == 0 && c.Provider != ProviderNoop {
		return fmt.Errorf("MAIL_RECIPIENTS is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("mail timeout must be positive")
	}
	return nil
}

// LoadConfigFromEnv reads mail settings from environment variables.
func LoadConfigFromEnv() (Config, error) {
	cfg := Config{
		Provider:      config.GetEnvString("MAIL_PROVIDER", ProviderNoop),
		From:          config.GetEnvString("MAIL_FROM", ""),
		Recipients:    config.GetEnvStringList("MAIL_RECIPIENTS", nil),
		Timeout:       config.GetEnvDuration("MAIL_TIMEOUT", 30*time.Second),
		TokenFile:     config.GetEnvString("GMAIL_TOKEN_FILE", "token.json"),
		ClientID:      config.GetEnvString("GMAIL_CLIENT_ID", ""),
		ClientSecret:  config.GetEnvString("GMAIL_CLIENT_SECRET", ""),
		GmailBaseURL:  config.GetEnvString("GMAIL_BASE_URL", defaultGmailBaseURL),
		OAuthTokenURL: config.GetEnvString("GMAIL_OAUTH_TOKEN_URL", defaultOAuthTokenURL),
		ResendAPIKey:  config.GetEnvString("RESEND_API_KEY", ""),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// New builds a Mailer for the configured provider.
func New(cfg Config) (Mailer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ProviderGmail:
		return NewGmail(cfg), nil
	case ProviderResend:
		return NewResend(cfg), nil
	default:
		return NewNoOp(), nil
	}
}
