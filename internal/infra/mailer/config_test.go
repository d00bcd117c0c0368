package mailer_test

import (
	"testing"
	"time"

	"jobradar/internal/infra/mailer"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := mailer.LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv() error = %v", err)
	}

	if cfg.Provider != mailer.ProviderNoop {
		t.Errorf("expected default provider noop, got %s", cfg.Provider)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %v", cfg.Timeout)
	}
	if cfg.TokenFile != "token.json" {
		t.Errorf("expected default token file, got %s", cfg.TokenFile)
	}
}

func TestLoadConfigFromEnv_Gmail(t *testing.T) {
	t.Setenv("MAIL_PROVIDER", "gmail")
	t.Setenv("MAIL_FROM", "me@example.com")
	t.Setenv("MAIL_RECIPIENTS", "a@example.com, b@example.com")
	t.Setenv("GMAIL_TOKEN_FILE", "/etc/jobradar/token.json")

	cfg, err := mailer.LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv() error = %v", err)
	}

	if cfg.Provider != mailer.ProviderGmail {
		t.Errorf("expected provider gmail, got %s", cfg.Provider)
	}
	if len(cfg.Recipients) != 2 {
		t.Errorf("expected 2 recipients, got %v", cfg.Recipients)
	}
	if cfg.TokenFile != "/etc/jobradar/token.json" {
		t.Errorf("token file override not applied: %s", cfg.TokenFile)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := mailer.Config{
		Provider:   mailer.ProviderGmail,
		From:       "me@example.com",
		Recipients: []string{"me@example.com"},
		Timeout:    time.Second,
		TokenFile:  "token.json",
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*mailer.Config)
	}{
		{name: "unknown provider", mutate: func(c *mailer.Config) { c.Provider = "carrier-pigeon" }},
		{name: "gmail without from", mutate: func(c *mailer.Config) { c.From = "" }},
		{name: "gmail without token file", mutate: func(c *mailer.Config) { c.TokenFile = "" }},
		{name: "no recipients", mutate: func(c *mailer.Config) { c.Recipients = nil }},
		{name: "zero timeout", mutate: func(c *mailer.Config) { c.Timeout = 0 }},
		{name: "resend without api key", mutate: func(c *mailer.Config) { c.Provider = mailer.ProviderResend }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestNew_ProviderSelection(t *testing.T) {
	noop, err := mailer.New(mailer.Config{Provider: mailer.ProviderNoop, Timeout: time.Second})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if noop.Name() != "noop" {
		t.Errorf("expected noop mailer, got %s", noop.Name())
	}

	g, err := mailer.New(mailer.Config{
		Provider:   mailer.ProviderGmail,
		From:       "me@example.com",
		Recipients: []string{"me@example.com"},
		Timeout:    time.Second,
		TokenFile:  "token.json",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if g.Name() != "gmail" {
		t.Errorf("expected gmail mailer, got %s", g.Name())
	}

	r, err := mailer.New(mailer.Config{
		Provider:     mailer.ProviderResend,
		From:         "me@example.com",
		Recipients:   []string{"me@example.com"},
		Timeout:      time.Second,
		ResendAPIKey: "re_test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if r.Name() != "resend" {
		t.Errorf("expected resend mailer, got %s", r.Name())
	}
}
