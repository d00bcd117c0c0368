package worker

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Timezone != "UTC" {
		t.Errorf("expected Timezone UTC, got %q", cfg.Timezone)
	}
	if cfg.RunTimeout != 30*time.Minute {
		t.Errorf("expected RunTimeout 30m, got %v", cfg.RunTimeout)
	}
	if cfg.HealthPort != 9091 {
		t.Errorf("expected HealthPort 9091, got %d", cfg.HealthPort)
	}
}

func TestWorkerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*WorkerConfig)
		wantErr bool
	}{
		{"Defaults", func(c *WorkerConfig) {}, false},
		{"InvalidTimezone", func(c *WorkerConfig) { c.Timezone = "Not/AZone" }, true},
		{"TimeoutTooShort", func(c *WorkerConfig) { c.RunTimeout = 30 * time.Second }, true},
		{"TimeoutTooLong", func(c *WorkerConfig) { c.RunTimeout = 10 * time.Hour }, true},
		{"PrivilegedPort", func(c *WorkerConfig) { c.HealthPort = 80 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv(discardLogger(), globalTestMetrics)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := DefaultConfig()
	if cfg.Timezone != want.Timezone || cfg.RunTimeout != want.RunTimeout || cfg.HealthPort != want.HealthPort {
		t.Errorf("expected defaults %+v, got %+v", want, *cfg)
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("WORKER_TIMEZONE", "Asia/Tokyo")
	t.Setenv("WORKER_RUN_TIMEOUT", "1h")
	t.Setenv("WORKER_HEALTH_PORT", "9999")

	cfg, err := LoadConfigFromEnv(discardLogger(), globalTestMetrics)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Timezone != "Asia/Tokyo" {
		t.Errorf("expected Timezone Asia/Tokyo, got %q", cfg.Timezone)
	}
	if cfg.RunTimeout != 1*time.Hour {
		t.Errorf("expected RunTimeout 1h, got %v", cfg.RunTimeout)
	}
	if cfg.HealthPort != 9999 {
		t.Errorf("expected HealthPort 9999, got %d", cfg.HealthPort)
	}
}

func TestLoadConfigFromEnv_InvalidValuesFallBack(t *testing.T) {
	// フェイルオープン: 不正値はデフォルトに置き換えられ、エラーにはならない
	t.Setenv("WORKER_TIMEZONE", "Not/AZone")
	t.Setenv("WORKER_RUN_TIMEOUT", "10s")
	t.Setenv("WORKER_HEALTH_PORT", "80")

	cfg, err := LoadConfigFromEnv(discardLogger(), globalTestMetrics)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := DefaultConfig()
	if cfg.Timezone != want.Timezone {
		t.Errorf("expected fallback timezone %q, got %q", want.Timezone, cfg.Timezone)
	}
	if cfg.RunTimeout != want.RunTimeout {
		t.Errorf("expected fallback timeout %v, got %v", want.RunTimeout, cfg.RunTimeout)
	}
	if cfg.HealthPort != want.HealthPort {
		t.Errorf("expected fallback port %d, got %d", want.HealthPort, cfg.HealthPort)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("fallback config must validate: %v", err)
	}
}
