package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

func startHealthServer(t *testing.T, addr string) (*HealthServer, context.CancelFunc) {
	t.Helper()
	server := NewHealthServer(addr, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := server.Start(ctx); err != nil && err != http.ErrServerClosed {
			t.Errorf("unexpected server error: %v", err)
		}
	}()

	// リスナーが立ち上がるまで少し待つ
	time.Sleep(100 * time.Millisecond)
	return server, cancel
}

func getStatus(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("failed to call %s: %v", url, err)
	}
	defer resp.Body.Close()

	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp.StatusCode, body.Status
}

func TestHealthServer_Liveness(t *testing.T) {
	_, cancel := startHealthServer(t, "localhost:19191")
	defer cancel()

	code, status := getStatus(t, "http://localhost:19191/health")
	if code != http.StatusOK {
		t.Errorf("expected 200, got %d", code)
	}
	if status != "ok" {
		t.Errorf("expected status ok, got %q", status)
	}
}

func TestHealthServer_Readiness(t *testing.T) {
	server, cancel := startHealthServer(t, "localhost:19192")
	defer cancel()

	// 初期状態はnot ready
	code, status := getStatus(t, "http://localhost:19192/health/ready")
	if code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before SetReady, got %d", code)
	}
	if status != "not ready" {
		t.Errorf("expected status not ready, got %q", status)
	}

	server.SetReady(true)

	code, status = getStatus(t, "http://localhost:19192/health/ready")
	if code != http.StatusOK {
		t.Errorf("expected 200 after SetReady, got %d", code)
	}
	if status != "ok" {
		t.Errorf("expected status ok, got %q", status)
	}

	// 停止前にreadyを外す運用を模す
	server.SetReady(false)
	code, _ = getStatus(t, "http://localhost:19192/health/ready")
	if code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 after SetReady(false), got %d", code)
	}
}

func TestHealthServer_GracefulShutdown(t *testing.T) {
	_, cancel := startHealthServer(t, "localhost:19193")

	cancel()
	time.Sleep(200 * time.Millisecond)

	// シャットダウン後は接続できない
	if _, err := http.Get("http://localhost:19193/health"); err == nil {
		t.Error("expected connection error after shutdown")
	}
}
