package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"call-compliance-analyzer/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Service.GRPCPort = "0"
	cfg.Service.HTTPPort = "0"
	cfg.Service.MetricsPort = "0"
	cfg.Kafka.Enabled = false
	cfg.Analysis.PatternsFile = ""
	cfg.Analysis.DefaultKinds = nil
	cfg.Analysis.Classifier = "mock"
	cfg.Analysis.DefaultApproach = "pattern"
	cfg.Observability.LogLevel = "error"
	return cfg
}

func TestNew(t *testing.T) {
	a, err := New(testConfig(), WithRegistry(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.Analyzer == nil {
		t.Fatal("expected analyzer")
	}
	if a.Analyzer.Classifier() == nil {
		t.Error("expected the offline classifier to be configured")
	}
	if a.Publisher == nil || a.Publisher.Enabled() {
		t.Error("expected log-only publisher")
	}
	if a.Consumer != nil {
		t.Error("expected no consumer when Kafka is disabled")
	}
	if a.Ready() {
		t.Error("expected not ready before Run")
	}

	rec := httptest.NewRecorder()
	a.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/readiness", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before Run, got %d", rec.Code)
	}
}

func TestNew_InvalidPatternsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	if err := os.WriteFile(path, []byte("categories:\n  profanity:\n    - expr: \"(unclosed\"\n"), 0o644); err != nil {
		t.Fatalf("write patterns: %v", err)
	}
	cfg := testConfig()
	cfg.Analysis.PatternsFile = path

	if _, err := New(cfg, WithRegistry(prometheus.NewRegistry())); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestNew_InvalidDefaultKinds(t *testing.T) {
	cfg := testConfig()
	cfg.Analysis.DefaultKinds = []string{"sentiment"}

	if _, err := New(cfg, WithRegistry(prometheus.NewRegistry())); err == nil {
		t.Error("expected error for unknown default analysis")
	}
}

func TestNew_ClassifierSettings(t *testing.T) {
	cfg := testConfig()
	cfg.Analysis.DefaultApproach = "classifier"
	a, err := New(cfg, WithRegistry(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := a.Analyzer.ResolveApproach(""); got != "classifier" {
		t.Errorf("expected classifier default approach, got %q", got)
	}

	tests := []struct {
		name       string
		classifier string
		approach   string
	}{
		{"unknown classifier", "gpt", "pattern"},
		{"unknown approach", "mock", "oracle"},
		{"classifier default without classifier", "none", "classifier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Analysis.Classifier = tt.classifier
			cfg.Analysis.DefaultApproach = tt.approach
			if _, err := New(cfg, WithRegistry(prometheus.NewRegistry())); err == nil {
				t.Error("expected error")
			}
		})
	}

	cfg = testConfig()
	cfg.Analysis.Classifier = "none"
	a, err = New(cfg, WithRegistry(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Analyzer.Classifier() != nil {
		t.Error("expected no classifier")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	a, err := New(testConfig(), WithRegistry(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for !a.Ready() {
		if time.Now().After(deadline) {
			t.Fatal("application did not become ready")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("application did not stop")
	}
	if a.Ready() {
		t.Error("expected not ready after shutdown")
	}
}
