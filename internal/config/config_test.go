package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

var allEnvVars = []string{
	"SERVICE_PRINCIPAL", "GRPC_PORT", "HTTP_PORT", "METRICS_PORT",
	"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC_TRANSCRIPTS", "KAFKA_TOPIC_REPORTS",
	"KAFKA_TOPIC_VIOLATIONS", "KAFKA_GROUP_ID", "KAFKA_PRINCIPAL",
	"ANALYSIS_PATTERNS_FILE", "ANALYSIS_BATCH_WORKERS", "ANALYSIS_DEFAULT_KINDS",
	"ANALYSIS_CLASSIFIER", "ANALYSIS_DEFAULT_APPROACH",
	"SESSION_MAX_UTTERANCES", "SESSION_MAX_DURATION",
	"LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv() {
	for _, v := range allEnvVars {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv()

	cfg := Load()

	// Service defaults
	if cfg.Service.Principal != "svc-call-compliance" {
		t.Errorf("expected default principal 'svc-call-compliance', got %s", cfg.Service.Principal)
	}
	if cfg.Service.GRPCPort != "50051" {
		t.Errorf("expected default gRPC port '50051', got %s", cfg.Service.GRPCPort)
	}
	if cfg.Service.HTTPPort != "8080" {
		t.Errorf("expected default HTTP port '8080', got %s", cfg.Service.HTTPPort)
	}
	if cfg.Service.MetricsPort != "9090" {
		t.Errorf("expected default metrics port '9090', got %s", cfg.Service.MetricsPort)
	}

	// Kafka defaults
	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"localhost:9092"}) {
		t.Errorf("expected default brokers [localhost:9092], got %v", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.TopicTranscripts != "call.transcripts" {
		t.Errorf("expected default transcripts topic, got %s", cfg.Kafka.TopicTranscripts)
	}
	if cfg.Kafka.TopicReports != "call.analysis.reports" {
		t.Errorf("expected default reports topic, got %s", cfg.Kafka.TopicReports)
	}
	if cfg.Kafka.TopicViolations != "call.compliance.violations" {
		t.Errorf("expected default violations topic, got %s", cfg.Kafka.TopicViolations)
	}
	if cfg.Kafka.GroupID != "call-compliance-analyzer" {
		t.Errorf("expected default group ID, got %s", cfg.Kafka.GroupID)
	}

	// Analysis defaults
	if cfg.Analysis.PatternsFile != "" {
		t.Errorf("expected no patterns file by default, got %s", cfg.Analysis.PatternsFile)
	}
	if cfg.Analysis.BatchWorkers != 4 {
		t.Errorf("expected default batch workers 4, got %d", cfg.Analysis.BatchWorkers)
	}
	if cfg.Analysis.DefaultKinds != nil {
		t.Errorf("expected no default kinds, got %v", cfg.Analysis.DefaultKinds)
	}
	if cfg.Analysis.Classifier != "mock" {
		t.Errorf("expected default classifier mock, got %s", cfg.Analysis.Classifier)
	}
	if cfg.Analysis.DefaultApproach != "pattern" {
		t.Errorf("expected default approach pattern, got %s", cfg.Analysis.DefaultApproach)
	}

	// Session defaults
	if cfg.Session.MaxUtterances != 10000 {
		t.Errorf("expected default max utterances 10000, got %d", cfg.Session.MaxUtterances)
	}
	if cfg.Session.MaxDuration != 2*time.Hour {
		t.Errorf("expected default max duration 2h, got %v", cfg.Session.MaxDuration)
	}

	// Observability defaults
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
	if cfg.Observability.LogFormat != "json" {
		t.Errorf("expected default log format 'json', got %s", cfg.Observability.LogFormat)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv()
	t.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	t.Setenv("GRPC_PORT", "9999")
	t.Setenv("HTTP_PORT", "8181")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("KAFKA_PRINCIPAL", "kafka-principal")
	t.Setenv("ANALYSIS_PATTERNS_FILE", "/etc/analyzer/patterns.yaml")
	t.Setenv("ANALYSIS_BATCH_WORKERS", "16")
	t.Setenv("ANALYSIS_DEFAULT_KINDS", "privacy,metrics")
	t.Setenv("ANALYSIS_CLASSIFIER", "none")
	t.Setenv("ANALYSIS_DEFAULT_APPROACH", "classifier")
	t.Setenv("SESSION_MAX_UTTERANCES", "500")
	t.Setenv("SESSION_MAX_DURATION", "10m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "console")

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Service.GRPCPort != "9999" {
		t.Errorf("expected port '9999', got %s", cfg.Service.GRPCPort)
	}
	if cfg.Service.HTTPPort != "8181" {
		t.Errorf("expected HTTP port '8181', got %s", cfg.Service.HTTPPort)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected Kafka enabled")
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"kafka-1:9092", "kafka-2:9092"}) {
		t.Errorf("expected two trimmed brokers, got %v", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.Principal != "kafka-principal" {
		t.Errorf("expected Kafka principal 'kafka-principal', got %s", cfg.Kafka.Principal)
	}
	if cfg.Analysis.PatternsFile != "/etc/analyzer/patterns.yaml" {
		t.Errorf("expected patterns file, got %s", cfg.Analysis.PatternsFile)
	}
	if cfg.Analysis.BatchWorkers != 16 {
		t.Errorf("expected batch workers 16, got %d", cfg.Analysis.BatchWorkers)
	}
	if !reflect.DeepEqual(cfg.Analysis.DefaultKinds, []string{"privacy", "metrics"}) {
		t.Errorf("expected default kinds [privacy metrics], got %v", cfg.Analysis.DefaultKinds)
	}
	if cfg.Analysis.Classifier != "none" {
		t.Errorf("expected classifier none, got %s", cfg.Analysis.Classifier)
	}
	if cfg.Analysis.DefaultApproach != "classifier" {
		t.Errorf("expected default approach classifier, got %s", cfg.Analysis.DefaultApproach)
	}
	if cfg.Session.MaxUtterances != 500 {
		t.Errorf("expected max utterances 500, got %d", cfg.Session.MaxUtterances)
	}
	if cfg.Session.MaxDuration != 10*time.Minute {
		t.Errorf("expected max duration 10m, got %v", cfg.Session.MaxDuration)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
	if cfg.Observability.LogFormat != "console" {
		t.Errorf("expected log format 'console', got %s", cfg.Observability.LogFormat)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	clearEnv()
	t.Setenv("KAFKA_ENABLED", "invalid")
	t.Setenv("KAFKA_BROKERS", " , ")
	t.Setenv("ANALYSIS_BATCH_WORKERS", "not-a-number")
	t.Setenv("SESSION_MAX_UTTERANCES", "invalid")
	t.Setenv("SESSION_MAX_DURATION", "invalid")

	cfg := Load()

	// Should fall back to defaults on parse errors
	if cfg.Kafka.Enabled {
		t.Error("expected default Kafka enabled on invalid input")
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"localhost:9092"}) {
		t.Errorf("expected default brokers on empty list, got %v", cfg.Kafka.Brokers)
	}
	if cfg.Analysis.BatchWorkers != 4 {
		t.Errorf("expected default batch workers on invalid input, got %d", cfg.Analysis.BatchWorkers)
	}
	if cfg.Session.MaxUtterances != 10000 {
		t.Errorf("expected default max utterances on invalid input, got %d", cfg.Session.MaxUtterances)
	}
	if cfg.Session.MaxDuration != 2*time.Hour {
		t.Errorf("expected default max duration on invalid input, got %v", cfg.Session.MaxDuration)
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	clearEnv()
	t.Setenv("SERVICE_PRINCIPAL", "my-service")

	cfg := Load()

	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestLoadWithDotEnv(t *testing.T) {
	clearEnv()
	t.Cleanup(clearEnv)
	t.Setenv("GRPC_PORT", "7000")

	path := filepath.Join(t.TempDir(), ".env")
	content := "GRPC_PORT=6000\nHTTP_PORT=6001\nKAFKA_ENABLED=true\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := LoadWithDotEnv(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Service.GRPCPort != "7000" {
		t.Errorf("expected environment to take precedence over .env, got %s", cfg.Service.GRPCPort)
	}
	if cfg.Service.HTTPPort != "6001" {
		t.Errorf("expected HTTP port from .env, got %s", cfg.Service.HTTPPort)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected Kafka enabled from .env")
	}
}

func TestLoadWithDotEnv_MissingFile(t *testing.T) {
	clearEnv()

	cfg, err := LoadWithDotEnv(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("expected missing .env to be ignored, got %v", err)
	}
	if cfg.Service.GRPCPort != "50051" {
		t.Errorf("expected default port, got %s", cfg.Service.GRPCPort)
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			got := envOrDefaultBool(key, tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}
