// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full service configuration.
type Config struct {
	Service       ServiceConfig
	Kafka         KafkaConfig
	Analysis      AnalysisConfig
	Session       SessionConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Principal   string
	GRPCPort    string
	HTTPPort    string
	MetricsPort string
}

type KafkaConfig struct {
	Enabled          bool
	Brokers          []string
	TopicTranscripts string
	TopicReports     string
	TopicViolations  string
	GroupID          string
	Principal        string
}

type AnalysisConfig struct {
	// PatternsFile overrides the built-in taxonomy when set.
	PatternsFile string
	BatchWorkers int
	// DefaultKinds applies when a request names no analyses. Empty means all.
	DefaultKinds []string
	// Classifier names the classifier backing the classifier approach:
	// "mock" for the offline pattern-backed one, "none" to disable it.
	Classifier string
	// DefaultApproach applies when a request names no approach.
	DefaultApproach string
}

type SessionConfig struct {
	MaxUtterances int
	MaxDuration   time.Duration
}

type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables.
// Invalid numeric, boolean and duration values fall back to defaults.
func Load() *Config {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-call-compliance")

	return &Config{
		Service: ServiceConfig{
			Principal:   principal,
			GRPCPort:    envOrDefault("GRPC_PORT", "50051"),
			HTTPPort:    envOrDefault("HTTP_PORT", "8080"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
		Kafka: KafkaConfig{
			Enabled:          envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:          envOrDefaultList("KAFKA_BROKERS", []string{"localhost:9092"}),
			TopicTranscripts: envOrDefault("KAFKA_TOPIC_TRANSCRIPTS", "call.transcripts"),
			TopicReports:     envOrDefault("KAFKA_TOPIC_REPORTS", "call.analysis.reports"),
			TopicViolations:  envOrDefault("KAFKA_TOPIC_VIOLATIONS", "call.compliance.violations"),
			GroupID:          envOrDefault("KAFKA_GROUP_ID", "call-compliance-analyzer"),
			Principal:        envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Analysis: AnalysisConfig{
			PatternsFile:    envOrDefault("ANALYSIS_PATTERNS_FILE", ""),
			BatchWorkers:    envOrDefaultInt("ANALYSIS_BATCH_WORKERS", 4),
			DefaultKinds:    envOrDefaultList("ANALYSIS_DEFAULT_KINDS", nil),
			Classifier:      envOrDefault("ANALYSIS_CLASSIFIER", "mock"),
			DefaultApproach: envOrDefault("ANALYSIS_DEFAULT_APPROACH", "pattern"),
		},
		Session: SessionConfig{
			MaxUtterances: envOrDefaultInt("SESSION_MAX_UTTERANCES", 10000),
			MaxDuration:   envOrDefaultDuration("SESSION_MAX_DURATION", 2*time.Hour),
		},
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
		},
	}
}

// LoadWithDotEnv loads variables from a .env file into the environment and then calls Load.
// Variables already set in the environment take precedence. A missing file is not an error.
func LoadWithDotEnv(path string) (*Config, error) {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return Load(), nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// envOrDefaultList splits a comma separated value, dropping empty items.
func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
