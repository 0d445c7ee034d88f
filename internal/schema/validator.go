// Package schema validates event payloads against embedded JSON schemas.
package schema

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kaptinlin/jsonschema"

	"call-compliance-analyzer/internal/models"
	"call-compliance-analyzer/internal/observability/metrics"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var schemaFiles = map[string]string{
	models.EventTypeReport:     "schemas/report_event.schema.json",
	models.EventTypeViolation:  "schemas/violation_event.schema.json",
	models.EventTypeTranscript: "schemas/transcript_envelope.schema.json",
}

var (
	ErrUnknownEventType = errors.New("no schema for event type")
	ErrInvalid          = errors.New("schema validation failed")
)

// Validator holds compiled schemas keyed by event type. It is safe for concurrent use.
type Validator struct {
	schemas map[string]*jsonschema.Schema
	metrics *metrics.Metrics
}

// New compiles the embedded schemas. A nil metrics sink uses metrics.DefaultMetrics.
func New(m *metrics.Metrics) (*Validator, error) {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	v := &Validator{
		schemas: make(map[string]*jsonschema.Schema, len(schemaFiles)),
		metrics: m,
	}
	for eventType, file := range schemaFiles {
		data, err := schemaFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", file, err)
		}
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		compiled, err := compiler.Compile(data)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", file, err)
		}
		v.schemas[eventType] = compiled
	}
	return v, nil
}

// Validate encodes event as JSON and checks it against the schema for eventType.
func (v *Validator) Validate(eventType string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}
	return v.ValidateJSON(eventType, data)
}

// ValidateJSON checks raw JSON against the schema for eventType.
func (v *Validator) ValidateJSON(eventType string, data []byte) error {
	compiled, ok := v.schemas[eventType]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}
	result := compiled.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	v.metrics.RecordSchemaFailure(eventType)
	return fmt.Errorf("%w: %s: %v", ErrInvalid, eventType, result.Errors)
}
