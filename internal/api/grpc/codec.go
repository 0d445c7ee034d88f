package grpcapi

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"call-compliance-analyzer/internal/models"
)

// streamMessage is one StreamTranscript message. call_id, analyses and
// approach are read from the first message only.
type streamMessage struct {
	CallID    string            `json:"call_id,omitempty"`
	Analyses  []string          `json:"analyses,omitempty"`
	Approach  string            `json:"approach,omitempty"`
	Utterance *models.Utterance `json:"utterance,omitempty"`
}

func decodeStruct(st *structpb.Struct, v any) error {
	data, err := protojson.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode struct: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode struct: %w", err)
	}
	return nil
}

func encodeStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	st := &structpb.Struct{}
	if err := protojson.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("decode struct: %w", err)
	}
	return st, nil
}
