// Package transcript loads transcripts from JSON and derives stable call IDs.
package transcript

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gowebpki/jcs"

	"call-compliance-analyzer/internal/models"
)

// ErrNotArray is returned when the document is not a JSON array of utterances.
var ErrNotArray = errors.New("transcript must be a JSON array")

// Parse decodes a JSON array of utterance records.
func Parse(data []byte) (models.Transcript, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, ErrNotArray
	}
	var t models.Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	if t == nil {
		t = models.Transcript{}
	}
	return t, nil
}

// Load reads and parses a transcript file.
func Load(path string) (models.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// CallIDFromPath returns the file name without directory or extension.
func CallIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Digest returns the sha256 hex digest of the RFC 8785 canonical JSON form of t.
// Equal transcripts produce equal digests regardless of how they were encoded.
func Digest(t models.Transcript) (string, error) {
	if t == nil {
		t = models.Transcript{}
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("encode transcript: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize transcript: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// CallID returns a short content-derived call ID, "call-" plus 16 hex digits.
func CallID(t models.Transcript) (string, error) {
	d, err := Digest(t)
	if err != nil {
		return "", err
	}
	return "call-" + d[:16], nil
}
