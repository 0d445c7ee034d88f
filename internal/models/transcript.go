// Package models defines the transcript input contract and the analysis result records.
package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Role is the normalized speaker role of an utterance.
type Role string

const (
	RoleAgent    Role = "agent"
	RoleCustomer Role = "customer"
	RoleOther    Role = "other"
)

// ParseRole normalizes a free-form speaker label. Matching is case-insensitive
// and ignores surrounding whitespace; "borrower" is an alias for customer.
func ParseRole(speaker string) Role {
	switch strings.ToLower(strings.TrimSpace(speaker)) {
	case "agent":
		return RoleAgent
	case "customer", "borrower":
		return RoleCustomer
	default:
		return RoleOther
	}
}

// Timestamp is an offset from call start in seconds.
//
// It decodes from a JSON number or from a string in "H:M:S", "M:S" or bare
// seconds form. Anything that cannot be decoded becomes zero rather than an error.
type Timestamp float64

// Seconds returns the offset as a float64.
func (t Timestamp) Seconds() float64 {
	return float64(t)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		*t = 0
		return nil
	}
	switch x := v.(type) {
	case float64:
		*t = Timestamp(finiteOrZero(x))
	case string:
		*t = Timestamp(ParseClock(x))
	default:
		*t = 0
	}
	return nil
}

// ParseClock converts "H:M:S", "M:S" or a bare seconds string into seconds.
// Hours and minutes must be integers; seconds may be fractional.
// Unrecognized input yields 0.
func ParseClock(s string) float64 {
	parts := strings.Split(strings.TrimSpace(s), ":")
	switch len(parts) {
	case 3:
		h, errH := strconv.Atoi(strings.TrimSpace(parts[0]))
		m, errM := strconv.Atoi(strings.TrimSpace(parts[1]))
		sec, errS := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if errH != nil || errM != nil || errS != nil {
			return 0
		}
		return finiteOrZero(float64(h)*3600 + float64(m)*60 + sec)
	case 2:
		m, errM := strconv.Atoi(strings.TrimSpace(parts[0]))
		sec, errS := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if errM != nil || errS != nil {
			return 0
		}
		return finiteOrZero(float64(m)*60 + sec)
	case 1:
		sec, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return 0
		}
		return finiteOrZero(sec)
	default:
		return 0
	}
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Utterance is one diarized turn of a conversation.
type Utterance struct {
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
	Start   Timestamp `json:"stime"`
	End     Timestamp `json:"etime"`
}

// Role returns the normalized role of the speaker.
func (u Utterance) Role() Role {
	return ParseRole(u.Speaker)
}

// UnmarshalJSON tolerates missing, null or non-string speaker and text fields.
func (u *Utterance) UnmarshalJSON(data []byte) error {
	var raw struct {
		Speaker json.RawMessage `json:"speaker"`
		Text    json.RawMessage `json:"text"`
		Start   Timestamp       `json:"stime"`
		End     Timestamp       `json:"etime"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	u.Speaker = scalarString(raw.Speaker)
	u.Text = scalarString(raw.Text)
	u.Start = raw.Start
	u.End = raw.End
	return nil
}

func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

// Transcript is an ordered conversation. Order is speaking order as produced
// by the source and is not necessarily sorted by start time.
type Transcript []Utterance
