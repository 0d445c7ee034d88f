// Package compliance detects disclosure of account specifics before the
// customer's identity has been verified.
package compliance

import (
	"errors"
	"fmt"
)

// State represents the verification state of a conversation.
type State int

const (
	// StateUnverified - No verification has been requested.
	StateUnverified State = iota
	// StateRequested - The agent asked for identifying details; the customer has not answered yet.
	StateRequested
	// StateVerified - The customer answered a verification request with a qualifying detail.
	// This is terminal for the pass.
	StateVerified
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnverified:
		return "UNVERIFIED"
	case StateRequested:
		return "REQUESTED"
	case StateVerified:
		return "VERIFIED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsVerified returns true if the state is VERIFIED.
func (s State) IsVerified() bool {
	return s == StateVerified
}

// ErrNotRequested is returned when a verification response arrives before any request.
var ErrNotRequested = errors.New("verification was not requested")

// Verification is the state machine for a single detection pass.
// It is ephemeral and not safe for concurrent use.
//
// State transitions:
//
//	UNVERIFIED ──Request()──→ REQUESTED ──Confirm()──→ VERIFIED
//	     │
//	     └── Confirm() ──→ ErrNotRequested, state unchanged
//
// Rules:
//   - A request alone never verifies.
//   - VERIFIED never reverts; Request() and Confirm() are no-ops there.
type Verification struct {
	requested bool
	verified  bool
}

// NewVerification creates a verification state machine in UNVERIFIED state.
func NewVerification() *Verification {
	return &Verification{}
}

// State returns the current state.
func (v *Verification) State() State {
	switch {
	case v.verified:
		return StateVerified
	case v.requested:
		return StateRequested
	default:
		return StateUnverified
	}
}

// Requested returns true once the agent has asked for verification.
func (v *Verification) Requested() bool {
	return v.requested
}

// Verified returns true once a request has been answered.
func (v *Verification) Verified() bool {
	return v.verified
}

// Request records an agent verification request. Idempotent.
func (v *Verification) Request() {
	v.requested = true
}

// Confirm records a qualifying customer response.
// Returns ErrNotRequested (and leaves the state alone) if no request was made.
func (v *Verification) Confirm() error {
	if !v.requested {
		return ErrNotRequested
	}
	v.verified = true
	return nil
}
