package session

import (
	"fmt"
	"sync"
)

// State represents the lifecycle state of a streaming session.
type State int

const (
	// StateOpen - session accepts utterances.
	StateOpen State = iota
	// StateClosed - client finished the stream and a report was produced.
	StateClosed
	// StateDropped - session was abandoned; no report is produced.
	StateDropped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	case StateDropped:
		return "DROPPED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is terminal (CLOSED or DROPPED).
func (s State) IsTerminal() bool {
	return s == StateClosed || s == StateDropped
}

// Lifecycle is the state machine of one session. Thread-safe.
//
//	OPEN ──Close()──→ CLOSED
//	  │
//	  └───Drop()────→ DROPPED
//
// Terminal states never change.
type Lifecycle struct {
	mu    sync.RWMutex
	state State
}

// NewLifecycle creates a lifecycle in OPEN state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateOpen}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsOpen returns true while utterances are accepted.
func (l *Lifecycle) IsOpen() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateOpen
}

// Close moves OPEN to CLOSED. Returns false if already terminal.
func (l *Lifecycle) Close() bool {
	return l.transition(StateClosed)
}

// Drop moves OPEN to DROPPED. Returns false if already terminal.
func (l *Lifecycle) Drop() bool {
	return l.transition(StateDropped)
}

func (l *Lifecycle) transition(to State) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return false
	}
	l.state = to
	return true
}
