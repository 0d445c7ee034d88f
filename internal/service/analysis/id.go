package analysis

import (
	"fmt"
	"sync/atomic"
)

// IDGenerator hands out analysis IDs of the form "<callId>-analysis-<n>".
// The counter is shared across calls and safe for concurrent use.
type IDGenerator struct {
	counter uint64
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

func (g *IDGenerator) Next(callId string) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s-analysis-%d", callId, n)
}
