// Package idgen provides run identifier generation.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/artpar/neris-schemas/ports"
	"github.com/google/uuid"
)

// RunID generates time-ordered UUIDs (version 7) that tag every log line
// of one generation run.
type RunID struct{}

// New generates a new run ID. Falls back to a random UUID if the
// time-ordered generator fails.
func (RunID) New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Ensure interface compliance.
var _ ports.IDGenerator = RunID{}

// Sequential generates predictable IDs for tests.
type Sequential struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New returns prefix followed by the next counter value, starting at 1.
func (s *Sequential) New() string {
	return s.prefix + strconv.FormatUint(s.counter.Add(1), 10)
}

// Ensure interface compliance.
var _ ports.IDGenerator = (*Sequential)(nil)
