package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Run status constants.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run records the outcome of one stressor instance for one invocation.
type Run struct {
	ID         string     `json:"id"`
	Stressor   string     `json:"stressor"`
	Instance   uint32     `json:"instance"`
	Status     string     `json:"status"`
	Ops        uint64     `json:"ops"`
	Iterations uint64     `json:"iterations"`
	Limited    uint64     `json:"limited"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewID returns a fresh run identifier. ULIDs sort by creation time, which
// keeps the run listing in chronological order without a second index.
func NewID() string {
	return ulid.Make().String()
}
