// internal/pipeline/types.go
package pipeline

import (
	"context"
	"time"

	"github.com/andresuchdata/vector-priority/internal/pipeline/priority"
)

// DateRunner is the interface a per-date analysis pipeline must implement
// to be driven by the Orchestrator.
type DateRunner interface {
	// Name returns the unique identifier for this pipeline
	Name() string

	// Run executes the full analysis for a single date
	Run(ctx context.Context, date time.Time) (*priority.Result, error)
}

// Sink receives completed per-date results, one writer, in date order.
type Sink interface {
	WriteDate(result *priority.Result) error
}

// RunStatus represents the outcome of one date in a batch run.
type RunStatus string

const (
	StatusCompleted RunStatus = "completed"
	StatusDegraded  RunStatus = "degraded" // manual stage failed, deployment table emitted
	StatusSkipped   RunStatus = "skipped"  // required feeds missing for the date
	StatusFailed    RunStatus = "failed"
)

// DateStatus tracks a single date's processing within a batch.
type DateStatus struct {
	Date     time.Time
	Status   RunStatus
	Rows     int
	Error    string
	Duration time.Duration
}
