package store

import "context"

// Store persists the results of completed runs. It never holds optimizer
// state: a record is the final Alpha plus the convergence history.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return a *NotFoundError if the run doesn't exist (for Load/Delete)
//   - Return a *ValidationError for malformed records on Save
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveRun stores rec, replacing any record with the same ID.
	SaveRun(ctx context.Context, rec *RunRecord) error

	// LoadRun retrieves the record for runID.
	LoadRun(ctx context.Context, runID string) (*RunRecord, error)

	// ListRuns returns metadata for all stored runs, newest first.
	ListRuns(ctx context.Context) ([]RunInfo, error)

	// DeleteRun removes the record and any artifacts stored alongside it.
	DeleteRun(ctx context.Context, runID string) error
}

// ErrNotFound matches every *NotFoundError via errors.Is.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing run.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "run not found: " + e.RunID
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
