package services

import "errors"

// Job-level failures. Element-level failures never surface as errors; they
// are folded into the FillReport instead.
var (
	// ErrPageUnavailable means navigation failed (DNS, timeout, non-2xx page
	// load). Fatal for the job, no field map is produced.
	ErrPageUnavailable = errors.New("page unavailable")

	// ErrJobTimeout means the job exceeded its wall-clock budget. Fatal for
	// the job, but whatever partial FillReport was accumulated is still
	// returned alongside it.
	ErrJobTimeout = errors.New("job wall-clock budget exceeded")

	// ErrProfileNotFound means the given profile ref resolved to nothing in
	// the profile store.
	ErrProfileNotFound = errors.New("candidate profile not found")
)
