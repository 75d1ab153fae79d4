package scans

import (
	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// JobArgs contains the arguments for a scan job submitted to River. The scan
// id is the unique key, so re-enqueueing the same scan never duplicates work.
type JobArgs struct {
	// ScanID identifies the stored scan this job processes.
	ScanID uuid.UUID `json:"scanId" river:"unique"`
	// Sources is the source subset selected at enqueue time; empty means all
	// registered sources.
	Sources []string `json:"sources,omitempty"`
	// ConcurrencyLimit optionally overrides the discovery concurrency cap.
	ConcurrencyLimit int `json:"concurrencyLimit,omitempty"`
	// SeverityThreshold optionally overrides the notice severity threshold.
	SeverityThreshold *float64 `json:"severityThreshold,omitempty"`

	// maxAttempts configures the maximum number of times River should retry the job.
	maxAttempts int
}

// Kind returns the River job kind used to register and dispatch the scan worker.
func (args JobArgs) Kind() string { return "RunScanJob" }

// InsertOpts returns the River options that control how the job is enqueued,
// including the maximum retry attempts and uniqueness constraints to prevent
// duplicate jobs for the same scan across multiple job states.
func (args JobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: args.maxAttempts,
		// make sure we only have one job per scan in any state
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStateCompleted,
				rivertype.JobStatePending,
				rivertype.JobStateRunning,
				rivertype.JobStateRetryable,
				rivertype.JobStateScheduled,
			},
		},
	}
}
