package queue

import (
	"context"

	"github.com/gilbertyin/Jurni/internal/domain"
)

// Queue is the job transport between the submission API and the worker pool.
type Queue interface {
	// Enqueue makes a job available to workers.
	Enqueue(ctx context.Context, msg domain.JobMessage) error

	// Dequeue blocks until a job is available or the pop timeout elapses.
	// Returns domain.ErrNoJobs when no job arrived within the timeout.
	Dequeue(ctx context.Context) (domain.JobMessage, error)

	// Report records the outcome of a processing attempt. A nil procErr
	// acknowledges the job. A non-nil procErr schedules a delayed retry,
	// or dead-letters the job once its attempts are exhausted.
	Report(ctx context.Context, msg domain.JobMessage, procErr error) error
}
