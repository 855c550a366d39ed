package domain

import "errors"

// Domain errors.
var (
	// ErrVideoNotFound is returned when a video record cannot be found.
	ErrVideoNotFound = errors.New("video not found")

	// ErrNoJobs is returned when the inbound queue has no jobs to process.
	ErrNoJobs = errors.New("no jobs available")

	// ErrInvalidVideoURL is returned when a submitted URL is not a usable
	// http(s) URL.
	ErrInvalidVideoURL = errors.New("invalid video URL")

	// ErrInvalidTransition is returned when a status write would move a
	// record backwards or skip a state.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDownloadFailed is returned when the video download produced no
	// output file.
	ErrDownloadFailed = errors.New("video download failed")

	// ErrQuotaExceeded is returned when an external service reports its
	// quota is exhausted. Treated as transient and retryable.
	ErrQuotaExceeded = errors.New("external service quota exceeded")

	// ErrMalformedAnalysis is returned when the analysis response cannot be
	// parsed into the required schema.
	ErrMalformedAnalysis = errors.New("malformed analysis response")
)

// StageTransition marks a status write that failed outside any pipeline
// stage; the record holds no outcome for that attempt.
const StageTransition = "transition"

// StageError wraps an error with the pipeline stage and video it occurred in.
type StageError struct {
	VideoID VideoID
	Stage   string
	Err     error
}

func (e *StageError) Error() string {
	return e.Stage + " [" + e.VideoID.String() + "]: " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError creates a new StageError.
func NewStageError(videoID VideoID, stage string, err error) *StageError {
	return &StageError{
		VideoID: videoID,
		Stage:   stage,
		Err:     err,
	}
}
