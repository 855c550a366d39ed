package domain

// JobMessage is the payload carried on the inbound processing queue.
// JobID matches the ID of the persisted video record created at submission
// time; the temporary download artifact is keyed by it as well.
type JobMessage struct {
	JobID    string `json:"jobId"`
	UserID   string `json:"userId"`
	VideoURL string `json:"videoUrl"`

	// Attempts counts queue-level delivery attempts. It is maintained by
	// the queue, not the pipeline; pipeline-internal retries are invisible
	// to it.
	Attempts int `json:"attempts,omitempty"`
}

// VideoID returns the job's record identifier.
func (m JobMessage) VideoID() VideoID {
	return VideoID(m.JobID)
}
