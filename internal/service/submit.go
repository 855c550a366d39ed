package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"

	"github.com/gilbertyin/Jurni/internal/domain"
	"github.com/gilbertyin/Jurni/internal/queue"
	"github.com/gilbertyin/Jurni/internal/store"
)

// SubmitService accepts new video URLs: it creates the queued record and
// publishes the matching job in that order, so a worker can never see a
// job without a record behind it.
type SubmitService struct {
	store  store.VideoStore
	queue  queue.Queue
	logger *slog.Logger
}

// NewSubmit creates a submission service.
func NewSubmit(videoStore store.VideoStore, q queue.Queue, logger *slog.Logger) *SubmitService {
	return &SubmitService{
		store:  videoStore,
		queue:  q,
		logger: logger.With("component", "submit"),
	}
}

// SubmitRequest is a new video submission.
type SubmitRequest struct {
	VideoURL    string
	SubmittedBy string
}

// Submit validates the URL, creates the record, and enqueues the job.
func (s *SubmitService) Submit(ctx context.Context, req SubmitRequest) (*domain.Video, error) {
	if err := validateVideoURL(req.VideoURL); err != nil {
		return nil, err
	}

	id := domain.VideoID("vid_" + uuid.NewString()[:8])
	video := domain.NewVideo(id, req.VideoURL, req.SubmittedBy)

	if err := s.store.Create(ctx, video); err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}

	msg := domain.JobMessage{
		JobID:    id.String(),
		UserID:   req.SubmittedBy,
		VideoURL: req.VideoURL,
	}
	if err := s.queue.Enqueue(ctx, msg); err != nil {
		// The record stays queued; a requeue sweep can pick it up later.
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	s.logger.Info("video submitted", "video_id", id, "submitted_by", req.SubmittedBy)
	return video, nil
}

// GetStatus returns the current record for id.
func (s *SubmitService) GetStatus(ctx context.Context, id domain.VideoID) (*domain.Video, error) {
	return s.store.Get(ctx, id)
}

// List returns records, optionally filtered by status, newest first.
func (s *SubmitService) List(ctx context.Context, status *domain.Status, limit, offset int) ([]*domain.Video, error) {
	return s.store.List(ctx, status, limit, offset)
}

func validateVideoURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidVideoURL, raw)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s", domain.ErrInvalidVideoURL, raw)
	}
	return nil
}
