package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gilbertyin/Jurni/internal/domain"
)

// MemoryStore implements VideoStore in memory. It enforces the same
// transition rules as the durable store and backs tests and local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	videos map[domain.VideoID]*domain.Video
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		videos: make(map[domain.VideoID]*domain.Video),
	}
}

// Create inserts a new record.
func (s *MemoryStore) Create(ctx context.Context, video *domain.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[video.ID]; ok {
		return fmt.Errorf("video %s already exists", video.ID)
	}

	clone := *video
	s.videos[video.ID] = &clone
	return nil
}

// Get retrieves a record by ID.
func (s *MemoryStore) Get(ctx context.Context, id domain.VideoID) (*domain.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.videos[id]
	if !ok {
		return nil, domain.ErrVideoNotFound
	}

	clone := *v
	return &clone, nil
}

// List returns records, optionally filtered by status, newest first.
func (s *MemoryStore) List(ctx context.Context, status *domain.Status, limit, offset int) ([]*domain.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	var videos []*domain.Video
	for _, v := range s.videos {
		if status != nil && v.Status != *status {
			continue
		}
		clone := *v
		videos = append(videos, &clone)
	}

	sort.Slice(videos, func(i, j int) bool {
		return videos[i].CreatedAt.After(videos[j].CreatedAt)
	})

	if offset >= len(videos) {
		return nil, nil
	}
	videos = videos[offset:]
	if len(videos) > limit {
		videos = videos[:limit]
	}
	return videos, nil
}

// SetStatus writes a lifecycle transition.
func (s *MemoryStore) SetStatus(ctx context.Context, id domain.VideoID, status domain.Status) error {
	return s.transition(id, status, "")
}

// MarkFailed transitions the record to failed and records the reason.
func (s *MemoryStore) MarkFailed(ctx context.Context, id domain.VideoID, reason string) error {
	return s.transition(id, domain.StatusFailed, reason)
}

func (s *MemoryStore) transition(id domain.VideoID, status domain.Status, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.videos[id]
	if !ok {
		return domain.ErrVideoNotFound
	}

	if !v.Status.CanTransition(status) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, v.Status, status)
	}

	v.Status = status
	if status.Terminal() {
		now := time.Now()
		v.ProcessedAt = &now
		v.LastError = reason
	}
	return nil
}

// PersistResults writes metadata, the analysis blob, and coordinates.
func (s *MemoryStore) PersistResults(ctx context.Context, id domain.VideoID, md domain.Metadata, analysis domain.VenueAnalysis, coords domain.Coordinates) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.videos[id]
	if !ok {
		return domain.ErrVideoNotFound
	}

	blob, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	v.Metadata = md
	v.VenueName = analysis.VenueName
	v.CountryName = analysis.CountryName
	v.CityName = analysis.CityName
	v.Analysis = blob
	v.Latitude = coords.Latitude
	v.Longitude = coords.Longitude
	return nil
}
