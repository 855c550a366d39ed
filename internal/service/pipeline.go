package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gilbertyin/Jurni/internal/domain"
	"github.com/gilbertyin/Jurni/internal/downloader"
	"github.com/gilbertyin/Jurni/internal/extractor"
	"github.com/gilbertyin/Jurni/internal/geocoder"
	"github.com/gilbertyin/Jurni/internal/ratelimit"
	"github.com/gilbertyin/Jurni/internal/retry"
	"github.com/gilbertyin/Jurni/internal/store"
	"github.com/gilbertyin/Jurni/pkg/gemini"
)

// Rate-limited external dependencies. Each holds its own sliding window.
const (
	DepDownload = "download"
	DepAnalysis = "analysis"
	DepGeocode  = "geocode"
)

// Pipeline stage names used in error reporting.
const (
	stageExtract  = "extract"
	stageDownload = "download"
	stageAnalyze  = "analyze"
	stageGeocode  = "geocode"
	stagePersist  = "persist"
)

// PipelineService runs one job through the full processing pipeline:
// extract, download, analyze, geocode, persist. It owns the record's
// status lifecycle from processing to a terminal state.
type PipelineService struct {
	store      store.VideoStore
	extractor  extractor.Extractor
	downloader downloader.Downloader
	gemini     gemini.Client
	geocoder   geocoder.Geocoder
	limiter    *ratelimit.Limiter
	retryCfg   retry.Config
	tempDir    string
	logger     *slog.Logger
}

// NewPipeline creates a pipeline service.
func NewPipeline(
	videoStore store.VideoStore,
	ext extractor.Extractor,
	dl downloader.Downloader,
	analyzer gemini.Client,
	geo geocoder.Geocoder,
	limiter *ratelimit.Limiter,
	retryCfg retry.Config,
	tempDir string,
	logger *slog.Logger,
) *PipelineService {
	return &PipelineService{
		store:      videoStore,
		extractor:  ext,
		downloader: dl,
		gemini:     analyzer,
		geocoder:   geo,
		limiter:    limiter,
		retryCfg:   retryCfg,
		tempDir:    tempDir,
		logger:     logger.With("component", "pipeline"),
	}
}

// Process runs the job to a terminal state. A nil return means the record
// was completed; a non-nil return means it was marked failed and the error
// describes the stage that broke.
func (s *PipelineService) Process(ctx context.Context, msg domain.JobMessage) error {
	id := msg.VideoID()
	logger := s.logger.With("job_id", msg.JobID, "video_url", msg.VideoURL)
	logger.Info("processing started")

	if err := s.claim(ctx, id, logger); err != nil {
		return domain.NewStageError(id, domain.StageTransition, err)
	}

	tempPath := filepath.Join(s.tempDir, msg.JobID+".mp4")

	md, err := s.extract(ctx, msg.VideoURL)
	if err != nil {
		return s.fail(ctx, id, logger, stageExtract, tempPath, err)
	}
	logger.Info("metadata extracted", "title", md.Title, "duration", md.Duration)

	if err := s.download(ctx, msg.VideoURL, tempPath); err != nil {
		return s.fail(ctx, id, logger, stageDownload, tempPath, err)
	}

	analysis, err := s.analyze(ctx, tempPath, *md)
	if err != nil {
		return s.fail(ctx, id, logger, stageAnalyze, tempPath, err)
	}
	logger.Info("analysis complete",
		"venue", analysis.VenueName,
		"city", analysis.CityName,
		"country", analysis.CountryName,
	)

	coords, err := s.geocode(ctx, *analysis)
	if err != nil {
		return s.fail(ctx, id, logger, stageGeocode, tempPath, err)
	}

	if err := s.store.PersistResults(ctx, id, *md, *analysis, coords); err != nil {
		return s.fail(ctx, id, logger, stagePersist, tempPath, err)
	}

	s.removeTemp(tempPath, logger)

	if err := s.store.SetStatus(ctx, id, domain.StatusCompleted); err != nil {
		return domain.NewStageError(id, domain.StageTransition, err)
	}
	logger.Info("processing completed", "has_coordinates", !coords.IsNull())
	return nil
}

// claim moves the record into processing. A redelivered job may find its
// record already there, left behind when a previous attempt crashed or its
// final status write failed; that is an idempotent re-claim and the
// pipeline runs again. Terminal records stay settled and the transition
// error propagates.
func (s *PipelineService) claim(ctx context.Context, id domain.VideoID, logger *slog.Logger) error {
	err := s.store.SetStatus(ctx, id, domain.StatusProcessing)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrInvalidTransition) {
		return err
	}

	current, getErr := s.store.Get(ctx, id)
	if getErr != nil {
		return getErr
	}
	if current.Status != domain.StatusProcessing {
		return err
	}

	logger.Warn("re-claiming record already in processing")
	return nil
}

// extract fetches metadata with retries, holding a download-dependency
// rate limit slot for each attempt.
func (s *PipelineService) extract(ctx context.Context, videoURL string) (*domain.Metadata, error) {
	md, attempts, err := retry.Do(ctx, s.retryCfg, func(ctx context.Context) (*domain.Metadata, error) {
		if err := s.limiter.Acquire(ctx, DepDownload); err != nil {
			return nil, err
		}
		return s.extractor.Extract(ctx, videoURL)
	})
	if err != nil {
		return nil, fmt.Errorf("after %d attempts: %w", attempts, err)
	}
	return md, nil
}

func (s *PipelineService) download(ctx context.Context, videoURL, destPath string) error {
	attempts, err := retry.DoVoid(ctx, s.retryCfg, func(ctx context.Context) error {
		if err := s.limiter.Acquire(ctx, DepDownload); err != nil {
			return err
		}
		return s.downloader.Download(ctx, videoURL, destPath)
	})
	if err != nil {
		return fmt.Errorf("after %d attempts: %w", attempts, err)
	}
	return nil
}

func (s *PipelineService) analyze(ctx context.Context, videoPath string, md domain.Metadata) (*domain.VenueAnalysis, error) {
	analysis, attempts, err := retry.Do(ctx, s.retryCfg, func(ctx context.Context) (*domain.VenueAnalysis, error) {
		if err := s.limiter.Acquire(ctx, DepAnalysis); err != nil {
			return nil, err
		}
		return s.gemini.AnalyzeVideo(ctx, gemini.AnalysisRequest{
			VideoPath: videoPath,
			Metadata:  md,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("after %d attempts: %w", attempts, err)
	}
	return analysis, nil
}

// geocode resolves the analyzed venue into coordinates. Analyses without a
// usable location skip the lookup entirely and produce a null pair.
func (s *PipelineService) geocode(ctx context.Context, analysis domain.VenueAnalysis) (domain.Coordinates, error) {
	if !analysis.HasLocation() {
		return domain.Coordinates{}, nil
	}
	coords, attempts, err := retry.Do(ctx, s.retryCfg, func(ctx context.Context) (domain.Coordinates, error) {
		if err := s.limiter.Acquire(ctx, DepGeocode); err != nil {
			return domain.Coordinates{}, err
		}
		return s.geocoder.Geocode(ctx, analysis.VenueName, analysis.CityName, analysis.CountryName)
	})
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("after %d attempts: %w", attempts, err)
	}
	return coords, nil
}

// fail cleans up the temp artifact and drives the record to failed. The
// failed transition is best effort: its own error is logged, not returned,
// so the stage error stays visible to the queue.
func (s *PipelineService) fail(ctx context.Context, id domain.VideoID, logger *slog.Logger, stage, tempPath string, cause error) error {
	logger.Error("processing failed", "stage", stage, "error", cause)

	s.removeTemp(tempPath, logger)

	if err := s.store.MarkFailed(ctx, id, cause.Error()); err != nil {
		logger.Error("failed to mark record failed", "error", err)
	}
	return domain.NewStageError(id, stage, cause)
}

// removeTemp deletes the downloaded artifact. The file may legitimately not
// exist yet when an early stage failed.
func (s *PipelineService) removeTemp(tempPath string, logger *slog.Logger) {
	if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove temp file", "path", tempPath, "error", err)
	}
}
