package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/gilbertyin/Jurni/internal/config"
	"github.com/gilbertyin/Jurni/internal/domain"
)

// runner executes an external command and returns stdout and stderr.
// Injectable so tests can substitute canned output for the real binary.
type runner func(ctx context.Context, name string, args ...string) ([]byte, []byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// YtDlp extracts metadata using the yt-dlp binary.
type YtDlp struct {
	binary  string
	timeout time.Duration
	run     runner
}

// NewYtDlp creates a yt-dlp backed extractor.
func NewYtDlp(cfg config.ToolsConfig) *YtDlp {
	return &YtDlp{
		binary:  cfg.YtDlpBin,
		timeout: cfg.ExtractTimeout,
		run:     execRunner,
	}
}

// dumpedMetadata is the subset of yt-dlp --dump-json output the pipeline keeps.
type dumpedMetadata struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Duration     float64 `json:"duration"`
	Uploader     string  `json:"uploader"`
	UploadDate   string  `json:"upload_date"`
	ViewCount    int64   `json:"view_count"`
	LikeCount    int64   `json:"like_count"`
	CommentCount int64   `json:"comment_count"`
}

// Extract runs yt-dlp --dump-json and maps the result.
func (e *YtDlp) Extract(ctx context.Context, videoURL string) (*domain.Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	stdout, stderr, err := e.run(ctx, e.binary, "--dump-json", "--no-warnings", videoURL)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp metadata dump: %w (stderr: %s)", err, bytes.TrimSpace(stderr))
	}

	var dumped dumpedMetadata
	if err := json.Unmarshal(stdout, &dumped); err != nil {
		return nil, fmt.Errorf("parse yt-dlp metadata: %w", err)
	}

	return &domain.Metadata{
		Title:        dumped.Title,
		Description:  dumped.Description,
		Duration:     int(dumped.Duration),
		Uploader:     dumped.Uploader,
		UploadDate:   dumped.UploadDate,
		ViewCount:    dumped.ViewCount,
		LikeCount:    dumped.LikeCount,
		CommentCount: dumped.CommentCount,
	}, nil
}
