package downloader

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/gilbertyin/Jurni/internal/config"
	"github.com/gilbertyin/Jurni/internal/domain"
)

// runner executes an external command and returns stderr output.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stderr.Bytes(), err
}

// YtDlp downloads videos with the yt-dlp binary. The primary strategy
// targets the best MP4 stream; for short-form social sources a permissive
// generic-extraction fallback is attempted automatically on primary failure.
type YtDlp struct {
	binary  string
	timeout time.Duration
	run     runner
	logger  *slog.Logger
}

// NewYtDlp creates a yt-dlp backed downloader.
func NewYtDlp(cfg config.ToolsConfig, logger *slog.Logger) *YtDlp {
	return &YtDlp{
		binary:  cfg.YtDlpBin,
		timeout: cfg.DownloadTimeout,
		run:     execRunner,
		logger:  logger,
	}
}

// Download fetches videoURL to destPath. It fails only if every strategy
// fails or the output file is absent afterwards.
func (d *YtDlp) Download(ctx context.Context, videoURL, destPath string) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	primary := []string{
		"-f", "best[ext=mp4]",
		"--no-warnings",
		"--no-check-certificates",
		"-o", destPath,
		videoURL,
	}

	stderr, err := d.run(ctx, d.binary, primary...)
	if err != nil {
		if !isShortForm(videoURL) {
			return fmt.Errorf("yt-dlp download: %w (stderr: %s)", err, bytes.TrimSpace(stderr))
		}

		d.logger.Warn("primary download failed, trying generic extractor",
			"url", videoURL,
			"error", err,
		)

		fallback := []string{
			"--no-warnings",
			"--force-generic-extractor",
			"-o", destPath,
			videoURL,
		}
		stderr, err = d.run(ctx, d.binary, fallback...)
		if err != nil {
			return fmt.Errorf("yt-dlp fallback download: %w (stderr: %s)", err, bytes.TrimSpace(stderr))
		}
	}

	if _, err := os.Stat(destPath); err != nil {
		return fmt.Errorf("%w: output file missing after download", domain.ErrDownloadFailed)
	}

	return nil
}

// isShortForm recognizes short-form social sources that often need the
// generic extractor.
func isShortForm(url string) bool {
	lower := strings.ToLower(url)
	return strings.Contains(lower, "tiktok.com") ||
		strings.Contains(lower, "instagram.com/reel") ||
		strings.Contains(lower, "youtube.com/shorts")
}
