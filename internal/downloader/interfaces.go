package downloader

import "context"

// Downloader fetches a video to local storage.
type Downloader interface {
	// Download writes exactly one file at destPath on success. It performs
	// no retries of its own beyond the built-in fallback strategy.
	Download(ctx context.Context, videoURL, destPath string) error
}
