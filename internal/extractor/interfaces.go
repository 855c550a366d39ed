package extractor

import (
	"context"

	"github.com/gilbertyin/Jurni/internal/domain"
)

// Extractor pulls structured metadata for a video URL.
type Extractor interface {
	// Extract fails if the URL is unreachable or the underlying tool
	// cannot parse the source. It performs no retries of its own.
	Extract(ctx context.Context, videoURL string) (*domain.Metadata, error)
}
