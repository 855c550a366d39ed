package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gilbertyin/Jurni/internal/config"
)

func testExtractor(run runner) *YtDlp {
	e := NewYtDlp(config.ToolsConfig{
		YtDlpBin:       "yt-dlp",
		ExtractTimeout: 5 * time.Second,
	})
	e.run = run
	return e
}

func TestYtDlp_Extract(t *testing.T) {
	var gotArgs []string
	e := testExtractor(func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		gotArgs = append([]string{name}, args...)
		out := `{
			"title": "Hidden cafe in Brooklyn",
			"description": "Best flat white in NYC",
			"duration": 47.5,
			"uploader": "foodtours",
			"upload_date": "20250115",
			"view_count": 120345,
			"like_count": 9021,
			"comment_count": 310
		}`
		return []byte(out), nil, nil
	})

	md, err := e.Extract(context.Background(), "https://example.com/v1")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if md.Title != "Hidden cafe in Brooklyn" {
		t.Errorf("title = %q", md.Title)
	}
	if md.Duration != 47 {
		t.Errorf("duration = %d, want 47", md.Duration)
	}
	if md.ViewCount != 120345 || md.LikeCount != 9021 || md.CommentCount != 310 {
		t.Errorf("counts = %d/%d/%d", md.ViewCount, md.LikeCount, md.CommentCount)
	}
	if md.UploadDate != "20250115" {
		t.Errorf("upload_date = %q", md.UploadDate)
	}

	want := []string{"yt-dlp", "--dump-json", "--no-warnings", "https://example.com/v1"}
	if strings.Join(gotArgs, " ") != strings.Join(want, " ") {
		t.Errorf("command = %v, want %v", gotArgs, want)
	}
}

func TestYtDlp_ExtractToolFailure(t *testing.T) {
	e := testExtractor(func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return nil, []byte("ERROR: unsupported URL\n"), errors.New("exit status 1")
	})

	_, err := e.Extract(context.Background(), "https://example.com/bad")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "unsupported URL") {
		t.Errorf("error should carry stderr, got: %v", err)
	}
}

func TestYtDlp_ExtractMalformedOutput(t *testing.T) {
	e := testExtractor(func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return []byte("not json"), nil, nil
	})

	_, err := e.Extract(context.Background(), "https://example.com/v1")
	if err == nil {
		t.Fatal("expected parse error")
	}
}
