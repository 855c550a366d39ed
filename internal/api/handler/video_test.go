package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/gilbertyin/Jurni/internal/domain"
	"github.com/gilbertyin/Jurni/internal/service"
	"github.com/gilbertyin/Jurni/internal/store"
)

type stubQueue struct {
	enqueued []domain.JobMessage
}

func (q *stubQueue) Enqueue(ctx context.Context, msg domain.JobMessage) error {
	q.enqueued = append(q.enqueued, msg)
	return nil
}

func (q *stubQueue) Dequeue(ctx context.Context) (domain.JobMessage, error) {
	return domain.JobMessage{}, domain.ErrNoJobs
}

func (q *stubQueue) Report(ctx context.Context, msg domain.JobMessage, procErr error) error {
	return nil
}

func newTestHandler() (*VideoHandler, *store.MemoryStore, *stubQueue) {
	st := store.NewMemoryStore()
	q := &stubQueue{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewSubmit(st, q, logger)
	return NewVideoHandler(svc, logger), st, q
}

// routed mounts the handler under the real route patterns so chi URL
// params resolve in tests.
func routed(h *VideoHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/videos", h.Submit)
	r.Get("/videos", h.List)
	r.Get("/videos/{videoID}", h.Get)
	return r
}

func TestVideoHandler_Submit(t *testing.T) {
	h, _, q := newTestHandler()
	r := routed(h)

	body := bytes.NewBufferString(`{"video_url":"https://www.tiktok.com/@u/video/1","submitted_by":"user_1"}`)
	req := httptest.NewRequest(http.MethodPost, "/videos", body)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusAccepted, w.Body.String())
	}

	var resp SubmitResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.VideoID == "" {
		t.Error("video_id should be set")
	}
	if resp.Status != "queued" {
		t.Errorf("status = %q, want queued", resp.Status)
	}
	if len(q.enqueued) != 1 {
		t.Errorf("enqueued = %d jobs, want 1", len(q.enqueued))
	}
}

func TestVideoHandler_SubmitInvalidURL(t *testing.T) {
	h, _, q := newTestHandler()
	r := routed(h)

	body := bytes.NewBufferString(`{"video_url":"not a url","submitted_by":"user_1"}`)
	req := httptest.NewRequest(http.MethodPost, "/videos", body)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if len(q.enqueued) != 0 {
		t.Errorf("enqueued = %d jobs, want 0", len(q.enqueued))
	}
}

func TestVideoHandler_SubmitMalformedBody(t *testing.T) {
	h, _, _ := newTestHandler()
	r := routed(h)

	req := httptest.NewRequest(http.MethodPost, "/videos", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestVideoHandler_Get(t *testing.T) {
	h, st, _ := newTestHandler()
	r := routed(h)

	v := domain.NewVideo("vid_1", "https://example.com/v1", "user_1")
	if err := st.Create(context.Background(), v); err != nil {
		t.Fatal(err)
	}
	if err := st.SetStatus(context.Background(), "vid_1", domain.StatusProcessing); err != nil {
		t.Fatal(err)
	}
	md := domain.Metadata{Title: "Dinner"}
	analysis := domain.VenueAnalysis{VenueName: "Balthazar", CityName: "New York", CountryName: "United States", Summary: "s"}
	if err := st.PersistResults(context.Background(), "vid_1", md, analysis, domain.NewCoordinates(40.78, -73.96)); err != nil {
		t.Fatal(err)
	}
	if err := st.SetStatus(context.Background(), "vid_1", domain.StatusCompleted); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/videos/vid_1", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp VideoResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "completed" {
		t.Errorf("status = %q, want completed", resp.Status)
	}
	if resp.VenueName != "Balthazar" {
		t.Errorf("venue_name = %q", resp.VenueName)
	}
	if resp.Coordinates == nil {
		t.Fatal("coordinates should be present")
	}
	if resp.Coordinates.Latitude != 40.78 || resp.Coordinates.Longitude != -73.96 {
		t.Errorf("coordinates = %+v", resp.Coordinates)
	}
}

func TestVideoHandler_GetOmitsNullCoordinates(t *testing.T) {
	h, st, _ := newTestHandler()
	r := routed(h)

	v := domain.NewVideo("vid_1", "https://example.com/v1", "user_1")
	if err := st.Create(context.Background(), v); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/videos/vid_1", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["coordinates"]; ok {
		t.Error("coordinates key should be omitted when null")
	}
}

func TestVideoHandler_GetNotFound(t *testing.T) {
	h, _, _ := newTestHandler()
	r := routed(h)

	req := httptest.NewRequest(http.MethodGet, "/videos/vid_missing", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestVideoHandler_ListFiltersByStatus(t *testing.T) {
	h, st, _ := newTestHandler()
	r := routed(h)

	for _, id := range []string{"vid_1", "vid_2"} {
		if err := st.Create(context.Background(), domain.NewVideo(domain.VideoID(id), "https://example.com/"+id, "user_1")); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.SetStatus(context.Background(), "vid_2", domain.StatusProcessing); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/videos?status=queued", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp ListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Videos) != 1 {
		t.Fatalf("videos = %d, want 1", len(resp.Videos))
	}
	if resp.Videos[0].VideoID != "vid_1" {
		t.Errorf("video_id = %q, want vid_1", resp.Videos[0].VideoID)
	}
}

func TestVideoHandler_ListRejectsBadStatus(t *testing.T) {
	h, _, _ := newTestHandler()
	r := routed(h)

	req := httptest.NewRequest(http.MethodGet, "/videos?status=bogus", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
