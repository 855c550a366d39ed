package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gilbertyin/Jurni/internal/domain"
	"github.com/gilbertyin/Jurni/internal/service"
)

// VideoHandler handles video-related HTTP requests.
type VideoHandler struct {
	submitSvc *service.SubmitService
	logger    *slog.Logger
}

// NewVideoHandler creates a new video handler.
func NewVideoHandler(submitSvc *service.SubmitService, logger *slog.Logger) *VideoHandler {
	return &VideoHandler{
		submitSvc: submitSvc,
		logger:    logger,
	}
}

// SubmitRequest is the JSON request body for video submission.
type SubmitRequest struct {
	VideoURL    string `json:"video_url"`
	SubmittedBy string `json:"submitted_by"`
}

// SubmitResponse is the JSON response after submission.
type SubmitResponse struct {
	VideoID string `json:"video_id"`
	Status  string `json:"status"`
}

// CoordinatesResponse is a resolved location. Omitted entirely when
// geocoding produced no match.
type CoordinatesResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// VideoResponse represents a video in list/get responses.
type VideoResponse struct {
	VideoID     string               `json:"video_id"`
	VideoURL    string               `json:"video_url"`
	SubmittedBy string               `json:"submitted_by"`
	Status      string               `json:"status"`
	Title       string               `json:"title,omitempty"`
	VenueName   string               `json:"venue_name,omitempty"`
	CityName    string               `json:"city_name,omitempty"`
	CountryName string               `json:"country_name,omitempty"`
	Coordinates *CoordinatesResponse `json:"coordinates,omitempty"`
	Error       string               `json:"error,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	ProcessedAt *time.Time           `json:"processed_at,omitempty"`
}

// ListResponse contains a paginated video list.
type ListResponse struct {
	Videos []VideoResponse `json:"videos"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// Submit handles POST /api/v1/videos
func (h *VideoHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	video, err := h.submitSvc.Submit(r.Context(), service.SubmitRequest{
		VideoURL:    req.VideoURL,
		SubmittedBy: req.SubmittedBy,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidVideoURL) {
			h.writeError(w, http.StatusBadRequest, "invalid video URL")
			return
		}
		h.logger.Error("submit failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to submit video")
		return
	}

	h.writeJSON(w, http.StatusAccepted, SubmitResponse{
		VideoID: video.ID.String(),
		Status:  string(video.Status),
	})
}

// Get handles GET /api/v1/videos/{videoID}
func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	if videoID == "" {
		h.writeError(w, http.StatusBadRequest, "missing video ID")
		return
	}

	video, err := h.submitSvc.GetStatus(r.Context(), domain.VideoID(videoID))
	if err != nil {
		if errors.Is(err, domain.ErrVideoNotFound) {
			h.writeError(w, http.StatusNotFound, "video not found")
			return
		}
		h.logger.Error("get failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get video")
		return
	}

	h.writeJSON(w, http.StatusOK, toVideoResponse(video))
}

// List handles GET /api/v1/videos
func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0
	var status *domain.Status

	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.Status(s)
		if !st.Valid() {
			h.writeError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		status = &st
	}

	videos, err := h.submitSvc.List(r.Context(), status, limit, offset)
	if err != nil {
		h.logger.Error("list failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list videos")
		return
	}

	response := ListResponse{
		Videos: make([]VideoResponse, 0, len(videos)),
		Limit:  limit,
		Offset: offset,
	}
	for _, v := range videos {
		response.Videos = append(response.Videos, toVideoResponse(v))
	}

	h.writeJSON(w, http.StatusOK, response)
}

func toVideoResponse(v *domain.Video) VideoResponse {
	vr := VideoResponse{
		VideoID:     v.ID.String(),
		VideoURL:    v.URL,
		SubmittedBy: v.SubmittedBy,
		Status:      string(v.Status),
		Title:       v.Metadata.Title,
		VenueName:   v.VenueName,
		CityName:    v.CityName,
		CountryName: v.CountryName,
		Error:       v.LastError,
		CreatedAt:   v.CreatedAt,
		ProcessedAt: v.ProcessedAt,
	}
	if v.Latitude != nil && v.Longitude != nil {
		vr.Coordinates = &CoordinatesResponse{
			Latitude:  *v.Latitude,
			Longitude: *v.Longitude,
		}
	}
	return vr
}

func (h *VideoHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *VideoHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
