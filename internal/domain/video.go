package domain

import (
	"encoding/json"
	"time"
)

// VideoID is a unique identifier for a persisted video record.
type VideoID string

// String returns the string representation of the VideoID.
func (id VideoID) String() string {
	return string(id)
}

// Status represents the lifecycle state of a video record.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further pipeline action occurs in this state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal state change.
// The lifecycle is queued -> processing -> {completed, failed}; terminal states
// never regress.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusQueued:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	}
	return false
}

// Unknown is the sentinel the analysis model asserts for any field it
// cannot determine.
const Unknown = "unknown"

// Metadata holds the structured metadata extracted for a video URL.
type Metadata struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Duration     int    `json:"duration"`
	Uploader     string `json:"uploader"`
	UploadDate   string `json:"upload_date"`
	ViewCount    int64  `json:"view_count"`
	LikeCount    int64  `json:"like_count"`
	CommentCount int64  `json:"comment_count"`
}

// VenueAnalysis is the structured result of the AI analysis stage.
type VenueAnalysis struct {
	CountryName string `json:"country_name"`
	CityName    string `json:"city_name"`
	VenueName   string `json:"venue_name"`
	Summary     string `json:"summary"`
}

// HasLocation reports whether the analysis identified venue, city, and
// country well enough to attempt geocoding.
func (a VenueAnalysis) HasLocation() bool {
	return a.VenueName != Unknown && a.VenueName != "" &&
		a.CityName != Unknown && a.CityName != "" &&
		a.CountryName != Unknown && a.CountryName != ""
}

// Coordinates is a nullable latitude/longitude pair. Both fields are set
// or both are nil; a partial pair is never produced.
type Coordinates struct {
	Latitude  *float64
	Longitude *float64
}

// NewCoordinates returns a populated coordinate pair.
func NewCoordinates(lat, lng float64) Coordinates {
	return Coordinates{Latitude: &lat, Longitude: &lng}
}

// IsNull reports whether the pair carries no location.
func (c Coordinates) IsNull() bool {
	return c.Latitude == nil && c.Longitude == nil
}

// Video is the persisted record for one submitted video URL.
type Video struct {
	ID          VideoID
	URL         string
	SubmittedBy string
	Status      Status

	Metadata Metadata

	VenueName   string
	CountryName string
	CityName    string

	// Analysis is the raw analysis result stored as an opaque JSON blob.
	Analysis json.RawMessage

	Latitude  *float64
	Longitude *float64

	CreatedAt   time.Time
	ProcessedAt *time.Time
	LastError   string
}

// NewVideo creates a record in the initial queued state.
func NewVideo(id VideoID, url, submittedBy string) *Video {
	return &Video{
		ID:          id,
		URL:         url,
		SubmittedBy: submittedBy,
		Status:      StatusQueued,
		CreatedAt:   time.Now(),
	}
}

// Coordinates returns the record's coordinate pair.
func (v *Video) Coordinates() Coordinates {
	return Coordinates{Latitude: v.Latitude, Longitude: v.Longitude}
}
