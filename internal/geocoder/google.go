package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gilbertyin/Jurni/internal/config"
	"github.com/gilbertyin/Jurni/internal/domain"
)

// Google implements Geocoder against the Google Geocoding API.
type Google struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGoogle creates a new Google geocoding client.
func NewGoogle(cfg config.GeocoderConfig) *Google {
	return &Google{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// geocodeResponse is the subset of the geocoding payload consumed here.
type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves "venue, city, country" into coordinates.
//
// OVER_QUERY_LIMIT propagates as ErrQuotaExceeded so the caller can retry;
// every other non-OK status resolves to null coordinates without error.
// The asymmetry is deliberate: quota exhaustion is transient, all other
// misses are benign.
func (g *Google) Geocode(ctx context.Context, venueName, cityName, countryName string) (domain.Coordinates, error) {
	if venueName == domain.Unknown || cityName == domain.Unknown || countryName == domain.Unknown {
		return domain.Coordinates{}, nil
	}

	query := fmt.Sprintf("%s, %s, %s", venueName, cityName, countryName)
	reqURL := fmt.Sprintf("%s/maps/api/geocode/json?address=%s&key=%s",
		g.baseURL, url.QueryEscape(query), url.QueryEscape(g.apiKey))

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return domain.Coordinates{}, fmt.Errorf("geocoding API status %d: %s", resp.StatusCode, body)
	}

	var geo geocodeResponse
	if err := json.Unmarshal(body, &geo); err != nil {
		return domain.Coordinates{}, fmt.Errorf("unmarshal response: %w", err)
	}

	switch {
	case geo.Status == "OK" && len(geo.Results) > 0:
		loc := geo.Results[0].Geometry.Location
		return domain.NewCoordinates(loc.Lat, loc.Lng), nil
	case geo.Status == "OVER_QUERY_LIMIT":
		return domain.Coordinates{}, fmt.Errorf("%w: geocoding", domain.ErrQuotaExceeded)
	default:
		return domain.Coordinates{}, nil
	}
}
