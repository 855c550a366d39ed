// Package gemini is a thin client for the Gemini generateContent API,
// used to identify the venue a video is about.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gilbertyin/Jurni/internal/config"
	"github.com/gilbertyin/Jurni/internal/domain"
)

// Client analyzes a downloaded video plus its metadata into a structured
// venue result.
type Client interface {
	// AnalyzeVideo submits the prompt and returns the parsed analysis.
	// A response that cannot be parsed into the full schema is an error.
	AnalyzeVideo(ctx context.Context, req AnalysisRequest) (*domain.VenueAnalysis, error)
}

// AnalysisRequest contains the inputs for one analysis call.
type AnalysisRequest struct {
	// VideoPath is the local path of the downloaded video. If the file is
	// missing or larger than the inline limit, analysis proceeds from
	// metadata alone.
	VideoPath string
	Metadata  domain.Metadata
}

// HTTPClient implements Client using the Gemini REST API.
type HTTPClient struct {
	apiKey        string
	baseURL       string
	model         string
	maxVideoBytes int64
	httpClient    *http.Client
}

// NewClient creates a new Gemini API client.
func NewClient(cfg config.GeminiConfig) *HTTPClient {
	return &HTTPClient{
		apiKey:        cfg.APIKey,
		baseURL:       cfg.BaseURL,
		model:         cfg.Model,
		maxVideoBytes: cfg.MaxVideoBytes,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// generateRequest is the request body for the generateContent API.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// generateResponse is the response from the generateContent API.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// AnalyzeVideo submits the metadata prompt (and the video itself when it
// fits the inline limit) and parses the strict JSON reply.
func (c *HTTPClient) AnalyzeVideo(ctx context.Context, req AnalysisRequest) (*domain.VenueAnalysis, error) {
	parts := []part{{Text: buildAnalysisPrompt(req.Metadata)}}

	if data, ok := c.readVideo(req.VideoPath); ok {
		parts = append(parts, part{
			InlineData: &inlineData{
				MimeType: "video/mp4",
				Data:     base64.StdEncoding.EncodeToString(data),
			},
		})
	}

	genReq := generateRequest{
		Contents: []content{{Parts: parts}},
	}

	body, err := json.Marshal(genReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: gemini", domain.ErrQuotaExceeded)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if genResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", genResp.Error.Message)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}

	return parseAnalysis(genResp.Candidates[0].Content.Parts[0].Text)
}

// readVideo loads the video for inline submission, or reports false when it
// should be skipped.
func (c *HTTPClient) readVideo(path string) ([]byte, bool) {
	if path == "" {
		return nil, false
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() > c.maxVideoBytes {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

// parseAnalysis strips any code-fence markup the model may add and parses
// the strict venue schema. Missing fields reject the whole response.
func parseAnalysis(text string) (*domain.VenueAnalysis, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var analysis domain.VenueAnalysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedAnalysis, err)
	}

	for field, value := range map[string]string{
		"country_name": analysis.CountryName,
		"city_name":    analysis.CityName,
		"venue_name":   analysis.VenueName,
		"summary":      analysis.Summary,
	} {
		if value == "" {
			return nil, fmt.Errorf("%w: missing %s", domain.ErrMalformedAnalysis, field)
		}
	}

	return &analysis, nil
}

func buildAnalysisPrompt(md domain.Metadata) string {
	var sb strings.Builder
	sb.WriteString("Analyze this video based on its metadata:\n")
	sb.WriteString(fmt.Sprintf("Title: %s\n", md.Title))
	sb.WriteString(fmt.Sprintf("Description: %s\n", md.Description))
	sb.WriteString(fmt.Sprintf("Duration: %d seconds\n", md.Duration))
	sb.WriteString(fmt.Sprintf("Uploader: %s\n", md.Uploader))
	sb.WriteString(fmt.Sprintf("Upload Date: %s\n", md.UploadDate))
	sb.WriteString(fmt.Sprintf("Views: %d\n", md.ViewCount))
	sb.WriteString(fmt.Sprintf("Likes: %d\n", md.LikeCount))
	sb.WriteString(fmt.Sprintf("Comments: %d\n\n", md.CommentCount))
	sb.WriteString(`Provide a JSON response with the following structure:
{
  "country_name": "The country the video is about based on title, description and the video itself. Put 'unknown' if you can't determine the country.",
  "city_name": "The city the video is about based on title, description and the video itself. Put 'unknown' if you can't determine the city.",
  "venue_name": "The name of the venue based on the title, description and the video itself. Put 'unknown' if you can't determine the venue name.",
  "summary": "A brief summary of the venue's pros, cons and pricing based on the video, title and description."
}

IMPORTANT: Return ONLY the JSON object, without any markdown formatting or additional text.`)
	return sb.String()
}
