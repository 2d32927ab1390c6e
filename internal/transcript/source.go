package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"veristream/internal/model"
)

// ErrNoCaptions reports that the content id resolved but carries no
// usable captions. Absence of captions is a reported failure, not a crash.
var ErrNoCaptions = errors.New("no captions available")

// Source resolves a content identifier to an ordered sequence of
// captioned text spans with time bounds.
type Source interface {
	Fetch(ctx context.Context, contentID string) ([]model.CaptionSpan, error)
}

// HTTPSource fetches caption spans from a caption service that returns
// a JSON array of {text, start, duration} objects.
type HTTPSource struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewHTTPSource creates a caption-service client. The base URL must
// contain an {id} placeholder for the content identifier.
func NewHTTPSource(cfg model.TranscriptConfig) *HTTPSource {
	return &HTTPSource{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Fetch retrieves and decodes the caption spans for the content id.
func (s *HTTPSource) Fetch(ctx context.Context, contentID string) ([]model.CaptionSpan, error) {
	if s.baseURL == "" {
		return nil, errors.New("transcript base URL not configured")
	}
	if strings.TrimSpace(contentID) == "" {
		return nil, errors.New("empty content id")
	}

	url := strings.ReplaceAll(s.baseURL, "{id}", contentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch captions: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNoCaptions, contentID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("caption service returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read captions: %w", err)
	}

	return decodeSpans(body, contentID)
}

// FileSource reads caption spans from a local JSON file. Used by the
// one-shot CLI and in tests; the content id is the file path.
type FileSource struct{}

// Fetch reads and decodes the caption file at contentID.
func (FileSource) Fetch(ctx context.Context, contentID string) ([]model.CaptionSpan, error) {
	data, err := os.ReadFile(contentID)
	if err != nil {
		return nil, fmt.Errorf("read caption file: %w", err)
	}
	return decodeSpans(data, contentID)
}

func decodeSpans(data []byte, contentID string) ([]model.CaptionSpan, error) {
	var spans []model.CaptionSpan
	if err := json.Unmarshal(data, &spans); err != nil {
		return nil, fmt.Errorf("decode captions: %w", err)
	}

	// Drop empty spans; a transcript with nothing left is a failure.
	kept := spans[:0]
	for _, sp := range spans {
		if strings.TrimSpace(sp.Text) != "" {
			kept = append(kept, sp)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCaptions, contentID)
	}

	return kept, nil
}
