package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/twdocs/ocr-letter-extraction/dto"
)

// ErrUnavailable signals that no PERSON recognizer is configured or
// reachable. Callers treat it as permission to bypass the gate, never as
// a reason to fail the document.
var ErrUnavailable = errors.New("person recognizer unavailable")

// NERClient supplies PERSON spans for a single line of text. Spans use
// rune offsets into the line. Implementations may be remote and slow; the
// pipeline calls once per line and caches per document.
type NERClient interface {
	SpansForLine(ctx context.Context, line string) ([]dto.Span, error)
}

// NoopClient is the null-object recognizer used when no external
// recognizer is configured.
type NoopClient struct{}

func (NoopClient) SpansForLine(context.Context, string) ([]dto.Span, error) {
	return nil, ErrUnavailable
}

// HTTPClient calls an external named-entity recognizer over HTTP. The
// request is a JSON object {"text": ...}; the response carries tagged
// spans of which only PERSON ones are returned.
type HTTPClient struct {
	url        string
	httpClient *http.Client
}

// NewHTTPClient creates a recognizer client for the given endpoint.
func NewHTTPClient(url string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type nerRequest struct {
	Text string `json:"text"`
}

type nerResponse struct {
	Spans []struct {
		Start int    `json:"start"`
		End   int    `json:"end"`
		Label string `json:"label"`
	} `json:"spans"`
}

// SpansForLine posts one line to the recognizer and returns its PERSON
// spans. Transport and decoding failures are wrapped in ErrUnavailable so
// the caller can fail open.
func (c *HTTPClient) SpansForLine(ctx context.Context, line string) ([]dto.Span, error) {
	payload, err := json.Marshal(nerRequest{Text: line})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recognizer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build recognizer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: recognizer returned status %d: %s", ErrUnavailable, resp.StatusCode, string(body))
	}

	var result nerResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode recognizer response: %v", ErrUnavailable, err)
	}

	spans := make([]dto.Span, 0, len(result.Spans))
	for _, s := range result.Spans {
		if s.Label == "PERSON" {
			spans = append(spans, dto.Span{Start: s.Start, End: s.End})
		}
	}
	return spans, nil
}
