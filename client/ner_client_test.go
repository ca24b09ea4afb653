package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twdocs/ocr-letter-extraction/dto"
)

func TestNoopClientReportsUnavailable(t *testing.T) {
	spans, err := NoopClient{}.SpansForLine(context.Background(), "張祐綸")

	assert.Nil(t, spans)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClientFiltersPersonSpans(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "函查對象:張祐綸", req.Text)

		json.NewEncoder(w).Encode(map[string]any{
			"spans": []map[string]any{
				{"start": 5, "end": 8, "label": "PERSON"},
				{"start": 0, "end": 4, "label": "ORG"},
			},
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	spans, err := c.SpansForLine(context.Background(), "函查對象:張祐綸")

	require.NoError(t, err)
	assert.Equal(t, []dto.Span{{Start: 5, End: 8}}, spans)
}

func TestHTTPClientEmptySpanListIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"spans": []any{}})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	spans, err := c.SpansForLine(context.Background(), "主旨:請查照")

	require.NoError(t, err)
	assert.Empty(t, spans)
	assert.NotNil(t, spans)
}

func TestHTTPClientWrapsFailuresAsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	_, err := c.SpansForLine(context.Background(), "張祐綸")
	assert.ErrorIs(t, err, ErrUnavailable)

	srv.Close()
	_, err = c.SpansForLine(context.Background(), "張祐綸")
	assert.ErrorIs(t, err, ErrUnavailable)
}
