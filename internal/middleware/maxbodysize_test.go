package middleware_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/mileage-tracker/internal/middleware"
)

// decodingHandler decodes the body the way the trip handlers do and reports
// a MaxBytesError as 413.
var decodingHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	var v any
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}
	w.WriteHeader(http.StatusOK)
})

// positionBody is a start/end request padded with a note of n bytes.
func positionBody(n int) string {
	return `{"position":{"lat":51.5,"lng":-0.12},"note":"` + strings.Repeat("x", n) + `"}`
}

func TestMaxBodySizeHandler(t *testing.T) {
	const limit = 128

	tests := []struct {
		name          string
		body          string
		contentLength int64
		wantCode      int
	}{
		{"small position report", positionBody(10), -2, http.StatusOK},
		{"declared length over limit", positionBody(200), -2, http.StatusRequestEntityTooLarge},
		{"streamed body over limit", positionBody(200), -1, http.StatusRequestEntityTooLarge},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := middleware.NewMaxBodySizeHandler(limit)(decodingHandler)

			req := httptest.NewRequest(http.MethodPost, "/trips/start", strings.NewReader(tc.body))
			if tc.contentLength != -2 {
				req.ContentLength = tc.contentLength
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}
}

// A request that declares an oversized body never reaches the handler and
// gets the API error envelope.
func TestMaxBodySizeHandler_RejectsBeforeHandler(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, _ = io.Copy(io.Discard, r.Body)
	})
	h := middleware.NewMaxBodySizeHandler(16)(next)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(positionBody(64)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.False(t, called)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "payload_too_large", body.Error.Code)
}
