package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/mileage-tracker/internal/middleware"
)

const appOrigin = "https://mileage.example.com"

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func newCORS() http.Handler {
	return middleware.NewCORSHandler([]string{appOrigin})(okHandler)
}

func TestCORSHandler_Origins(t *testing.T) {
	tests := []struct {
		name      string
		origin    string
		wantAllow string
	}{
		{"configured origin", appOrigin, appOrigin},
		{"other origin", "https://evil.example.com", ""},
		{"trailing slash is a different origin", appOrigin + "/", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/trips/active", nil)
			req.Header.Set("Origin", tc.origin)
			rec := httptest.NewRecorder()
			newCORS().ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tc.wantAllow, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

// Ending a trip from the browser sends a JSON body and a bearer token, so the
// preflight asks for both headers.
func TestCORSHandler_PreflightForBearerPost(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/trips/end", nil)
	req.Header.Set("Origin", appOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	// Browsers send request header names in lowercase.
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	rec := httptest.NewRecorder()
	newCORS().ServeHTTP(rec, req)

	assert.True(t, rec.Code == http.StatusNoContent || rec.Code == http.StatusOK,
		"expected 2xx for OPTIONS preflight, got %d", rec.Code)
	assert.Equal(t, appOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestCORSHandler_PreflightRejectsDelete(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/trips/123", nil)
	req.Header.Set("Origin", appOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	rec := httptest.NewRecorder()
	newCORS().ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORSHandler_ExposesContentDisposition(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/trips/export?format=csv", nil)
	req.Header.Set("Origin", appOrigin)
	rec := httptest.NewRecorder()
	newCORS().ServeHTTP(rec, req)

	assert.Equal(t, "Content-Disposition", rec.Header().Get("Access-Control-Expose-Headers"))
}
