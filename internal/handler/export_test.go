package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/mileage-tracker/internal/domain"
	"github.com/pkordes/mileage-tracker/internal/handler"
	"github.com/pkordes/mileage-tracker/internal/handler/gen"
)

// exportFixture returns an export of two trips with precomputed totals.
func exportFixture() domain.Export {
	a, b := tripFixture(), tripFixture()
	b.StartTime = b.StartTime.Add(24 * time.Hour)
	b.DistanceMiles = 12.5
	b.ReimbursementAmount = 5.63
	return domain.Export{
		UserID:             testUser,
		Trips:              []domain.Trip{b, a},
		TotalMiles:         12.78,
		TotalReimbursement: 5.76,
		Rate:               domain.Rate{PerMile: 0.45, CurrencySymbol: "£"},
		GeneratedAt:        time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC),
	}
}

func exportDeps(got *domain.ExportFilter) handler.Deps {
	return handler.Deps{History: &mockHistory{
		export: func(_ context.Context, userID string, f domain.ExportFilter) (domain.Export, error) {
			if got != nil {
				*got = f
			}
			if userID != testUser {
				return domain.Export{}, errors.New("wrong user")
			}
			return exportFixture(), nil
		},
	}}
}

func TestExportTrips_JSONDefault(t *testing.T) {
	var got domain.ExportFilter

	req := httptest.NewRequest(http.MethodGet, "/trips/export", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(exportDeps(&got)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, got.From)
	assert.Nil(t, got.To)

	var resp gen.TripExport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Trips, 2)
	assert.Equal(t, 12.78, resp.TotalMiles)
	assert.Equal(t, 5.76, resp.TotalReimbursement)
	assert.Equal(t, 0.45, resp.RatePerMile)
	assert.Equal(t, "£", resp.Currency)
	assert.Nil(t, resp.From)
}

func TestExportTrips_DateRangePassedThrough(t *testing.T) {
	var got domain.ExportFilter

	req := httptest.NewRequest(http.MethodGet, "/trips/export?from=2025-03-01&to=2025-03-31", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(exportDeps(&got)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.From)
	require.NotNil(t, got.To)
	assert.Equal(t, "2025-03-01", got.From.Format(time.DateOnly))
	assert.Equal(t, "2025-03-31", got.To.Format(time.DateOnly))
	assert.Contains(t, rec.Body.String(), `"from":"2025-03-01"`)
}

func TestExportTrips_CSV(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/trips/export?format=csv", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(exportDeps(nil)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="mileage-20250312.csv"`, rec.Header().Get("Content-Disposition"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3, "header plus one line per trip")
	assert.True(t, strings.HasPrefix(lines[0], "trip_id,"))
}

func TestExportTrips_PDF(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/trips/export?format=pdf", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(exportDeps(nil)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))
}

func TestExportTrips_422(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"unknown format", "format=xlsx"},
		{"bad from", "from=yesterday"},
		{"bad to", "to=2025-13-45"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			deps := handler.Deps{History: &mockHistory{
				export: func(context.Context, string, domain.ExportFilter) (domain.Export, error) {
					called = true
					return domain.Export{}, nil
				},
			}}

			req := httptest.NewRequest(http.MethodGet, "/trips/export?"+tc.query, nil)
			rec := httptest.NewRecorder()
			newHTTPHandler(deps).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.False(t, called)
		})
	}
}

func TestExportTrips_InvertedRangeFromService(t *testing.T) {
	deps := handler.Deps{History: &mockHistory{
		export: func(context.Context, string, domain.ExportFilter) (domain.Export, error) {
			return domain.Export{}, fmt.Errorf("service.HistoryService.Export: %w: 'to' is before 'from'", domain.ErrValidation)
		},
	}}

	req := httptest.NewRequest(http.MethodGet, "/trips/export?from=2025-04-01&to=2025-03-01", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(deps).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "'to' is before 'from'", decodeError(t, rec.Body).Error.Message)
}
