package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/mileage-tracker/internal/domain"
	"github.com/pkordes/mileage-tracker/internal/handler/gen"
	"github.com/pkordes/mileage-tracker/internal/report"
)

// ExportTrips handles GET /trips/export.
// ?format= selects json (default), csv or pdf; ?from= and ?to= (YYYY-MM-DD)
// bound the start date, both inclusive.
func (s *Server) ExportTrips(ctx context.Context, req gen.ExportTripsRequestObject) (gen.ExportTripsResponseObject, error) {
	format := gen.Json
	if req.Params.Format != nil {
		format = *req.Params.Format
	}
	switch format {
	case gen.Json, gen.Csv, gen.Pdf:
	default:
		return gen.ExportTrips422JSONResponse(requestBody("format must be one of json, csv, pdf")), nil
	}

	userID, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}

	var filter domain.ExportFilter
	if req.Params.From != nil {
		filter.From = &req.Params.From.Time
	}
	if req.Params.To != nil {
		filter.To = &req.Params.To.Time
	}

	exp, err := s.history.Export(ctx, userID, filter)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return gen.ExportTrips422JSONResponse(validationBody(err)), nil
		}
		return nil, err
	}

	switch format {
	case gen.Csv:
		var buf bytes.Buffer
		if err := report.WriteCSV(&buf, exp); err != nil {
			return nil, err
		}
		return attachment{
			filename: report.Filename(exp, "csv"),
			body:     gen.ExportTrips200TextcsvResponse{Body: &buf, ContentLength: int64(buf.Len())},
		}, nil
	case gen.Pdf:
		out, err := report.ClaimPDF(exp)
		if err != nil {
			return nil, err
		}
		return attachment{
			filename: report.Filename(exp, "pdf"),
			body:     gen.ExportTrips200ApplicationpdfResponse{Body: bytes.NewReader(out), ContentLength: int64(len(out))},
		}, nil
	}
	return gen.ExportTrips200JSONResponse(s.exportToResponse(exp, req.Params.From, req.Params.To)), nil
}

// attachment names the file a CSV or PDF export is saved as.
type attachment struct {
	filename string
	body     gen.ExportTripsResponseObject
}

func (a attachment) VisitExportTripsResponse(w http.ResponseWriter) error {
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, a.filename))
	return a.body.VisitExportTripsResponse(w)
}

func (s *Server) exportToResponse(exp domain.Export, from, to *openapi_types.Date) gen.TripExport {
	trips := make([]gen.Trip, len(exp.Trips))
	for i, t := range exp.Trips {
		trips[i] = s.tripToResponse(t)
	}
	return gen.TripExport{
		From:               from,
		To:                 to,
		Trips:              trips,
		TotalMiles:         exp.TotalMiles,
		TotalReimbursement: exp.TotalReimbursement,
		RatePerMile:        exp.Rate.PerMile,
		Currency:           exp.Rate.CurrencySymbol,
		GeneratedAt:        exp.GeneratedAt,
	}
}
