// Package report renders trip exports as CSV files and PDF reimbursement
// claims.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pkordes/mileage-tracker/internal/domain"
)

// CSVHeader is the first row of every CSV export.
var CSVHeader = []string{
	"trip_id", "start_time", "end_time",
	"start_address", "end_address",
	"distance_miles", "reimbursement",
}

// WriteCSV writes one row per trip, in the order given, after CSVHeader.
func WriteCSV(w io.Writer, exp domain.Export) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("report.WriteCSV: %w", err)
	}
	for _, t := range exp.Trips {
		row := []string{
			t.ID.String(),
			t.StartTime.UTC().Format(time.RFC3339),
			t.EndTime.UTC().Format(time.RFC3339),
			deref(t.StartAddress),
			deref(t.EndAddress),
			strconv.FormatFloat(t.DistanceMiles, 'f', 2, 64),
			strconv.FormatFloat(t.ReimbursementAmount, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report.WriteCSV: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("report.WriteCSV: %w", err)
	}
	return nil
}

// Filename returns the download name for an export in the given extension.
func Filename(exp domain.Export, ext string) string {
	return fmt.Sprintf("mileage-%s.%s", exp.GeneratedAt.UTC().Format("20060102"), ext)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
