package domain

import "time"

// ExportFilter restricts an export to trips whose start time falls within
// [From, To]. Nil bounds are open.
type ExportFilter struct {
	From *time.Time
	To   *time.Time
}

// Includes reports whether t starts within the filter range. To is inclusive
// of the whole day it names.
func (f ExportFilter) Includes(t Trip) bool {
	if f.From != nil && t.StartTime.Before(*f.From) {
		return false
	}
	if f.To != nil && !t.StartTime.Before(f.To.AddDate(0, 0, 1)) {
		return false
	}
	return true
}

// Export is the caller's trip history in a date range together with totals.
type Export struct {
	UserID             string
	Trips              []Trip
	TotalMiles         float64
	TotalReimbursement float64
	Rate               Rate
	GeneratedAt        time.Time
}
