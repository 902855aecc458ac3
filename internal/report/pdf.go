package report

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"

	"github.com/pkordes/mileage-tracker/internal/domain"
)

// Column widths in mm; they add up to the printable width of A4 portrait.
var claimColumns = []struct {
	title string
	width float64
	align string
}{
	{"Date", 28, "L"},
	{"From", 56, "L"},
	{"To", 56, "L"},
	{"Miles", 22, "R"},
	{"Amount", 28, "R"},
}

const maxAddressRunes = 32

// FormatMoney renders amount with the currency symbol in front, e.g. "£0.13".
func FormatMoney(symbol string, amount float64) string {
	return fmt.Sprintf("%s%.2f", symbol, amount)
}

// ClaimPDF renders exp as a mileage reimbursement claim: one line per trip
// followed by the totals.
func ClaimPDF(exp domain.Export) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Mileage reimbursement claim", false)
	pdf.SetMargins(10, 12, 10)
	pdf.AddPage()

	// Core fonts are cp1252; the translator maps symbols such as £ and €.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Mileage Reimbursement Claim")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, "Generated: "+exp.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"))
	pdf.Ln(6)
	pdf.Cell(0, 6, tr("Rate: "+FormatMoney(exp.Rate.CurrencySymbol, exp.Rate.PerMile)+" per mile"))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range claimColumns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, t := range exp.Trips {
		cells := []string{
			t.StartTime.UTC().Format("2006-01-02"),
			truncate(deref(t.StartAddress), maxAddressRunes),
			truncate(deref(t.EndAddress), maxAddressRunes),
			fmt.Sprintf("%.2f", t.DistanceMiles),
			FormatMoney(exp.Rate.CurrencySymbol, t.ReimbursementAmount),
		}
		for i, c := range claimColumns {
			pdf.CellFormat(c.width, 6, tr(cells[i]), "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(exp.Trips) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 6, "No trips in this period.", "1", 1, "C", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, fmt.Sprintf("Total distance: %.2f miles", exp.TotalMiles))
	pdf.Ln(7)
	pdf.Cell(0, 7, tr("Total reimbursement: "+FormatMoney(exp.Rate.CurrencySymbol, exp.TotalReimbursement)))
	pdf.Ln(7)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("report.ClaimPDF: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
