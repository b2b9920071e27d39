package certificate

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf/v2"
)

// Render writes the certificate described by claims as a one page
// landscape PDF.
func Render(w io.Writer, claims Claims) error {
	const (
		pageW  = 297.0
		pageH  = 210.0
		margin = 12.0
	)

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	// Double green frame.
	pdf.SetDrawColor(22, 110, 70)
	pdf.SetLineWidth(2)
	pdf.Rect(margin, margin, pageW-2*margin, pageH-2*margin, "D")
	pdf.SetLineWidth(0.5)
	pdf.Rect(margin+4, margin+4, pageW-2*margin-8, pageH-2*margin-8, "D")

	pdf.SetTextColor(22, 110, 70)
	pdf.SetFont("Helvetica", "B", 34)
	pdf.SetXY(margin, 40)
	pdf.CellFormat(pageW-2*margin, 16, "Certificate of Completion", "", 1, "C", false, 0, "")

	pdf.SetTextColor(40, 40, 40)
	pdf.SetFont("Helvetica", "", 16)
	pdf.SetX(margin)
	pdf.CellFormat(pageW-2*margin, 12, claims.Hunt, "", 1, "C", false, 0, "")

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 13)
	lines := []string{
		fmt.Sprintf("Finish time: %s", claims.FinishTime),
		fmt.Sprintf("Locations completed: %d", claims.Locations),
		fmt.Sprintf("Tokens earned: %d", claims.Tokens),
		fmt.Sprintf("Hints used: %d", claims.HintsUsed),
	}
	for _, l := range lines {
		pdf.SetX(margin)
		pdf.CellFormat(pageW-2*margin, 9, l, "", 1, "C", false, 0, "")
	}

	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(110, 110, 110)
	pdf.SetXY(margin, pageH-margin-16)
	issued := ""
	if claims.IssuedAt != nil {
		issued = claims.IssuedAt.UTC().Format("2 January 2006")
	}
	pdf.CellFormat(pageW-2*margin, 6, fmt.Sprintf("Certificate %s  issued %s", claims.ID, issued), "", 1, "C", false, 0, "")

	return pdf.Output(w)
}
