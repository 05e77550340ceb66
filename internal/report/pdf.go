package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/khanhnv2901/cipher-sentinel/internal/checker"
)

// Meta describes the context a printable report was produced in.
type Meta struct {
	Title         string
	GeneratedAt   time.Time
	PolicySource  string
	MinTLSVersion string
	MinRSABits    int
}

func (m Meta) title() string {
	if m.Title == "" {
		return "TLS Posture Report"
	}
	return m.Title
}

// WritePDF renders the view as a printable posture summary.
func WritePDF(w io.Writer, view View, meta Meta) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	// Title
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(meta.title()), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Metadata
	pdf.SetFont("Arial", "", 10)
	if !meta.GeneratedAt.IsZero() {
		pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", meta.GeneratedAt.Format(time.RFC3339)), "", 1, "", false, 0, "")
	}
	if meta.PolicySource != "" {
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("Policy: %s", meta.PolicySource)), "", 1, "", false, 0, "")
	}
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Minimum protocol: %s | Minimum RSA key: %d bits", meta.MinTLSVersion, meta.MinRSABits)), "", 1, "", false, 0, "")
	pdf.Ln(5)

	// Summary
	s := view.Summary()
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Summary", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Hosts: %d | Critical: %d | Warning: %d | Info: %d",
		s.Total, s.Critical, s.Warning, s.Info), "", 1, "", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Hosts", "", 1, "", false, 0, "")
	pdf.Ln(2)

	if len(view.Rows) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 6, "No evaluated hosts.", "", 1, "", false, 0, "")
	}

	for _, r := range view.Rows {
		if pdf.GetY() > 250 {
			pdf.AddPage()
		}

		red, green, blue := severityFill(r.Severity)
		pdf.SetFont("Arial", "B", 11)
		pdf.SetFillColor(red, green, blue)
		pdf.CellFormat(0, 7, tr(fmt.Sprintf("%s - %s", r.Host, r.Severity.Label())), "", 1, "", true, 0, "")
		pdf.Ln(1)

		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("TLS: %s | Cipher: %s | Key exchange: %s", r.Protocol, r.Cipher, r.KeyExchange)), "", 1, "", false, 0, "")
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("Issuer: %s", r.Issuer)), "", 1, "", false, 0, "")
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("Valid: %s to %s (expires in %s) | RSA: %s", r.ValidFrom, r.ValidTo, r.ExpiresIn, r.RSA)), "", 1, "", false, 0, "")

		pdf.SetFont("Arial", "", 8)
		pdf.MultiCell(0, 4, tr(fmt.Sprintf("Headers: %s", r.Headers)), "", "", false)

		if r.Alerts != "" {
			pdf.SetFont("Arial", "I", 8)
			for _, alert := range strings.Split(r.Alerts, "; ") {
				if pdf.GetY() > 270 {
					pdf.AddPage()
				}
				pdf.MultiCell(0, 4, tr(fmt.Sprintf("  - %s", alert)), "", "", false)
			}
		}

		pdf.Ln(3)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to generate PDF: %w", err)
	}
	return nil
}

func severityFill(sev checker.Severity) (int, int, int) {
	switch sev {
	case checker.SeverityCritical:
		return 248, 215, 218
	case checker.SeverityWarning:
		return 255, 243, 205
	default:
		return 240, 240, 240
	}
}
