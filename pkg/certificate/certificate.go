package certificate

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
)

const DefaultTerms = "Standard equity terms apply as per platform regulations."

type StakeCertificate struct {
	Number          string
	IssuedAt        time.Time
	InvestorName    string
	InvestorEmail   string
	Currency        string
	Amount          float64
	ProjectTitle    string
	ProjectSummary  string
	Valuation       float64
	StakePercentage float64
	Terms           string
}

// StakePercentage is amount / goal * 100; a non-positive goal yields 0.
func StakePercentage(amount, goal float64) float64 {
	if goal <= 0 {
		return 0
	}
	return amount / goal * 100
}

// Number builds SC-{project}-{user}-{6 upper hex}.
func Number(projectID, userID uuid.UUID) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("SC-%s-%s-%s", projectID, userID, suffix)
}

// FileName builds stake_certificate_{project}_{user}_{8 hex}.pdf.
func FileName(projectID, userID uuid.UUID) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("stake_certificate_%s_%s_%s.pdf", projectID, userID, suffix)
}

func (c StakeCertificate) FormattedStake() string {
	return fmt.Sprintf("%.2f%%", c.StakePercentage)
}

func (c StakeCertificate) terms() string {
	if strings.TrimSpace(c.Terms) == "" {
		return DefaultTerms
	}
	return c.Terms
}

// Render produces a single-page A4 PDF.
func Render(c StakeCertificate) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Equity Stake Certificate "+c.Number, true)
	pdf.SetCreator("SparkVest Platform", true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetDrawColor(61, 91, 169)
	pdf.SetLineWidth(1.2)
	pdf.Rect(10, 10, 190, 277, "D")

	pdf.SetY(25)
	pdf.SetTextColor(61, 91, 169)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 12, "EQUITY STAKE CERTIFICATE", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 13)
	pdf.CellFormat(0, 8, "SparkVest Platform", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Certificate No: "+c.Number, "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, "Issue Date: "+c.IssuedAt.Format("02 January 2006"), "", 1, "R", false, 0, "")
	pdf.Ln(6)

	rows := [][2]string{
		{"Investor", tr(c.InvestorName)},
		{"Email", tr(c.InvestorEmail)},
		{"Investment Amount", fmt.Sprintf("%s %.2f", c.Currency, c.Amount)},
		{"Project", tr(c.ProjectTitle)},
		{"Project Summary", tr(c.ProjectSummary)},
		{"Valuation", fmt.Sprintf("%s %.2f", c.Currency, c.Valuation)},
		{"Equity Stake", c.FormattedStake()},
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(50, 8, row[0]+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 8, row[1], "", "L", false)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Terms and Conditions", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 6, tr(c.terms()), "", "L", false)

	pdf.Ln(12)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.MultiCell(0, 5, "This certificate is issued electronically by SparkVest Platform and is valid without a signature.", "", "C", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
