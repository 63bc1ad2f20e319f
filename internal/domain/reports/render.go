// Package reports renders scorecards and team roll-ups as PDF documents.
package reports

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"kpiboard/internal/domain/scorecard"
)

const noDataLabel = "no reviews recorded"

// FormatScore renders a percentage. A no-data zero is labelled so it never
// reads like an all-failed 0%.
func FormatScore(percentage int, noData bool) string {
	if noData {
		return fmt.Sprintf("%d%% (%s)", percentage, noDataLabel)
	}
	return fmt.Sprintf("%d%%", percentage)
}

func statusLabel(status scorecard.LineStatus) string {
	switch status {
	case scorecard.StatusMet:
		return "Met"
	case scorecard.StatusNotMet:
		return "Not met"
	case scorecard.StatusRemoved:
		return "Removed (not counted)"
	case scorecard.StatusUnknown:
		return "Unknown KPI (not counted)"
	default:
		return "Not reviewed"
	}
}

func newDocument(title string) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("kpiboard", true)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	return pdf
}

func periodLine(pdf *gofpdf.Fpdf, period string, start, end time.Time) {
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s (%s to %s)", period, start.Format("2006-01-02"), end.AddDate(0, 0, -1).Format("2006-01-02")))
	pdf.Ln(7)
}

func tableHeader(pdf *gofpdf.Fpdf, widths []float64, titles ...string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	for i, title := range titles {
		pdf.CellFormat(widths[i], 8, title, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 11)
}

// RenderScorecard writes one subject's period scorecard to w.
func RenderScorecard(w io.Writer, card scorecard.Scorecard) error {
	pdf := newDocument("KPI Scorecard")
	pdf.Cell(0, 8, fmt.Sprintf("Name: %s", card.SubjectName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Role: %s", card.Role))
	pdf.Ln(7)
	periodLine(pdf, card.Period.String(), card.Start, card.End)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Score: %s", FormatScore(card.Percentage, card.NoData)))
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Weight earned: %d of %d", card.EarnedWeight, card.TotalWeight))
	pdf.Ln(12)

	widths := []float64{100, 25, 55}
	tableHeader(pdf, widths, "KPI", "Weight", "Outcome")
	for _, line := range card.Lines {
		name := line.Name
		if name == "" {
			name = line.KPIID
		}
		pdf.CellFormat(widths[0], 7, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, fmt.Sprintf("%d", line.Weight), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, statusLabel(line.Status), "1", 1, "L", false, 0, "")
	}

	return pdf.Output(w)
}

// RenderTeam writes a director's team roll-up to w.
func RenderTeam(w io.Writer, team scorecard.TeamView, start, end time.Time) error {
	pdf := newDocument("Team KPI Roll-up")
	pdf.Cell(0, 8, fmt.Sprintf("Director: %s", team.DirectorName))
	pdf.Ln(7)
	periodLine(pdf, team.Period.String(), start, end)
	pdf.SetFont("Helvetica", "B", 12)
	if team.Rollup.NoAssignees() {
		pdf.Cell(0, 8, "Team score: 0% (no clinicians assigned)")
	} else {
		pdf.Cell(0, 8, fmt.Sprintf("Team score: %s", FormatScore(team.Rollup.Score, team.Rollup.Reported == 0)))
	}
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Clinicians reporting: %d of %d", team.Rollup.Reported, team.Rollup.Assigned))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Director's own score: %s", FormatScore(team.DirectorScore.Score, team.DirectorScore.NoData)))
	pdf.Ln(12)

	widths := []float64{120, 60}
	tableHeader(pdf, widths, "Clinician", "Score")
	for _, member := range team.Members {
		pdf.CellFormat(widths[0], 7, member.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, FormatScore(member.Score, member.NoData), "1", 1, "L", false, 0, "")
	}

	return pdf.Output(w)
}
