package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"energyboard/internal/table"
)

// BuildPDF renders the KPI summary and the daily breakdown on A4
func BuildPDF(r Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, r.Title)
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", r.GeneratedAt.Format("2006-01-02 15:04")))
	pdf.Ln(8)

	for _, line := range Summary(r.Bundle) {
		pdf.CellFormat(60, 6, line.Label, "", 0, "L", false, 0, "")
		pdf.CellFormat(80, 6, line.Value, "", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	if len(r.Daily) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(35, 6, "Day", "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, "Solar (kWh)", "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 6, "Consumption (kWh)", "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, "Fuel (L)", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
		for _, d := range r.Daily {
			pdf.CellFormat(35, 6, table.DayKey(d.Day), "1", 0, "C", false, 0, "")
			pdf.CellFormat(45, 6, fmt.Sprintf("%.1f", d.SolarKWh), "1", 0, "R", false, 0, "")
			pdf.CellFormat(50, 6, fmt.Sprintf("%.1f", d.ConsumptionKWh), "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 6, fmt.Sprintf("%.1f", d.FuelLiters), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
