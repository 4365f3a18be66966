package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"energyboard/internal/table"
)

const (
	summarySheet = "summary"
	dailySheet   = "daily"
	dataSheet    = "data"
)

// BuildXLSX renders the report as a workbook with summary, daily and data sheets
func BuildXLSX(r Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(dailySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(dataSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", r.Title)
	_ = f.SetCellValue(summarySheet, "A2", "Generated")
	_ = f.SetCellValue(summarySheet, "B2", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	for i, line := range Summary(r.Bundle) {
		row := i + 4
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), line.Label)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), line.Value)
	}

	_ = f.SetCellValue(dailySheet, "A1", "Day")
	_ = f.SetCellValue(dailySheet, "B1", "Solar (kWh)")
	_ = f.SetCellValue(dailySheet, "C1", "Consumption (kWh)")
	_ = f.SetCellValue(dailySheet, "D1", "Fuel (L)")
	for i, d := range r.Daily {
		row := i + 2
		_ = f.SetCellValue(dailySheet, fmt.Sprintf("A%d", row), table.DayKey(d.Day))
		_ = f.SetCellValue(dailySheet, fmt.Sprintf("B%d", row), d.SolarKWh)
		_ = f.SetCellValue(dailySheet, fmt.Sprintf("C%d", row), d.ConsumptionKWh)
		_ = f.SetCellValue(dailySheet, fmt.Sprintf("D%d", row), d.FuelLiters)
	}

	if err := writeTable(f, r.Table); err != nil {
		return nil, fmt.Errorf("writing data sheet: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeTable writes the timeline with one column per field; missing cells stay blank
func writeTable(f *excelize.File, t *table.WideTable) error {
	header := []interface{}{"timestamp"}
	if t != nil {
		for _, name := range t.Columns {
			header = append(header, name)
		}
	}
	if err := f.SetSheetRow(dataSheet, "A1", &header); err != nil {
		return err
	}

	for i := 0; i < t.Len(); i++ {
		row := make([]interface{}, 0, len(t.Columns)+1)
		row = append(row, t.Index[i].Format("2006-01-02 15:04:05"))
		for _, name := range t.Columns {
			v := t.Values[name][i]
			if table.IsMissing(v) {
				row = append(row, nil)
				continue
			}
			row = append(row, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(dataSheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
