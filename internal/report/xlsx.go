// Package report renders the fuel ledger as an xlsx workbook.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/fleet-management/internal/model"
)

// ContentType is the media type of the workbook WriteLedger produces.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	sheetSummary        = "Summary"
	sheetReplenishments = "Replenishments"
	sheetDispensings    = "Dispensings"
	sheetDailyReports   = "Daily reports"
)

// Ledger is the data exported in one workbook.
type Ledger struct {
	Stock          model.FuelStock
	Replenished    string
	Dispensed      string
	Replenishments []model.Replenishment
	Dispensings    []model.FuelDispensing
	DailyReports   []model.DailyFuelReport
	GeneratedAt    time.Time
}

// WriteLedger writes the workbook to w: a summary sheet followed by one
// sheet per ledger table.
func WriteLedger(w io.Writer, l Ledger) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return err
	}
	summary := [][]interface{}{
		{"Generated", l.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Balance", l.Stock.TotalQuantity.String()},
		{"Alert threshold", l.Stock.AlertThreshold.String()},
		{"Total replenished", l.Replenished},
		{"Total dispensed", l.Dispensed},
	}
	for i, row := range summary {
		if err := f.SetSheetRow(sheetSummary, cell(1, i+1), &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheetSummary, "A", "B", 22); err != nil {
		return err
	}

	rows := make([][]interface{}, 0, len(l.Replenishments))
	for _, r := range l.Replenishments {
		rows = append(rows, []interface{}{r.ID, r.SuppliedOn.Format(model.DayLayout), r.Quantity.String(), r.SubmittedBy, deref(r.Notes)})
	}
	if err := writeTable(f, sheetReplenishments, header,
		[]interface{}{"ID", "Supplied on", "Quantity", "Submitted by", "Notes"}, rows); err != nil {
		return err
	}

	rows = make([][]interface{}, 0, len(l.Dispensings))
	for _, d := range l.Dispensings {
		rows = append(rows, []interface{}{d.ID, d.DispensedOn.Format(model.DayLayout), string(d.Vehicle.Kind()), d.Vehicle.ID(), d.Quantity.String(), d.PersonnelID, d.SubmittedBy})
	}
	if err := writeTable(f, sheetDispensings, header,
		[]interface{}{"ID", "Dispensed on", "Vehicle type", "Vehicle ID", "Quantity", "Personnel", "Submitted by"}, rows); err != nil {
		return err
	}

	rows = make([][]interface{}, 0, len(l.DailyReports))
	for _, d := range l.DailyReports {
		rows = append(rows, []interface{}{d.ID, d.ReportDay, d.SubmittedBy, string(d.Vehicle.Kind()), d.Vehicle.ID(), d.RemainingQuantity.String(), d.Image.CapturedAt.Format("2006-01-02 15:04:05"), d.ImageRef})
	}
	if err := writeTable(f, sheetDailyReports, header,
		[]interface{}{"ID", "Day", "Submitted by", "Vehicle type", "Vehicle ID", "Remaining", "Photo taken", "Image"}, rows); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeTable(f *excelize.File, sheet string, style int, header []interface{}, rows [][]interface{}) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last := cell(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	for i := range rows {
		if err := f.SetSheetRow(sheet, cell(1, i+2), &rows[i]); err != nil {
			return err
		}
	}
	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 16)
}

func cell(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		panic(fmt.Sprintf("report: bad cell %d,%d", col, row))
	}
	return name
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
