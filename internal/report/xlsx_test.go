package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/fleet-management/internal/model"
	"github.com/iliyamo/fleet-management/internal/report"
)

func TestWriteLedger(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	notes := "tanker #4"
	l := report.Ledger{
		Stock:       model.FuelStock{TotalQuantity: decimal.RequireFromString("4900"), AlertThreshold: decimal.NewFromInt(500)},
		Replenished: "200",
		Dispensed:   "300",
		Replenishments: []model.Replenishment{
			{ID: 1, SubmittedBy: 1, Quantity: decimal.NewFromInt(200), SuppliedOn: day, Notes: &notes},
		},
		Dispensings: []model.FuelDispensing{
			{ID: 1, Vehicle: model.TruckRef(3), PersonnelID: 4, SubmittedBy: 1, Quantity: decimal.NewFromInt(300), DispensedOn: day},
		},
		DailyReports: []model.DailyFuelReport{
			{ID: 1, SubmittedBy: 4, Vehicle: model.EquipmentRef(2), RemainingQuantity: decimal.RequireFromString("18.25"), ReportDay: "2024-06-10", ImageRef: "abc.jpg", Image: model.ImageMetadata{CapturedAt: day}},
		},
		GeneratedAt: day,
	}

	var buf bytes.Buffer
	require.NoError(t, report.WriteLedger(&buf, l))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Replenishments", "Dispensings", "Daily reports"}, f.GetSheetList())

	balance, err := f.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "4900", balance)

	rows, err := f.GetRows("Replenishments")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "2024-06-10", "200", "1", "tanker #4"}, rows[1])

	rows, err = f.GetRows("Dispensings")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "truck", rows[1][2])

	rows, err = f.GetRows("Daily reports")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "equipment", rows[1][3])
	assert.Equal(t, "18.25", rows[1][5])
}

func TestWriteLedger_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteLedger(&buf, report.Ledger{GeneratedAt: time.Now()}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Dispensings")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
