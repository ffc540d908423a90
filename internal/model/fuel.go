package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// FuelStockID is the primary key of the only fuel_stock row.
const FuelStockID = 1

// DayLayout formats calendar days as stored in daily_fuel_reports.report_day.
const DayLayout = "2006-01-02"

// FuelStock is the singleton running balance of the depot tank.
//
// TotalQuantity is authoritative: it is updated in the same transaction as
// every replenishment and dispensing and never recomputed from history.
// Version increases on every write and guards the row against lost updates.
type FuelStock struct {
	TotalQuantity  decimal.Decimal `json:"total_quantity"`
	AlertThreshold decimal.Decimal `json:"alert_threshold"`
	Version        uint64          `json:"version"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// BelowThreshold reports whether the balance has dropped under the alert level.
func (s FuelStock) BelowThreshold() bool {
	return s.TotalQuantity.LessThan(s.AlertThreshold)
}

// Replenishment records fuel delivered into the depot tank. Rows are
// immutable once written.
type Replenishment struct {
	ID          uint64          `json:"id"`
	SubmittedBy uint64          `json:"submitted_by"`
	Quantity    decimal.Decimal `json:"quantity"`
	SuppliedOn  time.Time       `json:"supplied_on"`
	Notes       *string         `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// FuelDispensing records fuel taken from the depot tank into a vehicle.
type FuelDispensing struct {
	ID          uint64          `json:"id"`
	Vehicle     VehicleRef      `json:"vehicle"`
	PersonnelID uint64          `json:"personnel_id"`
	SubmittedBy uint64          `json:"submitted_by"`
	Quantity    decimal.Decimal `json:"quantity"`
	DispensedOn time.Time       `json:"dispensed_on"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ImageMetadata is what the report photo's EXIF block tells about when and
// where it was taken.
type ImageMetadata struct {
	CapturedAt  time.Time `json:"captured_at"`
	CameraMake  *string   `json:"camera_make,omitempty"`
	CameraModel *string   `json:"camera_model,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
}

// DailyFuelReport is a chauffeur's observation of the fuel left in a vehicle,
// backed by a photo of the gauge. At most one exists per user and calendar
// day. Reports do not move the depot balance.
type DailyFuelReport struct {
	ID                uint64          `json:"id"`
	SubmittedBy       uint64          `json:"submitted_by"`
	Vehicle           VehicleRef      `json:"vehicle"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	ReportDay         string          `json:"report_day"`
	ImageRef          string          `json:"image_ref"`
	Image             ImageMetadata   `json:"image"`
	CreatedAt         time.Time       `json:"created_at"`
}

// CalendarDay returns the server-local calendar day of t in DayLayout.
func CalendarDay(t time.Time) string {
	return t.Local().Format(DayLayout)
}
