package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/fleet-management/internal/database"
	"github.com/iliyamo/fleet-management/internal/model"
	"github.com/iliyamo/fleet-management/internal/repository"
)

// quantityPlaces is the number of fractional digits stored for fuel
// quantities.
const quantityPlaces = 3

// Ledger maintains the depot fuel balance and its history.
//
// The balance in fuel_stock is authoritative. Every change to it locks the
// row, validates against the locked value and writes the new value with a
// version compare-and-swap, all in the transaction that appends the
// matching history row.
type Ledger struct {
	db               *sql.DB
	fuel             *repository.FuelRepo
	reports          *repository.DailyReportRepo
	users            *repository.UserRepo
	vehicles         *repository.VehicleRepo
	guard            *DailyReportGuard
	defaultThreshold decimal.Decimal
	now              func() time.Time
}

// NewLedger returns a Ledger over db. defaultThreshold is the alert
// threshold given to the stock row when it is first created.
func NewLedger(db *sql.DB, d database.Dialect, defaultThreshold decimal.Decimal) *Ledger {
	users := repository.NewUserRepo(db, d)
	reports := repository.NewDailyReportRepo(db)
	return &Ledger{
		db:               db,
		fuel:             repository.NewFuelRepo(db, d),
		reports:          reports,
		users:            users,
		vehicles:         repository.NewVehicleRepo(db, d),
		guard:            &DailyReportGuard{users: users, reports: reports},
		defaultThreshold: defaultThreshold,
		now:              time.Now,
	}
}

// Guard returns the daily report guard used by RecordDailyReport.
func (l *Ledger) Guard() *DailyReportGuard { return l.guard }

// ReplenishInput describes fuel delivered into the depot.
type ReplenishInput struct {
	SubmittedBy uint64
	Quantity    decimal.Decimal
	Date        time.Time
	Notes       *string
}

// ConsumeInput describes fuel dispensed into a vehicle.
type ConsumeInput struct {
	Vehicle     model.VehicleRef
	PersonnelID uint64
	SubmittedBy uint64
	Quantity    decimal.Decimal
	Date        time.Time
}

// DailyReportInput is a validated daily remaining-fuel report.
type DailyReportInput struct {
	UserID    uint64
	Vehicle   model.VehicleRef
	Remaining decimal.Decimal
	Date      time.Time
	ImageRef  string
	Image     model.ImageMetadata
}

func positiveQuantity(q decimal.Decimal) (decimal.Decimal, error) {
	q = q.Round(quantityPlaces)
	if !q.IsPositive() {
		return q, validationf("quantity must be greater than zero")
	}
	return q, nil
}

// Replenish records a delivery and adds its quantity to the balance. The
// stock row is created on first use.
func (l *Ledger) Replenish(ctx context.Context, in ReplenishInput) (*model.Replenishment, error) {
	rep, _, err := l.replenish(ctx, in)
	return rep, err
}

func (l *Ledger) replenish(ctx context.Context, in ReplenishInput) (*model.Replenishment, model.FuelStock, error) {
	qty, err := positiveQuantity(in.Quantity)
	if err != nil {
		return nil, model.FuelStock{}, err
	}
	if in.Notes != nil {
		notes := strings.TrimSpace(*in.Notes)
		in.Notes = &notes
		if notes == "" {
			in.Notes = nil
		}
	}

	now := l.now().UTC()
	rep := &model.Replenishment{
		SubmittedBy: in.SubmittedBy,
		Quantity:    qty,
		SuppliedOn:  dayOrToday(in.Date, now),
		Notes:       in.Notes,
		CreatedAt:   now,
	}
	var after model.FuelStock
	err = inTx(ctx, l.db, func(tx *sql.Tx) error {
		stock, err := l.lockStock(ctx, tx, now)
		if err != nil {
			return err
		}
		if err := l.requireUser(ctx, tx, in.SubmittedBy); err != nil {
			return err
		}
		if err := l.fuel.CreateReplenishmentTx(ctx, tx, rep); err != nil {
			return err
		}
		after = stock
		after.TotalQuantity = stock.TotalQuantity.Add(qty)
		after.Version++
		after.UpdatedAt = now
		return l.fuel.UpdateStockTx(ctx, tx, after.TotalQuantity, stock.Version, now)
	})
	if err != nil {
		return nil, model.FuelStock{}, err
	}
	return rep, after, nil
}

// Consume dispenses fuel into a vehicle. It fails with an
// *InsufficientStockError, leaving the balance untouched, when the
// requested quantity exceeds the balance.
func (l *Ledger) Consume(ctx context.Context, in ConsumeInput) (*model.FuelDispensing, error) {
	d, _, err := l.consume(ctx, in)
	return d, err
}

func (l *Ledger) consume(ctx context.Context, in ConsumeInput) (*model.FuelDispensing, model.FuelStock, error) {
	qty, err := positiveQuantity(in.Quantity)
	if err != nil {
		return nil, model.FuelStock{}, err
	}
	if in.Vehicle.IsZero() {
		return nil, model.FuelStock{}, validationf("%s", model.ErrVehicleRequired)
	}
	if in.PersonnelID == 0 {
		return nil, model.FuelStock{}, validationf("personnel_id is required")
	}

	now := l.now().UTC()
	d := &model.FuelDispensing{
		Vehicle:     in.Vehicle,
		PersonnelID: in.PersonnelID,
		SubmittedBy: in.SubmittedBy,
		Quantity:    qty,
		DispensedOn: dayOrToday(in.Date, now),
		CreatedAt:   now,
	}
	var after model.FuelStock
	err = inTx(ctx, l.db, func(tx *sql.Tx) error {
		stock, err := l.lockStock(ctx, tx, now)
		if err != nil {
			return err
		}
		if err := l.requireUser(ctx, tx, in.PersonnelID); err != nil {
			return err
		}
		if err := l.requireUser(ctx, tx, in.SubmittedBy); err != nil {
			return err
		}
		if err := l.lockVehicle(ctx, tx, in.Vehicle); err != nil {
			return err
		}
		if qty.GreaterThan(stock.TotalQuantity) {
			return &InsufficientStockError{Requested: qty, Available: stock.TotalQuantity}
		}
		if err := l.fuel.CreateDispensingTx(ctx, tx, d); err != nil {
			return err
		}
		after = stock
		after.TotalQuantity = stock.TotalQuantity.Sub(qty)
		after.Version++
		after.UpdatedAt = now
		return l.fuel.UpdateStockTx(ctx, tx, after.TotalQuantity, stock.Version, now)
	})
	if err != nil {
		return nil, model.FuelStock{}, err
	}
	return d, after, nil
}

// RecordDailyReport stores a remaining-fuel observation. The balance is not
// touched. A second report by the same user on the same calendar day fails
// with a conflict.
func (l *Ledger) RecordDailyReport(ctx context.Context, in DailyReportInput) (*model.DailyFuelReport, error) {
	remaining := in.Remaining.Round(quantityPlaces)
	if remaining.IsNegative() {
		return nil, validationf("remaining_quantity must not be negative")
	}
	if in.Vehicle.IsZero() {
		return nil, validationf("%s", model.ErrVehicleRequired)
	}
	if strings.TrimSpace(in.ImageRef) == "" {
		return nil, validationf("an image is required")
	}
	if in.Image.CapturedAt.IsZero() {
		return nil, validationf("the image carries no capture time")
	}

	now := l.now().UTC()
	date := in.Date
	if date.IsZero() {
		date = now
	}
	rep := &model.DailyFuelReport{
		SubmittedBy:       in.UserID,
		Vehicle:           in.Vehicle,
		RemainingQuantity: remaining,
		ReportDay:         model.CalendarDay(date),
		ImageRef:          in.ImageRef,
		Image:             in.Image,
		CreatedAt:         now,
	}
	err := inTx(ctx, l.db, func(tx *sql.Tx) error {
		free, err := l.guard.CheckAndReserve(ctx, tx, in.UserID, date)
		if err != nil {
			return err
		}
		if !free {
			return alreadyReported(rep.ReportDay)
		}
		if err := l.lockVehicle(ctx, tx, in.Vehicle); err != nil {
			return err
		}
		err = l.reports.CreateTx(ctx, tx, rep)
		if errors.Is(err, repository.ErrDuplicate) {
			return alreadyReported(rep.ReportDay)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return rep, nil
}

func alreadyReported(day string) error {
	return conflictf("daily fuel report already submitted for %s", day)
}

// Stock returns the current balance. Before the first replenishment it is
// zero with the default alert threshold.
func (l *Ledger) Stock(ctx context.Context) (model.FuelStock, error) {
	s, err := l.fuel.GetStock(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return model.FuelStock{TotalQuantity: decimal.Zero, AlertThreshold: l.defaultThreshold}, nil
	}
	return s, err
}

// SetAlertThreshold changes the level under which dispensings raise a low
// stock notification.
func (l *Ledger) SetAlertThreshold(ctx context.Context, threshold decimal.Decimal) (model.FuelStock, error) {
	threshold = threshold.Round(quantityPlaces)
	if threshold.IsNegative() {
		return model.FuelStock{}, validationf("alert_threshold must not be negative")
	}
	now := l.now().UTC()
	var after model.FuelStock
	err := inTx(ctx, l.db, func(tx *sql.Tx) error {
		stock, err := l.lockStock(ctx, tx, now)
		if err != nil {
			return err
		}
		if err := l.fuel.SetThresholdTx(ctx, tx, threshold, stock.Version, now); err != nil {
			return err
		}
		after = stock
		after.AlertThreshold = threshold
		after.Version++
		after.UpdatedAt = now
		return nil
	})
	return after, err
}

// Totals returns the sums of all replenished and dispensed quantities.
func (l *Ledger) Totals(ctx context.Context) (replenished, dispensed decimal.Decimal, err error) {
	return l.fuel.Totals(ctx)
}

func (l *Ledger) ListReplenishments(ctx context.Context, dr repository.DateRange) ([]model.Replenishment, error) {
	return l.fuel.ListReplenishments(ctx, dr)
}

func (l *Ledger) ListDispensings(ctx context.Context, dr repository.DateRange) ([]model.FuelDispensing, error) {
	return l.fuel.ListDispensings(ctx, dr)
}

func (l *Ledger) ListDailyReports(ctx context.Context, f repository.DailyReportFilter) ([]model.DailyFuelReport, error) {
	return l.reports.List(ctx, f)
}

// lockStock makes sure the stock row exists and locks it. The stock row is
// always the first lock a ledger transaction takes.
func (l *Ledger) lockStock(ctx context.Context, tx *sql.Tx, now time.Time) (model.FuelStock, error) {
	if err := l.fuel.EnsureStockTx(ctx, tx, l.defaultThreshold, now); err != nil {
		return model.FuelStock{}, err
	}
	return l.fuel.GetStockForUpdateTx(ctx, tx)
}

func (l *Ledger) requireUser(ctx context.Context, tx *sql.Tx, id uint64) error {
	ok, err := l.users.ExistsTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFoundf("user %d not found", id)
	}
	return nil
}

func (l *Ledger) lockVehicle(ctx context.Context, tx *sql.Tx, v model.VehicleRef) error {
	err := l.vehicles.LockTx(ctx, tx, v)
	if errors.Is(err, repository.ErrNotFound) {
		return vehicleNotFound(v)
	}
	return err
}

func vehicleNotFound(v model.VehicleRef) error {
	return notFoundf("%s %d not found", v.Kind(), v.ID())
}

// dayOrToday truncates d to its calendar day, using now when d is zero.
func dayOrToday(d, now time.Time) time.Time {
	if d.IsZero() {
		d = now.Local()
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
