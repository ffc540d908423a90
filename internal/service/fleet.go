package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/fleet-management/internal/database"
	"github.com/iliyamo/fleet-management/internal/model"
	"github.com/iliyamo/fleet-management/internal/repository"
)

// Actor is the authenticated caller of a Fleet operation. The roles are
// trusted as given.
type Actor struct {
	ID    uint64
	Roles []string
}

// Has reports whether the actor carries role.
func (a Actor) Has(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Privileged reports whether the actor is office staff (admin or manager).
func (a Actor) Privileged() bool {
	for _, r := range a.Roles {
		if model.PrivilegedRole(r) {
			return true
		}
	}
	return false
}

// Related points a notification at the entity it is about.
type Related struct {
	Type string
	ID   uint64
}

// Intent is a notification the core wants delivered to the office.
type Intent struct {
	Type    string
	Title   string
	Message string
	ActorID uint64
	Related *Related
}

// Notifier delivers intents. Notify must not block on delivery and has no
// way to fail the operation that raised the intent.
type Notifier interface {
	Notify(ctx context.Context, in Intent)
}

// MetadataExtractor reads capture metadata from image bytes.
type MetadataExtractor interface {
	Extract(image []byte) (model.ImageMetadata, error)
}

// Observer is told about completed ledger and registry writes.
type Observer interface {
	FuelReplenished(qty, balance decimal.Decimal)
	FuelDispensed(qty, balance decimal.Decimal)
	DailyReportRecorded()
	AssignmentChanged(op string)
}

// Options configures New. Zero values select defaults.
type Options struct {
	// DefaultAlertThreshold seeds the stock row when it is first created.
	DefaultAlertThreshold decimal.Decimal
	Notifier              Notifier
	// Extractor is required for daily reports; without it submissions fail
	// with ErrUnsupported.
	Extractor MetadataExtractor
	Observer  Observer
	Now       func() time.Time
}

// Fleet is the entry point of the core. It checks the actor's role,
// resolves vehicle context and composes the ledger, the registry and the
// daily report guard. Notifications are raised after the write committed.
type Fleet struct {
	Ledger   *Ledger
	Registry *Registry
	Guard    *DailyReportGuard

	incidents *repository.IncidentRepo
	vehicles  *repository.VehicleRepo
	notifier  Notifier
	extractor MetadataExtractor
	observer  Observer
	now       func() time.Time
}

// New builds the core over db.
func New(db *sql.DB, d database.Dialect, opts Options) *Fleet {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ledger := NewLedger(db, d, opts.DefaultAlertThreshold)
	ledger.now = now
	registry := NewRegistry(db, d)
	registry.now = now
	return &Fleet{
		Ledger:    ledger,
		Registry:  registry,
		Guard:     ledger.Guard(),
		incidents: repository.NewIncidentRepo(db),
		vehicles:  repository.NewVehicleRepo(db, d),
		notifier:  opts.Notifier,
		extractor: opts.Extractor,
		observer:  opts.Observer,
		now:       now,
	}
}

// Now returns the facade's current time.
func (f *Fleet) Now() time.Time { return f.now() }

func (f *Fleet) notify(ctx context.Context, in Intent) {
	if f.notifier != nil {
		f.notifier.Notify(ctx, in)
	}
}

func requirePrivileged(a Actor) error {
	if !a.Privileged() {
		return forbiddenf("this operation is reserved for administrators and managers")
	}
	return nil
}

// ----- fuel -----

// DailyReportSubmission is a daily report as received from a client. The
// image has already been stored under ImageRef; Image holds its bytes.
type DailyReportSubmission struct {
	Remaining   decimal.Decimal
	Image       []byte
	ImageRef    string
	TruckID     *uint64
	EquipmentID *uint64
}

// SubmitDailyReport records the actor's remaining-fuel report for today.
//
// Office staff may name the vehicle explicitly; everyone else reports on
// the vehicle of their active assignment. The image must carry its
// original capture time.
func (f *Fleet) SubmitDailyReport(ctx context.Context, actor Actor, sub DailyReportSubmission) (*model.DailyFuelReport, error) {
	vehicle, err := f.reportVehicle(ctx, actor, sub.TruckID, sub.EquipmentID)
	if err != nil {
		return nil, err
	}
	if f.extractor == nil {
		return nil, unsupportedf("image metadata extraction is not available")
	}
	meta, err := f.extractor.Extract(sub.Image)
	if err != nil {
		return nil, validationf("image metadata: %v", err)
	}
	if meta.CapturedAt.IsZero() {
		return nil, validationf("the image carries no capture time")
	}

	rep, err := f.Ledger.RecordDailyReport(ctx, DailyReportInput{
		UserID:    actor.ID,
		Vehicle:   vehicle,
		Remaining: sub.Remaining,
		Date:      f.now(),
		ImageRef:  sub.ImageRef,
		Image:     meta,
	})
	if err != nil {
		return nil, err
	}
	if f.observer != nil {
		f.observer.DailyReportRecorded()
	}
	if !actor.Privileged() {
		f.notify(ctx, Intent{
			Type:    model.NotifyDailyReport,
			Title:   "Daily fuel report",
			Message: fmt.Sprintf("User %d reported %s L remaining in %s on %s", actor.ID, rep.RemainingQuantity, vehicle, rep.ReportDay),
			ActorID: actor.ID,
			Related: &Related{Type: "daily_fuel_report", ID: rep.ID},
		})
	}
	return rep, nil
}

func (f *Fleet) reportVehicle(ctx context.Context, actor Actor, truckID, equipmentID *uint64) (model.VehicleRef, error) {
	explicit := (truckID != nil && *truckID != 0) || (equipmentID != nil && *equipmentID != 0)
	if actor.Privileged() && explicit {
		v, err := model.NewVehicleRef(truckID, equipmentID)
		if err != nil {
			return model.VehicleRef{}, validationf("%s", err)
		}
		ok, err := f.vehicles.Exists(ctx, v)
		if err != nil {
			return model.VehicleRef{}, err
		}
		if !ok {
			return model.VehicleRef{}, vehicleNotFound(v)
		}
		return v, nil
	}
	a, err := f.Registry.ActiveForUser(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.VehicleRef{}, forbiddenf("no vehicle to report on: you have no active assignment")
		}
		return model.VehicleRef{}, err
	}
	return a.Vehicle, nil
}

// LoadFuelInput describes a dispensing requested by office staff.
type LoadFuelInput struct {
	TruckID     *uint64
	EquipmentID *uint64
	PersonnelID uint64
	Quantity    decimal.Decimal
	Date        time.Time
}

// LoadFuel dispenses fuel from the depot into a vehicle. Insufficient stock
// is reported as *InsufficientStockError. A balance left under the alert
// threshold raises a low stock notification.
func (f *Fleet) LoadFuel(ctx context.Context, actor Actor, in LoadFuelInput) (*model.FuelDispensing, error) {
	if err := requirePrivileged(actor); err != nil {
		return nil, err
	}
	v, err := model.NewVehicleRef(in.TruckID, in.EquipmentID)
	if err != nil {
		return nil, validationf("%s", err)
	}
	d, stock, err := f.Ledger.consume(ctx, ConsumeInput{
		Vehicle:     v,
		PersonnelID: in.PersonnelID,
		SubmittedBy: actor.ID,
		Quantity:    in.Quantity,
		Date:        in.Date,
	})
	if err != nil {
		return nil, err
	}
	if f.observer != nil {
		f.observer.FuelDispensed(d.Quantity, stock.TotalQuantity)
	}
	if stock.BelowThreshold() {
		f.notify(ctx, Intent{
			Type:    model.NotifyLowStock,
			Title:   "Fuel stock low",
			Message: fmt.Sprintf("Depot stock is %s L, below the alert threshold of %s L", stock.TotalQuantity, stock.AlertThreshold),
			ActorID: actor.ID,
			Related: &Related{Type: "fuel_dispensing", ID: d.ID},
		})
	}
	return d, nil
}

// Replenish records a delivery into the depot on behalf of the actor.
func (f *Fleet) Replenish(ctx context.Context, actor Actor, quantity decimal.Decimal, date time.Time, notes *string) (*model.Replenishment, error) {
	if err := requirePrivileged(actor); err != nil {
		return nil, err
	}
	rep, stock, err := f.Ledger.replenish(ctx, ReplenishInput{
		SubmittedBy: actor.ID,
		Quantity:    quantity,
		Date:        date,
		Notes:       notes,
	})
	if err != nil {
		return nil, err
	}
	if f.observer != nil {
		f.observer.FuelReplenished(rep.Quantity, stock.TotalQuantity)
	}
	return rep, nil
}

// SetAlertThreshold changes the low stock level. Admin only.
func (f *Fleet) SetAlertThreshold(ctx context.Context, actor Actor, threshold decimal.Decimal) (model.FuelStock, error) {
	if !actor.Has(model.RoleAdmin) {
		return model.FuelStock{}, forbiddenf("only administrators may change the alert threshold")
	}
	return f.Ledger.SetAlertThreshold(ctx, threshold)
}

// ----- assignments -----

func (f *Fleet) CreateAssignment(ctx context.Context, actor Actor, in AssignmentInput) (*model.Assignment, error) {
	if err := requirePrivileged(actor); err != nil {
		return nil, err
	}
	a, err := f.Registry.Create(ctx, in)
	if err == nil {
		f.assignmentChanged("create")
	}
	return a, err
}

func (f *Fleet) UpdateAssignment(ctx context.Context, actor Actor, id uint64, in AssignmentInput) (*model.Assignment, error) {
	if err := requirePrivileged(actor); err != nil {
		return nil, err
	}
	a, err := f.Registry.Update(ctx, id, in)
	if err == nil {
		f.assignmentChanged("update")
	}
	return a, err
}

func (f *Fleet) DeactivateAssignment(ctx context.Context, actor Actor, id uint64) (*model.Assignment, error) {
	if err := requirePrivileged(actor); err != nil {
		return nil, err
	}
	a, err := f.Registry.Deactivate(ctx, id)
	if err == nil {
		f.assignmentChanged("deactivate")
	}
	return a, err
}

// DeleteAssignment hard-deletes an assignment. Admin only.
func (f *Fleet) DeleteAssignment(ctx context.Context, actor Actor, id uint64) error {
	if !actor.Has(model.RoleAdmin) {
		return forbiddenf("only administrators may delete assignments")
	}
	err := f.Registry.Delete(ctx, id)
	if err == nil {
		f.assignmentChanged("delete")
	}
	return err
}

// ActiveAssignment returns the actor's own active assignment.
func (f *Fleet) ActiveAssignment(ctx context.Context, actor Actor) (*model.Assignment, error) {
	return f.Registry.ActiveForUser(ctx, actor.ID)
}

func (f *Fleet) assignmentChanged(op string) {
	if f.observer != nil {
		f.observer.AssignmentChanged(op)
	}
}
