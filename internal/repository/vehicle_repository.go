package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/fleet-management/internal/database"
	"github.com/iliyamo/fleet-management/internal/model"
)

// VehicleRepo provides access to the trucks and equipment tables. Both
// kinds share lock and existence helpers keyed by model.VehicleRef.
type VehicleRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewVehicleRepo returns a new VehicleRepo bound to the provided database.
func NewVehicleRepo(db *sql.DB, d database.Dialect) *VehicleRepo {
	return &VehicleRepo{db: db, dialect: d}
}

// DB exposes the underlying handle so callers can open transactions.
func (r *VehicleRepo) DB() *sql.DB { return r.db }

func vehicleTable(v model.VehicleRef) string {
	if v.IsTruck() {
		return "trucks"
	}
	return "equipment"
}

// LockTx locks the truck or equipment row referenced by v. It returns
// ErrNotFound when the vehicle does not exist.
func (r *VehicleRepo) LockTx(ctx context.Context, tx *sql.Tx, v model.VehicleRef) error {
	if v.IsZero() {
		return ErrNotFound
	}
	return lockRow(ctx, tx, r.dialect, vehicleTable(v), v.ID())
}

// Exists reports whether the referenced vehicle exists.
func (r *VehicleRepo) Exists(ctx context.Context, v model.VehicleRef) (bool, error) {
	if v.IsZero() {
		return false, nil
	}
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+vehicleTable(v)+` WHERE id = ?`, v.ID()).Scan(&n)
	return n > 0, err
}

// SetTruckSiteTx moves a truck to a new site label inside tx.
func (r *VehicleRepo) SetTruckSiteTx(ctx context.Context, tx *sql.Tx, truckID uint64, site string, now time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE trucks SET site_label = ?, updated_at = ? WHERE id = ?`, site, now, truckID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ----- trucks -----

const truckColumns = `id, plate_number, model, capacity_liters, site_label, status, created_at, updated_at`

func scanTruck(row rowScanner) (model.Truck, error) {
	var t model.Truck
	err := row.Scan(&t.ID, &t.PlateNumber, &t.Model, &t.CapacityLiters, &t.SiteLabel, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// CreateTruck inserts a truck and fills in its ID. Duplicate plate numbers
// yield ErrDuplicate.
func (r *VehicleRepo) CreateTruck(ctx context.Context, t *model.Truck) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO trucks (plate_number, model, capacity_liters, site_label, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.PlateNumber, t.Model, t.CapacityLiters, t.SiteLabel, t.Status, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetTruck fetches a truck by id.
func (r *VehicleRepo) GetTruck(ctx context.Context, id uint64) (model.Truck, error) {
	t, err := scanTruck(r.db.QueryRowContext(ctx, `SELECT `+truckColumns+` FROM trucks WHERE id = ?`, id))
	return t, translate(err)
}

// ListTrucks returns all trucks ordered by plate number.
func (r *VehicleRepo) ListTrucks(ctx context.Context) ([]model.Truck, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+truckColumns+` FROM trucks ORDER BY plate_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Truck, 0)
	for rows.Next() {
		t, err := scanTruck(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTruck overwrites the mutable truck fields.
func (r *VehicleRepo) UpdateTruck(ctx context.Context, t *model.Truck) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE trucks SET plate_number = ?, model = ?, capacity_liters = ?, site_label = ?, status = ?, updated_at = ? WHERE id = ?`,
		t.PlateNumber, t.Model, t.CapacityLiters, t.SiteLabel, t.Status, t.UpdatedAt, t.ID)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTruck removes a truck. Trucks with history are kept by foreign keys
// and yield ErrInUse.
func (r *VehicleRepo) DeleteTruck(ctx context.Context, id uint64) error {
	return r.deleteRow(ctx, "trucks", id)
}

// ----- equipment -----

const equipmentColumns = `id, name, serial_number, kind, site_label, status, created_at, updated_at`

func scanEquipment(row rowScanner) (model.Equipment, error) {
	var e model.Equipment
	err := row.Scan(&e.ID, &e.Name, &e.SerialNumber, &e.Kind, &e.SiteLabel, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// CreateEquipment inserts an equipment unit and fills in its ID.
func (r *VehicleRepo) CreateEquipment(ctx context.Context, e *model.Equipment) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO equipment (name, serial_number, kind, site_label, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Name, e.SerialNumber, e.Kind, e.SiteLabel, e.Status, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// GetEquipment fetches an equipment unit by id.
func (r *VehicleRepo) GetEquipment(ctx context.Context, id uint64) (model.Equipment, error) {
	e, err := scanEquipment(r.db.QueryRowContext(ctx, `SELECT `+equipmentColumns+` FROM equipment WHERE id = ?`, id))
	return e, translate(err)
}

// ListEquipment returns all equipment ordered by name.
func (r *VehicleRepo) ListEquipment(ctx context.Context) ([]model.Equipment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+equipmentColumns+` FROM equipment ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Equipment, 0)
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateEquipment overwrites the mutable equipment fields.
func (r *VehicleRepo) UpdateEquipment(ctx context.Context, e *model.Equipment) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE equipment SET name = ?, serial_number = ?, kind = ?, site_label = ?, status = ?, updated_at = ? WHERE id = ?`,
		e.Name, e.SerialNumber, e.Kind, e.SiteLabel, e.Status, e.UpdatedAt, e.ID)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEquipment removes an equipment unit; ErrInUse when it has history.
func (r *VehicleRepo) DeleteEquipment(ctx context.Context, id uint64) error {
	return r.deleteRow(ctx, "equipment", id)
}

func (r *VehicleRepo) deleteRow(ctx context.Context, table string, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
