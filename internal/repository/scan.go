package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/fleet-management/internal/database"
	"github.com/iliyamo/fleet-management/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx so that read helpers can
// serve plain reads and reads inside a caller's transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// dateOnly renders t as a DATE literal. Dates are passed as strings so that
// MySQL does not truncate a DATETIME and SQLite stores a parseable value.
func dateOnly(t time.Time) string {
	return t.Format(model.DayLayout)
}

// vehicleColumns maps a reference onto the truck_id/equipment_id pair.
func vehicleColumns(v model.VehicleRef) (truckID, equipmentID any) {
	if t := v.TruckID(); t != nil {
		truckID = *t
	}
	if e := v.EquipmentID(); e != nil {
		equipmentID = *e
	}
	return truckID, equipmentID
}

// vehicleFromColumns rebuilds a reference from the nullable column pair. A
// row with neither or both set yields the zero reference.
func vehicleFromColumns(truckID, equipmentID sql.NullInt64) model.VehicleRef {
	var t, e *uint64
	if truckID.Valid {
		v := uint64(truckID.Int64)
		t = &v
	}
	if equipmentID.Valid {
		v := uint64(equipmentID.Int64)
		e = &v
	}
	ref, err := model.NewVehicleRef(t, e)
	if err != nil {
		return model.VehicleRef{}
	}
	return ref
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullUint(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	v := uint64(n.Int64)
	return &v
}

func nullFloat(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// translate maps driver and database/sql errors onto the repository
// sentinels; anything else is returned untouched.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case database.IsDuplicate(err):
		return ErrDuplicate
	case database.IsForeignKeyViolation(err):
		return ErrInUse
	}
	return err
}

// lockRow selects a single row by id, taking a row lock where the dialect
// supports it. It returns ErrNotFound when the row does not exist.
func lockRow(ctx context.Context, tx *sql.Tx, d database.Dialect, table string, id uint64) error {
	var got uint64
	err := tx.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE id = ?`+d.ForUpdate, id).Scan(&got)
	return translate(err)
}
