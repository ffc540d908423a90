package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/fleet-management/internal/database"
	"github.com/iliyamo/fleet-management/internal/model"
)

// AssignmentRepo provides data access to the assignments table.
//
// Unique indexes over active rows back the exclusivity rules: a second
// active row for the same user, truck or equipment unit fails with
// ErrDuplicate. Callers still check first, under row locks, so that the
// conflict can be reported precisely.
type AssignmentRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewAssignmentRepo returns a new AssignmentRepo bound to the provided database.
func NewAssignmentRepo(db *sql.DB, d database.Dialect) *AssignmentRepo {
	return &AssignmentRepo{db: db, dialect: d}
}

// DB exposes the underlying handle so callers can open transactions.
func (r *AssignmentRepo) DB() *sql.DB { return r.db }

// AssignmentFilter narrows List.
type AssignmentFilter struct {
	UserID     *uint64
	ActiveOnly bool
}

const assignmentColumns = `id, user_id, truck_id, equipment_id, site_label, start_date, end_date, is_active, created_at, updated_at`

func scanAssignment(row rowScanner) (model.Assignment, error) {
	var (
		a                model.Assignment
		truckID, equipID sql.NullInt64
		endDate          sql.NullTime
	)
	err := row.Scan(&a.ID, &a.UserID, &truckID, &equipID, &a.SiteLabel, &a.StartDate, &endDate, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return a, err
	}
	a.Vehicle = vehicleFromColumns(truckID, equipID)
	a.EndDate = nullTime(endDate)
	return a, nil
}

// CreateTx inserts a and fills in its ID.
func (r *AssignmentRepo) CreateTx(ctx context.Context, tx *sql.Tx, a *model.Assignment) error {
	truckID, equipmentID := vehicleColumns(a.Vehicle)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO assignments (user_id, truck_id, equipment_id, site_label, start_date, end_date, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, truckID, equipmentID, a.SiteLabel, dateOnly(a.StartDate), a.EndDate, a.IsActive, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// GetForUpdateTx reads an assignment and locks it until tx ends.
func (r *AssignmentRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Assignment, error) {
	a, err := scanAssignment(tx.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`+r.dialect.ForUpdate, id))
	return a, translate(err)
}

// Get reads an assignment by id.
func (r *AssignmentRepo) Get(ctx context.Context, id uint64) (model.Assignment, error) {
	a, err := scanAssignment(r.db.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`, id))
	return a, translate(err)
}

// ActiveByUserTx returns the user's active assignment other than excludeID
// (0 excludes nothing), locking it. ErrNotFound when there is none.
func (r *AssignmentRepo) ActiveByUserTx(ctx context.Context, tx *sql.Tx, userID, excludeID uint64) (model.Assignment, error) {
	a, err := scanAssignment(tx.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE user_id = ? AND is_active = 1 AND id <> ? LIMIT 1`+r.dialect.ForUpdate,
		userID, excludeID))
	return a, translate(err)
}

// ActiveByVehicleTx returns the active assignment holding v other than
// excludeID, locking it. ErrNotFound when the vehicle is free.
func (r *AssignmentRepo) ActiveByVehicleTx(ctx context.Context, tx *sql.Tx, v model.VehicleRef, excludeID uint64) (model.Assignment, error) {
	column := "equipment_id"
	if v.IsTruck() {
		column = "truck_id"
	}
	a, err := scanAssignment(tx.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE `+column+` = ? AND is_active = 1 AND id <> ? LIMIT 1`+r.dialect.ForUpdate,
		v.ID(), excludeID))
	return a, translate(err)
}

// ActiveByUser is the non-locking read used by "my assignment" lookups.
func (r *AssignmentRepo) ActiveByUser(ctx context.Context, userID uint64) (model.Assignment, error) {
	a, err := scanAssignment(r.db.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE user_id = ? AND is_active = 1 LIMIT 1`, userID))
	return a, translate(err)
}

// UpdateTx overwrites the user, vehicle, site and start date of a.
func (r *AssignmentRepo) UpdateTx(ctx context.Context, tx *sql.Tx, a *model.Assignment) error {
	truckID, equipmentID := vehicleColumns(a.Vehicle)
	res, err := tx.ExecContext(ctx,
		`UPDATE assignments SET user_id = ?, truck_id = ?, equipment_id = ?, site_label = ?, start_date = ?, updated_at = ? WHERE id = ?`,
		a.UserID, truckID, equipmentID, a.SiteLabel, dateOnly(a.StartDate), a.UpdatedAt, a.ID)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeactivateTx ends an active assignment at now. Inactive rows are left
// untouched.
func (r *AssignmentRepo) DeactivateTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE assignments SET is_active = 0, end_date = ?, updated_at = ? WHERE id = ? AND is_active = 1`,
		now, now, id)
	return err
}

// Delete hard-deletes an assignment.
func (r *AssignmentRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = ?`, id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns assignments matching f, newest first.
func (r *AssignmentRepo) List(ctx context.Context, f AssignmentFilter) ([]model.Assignment, error) {
	var (
		clauses []string
		args    []any
	)
	if f.UserID != nil {
		clauses = append(clauses, "user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.ActiveOnly {
		clauses = append(clauses, "is_active = 1")
	}
	q := `SELECT ` + assignmentColumns + ` FROM assignments` + whereClause(clauses) + ` ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
