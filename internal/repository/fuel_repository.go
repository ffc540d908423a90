package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/fleet-management/internal/database"
	"github.com/iliyamo/fleet-management/internal/model"
)

// FuelRepo provides data access to the fuel_stock singleton and the
// append-only replenishment and dispensing tables. Writes are exposed only
// as *Tx methods: the stock row and the history rows it summarises always
// change in the same transaction.
type FuelRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewFuelRepo returns a new FuelRepo bound to the provided database.
func NewFuelRepo(db *sql.DB, d database.Dialect) *FuelRepo {
	return &FuelRepo{db: db, dialect: d}
}

// DB exposes the underlying handle so callers can open transactions.
func (r *FuelRepo) DB() *sql.DB { return r.db }

// DateRange bounds list queries by calendar day. Zero values leave that
// side open.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (dr DateRange) where(column string, clauses []string, args []any) ([]string, []any) {
	if !dr.From.IsZero() {
		clauses = append(clauses, column+" >= ?")
		args = append(args, dateOnly(dr.From))
	}
	if !dr.To.IsZero() {
		clauses = append(clauses, column+" <= ?")
		args = append(args, dateOnly(dr.To))
	}
	return clauses, args
}

// ----- stock -----

const stockColumns = `total_quantity, alert_threshold, version, updated_at`

func scanStock(row rowScanner) (model.FuelStock, error) {
	var s model.FuelStock
	err := row.Scan(&s.TotalQuantity, &s.AlertThreshold, &s.Version, &s.UpdatedAt)
	return s, err
}

// EnsureStockTx creates the stock row with a zero balance and the given
// alert threshold unless it already exists.
func (r *FuelRepo) EnsureStockTx(ctx context.Context, tx *sql.Tx, threshold decimal.Decimal, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		r.dialect.InsertIgnore+` INTO fuel_stock (id, total_quantity, alert_threshold, version, updated_at) VALUES (?, ?, ?, 0, ?)`,
		model.FuelStockID, decimal.Zero, threshold, now)
	return err
}

// GetStockForUpdateTx reads the stock row and locks it until tx ends.
func (r *FuelRepo) GetStockForUpdateTx(ctx context.Context, tx *sql.Tx) (model.FuelStock, error) {
	s, err := scanStock(tx.QueryRowContext(ctx,
		`SELECT `+stockColumns+` FROM fuel_stock WHERE id = ?`+r.dialect.ForUpdate, model.FuelStockID))
	return s, translate(err)
}

// GetStock reads the stock row without locking. ErrNotFound means nothing
// has ever been replenished.
func (r *FuelRepo) GetStock(ctx context.Context) (model.FuelStock, error) {
	s, err := scanStock(r.db.QueryRowContext(ctx,
		`SELECT `+stockColumns+` FROM fuel_stock WHERE id = ?`, model.FuelStockID))
	return s, translate(err)
}

// UpdateStockTx stores a new balance if the row still carries version.
// It returns ErrStaleVersion when another writer got there first.
func (r *FuelRepo) UpdateStockTx(ctx context.Context, tx *sql.Tx, total decimal.Decimal, version uint64, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE fuel_stock SET total_quantity = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		total, now, model.FuelStockID, version)
	if err != nil {
		return err
	}
	return versionChecked(res)
}

// SetThresholdTx stores a new alert threshold under the same version check.
func (r *FuelRepo) SetThresholdTx(ctx context.Context, tx *sql.Tx, threshold decimal.Decimal, version uint64, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE fuel_stock SET alert_threshold = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		threshold, now, model.FuelStockID, version)
	if err != nil {
		return err
	}
	return versionChecked(res)
}

func versionChecked(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleVersion
	}
	return nil
}

// ----- replenishments -----

// CreateReplenishmentTx appends a replenishment and fills in its ID.
func (r *FuelRepo) CreateReplenishmentTx(ctx context.Context, tx *sql.Tx, rep *model.Replenishment) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO fuel_replenishments (submitted_by, quantity, supplied_on, notes, created_at) VALUES (?, ?, ?, ?, ?)`,
		rep.SubmittedBy, rep.Quantity, dateOnly(rep.SuppliedOn), rep.Notes, rep.CreatedAt)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rep.ID = uint64(id)
	return nil
}

// ListReplenishments returns replenishments within dr, newest first.
func (r *FuelRepo) ListReplenishments(ctx context.Context, dr DateRange) ([]model.Replenishment, error) {
	q := `SELECT id, submitted_by, quantity, supplied_on, notes, created_at FROM fuel_replenishments`
	clauses, args := dr.where("supplied_on", nil, nil)
	q += whereClause(clauses) + ` ORDER BY supplied_on DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Replenishment, 0)
	for rows.Next() {
		var rep model.Replenishment
		var notes sql.NullString
		if err := rows.Scan(&rep.ID, &rep.SubmittedBy, &rep.Quantity, &rep.SuppliedOn, &notes, &rep.CreatedAt); err != nil {
			return nil, err
		}
		rep.Notes = nullString(notes)
		out = append(out, rep)
	}
	return out, rows.Err()
}

// ----- dispensings -----

// CreateDispensingTx appends a dispensing and fills in its ID.
func (r *FuelRepo) CreateDispensingTx(ctx context.Context, tx *sql.Tx, d *model.FuelDispensing) error {
	truckID, equipmentID := vehicleColumns(d.Vehicle)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO fuel_dispensings (truck_id, equipment_id, personnel_id, submitted_by, quantity, dispensed_on, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		truckID, equipmentID, d.PersonnelID, d.SubmittedBy, d.Quantity, dateOnly(d.DispensedOn), d.CreatedAt)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return nil
}

// ListDispensings returns dispensings within dr, newest first.
func (r *FuelRepo) ListDispensings(ctx context.Context, dr DateRange) ([]model.FuelDispensing, error) {
	q := `SELECT id, truck_id, equipment_id, personnel_id, submitted_by, quantity, dispensed_on, created_at FROM fuel_dispensings`
	clauses, args := dr.where("dispensed_on", nil, nil)
	q += whereClause(clauses) + ` ORDER BY dispensed_on DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.FuelDispensing, 0)
	for rows.Next() {
		var d model.FuelDispensing
		var truckID, equipmentID sql.NullInt64
		if err := rows.Scan(&d.ID, &truckID, &equipmentID, &d.PersonnelID, &d.SubmittedBy, &d.Quantity, &d.DispensedOn, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Vehicle = vehicleFromColumns(truckID, equipmentID)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Totals returns the sums of all replenished and dispensed quantities.
func (r *FuelRepo) Totals(ctx context.Context) (replenished, dispensed decimal.Decimal, err error) {
	if replenished, err = r.sum(ctx, "fuel_replenishments"); err != nil {
		return
	}
	dispensed, err = r.sum(ctx, "fuel_dispensings")
	return
}

// sum adds quantities in Go: SQLite keeps them as text.
func (r *FuelRepo) sum(ctx context.Context, table string) (decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT quantity FROM `+table)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()
	total := decimal.Zero
	for rows.Next() {
		var q decimal.Decimal
		if err := rows.Scan(&q); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(q)
	}
	return total, rows.Err()
}

func whereClause(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}
