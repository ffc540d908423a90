package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/fleet-management/internal/model"
)

// DailyReportRepo provides data access to daily_fuel_reports. The table
// carries UNIQUE(submitted_by, report_day), so a second report for the same
// user and day fails with ErrDuplicate even if the caller skipped the check.
type DailyReportRepo struct {
	db *sql.DB
}

// NewDailyReportRepo returns a new DailyReportRepo bound to the provided database.
func NewDailyReportRepo(db *sql.DB) *DailyReportRepo { return &DailyReportRepo{db: db} }

// DailyReportFilter narrows List. Days are inclusive YYYY-MM-DD strings;
// empty fields are ignored.
type DailyReportFilter struct {
	UserID *uint64
	From   string
	To     string
}

const dailyReportColumns = `id, submitted_by, truck_id, equipment_id, remaining_quantity, report_day, image_ref,
	captured_at, camera_make, camera_model, latitude, longitude, created_at`

func scanDailyReport(row rowScanner) (model.DailyFuelReport, error) {
	var (
		rep                  model.DailyFuelReport
		truckID, equipID     sql.NullInt64
		cameraMake, camModel sql.NullString
		lat, lng             sql.NullFloat64
	)
	err := row.Scan(&rep.ID, &rep.SubmittedBy, &truckID, &equipID, &rep.RemainingQuantity, &rep.ReportDay, &rep.ImageRef,
		&rep.Image.CapturedAt, &cameraMake, &camModel, &lat, &lng, &rep.CreatedAt)
	if err != nil {
		return rep, err
	}
	rep.Vehicle = vehicleFromColumns(truckID, equipID)
	rep.Image.CameraMake = nullString(cameraMake)
	rep.Image.CameraModel = nullString(camModel)
	rep.Image.Latitude = nullFloat(lat)
	rep.Image.Longitude = nullFloat(lng)
	return rep, nil
}

func reportExists(ctx context.Context, q querier, userID uint64, day string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM daily_fuel_reports WHERE submitted_by = ? AND report_day = ?`, userID, day).Scan(&n)
	return n > 0, err
}

// ExistsForDayTx reports whether userID already filed a report for day,
// reading inside tx.
func (r *DailyReportRepo) ExistsForDayTx(ctx context.Context, tx *sql.Tx, userID uint64, day string) (bool, error) {
	return reportExists(ctx, tx, userID, day)
}

// ExistsForDay is the non-transactional variant of ExistsForDayTx.
func (r *DailyReportRepo) ExistsForDay(ctx context.Context, userID uint64, day string) (bool, error) {
	return reportExists(ctx, r.db, userID, day)
}

// CreateTx inserts rep and fills in its ID. A report already filed for the
// same user and day yields ErrDuplicate.
func (r *DailyReportRepo) CreateTx(ctx context.Context, tx *sql.Tx, rep *model.DailyFuelReport) error {
	truckID, equipmentID := vehicleColumns(rep.Vehicle)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO daily_fuel_reports (submitted_by, truck_id, equipment_id, remaining_quantity, report_day, image_ref,
			captured_at, camera_make, camera_model, latitude, longitude, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.SubmittedBy, truckID, equipmentID, rep.RemainingQuantity, rep.ReportDay, rep.ImageRef,
		rep.Image.CapturedAt, rep.Image.CameraMake, rep.Image.CameraModel, rep.Image.Latitude, rep.Image.Longitude, rep.CreatedAt)
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

// List returns reports matching f, newest day first.
func (r *DailyReportRepo) List(ctx context.Context, f DailyReportFilter) ([]model.DailyFuelReport, error) {
	var (
		clauses []string
		args    []any
	)
	if f.UserID != nil {
		clauses = append(clauses, "submitted_by = ?")
		args = append(args, *f.UserID)
	}
	if f.From != "" {
		clauses = append(clauses, "report_day >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		clauses = append(clauses, "report_day <= ?")
		args = append(args, f.To)
	}
	q := `SELECT ` + dailyReportColumns + ` FROM daily_fuel_reports` + whereClause(clauses) + ` ORDER BY report_day DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.DailyFuelReport, 0)
	for rows.Next() {
		rep, err := scanDailyReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}
