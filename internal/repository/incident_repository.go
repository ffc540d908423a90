package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/fleet-management/internal/model"
)

// IncidentRepo provides data access to the incidents table.
type IncidentRepo struct {
	db *sql.DB
}

// NewIncidentRepo returns a new IncidentRepo bound to the provided database.
func NewIncidentRepo(db *sql.DB) *IncidentRepo { return &IncidentRepo{db: db} }

const incidentColumns = `id, reported_by, truck_id, equipment_id, title, description, severity, status, created_at, updated_at`

func scanIncident(row rowScanner) (model.Incident, error) {
	var (
		in               model.Incident
		truckID, equipID sql.NullInt64
	)
	err := row.Scan(&in.ID, &in.ReportedBy, &truckID, &equipID, &in.Title, &in.Description, &in.Severity, &in.Status, &in.CreatedAt, &in.UpdatedAt)
	in.Vehicle = vehicleFromColumns(truckID, equipID)
	return in, err
}

// Create inserts in and fills in its ID.
func (r *IncidentRepo) Create(ctx context.Context, in *model.Incident) error {
	truckID, equipmentID := vehicleColumns(in.Vehicle)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO incidents (reported_by, truck_id, equipment_id, title, description, severity, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ReportedBy, truckID, equipmentID, in.Title, in.Description, in.Severity, in.Status, in.CreatedAt, in.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	in.ID = uint64(id)
	return nil
}

// Get reads an incident by id.
func (r *IncidentRepo) Get(ctx context.Context, id uint64) (model.Incident, error) {
	in, err := scanIncident(r.db.QueryRowContext(ctx, `SELECT `+incidentColumns+` FROM incidents WHERE id = ?`, id))
	return in, translate(err)
}

// List returns incidents newest first. A non-nil reportedBy restricts the
// result to that reporter.
func (r *IncidentRepo) List(ctx context.Context, reportedBy *uint64) ([]model.Incident, error) {
	q := `SELECT ` + incidentColumns + ` FROM incidents`
	var args []any
	if reportedBy != nil {
		q += ` WHERE reported_by = ?`
		args = append(args, *reportedBy)
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Incident, 0)
	for rows.Next() {
		in, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// UpdateStatus sets the status of an incident.
func (r *IncidentRepo) UpdateStatus(ctx context.Context, id uint64, status string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE incidents SET status = ?, updated_at = ? WHERE id = ?`, status, now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
