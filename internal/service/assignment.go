package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/fleet-management/internal/database"
	"github.com/iliyamo/fleet-management/internal/model"
	"github.com/iliyamo/fleet-management/internal/repository"
)

// AssignmentFilter narrows Registry.List.
type AssignmentFilter = repository.AssignmentFilter

// Registry keeps assignments exclusive: a user, a truck and an equipment
// unit each hold at most one active assignment. Conflicting requests are
// rejected; an existing assignment is never superseded implicitly.
//
// Writes lock the user row, then the vehicle row, then the assignment row,
// and only then look for conflicting active rows.
type Registry struct {
	db          *sql.DB
	assignments *repository.AssignmentRepo
	users       *repository.UserRepo
	vehicles    *repository.VehicleRepo
	now         func() time.Time
}

// NewRegistry returns a Registry over db.
func NewRegistry(db *sql.DB, d database.Dialect) *Registry {
	return &Registry{
		db:          db,
		assignments: repository.NewAssignmentRepo(db, d),
		users:       repository.NewUserRepo(db, d),
		vehicles:    repository.NewVehicleRepo(db, d),
		now:         time.Now,
	}
}

// AssignmentInput carries the fields of a new or updated assignment.
// Exactly one of TruckID and EquipmentID must be set.
type AssignmentInput struct {
	UserID      uint64
	TruckID     *uint64
	EquipmentID *uint64
	SiteLabel   string
	StartDate   time.Time
}

type validAssignment struct {
	userID  uint64
	vehicle model.VehicleRef
	site    string
	start   time.Time
}

func (in AssignmentInput) validate(now time.Time) (validAssignment, error) {
	if in.UserID == 0 {
		return validAssignment{}, validationf("user_id is required")
	}
	v, err := model.NewVehicleRef(in.TruckID, in.EquipmentID)
	if err != nil {
		return validAssignment{}, validationf("%s", err)
	}
	site := strings.TrimSpace(in.SiteLabel)
	if site == "" {
		return validAssignment{}, validationf("site_label is required")
	}
	return validAssignment{userID: in.UserID, vehicle: v, site: site, start: dayOrToday(in.StartDate, now)}, nil
}

// Create opens a new active assignment.
func (r *Registry) Create(ctx context.Context, in AssignmentInput) (*model.Assignment, error) {
	now := r.now().UTC()
	v, err := in.validate(now)
	if err != nil {
		return nil, err
	}
	a := &model.Assignment{
		UserID:    v.userID,
		Vehicle:   v.vehicle,
		SiteLabel: v.site,
		StartDate: v.start,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = inTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := r.lockParties(ctx, tx, v.userID, v.vehicle); err != nil {
			return err
		}
		if err := r.checkUserFree(ctx, tx, v.userID, 0); err != nil {
			return err
		}
		if err := r.checkVehicleFree(ctx, tx, v.vehicle, 0); err != nil {
			return err
		}
		if err := r.assignments.CreateTx(ctx, tx, a); err != nil {
			return r.writeError(err)
		}
		return r.moveTruck(ctx, tx, a, now)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Update rewrites an assignment. While the assignment is active, a changed
// user or vehicle must be free of other active assignments.
func (r *Registry) Update(ctx context.Context, id uint64, in AssignmentInput) (*model.Assignment, error) {
	now := r.now().UTC()
	v, err := in.validate(now)
	if err != nil {
		return nil, err
	}
	var a model.Assignment
	err = inTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := r.lockParties(ctx, tx, v.userID, v.vehicle); err != nil {
			return err
		}
		current, err := r.assignments.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFoundf("assignment %d not found", id)
			}
			return err
		}
		if current.IsActive {
			if current.UserID != v.userID {
				if err := r.checkUserFree(ctx, tx, v.userID, id); err != nil {
					return err
				}
			}
			if current.Vehicle != v.vehicle {
				if err := r.checkVehicleFree(ctx, tx, v.vehicle, id); err != nil {
					return err
				}
			}
		}

		a = current
		a.UserID = v.userID
		a.Vehicle = v.vehicle
		a.SiteLabel = v.site
		a.StartDate = v.start
		a.UpdatedAt = now
		if err := r.assignments.UpdateTx(ctx, tx, &a); err != nil {
			return r.writeError(err)
		}
		if !a.IsActive {
			return nil
		}
		return r.moveTruck(ctx, tx, &a, now)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Deactivate ends an assignment. Deactivating an inactive assignment is a
// no-op that returns it unchanged.
func (r *Registry) Deactivate(ctx context.Context, id uint64) (*model.Assignment, error) {
	now := r.now().UTC()
	var a model.Assignment
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		a, err = r.assignments.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFoundf("assignment %d not found", id)
			}
			return err
		}
		if !a.IsActive {
			return nil
		}
		if err := r.assignments.DeactivateTx(ctx, tx, id, now); err != nil {
			return err
		}
		a.IsActive = false
		a.EndDate = &now
		a.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ActiveForUser returns the user's active assignment.
func (r *Registry) ActiveForUser(ctx context.Context, userID uint64) (*model.Assignment, error) {
	a, err := r.assignments.ActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf("user %d has no active assignment", userID)
		}
		return nil, err
	}
	return &a, nil
}

func (r *Registry) Get(ctx context.Context, id uint64) (*model.Assignment, error) {
	a, err := r.assignments.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf("assignment %d not found", id)
		}
		return nil, err
	}
	return &a, nil
}

func (r *Registry) List(ctx context.Context, f AssignmentFilter) ([]model.Assignment, error) {
	return r.assignments.List(ctx, f)
}

// Delete removes an assignment outright, active or not.
func (r *Registry) Delete(ctx context.Context, id uint64) error {
	err := r.assignments.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return notFoundf("assignment %d not found", id)
	}
	return err
}

func (r *Registry) lockParties(ctx context.Context, tx *sql.Tx, userID uint64, v model.VehicleRef) error {
	if err := r.users.LockTx(ctx, tx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundf("user %d not found", userID)
		}
		return err
	}
	if err := r.vehicles.LockTx(ctx, tx, v); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return vehicleNotFound(v)
		}
		return err
	}
	return nil
}

func (r *Registry) checkUserFree(ctx context.Context, tx *sql.Tx, userID, excludeID uint64) error {
	other, err := r.assignments.ActiveByUserTx(ctx, tx, userID, excludeID)
	switch {
	case err == nil:
		return conflictf("user %d already has an active assignment (#%d)", userID, other.ID)
	case errors.Is(err, repository.ErrNotFound):
		return nil
	}
	return err
}

func (r *Registry) checkVehicleFree(ctx context.Context, tx *sql.Tx, v model.VehicleRef, excludeID uint64) error {
	other, err := r.assignments.ActiveByVehicleTx(ctx, tx, v, excludeID)
	switch {
	case err == nil:
		return conflictf("%s %d is already assigned (#%d)", v.Kind(), v.ID(), other.ID)
	case errors.Is(err, repository.ErrNotFound):
		return nil
	}
	return err
}

// moveTruck keeps a truck's site label in line with its assignment.
func (r *Registry) moveTruck(ctx context.Context, tx *sql.Tx, a *model.Assignment, now time.Time) error {
	truckID := a.Vehicle.TruckID()
	if truckID == nil {
		return nil
	}
	return r.vehicles.SetTruckSiteTx(ctx, tx, *truckID, a.SiteLabel, now)
}

// writeError maps a unique index rejection, which only happens when a
// concurrent writer got past the checks, to a conflict.
func (r *Registry) writeError(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return conflictf("an active assignment already exists for this user or vehicle")
	}
	return err
}
