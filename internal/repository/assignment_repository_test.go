package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fleet-management/internal/database"
	"github.com/iliyamo/fleet-management/internal/model"
	"github.com/iliyamo/fleet-management/internal/repository"
)

func newAssignment(userID uint64, v model.VehicleRef) *model.Assignment {
	now := time.Now().UTC()
	return &model.Assignment{
		UserID:    userID,
		Vehicle:   v,
		SiteLabel: "North quarry",
		StartDate: now,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestAssignmentRepo_UniqueIndexesGuardActiveRows(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewAssignmentRepo(db, database.SQLite)
	ctx := context.Background()
	u1 := seedUser(t, db, "u1@example.com", model.RoleChauffeur)
	u2 := seedUser(t, db, "u2@example.com", model.RoleChauffeur)
	truckA := seedTruck(t, db, "A-1")
	truckB := seedTruck(t, db, "B-2")

	first := newAssignment(u1, model.TruckRef(truckA))
	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error { return repo.CreateTx(ctx, tx, first) }))

	// same user, other truck
	err := inTx(t, db, func(tx *sql.Tx) error { return repo.CreateTx(ctx, tx, newAssignment(u1, model.TruckRef(truckB))) })
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	// other user, same truck
	err = inTx(t, db, func(tx *sql.Tx) error { return repo.CreateTx(ctx, tx, newAssignment(u2, model.TruckRef(truckA))) })
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	// inactive rows do not count
	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error { return repo.DeactivateTx(ctx, tx, first.ID, time.Now().UTC()) }))
	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error { return repo.CreateTx(ctx, tx, newAssignment(u2, model.TruckRef(truckA))) }))

	list, err := repo.List(ctx, repository.AssignmentFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, u2, list[0].UserID)

	old, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, old.IsActive)
	assert.NotNil(t, old.EndDate)
}

func TestAssignmentRepo_ActiveLookupsExcludeSelf(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewAssignmentRepo(db, database.SQLite)
	ctx := context.Background()
	u1 := seedUser(t, db, "u1@example.com", model.RoleChauffeur)
	gen := seedEquipment(t, db, "GEN-1")

	a := newAssignment(u1, model.EquipmentRef(gen))
	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error { return repo.CreateTx(ctx, tx, a) }))

	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		got, err := repo.ActiveByVehicleTx(ctx, tx, model.EquipmentRef(gen), 0)
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)

		_, err = repo.ActiveByVehicleTx(ctx, tx, model.EquipmentRef(gen), a.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)

		_, err = repo.ActiveByUserTx(ctx, tx, u1, a.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		return nil
	}))

	got, err := repo.ActiveByUser(ctx, u1)
	require.NoError(t, err)
	assert.Equal(t, model.EquipmentRef(gen), got.Vehicle)
	assert.Equal(t, "North quarry", got.SiteLabel)
}

func TestAssignmentRepo_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewAssignmentRepo(db, database.SQLite)
	ctx := context.Background()
	u1 := seedUser(t, db, "u1@example.com", model.RoleChauffeur)
	truck := seedTruck(t, db, "A-1")

	a := newAssignment(u1, model.TruckRef(truck))
	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error { return repo.CreateTx(ctx, tx, a) }))

	require.NoError(t, repo.Delete(ctx, a.ID))
	assert.ErrorIs(t, repo.Delete(ctx, a.ID), repository.ErrNotFound)
	_, err := repo.Get(ctx, a.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
