package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fleet-management/internal/database"
	"github.com/iliyamo/fleet-management/internal/model"
	"github.com/iliyamo/fleet-management/internal/repository"
)

func TestVehicleRepo_TruckCRUD(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewVehicleRepo(db, database.SQLite)
	ctx := context.Background()
	now := time.Now().UTC()

	truck := &model.Truck{
		PlateNumber:    "77-XY-100",
		Model:          "Volvo FH",
		CapacityLiters: decimal.NewNullDecimal(decimal.NewFromInt(600)),
		Status:         model.VehicleStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, repo.CreateTruck(ctx, truck))

	dup := *truck
	assert.ErrorIs(t, repo.CreateTruck(ctx, &dup), repository.ErrDuplicate)

	truck.Status = model.VehicleStatusMaintenance
	require.NoError(t, repo.UpdateTruck(ctx, truck))

	got, err := repo.GetTruck(ctx, truck.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VehicleStatusMaintenance, got.Status)
	assert.True(t, got.CapacityLiters.Valid)
	assert.Equal(t, "600", got.CapacityLiters.Decimal.String())

	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		return repo.SetTruckSiteTx(ctx, tx, truck.ID, "Depot 2", now)
	}))
	got, err = repo.GetTruck(ctx, truck.ID)
	require.NoError(t, err)
	assert.Equal(t, "Depot 2", got.SiteLabel)

	require.NoError(t, repo.DeleteTruck(ctx, truck.ID))
	_, err = repo.GetTruck(ctx, truck.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestVehicleRepo_DeleteInUse(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewVehicleRepo(db, database.SQLite)
	ctx := context.Background()
	user := seedUser(t, db, "u@example.com", model.RoleChauffeur)
	gen := seedEquipment(t, db, "GEN-7")

	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		return repository.NewAssignmentRepo(db, database.SQLite).CreateTx(ctx, tx, newAssignment(user, model.EquipmentRef(gen)))
	}))

	assert.ErrorIs(t, repo.DeleteEquipment(ctx, gen), repository.ErrInUse)
}

func TestVehicleRepo_LockAndExists(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewVehicleRepo(db, database.SQLite)
	ctx := context.Background()
	truck := seedTruck(t, db, "A-1")

	ok, err := repo.Exists(ctx, model.TruckRef(truck))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, model.EquipmentRef(truck))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		assert.NoError(t, repo.LockTx(ctx, tx, model.TruckRef(truck)))
		assert.ErrorIs(t, repo.LockTx(ctx, tx, model.TruckRef(truck+1)), repository.ErrNotFound)
		assert.ErrorIs(t, repo.LockTx(ctx, tx, model.VehicleRef{}), repository.ErrNotFound)
		return nil
	}))
}
