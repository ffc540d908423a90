package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fleet-management/internal/database"
	"github.com/iliyamo/fleet-management/internal/model"
	"github.com/iliyamo/fleet-management/internal/repository"
)

// setupTestDB opens an in-memory SQLite database carrying the production
// schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db, database.SQLite))

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// seedUser inserts a user with the given role and returns its ID.
func seedUser(t *testing.T, db *sql.DB, email, role string) uint64 {
	t.Helper()
	id, err := repository.NewUserRepo(db, database.SQLite).Create(context.Background(), repository.NewUser{
		Email:    email,
		FullName: email,
		Password: "secret-password",
		Role:     role,
	}, 4)
	require.NoError(t, err)
	return id
}

// seedTruck inserts a truck and returns its ID.
func seedTruck(t *testing.T, db *sql.DB, plate string) uint64 {
	t.Helper()
	now := time.Now().UTC()
	truck := &model.Truck{PlateNumber: plate, Status: model.VehicleStatusActive, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repository.NewVehicleRepo(db, database.SQLite).CreateTruck(context.Background(), truck))
	return truck.ID
}

// seedEquipment inserts an equipment unit and returns its ID.
func seedEquipment(t *testing.T, db *sql.DB, serial string) uint64 {
	t.Helper()
	now := time.Now().UTC()
	eq := &model.Equipment{Name: "Generator " + serial, SerialNumber: serial, Status: model.VehicleStatusActive, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repository.NewVehicleRepo(db, database.SQLite).CreateEquipment(context.Background(), eq))
	return eq.ID
}

// inTx runs fn in a transaction and commits it when fn succeeds.
func inTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx) error) error {
	t.Helper()
	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
