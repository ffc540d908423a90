package main

import (
	"context"
	"io"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fleet-management/internal/app"
	"github.com/iliyamo/fleet-management/internal/config"
	"github.com/iliyamo/fleet-management/internal/model"
	"github.com/iliyamo/fleet-management/internal/repository"
	"github.com/iliyamo/fleet-management/internal/service"
)

const (
	adminEmail  = "admin@fleet.io"
	driverEmail = "driver@fleet.io"
)

type seeded struct {
	adminID  uint64
	driverID uint64
	truckID  uint64
}

// useTempDB points the environment at a fresh SQLite file.
func useTempDB(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "fleet.db"))
	t.Setenv("JWT_SECRET", "fleetctl-test")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("RABBITMQ_URL", "")
}

func openApp(t *testing.T) *app.App {
	t.Helper()
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	return a
}

func seed(t *testing.T) seeded {
	t.Helper()
	ctx := context.Background()
	a := openApp(t)
	defer a.Close()

	var s seeded
	var err error
	s.adminID, err = a.Users.Create(ctx, repository.NewUser{Email: adminEmail, FullName: "Admin", Password: "pw", Role: model.RoleAdmin}, 4)
	require.NoError(t, err)
	s.driverID, err = a.Users.Create(ctx, repository.NewUser{Email: driverEmail, FullName: "Driver", Password: "pw", Role: model.RoleChauffeur}, 4)
	require.NoError(t, err)

	now := time.Now().UTC()
	truck := &model.Truck{PlateNumber: "FL-001", Status: model.VehicleStatusActive, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, a.Vehicles.CreateTruck(ctx, truck))
	s.truckID = truck.ID
	return s
}

func run(args ...string) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.Execute()
}

func TestMigrateIsRepeatable(t *testing.T) {
	useTempDB(t)
	require.NoError(t, run("migrate"))
	require.NoError(t, run("migrate"))
}

func TestFuelReplenish(t *testing.T) {
	useTempDB(t)
	seed(t)

	require.NoError(t, run("fuel", "replenish", "250.5", "--as", adminEmail, "--notes", "tanker", "--date", "2024-06-10"))

	err := run("fuel", "replenish", "10", "--as", driverEmail)
	assert.ErrorIs(t, err, service.ErrForbidden)
	err = run("fuel", "replenish", "10", "--as", "ghost@fleet.io")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Error(t, run("fuel", "replenish", "10"), "--as is required")
	assert.Error(t, run("fuel", "replenish", "lots", "--as", adminEmail))
	assert.Error(t, run("fuel", "replenish", "10", "--as", adminEmail, "--date", "10/06/2024"))
	err = run("fuel", "replenish", "0", "--as", adminEmail)
	assert.ErrorIs(t, err, service.ErrValidation)

	a := openApp(t)
	defer a.Close()
	stock, err := a.Fleet.Ledger.Stock(context.Background())
	require.NoError(t, err)
	assert.True(t, stock.TotalQuantity.Equal(decimal.RequireFromString("250.5")), stock.TotalQuantity.String())

	list, err := a.Fleet.Ledger.ListReplenishments(context.Background(), repository.DateRange{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2024-06-10", list[0].SuppliedOn.Format(model.DayLayout))
	require.NotNil(t, list[0].Notes)
	assert.Equal(t, "tanker", *list[0].Notes)
}

func TestAssignmentDeactivate(t *testing.T) {
	useTempDB(t)
	s := seed(t)
	ctx := context.Background()

	a := openApp(t)
	created, err := a.Fleet.CreateAssignment(ctx, service.Actor{ID: s.adminID, Roles: []string{model.RoleAdmin}}, service.AssignmentInput{
		UserID:    s.driverID,
		TruckID:   &s.truckID,
		SiteLabel: "north",
	})
	require.NoError(t, err)
	a.Close()
	id := strconv.FormatUint(created.ID, 10)

	assert.ErrorIs(t, run("assignment", "deactivate", id, "--as", driverEmail), service.ErrForbidden)
	assert.Error(t, run("assignment", "deactivate", "abc", "--as", adminEmail))
	require.NoError(t, run("assignment", "deactivate", id, "--as", adminEmail))
	// already inactive
	require.NoError(t, run("assignment", "deactivate", id, "--as", adminEmail))
	require.NoError(t, run("assignment", "list"))

	a = openApp(t)
	defer a.Close()
	got, err := a.Fleet.Registry.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	_, err = a.Fleet.Registry.ActiveForUser(ctx, s.driverID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}
