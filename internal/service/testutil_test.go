package service_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fleet-management/internal/database"
	"github.com/iliyamo/fleet-management/internal/model"
	"github.com/iliyamo/fleet-management/internal/repository"
	"github.com/iliyamo/fleet-management/internal/service"
)

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

func seedTruck(t *testing.T, db *sql.DB, plate string) uint64 {
	t.Helper()
	now := time.Now().UTC()
	truck := &model.Truck{PlateNumber: plate, Status: model.VehicleStatusActive, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repository.NewVehicleRepo(db, database.SQLite).CreateTruck(context.Background(), truck))
	return truck.ID
}

func seedEquipment(t *testing.T, db *sql.DB, serial string) uint64 {
	t.Helper()
	now := time.Now().UTC()
	eq := &model.Equipment{Name: "Unit " + serial, SerialNumber: serial, Status: model.VehicleStatusActive, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repository.NewVehicleRepo(db, database.SQLite).CreateEquipment(context.Background(), eq))
	return eq.ID
}

func qty(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recordingNotifier keeps every intent it is given.
type recordingNotifier struct {
	mu      sync.Mutex
	intents []service.Intent
}

func (n *recordingNotifier) Notify(_ context.Context, in service.Intent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.intents = append(n.intents, in)
}

func (n *recordingNotifier) Types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.intents))
	for _, in := range n.intents {
		out = append(out, in.Type)
	}
	return out
}

// stubExtractor returns fixed metadata, or err when set.
type stubExtractor struct {
	meta model.ImageMetadata
	err  error
}

func (s stubExtractor) Extract(image []byte) (model.ImageMetadata, error) {
	if len(image) == 0 {
		return model.ImageMetadata{}, errors.New("empty image")
	}
	return s.meta, s.err
}

// fixture is a database with an admin, two chauffeurs, two trucks and one
// equipment unit.
type fixture struct {
	db        *sql.DB
	fleet     *service.Fleet
	clock     *fakeClock
	notifier  *recordingNotifier
	admin     service.Actor
	manager   service.Actor
	driver1   service.Actor
	driver2   service.Actor
	truckA    uint64
	truckB    uint64
	generator uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	f := &fixture{
		db:       db,
		clock:    newFakeClock(time.Date(2024, 6, 10, 9, 0, 0, 0, time.Local)),
		notifier: &recordingNotifier{},
	}
	f.admin = service.Actor{ID: seedUser(t, db, "admin@example.com", model.RoleAdmin), Roles: []string{model.RoleAdmin}}
	f.manager = service.Actor{ID: seedUser(t, db, "manager@example.com", model.RoleManager), Roles: []string{model.RoleManager}}
	f.driver1 = service.Actor{ID: seedUser(t, db, "driver1@example.com", model.RoleChauffeur), Roles: []string{model.RoleChauffeur}}
	f.driver2 = service.Actor{ID: seedUser(t, db, "driver2@example.com", model.RoleChauffeur), Roles: []string{model.RoleChauffeur}}
	f.truckA = seedTruck(t, db, "TRUCK-A")
	f.truckB = seedTruck(t, db, "TRUCK-B")
	f.generator = seedEquipment(t, db, "GEN-1")

	extractor := stubExtractor{meta: model.ImageMetadata{
		CapturedAt: time.Date(2024, 6, 10, 6, 45, 0, 0, time.UTC),
		CameraMake: ptr("Samsung"),
	}}
	f.fleet = service.New(db, database.SQLite, service.Options{
		DefaultAlertThreshold: qty("500"),
		Notifier:              f.notifier,
		Extractor:             extractor,
		Now:                   f.clock.Now,
	})
	return f
}
