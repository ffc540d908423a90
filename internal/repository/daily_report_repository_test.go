package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fleet-management/internal/model"
	"github.com/iliyamo/fleet-management/internal/repository"
)

func TestDailyReportRepo_OnePerUserAndDay(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewDailyReportRepo(db)
	ctx := context.Background()
	driver := seedUser(t, db, "driver@example.com", model.RoleChauffeur)
	truck := seedTruck(t, db, "A-1")
	captured := time.Date(2024, 5, 1, 7, 30, 0, 0, time.UTC)
	cameraMake := "Canon"
	lat := 35.7

	report := func(day string) *model.DailyFuelReport {
		return &model.DailyFuelReport{
			SubmittedBy:       driver,
			Vehicle:           model.TruckRef(truck),
			RemainingQuantity: decimal.RequireFromString("42.5"),
			ReportDay:         day,
			ImageRef:          "img-" + day,
			Image:             model.ImageMetadata{CapturedAt: captured, CameraMake: &cameraMake, Latitude: &lat},
			CreatedAt:         captured,
		}
	}

	first := report("2024-05-01")
	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error { return repo.CreateTx(ctx, tx, first) }))

	exists, err := repo.ExistsForDay(ctx, driver, "2024-05-01")
	require.NoError(t, err)
	assert.True(t, exists)

	err = inTx(t, db, func(tx *sql.Tx) error { return repo.CreateTx(ctx, tx, report("2024-05-01")) })
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error { return repo.CreateTx(ctx, tx, report("2024-05-02")) }))

	all, err := repo.List(ctx, repository.DailyReportFilter{UserID: &driver})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2024-05-02", all[0].ReportDay)

	got := all[1]
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, model.TruckRef(truck), got.Vehicle)
	assert.Equal(t, "42.5", got.RemainingQuantity.String())
	require.NotNil(t, got.Image.CameraMake)
	assert.Equal(t, "Canon", *got.Image.CameraMake)
	assert.Nil(t, got.Image.CameraModel)
	require.NotNil(t, got.Image.Latitude)
	assert.InDelta(t, 35.7, *got.Image.Latitude, 1e-9)
	assert.True(t, got.Image.CapturedAt.Equal(captured))

	onlySecond, err := repo.List(ctx, repository.DailyReportFilter{From: "2024-05-02"})
	require.NoError(t, err)
	assert.Len(t, onlySecond, 1)
}
