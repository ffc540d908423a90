package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fleet-management/internal/database"
	"github.com/iliyamo/fleet-management/internal/model"
	"github.com/iliyamo/fleet-management/internal/repository"
)

func TestUserRepo(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewUserRepo(db, database.SQLite)
	ctx := context.Background()

	id := seedUser(t, db, "Driver@Example.com ", model.RoleChauffeur)
	seedUser(t, db, "boss@example.com", model.RoleAdmin)

	u, err := repo.GetByEmail(ctx, "driver@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "secret-password", u.PasswordHash)

	_, err = repo.Create(ctx, repository.NewUser{Email: "DRIVER@example.com", FullName: "x", Password: "p", Role: model.RoleChauffeur}, 4)
	assert.ErrorIs(t, err, repository.ErrEmailExists)

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	drivers, err := repo.List(ctx, model.RoleChauffeur)
	require.NoError(t, err)
	require.Len(t, drivers, 1)
	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTokenRepo(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewTokenRepo(db)
	ctx := context.Background()
	uid := seedUser(t, db, "driver@example.com", model.RoleChauffeur)

	require.NoError(t, repo.StoreRefresh(ctx, uid, "live", time.Now().Add(time.Hour)))
	require.NoError(t, repo.StoreRefresh(ctx, uid, "stale", time.Now().Add(-48*time.Hour)))

	got, err := repo.ValidateRefresh(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, uid, got)

	_, err = repo.ValidateRefresh(ctx, "stale")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.ValidateRefresh(ctx, "unknown")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.RevokeByHash(ctx, "live"))
	_, err = repo.ValidateRefresh(ctx, "live")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	n, err := repo.PurgeExpired(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
