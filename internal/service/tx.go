package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/fleet-management/internal/database"
	"github.com/iliyamo/fleet-management/internal/repository"
)

// inTx runs fn inside a transaction. The transaction is committed only when
// fn returns nil; otherwise everything fn wrote is rolled back. Lock
// conflicts reported by the driver become ErrConcurrentUpdate.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return concurrencyError(err)
	}
	if err := tx.Commit(); err != nil {
		return concurrencyError(err)
	}
	committed = true
	return nil
}

func concurrencyError(err error) error {
	if errors.Is(err, repository.ErrStaleVersion) || database.IsLockConflict(err) {
		return ErrConcurrentUpdate
	}
	return err
}
