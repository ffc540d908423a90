package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/fleet-management/internal/database"
	"github.com/iliyamo/fleet-management/internal/model"
	"github.com/iliyamo/fleet-management/internal/repository"
)

// DailyReportGuard allows at most one daily fuel report per user and
// server-local calendar day.
//
// The check runs in the transaction that writes the report, after taking
// the user's row lock, so two submissions by the same user serialise. The
// UNIQUE(submitted_by, report_day) index rejects anything that still slips
// through.
type DailyReportGuard struct {
	users   *repository.UserRepo
	reports *repository.DailyReportRepo
}

// NewDailyReportGuard returns a guard over db.
func NewDailyReportGuard(db *sql.DB, d database.Dialect) *DailyReportGuard {
	return &DailyReportGuard{
		users:   repository.NewUserRepo(db, d),
		reports: repository.NewDailyReportRepo(db),
	}
}

// CheckAndReserve locks userID for the rest of tx and reports whether the
// user may still file a report for the calendar day of date.
func (g *DailyReportGuard) CheckAndReserve(ctx context.Context, tx *sql.Tx, userID uint64, date time.Time) (bool, error) {
	if err := g.users.LockTx(ctx, tx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, notFoundf("user %d not found", userID)
		}
		return false, err
	}
	exists, err := g.reports.ExistsForDayTx(ctx, tx, userID, model.CalendarDay(date))
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// Available is the read-only form of CheckAndReserve, for showing whether
// today's report is still due.
func (g *DailyReportGuard) Available(ctx context.Context, userID uint64, date time.Time) (bool, error) {
	exists, err := g.reports.ExistsForDay(ctx, userID, model.CalendarDay(date))
	if err != nil {
		return false, err
	}
	return !exists, nil
}
