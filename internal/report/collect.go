package report

import (
	"context"
	"time"

	"github.com/iliyamo/fleet-management/internal/model"
	"github.com/iliyamo/fleet-management/internal/repository"
	"github.com/iliyamo/fleet-management/internal/service"
)

// Collect reads everything one workbook shows. History is limited to dr;
// the balance and totals are always current.
func Collect(ctx context.Context, ledger *service.Ledger, dr repository.DateRange, now time.Time) (Ledger, error) {
	l := Ledger{GeneratedAt: now}
	var err error
	if l.Stock, err = ledger.Stock(ctx); err != nil {
		return Ledger{}, err
	}
	replenished, dispensed, err := ledger.Totals(ctx)
	if err != nil {
		return Ledger{}, err
	}
	l.Replenished, l.Dispensed = replenished.String(), dispensed.String()
	if l.Replenishments, err = ledger.ListReplenishments(ctx, dr); err != nil {
		return Ledger{}, err
	}
	if l.Dispensings, err = ledger.ListDispensings(ctx, dr); err != nil {
		return Ledger{}, err
	}
	f := repository.DailyReportFilter{}
	if !dr.From.IsZero() {
		f.From = dr.From.Format(model.DayLayout)
	}
	if !dr.To.IsZero() {
		f.To = dr.To.Format(model.DayLayout)
	}
	if l.DailyReports, err = ledger.ListDailyReports(ctx, f); err != nil {
		return Ledger{}, err
	}
	return l, nil
}
