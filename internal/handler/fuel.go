package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/fleet-management/internal/middleware"
	"github.com/iliyamo/fleet-management/internal/model"
	"github.com/iliyamo/fleet-management/internal/report"
	"github.com/iliyamo/fleet-management/internal/repository"
	"github.com/iliyamo/fleet-management/internal/service"
	"github.com/iliyamo/fleet-management/internal/storage"
)

// ImageStore keeps the photos attached to daily reports.
type ImageStore interface {
	Save(r io.Reader, filename string) (string, error)
	Open(ref string) (io.ReadCloser, error)
	Delete(ref string) error
}

// FuelHandler serves the depot ledger and daily reports.
type FuelHandler struct {
	Fleet          *service.Fleet
	Images         ImageStore
	MaxUploadBytes int64
}

func NewFuelHandler(f *service.Fleet, images ImageStore, maxUpload int64) *FuelHandler {
	return &FuelHandler{Fleet: f, Images: images, MaxUploadBytes: maxUpload}
}

// GET /v1/fuel/stock
func (h *FuelHandler) Stock(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()
	stock, err := h.Fleet.Ledger.Stock(ctx)
	if err != nil {
		return writeError(c, err)
	}
	replenished, dispensed, err := h.Fleet.Ledger.Totals(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"stock":             stock,
		"below_threshold":   stock.BelowThreshold(),
		"total_replenished": replenished,
		"total_dispensed":   dispensed,
	})
}

type thresholdReq struct {
	AlertThreshold decimal.Decimal `json:"alert_threshold"`
}

// PUT /v1/fuel/stock/threshold
func (h *FuelHandler) SetThreshold(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return writeError(c, err)
	}
	var req thresholdReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	stock, err := h.Fleet.SetAlertThreshold(ctx, actor, req.AlertThreshold)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, stock)
}

type replenishReq struct {
	Quantity decimal.Decimal `json:"quantity"`
	Date     string          `json:"date"`
	Notes    *string         `json:"notes"`
}

// POST /v1/fuel/replenishments
func (h *FuelHandler) Replenish(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return writeError(c, err)
	}
	var req replenishReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	date, err := parseDay(req.Date)
	if err != nil {
		return badRequest(c, "date must be YYYY-MM-DD")
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	r, err := h.Fleet.Replenish(ctx, actor, req.Quantity, date, req.Notes)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// GET /v1/fuel/replenishments?from=&to=
func (h *FuelHandler) ListReplenishments(c echo.Context) error {
	dr, err := dateRange(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	list, err := h.Fleet.Ledger.ListReplenishments(ctx, dr)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

type dispenseReq struct {
	TruckID     *uint64         `json:"truck_id"`
	EquipmentID *uint64         `json:"equipment_id"`
	PersonnelID uint64          `json:"personnel_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Date        string          `json:"date"`
}

// POST /v1/fuel/dispensings
func (h *FuelHandler) Dispense(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return writeError(c, err)
	}
	var req dispenseReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	date, err := parseDay(req.Date)
	if err != nil {
		return badRequest(c, "date must be YYYY-MM-DD")
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	d, err := h.Fleet.LoadFuel(ctx, actor, service.LoadFuelInput{
		TruckID:     req.TruckID,
		EquipmentID: req.EquipmentID,
		PersonnelID: req.PersonnelID,
		Quantity:    req.Quantity,
		Date:        date,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, d)
}

// GET /v1/fuel/dispensings?from=&to=
func (h *FuelHandler) ListDispensings(c echo.Context) error {
	dr, err := dateRange(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	list, err := h.Fleet.Ledger.ListDispensings(ctx, dr)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// POST /v1/fuel/daily-reports (multipart: remaining_quantity, image,
// optional truck_id or equipment_id)
//
// The photo is stored before the report is recorded and removed again when
// the report is rejected.
func (h *FuelHandler) SubmitDailyReport(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return writeError(c, err)
	}
	remaining, err := decimal.NewFromString(strings.TrimSpace(c.FormValue("remaining_quantity")))
	if err != nil {
		return badRequest(c, "remaining_quantity must be a number")
	}
	truckID, err := optionalID(c.FormValue("truck_id"))
	if err != nil {
		return badRequest(c, "truck_id must be a number")
	}
	equipmentID, err := optionalID(c.FormValue("equipment_id"))
	if err != nil {
		return badRequest(c, "equipment_id must be a number")
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "image is required"})
	}
	if h.MaxUploadBytes > 0 && fh.Size > h.MaxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "image too large"})
	}
	src, err := fh.Open()
	if err != nil {
		return badRequest(c, "unreadable image")
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return badRequest(c, "unreadable image")
	}

	ref, err := h.Images.Save(bytes.NewReader(data), fh.Filename)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "image too large"})
		}
		return writeError(c, err)
	}

	ctx, cancel := reqContext(c)
	defer cancel()
	rep, err := h.Fleet.SubmitDailyReport(ctx, actor, service.DailyReportSubmission{
		Remaining:   remaining,
		Image:       data,
		ImageRef:    ref,
		TruckID:     truckID,
		EquipmentID: equipmentID,
	})
	if err != nil {
		if derr := h.Images.Delete(ref); derr != nil {
			slog.Warn("daily report: orphaned image", slog.String("ref", ref), slog.String("error", derr.Error()))
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, rep)
}

// GET /v1/fuel/daily-reports?user_id=&from=&to=
func (h *FuelHandler) ListDailyReports(c echo.Context) error {
	userID, err := optionalID(c.QueryParam("user_id"))
	if err != nil {
		return badRequest(c, "user_id must be a number")
	}
	return h.listDailyReports(c, userID)
}

// GET /v1/my/daily-reports
func (h *FuelHandler) MyDailyReports(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return writeError(c, errUnauthenticated)
	}
	return h.listDailyReports(c, &uid)
}

func (h *FuelHandler) listDailyReports(c echo.Context, userID *uint64) error {
	f := repository.DailyReportFilter{UserID: userID}
	for _, p := range []struct {
		name string
		dst  *string
	}{{"from", &f.From}, {"to", &f.To}} {
		d, err := parseDay(c.QueryParam(p.name))
		if err != nil {
			return badRequest(c, p.name+" must be YYYY-MM-DD")
		}
		if !d.IsZero() {
			*p.dst = d.Format(model.DayLayout)
		}
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	list, err := h.Fleet.Ledger.ListDailyReports(ctx, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// GET /v1/my/daily-reports/today
func (h *FuelHandler) TodayStatus(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return writeError(c, errUnauthenticated)
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	now := h.Fleet.Now()
	free, err := h.Fleet.Guard.Available(ctx, uid, now)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"day":       model.CalendarDay(now),
		"submitted": !free,
	})
}

// GET /v1/fuel/images/:ref
func (h *FuelHandler) Image(c echo.Context) error {
	rc, err := h.Images.Open(c.Param("ref"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidRef) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return writeError(c, err)
	}
	defer rc.Close()
	return c.Stream(http.StatusOK, "application/octet-stream", rc)
}

// GET /v1/fuel/export?from=&to=
func (h *FuelHandler) Export(c echo.Context) error {
	dr, err := dateRange(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqContext(c)
	defer cancel()

	l, err := report.Collect(ctx, h.Fleet.Ledger, dr, h.Fleet.Now())
	if err != nil {
		return writeError(c, err)
	}

	var buf bytes.Buffer
	if err := report.WriteLedger(&buf, l); err != nil {
		return writeError(c, err)
	}
	name := fmt.Sprintf("fuel_ledger_%s.xlsx", l.GeneratedAt.Format("20060102_150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", name))
	return c.Blob(http.StatusOK, report.ContentType, buf.Bytes())
}

func dateRange(c echo.Context) (repository.DateRange, error) {
	from, err := parseDay(c.QueryParam("from"))
	if err != nil {
		return repository.DateRange{}, errors.New("from must be YYYY-MM-DD")
	}
	to, err := parseDay(c.QueryParam("to"))
	if err != nil {
		return repository.DateRange{}, errors.New("to must be YYYY-MM-DD")
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return repository.DateRange{}, errors.New("to is before from")
	}
	return repository.DateRange{From: from, To: to}, nil
}
