package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/fleet-management/internal/model"
	"github.com/iliyamo/fleet-management/internal/repository"
)

// VehicleHandler serves the truck and equipment catalogs.
type VehicleHandler struct {
	Repo *repository.VehicleRepo
}

func NewVehicleHandler(r *repository.VehicleRepo) *VehicleHandler {
	return &VehicleHandler{Repo: r}
}

type truckReq struct {
	PlateNumber    string              `json:"plate_number"`
	Model          string              `json:"model"`
	CapacityLiters decimal.NullDecimal `json:"capacity_liters"`
	SiteLabel      string              `json:"site_label"`
	Status         string              `json:"status"`
}

type equipmentReq struct {
	Name         string `json:"name"`
	SerialNumber string `json:"serial_number"`
	Kind         string `json:"kind"`
	SiteLabel    string `json:"site_label"`
	Status       string `json:"status"`
}

func unprocessable(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": msg})
}

func vehicleStatus(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return model.VehicleStatusActive, true
	}
	return s, model.ValidVehicleStatus(s)
}

func (r truckReq) truck() (model.Truck, string) {
	t := model.Truck{
		PlateNumber:    strings.ToUpper(strings.TrimSpace(r.PlateNumber)),
		Model:          strings.TrimSpace(r.Model),
		CapacityLiters: r.CapacityLiters,
		SiteLabel:      strings.TrimSpace(r.SiteLabel),
	}
	if t.PlateNumber == "" {
		return t, "plate_number is required"
	}
	if t.CapacityLiters.Valid && !t.CapacityLiters.Decimal.IsPositive() {
		return t, "capacity_liters must be positive"
	}
	status, ok := vehicleStatus(r.Status)
	if !ok {
		return t, "unknown status"
	}
	t.Status = status
	return t, ""
}

func (r equipmentReq) equipment() (model.Equipment, string) {
	e := model.Equipment{
		Name:         strings.TrimSpace(r.Name),
		SerialNumber: strings.TrimSpace(r.SerialNumber),
		Kind:         strings.TrimSpace(r.Kind),
		SiteLabel:    strings.TrimSpace(r.SiteLabel),
	}
	if e.Name == "" || e.SerialNumber == "" {
		return e, "name and serial_number are required"
	}
	status, ok := vehicleStatus(r.Status)
	if !ok {
		return e, "unknown status"
	}
	e.Status = status
	return e, ""
}

// ----- trucks -----

func (h *VehicleHandler) ListTrucks(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()
	list, err := h.Repo.ListTrucks(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *VehicleHandler) GetTruck(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	t, err := h.Repo.GetTruck(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *VehicleHandler) CreateTruck(c echo.Context) error {
	var req truckReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	t, msg := req.truck()
	if msg != "" {
		return unprocessable(c, msg)
	}
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	ctx, cancel := reqContext(c)
	defer cancel()
	if err := h.Repo.CreateTruck(ctx, &t); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *VehicleHandler) UpdateTruck(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req truckReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	t, msg := req.truck()
	if msg != "" {
		return unprocessable(c, msg)
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	old, err := h.Repo.GetTruck(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	t.ID, t.CreatedAt, t.UpdatedAt = id, old.CreatedAt, time.Now().UTC()
	if err := h.Repo.UpdateTruck(ctx, &t); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *VehicleHandler) DeleteTruck(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	if err := h.Repo.DeleteTruck(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- equipment -----

func (h *VehicleHandler) ListEquipment(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()
	list, err := h.Repo.ListEquipment(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *VehicleHandler) GetEquipment(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	e, err := h.Repo.GetEquipment(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *VehicleHandler) CreateEquipment(c echo.Context) error {
	var req equipmentReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	e, msg := req.equipment()
	if msg != "" {
		return unprocessable(c, msg)
	}
	e.CreatedAt = time.Now().UTC()
	e.UpdatedAt = e.CreatedAt
	ctx, cancel := reqContext(c)
	defer cancel()
	if err := h.Repo.CreateEquipment(ctx, &e); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *VehicleHandler) UpdateEquipment(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req equipmentReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	e, msg := req.equipment()
	if msg != "" {
		return unprocessable(c, msg)
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	old, err := h.Repo.GetEquipment(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	e.ID, e.CreatedAt, e.UpdatedAt = id, old.CreatedAt, time.Now().UTC()
	if err := h.Repo.UpdateEquipment(ctx, &e); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *VehicleHandler) DeleteEquipment(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	if err := h.Repo.DeleteEquipment(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
