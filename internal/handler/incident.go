package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fleet-management/internal/service"
)

// IncidentHandler serves vehicle incident reports.
type IncidentHandler struct {
	Fleet *service.Fleet
}

func NewIncidentHandler(f *service.Fleet) *IncidentHandler {
	return &IncidentHandler{Fleet: f}
}

type incidentReq struct {
	TruckID     *uint64 `json:"truck_id"`
	EquipmentID *uint64 `json:"equipment_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Severity    string  `json:"severity"`
}

// POST /v1/incidents
func (h *IncidentHandler) Report(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return writeError(c, err)
	}
	var req incidentReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	inc, err := h.Fleet.ReportIncident(ctx, actor, service.IncidentInput{
		TruckID:     req.TruckID,
		EquipmentID: req.EquipmentID,
		Title:       req.Title,
		Description: req.Description,
		Severity:    req.Severity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, inc)
}

// GET /v1/incidents
func (h *IncidentHandler) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	list, err := h.Fleet.ListIncidents(ctx, actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// PATCH /v1/incidents/:id/status
func (h *IncidentHandler) UpdateStatus(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return writeError(c, err)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	inc, err := h.Fleet.UpdateIncidentStatus(ctx, actor, id, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, inc)
}
