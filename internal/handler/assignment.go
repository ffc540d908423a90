package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fleet-management/internal/service"
)

// AssignmentHandler exposes the assignment registry.
type AssignmentHandler struct {
	Fleet *service.Fleet
}

func NewAssignmentHandler(f *service.Fleet) *AssignmentHandler {
	return &AssignmentHandler{Fleet: f}
}

type assignmentReq struct {
	UserID      uint64  `json:"user_id"`
	TruckID     *uint64 `json:"truck_id"`
	EquipmentID *uint64 `json:"equipment_id"`
	SiteLabel   string  `json:"site_label"`
	StartDate   string  `json:"start_date"`
}

func (r assignmentReq) input() (service.AssignmentInput, error) {
	start, err := parseDay(r.StartDate)
	if err != nil {
		return service.AssignmentInput{}, err
	}
	return service.AssignmentInput{
		UserID:      r.UserID,
		TruckID:     r.TruckID,
		EquipmentID: r.EquipmentID,
		SiteLabel:   r.SiteLabel,
		StartDate:   start,
	}, nil
}

func bindAssignment(c echo.Context) (service.AssignmentInput, bool) {
	var req assignmentReq
	if err := c.Bind(&req); err != nil {
		return service.AssignmentInput{}, false
	}
	in, err := req.input()
	return in, err == nil
}

// POST /v1/assignments
func (h *AssignmentHandler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return writeError(c, err)
	}
	in, ok := bindAssignment(c)
	if !ok {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	a, err := h.Fleet.CreateAssignment(ctx, actor, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

// PUT /v1/assignments/:id
func (h *AssignmentHandler) Update(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return writeError(c, err)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	in, ok := bindAssignment(c)
	if !ok {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	a, err := h.Fleet.UpdateAssignment(ctx, actor, id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// POST /v1/assignments/:id/deactivate
func (h *AssignmentHandler) Deactivate(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return writeError(c, err)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	a, err := h.Fleet.DeactivateAssignment(ctx, actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// DELETE /v1/assignments/:id
func (h *AssignmentHandler) Delete(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return writeError(c, err)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	if err := h.Fleet.DeleteAssignment(ctx, actor, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GET /v1/assignments?user_id=&active=true
func (h *AssignmentHandler) List(c echo.Context) error {
	userID, err := optionalID(c.QueryParam("user_id"))
	if err != nil {
		return badRequest(c, "user_id must be a number")
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	list, err := h.Fleet.Registry.List(ctx, service.AssignmentFilter{
		UserID:     userID,
		ActiveOnly: c.QueryParam("active") == "true",
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// GET /v1/my/assignment
func (h *AssignmentHandler) Mine(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	a, err := h.Fleet.ActiveAssignment(ctx, actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}
