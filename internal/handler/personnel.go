package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fleet-management/internal/config"
	"github.com/iliyamo/fleet-management/internal/model"
	"github.com/iliyamo/fleet-management/internal/repository"
)

// PersonnelHandler lists and creates user accounts for the office.
type PersonnelHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewPersonnelHandler(cfg config.Config, u *repository.UserRepo) *PersonnelHandler {
	return &PersonnelHandler{Cfg: cfg, Users: u}
}

// GET /v1/personnel?role=CHAUFFEUR
func (h *PersonnelHandler) List(c echo.Context) error {
	role := strings.ToUpper(strings.TrimSpace(c.QueryParam("role")))
	if role != "" && !model.ValidRole(role) {
		return badRequest(c, "unknown role")
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	users, err := h.Users.List(ctx, role)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

type personnelReq struct {
	registerReq
	Role string `json:"role"`
}

// POST /v1/personnel
func (h *PersonnelHandler) Create(c echo.Context) error {
	var req personnelReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	req.Role = strings.ToUpper(strings.TrimSpace(req.Role))
	if req.Role == "" {
		req.Role = model.RoleChauffeur
	}
	if req.Email == "" || req.Password == "" || req.FullName == "" {
		return badRequest(c, "email, password and full_name required")
	}
	if !model.ValidRole(req.Role) {
		return unprocessable(c, "unknown role")
	}

	ctx, cancel := reqContext(c)
	defer cancel()
	id, err := h.Users.Create(ctx, repository.NewUser{
		Email:    req.Email,
		FullName: req.FullName,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     req.Role,
	}, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return writeError(c, err)
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}
