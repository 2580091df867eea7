package clinic

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/httputil"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("/clinics", auth.RequireRole(auth.RoleDoctor, auth.RoleSecretary, auth.RolePatient))
	read.GET("", h.List)
	read.GET("/:id", h.Get)

	write := api.Group("/clinics", auth.RequireRole(auth.RoleSecretary))
	write.POST("", h.Create)
	write.PUT("/:id", h.Update)
	write.DELETE("/:id", h.Delete)
}

func (h *Handler) Create(c echo.Context) error {
	var in Input
	if err := httputil.BindAndValidate(c, &in); err != nil {
		return err
	}
	cl, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cl)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := httputil.IDParam(c, "id")
	if err != nil {
		return err
	}
	cl, err := h.svc.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) List(c echo.Context) error {
	items, err := h.svc.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := httputil.IDParam(c, "id")
	if err != nil {
		return err
	}
	var in Input
	if err := httputil.BindAndValidate(c, &in); err != nil {
		return err
	}
	cl, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := httputil.IDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
