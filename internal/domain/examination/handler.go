package examination

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
	staff := auth.RequireRole(auth.RoleDoctor, auth.RoleSecretary)

	read := api.Group("/examinations", staff)
	read.GET("", h.List)
	read.GET("/:id", h.Get)

	write := api.Group("/examinations", auth.RequireRole(auth.RoleDoctor))
	write.POST("", h.Create)
	write.PUT("/:id", h.Update)
	write.DELETE("/:id", h.Delete)

	api.GET("/doctors/:id/examinations", h.ListByDoctor, staff)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := httputil.BindAndValidate(c, &in); err != nil {
		return err
	}
	e, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := httputil.IDParam(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
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
	var p Patch
	if err := httputil.BindAndValidate(c, &p); err != nil {
		return err
	}
	e, err := h.svc.Update(c.Request().Context(), id, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
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

// ListByDoctor takes the doctor's user id as the path parameter.
func (h *Handler) ListByDoctor(c echo.Context) error {
	id, err := httputil.IDParam(c, "id")
	if err != nil {
		return err
	}
	items, err := h.svc.ListByDoctor(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}
