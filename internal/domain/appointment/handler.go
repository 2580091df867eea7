package appointment

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apperr"
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

	g := api.Group("/appointments", staff)
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/cancel", h.Cancel)

	api.GET("/patients/:id/appointments", h.ListByPatient,
		auth.RequireRole(auth.RoleDoctor, auth.RoleSecretary, auth.RolePatient))
	api.GET("/doctors/:id/appointments", h.ListByDoctor, staff)
}

// canViewPatient reports whether actor may see the appointments of
// patientID. Patients only see their own.
func canViewPatient(actor auth.Actor, patientID int64) bool {
	if actor == nil {
		return false
	}
	if actor.Role() == auth.RolePatient {
		return actor.ProfileID() == patientID
	}
	return true
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := httputil.BindAndValidate(c, &in); err != nil {
		return err
	}
	a, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := httputil.IDParam(c, "id")
	if err != nil {
		return err
	}
	v, err := h.svc.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) List(c echo.Context) error {
	var status *Status
	if raw := c.QueryParam("status"); raw != "" {
		st := Status(raw)
		status = &st
	}
	items, err := h.svc.ListAll(c.Request().Context(), status)
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
	a, err := h.svc.Update(c.Request().Context(), id, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := httputil.IDParam(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
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

func (h *Handler) ListByPatient(c echo.Context) error {
	id, err := httputil.IDParam(c, "id")
	if err != nil {
		return err
	}
	if !canViewPatient(auth.ActorFromContext(c.Request().Context()), id) {
		return apperr.Forbidden("appointment.ListByPatient", "patients may only view their own appointments")
	}
	items, err := h.svc.ListByPatient(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

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
