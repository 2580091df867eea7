package identity

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/httputil"
	"github.com/clinic/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	patients := api.Group("/patients", auth.RequireRole(auth.RoleDoctor, auth.RoleSecretary))
	patients.GET("", h.ListPatients)
	patients.POST("", h.CreatePatient)
	patients.GET("/:id", h.GetPatient)
	patients.PUT("/:id", h.UpdatePatient)
	patients.DELETE("/:id", h.DeletePatient)

	doctors := api.Group("/doctors", auth.RequireRole(auth.RoleDoctor, auth.RoleSecretary, auth.RolePatient))
	doctors.GET("", h.ListDoctors)
	doctors.GET("/:id", h.GetDoctor)

	doctorAdmin := api.Group("/doctors", auth.RequireRole(auth.RoleSecretary))
	doctorAdmin.DELETE("/:id", h.DeleteDoctor)

	users := api.Group("/users", auth.RequireRole(auth.RoleSecretary))
	users.GET("", h.ListUsers)
	users.POST("", h.RegisterUser)
	users.GET("/:id", h.GetUser)
}

// -- Patients --

func (h *Handler) CreatePatient(c echo.Context) error {
	var in PatientInput
	if err := httputil.BindAndValidate(c, &in); err != nil {
		return err
	}
	p, err := h.svc.CreatePatient(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := httputil.IDParam(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPatients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := httputil.IDParam(c, "id")
	if err != nil {
		return err
	}
	var in PatientInput
	if err := httputil.BindAndValidate(c, &in); err != nil {
		return err
	}
	p, err := h.svc.UpdatePatient(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := httputil.IDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Doctors --

func (h *Handler) ListDoctors(c echo.Context) error {
	clinicID, err := httputil.OptionalIDQuery(c, "clinic_id")
	if err != nil {
		return err
	}
	items, err := h.svc.ListDoctors(c.Request().Context(), clinicID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := httputil.IDParam(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDoctor(c echo.Context) error {
	id, err := httputil.IDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteDoctor(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Users --

func (h *Handler) RegisterUser(c echo.Context) error {
	var in RegisterInput
	if err := httputil.BindAndValidate(c, &in); err != nil {
		return err
	}
	res, err := h.svc.RegisterUser(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetUser(c echo.Context) error {
	id, err := httputil.IDParam(c, "id")
	if err != nil {
		return err
	}
	u, err := h.svc.GetUserByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListUsers(c echo.Context) error {
	var role *auth.Role
	if raw := c.QueryParam("role"); raw != "" {
		r := auth.Role(raw)
		role = &r
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListUsers(c.Request().Context(), role, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}
