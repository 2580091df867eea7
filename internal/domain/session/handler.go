package session

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
	g := api.Group("/auth")
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.Logout)
	g.GET("/me", h.Me, auth.RequireRole(auth.RoleDoctor, auth.RoleSecretary, auth.RolePatient))
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Message string `json:"message"`
	*LoginResult
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type MeResponse struct {
	User      *UserView `json:"user"`
	ProfileID int64     `json:"profile_id"`
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := httputil.BindAndValidate(c, &req); err != nil {
		return err
	}
	res, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, LoginResponse{Message: "login successful", LoginResult: res})
}

func (h *Handler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := httputil.BindAndValidate(c, &req); err != nil {
		return err
	}
	pair, err := h.svc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

// Logout accepts the access token in the Authorization header and an
// optional refresh token in the body.
func (h *Handler) Logout(c echo.Context) error {
	var req LogoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	access, _ := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if access == "" && req.RefreshToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "no token provided")
	}
	if err := h.svc.Logout(c.Request().Context(), access, req.RefreshToken); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) Me(c echo.Context) error {
	actor := auth.ActorFromContext(c.Request().Context())
	if actor == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	u, err := h.svc.Me(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MeResponse{User: u, ProfileID: actor.ProfileID()})
}
