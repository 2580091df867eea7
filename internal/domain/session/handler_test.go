package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/validation"
)

func newTestHandler(t *testing.T) (*Handler, *Service, *echo.Echo) {
	svc, dir, _, _ := newTestService(t)
	seedUsers(t, dir)
	e := echo.New()
	e.Validator = validation.New()
	return NewHandler(svc), svc, e
}

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestLoginHandler(t *testing.T) {
	h, _, e := newTestHandler(t)
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"email":"desk@clinic.test","password":"desk-pass1"}`), rec)

	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Message string   `json:"message"`
		User    UserView `json:"user"`
		Tokens  struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		} `json:"tokens"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.User.ID != 21 || body.Tokens.AccessToken == "" || body.Tokens.RefreshToken == "" {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("response must not contain password data")
	}
}

func TestLoginHandler_BadCredentials(t *testing.T) {
	h, _, e := newTestHandler(t)
	c := e.NewContext(jsonRequest(http.MethodPost, `{"email":"desk@clinic.test","password":"wrong"}`), httptest.NewRecorder())

	if err := h.Login(c); !errors.Is(err, apperr.ErrInvalidCredentials) {
		t.Errorf("expected invalid credentials, got %v", err)
	}
}

func TestLoginHandler_MissingFields(t *testing.T) {
	h, _, e := newTestHandler(t)
	c := e.NewContext(jsonRequest(http.MethodPost, `{"email":"desk@clinic.test"}`), httptest.NewRecorder())

	if err := h.Login(c); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestLogoutHandler(t *testing.T) {
	h, svc, e := newTestHandler(t)
	res, _ := svc.Login(context.Background(), "doc@clinic.test", "doctor-pass")

	req := jsonRequest(http.MethodPost, `{"refresh_token":"`+res.Tokens.RefreshToken+`"}`)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+res.Tokens.AccessToken)
	rec := httptest.NewRecorder()
	if err := h.Logout(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	if _, err := svc.Refresh(context.Background(), res.Tokens.RefreshToken); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("expected refresh token to be revoked, got %v", err)
	}
}

func TestLogoutHandler_NoToken(t *testing.T) {
	h, _, e := newTestHandler(t)
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())

	err := h.Logout(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestMeHandler(t *testing.T) {
	h, _, e := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithActor(req.Context(), auth.DoctorActor{User: 1, DoctorID: 11}))
	rec := httptest.NewRecorder()

	if err := h.Me(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got MeResponse
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.User == nil || got.User.ID != 1 || got.ProfileID != 11 {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestMeHandler_Secretary(t *testing.T) {
	h, _, e := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithActor(req.Context(), auth.SecretaryActor{User: 2, SecretaryID: 21}))
	rec := httptest.NewRecorder()

	if err := h.Me(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got MeResponse
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.User == nil || got.User.ID != 21 || got.User.UserID != 2 {
		t.Errorf("expected secretary id as user.id, got %s", rec.Body.String())
	}
}
