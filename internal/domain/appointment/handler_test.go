package appointment

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/validation"
)

func newTestHandler() (*Handler, *Service, *echo.Echo) {
	svc, _ := newTestService()
	e := echo.New()
	e.Validator = validation.New()
	return NewHandler(svc), svc, e
}

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestCreateHandler(t *testing.T) {
	h, _, e := newTestHandler()
	rec := httptest.NewRecorder()
	body := `{"patient_id":1,"doctor_id":2,"appointment_date":"2025-03-01T10:00","description":"checkup"}`

	if err := h.Create(e.NewContext(jsonRequest(http.MethodPost, body), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var got Appointment
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Status != StatusPending {
		t.Errorf("expected pending, got %q", got.Status)
	}
}

func TestCreateHandler_MissingDoctor(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"patient_id":1,"appointment_date":"2025-03-01T10:00"}`

	err := h.Create(e.NewContext(jsonRequest(http.MethodPost, body), httptest.NewRecorder()))
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestUpdateHandler_InvalidStatus(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(jsonRequest(http.MethodPut, `{"status":"archived"}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("1")

	if err := h.Update(c); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCancelHandler(t *testing.T) {
	h, svc, e := newTestHandler()
	a := book(t, svc, "2025-03-01T10:00")

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(a.ID, 10))
	if err := h.Cancel(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got Appointment
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %q", got.Status)
	}
}

func TestListHandler_BadStatus(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?status=unknown", nil), httptest.NewRecorder())

	if err := h.List(c); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestListByPatientHandler_PatientScope(t *testing.T) {
	h, svc, e := newTestHandler()
	book(t, svc, "2025-03-01T10:00")

	tests := []struct {
		name    string
		actor   auth.Actor
		wantErr error
	}{
		{"own appointments", auth.PatientActor{User: 5, PatientID: 1}, nil},
		{"other patient", auth.PatientActor{User: 6, PatientID: 3}, apperr.ErrForbidden},
		{"secretary", auth.SecretaryActor{User: 7, SecretaryID: 1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(auth.WithActor(req.Context(), tt.actor))
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.SetParamNames("id")
			c.SetParamValues("1")

			err := h.ListByPatient(c)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				var items []View
				json.Unmarshal(rec.Body.Bytes(), &items)
				if len(items) != 1 {
					t.Errorf("expected 1 appointment, got %d", len(items))
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDeleteHandler_NotFound(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("99")

	if err := h.Delete(c); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
