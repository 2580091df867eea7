package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/validation"
)

func TestIDParam(t *testing.T) {
	e := echo.New()
	tests := []struct {
		value string
		want  int64
		ok    bool
	}{
		{"42", 42, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues(tt.value)
		got, err := IDParam(c, "id")
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("IDParam(%q) = %d, %v", tt.value, got, err)
		}
		if !tt.ok {
			he, isHTTP := err.(*echo.HTTPError)
			if !isHTTP || he.Code != http.StatusBadRequest {
				t.Errorf("IDParam(%q): expected 400, got %v", tt.value, err)
			}
		}
	}
}

func TestOptionalIDQuery(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?clinic_id=7", nil), httptest.NewRecorder())
	id, err := OptionalIDQuery(c, "clinic_id")
	if err != nil || id == nil || *id != 7 {
		t.Errorf("unexpected result %v %v", id, err)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if id, err := OptionalIDQuery(c, "clinic_id"); id != nil || err != nil {
		t.Errorf("expected nil for absent param, got %v %v", id, err)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/?clinic_id=x", nil), httptest.NewRecorder())
	if _, err := OptionalIDQuery(c, "clinic_id"); err == nil {
		t.Error("expected error for malformed id")
	}
}

type sample struct {
	Name string `json:"name" validate:"required"`
}

func TestBindAndValidate(t *testing.T) {
	e := echo.New()
	e.Validator = validation.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":""}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	var s sample
	err := BindAndValidate(c, &s)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c = e.NewContext(req, httptest.NewRecorder())
	if he, ok := BindAndValidate(c, &s).(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body")
	}
}
