// Package validation adapts go-playground/validator to echo and to the
// apperr error kinds.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/clinic/clinic/internal/platform/apperr"
)

var (
	phonePattern      = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{5,19}$`)
	nationalIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{5,20}$`)
)

var tagMessages = map[string]string{
	"required":    "is required",
	"notblank":    "must not be blank",
	"email":       "must be a valid email address",
	"min":         "must be at least %s characters",
	"max":         "must be at most %s characters",
	"gt":          "must be greater than %s",
	"oneof":       "must be one of %s",
	"phone":       "must be a valid phone number",
	"national_id": "must be 5 to 20 letters or digits",
	"datetime":    "must be a date formatted as %s",
}

// Validator implements echo.Validator.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("national_id", func(fl validator.FieldLevel) bool {
		return nationalIDPattern.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// Validate checks i against its validate tags and returns an apperr
// validation error naming the first failing field.
func (cv *Validator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperr.Validation("validate", "%s", FirstMessage(verrs[0]))
	}
	return apperr.Validation("validate", "invalid request")
}

// FirstMessage renders a field error as "<field> <reason>".
func FirstMessage(fe validator.FieldError) string {
	msg, ok := tagMessages[fe.Tag()]
	if !ok {
		msg = "is invalid"
	}
	if strings.Contains(msg, "%s") {
		param := fe.Param()
		if fe.Tag() == "oneof" {
			param = strings.Join(strings.Fields(param), ", ")
		}
		msg = strings.Replace(msg, "%s", param, 1)
	}
	return fe.Field() + " " + msg
}
