package handler

import (
	"reflect"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts go-playground/validator to echo. A failed rule
// reports the field's msg tag, or "<field> is invalid" without one.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) || len(fes) == 0 {
		return err
	}
	fe := fes[0]
	t := reflect.TypeOf(i)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if f, found := t.FieldByName(fe.StructField()); found {
		if msg := f.Tag.Get("msg"); msg != "" {
			return errBadRequest(msg)
		}
	}
	return errBadRequest(fe.Field() + " is invalid")
}

// bind decodes the request into dst and validates it.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return errBadRequest("Invalid request body")
	}
	return c.Validate(dst)
}

var _ echo.Validator = (*Validator)(nil)
