package udf

import (
	"errors"
	"reflect"

	"github.com/1broseidon/sqlai/common"
	"github.com/go-playground/validator/v10"
)

// Arg is one nullable text argument as received from the host.
type Arg struct {
	Value string
	Null  bool
}

// String wraps a non-NULL argument.
func String(s string) Arg {
	return Arg{Value: s}
}

// Null is the SQL NULL argument.
func Null() Arg {
	return Arg{Null: true}
}

// StringPtr maps nil to NULL.
func StringPtr(s *string) Arg {
	if s == nil {
		return Null()
	}
	return String(*s)
}

type promptArgs struct {
	Provider string `label:"Provider name" validate:"required"`
	Model    string `label:"Model name" validate:"required"`
	APIKey   string `label:"API key" validate:"required"`
	Text     string `label:"Prompt text" validate:"required"`
}

type embedArgs struct {
	Provider string `label:"Provider name" validate:"required"`
	Model    string `label:"Model name" validate:"required"`
	APIKey   string `label:"API key" validate:"required"`
	Text     string `label:"Text" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return field.Tag.Get("label")
	})
	return v
}

// validateArgs reports the first empty field in declaration order.
func validateArgs(args interface{}) error {
	err := validate.Struct(args)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return common.EmptyFieldError(fieldErrs[0].Field())
	}
	return common.NewError(common.KindValidation, err.Error(), err)
}

func anyNull(args ...Arg) bool {
	for _, a := range args {
		if a.Null {
			return true
		}
	}
	return false
}
